package model

// Tag is a merchandising action label attached to a style.
type Tag string

// Server-computed recommendation tags.
const (
	TagStopHighReturns Tag = "STOP (High Returns)"
	TagScale           Tag = "SCALE"
	TagTrendingPush    Tag = "TRENDING PUSH"
	TagPushNew         Tag = "PUSH (New Discovery)"
	TagPushZeroSale    Tag = "PUSH (Zero-Sale)"
	TagWatch           Tag = "WATCH"
)

// Stock overlay tags computed client-side.
const (
	TagReplenish Tag = "REPLENISH & SCALE"
	TagNoStock   Tag = "NO STOCK (STOP ADS)"
	TagLowStock  Tag = "LOW STOCK"
	TagNone      Tag = "-"
)

// UnknownTagRank is the rank of any tag outside the rank table.
const UnknownTagRank = 99

var tagRanks = map[Tag]int{
	TagStopHighReturns: 0,
	TagScale:           1,
	TagTrendingPush:    2,
	TagPushNew:         3,
	TagPushZeroSale:    4,
	TagWatch:           5,
}

// Rank returns the tag's position in the static order.
func (t Tag) Rank() int {
	if r, ok := tagRanks[t]; ok {
		return r
	}
	return UnknownTagRank
}

func (t Tag) String() string {
	return string(t)
}
