package model

import (
	"fmt"
	"strings"
)

// Direction is a sort direction.
type Direction string

// Sort directions.
const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection parses "asc"/"desc" case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "ascending":
		return Asc, nil
	case "desc", "descending":
		return Desc, nil
	default:
		return "", fmt.Errorf("invalid sort direction %q (use asc or desc)", s)
	}
}

// Flip returns the opposite direction.
func (d Direction) Flip() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// Sign is +1 for ascending and -1 for descending.
func (d Direction) Sign() int {
	if d == Desc {
		return -1
	}
	return 1
}

// SortSpec is the user-selected sort of one table.
type SortSpec struct {
	Key       string
	Direction Direction
}

func (s SortSpec) String() string {
	return fmt.Sprintf("%s %s", s.Key, strings.ToUpper(string(s.Direction)))
}

// Kind selects how a field's values are compared.
type Kind int

const (
	// KindNumber compares coerced numbers; missing values sort last in both directions.
	KindNumber Kind = iota
	// KindCount compares coerced numbers with missing values treated as zero.
	KindCount
	// KindText compares rendered values byte-wise (case-sensitive).
	KindText
	// KindTag compares the static tag rank.
	KindTag
	// KindConfidence compares high > medium > low > anything else.
	KindConfidence
)

func (k Kind) String() string {
	switch k {
	case KindNumber:
		return "number"
	case KindCount:
		return "count"
	case KindText:
		return "text"
	case KindTag:
		return "tag"
	case KindConfidence:
		return "confidence"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// TieBreak is one secondary comparator in a table's fixed tie-break chain.
// Fields holds the value source; more than one field means "first non-null wins".
type TieBreak struct {
	Fields    []string
	Kind      Kind
	Direction Direction
}

// NewTieBreak builds a single-field tie-break.
func NewTieBreak(field string, kind Kind, dir Direction) TieBreak {
	return TieBreak{Fields: []string{field}, Kind: kind, Direction: dir}
}
