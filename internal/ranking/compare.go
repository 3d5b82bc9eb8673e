// Package ranking sorts analytics rows by a selected key with fixed tie-break chains.
//
// Every ranking returns a new slice; the caller's rows are never reordered or modified.
// Missing numeric values always sort after present values, whichever direction is
// selected.
package ranking

import (
	"cmp"
	"slices"
	"strings"

	"github.com/Veraticus/merchctl/internal/model"
)

// Comparator orders two rows: negative if a sorts first, positive if b does, zero on a tie.
type Comparator func(a, b model.Row) int

// valueFunc extracts the raw value a comparator looks at.
type valueFunc func(model.Row) any

// Chain returns a comparator that consults each comparator in order until one is non-zero.
func Chain(cmps ...Comparator) Comparator {
	return func(a, b model.Row) int {
		for _, c := range cmps {
			if r := c(a, b); r != 0 {
				return r
			}
		}
		return 0
	}
}

// Compare builds the comparator described by a tie-break.
func Compare(tb model.TieBreak) Comparator {
	return compareValues(fieldValue(tb.Fields), tb.Kind, tb.Direction)
}

// Rank returns a stably sorted copy of rows. The primary key is compared as a tag rank
// when it is "tag", as a number when the field holds numbers (see FieldKind) and as
// case-sensitive text otherwise. Missing values sort last either way; tieBreaks are
// applied in order.
func Rank(rows []model.Row, sort model.SortSpec, tieBreaks []model.TieBreak) []model.Row {
	if sort.Key == tagField {
		return RankBy(rows, model.NewTieBreak(sort.Key, model.KindTag, sort.Direction), tieBreaks...)
	}

	kind := FieldKind(rows, sort.Key)
	cmps := make([]Comparator, 0, len(tieBreaks)+2)
	if kind == model.KindText {
		cmps = append(cmps, missingLast(sort.Key))
	}
	cmps = append(cmps, Compare(model.NewTieBreak(sort.Key, kind, sort.Direction)))
	for _, tb := range tieBreaks {
		cmps = append(cmps, Compare(tb))
	}
	return Sorted(rows, Chain(cmps...))
}

// FieldKind reports how key compares across rows: KindNumber when any row stores a
// JSON number under it or every present value coerces to one, KindText otherwise.
func FieldKind(rows []model.Row, key string) model.Kind {
	present, coerced := 0, 0
	for _, r := range rows {
		if r.IsNull(key) {
			continue
		}
		if r.IsNumber(key) {
			return model.KindNumber
		}
		present++
		if _, ok := r.Number(key); ok {
			coerced++
		}
	}
	if present > 0 && coerced == present {
		return model.KindNumber
	}
	return model.KindText
}

// missingLast orders rows with a value under key before rows without one.
func missingLast(key string) Comparator {
	return func(a, b model.Row) int {
		an, bn := a.IsNull(key), b.IsNull(key)
		switch {
		case an == bn:
			return 0
		case an:
			return 1
		default:
			return -1
		}
	}
}

// RankBy is Rank with an explicitly typed primary comparator.
func RankBy(rows []model.Row, primary model.TieBreak, tieBreaks ...model.TieBreak) []model.Row {
	cmps := make([]Comparator, 0, len(tieBreaks)+1)
	cmps = append(cmps, Compare(primary))
	for _, tb := range tieBreaks {
		cmps = append(cmps, Compare(tb))
	}
	return Sorted(rows, Chain(cmps...))
}

// Sorted returns a stably sorted copy of rows.
func Sorted(rows []model.Row, c Comparator) []model.Row {
	out := model.CloneRows(rows)
	slices.SortStableFunc(out, c)
	return out
}

func fieldValue(fields []string) valueFunc {
	switch len(fields) {
	case 0:
		return func(model.Row) any { return nil }
	case 1:
		field := fields[0]
		return func(r model.Row) any {
			v, _ := r.Get(field)
			return v
		}
	default:
		return func(r model.Row) any {
			return r.Coalesce(fields...)
		}
	}
}

func compareValues(value valueFunc, kind model.Kind, dir model.Direction) Comparator {
	sign := dir.Sign()

	switch kind {
	case model.KindNumber:
		return func(a, b model.Row) int {
			av, aok := model.ToNumber(value(a))
			bv, bok := model.ToNumber(value(b))
			switch {
			case !aok && !bok:
				return 0
			case !aok:
				return 1
			case !bok:
				return -1
			}
			return cmp.Compare(av, bv) * sign
		}

	case model.KindCount:
		return func(a, b model.Row) int {
			av, _ := model.ToNumber(value(a))
			bv, _ := model.ToNumber(value(b))
			return cmp.Compare(av, bv) * sign
		}

	case model.KindTag:
		return func(a, b model.Row) int {
			ar := model.Tag(model.ToText(value(a))).Rank()
			br := model.Tag(model.ToText(value(b))).Rank()
			return cmp.Compare(ar, br) * sign
		}

	case model.KindConfidence:
		return func(a, b model.Row) int {
			return cmp.Compare(confidenceRank(value(a)), confidenceRank(value(b))) * sign
		}

	default:
		return func(a, b model.Row) int {
			return strings.Compare(model.ToText(value(a)), model.ToText(value(b))) * sign
		}
	}
}

func confidenceRank(v any) int {
	switch strings.ToLower(model.ToText(v)) {
	case "high":
		return 3
	case "medium":
		return 2
	case "low":
		return 1
	default:
		return 0
	}
}
