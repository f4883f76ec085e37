package docstore

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// matches reports whether rec satisfies every equality filter.
func matches(rec Record, filters []Filter) bool {
	for _, f := range filters {
		if !equalValues(rec[f.Field], f.Value) {
			return false
		}
	}
	return true
}

func equalValues(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if an, ok := toFloat(a); ok {
		if bn, ok := toFloat(b); ok {
			return an == bn
		}
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	default:
		return fmt.Sprint(a) == fmt.Sprint(b)
	}
}

// sortRecords orders records by field with a stable sort. Records missing
// the field, or holding null, are dropped, as an ordered Firestore query
// drops them.
func sortRecords(records []Record, field string, descending bool) []Record {
	if field == "" {
		return records
	}
	kept := records[:0]
	for _, rec := range records {
		if _, ok := rec[field]; ok && rec[field] != nil {
			kept = append(kept, rec)
		}
	}
	slices.SortStableFunc(kept, func(a, b Record) int {
		c := compareValues(a[field], b[field])
		if descending {
			return -c
		}
		return c
	})
	return kept
}

// compareValues orders numbers numerically, times (native or RFC3339
// strings) chronologically and everything else by its string form.
func compareValues(a, b any) int {
	if an, ok := toFloat(a); ok {
		if bn, ok := toFloat(b); ok {
			return cmp.Compare(an, bn)
		}
	}
	if at, ok := toTime(a); ok {
		if bt, ok := toTime(b); ok {
			return at.Compare(bt)
		}
	}
	return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
