package repository

import (
	"encoding/json"
	"sort"
	"time"

	"branchdesk-server/internal/domain"
)

// sortDocsDesc orders docs descending by field. Documents missing the field
// sort last; ties keep their existing order.
func sortDocsDesc(docs []domain.Document, field string) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, aok := docs[i].Fields[field]
		b, bok := docs[j].Fields[field]
		if !aok || !bok {
			return aok && !bok
		}
		return compareValues(a, b) > 0
	})
}

func compareValues(a, b interface{}) int {
	if ta, ok := asTime(a); ok {
		if tb, ok := asTime(b); ok {
			return ta.Compare(tb)
		}
	}

	switch av := a.(type) {
	case float64:
		if bv, ok := b.(float64); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	case string:
		if bv, ok := b.(string); ok {
			switch {
			case av < bv:
				return -1
			case av > bv:
				return 1
			}
			return 0
		}
	}
	return 0
}

func asTime(v interface{}) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, t)
		return parsed, err == nil
	}
	return time.Time{}, false
}

// normalizeFields gives fields the shape they have after a round trip through
// the store's JSON encoding.
func normalizeFields(fields map[string]interface{}) (map[string]interface{}, error) {
	raw, err := json.Marshal(fields)
	if err != nil {
		return nil, err
	}
	var out map[string]interface{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}
