package docstore

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// IDField is the field Format writes the document identifier into.
const IDField = "id"

// InternalFields are bookkeeping fields written by the auth provider and
// the server. Format removes them from every record.
var InternalFields = []string{"createdAt", "lastLoginAt", "loginCount", "providerData"}

// Record is a sanitized document.
type Record map[string]any

// Format turns a raw document into a Record: internal fields are dropped and
// the identifier is merged in under IDField. A raw value that is not a keyed
// object (nil, scalar, slice, nil map) yields nil, meaning "not found".
// raw is never modified.
func Format(id string, raw any) Record {
	var src map[string]any
	switch v := raw.(type) {
	case Record:
		src = v
	case map[string]any:
		src = v
	default:
		return nil
	}
	if src == nil {
		return nil
	}

	out := make(Record, len(src)+1)
	for key, value := range src {
		out[key] = value
	}
	for _, key := range InternalFields {
		delete(out, key)
	}
	out[IDField] = id
	return out
}

// ID returns the identifier attached by Format.
func (r Record) ID() string {
	return r.String(IDField)
}

// String returns the field as a string, or "" when absent or not a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool returns the field as a bool and whether it was present as one.
func (r Record) Bool(key string) (bool, bool) {
	b, ok := r[key].(bool)
	return b, ok
}

// Int returns the field as an int and whether it could be coerced.
func (r Record) Int(key string) (int, bool) {
	return toInt(r[key])
}

// Time returns the field as a time, or the zero time when it cannot be coerced.
func (r Record) Time(key string) time.Time {
	t, _ := toTime(r[key])
	return t
}

// Map returns the field as a keyed object, or nil.
func (r Record) Map(key string) map[string]any {
	switch v := r[key].(type) {
	case map[string]any:
		return v
	case Record:
		return v
	default:
		return nil
	}
}

// StringMap returns the string-valued entries of a keyed object field.
func (r Record) StringMap(key string) map[string]string {
	m := r.Map(key)
	if m == nil {
		return nil
	}
	out := make(map[string]string, len(m))
	for k, v := range m {
		if s, ok := v.(string); ok {
			out[k] = s
		}
	}
	return out
}

// IntMap returns the integer-coercible entries of a keyed object field.
func (r Record) IntMap(key string) map[string]int {
	m := r.Map(key)
	if m == nil {
		return nil
	}
	out := make(map[string]int, len(m))
	for k, v := range m {
		if n, ok := toInt(v); ok {
			out[k] = n
		}
	}
	return out
}

func toInt(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case float64:
		return floatToInt(n)
	case float32:
		return floatToInt(float64(n))
	case json.Number:
		i, err := n.Int64()
		if err != nil {
			f, ferr := n.Float64()
			if ferr != nil {
				return 0, false
			}
			return floatToInt(f)
		}
		return int(i), true
	case string:
		i, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0, false
		}
		return i, true
	default:
		return 0, false
	}
}

// toTime accepts native times, RFC3339 strings, unix seconds and the
// {seconds,nanos} / {_seconds,_nanoseconds} timestamp objects produced by
// document exports.
func toTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil {
			return time.Time{}, false
		}
		return *t, !t.IsZero()
	case string:
		parsed, err := time.Parse(time.RFC3339Nano, strings.TrimSpace(t))
		if err != nil {
			return time.Time{}, false
		}
		return parsed, true
	case map[string]any:
		return timestampObject(t)
	case Record:
		return timestampObject(t)
	default:
		if secs, ok := toInt(v); ok {
			return time.Unix(int64(secs), 0).UTC(), true
		}
		return time.Time{}, false
	}
}

func timestampObject(m map[string]any) (time.Time, bool) {
	for _, keys := range [][2]string{{"seconds", "nanos"}, {"_seconds", "_nanoseconds"}} {
		secs, ok := toInt(m[keys[0]])
		if !ok {
			continue
		}
		nanos, _ := toInt(m[keys[1]])
		return time.Unix(int64(secs), int64(nanos)).UTC(), true
	}
	return time.Time{}, false
}

// floatToInt rounds f, refusing values an int cannot hold.
func floatToInt(f float64) (int, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	r := math.Round(f)
	if r >= -float64(math.MinInt) || r < float64(math.MinInt) {
		return 0, false
	}
	return int(r), true
}
