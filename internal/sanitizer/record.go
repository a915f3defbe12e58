package sanitizer

import "time"

// Record is a schemaless document as returned by the persistence layer.
type Record map[string]any

// Has reports whether key is present, even when its value is nil.
func (r Record) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Clone returns a shallow copy. A nil record clones to nil.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// String returns the value at key when it is a string.
func (r Record) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Bool returns the value at key when it is a bool.
func (r Record) Bool(key string) bool {
	b, _ := r[key].(bool)
	return b
}

// Float returns numeric values at key as float64. Firestore decodes integers as int64.
func (r Record) Float(key string) float64 {
	switch v := r[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int64:
		return float64(v)
	case int:
		return float64(v)
	default:
		return 0
	}
}

// Time returns the value at key when it is a time.Time.
func (r Record) Time(key string) time.Time {
	t, _ := r[key].(time.Time)
	return t
}

// Strings returns the value at key as a string slice, accepting []any from decoded documents.
func (r Record) Strings(key string) []string {
	switch v := r[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Int returns integral values at key as int64, truncating floats.
func (r Record) Int(key string) int64 {
	switch v := r[key].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	default:
		return 0
	}
}
