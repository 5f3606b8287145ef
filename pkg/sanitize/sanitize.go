// Package sanitize prepares flat field maps for persistence in the document
// store. The store rejects documents carrying an undefined marker, so every
// such key is dropped before a write. Nil values are kept: null is a legal,
// distinct value.
package sanitize

// Fields is a flat, top-level mapping of document field names to values.
type Fields map[string]interface{}

type undefined struct{}

// Undefined marks a field that must not be written at all.
var Undefined interface{} = undefined{}

// IsUndefined reports whether v is the Undefined marker.
func IsUndefined(v interface{}) bool {
	_, ok := v.(undefined)
	return ok
}

// Clean returns a copy of fields without the keys whose value is Undefined.
// Nested maps are copied by reference and never inspected.
func Clean(fields Fields) Fields {
	clean := make(Fields, len(fields))
	for key, value := range fields {
		if IsUndefined(value) {
			continue
		}
		clean[key] = value
	}
	return clean
}

// Optional maps a nil pointer to Undefined and a non-nil pointer to the
// value it points at. Use it to build partial updates from request structs.
func Optional[T any](p *T) interface{} {
	if p == nil {
		return Undefined
	}
	return *p
}

// Merge copies every key of extra into a cleaned copy of base.
func Merge(base Fields, extra Fields) Fields {
	merged := Clean(base)
	for key, value := range extra {
		if IsUndefined(value) {
			continue
		}
		merged[key] = value
	}
	return merged
}
