// internal/catalog/flex.go
package catalog

import (
	"bytes"
	"encoding/json"
)

// FlexKind tags the shape a FlexValue arrived in.
type FlexKind int

const (
	// FlexAbsent means the field was not present at all.
	FlexAbsent FlexKind = iota
	// FlexNull is an explicit JSON null.
	FlexNull
	// FlexString is a JSON string.
	FlexString
	// FlexObject is a JSON object.
	FlexObject
	// FlexOther is any other JSON value (number, bool, array).
	FlexOther
)

// FlexValue holds catalog fields that the service sends either as a plain
// string or as a structured object (publisher, runtime, task, promptTemplate).
type FlexValue struct {
	Kind FlexKind
	Str  string
	Raw  json.RawMessage
}

// FlexFromString builds a string-valued FlexValue.
func FlexFromString(s string) FlexValue {
	raw, _ := json.Marshal(s)
	return FlexValue{Kind: FlexString, Str: s, Raw: raw}
}

// UnmarshalJSON discriminates on the first significant byte.
func (f *FlexValue) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	raw := append(json.RawMessage(nil), trimmed...)
	switch {
	case len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")):
		*f = FlexValue{Kind: FlexNull}
	case trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*f = FlexValue{Kind: FlexString, Str: s, Raw: raw}
	case trimmed[0] == '{':
		*f = FlexValue{Kind: FlexObject, Raw: raw}
	default:
		*f = FlexValue{Kind: FlexOther, Raw: raw}
	}
	return nil
}

// MarshalJSON writes the value back in its original shape.
func (f FlexValue) MarshalJSON() ([]byte, error) {
	switch f.Kind {
	case FlexAbsent, FlexNull:
		return []byte("null"), nil
	case FlexString:
		return json.Marshal(f.Str)
	default:
		if len(f.Raw) == 0 {
			return []byte("null"), nil
		}
		return f.Raw, nil
	}
}

// IsZero reports an absent value so `omitzero` drops the field.
func (f FlexValue) IsZero() bool { return f.Kind == FlexAbsent }

// String returns the string form, or a compact JSON rendering for other shapes.
func (f FlexValue) String() string {
	switch f.Kind {
	case FlexString:
		return f.Str
	case FlexObject, FlexOther:
		return string(f.Raw)
	default:
		return ""
	}
}

// Field extracts a string member from an object-valued FlexValue.
func (f FlexValue) Field(name string) string {
	if f.Kind != FlexObject {
		return ""
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(f.Raw, &obj); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(obj[name], &s); err != nil {
		return ""
	}
	return s
}
