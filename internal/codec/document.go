package codec

import "encoding/json"

// EncodeOptional marshals a pointer field: nil encodes as JSON null,
// matching the original library's nullable document fields (SPEC_FULL.md
// §11 C2 supplement). Hash layout has no equivalent — nil fields are
// elided entirely there (spec.md §4.2), handled by the caller skipping
// the field rather than calling this.
func EncodeOptional[T any](v *T) (json.RawMessage, error) {
	if v == nil {
		return json.RawMessage("null"), nil
	}
	return json.Marshal(v)
}

// DecodeOptional unmarshals a JSON value into a pointer field, returning
// nil for a JSON null without allocating.
func DecodeOptional[T any](raw json.RawMessage) (*T, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return &v, nil
}
