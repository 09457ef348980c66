// Package codec implements the value-encoding rules of spec.md §4.2: flat
// (Hash field string) and document (JSON value) forms for every field kind
// a record can declare, plus their decode inverses. It knows nothing about
// struct tags or field specs; the schema and runtime layers call these
// primitives per field.
package codec

import (
	"strconv"
	"strings"
)

// EncodeBool renders a boolean as "0"/"1", the Hash-field convention
// (spec.md §4.2).
func EncodeBool(v bool) string {
	if v {
		return "1"
	}
	return "0"
}

// DecodeBool is the inverse of EncodeBool. It also accepts "true"/"false"
// for tolerance with hand-edited data.
func DecodeBool(s string) (bool, error) {
	switch s {
	case "1", "true", "TRUE", "True":
		return true, nil
	case "0", "false", "FALSE", "False", "":
		return false, nil
	default:
		return strconv.ParseBool(s)
	}
}

// EncodeInt renders an integer as its decimal string form.
func EncodeInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// DecodeInt parses a decimal integer string.
func DecodeInt(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// EncodeFloat renders a float as its shortest round-tripping decimal
// string form.
func EncodeFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// DecodeFloat parses a decimal float string.
func DecodeFloat(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

// EncodeTagValue validates a string destined for a TAG field: the
// separator character is forbidden inside tag values because it would be
// indistinguishable from a list boundary on decode (spec.md §4.2).
func EncodeTagValue(v, separator string) (string, error) {
	if separator != "" && strings.Contains(v, separator) {
		return "", ErrSeparatorInValue
	}
	return v, nil
}

// EncodeTagList joins a string list into a single Hash field using
// separator, after validating no element itself contains the separator.
func EncodeTagList(vals []string, separator string) (string, error) {
	for _, v := range vals {
		if _, err := EncodeTagValue(v, separator); err != nil {
			return "", err
		}
	}
	return strings.Join(vals, separator), nil
}

// DecodeTagList splits a Hash field back into its string list. An empty
// field decodes to an empty (non-nil) slice.
func DecodeTagList(s, separator string) []string {
	if s == "" {
		return []string{}
	}
	return strings.Split(s, separator)
}

// EncodeDecimal validates and passes through a decimal-as-string field.
// Money and other precision-sensitive numerics are kept as their original
// string form rather than round-tripped through float64, which would
// introduce rounding error (spec.md supplement, SPEC_FULL.md §11 C2).
func EncodeDecimal(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", ErrMalformedDecimal
	}
	if _, err := strconv.ParseFloat(v, 64); err != nil {
		return "", ErrMalformedDecimal
	}
	return v, nil
}

// DecodeDecimal validates a stored decimal string on read, returning it
// unchanged; callers needing arithmetic parse it themselves.
func DecodeDecimal(s string) (string, error) {
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return "", ErrMalformedDecimal
	}
	return s, nil
}
