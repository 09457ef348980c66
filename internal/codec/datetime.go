package codec

import (
	"strconv"
	"strings"
	"time"
)

// EncodeDateTime renders t as decimal seconds-since-epoch, the wire form
// used by both storage layouts so a NUMERIC index can range-query it
// (spec.md §4.2).
func EncodeDateTime(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// EncodeDateTimeString is EncodeDateTime rendered as the flat-string form
// a Hash field stores.
func EncodeDateTimeString(t time.Time) string {
	return strconv.FormatFloat(EncodeDateTime(t), 'f', -1, 64)
}

// DecodeDateTime accepts either the canonical numeric seconds-since-epoch
// form or a legacy ISO-8601 string, so records written before a datetime
// field's encoding changed still decode (spec.md §4.2 "decoder accepts
// either form").
func DecodeDateTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, ErrMalformedDateTime
	}

	if seconds, err := strconv.ParseFloat(raw, 64); err == nil {
		whole := int64(seconds)
		frac := seconds - float64(whole)
		return time.Unix(whole, int64(frac*float64(time.Second))).UTC(), nil
	}

	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC(), nil
	}

	return time.Time{}, ErrMalformedDateTime
}
