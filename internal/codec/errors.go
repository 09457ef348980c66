package codec

import "errors"

var (
	// ErrSeparatorInValue is returned when a tag value contains the
	// configured TAG separator character, which would corrupt the
	// encoded Hash field on decode.
	ErrSeparatorInValue = errors.New("codec: value contains separator character")
	// ErrMalformedVector is returned when a packed vector's byte length
	// isn't a multiple of its element width.
	ErrMalformedVector = errors.New("codec: malformed vector bytes")
	// ErrMalformedDecimal is returned when a decimal field's string form
	// isn't a valid base-10 number.
	ErrMalformedDecimal = errors.New("codec: malformed decimal string")
	// ErrMalformedDateTime is returned when a datetime field can't be
	// parsed in either its numeric or legacy ISO-8601 form.
	ErrMalformedDateTime = errors.New("codec: malformed datetime value")
)
