package runtime

import (
	"fmt"
	"reflect"
	"time"

	"github.com/redisom/redisom/internal/codec"
	"github.com/redisom/redisom/internal/schema"
)

// encodeHashValue renders a single patch value to the Hash-field string
// form C2 uses, the inverse of decodeHashValue.
func encodeHashValue(f schema.FieldSpec, v any) (string, error) {
	switch {
	case f.Kind == schema.Vector:
		switch vec := v.(type) {
		case []float32:
			return codec.EncodeVectorFloat32Hash(vec), nil
		case []float64:
			return codec.EncodeVectorFloat64Hash(vec), nil
		default:
			return "", fmt.Errorf("runtime: field %q expects a float32/float64 vector, got %T", f.Name, v)
		}

	case f.IsList:
		list, ok := v.([]string)
		if !ok {
			return "", fmt.Errorf("runtime: field %q expects a []string, got %T", f.Name, v)
		}
		return codec.EncodeTagList(list, listSeparator(f))

	case f.Kind == schema.Geo:
		return encodeGeoValue(v)
	}

	if t, ok := v.(time.Time); ok {
		return codec.EncodeDateTimeString(t), nil
	}

	return encodeScalarString(v)
}

// encodeJSONValue renders a single patch value to the JSON-native form
// the document layout stores, the inverse of decodeJSONValue.
func encodeJSONValue(f schema.FieldSpec, v any) (any, error) {
	switch {
	case f.Kind == schema.Vector:
		switch vec := v.(type) {
		case []float32:
			return codec.EncodeVectorFloat32JSON(vec), nil
		case []float64:
			return codec.EncodeVectorFloat64JSON(vec), nil
		default:
			return nil, fmt.Errorf("runtime: field %q expects a float32/float64 vector, got %T", f.Name, v)
		}

	case f.IsList:
		list, ok := v.([]string)
		if !ok {
			return nil, fmt.Errorf("runtime: field %q expects a []string, got %T", f.Name, v)
		}
		out := make([]any, len(list))
		for i, s := range list {
			out[i] = s
		}
		return out, nil

	case f.Kind == schema.Geo:
		return encodeGeoValue(v)
	}

	if t, ok := v.(time.Time); ok {
		return codec.EncodeDateTime(t), nil
	}

	return v, nil
}

func encodeGeoValue(v any) (string, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return "", fmt.Errorf("runtime: GEO field expects a {Lat, Lon float64} struct, got %T", v)
	}
	lat := rv.FieldByName("Lat")
	lon := rv.FieldByName("Lon")
	if !lat.IsValid() || !lon.IsValid() {
		return "", fmt.Errorf("runtime: GEO field value missing Lat/Lon")
	}
	return codec.EncodeGeoPoint(lat.Float(), lon.Float()), nil
}

// encodeScalarString handles both the narrow set of types a patch map
// literal produces (bool/string/int/int64/float32/float64) and, via the
// reflect fallback, any other Go integer/float kind a full struct field
// can hold (e.g. int32, uint16) so Save can drive the same encoder
// Update's patch path uses.
func encodeScalarString(v any) (string, error) {
	switch x := v.(type) {
	case bool:
		return codec.EncodeBool(x), nil
	case string:
		return x, nil
	case int:
		return codec.EncodeInt(int64(x)), nil
	case int64:
		return codec.EncodeInt(x), nil
	case float32:
		return codec.EncodeFloat(float64(x)), nil
	case float64:
		return codec.EncodeFloat(x), nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return codec.EncodeInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return codec.EncodeInt(int64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		return codec.EncodeFloat(rv.Float()), nil
	default:
		return "", fmt.Errorf("runtime: unsupported patch value type %T", v)
	}
}
