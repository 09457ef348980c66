package runtime

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/redisom/redisom/internal/codec"
	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/schema"
)

var timeType = reflect.TypeOf(time.Time{})

// Hydrate decodes one search hit into a new *T, using the compiled
// schema's GoPath/Kind metadata to reverse C2's encode rules (spec.md
// §4.7). A hit carries either a flat Fields map (hash rows, or a
// shallow-projected document row returned via field aliases) or a raw
// JSON document body (a full, unprojected document row) — never both.
func Hydrate[T any](entry db.SearchEntry, c *schema.Compiled) (*T, error) {
	out := new(T)
	root := reflect.ValueOf(out).Elem()

	if entry.JSON != nil {
		var doc map[string]any
		if err := json.Unmarshal(entry.JSON, &doc); err != nil {
			return nil, fmt.Errorf("runtime: unmarshal document body: %w", err)
		}
		for _, f := range c.Fields {
			raw, ok := jsonLookup(doc, f.Path)
			if !ok {
				continue
			}
			if err := decodeJSONValue(fieldByGoPath(root, f.GoPath), f, raw); err != nil {
				return nil, fmt.Errorf("runtime: decode field %q: %w", f.Name, err)
			}
		}
		return out, nil
	}

	for _, f := range c.Fields {
		raw, ok := entry.Fields[f.Name]
		if !ok || raw == "" {
			continue
		}
		if err := decodeHashValue(fieldByGoPath(root, f.GoPath), f, raw); err != nil {
			return nil, fmt.Errorf("runtime: decode field %q: %w", f.Name, err)
		}
	}
	return out, nil
}

// jsonLookup walks a "$.a.b"-style path (as produced by
// schema.hashOrJSONPath) through an unmarshaled document.
func jsonLookup(doc map[string]any, jsonPath string) (any, bool) {
	trimmed := strings.TrimPrefix(jsonPath, "$.")
	trimmed = strings.TrimPrefix(trimmed, "$")
	if trimmed == "" {
		return nil, false
	}
	var cur any = doc
	for _, part := range strings.Split(trimmed, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[part]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

func decodeHashValue(fv reflect.Value, f schema.FieldSpec, raw string) error {
	switch {
	case f.Kind == schema.Vector:
		return decodeHashVector(fv, f, raw)
	case f.IsList:
		fv.Set(reflect.ValueOf(codec.DecodeTagList(raw, listSeparator(f))))
		return nil
	default:
		return decodeScalarString(fv, f, raw)
	}
}

func decodeJSONValue(fv reflect.Value, f schema.FieldSpec, raw any) error {
	switch {
	case f.Kind == schema.Vector:
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("vector field is not a base64 string")
		}
		return decodeJSONVector(fv, f, s)
	case f.IsList:
		arr, ok := raw.([]any)
		if !ok {
			return fmt.Errorf("list field is not a JSON array")
		}
		vals := make([]string, len(arr))
		for i, e := range arr {
			s, _ := e.(string)
			vals[i] = s
		}
		fv.Set(reflect.ValueOf(vals))
		return nil
	default:
		s, ok := jsonScalarToString(raw)
		if !ok {
			return nil // JSON null or unsupported shape: leave the zero value.
		}
		return decodeScalarString(fv, f, s)
	}
}

// decodeScalarString handles every Kind except VECTOR and list TAGs, which
// differ too much by storage layout (raw binary vs. base64, joined string
// vs. JSON array) to share this path.
func decodeScalarString(fv reflect.Value, f schema.FieldSpec, raw string) error {
	if f.Kind == schema.Geo {
		lat, lon, err := codec.DecodeGeoPoint(raw)
		if err != nil {
			return err
		}
		fv.FieldByName("Lat").SetFloat(lat)
		fv.FieldByName("Lon").SetFloat(lon)
		return nil
	}
	if fv.Type() == timeType {
		t, err := codec.DecodeDateTime(raw)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(t))
		return nil
	}

	switch fv.Kind() {
	case reflect.Bool:
		b, err := codec.DecodeBool(raw)
		if err != nil {
			return err
		}
		fv.SetBool(b)
	case reflect.String:
		fv.SetString(raw)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := codec.DecodeInt(raw)
		if err != nil {
			return err
		}
		fv.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		n, err := codec.DecodeInt(raw)
		if err != nil {
			return err
		}
		fv.SetUint(uint64(n))
	case reflect.Float32, reflect.Float64:
		n, err := codec.DecodeFloat(raw)
		if err != nil {
			return err
		}
		fv.SetFloat(n)
	default:
		return fmt.Errorf("cannot decode into %s", fv.Type())
	}
	return nil
}

func decodeHashVector(fv reflect.Value, f schema.FieldSpec, raw string) error {
	if f.Vector != nil && f.Vector.DType == schema.VectorFloat64 {
		v, err := codec.DecodeVectorFloat64Hash(raw)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(v))
		return nil
	}
	v, err := codec.DecodeVectorFloat32Hash(raw)
	if err != nil {
		return err
	}
	fv.Set(reflect.ValueOf(v))
	return nil
}

func decodeJSONVector(fv reflect.Value, f schema.FieldSpec, raw string) error {
	if f.Vector != nil && f.Vector.DType == schema.VectorFloat64 {
		v, err := codec.DecodeVectorFloat64JSON(raw)
		if err != nil {
			return err
		}
		fv.Set(reflect.ValueOf(v))
		return nil
	}
	v, err := codec.DecodeVectorFloat32JSON(raw)
	if err != nil {
		return err
	}
	fv.Set(reflect.ValueOf(v))
	return nil
}

func jsonScalarToString(v any) (string, bool) {
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), true
	case bool:
		if x {
			return "1", true
		}
		return "0", true
	default:
		return "", false
	}
}

func listSeparator(f schema.FieldSpec) string {
	if f.Separator == "" {
		return schema.DefaultSeparator
	}
	return f.Separator
}
