package datamig

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redisom/redisom/internal/codec"
	"github.com/redisom/redisom/internal/schema"
)

// DatetimeMigrationID identifies the built-in ISO-to-numeric transition.
const DatetimeMigrationID = "built_in_datetime_fields_to_numeric"

// DatetimeMigration converts datetime fields stored as legacy ISO-8601
// strings into the numeric seconds-since-epoch form NUMERIC indexing
// requires, grounded on
// original_source/aredis_om/model/migrations/data/builtin/datetime_migration.py's
// DatetimeFieldMigration (is-ISO/is-numeric branch, HASH vs JSON dispatch,
// failure-mode-aware conversion). Field traversal is driven by
// schema.FieldSpec.IsDateTime rather than re-deriving the Go type, since
// this package only ever sees the compiled field list, not the struct.
type DatetimeMigration struct{}

// NewDatetimeMigration constructs the built-in datetime transition.
func NewDatetimeMigration() *DatetimeMigration { return &DatetimeMigration{} }

func (m *DatetimeMigration) ID() string { return DatetimeMigrationID }

func (m *DatetimeMigration) Description() string {
	return "convert datetime fields from ISO-8601 strings to numeric seconds-since-epoch"
}

func (m *DatetimeMigration) Dependencies() []string { return nil }

func (m *DatetimeMigration) Up(ctx context.Context, tx *Transform) error {
	for _, rt := range tx.Targets() {
		fields := datetimeFields(rt)
		if len(fields) == 0 {
			continue
		}
		var err error
		if rt.Layout == schema.HashLayout {
			err = tx.Hash(ctx, rt, transformHash(fields, tx.FailureMode()))
		} else {
			err = tx.JSON(ctx, rt, transformJSON(fields, tx.FailureMode()))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Down reverses the transition by re-encoding numeric values as RFC3339
// strings. Precision/timezone are not perfectly round-tripped (the
// original implementation documents the same approximation for its own
// rollback).
func (m *DatetimeMigration) Down(ctx context.Context, tx *Transform) error {
	for _, rt := range tx.Targets() {
		fields := datetimeFields(rt)
		if len(fields) == 0 {
			continue
		}
		var err error
		if rt.Layout == schema.HashLayout {
			err = tx.Hash(ctx, rt, revertHash(fields))
		} else {
			err = tx.JSON(ctx, rt, revertJSON(fields))
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func datetimeFields(rt RecordType) []schema.FieldSpec {
	var out []schema.FieldSpec
	for _, f := range rt.Fields {
		if f.IsDateTime {
			out = append(out, f)
		}
	}
	return out
}

func transformHash(fields []schema.FieldSpec, mode FailureMode) HashTransformFunc {
	return func(key string, data map[string]string) (map[string]string, bool, error) {
		out := map[string]string{}
		changed := false
		for _, f := range fields {
			raw, ok := data[f.Path]
			if !ok {
				continue
			}
			converted, didConvert, err := convertDatetimeValue(raw, mode)
			if err != nil {
				return nil, false, fmt.Errorf("field %s: %w", f.Name, err)
			}
			if didConvert {
				out[f.Path] = converted
				changed = true
			}
		}
		if !changed {
			return nil, false, nil
		}
		return out, true, nil
	}
}

func transformJSON(fields []schema.FieldSpec, mode FailureMode) JSONTransformFunc {
	return func(key string, doc map[string]any) (map[string]any, bool, error) {
		changed := false
		for _, f := range fields {
			raw, ok := jsonLookup(doc, f.Path)
			if !ok {
				continue
			}
			str, ok := raw.(string)
			if !ok {
				continue
			}
			converted, didConvert, err := convertDatetimeValue(str, mode)
			if err != nil {
				return nil, false, fmt.Errorf("field %s: %w", f.Name, err)
			}
			if didConvert {
				num, _ := strconv.ParseFloat(converted, 64)
				setJSONPath(doc, f.Path, num)
				changed = true
			}
		}
		if !changed {
			return nil, false, nil
		}
		return doc, true, nil
	}
}

func revertHash(fields []schema.FieldSpec) HashTransformFunc {
	return func(key string, data map[string]string) (map[string]string, bool, error) {
		out := map[string]string{}
		changed := false
		for _, f := range fields {
			raw, ok := data[f.Path]
			if !ok {
				continue
			}
			if _, err := strconv.ParseFloat(raw, 64); err != nil {
				continue // already a string, nothing to revert
			}
			t, err := codec.DecodeDateTime(raw)
			if err != nil {
				continue
			}
			out[f.Path] = t.Format(time.RFC3339Nano)
			changed = true
		}
		if !changed {
			return nil, false, nil
		}
		return out, true, nil
	}
}

func revertJSON(fields []schema.FieldSpec) JSONTransformFunc {
	return func(key string, doc map[string]any) (map[string]any, bool, error) {
		changed := false
		for _, f := range fields {
			raw, ok := jsonLookup(doc, f.Path)
			if !ok {
				continue
			}
			num, ok := raw.(float64)
			if !ok {
				continue
			}
			t, err := codec.DecodeDateTime(strconv.FormatFloat(num, 'f', -1, 64))
			if err != nil {
				continue
			}
			setJSONPath(doc, f.Path, t.Format(time.RFC3339Nano))
			changed = true
		}
		if !changed {
			return nil, false, nil
		}
		return doc, true, nil
	}
}

// convertDatetimeValue converts raw from an ISO-8601 string to the
// numeric seconds-since-epoch string form. It returns (raw, false, nil)
// when raw is already numeric. mode governs what happens when raw is
// neither: Skip/LogAndSkip leave it untouched, UseDefault substitutes the
// Unix epoch, FailFast returns an error.
func convertDatetimeValue(raw string, mode FailureMode) (string, bool, error) {
	raw = strings.TrimSpace(raw)
	if _, err := strconv.ParseFloat(raw, 64); err == nil {
		return raw, false, nil
	}

	t, err := codec.DecodeDateTime(raw)
	if err != nil {
		switch mode {
		case UseDefault:
			return codec.EncodeDateTimeString(time.Unix(0, 0).UTC()), true, nil
		case Skip, LogAndSkip:
			return raw, false, nil
		default: // FailFast
			return "", false, fmt.Errorf("unparseable datetime value %q: %w", raw, err)
		}
	}
	return codec.EncodeDateTimeString(t), true, nil
}

// jsonLookup and setJSONPath are local copies of
// internal/runtime/hydrate.go's jsonLookup and
// internal/runtime/docjson.go's setJSONPath: both walk a "$.a.b"-style
// path through an unmarshaled document, but runtime's versions are
// unexported and this package can't import across that boundary.

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

func setJSONPath(doc map[string]any, jsonPath string, value any) {
	trimmed := strings.TrimPrefix(jsonPath, "$.")
	trimmed = strings.TrimPrefix(trimmed, "$")
	if trimmed == "" {
		return
	}
	parts := strings.Split(trimmed, ".")
	cur := doc
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[p] = next
		}
		cur = next
	}
}
