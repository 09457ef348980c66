package redis

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/redis/rueidis"

	"github.com/redisom/redisom/internal/db"
)

// CreateIndex creates an FT index from the given definition.
func (s *Store) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	args, err := buildCreateArgs(def)
	if err != nil {
		return err
	}

	cmd := s.b().Arbitrary("FT.CREATE").Args(args...).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "index already exists") {
			return db.ErrIndexExists
		}
		if isModuleMissing(err) {
			return db.ErrModuleNotAvailable
		}
		return &db.Error{Op: db.OpCreateIndex, Err: err}
	}
	return nil
}

// DropIndex removes an FT index by name.
func (s *Store) DropIndex(ctx context.Context, name string) error {
	cmd := s.b().Arbitrary("FT.DROPINDEX").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") || isRedisErr(err, "unknown: index name") {
			return db.ErrIndexNotFound
		}
		return &db.Error{Op: db.OpDropIndex, Err: err}
	}
	return nil
}

// IndexExists probes index existence via FT.INFO; "unknown index name" means absent.
func (s *Store) IndexExists(ctx context.Context, name string) (bool, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		if isRedisErr(err, "unknown index name") {
			return false, nil
		}
		return false, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return true, nil
}

// IndexInfo returns the subset of FT.INFO this library inspects: the
// server-reported kind of every field, used by the data migrator's datetime
// drift diagnostic (spec.md §4.9 "Schema-mismatch detection").
func (s *Store) IndexInfo(ctx context.Context, name string) (*db.IndexInfo, error) {
	cmd := s.b().Arbitrary("FT.INFO").Args(name).Build()
	raw, err := s.do(ctx, cmd).ToArray()
	if err != nil {
		if isRedisErr(err, "unknown index name") {
			return nil, db.ErrIndexNotFound
		}
		return nil, &db.Error{Op: db.OpIndexInfo, Err: err}
	}
	return parseIndexInfo(name, raw)
}

func isModuleMissing(err error) bool {
	return isRedisErr(err, "unknown command") || isRedisErr(err, "unknown module")
}

func buildCreateArgs(idx *db.IndexDefinition) ([]string, error) {
	if err := idx.Validate(); err != nil {
		return nil, err
	}

	args := []string{idx.Name}

	storage := idx.StorageType
	if storage == "" {
		storage = db.StorageHash
	}
	args = append(args, "ON", string(storage))

	if len(idx.Prefixes) > 0 {
		args = append(args, "PREFIX", strconv.Itoa(len(idx.Prefixes)))
		args = append(args, idx.Prefixes...)
	}

	args = append(args, "SCORE", "1.0", "SCHEMA")

	for i := range idx.Fields {
		fieldArgs, err := buildFieldArgs(&idx.Fields[i])
		if err != nil {
			return nil, err
		}
		args = append(args, fieldArgs...)
	}

	return args, nil
}

func buildFieldArgs(f *db.IndexField) ([]string, error) {
	if f.Path == "" {
		return nil, errors.New("field path is required")
	}

	args := []string{f.Path}
	if f.Alias != "" {
		args = append(args, "AS", f.Alias)
	}

	switch f.Type {
	case db.IndexFieldTag:
		args = append(args, "TAG")
		sep := f.TagSeparator
		if sep == "" {
			sep = "|"
		}
		args = append(args, "SEPARATOR", sep)
		if f.TagCaseSensitive {
			args = append(args, "CASESENSITIVE")
		}
		if f.Sortable {
			args = append(args, "SORTABLE")
		}

	case db.IndexFieldText:
		args = append(args, "TEXT")
		if f.NoStem {
			args = append(args, "NOSTEM")
		}
		if f.Sortable {
			args = append(args, "SORTABLE")
		}

	case db.IndexFieldNumeric:
		args = append(args, "NUMERIC")
		if f.Sortable {
			args = append(args, "SORTABLE")
		}

	case db.IndexFieldGeo:
		args = append(args, "GEO")
		if f.Sortable {
			args = append(args, "SORTABLE")
		}

	case db.IndexFieldVector:
		vectorArgs, err := buildVectorFieldArgs(f)
		if err != nil {
			return nil, err
		}
		args = append(args, vectorArgs...)

	default:
		return nil, errors.New("unknown field type")
	}

	return args, nil
}

func buildVectorFieldArgs(f *db.IndexField) ([]string, error) {
	if f.VectorDim <= 0 {
		return nil, errors.New("vector field requires positive dimension")
	}

	algo := f.VectorAlgo
	if algo == "" {
		algo = db.VectorFlat
	}
	dtype := f.VectorDType
	if dtype == "" {
		dtype = db.VectorFloat32
	}
	distance := f.VectorDistance
	if distance == "" {
		distance = db.DistanceCosine
	}

	attrs := []string{
		"TYPE", string(dtype),
		"DIM", strconv.Itoa(f.VectorDim),
		"DISTANCE_METRIC", string(distance),
	}

	switch algo {
	case db.VectorHNSW:
		if f.VectorM > 0 {
			attrs = append(attrs, "M", strconv.Itoa(f.VectorM))
		}
		if f.VectorEFConstruct > 0 {
			attrs = append(attrs, "EF_CONSTRUCTION", strconv.Itoa(f.VectorEFConstruct))
		}
		if f.VectorEFRuntime > 0 {
			attrs = append(attrs, "EF_RUNTIME", strconv.Itoa(f.VectorEFRuntime))
		}
		if f.VectorEpsilon > 0 {
			attrs = append(attrs, "EPSILON", strconv.FormatFloat(f.VectorEpsilon, 'g', -1, 64))
		}
	case db.VectorFlat:
		if f.VectorInitialCap > 0 {
			attrs = append(attrs, "INITIAL_CAP", strconv.Itoa(f.VectorInitialCap))
		}
		if f.VectorBlockSize > 0 {
			attrs = append(attrs, "BLOCK_SIZE", strconv.Itoa(f.VectorBlockSize))
		}
	}

	result := make([]string, 0, 3+len(attrs))
	result = append(result, "VECTOR", string(algo), strconv.Itoa(len(attrs)))
	result = append(result, attrs...)
	return result, nil
}

// parseIndexInfo extracts the ATTRIBUTES section of an FT.INFO reply: a flat
// array alternating keys and values, with an "attributes" key whose value is
// an array of per-field attribute arrays.
func parseIndexInfo(name string, raw []rueidis.RedisMessage) (*db.IndexInfo, error) {
	info := &db.IndexInfo{Name: name, Fields: map[string]db.IndexFieldType{}}

	for i := 0; i+1 < len(raw); i += 2 {
		key, err := raw[i].ToString()
		if err != nil || key != "attributes" {
			continue
		}
		attrs, err := raw[i+1].ToArray()
		if err != nil {
			return info, nil
		}
		for _, attr := range attrs {
			fieldArr, err := attr.ToArray()
			if err != nil {
				continue
			}
			alias, kind, ok := parseAttributeArray(fieldArr)
			if ok {
				info.Fields[alias] = kind
			}
		}
	}

	return info, nil
}

func parseAttributeArray(fieldArr []rueidis.RedisMessage) (alias string, kind db.IndexFieldType, ok bool) {
	m := make(map[string]string, len(fieldArr)/2)
	for j := 0; j+1 < len(fieldArr); j += 2 {
		k, err1 := fieldArr[j].ToString()
		v, err2 := fieldArr[j+1].ToString()
		if err1 == nil && err2 == nil {
			m[strings.ToLower(k)] = v
		}
	}
	alias = m["attribute"]
	if alias == "" {
		alias = m["identifier"]
	}
	if alias == "" {
		return "", 0, false
	}
	switch strings.ToUpper(m["type"]) {
	case "TAG":
		return alias, db.IndexFieldTag, true
	case "TEXT":
		return alias, db.IndexFieldText, true
	case "NUMERIC":
		return alias, db.IndexFieldNumeric, true
	case "GEO":
		return alias, db.IndexFieldGeo, true
	case "VECTOR":
		return alias, db.IndexFieldVector, true
	default:
		return "", 0, false
	}
}
