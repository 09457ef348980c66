// Package descriptor lets cmd/redisom-migrate operate on record types it
// never compiled against: a YAML file describes each record type's prefix,
// layout, and field list in the same shape internal/schema.Compile would
// have produced from the real Go struct, and schema.Fingerprint (which
// deliberately excludes GoName/GoPath, see internal/schema/fingerprint.go)
// hashes identically either way. This mirrors cmd/vecdex/main.go's
// config.Load-driven composition root, substituting a declarative record
// shape for a compiled Go type since this is a library's generic CLI, not
// an application with its own models built in.
package descriptor

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/redisom/redisom/internal/keycodec"
	"github.com/redisom/redisom/internal/migrate/datamig"
	"github.com/redisom/redisom/internal/migrate/schemamig"
	"github.com/redisom/redisom/internal/schema"
)

// VectorField mirrors schema.VectorOptions for YAML round-tripping.
type VectorField struct {
	Algorithm   string  `yaml:"algorithm"`
	DType       string  `yaml:"dtype"`
	Dimension   int     `yaml:"dimension"`
	Metric      string  `yaml:"metric"`
	InitialCap  int     `yaml:"initial_cap"`
	BlockSize   int     `yaml:"block_size"`
	M           int     `yaml:"m"`
	EFConstruct int     `yaml:"ef_construct"`
	EFRuntime   int     `yaml:"ef_runtime"`
	Epsilon     float64 `yaml:"epsilon"`
}

// Field is one record type's field descriptor, the YAML counterpart of
// schema.FieldSpec.
type Field struct {
	Name           string       `yaml:"name"`
	Path           string       `yaml:"path"`
	Kind           string       `yaml:"kind"` // tag|text|numeric|geo|vector
	Sortable       bool         `yaml:"sortable"`
	FullTextSearch bool         `yaml:"full_text_search"`
	CaseSensitive  bool         `yaml:"case_sensitive"`
	Separator      string       `yaml:"separator"`
	PrimaryKey     bool         `yaml:"primary_key"`
	IsList         bool         `yaml:"is_list"`
	NoStem         bool         `yaml:"no_stem"`
	IsDateTime     bool         `yaml:"is_datetime"`
	Vector         *VectorField `yaml:"vector,omitempty"`
}

// RecordType is one registered record type's descriptor: enough to rebuild
// both schemamig.RecordType (for index rebuilds) and datamig.RecordType
// (for key scanning) without a compiled Go struct.
type RecordType struct {
	Name              string  `yaml:"name"`
	Layout            string  `yaml:"layout"` // hash|document
	GlobalKeyPrefix   string  `yaml:"global_key_prefix"`
	ModelKeyPrefix    string  `yaml:"model_key_prefix"`
	PrimaryKeyPattern string  `yaml:"primary_key_pattern"`
	IndexName         string  `yaml:"index_name"`
	Fields            []Field `yaml:"fields"`
}

// File is the top-level shape of a --types-file document.
type File struct {
	RecordTypes []RecordType `yaml:"record_types"`
}

// Load reads and parses a types file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("descriptor: read %s: %w", path, err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("descriptor: parse %s: %w", path, err)
	}
	return &f, nil
}

// SchemaRegistry builds a schemamig.Registry from every described record
// type, for `migrate status|create|run|rollback`.
func (f *File) SchemaRegistry() (*schemamig.Registry, error) {
	reg := schemamig.NewRegistry()
	for _, rt := range f.RecordTypes {
		fields, layout, err := rt.compile()
		if err != nil {
			return nil, err
		}
		meta := schema.Meta{
			GlobalKeyPrefix:   rt.GlobalKeyPrefix,
			ModelKeyPrefix:    rt.ModelKeyPrefix,
			PrimaryKeyPattern: rt.PrimaryKeyPattern,
			IndexNameOverride: rt.IndexName,
		}.ApplyDefaults(rt.Name)

		reg.Register(schemamig.RecordType{
			Name:     rt.Name,
			Compiled: &schema.Compiled{Layout: layout, Fields: fields},
			Meta:     meta,
		})
	}
	return reg, nil
}

// DataRegistry builds a datamig.Registry from every described record type,
// for `migrate-data status|run|verify|rollback|progress|check-schema|stats`.
func (f *File) DataRegistry() (*datamig.Registry, error) {
	reg := datamig.NewRegistry()
	for _, rt := range f.RecordTypes {
		fields, layout, err := rt.compile()
		if err != nil {
			return nil, err
		}
		prefix := keycodec.Prefix{Global: rt.GlobalKeyPrefix, Model: rt.effectiveModelPrefix()}
		indexName := rt.IndexName
		if indexName == "" {
			indexName = keycodec.IndexName(prefix)
		}
		reg.Register(datamig.RecordType{
			Name:      rt.Name,
			Prefix:    prefix,
			Layout:    layout,
			Fields:    fields,
			IndexName: indexName,
		})
	}
	return reg, nil
}

func (rt RecordType) effectiveModelPrefix() string {
	if rt.ModelKeyPrefix != "" {
		return rt.ModelKeyPrefix
	}
	return rt.Name
}

func (rt RecordType) compile() ([]schema.FieldSpec, schema.Layout, error) {
	layout := schema.HashLayout
	if rt.Layout == "document" {
		layout = schema.DocumentLayout
	}

	fields := make([]schema.FieldSpec, 0, len(rt.Fields))
	for _, f := range rt.Fields {
		kind, err := parseKind(f.Kind)
		if err != nil {
			return nil, layout, fmt.Errorf("descriptor: record type %q field %q: %w", rt.Name, f.Name, err)
		}
		spec := schema.FieldSpec{
			GoName:         f.Name,
			GoPath:         []string{f.Name},
			Name:           f.Name,
			Path:           f.Path,
			Kind:           kind,
			Sortable:       f.Sortable,
			FullTextSearch: f.FullTextSearch,
			CaseSensitive:  f.CaseSensitive,
			Separator:      f.Separator,
			PrimaryKey:     f.PrimaryKey,
			IsList:         f.IsList,
			NoStem:         f.NoStem,
			IsDateTime:     f.IsDateTime,
		}
		if f.Vector != nil {
			spec.Vector = &schema.VectorOptions{
				Algorithm:   schema.VectorAlgorithm(f.Vector.Algorithm),
				DType:       schema.VectorDType(f.Vector.DType),
				Dimension:   f.Vector.Dimension,
				Metric:      schema.VectorMetric(f.Vector.Metric),
				InitialCap:  f.Vector.InitialCap,
				BlockSize:   f.Vector.BlockSize,
				M:           f.Vector.M,
				EFConstruct: f.Vector.EFConstruct,
				EFRuntime:   f.Vector.EFRuntime,
				Epsilon:     f.Vector.Epsilon,
			}
		}
		if spec.Separator == "" && kind == schema.Tag {
			spec.Separator = schema.DefaultSeparator
		}
		fields = append(fields, spec)
	}
	return fields, layout, nil
}

func parseKind(s string) (schema.Kind, error) {
	switch s {
	case "tag", "":
		return schema.Tag, nil
	case "text":
		return schema.Text, nil
	case "numeric":
		return schema.Numeric, nil
	case "geo":
		return schema.Geo, nil
	case "vector":
		return schema.Vector, nil
	default:
		return 0, fmt.Errorf("unknown field kind %q", s)
	}
}
