package db

import (
	"errors"
	"strconv"
)

// StorageType defines the document storage backend for FT indexes (HASH or JSON).
type StorageType string

const (
	// StorageHash stores documents as Redis hashes.
	StorageHash StorageType = "HASH"
	// StorageJSON stores documents as JSON.
	StorageJSON StorageType = "JSON"
)

// DistanceMetric used by FT.SEARCH vector similarity queries.
type DistanceMetric string

const (
	DistanceL2     DistanceMetric = "L2"
	DistanceIP     DistanceMetric = "IP"
	DistanceCosine DistanceMetric = "COSINE"
)

// VectorAlgorithm selects the indexing algorithm for vector fields in FT.CREATE.
type VectorAlgorithm string

const (
	VectorHNSW VectorAlgorithm = "HNSW"
	VectorFlat VectorAlgorithm = "FLAT"
)

// VectorDataType is the element type packed into a VECTOR field's blob.
type VectorDataType string

const (
	VectorFloat32 VectorDataType = "FLOAT32"
	VectorFloat64 VectorDataType = "FLOAT64"
)

// IndexFieldType enumerates the field kinds spec.md §3.3 compiles to.
type IndexFieldType int

const (
	IndexFieldTag IndexFieldType = iota
	IndexFieldText
	IndexFieldNumeric
	IndexFieldGeo
	IndexFieldVector
)

// String renders the RediSearch attribute type name, used in FT.INFO
// diagnostics (the data migrator's schema-mismatch report).
func (t IndexFieldType) String() string {
	switch t {
	case IndexFieldTag:
		return "TAG"
	case IndexFieldText:
		return "TEXT"
	case IndexFieldNumeric:
		return "NUMERIC"
	case IndexFieldGeo:
		return "GEO"
	case IndexFieldVector:
		return "VECTOR"
	default:
		return "UNKNOWN"
	}
}

// IndexField describes a single field in an FT index schema.
type IndexField struct {
	// Path is the source path: the hash field name, or a JSON path
	// ($.a.b, $.a[*].b) for document-layout indexes.
	Path string
	// Alias is the query-time name (AS <alias>); for document layouts
	// this is the flattened dotted name (spec.md §4.3 rule 3).
	Alias    string
	Type     IndexFieldType
	Sortable bool

	// TEXT options
	NoStem bool

	// TAG options
	TagSeparator     string
	TagCaseSensitive bool

	// VECTOR options
	VectorAlgo        VectorAlgorithm
	VectorDType       VectorDataType
	VectorDim         int
	VectorDistance    DistanceMetric
	VectorInitialCap  int // FLAT INITIAL_CAP
	VectorBlockSize   int // FLAT BLOCK_SIZE
	VectorM           int // HNSW M (default 16)
	VectorEFConstruct int // HNSW EF_CONSTRUCTION (default 200)
	VectorEFRuntime   int // HNSW EF_RUNTIME
	VectorEpsilon     float64
}

// IndexDefinition is a complete FT index definition used by FT.CREATE.
type IndexDefinition struct {
	Name        string
	StorageType StorageType
	Prefixes    []string
	Fields      []IndexField
}

// IndexInfo is the subset of FT.INFO this library inspects: per-field
// server-reported kind, used by the data migrator's drift diagnostic (C9).
type IndexInfo struct {
	Name   string
	Fields map[string]IndexFieldType // alias -> kind
}

// Validate checks the index definition is well-formed.
func (idx *IndexDefinition) Validate() error {
	if idx.Name == "" {
		return errors.New("index name is required")
	}
	if len(idx.Fields) == 0 {
		return errors.New("at least one field is required")
	}

	seen := make(map[string]bool, len(idx.Fields))
	for i := range idx.Fields {
		f := &idx.Fields[i]
		if f.Path == "" {
			return errors.New("field path is required at index " + strconv.Itoa(i))
		}
		key := f.Path
		if f.Alias != "" {
			key = f.Alias
		}
		if seen[key] {
			return errors.New("duplicate field name: " + key)
		}
		seen[key] = true

		if f.Type == IndexFieldVector && f.VectorDim <= 0 {
			return errors.New("vector field requires positive dimension")
		}
	}

	return nil
}
