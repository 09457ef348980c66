package schema

// Kind is one of the five index-field kinds spec.md §3.3 lowers every
// indexable field to.
type Kind int

const (
	Tag Kind = iota
	Text
	Numeric
	Geo
	Vector
)

func (k Kind) String() string {
	switch k {
	case Tag:
		return "TAG"
	case Text:
		return "TEXT"
	case Numeric:
		return "NUMERIC"
	case Geo:
		return "GEO"
	case Vector:
		return "VECTOR"
	default:
		return "UNKNOWN"
	}
}

// VectorAlgorithm is the RediSearch vector index algorithm.
type VectorAlgorithm string

const (
	VectorFlat VectorAlgorithm = "FLAT"
	VectorHNSW VectorAlgorithm = "HNSW"
)

// VectorDType is the element type a packed vector field stores.
type VectorDType string

const (
	VectorFloat32 VectorDType = "FLOAT32"
	VectorFloat64 VectorDType = "FLOAT64"
)

// VectorMetric is the distance metric a vector field is compared under.
type VectorMetric string

const (
	MetricCosine VectorMetric = "COSINE"
	MetricL2     VectorMetric = "L2"
	MetricIP     VectorMetric = "IP"
)

// VectorOptions carries the `vector_options` tag modifier's parameters
// (spec.md §3.1).
type VectorOptions struct {
	Algorithm VectorAlgorithm
	DType     VectorDType
	Dimension int
	Metric    VectorMetric

	// FLAT-specific.
	InitialCap int
	BlockSize  int

	// HNSW-specific.
	M             int
	EFConstruct   int
	EFRuntime     int
	Epsilon       float64
}

// FieldSpec is one compiled index-field specification: the output unit of
// C3, consumed by C4 (index build) and C6 (query compile).
type FieldSpec struct {
	// GoName is the originating struct field name, for error messages.
	GoName string
	// GoPath is the chain of Go struct field names from the record's root
	// type down to this field, e.g. ["Address", "City"] for an unfolded
	// embedded field. Top-level fields have a single-element path. The
	// runtime (C7) walks this chain with reflection to hydrate a query
	// result back into T without relying on encoding/json struct tags,
	// which this library doesn't use for field naming.
	GoPath []string
	// Name is the query-time field name: the record field name for a
	// top-level field, or the flattened dotted name
	// (parent_field_child_field) for an unfolded embedded field.
	Name string
	// Path is the storage-layout field locator: the Hash field name for
	// a flat record, or the JSON path expression ($.a.b) for a document
	// record.
	Path string

	Kind Kind

	Sortable         bool
	FullTextSearch   bool
	CaseSensitive    bool
	Separator        string
	PrimaryKey       bool
	IsList           bool
	NoStem           bool
	// IsDateTime marks a Numeric field that originated from a time.Time
	// struct field, so the data migrator can single out datetime fields
	// for its built-in ISO-to-numeric transition without re-deriving the
	// distinction from the Go type (spec.md §4.9).
	IsDateTime bool

	Vector *VectorOptions
}

// DefaultSeparator is used when a TAG field's tag doesn't set one
// explicitly (spec.md §3.1).
const DefaultSeparator = "|"
