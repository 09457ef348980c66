package schema

// Layout is the storage layout a record compiles against: Hash (flat) or
// JSON (document), per spec.md §3.2.
type Layout int

const (
	HashLayout Layout = iota
	DocumentLayout
)

func (l Layout) String() string {
	if l == DocumentLayout {
		return "JSON"
	}
	return "HASH"
}
