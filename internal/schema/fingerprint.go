package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
)

// Fingerprint computes a stable hash over the canonicalized, sorted list
// of (field name, kind, kind-specific options) tuples plus the storage
// layout and key prefix, per spec.md §3.6. Field declaration order never
// affects the result, so reordering struct fields doesn't trigger a
// spurious migration.
func Fingerprint(c *Compiled, prefix string) string {
	tuples := make([]string, 0, len(c.Fields))
	for _, f := range c.Fields {
		if f.PrimaryKey {
			continue
		}
		tuples = append(tuples, canonicalizeField(f))
	}
	sort.Strings(tuples)

	h := sha256.New()
	fmt.Fprintf(h, "layout=%s;prefix=%s;", c.Layout, prefix)
	for _, t := range tuples {
		h.Write([]byte(t))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// canonicalizeField deliberately omits GoName/GoPath: they identify where a
// value lives in the Go struct, not the server-side index shape, so renaming
// a Go field without changing its tag must not trigger a migration.
func canonicalizeField(f FieldSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "name=%s;path=%s;kind=%s;sortable=%t;fts=%t;case=%t;sep=%s;list=%t;nostem=%t",
		f.Name, f.Path, f.Kind, f.Sortable, f.FullTextSearch, f.CaseSensitive, f.Separator, f.IsList, f.NoStem)
	if f.Vector != nil {
		fmt.Fprintf(&b, ";algo=%s;dtype=%s;dim=%d;metric=%s;icap=%d;bsize=%d;m=%d;efc=%d;efr=%d;eps=%g",
			f.Vector.Algorithm, f.Vector.DType, f.Vector.Dimension, f.Vector.Metric,
			f.Vector.InitialCap, f.Vector.BlockSize, f.Vector.M, f.Vector.EFConstruct,
			f.Vector.EFRuntime, f.Vector.Epsilon)
	}
	return b.String()
}
