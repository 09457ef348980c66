package schema

import (
	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/keycodec"
)

// Meta is the per-record-type contract of spec.md §6.5: prefixes, the
// wire handle, pk generation, index naming, embedded flag and encoding.
// A record type implements `Meta() Meta` on itself (or inherits one via
// Inherits) to participate in registration.
type Meta struct {
	GlobalKeyPrefix    string
	ModelKeyPrefix     string
	PrimaryKeyPattern  string
	Database           db.Store
	PrimaryKeyCreator  func() string
	IndexNameOverride  string
	Embedded           bool
	Encoding           string
}

// Inherits merges m over parent: fields left at their zero value in m
// inherit parent's value; fields explicitly set in m win (spec.md §6.5
// "Inheritance" paragraph).
func (m Meta) Inherits(parent Meta) Meta {
	merged := parent
	if m.GlobalKeyPrefix != "" {
		merged.GlobalKeyPrefix = m.GlobalKeyPrefix
	}
	if m.ModelKeyPrefix != "" {
		merged.ModelKeyPrefix = m.ModelKeyPrefix
	}
	if m.PrimaryKeyPattern != "" {
		merged.PrimaryKeyPattern = m.PrimaryKeyPattern
	}
	if m.Database != nil {
		merged.Database = m.Database
	}
	if m.PrimaryKeyCreator != nil {
		merged.PrimaryKeyCreator = m.PrimaryKeyCreator
	}
	if m.IndexNameOverride != "" {
		merged.IndexNameOverride = m.IndexNameOverride
	}
	if m.Encoding != "" {
		merged.Encoding = m.Encoding
	}
	merged.Embedded = m.Embedded
	return merged
}

// ApplyDefaults fills in every field spec.md §6.5 gives a default for.
func (m Meta) ApplyDefaults(typeName string) Meta {
	out := m
	if out.ModelKeyPrefix == "" {
		out.ModelKeyPrefix = typeName
	}
	if out.PrimaryKeyPattern == "" {
		out.PrimaryKeyPattern = "{pk}"
	}
	if out.PrimaryKeyCreator == nil {
		out.PrimaryKeyCreator = keycodec.NewPrimaryKey
	}
	if out.Encoding == "" {
		out.Encoding = "utf-8"
	}
	return out
}

// Prefix returns the keycodec.Prefix this meta resolves to.
func (m Meta) Prefix() keycodec.Prefix {
	return keycodec.Prefix{Global: m.GlobalKeyPrefix, Model: m.ModelKeyPrefix}
}

// IndexName returns the index name this meta resolves to: the override if
// set, else the default "{global}:{model}:index".
func (m Meta) IndexName() string {
	if m.IndexNameOverride != "" {
		return m.IndexNameOverride
	}
	return keycodec.IndexName(m.Prefix())
}

// Key returns the full record key for pk under this meta.
func (m Meta) Key(pk string) string {
	return keycodec.Key(m.Prefix(), pk, m.PrimaryKeyPattern)
}

// AllocatePK invokes the configured primary-key generator.
func (m Meta) AllocatePK() string {
	if m.PrimaryKeyCreator != nil {
		return m.PrimaryKeyCreator()
	}
	return keycodec.NewPrimaryKey()
}
