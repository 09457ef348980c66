// Package keycodec builds the Redis key names and patterns every record
// type needs: the per-record key, the index name, the schema fingerprint
// key, and the scan patterns the data migrator walks.
package keycodec

import "strings"

// Prefix bundles the two prefix components a record's meta contributes.
// Both are joined with ":" and may be empty.
type Prefix struct {
	Global string
	Model  string
}

func (p Prefix) String() string {
	switch {
	case p.Global == "" && p.Model == "":
		return ""
	case p.Global == "":
		return p.Model
	case p.Model == "":
		return p.Global
	default:
		return p.Global + ":" + p.Model
	}
}

// Key returns the record key "{global}:{model}:{pk}" (spec.md §6.3). If
// pattern is non-empty it is used in place of the bare "{pk}" template,
// letting a record's primary_key_pattern meta field wrap the raw pk (e.g.
// "user:{pk}") before prefixing.
func Key(p Prefix, pk, pattern string) string {
	id := pk
	if pattern != "" {
		id = strings.ReplaceAll(pattern, "{pk}", pk)
	}
	return join(p, id)
}

// IndexName returns the default index name "{global}:{model}:index".
func IndexName(p Prefix) string {
	return join(p, "index")
}

// SchemaHashKey returns the key the compiled schema's fingerprint is
// stored under: "{global}:{model}:hash".
func SchemaHashKey(p Prefix) string {
	return join(p, "hash")
}

// AllKeysPattern returns a SCAN/KEYS glob matching every record key under
// this prefix: "{global}:{model}:*".
func AllKeysPattern(p Prefix) string {
	return join(p, "*")
}

// MakePrimaryKeyPattern returns the glob a single pk, or pk prefix, expands
// to under this record's prefix. An empty pkGlob defaults to "*".
func MakePrimaryKeyPattern(p Prefix, pkGlob string) string {
	if pkGlob == "" {
		pkGlob = "*"
	}
	return join(p, pkGlob)
}

// ExtractPK strips the "{global}:{model}:" prefix from a full key, the
// inverse of Key for the common case where primary_key_pattern is "{pk}".
func ExtractPK(p Prefix, key string) string {
	prefix := p.String()
	if prefix == "" {
		return key
	}
	return strings.TrimPrefix(key, prefix+":")
}

// MigrationsAppliedSetKey returns the single global key a schema migrator
// tracks applied migration ids under via SADD/SMEMBERS/SREM: a set, not one
// key per record type (spec.md §6.3).
func MigrationsAppliedSetKey(reservedPrefix string) string {
	return reservedPrefix + ":migrations:applied"
}

// MigrationsProgressKey returns the key a data migration's batch checkpoint
// is saved under while it runs.
func MigrationsProgressKey(reservedPrefix, migrationID string) string {
	return reservedPrefix + ":migrations:progress:" + migrationID
}

func join(p Prefix, suffix string) string {
	prefix := p.String()
	if prefix == "" {
		return suffix
	}
	return prefix + ":" + suffix
}
