package schemamig

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/redisom/redisom/internal/schema"
)

// SchemaMigration is the on-disk unit `create`/`run`/`rollback` operate on
// (spec.md §4.8): id, the record type it targets, the fingerprint either
// side of the change, and both field-spec directions so a rollback can
// rebuild the prior index without recompiling the Go type.
type SchemaMigration struct {
	ID              string             `json:"id"`
	Slug            string             `json:"slug"`
	RecordType      string             `json:"record_type"`
	IndexName       string             `json:"index_name"`
	Prefix          string             `json:"prefix"`
	Layout          schema.Layout      `json:"layout"`
	PrevFingerprint string             `json:"prev_fingerprint,omitempty"`
	NewFingerprint  string             `json:"new_fingerprint"`
	PrevFields      []schema.FieldSpec `json:"prev_fields,omitempty"`
	NewFields       []schema.FieldSpec `json:"new_fields"`
}

// Filename returns the "<id>_<slug>.json" basename spec.md §6.4 specifies.
func (m *SchemaMigration) Filename() string {
	return m.ID + "_" + m.Slug + ".json"
}

// idFormat is the monotonically orderable "yyyymmdd_hhmmss" id spec.md
// §6.4 shows in its filesystem layout example.
const idFormat = "20060102_150405"

func newMigrationID(t time.Time) string {
	return t.UTC().Format(idFormat)
}

var slugSanitizer = regexp.MustCompile(`[^a-z0-9_]+`)

func sanitizeSlug(slug string) string {
	s := slugSanitizer.ReplaceAllString(strings.ToLower(slug), "_")
	s = strings.Trim(s, "_")
	if s == "" {
		s = "migration"
	}
	return s
}

func schemaMigrationsDir(root string) string {
	return filepath.Join(root, "schema-migrations")
}

func writeMigrationFile(root string, m *SchemaMigration) (string, error) {
	dir := schemaMigrationsDir(root)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("schemamig: create %s: %w", dir, err)
	}
	path := filepath.Join(dir, m.Filename())
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return "", fmt.Errorf("schemamig: encode %s: %w", m.Filename(), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("schemamig: write %s: %w", path, err)
	}
	return path, nil
}

func readMigrationFile(path string) (*SchemaMigration, error) {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("schemamig: read %s: %w", path, err)
	}
	m := &SchemaMigration{}
	if err := json.Unmarshal(data, m); err != nil {
		return nil, newError(Corrupt, "", "", fmt.Sprintf("%s: %v", path, err))
	}
	return m, nil
}

// listMigrationFiles reads every schema migration file under root, sorted
// by id ascending (spec.md §4.8 "run ... in id order").
func listMigrationFiles(root string) ([]*SchemaMigration, error) {
	dir := schemaMigrationsDir(root)
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("schemamig: list %s: %w", dir, err)
	}

	out := make([]*SchemaMigration, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		m, err := readMigrationFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// filesForRecordType filters a file list down to one record type's series,
// still in id order.
func filesForRecordType(files []*SchemaMigration, recordType string) []*SchemaMigration {
	out := make([]*SchemaMigration, 0, len(files))
	for _, m := range files {
		if m.RecordType == recordType {
			out = append(out, m)
		}
	}
	return out
}
