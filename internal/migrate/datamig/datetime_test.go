package datamig

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redisom/redisom/internal/schema"
)

func datetimeRecordType(layout schema.Layout) RecordType {
	return RecordType{
		Name:   "widget",
		Prefix: widgetRecordType().Prefix,
		Layout: layout,
		Fields: []schema.FieldSpec{
			{Name: "created", Path: pathFor(layout, "created"), Kind: schema.Numeric, IsDateTime: true},
			{Name: "label", Path: pathFor(layout, "label"), Kind: schema.Tag},
		},
	}
}

func pathFor(layout schema.Layout, name string) string {
	if layout == schema.HashLayout {
		return name
	}
	return "$." + name
}

func TestConvertDatetimeValue_LeavesNumericUntouched(t *testing.T) {
	out, changed, err := convertDatetimeValue("1577836800", Skip)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "1577836800", out)
}

func TestConvertDatetimeValue_ConvertsISOToNumeric(t *testing.T) {
	out, changed, err := convertDatetimeValue("2020-01-01T00:00:00Z", Skip)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEmpty(t, out)
}

func TestConvertDatetimeValue_FailFastErrorsOnGarbage(t *testing.T) {
	_, _, err := convertDatetimeValue("not-a-date", FailFast)
	require.Error(t, err)
}

func TestConvertDatetimeValue_SkipLeavesGarbageUntouched(t *testing.T) {
	out, changed, err := convertDatetimeValue("not-a-date", Skip)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, "not-a-date", out)
}

func TestConvertDatetimeValue_UseDefaultSubstitutesEpoch(t *testing.T) {
	out, changed, err := convertDatetimeValue("not-a-date", UseDefault)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NotEmpty(t, out)
}

func TestDatetimeMigration_UpConvertsHashField(t *testing.T) {
	fs := newFakeStore()
	fs.hashes["rom:widget:1"] = map[string]string{"created": "2020-01-01T00:00:00Z", "label": "a"}
	fs.scanOrder = []string{"rom:widget:1"}
	rt := datetimeRecordType(schema.HashLayout)
	tx := newTestTransform(fs, rt)
	tx.targets = []RecordType{rt}

	mig := NewDatetimeMigration()
	require.NoError(t, mig.Up(context.Background(), tx))

	assert.NotEqual(t, "2020-01-01T00:00:00Z", fs.hashes["rom:widget:1"]["created"])
	assert.Equal(t, "a", fs.hashes["rom:widget:1"]["label"])
}

func TestDatetimeMigration_UpConvertsJSONField(t *testing.T) {
	fs := newFakeStore()
	doc, _ := json.Marshal(map[string]any{"created": "2020-01-01T00:00:00Z", "label": "a"})
	fs.jsons["rom:widget:1"] = doc
	fs.scanOrder = []string{"rom:widget:1"}
	rt := datetimeRecordType(schema.DocumentLayout)
	tx := newTestTransform(fs, rt)
	tx.targets = []RecordType{rt}

	mig := NewDatetimeMigration()
	require.NoError(t, mig.Up(context.Background(), tx))

	var after map[string]any
	require.NoError(t, json.Unmarshal(fs.jsons["rom:widget:1"], &after))
	_, isString := after["created"].(string)
	assert.False(t, isString, "created must now be numeric")
	assert.Equal(t, "a", after["label"])
}

func TestDatetimeMigration_DownReversesHashField(t *testing.T) {
	fs := newFakeStore()
	fs.hashes["rom:widget:1"] = map[string]string{"created": "1577836800", "label": "a"}
	fs.scanOrder = []string{"rom:widget:1"}
	rt := datetimeRecordType(schema.HashLayout)
	tx := newTestTransform(fs, rt)
	tx.targets = []RecordType{rt}

	mig := NewDatetimeMigration()
	require.NoError(t, mig.Down(context.Background(), tx))

	assert.Contains(t, fs.hashes["rom:widget:1"]["created"], "2020-01-01")
}

func TestDatetimeMigration_SkipsRecordTypesWithNoDatetimeFields(t *testing.T) {
	fs := newFakeStore()
	fs.scanOrder = nil
	rt := RecordType{Name: "plain", Layout: schema.HashLayout, Fields: []schema.FieldSpec{{Name: "label", Kind: schema.Tag}}}
	tx := newTestTransform(fs, rt)
	tx.targets = []RecordType{rt}

	mig := NewDatetimeMigration()
	require.NoError(t, mig.Up(context.Background(), tx))
	assert.Equal(t, 0, tx.Stats().ProcessedKeys)
}
