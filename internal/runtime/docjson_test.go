package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUnwrapRootArray_UnwrapsSingleElement(t *testing.T) {
	out, err := unwrapRootArray([]byte(`[{"a":1}]`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))
}

func TestUnwrapRootArray_EmptyArrayIsNotFound(t *testing.T) {
	_, err := unwrapRootArray([]byte(`[]`))
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUnwrapRootArray_BareObjectPassesThrough(t *testing.T) {
	out, err := unwrapRootArray([]byte(`{"a":1}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1}`, string(out))
}

func TestSetJSONPath_CreatesIntermediateObjects(t *testing.T) {
	doc := map[string]any{}
	setJSONPath(doc, "$.address.city", "nyc")
	addr, ok := doc["address"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "nyc", addr["city"])
}

func TestSetJSONPath_TopLevelField(t *testing.T) {
	doc := map[string]any{}
	setJSONPath(doc, "$.name", "alice")
	assert.Equal(t, "alice", doc["name"])
}
