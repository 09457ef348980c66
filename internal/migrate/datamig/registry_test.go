package datamig

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redisom/redisom/internal/keycodec"
	"github.com/redisom/redisom/internal/schema"
)

func TestRegistry_TargetsPreservesRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(RecordType{Name: "zebra", Prefix: keycodec.Prefix{Global: "rom", Model: "zebra"}})
	r.Register(RecordType{Name: "apple", Prefix: keycodec.Prefix{Global: "rom", Model: "apple"}})

	targets := r.Targets()
	require.Len(t, targets, 2)
	assert.Equal(t, "zebra", targets[0].Name)
	assert.Equal(t, "apple", targets[1].Name)
}

func TestRegistry_RegisterTwiceReplacesWithoutDuplicatingOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(RecordType{Name: "widget", Layout: schema.HashLayout})
	r.Register(RecordType{Name: "widget", Layout: schema.DocumentLayout})

	targets := r.Targets()
	require.Len(t, targets, 1)
	assert.Equal(t, schema.DocumentLayout, targets[0].Layout)
}

func TestRegistry_GetMissingReturnsFalse(t *testing.T) {
	r := NewRegistry()
	_, ok := r.Get("nope")
	assert.False(t, ok)
}
