package runtime

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redisom/redisom/internal/codec"
	"github.com/redisom/redisom/internal/db"
	"github.com/redisom/redisom/internal/schema"
)

type point struct {
	Lat float64
	Lon float64
}

type flatThing struct {
	PK     string    `redisom:"pk,primary_key"`
	Name   string    `redisom:"name,index,sortable"`
	Age    int       `redisom:"age,index,sortable"`
	Active bool      `redisom:"active,index"`
	Tags   []string  `redisom:"tags,index"`
	Vec    []float32 `redisom:"vec,index,vector(algorithm=FLAT,dtype=float32,dim=2,metric=L2)"`
	Where  point     `redisom:"where,index"`
	When   time.Time `redisom:"when,index"`
}

func compileFlat(t *testing.T) *schema.Compiled {
	t.Helper()
	c, err := schema.Compile(reflect.TypeOf(flatThing{}), schema.HashLayout, false)
	require.NoError(t, err)
	return c
}

func TestHydrate_HashLayout(t *testing.T) {
	c := compileFlat(t)
	vecRaw := codec.EncodeVectorFloat32Hash([]float32{1.5, 2.5})
	entry := db.SearchEntry{
		Key: "flatThing:abc",
		Fields: map[string]string{
			"pk":     "abc",
			"name":   "alice",
			"age":    "30",
			"active": "1",
			"tags":   "a|b|c",
			"vec":    vecRaw,
			"where":  codec.EncodeGeoPoint(40.7, -74.0),
			"when":   codec.EncodeDateTimeString(time.Unix(1000, 0).UTC()),
		},
	}

	out, err := Hydrate[flatThing](entry, c)
	require.NoError(t, err)
	assert.Equal(t, "abc", out.PK)
	assert.Equal(t, "alice", out.Name)
	assert.Equal(t, 30, out.Age)
	assert.True(t, out.Active)
	assert.Equal(t, []string{"a", "b", "c"}, out.Tags)
	assert.Equal(t, []float32{1.5, 2.5}, out.Vec)
	assert.InDelta(t, 40.7, out.Where.Lat, 1e-9)
	assert.InDelta(t, -74.0, out.Where.Lon, 1e-9)
	assert.Equal(t, int64(1000), out.When.Unix())
}

type addr2 struct {
	City string `redisom:"city,index"`
}

type docThing struct {
	PK      string `redisom:"pk,primary_key"`
	Name    string `redisom:"name,index"`
	Address addr2  `redisom:"address"`
}

func TestHydrate_DocumentLayout(t *testing.T) {
	c, err := schema.Compile(reflect.TypeOf(docThing{}), schema.DocumentLayout, false)
	require.NoError(t, err)

	entry := db.SearchEntry{
		Key:  "docThing:xyz",
		JSON: []byte(`{"pk":"xyz","name":"bob","address":{"city":"nyc"}}`),
	}

	out, err := Hydrate[docThing](entry, c)
	require.NoError(t, err)
	assert.Equal(t, "xyz", out.PK)
	assert.Equal(t, "bob", out.Name)
	assert.Equal(t, "nyc", out.Address.City)
}

func TestHydrate_MissingFieldLeavesZeroValue(t *testing.T) {
	c := compileFlat(t)
	entry := db.SearchEntry{Fields: map[string]string{"pk": "abc"}}

	out, err := Hydrate[flatThing](entry, c)
	require.NoError(t, err)
	assert.Equal(t, "abc", out.PK)
	assert.Equal(t, "", out.Name)
	assert.Equal(t, 0, out.Age)
}
