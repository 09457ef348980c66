package redisom

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/redisom/redisom/internal/migrate/datamig"
	"github.com/redisom/redisom/internal/query"
	"github.com/redisom/redisom/internal/schema"
)

// These six scenarios are the worked examples a record mapper's own
// documentation would lead with: save/fetch/delete a flat record (S1),
// boolean query algebra (S2), a sorted datetime range (S3), a query
// reaching into an embedded document field (S4), field projection
// (S5), and the built-in datetime migration running end-to-end over
// previously-written legacy data (S6). Each drives *Collection[T]
// against fakeServerStore, never a real server.

type scenarioCustomer struct {
	PK       string    `redisom:"pk,primary_key"`
	Name     string    `redisom:"name,index"`
	Age      int       `redisom:"age,index,sortable"`
	Active   bool      `redisom:"active,index"`
	Bio      string    `redisom:"bio,index,full_text_search"`
	JoinedAt time.Time `redisom:"joined_at,index,sortable"`
}

type scenarioAddress struct {
	City string `redisom:"city,index"`
}

type scenarioOrder struct {
	PK      string          `redisom:"pk,primary_key"`
	Total   float64         `redisom:"total,index,sortable"`
	Address scenarioAddress `redisom:"address"`
}

func (scenarioOrder) Layout() Layout { return DocumentLayout }

func newTestClient(s *fakeServerStore) *Client {
	return &Client{store: s, logger: zap.NewNop()}
}

// S1: insert, fetch, and delete a flat record.
func TestScenario_S1_SaveGetDelete(t *testing.T) {
	ctx := context.Background()
	store := newFakeServerStore()
	client := newTestClient(store)

	col, err := Register[scenarioCustomer](ctx, client, NewMeta(WithGlobalKeyPrefix("s1")))
	require.NoError(t, err)

	c := &scenarioCustomer{Name: "Ada Lovelace", Age: 36, Active: true}
	pk, err := col.Save(ctx, c)
	require.NoError(t, err)
	require.NotEmpty(t, pk)

	got, err := col.Get(ctx, pk)
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, 36, got.Age)
	assert.True(t, got.Active)

	existed, err := col.Delete(ctx, pk)
	require.NoError(t, err)
	assert.True(t, existed)

	_, err = col.Get(ctx, pk)
	assert.ErrorIs(t, err, ErrNotFound)
}

// S2: boolean query algebra -- AND, OR, and NOT combine correctly.
func TestScenario_S2_BooleanAlgebra(t *testing.T) {
	ctx := context.Background()
	store := newFakeServerStore()
	client := newTestClient(store)

	col, err := Register[scenarioCustomer](ctx, client, NewMeta(WithGlobalKeyPrefix("s2")))
	require.NoError(t, err)

	seed := []*scenarioCustomer{
		{Name: "Ada", Age: 36, Active: true},
		{Name: "Grace", Age: 45, Active: true},
		{Name: "Alan", Age: 41, Active: false},
	}
	for _, c := range seed {
		_, err := col.Save(ctx, c)
		require.NoError(t, err)
	}

	andResults, err := col.Find(query.AndExpr(
		query.EqExpr("active", true),
		query.GtExpr("age", 40),
	)).All(ctx)
	require.NoError(t, err)
	require.Len(t, andResults, 1)
	assert.Equal(t, "Grace", andResults[0].Name)

	orResults, err := col.Find(query.OrExpr(
		query.EqExpr("name", "Ada"),
		query.EqExpr("name", "Alan"),
	)).All(ctx)
	require.NoError(t, err)
	assert.Len(t, orResults, 2)

	notResults, err := col.Find(query.NotExpr(query.EqExpr("active", true))).All(ctx)
	require.NoError(t, err)
	require.Len(t, notResults, 1)
	assert.Equal(t, "Alan", notResults[0].Name)
}

// S3: a NUMERIC range filter plus a sortable datetime field.
func TestScenario_S3_DatetimeRangeAndSort(t *testing.T) {
	ctx := context.Background()
	store := newFakeServerStore()
	client := newTestClient(store)

	col, err := Register[scenarioCustomer](ctx, client, NewMeta(WithGlobalKeyPrefix("s3")))
	require.NoError(t, err)

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []*scenarioCustomer{
		{Name: "early", JoinedAt: base},
		{Name: "middle", JoinedAt: base.Add(30 * 24 * time.Hour)},
		{Name: "late", JoinedAt: base.Add(120 * 24 * time.Hour)},
	}
	for _, c := range seed {
		_, err := col.Save(ctx, c)
		require.NoError(t, err)
	}

	results, err := col.Find(query.GtExpr("joined_at", float64(base.Add(10*24*time.Hour).Unix()))).
		SortBy("joined_at").All(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "middle", results[0].Name)
	assert.Equal(t, "late", results[1].Name)
}

// S4: a query against an embedded document field (document layout,
// flattened "address_city" query name).
func TestScenario_S4_EmbeddedFieldQuery(t *testing.T) {
	ctx := context.Background()
	store := newFakeServerStore()
	client := newTestClient(store)

	col, err := Register[scenarioOrder](ctx, client, NewMeta(WithGlobalKeyPrefix("s4")))
	require.NoError(t, err)

	seed := []*scenarioOrder{
		{Total: 10.5, Address: scenarioAddress{City: "Boston"}},
		{Total: 22.0, Address: scenarioAddress{City: "Austin"}},
	}
	for _, o := range seed {
		_, err := col.Save(ctx, o)
		require.NoError(t, err)
	}

	results, err := col.Find(query.EqExpr("address_city", "Austin")).All(ctx)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, 22.0, results[0].Total)
	assert.Equal(t, "Austin", results[0].Address.City)
}

// S5: projection via Values restricts the hydrated fields without
// affecting the underlying record count.
func TestScenario_S5_Projection(t *testing.T) {
	ctx := context.Background()
	store := newFakeServerStore()
	client := newTestClient(store)

	col, err := Register[scenarioCustomer](ctx, client, NewMeta(WithGlobalKeyPrefix("s5")))
	require.NoError(t, err)

	_, err = col.Save(ctx, &scenarioCustomer{Name: "Ada", Age: 36, Active: true})
	require.NoError(t, err)
	_, err = col.Save(ctx, &scenarioCustomer{Name: "Grace", Age: 45, Active: true})
	require.NoError(t, err)

	results, err := col.Find(nil).Values("name").All(ctx)
	require.NoError(t, err)
	require.Len(t, results, 2)
	for _, r := range results {
		assert.NotEmpty(t, r.Name)
		assert.Zero(t, r.Age)
	}
}

// S6: the built-in datetime migration converts legacy ISO-8601 strings
// to the numeric seconds-since-epoch form, driven against the same fake
// store used by S1-S5.
func TestScenario_S6_DatetimeMigration(t *testing.T) {
	ctx := context.Background()
	store := newFakeServerStore()
	client := newTestClient(store)

	col, err := Register[scenarioCustomer](ctx, client, NewMeta(WithGlobalKeyPrefix("s6")))
	require.NoError(t, err)

	pk, err := col.Save(ctx, &scenarioCustomer{Name: "Legacy", Age: 50})
	require.NoError(t, err)

	key := col.meta.Key(pk)
	legacyFields, err := store.HGetAll(ctx, key)
	require.NoError(t, err)
	legacyFields["joined_at"] = "2020-06-15T00:00:00Z"
	require.NoError(t, store.HSet(ctx, key, legacyFields))

	registry := datamig.NewRegistry()
	registry.Register(datamig.RecordType{
		Name:      "scenarioCustomer",
		Prefix:    col.meta.Prefix(),
		Layout:    schema.HashLayout,
		Fields:    col.compiled.Fields,
		IndexName: col.meta.IndexName(),
	})

	mgr := datamig.New(store, registry, "s6")
	mgr.Register(datamig.NewDatetimeMigration())

	stats, err := mgr.Run(ctx, datamig.RunOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, stats.ChangedKeys)

	migrated, err := store.HGetAll(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "1592179200", migrated["joined_at"])

	got, err := col.Get(ctx, pk)
	require.NoError(t, err)
	assert.Equal(t, 2020, got.JoinedAt.Year())
}
