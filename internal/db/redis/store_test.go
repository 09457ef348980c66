package redis

import (
	"context"
	"errors"
	"testing"

	"github.com/redis/rueidis"
	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/redisom/redisom/internal/db"
)

func TestPing_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.Result(mock.RedisString("PONG")))

	s := NewStoreFromClient(c)
	if err := s.Ping(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestPing_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("PING")).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreFromClient(c)
	if err := s.Ping(context.Background()); err == nil {
		t.Fatal("expected error")
	}
}

func TestHSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "HSET" && cmd[1] == "mykey"
		})).
		Return(mock.Result(mock.RedisInt64(1)))

	s := NewStoreFromClient(c)
	if err := s.HSet(context.Background(), "mykey", map[string]string{"f1": "v1"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSet_Error(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HSET" })).
		Return(mock.ErrorResult(context.DeadlineExceeded))

	s := NewStoreFromClient(c)
	err := s.HSet(context.Background(), "mykey", map[string]string{"f": "v"})
	var dbErr *db.Error
	if !errors.As(err, &dbErr) {
		t.Errorf("expected db.Error, got %T", err)
	}
}

func TestHSetMulti_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisInt64(1)),
			mock.Result(mock.RedisInt64(1)),
		})

	s := NewStoreFromClient(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "k1", Fields: map[string]string{"f1": "v1"}},
		{Key: "k2", Fields: map[string]string{"f2": "v2"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSetMulti_SkipsEmptyFields(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{mock.Result(mock.RedisInt64(1))})

	s := NewStoreFromClient(c)
	err := s.HSetMulti(context.Background(), []db.HashSetItem{
		{Key: "empty", Fields: nil},
		{Key: "k1", Fields: map[string]string{"f1": "v1"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHSetMulti_Empty(t *testing.T) {
	s := NewStoreFromClient(nil)
	if err := s.HSetMulti(context.Background(), nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHGetAll_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("HGETALL", "mykey")).
		Return(mock.Result(mock.RedisMap(map[string]rueidis.RedisMessage{
			"f1": mock.RedisString("v1"),
		})))

	s := NewStoreFromClient(c)
	m, err := s.HGetAll(context.Background(), "mykey")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if m["f1"] != "v1" {
		t.Errorf("unexpected map: %v", m)
	}
}

func TestHExpire_CapabilityMissing(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "HEXPIRE" })).
		Return(mock.Result(mock.RedisError("ERR unknown command 'HEXPIRE'")))

	s := NewStoreFromClient(c)
	err := s.HExpire(context.Background(), "mykey", 0, "f1")
	if !errors.Is(err, db.ErrCapabilityMissing) {
		t.Errorf("expected ErrCapabilityMissing, got %v", err)
	}
}

func TestScan_SinglePage(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "SCAN" })).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(42),
			mock.RedisArray(mock.RedisString("key1"), mock.RedisString("key2")),
		)))

	s := NewStoreFromClient(c)
	page, err := s.Scan(context.Background(), "prefix:*", 0, 100)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if page.Cursor != 42 {
		t.Errorf("expected cursor 42, got %d", page.Cursor)
	}
	if len(page.Keys) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(page.Keys))
	}
}

func TestJSONSet_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool {
			return cmd[0] == "JSON.SET" && cmd[1] == "mykey" && cmd[2] == "$"
		})).
		Return(mock.Result(mock.RedisString("OK")))

	s := NewStoreFromClient(c)
	if err := s.JSONSet(context.Background(), "mykey", "$", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestJSONGet_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "JSON.GET" })).
		Return(mock.Result(mock.RedisNil()))

	s := NewStoreFromClient(c)
	_, err := s.JSONGet(context.Background(), "mykey", "$")
	if !errors.Is(err, db.ErrKeyNotFound) {
		t.Errorf("expected ErrKeyNotFound, got %v", err)
	}
}

func TestJSONGetMulti_ToleratesMissingKeys(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		DoMulti(gomock.Any(), gomock.Any(), gomock.Any()).
		Return([]rueidis.RedisResult{
			mock.Result(mock.RedisString(`{"a":1}`)),
			mock.Result(mock.RedisNil()),
		})

	s := NewStoreFromClient(c)
	out, err := s.JSONGetMulti(context.Background(), []string{"k1", "k2"}, "$")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(out[0]) != `{"a":1}` {
		t.Errorf("unexpected k1: %s", out[0])
	}
	if out[1] != nil {
		t.Errorf("expected nil for missing key, got %s", out[1])
	}
}

func TestCreateIndex_AlreadyExists(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.CREATE" })).
		Return(mock.Result(mock.RedisError("Index already exists")))

	s := NewStoreFromClient(c)
	idx := &db.IndexDefinition{
		Name:   "test:idx",
		Fields: []db.IndexField{{Path: "f", Type: db.IndexFieldTag}},
	}
	err := s.CreateIndex(context.Background(), idx)
	if !errors.Is(err, db.ErrIndexExists) {
		t.Errorf("expected ErrIndexExists, got %v", err)
	}
}

func TestDropIndex_NotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.DROPINDEX", "test:idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreFromClient(c)
	err := s.DropIndex(context.Background(), "test:idx")
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestIndexExists_False(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("FT.INFO", "test:idx")).
		Return(mock.Result(mock.RedisError("Unknown Index name")))

	s := NewStoreFromClient(c)
	exists, err := s.IndexExists(context.Background(), "test:idx")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if exists {
		t.Error("expected false")
	}
}

func TestBuildCreateArgs_AllFieldKinds(t *testing.T) {
	idx := &db.IndexDefinition{
		Name:        "idx",
		StorageType: db.StorageJSON,
		Prefixes:    []string{"p:"},
		Fields: []db.IndexField{
			{Path: "$.tag", Alias: "tag", Type: db.IndexFieldTag, Sortable: true},
			{Path: "$.text", Alias: "text", Type: db.IndexFieldText, NoStem: true},
			{Path: "$.num", Alias: "num", Type: db.IndexFieldNumeric},
			{Path: "$.geo", Alias: "geo", Type: db.IndexFieldGeo},
			{Path: "$.vec", Alias: "vec", Type: db.IndexFieldVector, VectorDim: 4, VectorAlgo: db.VectorHNSW, VectorM: 16},
		},
	}
	args, err := buildCreateArgs(idx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertContains(t, args, "TAG")
	assertContains(t, args, "TEXT")
	assertContains(t, args, "NUMERIC")
	assertContains(t, args, "GEO")
	assertContains(t, args, "VECTOR")
	assertContains(t, args, "HNSW")
}

func TestBuildVectorFieldArgs_RequiresDim(t *testing.T) {
	_, err := buildVectorFieldArgs(&db.IndexField{Type: db.IndexFieldVector})
	if err == nil {
		t.Error("expected error for missing dimension")
	}
}

func assertContains(t *testing.T, args []string, want string) {
	t.Helper()
	for _, a := range args {
		if a == want {
			return
		}
	}
	t.Errorf("expected %q in args %v", want, args)
}

func TestSearch_HashRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("doc:1"),
			mock.RedisArray(mock.RedisString("f1"), mock.RedisString("v1")),
		)))

	s := NewStoreFromClient(c)
	result, err := s.Search(context.Background(), &db.SearchArgs{Index: "idx", Query: "*"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Total != 1 || len(result.Entries) != 1 {
		t.Fatalf("unexpected result: %+v", result)
	}
	if result.Entries[0].Fields["f1"] != "v1" {
		t.Errorf("unexpected fields: %v", result.Entries[0].Fields)
	}
}

func TestSearch_JSONRows(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("doc:1"),
			mock.RedisArray(mock.RedisString("$"), mock.RedisString(`{"a":1}`)),
		)))

	s := NewStoreFromClient(c)
	result, err := s.Search(context.Background(), &db.SearchArgs{Index: "idx", Query: "*", Return: []string{"$"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(result.Entries[0].JSON) != `{"a":1}` {
		t.Errorf("unexpected json: %s", result.Entries[0].JSON)
	}
}

func TestSearch_WithScores(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisString("doc:1"),
			mock.RedisString("0.5"),
			mock.RedisArray(mock.RedisString("f"), mock.RedisString("v")),
		)))

	s := NewStoreFromClient(c)
	result, err := s.Search(context.Background(), &db.SearchArgs{Index: "idx", Query: "*", WithScores: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Entries[0].Score != 0.5 {
		t.Errorf("expected score 0.5, got %f", result.Entries[0].Score)
	}
}

func TestSearch_IndexNotFound(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.SEARCH" })).
		Return(mock.Result(mock.RedisError("unknown index name")))

	s := NewStoreFromClient(c)
	_, err := s.Search(context.Background(), &db.SearchArgs{Index: "idx", Query: "*"})
	if !errors.Is(err, db.ErrIndexNotFound) {
		t.Errorf("expected ErrIndexNotFound, got %v", err)
	}
}

func TestBuildSearchArgs_Limit(t *testing.T) {
	args := buildSearchArgs(&db.SearchArgs{
		Index: "idx", Query: "@f:{v}",
		HasLimit: true, Offset: 10, Limit: 20,
		SortBy: "f", SortDesc: true,
		VectorParam: []byte{1, 2, 3, 4},
	})
	assertContains(t, args, "LIMIT")
	assertContains(t, args, "SORTBY")
	assertContains(t, args, "DESC")
	assertContains(t, args, "PARAMS")
	assertContains(t, args, "DIALECT")
}

func TestAggregateCount_Success(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.MatchFn(func(cmd []string) bool { return cmd[0] == "FT.AGGREGATE" })).
		Return(mock.Result(mock.RedisArray(
			mock.RedisInt64(1),
			mock.RedisArray(mock.RedisString("total"), mock.RedisString("42")),
		)))

	s := NewStoreFromClient(c)
	count, err := s.AggregateCount(context.Background(), "idx", "*")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 42 {
		t.Errorf("expected 42, got %d", count)
	}
}
