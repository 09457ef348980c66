package query

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/redisom/redisom/internal/schema"
)

type record struct {
	PK       string    `redisom:"pk,primary_key"`
	Name     string    `redisom:"name,index,sortable"`
	Bio      string    `redisom:"bio,index,full_text_search"`
	Tags     []string  `redisom:"tags,index"`
	Age      int       `redisom:"age,index"`
	Unsorted int       `redisom:"unsorted,index"`
	Vec      []float32 `redisom:"vec,index,vector(algorithm=FLAT,dtype=float32,dim=4,metric=L2)"`
}

func compiled(t *testing.T) *schema.Compiled {
	t.Helper()
	c, err := schema.Compile(reflect.TypeOf(record{}), schema.HashLayout, false)
	require.NoError(t, err)
	return c
}

func TestCompile_EqualityTag(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", EqExpr("name", "alice"), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "@name:{alice}", args.Query)
	assert.Equal(t, "idx", args.Index)
	assert.Equal(t, 2, args.Dialect)
}

func TestCompile_InequalityTag(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", NeExpr("name", "alice"), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "-@name:{alice}", args.Query)
}

func TestCompile_NumericRange(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", GtExpr("age", 21), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "@age:[(21 +inf]", args.Query)
}

func TestCompile_AndJoinsWithSpace(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", AndExpr(EqExpr("name", "alice"), GteExpr("age", 21)), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "@name:{alice} @age:[21 +inf]", args.Query)
}

func TestCompile_OrJoinsWithPipeInParens(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", OrExpr(EqExpr("name", "alice"), EqExpr("name", "bob")), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "(@name:{alice} | @name:{bob})", args.Query)
}

func TestCompile_NotWrapsWithDash(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", NotExpr(EqExpr("name", "alice")), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "-(@name:{alice})", args.Query)
}

func TestCompile_NestedAndFlattensUnderNormalize(t *testing.T) {
	c := compiled(t)
	nested := AndExpr(EqExpr("name", "a"), AndExpr(EqExpr("age", 1), EqExpr("unsorted", 2)))
	args, err := Compile(c, "idx", nested, CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "@name:{a} @age:[1 1] @unsorted:[2 2]", args.Query)
}

func TestCompile_DoubleNotCollapses(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", NotExpr(NotExpr(EqExpr("name", "a"))), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "@name:{a}", args.Query)
}

func TestCompile_ContainmentProducesDisjunction(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", InExpr("tags", "x", "y"), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "@tags:{x|y}", args.Query)
}

func TestCompile_NonContainmentNegates(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", NotInExpr("tags", "x"), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "-@tags:{x}", args.Query)
}

func TestCompile_ContainmentOnNonListFieldRejectedE1(t *testing.T) {
	c := compiled(t)
	_, err := Compile(c, "idx", InExpr("name", "x"), CompileOptions{})
	var schemaErr *schema.Error
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, schema.E1, schemaErr.Code)
}

func TestCompile_TextMatch(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", MatchExpr("bio", "hello world"), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "@bio:(hello\\ world)", args.Query)
}

func TestCompile_MatchOnNonFullTextFieldRejectedE3(t *testing.T) {
	c := compiled(t)
	_, err := Compile(c, "idx", MatchExpr("name", "x"), CompileOptions{})
	var schemaErr *schema.Error
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, schema.E3, schemaErr.Code)
}

func TestCompile_RangeOnFullTextFieldRejectedE5(t *testing.T) {
	c := compiled(t)
	_, err := Compile(c, "idx", GtExpr("bio", "x"), CompileOptions{})
	var schemaErr *schema.Error
	require.ErrorAs(t, err, &schemaErr)
	assert.Equal(t, schema.E5, schemaErr.Code)
}

func TestCompile_FuzzyMatch(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", FuzzyExpr("bio", "helo", 1), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "@bio:(%helo%)", args.Query)
}

func TestCompile_UnknownFieldRejectedE6(t *testing.T) {
	c := compiled(t)
	_, err := Compile(c, "idx", EqExpr("nope", "x"), CompileOptions{})
	var qerr *Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, E6, qerr.Code)
}

func TestCompile_SortByRequiresSortableFieldE2(t *testing.T) {
	c := compiled(t)
	_, err := Compile(c, "idx", EqExpr("name", "a"), CompileOptions{SortBy: "unsorted"})
	var qerr *Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, E2, qerr.Code)
}

func TestCompile_SortByUnknownFieldE9(t *testing.T) {
	c := compiled(t)
	_, err := Compile(c, "idx", EqExpr("name", "a"), CompileOptions{SortBy: "nope"})
	var qerr *Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, E9, qerr.Code)
}

func TestCompile_SortByAppliesWhenSortable(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", EqExpr("name", "a"), CompileOptions{SortBy: "name", SortDesc: true})
	require.NoError(t, err)
	assert.Equal(t, "name", args.SortBy)
	assert.True(t, args.SortDesc)
}

func TestCompile_NoExprDefaultsToWildcard(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", nil, CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "*", args.Query)
}

func TestCompile_DefaultLimitApplied(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", nil, CompileOptions{})
	require.NoError(t, err)
	assert.True(t, args.HasLimit)
	assert.Equal(t, defaultLimit, args.Limit)
}

func TestCompile_ExplicitLimitPreserved(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", nil, CompileOptions{Offset: 10, Limit: 5, HasLimit: true})
	require.NoError(t, err)
	assert.Equal(t, 10, args.Offset)
	assert.Equal(t, 5, args.Limit)
}

func TestCompile_EmptyAndRejectedE7(t *testing.T) {
	_, _, err := compileNode(&And{}, map[string]schema.FieldSpec{})
	var qerr *Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, E7, qerr.Code)
}

func TestCompile_KNNWrapsFilterAndEmitsVectorParam(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", KNNExpr("vec", 5, []float32{1, 2, 3, 4}, EqExpr("name", "a")), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "(@name:{a})=>[KNN 5 @vec $BLOB AS __vec_score]", args.Query)
	assert.Len(t, args.VectorParam, 16)
}

func TestCompile_KNNWithoutPreFilterUsesWildcard(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", KNNExpr("vec", 5, []float32{1, 2, 3, 4}, nil), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "(*)=>[KNN 5 @vec $BLOB AS __vec_score]", args.Query)
}

func TestCompile_KNNOnNonVectorFieldRejected(t *testing.T) {
	c := compiled(t)
	_, err := Compile(c, "idx", KNNExpr("name", 5, []float32{1}, nil), CompileOptions{})
	require.Error(t, err)
	var qerr *Error
	require.ErrorAs(t, err, &qerr)
	assert.Equal(t, E10, qerr.Code)
}

func TestCompile_KNNDefaultsSortByVectorScore(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", KNNExpr("vec", 5, []float32{1, 2, 3, 4}, nil), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "__vec_score", args.SortBy)
	assert.False(t, args.SortDesc)
}

func TestCompile_ExplicitSortByOverridesKNNDefault(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", KNNExpr("vec", 5, []float32{1, 2, 3, 4}, nil), CompileOptions{SortBy: "name"})
	require.NoError(t, err)
	assert.Equal(t, "name", args.SortBy)
}

func TestCompile_NonKNNQueryHasNoDefaultSort(t *testing.T) {
	c := compiled(t)
	args, err := Compile(c, "idx", EqExpr("name", "a"), CompileOptions{})
	require.NoError(t, err)
	assert.Equal(t, "", args.SortBy)
}

func TestRender_NestedTree(t *testing.T) {
	tree := AndExpr(EqExpr("name", "a"), NotExpr(GtExpr("age", 1)))
	out := Render(tree)
	assert.Equal(t, "AND(EQ(name, a), NOT(GT(age, 1)))", out)
}

func TestNormalize_FlattensAndAssociativity(t *testing.T) {
	a := AndExpr(EqExpr("x", 1), AndExpr(EqExpr("y", 2), EqExpr("z", 3)))
	norm := Normalize(a)
	and, ok := norm.(*And)
	require.True(t, ok)
	assert.Len(t, and.Clauses, 3)
}
