package relsql

import (
	"strings"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relquery/relq/internal/dialect"
	"github.com/relquery/relq/internal/relop"
)

func golden(t *testing.T) *goldie.Goldie {
	t.Helper()
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func source(t *testing.T, table string, cols ...string) relop.Node {
	t.Helper()
	n, err := relop.NewTableSource(table, cols)
	require.NoError(t, err)
	return n
}

func renderOne(t *testing.T, n relop.Node, d dialect.Options, opts RenderOptions) string {
	t.Helper()
	stmts, err := Render(n, d, opts)
	require.NoError(t, err)
	require.Len(t, stmts, 1)
	require.Equal(t, StatementQuery, stmts[0].Kind)
	return stmts[0].SQL
}

func TestRender_TableSource(t *testing.T) {
	sql := renderOne(t, source(t, "t", "a", "b"), dialect.SQLite(), RenderOptions{})
	assert.Equal(t, "SELECT \"a\", \"b\"\nFROM \"t\"", sql)
}

func TestRender_ExtendWindow(t *testing.T) {
	src := source(t, "d", "x", "g")
	tree, err := relop.Extend(src, []relop.Assignment{
		{Name: "rsum", Expr: relop.AggExpr{Fn: "SUM", Arg: relop.Col("x")}},
	}, []string{"g"})
	require.NoError(t, err)

	sql := renderOne(t, tree, dialect.SQLite(), RenderOptions{})
	golden(t).Assert(t, "extend_window", []byte(sql))
}

func TestRender_PickTopOne(t *testing.T) {
	src := source(t, "meas", "id", "date", "weight")
	tree, err := relop.PickTopK(src, []string{"id"}, []string{"date"}, 1)
	require.NoError(t, err)

	sql := renderOne(t, tree, dialect.SQLite(), RenderOptions{})
	golden(t).Assert(t, "pick_top_one", []byte(sql))
	// Per-partition cuts always go through the generated row number.
	assert.NotContains(t, sql, "LIMIT")
	assert.Contains(t, sql, "ROW_NUMBER() OVER")
}

func TestRender_PickTopK_CutUsesLessEqual(t *testing.T) {
	src := source(t, "meas", "id", "date", "weight")
	tree, err := relop.PickTopK(src, []string{"id"}, []string{"date"}, 3)
	require.NoError(t, err)

	sql := renderOne(t, tree, dialect.SQLite(), RenderOptions{})
	assert.Contains(t, sql, "<= 3")
	assert.NotContains(t, sql, "= 1\n")
}

func TestRender_LeftJoin(t *testing.T) {
	left := source(t, "l", "id", "v")
	right := source(t, "r", "id", "w")
	tree, err := relop.LeftJoin(left, right, []relop.KeyPair{{Left: "id", Right: "id"}})
	require.NoError(t, err)

	sql := renderOne(t, tree, dialect.SQLite(), RenderOptions{})
	golden(t).Assert(t, "left_join", []byte(sql))
}

func TestRender_MaterializeSequence(t *testing.T) {
	src := source(t, "t", "a", "b", "c")
	keep, err := relop.SelectColumns(src, []string{"a", "b"})
	require.NoError(t, err)
	tree, err := relop.Materialize(keep, "stage", true, true)
	require.NoError(t, err)

	stmts, err := Render(tree, dialect.SQLite(), RenderOptions{})
	require.NoError(t, err)
	require.Len(t, stmts, 3)

	assert.Equal(t, StatementDropTable, stmts[0].Kind)
	assert.Equal(t, "stage", stmts[0].Table)
	assert.Equal(t, "DROP TABLE IF EXISTS \"stage\"", stmts[0].SQL)

	assert.Equal(t, StatementCreateTable, stmts[1].Kind)
	assert.Equal(t, "stage", stmts[1].Table)
	assert.Contains(t, stmts[1].SQL, "CREATE TEMPORARY TABLE \"stage\" AS")

	assert.Equal(t, StatementQuery, stmts[2].Kind)
	assert.Equal(t, "SELECT \"a\", \"b\"\nFROM \"stage\"", stmts[2].SQL)
}

func TestRender_MaterializeNoOverwrite(t *testing.T) {
	src := source(t, "t", "a")
	tree, err := relop.Materialize(src, "stage", false, false)
	require.NoError(t, err)

	stmts, err := Render(tree, dialect.SQLite(), RenderOptions{})
	require.NoError(t, err)
	require.Len(t, stmts, 2)
	assert.Equal(t, StatementCreateTable, stmts[0].Kind)
	assert.NotContains(t, stmts[0].SQL, "TEMPORARY")
	assert.Equal(t, StatementQuery, stmts[1].Kind)
}

func TestRender_NormalizeCols(t *testing.T) {
	src := source(t, "t", "v", "g")
	tree, err := relop.NormalizeCols(src, "v", []string{"g"})
	require.NoError(t, err)

	sql := renderOne(t, tree, dialect.SQLite(), RenderOptions{})
	golden(t).Assert(t, "normalize_cols", []byte(sql))
	// The normalized column keeps its name; no new column appears.
	assert.Contains(t, sql, `SUM("v") OVER (PARTITION BY "g") AS "v"`)
}

func TestRender_LimitOnOrderByRoot(t *testing.T) {
	src := source(t, "t", "a", "b")

	// An order_by root carries the limit itself so the ordering of the
	// capped preview is contractual, not an outer-wrapper accident.
	tree, err := relop.OrderBy(src, []string{"b"}, 0)
	require.NoError(t, err)
	sql := renderOne(t, tree, dialect.SQLite(), RenderOptions{Limit: 5})
	golden(t).Assert(t, "limit_on_order_by", []byte(sql))
	assert.NotContains(t, sql, "SELECT *")

	// The tighter of the node's own cap and the render cap wins.
	tree, err = relop.OrderBy(src, []string{"b"}, 3)
	require.NoError(t, err)
	sql = renderOne(t, tree, dialect.SQLite(), RenderOptions{Limit: 5})
	assert.True(t, strings.HasSuffix(sql, "ORDER BY \"b\"\nLIMIT 3"), sql)

	tree, err = relop.OrderBy(src, []string{"b"}, 10)
	require.NoError(t, err)
	sql = renderOne(t, tree, dialect.SQLite(), RenderOptions{Limit: 5})
	assert.True(t, strings.HasSuffix(sql, "ORDER BY \"b\"\nLIMIT 5"), sql)
}

func TestRender_LimitWrapAndPushdown(t *testing.T) {
	src := source(t, "t", "a")

	sql := renderOne(t, src, dialect.SQLite(), RenderOptions{Limit: 5})
	golden(t).Assert(t, "limit_pushdown_sqlite", []byte(sql))

	// MySQL never pushes the limit into the table scan; only the outer
	// wrapper carries it.
	sql = renderOne(t, src, dialect.MySQL(), RenderOptions{Limit: 5})
	golden(t).Assert(t, "limit_wrap_mysql", []byte(sql))
}

func TestRender_UsingNarrowsOutput(t *testing.T) {
	src := source(t, "t", "a", "b", "c")
	tree, err := relop.SelectRows(src, relop.Eq(relop.Col("c"), relop.Lit(int64(1))))
	require.NoError(t, err)

	sql := renderOne(t, tree, dialect.SQLite(), RenderOptions{Using: []string{"a"}})
	golden(t).Assert(t, "using_narrow", []byte(sql))
}

func TestRender_UsingUnknownColumn(t *testing.T) {
	src := source(t, "t", "a")
	_, err := Render(src, dialect.SQLite(), RenderOptions{Using: []string{"z"}})
	require.Error(t, err)
	assert.True(t, relop.IsConstructionError(err))
}

func TestRender_Deterministic(t *testing.T) {
	src := source(t, "meas", "id", "date", "weight")
	tree, err := relop.PickTopK(src, []string{"id"}, []string{"date"}, 1)
	require.NoError(t, err)

	first, err := Render(tree, dialect.SQLite(), RenderOptions{})
	require.NoError(t, err)
	second, err := Render(tree, dialect.SQLite(), RenderOptions{})
	require.NoError(t, err)
	assert.Equal(t, first, second, "fresh generators per pass make output reproducible")
}

func TestRender_CustomNameGenPrefix(t *testing.T) {
	src := source(t, "t", "a", "b")
	tree, err := relop.SelectColumns(src, []string{"a"})
	require.NoError(t, err)

	sql := renderOne(t, tree, dialect.SQLite(), RenderOptions{NameGen: NewNameGen("sub")})
	assert.Contains(t, sql, ") sub_0001")
	assert.NotContains(t, sql, "relq_")
}

func TestRender_RenameEmitsAliases(t *testing.T) {
	src := source(t, "t", "a", "b")
	tree, err := relop.RenameColumns(src, map[string]string{"a": "x"})
	require.NoError(t, err)

	sql := renderOne(t, tree, dialect.SQLite(), RenderOptions{})
	assert.Contains(t, sql, "\"a\" AS \"x\"")
}

func TestRender_BoolLiteralPerDialect(t *testing.T) {
	src := source(t, "t", "flag", "v")
	mk := func() relop.Node {
		tree, err := relop.SelectRows(src, relop.Eq(relop.Col("flag"), relop.Lit(true)))
		require.NoError(t, err)
		return tree
	}

	sql := renderOne(t, mk(), dialect.SQLite(), RenderOptions{})
	assert.Contains(t, sql, "(\"flag\" = 1)")

	sql = renderOne(t, mk(), dialect.Postgres(), RenderOptions{})
	assert.Contains(t, sql, "(\"flag\" = TRUE)")
}

func TestRender_StringLiteralEscaped(t *testing.T) {
	src := source(t, "t", "name")
	tree, err := relop.SelectRows(src, relop.Eq(relop.Col("name"), relop.Lit("o'brien")))
	require.NoError(t, err)

	sql := renderOne(t, tree, dialect.SQLite(), RenderOptions{})
	assert.Contains(t, sql, "'o''brien'")
}
