package relop

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustSource(t *testing.T, table string, cols ...string) *TableSourceNode {
	t.Helper()
	n, err := NewTableSource(table, cols)
	require.NoError(t, err)
	return n
}

func TestNewTableSource(t *testing.T) {
	n := mustSource(t, "meas", "id", "date", "weight")
	assert.Equal(t, []string{"id", "date", "weight"}, n.ColumnNames())
	assert.Empty(t, n.Children())
}

func TestNewTableSource_Invalid(t *testing.T) {
	_, err := NewTableSource("", []string{"a"})
	requireConstructionError(t, err, ErrCodeEmptyArgument)

	_, err = NewTableSource("t", nil)
	requireConstructionError(t, err, ErrCodeEmptyArgument)

	_, err = NewTableSource("t", []string{"a", "b", "a"})
	requireConstructionError(t, err, ErrCodeDuplicateColumn)
}

func TestSelectRows_ValidatesPredicateColumns(t *testing.T) {
	src := mustSource(t, "t", "a", "b")

	n, err := SelectRows(src, Eq(Col("a"), Lit(int64(1))))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, n.ColumnNames())

	_, err = SelectRows(src, Eq(Col("missing"), Lit(int64(1))))
	requireConstructionError(t, err, ErrCodeUnknownColumn)

	// Aggregates are not legal in a row filter.
	_, err = SelectRows(src, Eq(AggExpr{Fn: "SUM", Arg: Col("a")}, Lit(int64(1))))
	requireConstructionError(t, err, ErrCodeBadExpression)
}

func TestSelectColumns(t *testing.T) {
	src := mustSource(t, "t", "a", "b", "c")

	n, err := SelectColumns(src, []string{"c", "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a"}, n.ColumnNames())

	_, err = SelectColumns(src, nil)
	requireConstructionError(t, err, ErrCodeEmptyArgument)

	_, err = SelectColumns(src, []string{"a", "z"})
	requireConstructionError(t, err, ErrCodeUnknownColumn)
}

func TestDropColumns(t *testing.T) {
	src := mustSource(t, "t", "a", "b", "c")

	n, err := DropColumns(src, []string{"b"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "c"}, n.ColumnNames(), "original order preserved")

	_, err = DropColumns(src, nil, false)
	requireConstructionError(t, err, ErrCodeEmptyArgument)

	// Unknown names pass silently without strict, fail with strict.
	n, err = DropColumns(src, []string{"z"}, false)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, n.ColumnNames())

	_, err = DropColumns(src, []string{"z"}, true)
	requireConstructionError(t, err, ErrCodeUnknownColumn)

	_, err = DropColumns(src, []string{"a", "b", "c"}, true)
	requireConstructionError(t, err, ErrCodeEmptyArgument)
}

func TestRenameColumns(t *testing.T) {
	src := mustSource(t, "t", "a", "b", "c")

	n, err := RenameColumns(src, map[string]string{"a": "x", "c": "y"})
	require.NoError(t, err)
	assert.Equal(t, []string{"x", "b", "y"}, n.ColumnNames())

	_, err = RenameColumns(src, map[string]string{"z": "x"})
	requireConstructionError(t, err, ErrCodeUnknownColumn)

	// New name collides with an existing, non-renamed column.
	_, err = RenameColumns(src, map[string]string{"a": "b"})
	requireConstructionError(t, err, ErrCodeNameCollision)

	// Swaps are fine: both sides are renamed.
	n, err = RenameColumns(src, map[string]string{"a": "b", "b": "a"})
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a", "c"}, n.ColumnNames())
}

func TestExtend(t *testing.T) {
	src := mustSource(t, "t", "a", "b")

	n, err := Extend(src, []Assignment{{Name: "twice", Expr: BinaryExpr{Op: "*", Left: Col("a"), Right: Lit(int64(2))}}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "twice"}, n.ColumnNames())

	// Overwriting keeps the column's position.
	n, err = Extend(src, []Assignment{{Name: "a", Expr: Lit(int64(0))}}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, n.ColumnNames())

	_, err = Extend(src, nil, nil)
	requireConstructionError(t, err, ErrCodeEmptyArgument)

	_, err = Extend(src, []Assignment{{Name: "x", Expr: Col("missing")}}, nil)
	requireConstructionError(t, err, ErrCodeUnknownColumn)

	// Windowed aggregate requires a partition.
	agg := Assignment{Name: "total", Expr: AggExpr{Fn: "SUM", Arg: Col("a")}}
	_, err = Extend(src, []Assignment{agg}, nil)
	requireConstructionError(t, err, ErrCodeBadExpression)

	n, err = Extend(src, []Assignment{agg}, []string{"b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "total"}, n.ColumnNames())

	_, err = Extend(src, []Assignment{agg}, []string{"missing"})
	requireConstructionError(t, err, ErrCodeUnknownColumn)
}

func TestNormalizeCols(t *testing.T) {
	src := mustSource(t, "t", "v", "g")

	n, err := NormalizeCols(src, "v", []string{"g"})
	require.NoError(t, err)
	assert.Equal(t, []string{"v", "g"}, n.ColumnNames())

	_, err = NormalizeCols(src, "missing", []string{"g"})
	requireConstructionError(t, err, ErrCodeUnknownColumn)
}

func TestPickTopK(t *testing.T) {
	src := mustSource(t, "t", "id", "date", "v")

	n, err := PickTopK(src, []string{"id"}, []string{"date"}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "date", "v"}, n.ColumnNames())

	_, err = PickTopK(src, []string{"id"}, nil, 1)
	requireConstructionError(t, err, ErrCodeEmptyArgument)

	_, err = PickTopK(src, []string{"id"}, []string{"date"}, 0)
	requireConstructionError(t, err, ErrCodeBadArgument)

	_, err = PickTopK(src, []string{"nope"}, []string{"date"}, 1)
	requireConstructionError(t, err, ErrCodeUnknownColumn)
}

func TestOrderBy(t *testing.T) {
	src := mustSource(t, "t", "a", "b")

	n, err := OrderBy(src, []string{"b"}, 10)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, n.ColumnNames())

	_, err = OrderBy(src, nil, 0)
	requireConstructionError(t, err, ErrCodeEmptyArgument)

	_, err = OrderBy(src, []string{"z"}, 0)
	requireConstructionError(t, err, ErrCodeUnknownColumn)
}

func TestLeftJoin(t *testing.T) {
	left := mustSource(t, "l", "id", "weight")
	right := mustSource(t, "r", "pid", "name")

	n, err := LeftJoin(left, right, []KeyPair{{Left: "id", Right: "pid"}})
	require.NoError(t, err)
	// Right key columns are not duplicated into the output.
	assert.Equal(t, []string{"id", "weight", "name"}, n.ColumnNames())
	assert.Len(t, n.Children(), 2)

	_, err = LeftJoin(left, right, nil)
	requireConstructionError(t, err, ErrCodeEmptyArgument)

	_, err = LeftJoin(left, right, []KeyPair{{Left: "missing", Right: "pid"}})
	requireConstructionError(t, err, ErrCodeUnknownColumn)

	_, err = LeftJoin(left, right, []KeyPair{{Left: "id", Right: "missing"}})
	requireConstructionError(t, err, ErrCodeUnknownColumn)

	// Non-key collision between the two sides fails construction.
	right2 := mustSource(t, "r2", "pid", "weight")
	_, err = LeftJoin(left, right2, []KeyPair{{Left: "id", Right: "pid"}})
	requireConstructionError(t, err, ErrCodeNameCollision)
}

func TestLeftJoin_SharedSourceSubtree(t *testing.T) {
	// The same immutable subtree may appear on both sides.
	src := mustSource(t, "t", "id", "v")
	renamed, err := RenameColumns(src, map[string]string{"v": "w"})
	require.NoError(t, err)

	n, err := LeftJoin(src, renamed, []KeyPair{{Left: "id", Right: "id"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "v", "w"}, n.ColumnNames())
}

func TestMaterialize(t *testing.T) {
	src := mustSource(t, "t", "a")

	n, err := Materialize(src, "stage", true, true)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, n.ColumnNames())

	_, err = Materialize(src, "", false, false)
	requireConstructionError(t, err, ErrCodeEmptyArgument)
}

func requireConstructionError(t *testing.T, err error, code ConstructionErrorCode) {
	t.Helper()
	require.Error(t, err)
	var ce *ConstructionError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, code, ce.Code)
}
