package relop

import "fmt"

// Node represents one operator in a relational pipeline tree.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the analyzer and the SQL renderer.
//
// Node kinds:
//   - TableSourceNode: leaf; reads a named table's declared columns
//   - SelectRowsNode: row filter (WHERE)
//   - SelectColumnsNode / DropColumnsNode: projection
//   - RenameColumnsNode: column renaming
//   - ExtendNode: computed columns, optionally windowed
//   - NormalizeColsNode: column divided by its windowed sum
//   - PickTopKNode: per-partition top-k by descending order keys
//   - OrderByNode: global sort with optional row cap
//   - JoinNode: left join on matched key pairs
//   - MaterializeNode: staging boundary into a physical/temp table
//
// Non-leaf nodes exclusively own their children; the structure is always
// a tree. All nodes are immutable after construction.
type Node interface {
	relNode() // Marker method - seals interface to this package

	// Kind returns the node kind name used in errors and Format output.
	Kind() string

	// ColumnNames returns the node's output columns in order. The list
	// is cached at construction and contains no duplicates.
	ColumnNames() []string

	// Children returns the node's child nodes: none for a leaf, one for
	// unary transforms, two (left, right) for joins.
	Children() []Node
}

// KeyPair matches a left-side join column to a right-side join column.
type KeyPair struct {
	Left  string
	Right string
}

// Assignment binds a computed expression to an output column name.
type Assignment struct {
	Name string
	Expr Expr
}

// TableSourceNode is the leaf node: it reads exactly the declared
// columns from a named table.
type TableSourceNode struct {
	Table   string
	Columns []string
}

// SelectRowsNode filters rows by a predicate; output columns are
// unchanged from the child.
type SelectRowsNode struct {
	Source    Node
	Predicate Expr
}

// SelectColumnsNode projects the child down to exactly Keep, in Keep
// order.
type SelectColumnsNode struct {
	Source Node
	Keep   []string
}

// DropColumnsNode removes Drop from the child's columns. With Strict,
// every dropped name must exist in the child's output.
type DropColumnsNode struct {
	Source Node
	Drop   []string
	Strict bool

	columns []string
}

// RenameColumnsNode renames child columns old → new, preserving order.
type RenameColumnsNode struct {
	Source  Node
	Renames map[string]string // old → new

	columns []string
}

// ExtendNode adds or overwrites computed columns. With a non-empty
// PartitionBy, expressions may use windowed aggregates over that
// partitioning.
type ExtendNode struct {
	Source      Node
	Assignments []Assignment
	PartitionBy []string

	columns []string
}

// NormalizeColsNode rewrites Column to Column / SUM(Column) OVER the
// partition. A specialized extend; output columns are unchanged.
type NormalizeColsNode struct {
	Source      Node
	Column      string
	PartitionBy []string
}

// PickTopKNode ranks rows within each partition by RevOrderBy descending
// (ties broken by subsequent keys, left to right) and keeps the top K.
// The cut is applied per partition via a generated row-number column,
// never via LIMIT.
type PickTopKNode struct {
	Source      Node
	PartitionBy []string
	RevOrderBy  []string
	K           int
}

// OrderByNode sorts globally by Columns ascending, with an optional row
// cap (Limit 0 means none).
type OrderByNode struct {
	Source  Node
	Columns []string
	Limit   int
}

// JoinNode left-joins Right onto Left by the key pairs. Output columns
// are Left's columns followed by Right's non-key columns; right-side key
// columns are not duplicated.
type JoinNode struct {
	Left  Node
	Right Node
	Keys  []KeyPair

	columns []string
}

// MaterializeNode forces the child's result into a named (optionally
// temporary) physical table. Nodes above it read from that table by name
// rather than re-embedding the child's subquery text.
type MaterializeNode struct {
	Source    Node
	Table     string
	Overwrite bool
	Temporary bool
}

func (*TableSourceNode) relNode()   {}
func (*SelectRowsNode) relNode()    {}
func (*SelectColumnsNode) relNode() {}
func (*DropColumnsNode) relNode()   {}
func (*RenameColumnsNode) relNode() {}
func (*ExtendNode) relNode()        {}
func (*NormalizeColsNode) relNode() {}
func (*PickTopKNode) relNode()      {}
func (*OrderByNode) relNode()       {}
func (*JoinNode) relNode()          {}
func (*MaterializeNode) relNode()   {}

func (*TableSourceNode) Kind() string   { return "table_source" }
func (*SelectRowsNode) Kind() string    { return "select_rows" }
func (*SelectColumnsNode) Kind() string { return "select_columns" }
func (*DropColumnsNode) Kind() string   { return "drop_columns" }
func (*RenameColumnsNode) Kind() string { return "rename_columns" }
func (*ExtendNode) Kind() string        { return "extend" }
func (*NormalizeColsNode) Kind() string { return "normalize_cols" }
func (*PickTopKNode) Kind() string      { return "pick_top_k" }
func (*OrderByNode) Kind() string       { return "order_by" }
func (*JoinNode) Kind() string          { return "join" }
func (*MaterializeNode) Kind() string   { return "materialize" }

func (n *TableSourceNode) ColumnNames() []string   { return copyStrings(n.Columns) }
func (n *SelectRowsNode) ColumnNames() []string    { return n.Source.ColumnNames() }
func (n *SelectColumnsNode) ColumnNames() []string { return copyStrings(n.Keep) }
func (n *DropColumnsNode) ColumnNames() []string   { return copyStrings(n.columns) }
func (n *RenameColumnsNode) ColumnNames() []string { return copyStrings(n.columns) }
func (n *ExtendNode) ColumnNames() []string        { return copyStrings(n.columns) }
func (n *NormalizeColsNode) ColumnNames() []string { return n.Source.ColumnNames() }
func (n *PickTopKNode) ColumnNames() []string      { return n.Source.ColumnNames() }
func (n *OrderByNode) ColumnNames() []string       { return n.Source.ColumnNames() }
func (n *JoinNode) ColumnNames() []string          { return copyStrings(n.columns) }
func (n *MaterializeNode) ColumnNames() []string   { return n.Source.ColumnNames() }

func (n *TableSourceNode) Children() []Node   { return nil }
func (n *SelectRowsNode) Children() []Node    { return []Node{n.Source} }
func (n *SelectColumnsNode) Children() []Node { return []Node{n.Source} }
func (n *DropColumnsNode) Children() []Node   { return []Node{n.Source} }
func (n *RenameColumnsNode) Children() []Node { return []Node{n.Source} }
func (n *ExtendNode) Children() []Node        { return []Node{n.Source} }
func (n *NormalizeColsNode) Children() []Node { return []Node{n.Source} }
func (n *PickTopKNode) Children() []Node      { return []Node{n.Source} }
func (n *OrderByNode) Children() []Node       { return []Node{n.Source} }
func (n *JoinNode) Children() []Node          { return []Node{n.Left, n.Right} }
func (n *MaterializeNode) Children() []Node   { return []Node{n.Source} }

// NewTableSource creates the leaf node for a named table with its
// declared columns.
func NewTableSource(table string, columns []string) (*TableSourceNode, error) {
	if table == "" {
		return nil, newErr(ErrCodeEmptyArgument, "table_source", "table name must not be empty")
	}
	if len(columns) == 0 {
		return nil, newErr(ErrCodeEmptyArgument, "table_source", "declared column list must not be empty")
	}
	if dup := firstDuplicate(columns); dup != "" {
		return nil, newErr(ErrCodeDuplicateColumn, "table_source", "declared columns contain a duplicate", dup)
	}
	return &TableSourceNode{Table: table, Columns: copyStrings(columns)}, nil
}

// SelectRows filters source by predicate. Every column the predicate
// references must be produced by source.
func SelectRows(source Node, predicate Expr) (*SelectRowsNode, error) {
	if err := checkExpr("select_rows", predicate, source.ColumnNames(), false); err != nil {
		return nil, err
	}
	return &SelectRowsNode{Source: source, Predicate: predicate}, nil
}

// SelectColumns projects source to exactly keep, in keep order.
func SelectColumns(source Node, keep []string) (*SelectColumnsNode, error) {
	if len(keep) == 0 {
		return nil, newErr(ErrCodeEmptyArgument, "select_columns", "keep list must not be empty")
	}
	if dup := firstDuplicate(keep); dup != "" {
		return nil, newErr(ErrCodeDuplicateColumn, "select_columns", "keep list contains a duplicate", dup)
	}
	if missing := missingFrom(keep, source.ColumnNames()); len(missing) > 0 {
		return nil, newErr(ErrCodeUnknownColumn, "select_columns", "keep list references columns not produced by source", missing...)
	}
	return &SelectColumnsNode{Source: source, Keep: copyStrings(keep)}, nil
}

// DropColumns removes drop from source's columns, preserving order. The
// drop list must be non-empty; with strict, every dropped name must
// exist in source's output. Dropping every column is an error.
func DropColumns(source Node, drop []string, strict bool) (*DropColumnsNode, error) {
	if len(drop) == 0 {
		return nil, newErr(ErrCodeEmptyArgument, "drop_columns", "drop list must not be empty")
	}
	if dup := firstDuplicate(drop); dup != "" {
		return nil, newErr(ErrCodeDuplicateColumn, "drop_columns", "drop list contains a duplicate", dup)
	}
	src := source.ColumnNames()
	if strict {
		if missing := missingFrom(drop, src); len(missing) > 0 {
			return nil, newErr(ErrCodeUnknownColumn, "drop_columns", "drop list references columns not produced by source", missing...)
		}
	}
	dropped := columnSet(drop)
	var out []string
	for _, c := range src {
		if !dropped[c] {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return nil, newErr(ErrCodeEmptyArgument, "drop_columns", "drop list removes every column")
	}
	return &DropColumnsNode{Source: source, Drop: copyStrings(drop), Strict: strict, columns: out}, nil
}

// RenameColumns renames source columns old → new, preserving order. A
// new name must not collide with an existing, non-renamed column or with
// another new name.
func RenameColumns(source Node, renames map[string]string) (*RenameColumnsNode, error) {
	if len(renames) == 0 {
		return nil, newErr(ErrCodeEmptyArgument, "rename_columns", "rename map must not be empty")
	}
	src := source.ColumnNames()
	have := columnSet(src)
	for _, old := range sortedKeys(renames) {
		if !have[old] {
			return nil, newErr(ErrCodeUnknownColumn, "rename_columns", "rename source column not produced by source", old)
		}
	}
	out := make([]string, len(src))
	for i, c := range src {
		if nw, ok := renames[c]; ok {
			out[i] = nw
		} else {
			out[i] = c
		}
	}
	if dup := firstDuplicate(out); dup != "" {
		return nil, newErr(ErrCodeNameCollision, "rename_columns", "renamed output collides with another column", dup)
	}
	cp := make(map[string]string, len(renames))
	for k, v := range renames {
		cp[k] = v
	}
	return &RenameColumnsNode{Source: source, Renames: cp, columns: out}, nil
}

// Extend adds or overwrites computed columns. Each expression's free
// variables must already exist in source's output. With a non-empty
// partitionBy, expressions may use windowed aggregates; without one,
// aggregates are rejected. New columns are appended in assignment order;
// an overwritten column keeps its position.
func Extend(source Node, assignments []Assignment, partitionBy []string) (*ExtendNode, error) {
	if len(assignments) == 0 {
		return nil, newErr(ErrCodeEmptyArgument, "extend", "assignment list must not be empty")
	}
	src := source.ColumnNames()
	have := columnSet(src)
	if missing := missingFrom(partitionBy, src); len(missing) > 0 {
		return nil, newErr(ErrCodeUnknownColumn, "extend", "partition references columns not produced by source", missing...)
	}
	seen := map[string]bool{}
	for _, a := range assignments {
		if a.Name == "" {
			return nil, newErr(ErrCodeEmptyArgument, "extend", "assignment name must not be empty")
		}
		if seen[a.Name] {
			return nil, newErr(ErrCodeDuplicateColumn, "extend", "assignment list defines a column twice", a.Name)
		}
		seen[a.Name] = true
		if err := checkExpr("extend", a.Expr, src, len(partitionBy) > 0); err != nil {
			return nil, err
		}
	}
	out := copyStrings(src)
	for _, a := range assignments {
		if !have[a.Name] {
			out = append(out, a.Name)
		}
	}
	n := &ExtendNode{
		Source:      source,
		Assignments: append([]Assignment(nil), assignments...),
		PartitionBy: copyStrings(partitionBy),
		columns:     out,
	}
	return n, nil
}

// NormalizeCols rewrites column to column / SUM(column) OVER the
// partition. An empty partition normalizes over the whole table.
func NormalizeCols(source Node, column string, partitionBy []string) (*NormalizeColsNode, error) {
	src := source.ColumnNames()
	if column == "" {
		return nil, newErr(ErrCodeEmptyArgument, "normalize_cols", "column must not be empty")
	}
	if !columnSet(src)[column] {
		return nil, newErr(ErrCodeUnknownColumn, "normalize_cols", "column not produced by source", column)
	}
	if missing := missingFrom(partitionBy, src); len(missing) > 0 {
		return nil, newErr(ErrCodeUnknownColumn, "normalize_cols", "partition references columns not produced by source", missing...)
	}
	return &NormalizeColsNode{Source: source, Column: column, PartitionBy: copyStrings(partitionBy)}, nil
}

// PickTopK keeps the top k rows of each partition, ranked by revOrderBy
// descending with ties broken by subsequent keys left to right.
func PickTopK(source Node, partitionBy, revOrderBy []string, k int) (*PickTopKNode, error) {
	if len(revOrderBy) == 0 {
		return nil, newErr(ErrCodeEmptyArgument, "pick_top_k", "order list must not be empty")
	}
	if k < 1 {
		return nil, newErr(ErrCodeBadArgument, "pick_top_k", fmt.Sprintf("k must be at least 1, got %d", k))
	}
	src := source.ColumnNames()
	if missing := missingFrom(partitionBy, src); len(missing) > 0 {
		return nil, newErr(ErrCodeUnknownColumn, "pick_top_k", "partition references columns not produced by source", missing...)
	}
	if missing := missingFrom(revOrderBy, src); len(missing) > 0 {
		return nil, newErr(ErrCodeUnknownColumn, "pick_top_k", "order list references columns not produced by source", missing...)
	}
	return &PickTopKNode{
		Source:      source,
		PartitionBy: copyStrings(partitionBy),
		RevOrderBy:  copyStrings(revOrderBy),
		K:           k,
	}, nil
}

// OrderBy sorts globally by columns ascending. limit caps the row count;
// 0 means no cap.
func OrderBy(source Node, columns []string, limit int) (*OrderByNode, error) {
	if len(columns) == 0 {
		return nil, newErr(ErrCodeEmptyArgument, "order_by", "order list must not be empty")
	}
	if limit < 0 {
		return nil, newErr(ErrCodeBadArgument, "order_by", fmt.Sprintf("limit must not be negative, got %d", limit))
	}
	if missing := missingFrom(columns, source.ColumnNames()); len(missing) > 0 {
		return nil, newErr(ErrCodeUnknownColumn, "order_by", "order list references columns not produced by source", missing...)
	}
	return &OrderByNode{Source: source, Columns: copyStrings(columns), Limit: limit}, nil
}

// LeftJoin joins right onto left by the key pairs. Keys must be
// non-empty; each left key must be produced by left and each right key
// by right. Output is left's columns followed by right's non-key
// columns; a right non-key column colliding with any left output column
// is a construction error.
func LeftJoin(left, right Node, keys []KeyPair) (*JoinNode, error) {
	if len(keys) == 0 {
		return nil, newErr(ErrCodeEmptyArgument, "join", "key pair list must not be empty")
	}
	leftCols := left.ColumnNames()
	rightCols := right.ColumnNames()
	leftHave := columnSet(leftCols)
	rightHave := columnSet(rightCols)
	rightKeys := map[string]bool{}
	for _, k := range keys {
		if k.Left == "" || k.Right == "" {
			return nil, newErr(ErrCodeEmptyArgument, "join", "key pair has an empty side")
		}
		if !leftHave[k.Left] {
			return nil, newErr(ErrCodeUnknownColumn, "join", "left key not produced by left side", k.Left)
		}
		if !rightHave[k.Right] {
			return nil, newErr(ErrCodeUnknownColumn, "join", "right key not produced by right side", k.Right)
		}
		rightKeys[k.Right] = true
	}
	out := copyStrings(leftCols)
	for _, c := range rightCols {
		if rightKeys[c] {
			continue
		}
		if leftHave[c] {
			return nil, newErr(ErrCodeNameCollision, "join", "right column collides with a left column", c)
		}
		out = append(out, c)
	}
	if dup := firstDuplicate(out); dup != "" {
		return nil, newErr(ErrCodeDuplicateColumn, "join", "join output contains a duplicate", dup)
	}
	return &JoinNode{Left: left, Right: right, Keys: append([]KeyPair(nil), keys...), columns: out}, nil
}

// Materialize stages source into a named physical table. With temporary,
// the table is session-scoped; with overwrite, rendering emits a
// drop-if-exists ahead of the create.
func Materialize(source Node, table string, overwrite, temporary bool) (*MaterializeNode, error) {
	if table == "" {
		return nil, newErr(ErrCodeEmptyArgument, "materialize", "table name must not be empty")
	}
	return &MaterializeNode{Source: source, Table: table, Overwrite: overwrite, Temporary: temporary}, nil
}
