// Package relsql renders relop trees to dialect-correct SQL.
//
// Rendering is a pure post-order walk: each node's child is rendered
// first and wrapped as an aliased subquery, then the node emits its own
// SELECT list restricted to the minimal column set computed by
// relop.ColumnsUsed. A materialize node flushes the SQL accumulated so
// far into its own CREATE TABLE statement, so the overall result is an
// ordered statement sequence: every entry except the last is
// side-effecting DDL that must run, in order, before the final SELECT.
//
// Rendering cannot fail on a well-formed tree; the only errors surfaced
// here are requested-column mismatches from ColumnsUsed.
package relsql

import (
	"fmt"
	"strings"

	"github.com/relquery/relq/internal/dialect"
	"github.com/relquery/relq/internal/relop"
)

// StatementKind categorizes rendered statements.
type StatementKind string

const (
	// StatementQuery is a pure SELECT producing the result set.
	StatementQuery StatementKind = "query"

	// StatementCreateTable materializes an intermediate result.
	StatementCreateTable StatementKind = "create_table"

	// StatementDropTable clears a staging table before overwrite.
	StatementDropTable StatementKind = "drop_table"
)

// Statement is one entry of a rendered statement sequence.
type Statement struct {
	// SQL is the statement text.
	SQL string

	// Kind categorizes the statement.
	Kind StatementKind

	// Table names the affected staging table for DDL statements.
	Table string
}

// RenderOptions controls one rendering pass.
type RenderOptions struct {
	// Limit caps the final result's row count; 0 means no cap. When the
	// dialect allows it, the limit is also pushed into table-source
	// subqueries for cheap previews.
	Limit int

	// Using restricts the final output to these columns; nil or empty
	// means all of the root node's columns.
	Using []string

	// NameGen supplies aliases for this pass. When nil a fresh
	// generator is used. Never share one generator across passes.
	NameGen *NameGen
}

// Render compiles a tree to its ordered statement sequence. The final
// statement is always a pure SELECT; any statements before it are the
// DDL for materialize boundaries, in execution order.
func Render(n relop.Node, d dialect.Options, opts RenderOptions) ([]Statement, error) {
	gen := opts.NameGen
	if gen == nil {
		gen = NewNameGen("")
	}
	r := &renderer{d: d, gen: gen, limit: opts.Limit}
	wrap := opts.Limit > 0

	// An order_by root carries the limit itself; an outer wrapper would
	// not guarantee the subquery's ordering survives.
	if ob, ok := n.(*relop.OrderByNode); ok && opts.Limit > 0 {
		effective := ob.Limit
		if effective == 0 || opts.Limit < effective {
			effective = opts.Limit
		}
		capped, err := relop.OrderBy(ob.Source, ob.Columns, effective)
		if err != nil {
			return nil, err
		}
		n = capped
		wrap = false
	}

	sql, err := r.render(n, opts.Using)
	if err != nil {
		return nil, err
	}
	if wrap {
		alias := gen.Next()
		sql = fmt.Sprintf("SELECT *\nFROM (\n%s\n) %s\nLIMIT %d", indent(sql), alias, opts.Limit)
	}
	return append(r.stmts, Statement{SQL: sql, Kind: StatementQuery}), nil
}

type renderer struct {
	d     dialect.Options
	gen   *NameGen
	limit int
	stmts []Statement
}

// render returns the SELECT text for one node, appending DDL statements
// for any materialize boundaries beneath it.
func (r *renderer) render(n relop.Node, using []string) (string, error) {
	childSets, err := relop.ColumnsUsed(n, using)
	if err != nil {
		return "", err
	}
	out := using
	if len(out) == 0 {
		out = n.ColumnNames()
	}

	switch x := n.(type) {
	case *relop.TableSourceNode:
		sql := fmt.Sprintf("SELECT %s\nFROM %s", r.quoteList(out), r.d.QuoteIdent(x.Table))
		if r.limit > 0 && r.d.AllowLimitPush {
			sql += fmt.Sprintf("\nLIMIT %d", r.limit)
		}
		return sql, nil

	case *relop.SelectRowsNode:
		inner, alias, err := r.renderChild(x.Source, childSets[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("SELECT %s\nFROM (\n%s\n) %s\nWHERE %s",
			r.quoteList(out), inner, alias, r.exprSQL(x.Predicate, nil)), nil

	case *relop.MaterializeNode:
		return r.renderMaterialize(x, childSets[0], out)

	case *relop.SelectColumnsNode, *relop.DropColumnsNode:
		inner, alias, err := r.renderChild(n.Children()[0], childSets[0])
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("SELECT %s\nFROM (\n%s\n) %s", r.quoteList(out), inner, alias), nil

	case *relop.RenameColumnsNode:
		inner, alias, err := r.renderChild(x.Source, childSets[0])
		if err != nil {
			return "", err
		}
		back := map[string]string{}
		for old, nw := range x.Renames {
			back[nw] = old
		}
		items := make([]string, len(out))
		for i, c := range out {
			if old, ok := back[c]; ok {
				items[i] = fmt.Sprintf("%s AS %s", r.d.QuoteIdent(old), r.d.QuoteIdent(c))
			} else {
				items[i] = r.d.QuoteIdent(c)
			}
		}
		return fmt.Sprintf("SELECT %s\nFROM (\n%s\n) %s", strings.Join(items, ", "), inner, alias), nil

	case *relop.ExtendNode:
		inner, alias, err := r.renderChild(x.Source, childSets[0])
		if err != nil {
			return "", err
		}
		computed := map[string]relop.Expr{}
		for _, a := range x.Assignments {
			computed[a.Name] = a.Expr
		}
		items := make([]string, len(out))
		for i, c := range out {
			if e, ok := computed[c]; ok {
				items[i] = fmt.Sprintf("%s AS %s", r.exprSQL(e, x.PartitionBy), r.d.QuoteIdent(c))
			} else {
				items[i] = r.d.QuoteIdent(c)
			}
		}
		return fmt.Sprintf("SELECT %s\nFROM (\n%s\n) %s", strings.Join(items, ", "), inner, alias), nil

	case *relop.NormalizeColsNode:
		inner, alias, err := r.renderChild(x.Source, childSets[0])
		if err != nil {
			return "", err
		}
		items := make([]string, len(out))
		for i, c := range out {
			if c == x.Column {
				q := r.d.QuoteIdent(c)
				items[i] = fmt.Sprintf("%s / SUM(%s) OVER (%s) AS %s", q, q, r.partitionSQL(x.PartitionBy), q)
			} else {
				items[i] = r.d.QuoteIdent(c)
			}
		}
		return fmt.Sprintf("SELECT %s\nFROM (\n%s\n) %s", strings.Join(items, ", "), inner, alias), nil

	case *relop.PickTopKNode:
		inner, innerAlias, err := r.renderChild(x.Source, childSets[0])
		if err != nil {
			return "", err
		}
		rankCol := r.gen.Next()
		outerAlias := r.gen.Next()
		orderItems := make([]string, len(x.RevOrderBy))
		for i, c := range x.RevOrderBy {
			orderItems[i] = r.d.QuoteIdent(c) + " DESC"
		}
		window := "ORDER BY " + strings.Join(orderItems, ", ")
		if len(x.PartitionBy) > 0 {
			window = r.partitionSQL(x.PartitionBy) + " " + window
		}
		ranked := fmt.Sprintf("SELECT %s, ROW_NUMBER() OVER (%s) AS %s\nFROM (\n%s\n) %s",
			r.quoteList(childSets[0]),
			window,
			r.d.QuoteIdent(rankCol),
			inner, innerAlias)
		// The cut compares the generated row number, never LIMIT, so it
		// applies within each partition.
		cut := fmt.Sprintf("%s <= %d", r.d.QuoteIdent(rankCol), x.K)
		if x.K == 1 {
			cut = fmt.Sprintf("%s = 1", r.d.QuoteIdent(rankCol))
		}
		return fmt.Sprintf("SELECT %s\nFROM (\n%s\n) %s\nWHERE %s",
			r.quoteList(out), indent(ranked), outerAlias, cut), nil

	case *relop.OrderByNode:
		inner, alias, err := r.renderChild(x.Source, childSets[0])
		if err != nil {
			return "", err
		}
		sql := fmt.Sprintf("SELECT %s\nFROM (\n%s\n) %s\nORDER BY %s",
			r.quoteList(out), inner, alias, r.quoteList(x.Columns))
		if x.Limit > 0 {
			sql += fmt.Sprintf("\nLIMIT %d", x.Limit)
		}
		return sql, nil

	case *relop.JoinNode:
		leftSQL, leftAlias, err := r.renderChild(x.Left, childSets[0])
		if err != nil {
			return "", err
		}
		rightSQL, rightAlias, err := r.renderChild(x.Right, childSets[1])
		if err != nil {
			return "", err
		}
		leftHave := map[string]bool{}
		for _, c := range x.Left.ColumnNames() {
			leftHave[c] = true
		}
		items := make([]string, len(out))
		for i, c := range out {
			if leftHave[c] {
				items[i] = leftAlias + "." + r.d.QuoteIdent(c)
			} else {
				items[i] = rightAlias + "." + r.d.QuoteIdent(c)
			}
		}
		conds := make([]string, len(x.Keys))
		for i, k := range x.Keys {
			conds[i] = fmt.Sprintf("%s.%s = %s.%s",
				leftAlias, r.d.QuoteIdent(k.Left), rightAlias, r.d.QuoteIdent(k.Right))
		}
		return fmt.Sprintf("SELECT %s\nFROM (\n%s\n) %s\nLEFT JOIN (\n%s\n) %s\nON %s",
			strings.Join(items, ", "), leftSQL, leftAlias,
			rightSQL, rightAlias, strings.Join(conds, " AND ")), nil

	default:
		panic(fmt.Sprintf("relsql: unknown Node type %T", n))
	}
}

// renderMaterialize flushes the child's SQL into DDL statements and
// returns a fresh SELECT against the staging table.
func (r *renderer) renderMaterialize(m *relop.MaterializeNode, childUsing, out []string) (string, error) {
	childSQL, err := r.render(m.Source, childUsing)
	if err != nil {
		return "", err
	}
	qname := r.d.QuoteIdent(m.Table)
	if m.Overwrite {
		r.stmts = append(r.stmts, Statement{
			SQL:   fmt.Sprintf("DROP TABLE IF EXISTS %s", qname),
			Kind:  StatementDropTable,
			Table: m.Table,
		})
	}
	create := "CREATE TABLE"
	if m.Temporary {
		create = "CREATE " + r.d.TempTableKeyword + " TABLE"
	}
	r.stmts = append(r.stmts, Statement{
		SQL:   fmt.Sprintf("%s %s AS\n%s", create, qname, childSQL),
		Kind:  StatementCreateTable,
		Table: m.Table,
	})
	return fmt.Sprintf("SELECT %s\nFROM %s", r.quoteList(out), qname), nil
}

// renderChild renders a child subquery and allocates its alias.
func (r *renderer) renderChild(child relop.Node, using []string) (sql, alias string, err error) {
	inner, err := r.render(child, using)
	if err != nil {
		return "", "", err
	}
	return indent(inner), r.gen.Next(), nil
}

func (r *renderer) quoteList(cols []string) string {
	items := make([]string, len(cols))
	for i, c := range cols {
		items[i] = r.d.QuoteIdent(c)
	}
	return strings.Join(items, ", ")
}

func (r *renderer) partitionSQL(partition []string) string {
	if len(partition) == 0 {
		return ""
	}
	return "PARTITION BY " + r.quoteList(partition)
}

// exprSQL renders an expression. partition supplies the window for any
// aggregate inside it.
func (r *renderer) exprSQL(e relop.Expr, partition []string) string {
	switch x := e.(type) {
	case relop.ColRef:
		return r.d.QuoteIdent(x.Name)
	case relop.Literal:
		return r.literalSQL(x.Value)
	case relop.BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", r.exprSQL(x.Left, partition), x.Op, r.exprSQL(x.Right, partition))
	case relop.AggExpr:
		return fmt.Sprintf("%s(%s) OVER (%s)", x.Fn, r.exprSQL(x.Arg, partition), r.partitionSQL(partition))
	case relop.IsNullExpr:
		if x.Negate {
			return fmt.Sprintf("(%s IS NOT NULL)", r.exprSQL(x.Expr, partition))
		}
		return fmt.Sprintf("(%s IS NULL)", r.exprSQL(x.Expr, partition))
	default:
		panic(fmt.Sprintf("relsql: unknown Expr type %T", e))
	}
}

func (r *renderer) literalSQL(v any) string {
	switch val := v.(type) {
	case nil:
		return "NULL"
	case string:
		return "'" + strings.ReplaceAll(val, "'", "''") + "'"
	case bool:
		return r.d.FormatBool(val)
	case int, int64, float64:
		return fmt.Sprintf("%v", val)
	default:
		// Construction rejects other literal types; keep render total.
		return "NULL"
	}
}

func indent(s string) string {
	return "  " + strings.ReplaceAll(s, "\n", "\n  ")
}
