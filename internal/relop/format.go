package relop

import (
	"fmt"
	"strings"
)

// Format renders a human-readable dump of the tree for documentation and
// debugging. The output is deterministic for a given tree.
func Format(n Node) string {
	var b strings.Builder
	formatNode(&b, n, "", "")
	return b.String()
}

func formatNode(b *strings.Builder, n Node, indent, label string) {
	b.WriteString(indent)
	if label != "" {
		b.WriteString(label)
		b.WriteString(": ")
	}
	b.WriteString(describe(n))
	b.WriteString("\n")
	children := n.Children()
	for i, c := range children {
		lbl := ""
		if len(children) == 2 {
			if i == 0 {
				lbl = "L"
			} else {
				lbl = "R"
			}
		}
		formatNode(b, c, indent+"  ", lbl)
	}
}

// describe returns the single-line summary for one node.
func describe(n Node) string {
	switch x := n.(type) {
	case *TableSourceNode:
		return fmt.Sprintf("table_source(%s; %s)", x.Table, strings.Join(x.Columns, ", "))
	case *SelectRowsNode:
		return fmt.Sprintf("select_rows(%s)", FormatExpr(x.Predicate))
	case *SelectColumnsNode:
		return fmt.Sprintf("select_columns(%s)", strings.Join(x.Keep, ", "))
	case *DropColumnsNode:
		if x.Strict {
			return fmt.Sprintf("drop_columns(%s; strict)", strings.Join(x.Drop, ", "))
		}
		return fmt.Sprintf("drop_columns(%s)", strings.Join(x.Drop, ", "))
	case *RenameColumnsNode:
		var pairs []string
		for _, old := range sortedKeys(x.Renames) {
			pairs = append(pairs, old+" := "+x.Renames[old])
		}
		return fmt.Sprintf("rename_columns(%s)", strings.Join(pairs, ", "))
	case *ExtendNode:
		var parts []string
		for _, a := range x.Assignments {
			parts = append(parts, a.Name+" := "+FormatExpr(a.Expr))
		}
		if len(x.PartitionBy) > 0 {
			return fmt.Sprintf("extend(%s; partition by %s)", strings.Join(parts, ", "), strings.Join(x.PartitionBy, ", "))
		}
		return fmt.Sprintf("extend(%s)", strings.Join(parts, ", "))
	case *NormalizeColsNode:
		return fmt.Sprintf("normalize_cols(%s; partition by %s)", x.Column, strings.Join(x.PartitionBy, ", "))
	case *PickTopKNode:
		return fmt.Sprintf("pick_top_k(k=%d; partition by %s; order by %s desc)",
			x.K, strings.Join(x.PartitionBy, ", "), strings.Join(x.RevOrderBy, ", "))
	case *OrderByNode:
		if x.Limit > 0 {
			return fmt.Sprintf("order_by(%s; limit %d)", strings.Join(x.Columns, ", "), x.Limit)
		}
		return fmt.Sprintf("order_by(%s)", strings.Join(x.Columns, ", "))
	case *JoinNode:
		var pairs []string
		for _, k := range x.Keys {
			pairs = append(pairs, k.Left+" = "+k.Right)
		}
		return fmt.Sprintf("left_join(on %s)", strings.Join(pairs, ", "))
	case *MaterializeNode:
		var flags []string
		if x.Temporary {
			flags = append(flags, "temporary")
		}
		if x.Overwrite {
			flags = append(flags, "overwrite")
		}
		if len(flags) > 0 {
			return fmt.Sprintf("materialize(%s; %s)", x.Table, strings.Join(flags, ", "))
		}
		return fmt.Sprintf("materialize(%s)", x.Table)
	default:
		panic(fmt.Sprintf("relop: unknown Node type %T", n))
	}
}

// FormatExpr renders an expression in the dump notation.
func FormatExpr(e Expr) string {
	switch x := e.(type) {
	case ColRef:
		return x.Name
	case Literal:
		if x.Value == nil {
			return "NULL"
		}
		if s, ok := x.Value.(string); ok {
			return fmt.Sprintf("%q", s)
		}
		return fmt.Sprintf("%v", x.Value)
	case BinaryExpr:
		return fmt.Sprintf("(%s %s %s)", FormatExpr(x.Left), x.Op, FormatExpr(x.Right))
	case AggExpr:
		return fmt.Sprintf("%s(%s)", x.Fn, FormatExpr(x.Arg))
	case IsNullExpr:
		if x.Negate {
			return fmt.Sprintf("(%s IS NOT NULL)", FormatExpr(x.Expr))
		}
		return fmt.Sprintf("(%s IS NULL)", FormatExpr(x.Expr))
	default:
		panic(fmt.Sprintf("relop: unknown Expr type %T", e))
	}
}
