package relop

import (
	"fmt"
	"sort"
)

// ColumnsUsed is the projection-pushdown pass.
//
// Given the set of output columns a caller wants from n (nil or empty
// means "all"), it validates that every requested name is produced by n
// and returns, per child, the minimal column set n must draw from that
// child: the requested set mapped backward through the node, united with
// every column the node's own predicate, expressions, partition, order
// or join keys reference. The result is one slice per child, each in the
// child's column order.
//
// The pass is monotonic: narrowing the requested set never grows any
// child's set. The renderer applies it recursively so that wide upstream
// tables are narrowed before they participate in any windowed or joined
// operation.
func ColumnsUsed(n Node, using []string) ([][]string, error) {
	out := n.ColumnNames()
	if missing := missingFrom(using, out); len(missing) > 0 {
		return nil, newErr(ErrCodeUnknownColumn, n.Kind(), "requested columns not produced by this node", missing...)
	}
	requested := using
	if len(requested) == 0 {
		requested = out
	}

	switch x := n.(type) {
	case *TableSourceNode:
		return nil, nil

	case *SelectRowsNode:
		need := union(requested, FreeColumns(x.Predicate))
		return [][]string{inChildOrder(x.Source, need)}, nil

	case *SelectColumnsNode:
		return [][]string{inChildOrder(x.Source, requested)}, nil

	case *DropColumnsNode:
		return [][]string{inChildOrder(x.Source, requested)}, nil

	case *RenameColumnsNode:
		// Map output names back to child names.
		back := map[string]string{}
		for old, nw := range x.Renames {
			back[nw] = old
		}
		need := make([]string, 0, len(requested))
		for _, c := range requested {
			if old, ok := back[c]; ok {
				need = append(need, old)
			} else {
				need = append(need, c)
			}
		}
		return [][]string{inChildOrder(x.Source, need)}, nil

	case *ExtendNode:
		computed := map[string]bool{}
		var refs []string
		for _, a := range x.Assignments {
			computed[a.Name] = true
			refs = union(refs, FreeColumns(a.Expr))
		}
		var need []string
		for _, c := range requested {
			// A requested computed column is produced here, not drawn
			// from the child. If an expression still reads the child's
			// value of an overwritten column, refs covers it.
			if computed[c] {
				continue
			}
			need = append(need, c)
		}
		need = union(need, refs)
		need = union(need, x.PartitionBy)
		return [][]string{inChildOrder(x.Source, need)}, nil

	case *NormalizeColsNode:
		need := union(requested, []string{x.Column})
		need = union(need, x.PartitionBy)
		return [][]string{inChildOrder(x.Source, need)}, nil

	case *PickTopKNode:
		need := union(requested, x.PartitionBy)
		need = union(need, x.RevOrderBy)
		return [][]string{inChildOrder(x.Source, need)}, nil

	case *OrderByNode:
		need := union(requested, x.Columns)
		return [][]string{inChildOrder(x.Source, need)}, nil

	case *JoinNode:
		leftHave := columnSet(x.Left.ColumnNames())
		var leftNeed, rightNeed []string
		for _, c := range requested {
			if leftHave[c] {
				leftNeed = append(leftNeed, c)
			} else {
				rightNeed = append(rightNeed, c)
			}
		}
		for _, k := range x.Keys {
			leftNeed = union(leftNeed, []string{k.Left})
			rightNeed = union(rightNeed, []string{k.Right})
		}
		return [][]string{
			inChildOrder(x.Left, leftNeed),
			inChildOrder(x.Right, rightNeed),
		}, nil

	case *MaterializeNode:
		// The staging table stores the child's full output; readers above
		// the boundary narrow against the stored table instead.
		return [][]string{x.Source.ColumnNames()}, nil

	default:
		panic(fmt.Sprintf("relop: unknown Node type %T", n))
	}
}

// inChildOrder filters child's output columns down to need, preserving
// the child's order.
func inChildOrder(child Node, need []string) []string {
	want := columnSet(need)
	var out []string
	for _, c := range child.ColumnNames() {
		if want[c] {
			out = append(out, c)
		}
	}
	return out
}

// union appends the members of b not already in a, preserving order.
func union(a, b []string) []string {
	have := columnSet(a)
	out := copyStrings(a)
	for _, c := range b {
		if !have[c] {
			have[c] = true
			out = append(out, c)
		}
	}
	return out
}

func copyStrings(s []string) []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s...)
}

func columnSet(cols []string) map[string]bool {
	set := make(map[string]bool, len(cols))
	for _, c := range cols {
		set[c] = true
	}
	return set
}

// firstDuplicate returns the first name appearing twice in cols, or "".
func firstDuplicate(cols []string) string {
	seen := map[string]bool{}
	for _, c := range cols {
		if seen[c] {
			return c
		}
		seen[c] = true
	}
	return ""
}

// missingFrom returns the members of want absent from have, in want
// order.
func missingFrom(want, have []string) []string {
	set := columnSet(have)
	var out []string
	for _, c := range want {
		if !set[c] {
			out = append(out, c)
		}
	}
	return out
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
