package relop

import "fmt"

// Expr represents a scalar expression over a node's columns.
//
// This is a sealed interface - only types in this package implement it.
// Expressions carry their column references structurally, so the free
// variables of a predicate or computed column are known at construction
// time without parsing any SQL text.
//
// Expression types:
//   - ColRef: reference to a column of the child node
//   - Literal: constant value (string, int64, float64, bool, nil)
//   - BinaryExpr: infix operator over two expressions
//   - AggExpr: windowed aggregate (legal only under a partition)
//   - IsNullExpr: IS NULL / IS NOT NULL test
type Expr interface {
	exprNode() // Marker method - seals interface to this package
}

// ColRef references a column of the current node's child.
type ColRef struct {
	Name string
}

func (ColRef) exprNode() {}

// Literal is a constant value.
//
// Supported value types: string, int, int64, float64, bool and nil
// (rendered as NULL). Any other type is rejected when the enclosing node
// is constructed.
type Literal struct {
	Value any
}

func (Literal) exprNode() {}

// BinaryExpr applies an infix operator to two sub-expressions.
//
// Op is emitted verbatim between the rendered operands, so it must be a
// valid SQL operator for the target dialect ("=", "<>", "<", ">", "+",
// "-", "*", "/", "AND", "OR", ...).
type BinaryExpr struct {
	Op    string
	Left  Expr
	Right Expr
}

func (BinaryExpr) exprNode() {}

// AggExpr is a windowed aggregate over the enclosing node's partition.
//
// Fn is the aggregate function name (SUM, COUNT, MIN, MAX, AVG). An
// AggExpr is only legal inside an Extend that declares a PartitionBy;
// constructing an Extend with an aggregate and no partition fails.
type AggExpr struct {
	Fn  string
	Arg Expr
}

func (AggExpr) exprNode() {}

// IsNullExpr tests an expression for NULL.
type IsNullExpr struct {
	Expr   Expr
	Negate bool // true renders IS NOT NULL
}

func (IsNullExpr) exprNode() {}

// Col returns a column reference.
func Col(name string) ColRef { return ColRef{Name: name} }

// Lit returns a literal expression.
func Lit(v any) Literal { return Literal{Value: v} }

// Eq returns an equality comparison.
func Eq(left, right Expr) BinaryExpr { return BinaryExpr{Op: "=", Left: left, Right: right} }

// And folds expressions into a conjunction. At least one expression is
// required; a single expression is returned unchanged.
func And(exprs ...Expr) Expr {
	if len(exprs) == 0 {
		return nil
	}
	out := exprs[0]
	for _, e := range exprs[1:] {
		out = BinaryExpr{Op: "AND", Left: out, Right: e}
	}
	return out
}

// FreeColumns returns the distinct column names referenced by e, in
// first-mention order.
func FreeColumns(e Expr) []string {
	var out []string
	seen := map[string]bool{}
	walkExpr(e, func(sub Expr) {
		if c, ok := sub.(ColRef); ok && !seen[c.Name] {
			seen[c.Name] = true
			out = append(out, c.Name)
		}
	})
	return out
}

// ContainsAgg reports whether e contains a windowed aggregate.
func ContainsAgg(e Expr) bool {
	found := false
	walkExpr(e, func(sub Expr) {
		if _, ok := sub.(AggExpr); ok {
			found = true
		}
	})
	return found
}

// walkExpr visits every sub-expression of e in pre-order.
func walkExpr(e Expr, fn func(Expr)) {
	if e == nil {
		return
	}
	fn(e)
	switch x := e.(type) {
	case ColRef, Literal:
		// leaves
	case BinaryExpr:
		walkExpr(x.Left, fn)
		walkExpr(x.Right, fn)
	case AggExpr:
		walkExpr(x.Arg, fn)
	case IsNullExpr:
		walkExpr(x.Expr, fn)
	default:
		panic(fmt.Sprintf("relop: unknown Expr type %T", e))
	}
}

// checkExpr validates an expression for use in node kind on the given
// child columns. allowAgg permits windowed aggregates.
func checkExpr(kind string, e Expr, childCols []string, allowAgg bool) *ConstructionError {
	if e == nil {
		return newErr(ErrCodeBadExpression, kind, "expression must not be nil")
	}
	have := columnSet(childCols)
	var cerr *ConstructionError
	walkExpr(e, func(sub Expr) {
		if cerr != nil {
			return
		}
		switch x := sub.(type) {
		case ColRef:
			if x.Name == "" {
				cerr = newErr(ErrCodeBadExpression, kind, "empty column reference")
			} else if !have[x.Name] {
				cerr = newErr(ErrCodeUnknownColumn, kind, "expression references column not produced by source", x.Name)
			}
		case Literal:
			switch x.Value.(type) {
			case nil, string, int, int64, float64, bool:
			default:
				cerr = newErr(ErrCodeBadExpression, kind, fmt.Sprintf("unsupported literal type %T", x.Value))
			}
		case BinaryExpr:
			if x.Op == "" {
				cerr = newErr(ErrCodeBadExpression, kind, "empty binary operator")
			}
		case AggExpr:
			if !allowAgg {
				cerr = newErr(ErrCodeBadExpression, kind, fmt.Sprintf("aggregate %s requires a partition", x.Fn))
			} else if x.Fn == "" {
				cerr = newErr(ErrCodeBadExpression, kind, "empty aggregate function")
			}
		case IsNullExpr:
			// inner expression visited by the walk
		}
	})
	return cerr
}
