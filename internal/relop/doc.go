// Package relop provides the relational-operator intermediate
// representation (IR) for relq pipelines.
//
// A pipeline is an immutable tree of Node values. Each node is built by a
// constructor that validates its structural invariants immediately:
// unknown columns, duplicate output names, empty required arguments and
// name collisions are all rejected at construction time, never deferred
// to rendering or execution. A well-formed tree therefore renders to SQL
// without any possibility of failure, and the only errors left are those
// the remote engine itself reports.
//
// ARCHITECTURE:
//
// The IR sits between plan construction (package joinplan) and the SQL
// backend (package relsql):
//
//	[join plan] → [relop tree] → [relsql renderer] → []Statement
//
// Node and Expr are sealed interfaces using the marker method pattern.
// Only types in this package implement them, which keeps the variant set
// closed and lets every dispatch site (ColumnsUsed, the renderer, Format)
// switch exhaustively. Adding a variant requires updating each of those
// switches; the default case panics to make a missed site loud.
//
// COLUMN DERIVATION:
//
// Every node caches its output column list at construction. ColumnNames
// never recomputes and never drifts from what the renderer emits, because
// the renderer derives its SELECT lists from the same cached data via
// ColumnsUsed.
//
// CONCURRENCY:
//
// Nodes are immutable after construction. A tree may be shared and read
// by any number of goroutines; rendering passes keep their own state
// (see relsql.NameGen).
package relop
