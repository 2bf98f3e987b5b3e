// Package joinplan turns annotated table descriptions into a validated
// chain of left joins.
//
// The workflow has three steps, each independently usable:
//
//	descriptions → Build    → *Plan (flat, persistable row list)
//	descriptions + *Plan → Inspect → *Report (every violation, one pass)
//	*Plan → Actualize → relop.Node tree
//
// A plan is a flat, ordered sequence of rows - one per (table, column)
// pair - designed to be written to a delimited file or spreadsheet,
// hand-edited, and read back. Because edits happen outside the system,
// Inspect never trusts a plan: it re-validates everything and collects
// every violation in a single pass so the editor gets complete feedback
// in one round trip.
//
// Errors found by Build and Inspect are cheap, local and checkable
// without touching any database; actualization is blocked until the
// plan is clean.
package joinplan
