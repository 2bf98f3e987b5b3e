package joinplan

import (
	"fmt"

	"github.com/relquery/relq/internal/relop"
)

// ActualizeOptions configures Actualize.
type ActualizeOptions struct {
	// AddIndicatorColumns extends each non-primary table with a boolean
	// indicator column (constant 1 per table, NULL after an unmatched
	// left join) so consumers can distinguish "no matching row" from
	// "matched row with a null value".
	AddIndicatorColumns bool

	// IndicatorFormat names indicator columns from the table name.
	// Default "matched_%s".
	IndicatorFormat string

	// IndicatorNames overrides the format for specific tables, keyed by
	// table name.
	IndicatorNames map[string]string
}

// Actualize folds a plan into one operator tree equivalent to a
// hand-written left-join pipeline.
//
// Rows are grouped by table in first-seen order. Each table becomes a
// table_source narrowed to its wanted columns, renamed onto its result
// names, optionally extended with an indicator column, then left-joined
// onto the accumulated tree keyed by its key rows' result columns.
//
// Plan-level inconsistencies detectable without descriptions (key rows
// with want=false, duplicate wanted result names, non-primary tables
// without keys) fail actualization; run Inspect first for the full
// report against descriptions.
func Actualize(plan *Plan, opts ActualizeOptions) (relop.Node, error) {
	if plan == nil || len(plan.Rows) == 0 {
		return nil, fmt.Errorf("join plan is empty")
	}
	if report := Inspect(nil, plan); !planOnlyClean(report) {
		return nil, fmt.Errorf("join plan is inconsistent:\n%s", report)
	}

	format := opts.IndicatorFormat
	if format == "" {
		format = "matched_%s"
	}

	tables := plan.Tables()
	rowsByTable := map[string][]Row{}
	for _, r := range plan.Rows {
		rowsByTable[r.TableName] = append(rowsByTable[r.TableName], r)
	}

	claimed := map[string]bool{}
	for _, r := range plan.Rows {
		if r.Want {
			claimed[r.ResultColumn] = true
		}
	}

	var acc relop.Node
	for i, table := range tables {
		rows := rowsByTable[table]
		node, keys, err := tableNode(table, rows)
		if err != nil {
			return nil, err
		}

		if opts.AddIndicatorColumns && i > 0 {
			name := fmt.Sprintf(format, table)
			if override, ok := opts.IndicatorNames[table]; ok {
				name = override
			}
			if claimed[name] {
				return nil, fmt.Errorf("indicator column %q for table %s collides with a result column", name, table)
			}
			claimed[name] = true
			node, err = relop.Extend(node, []relop.Assignment{{Name: name, Expr: relop.Lit(int64(1))}}, nil)
			if err != nil {
				return nil, err
			}
		}

		if i == 0 {
			acc = node
			continue
		}
		if len(keys) == 0 {
			return nil, fmt.Errorf("table %s has no key rows and cannot be joined", table)
		}
		pairs := make([]relop.KeyPair, len(keys))
		for j, k := range keys {
			pairs[j] = relop.KeyPair{Left: k, Right: k}
		}
		acc, err = relop.LeftJoin(acc, node, pairs)
		if err != nil {
			return nil, err
		}
	}
	return acc, nil
}

// tableNode builds the narrowed, renamed source node for one table's
// rows and returns the result names of its key columns.
func tableNode(table string, rows []Row) (relop.Node, []string, error) {
	var all, wanted []string
	renames := map[string]string{}
	var keys []string
	for _, r := range rows {
		all = append(all, r.SourceColumn)
		if !r.Want {
			continue
		}
		wanted = append(wanted, r.SourceColumn)
		if r.SourceColumn != r.ResultColumn {
			renames[r.SourceColumn] = r.ResultColumn
		}
		if r.IsKey {
			keys = append(keys, r.ResultColumn)
		}
	}
	if len(wanted) == 0 {
		return nil, nil, fmt.Errorf("table %s has no wanted columns", table)
	}

	var node relop.Node
	node, err := relop.NewTableSource(table, all)
	if err != nil {
		return nil, nil, err
	}
	if len(wanted) < len(all) {
		node, err = relop.SelectColumns(node, wanted)
		if err != nil {
			return nil, nil, err
		}
	}
	if len(renames) > 0 {
		node, err = relop.RenameColumns(node, renames)
		if err != nil {
			return nil, nil, err
		}
	}
	return node, keys, nil
}

// planOnlyClean filters a description-less Inspect report down to the
// problems that do not require descriptions.
func planOnlyClean(report *Report) bool {
	for _, p := range report.Problems {
		if p.Code == ProblemUnknownTable || p.Code == ProblemUnknownColumn {
			continue
		}
		return false
	}
	return true
}
