package joinplan

import (
	"fmt"
	"strings"
)

// ProblemCode categorizes plan validation problems.
type ProblemCode string

const (
	// ProblemUnknownTable flags a row whose table has no description.
	ProblemUnknownTable ProblemCode = "UNKNOWN_TABLE"

	// ProblemUnknownColumn flags a row whose source column is absent
	// from its table's description.
	ProblemUnknownColumn ProblemCode = "UNKNOWN_COLUMN"

	// ProblemKeyNotWanted flags a key row with want=false.
	ProblemKeyNotWanted ProblemCode = "KEY_NOT_WANTED"

	// ProblemDuplicateRow flags a (table, source column) pair appearing
	// twice.
	ProblemDuplicateRow ProblemCode = "DUPLICATE_ROW"

	// ProblemDuplicateResult flags two wanted rows claiming the same
	// result column name.
	ProblemDuplicateResult ProblemCode = "DUPLICATE_RESULT"

	// ProblemEmptyName flags a row with an empty table or column name.
	ProblemEmptyName ProblemCode = "EMPTY_NAME"
)

// Problem is one plan validation finding.
type Problem struct {
	Code    ProblemCode
	Table   string
	Column  string
	Message string
}

func (p Problem) String() string {
	return fmt.Sprintf("%s: table %s, column %s: %s", p.Code, p.Table, p.Column, p.Message)
}

// Report collects every problem found in one validation pass. An empty
// report means the plan is clean.
type Report struct {
	Problems []Problem
}

// OK reports whether the plan passed validation.
func (r *Report) OK() bool { return len(r.Problems) == 0 }

func (r *Report) String() string {
	if r.OK() {
		return "join plan is valid"
	}
	lines := make([]string, len(r.Problems))
	for i, p := range r.Problems {
		lines[i] = p.String()
	}
	return strings.Join(lines, "\n")
}

func (r *Report) add(code ProblemCode, table, column, format string, args ...any) {
	r.Problems = append(r.Problems, Problem{
		Code:    code,
		Table:   table,
		Column:  column,
		Message: fmt.Sprintf(format, args...),
	})
}

// Inspect independently re-validates a (possibly hand-edited) plan
// against the matching descriptions. Unlike Build it is never fail-fast:
// every violation is collected in one pass so a user editing a persisted
// plan gets complete feedback in one round trip.
//
// An empty report means the plan may be actualized.
func Inspect(descriptions []*TableDescription, plan *Plan) *Report {
	report := &Report{}
	byName := map[string]*TableDescription{}
	for _, d := range descriptions {
		byName[d.TableName] = d
	}

	seenRow := map[[2]string]bool{}
	claimed := map[string]string{}
	var primaryTable string
	if len(plan.Rows) > 0 {
		primaryTable = plan.Rows[0].TableName
	}

	for _, row := range plan.Rows {
		if row.TableName == "" || row.SourceColumn == "" {
			report.add(ProblemEmptyName, row.TableName, row.SourceColumn, "row has an empty table or column name")
			continue
		}

		key := [2]string{row.TableName, row.SourceColumn}
		if seenRow[key] {
			report.add(ProblemDuplicateRow, row.TableName, row.SourceColumn, "plan lists this column twice")
		}
		seenRow[key] = true

		desc, ok := byName[row.TableName]
		if !ok {
			report.add(ProblemUnknownTable, row.TableName, row.SourceColumn, "no description for this table")
		} else if missingColumn(desc, row.SourceColumn) {
			report.add(ProblemUnknownColumn, row.TableName, row.SourceColumn,
				"source column not present in table description")
		}

		if row.IsKey && !row.Want {
			report.add(ProblemKeyNotWanted, row.TableName, row.SourceColumn, "key rows must have want=TRUE")
		}

		// Key rows of non-primary tables legitimately share the primary
		// key's result name; the join matches on it and drops the
		// right-side copy. Everything else must claim a unique name.
		if row.Want && !(row.IsKey && row.TableName != primaryTable) {
			if owner, taken := claimed[row.ResultColumn]; taken {
				report.add(ProblemDuplicateResult, row.TableName, row.SourceColumn,
					"result column %q already claimed by table %s", row.ResultColumn, owner)
			} else {
				claimed[row.ResultColumn] = row.TableName
			}
		}
	}
	return report
}

func missingColumn(d *TableDescription, col string) bool {
	for _, c := range d.Columns {
		if c == col {
			return false
		}
	}
	return true
}
