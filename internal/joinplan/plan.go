package joinplan

import (
	"errors"
	"fmt"
)

// Row is one entry of a join plan: one (table, column) pair.
type Row struct {
	// TableName is the source table.
	TableName string `yaml:"table_name" json:"table_name"`

	// SourceColumn is the column's name in the source table.
	SourceColumn string `yaml:"source_column" json:"source_column"`

	// ResultColumn is the column's name in the joined result. Key
	// columns of different tables share a result name; that shared name
	// is what the join matches on.
	ResultColumn string `yaml:"result_column" json:"result_column"`

	// IsKey marks join-key columns. IsKey implies Want.
	IsKey bool `yaml:"is_key" json:"is_key"`

	// Want marks columns carried into the result.
	Want bool `yaml:"want" json:"want"`
}

// Plan is a flat, ordered join plan. It is designed to be persisted and
// hand-edited outside the system; see Inspect for re-validation.
type Plan struct {
	Rows []Row `yaml:"rows" json:"rows"`
}

// Tables returns the distinct table names in first-seen row order.
func (p *Plan) Tables() []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range p.Rows {
		if !seen[r.TableName] {
			seen[r.TableName] = true
			out = append(out, r.TableName)
		}
	}
	return out
}

// CollisionPolicy decides what happens when a later table's non-key
// column would claim a result name an earlier row already holds.
type CollisionPolicy int

const (
	// CollisionFirstWins demotes the later row to want=false and
	// records the demotion. The first claimant keeps the name.
	CollisionFirstWins CollisionPolicy = iota

	// CollisionReject fails the build, listing every collision.
	CollisionReject
)

// BuildOptions configures Build.
type BuildOptions struct {
	// Collisions selects the tie-break policy for non-key result-name
	// collisions across tables. Default CollisionFirstWins.
	Collisions CollisionPolicy
}

// Demotion records a row that lost a result-name collision and was
// carried with want=false.
type Demotion struct {
	TableName    string
	SourceColumn string
	ResultColumn string
	ClaimedBy    string // table that holds the name
}

// BuildResult is the outcome of a successful Build: the plan plus notes
// about any demoted rows. Demotions are flagged, not hidden.
type BuildResult struct {
	Plan      *Plan
	Demotions []Demotion
}

// UnresolvableKeyError reports a table declaring a key name that no
// earlier table made available.
type UnresolvableKeyError struct {
	TableName string
	Key       string
}

func (e *UnresolvableKeyError) Error() string {
	return fmt.Sprintf("table %s declares key %q which is not available from earlier tables", e.TableName, e.Key)
}

// CollisionError reports rejected result-name collisions under
// CollisionReject.
type CollisionError struct {
	Collisions []Demotion
}

func (e *CollisionError) Error() string {
	return fmt.Sprintf("join plan has %d result-name collisions (first: table %s column %s, claimed by %s)",
		len(e.Collisions), e.Collisions[0].TableName, e.Collisions[0].SourceColumn, e.Collisions[0].ClaimedBy)
}

// Build constructs a join plan from an ordered list of descriptions; the
// first description is the primary table.
//
// The available abstract key set is seeded by the primary table's keys
// and never grows. Every subsequent table's declared keys must already
// be in that set; a key name never seen before fails the build naming
// the key and table, before any rows are produced. An abstract key's
// result column is the primary table's concrete column for it, so every
// table's key columns rename onto the same result names and the chain
// joins on name equality.
//
// Non-key columns are unnested into rows in table order with want=true;
// result-name collisions are resolved per BuildOptions.Collisions.
func Build(descriptions []*TableDescription, opts BuildOptions) (*BuildResult, error) {
	if len(descriptions) == 0 {
		return nil, errors.New("join plan needs at least one table description")
	}
	seenTables := map[string]bool{}
	for _, d := range descriptions {
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if seenTables[d.TableName] {
			return nil, fmt.Errorf("table %s described twice", d.TableName)
		}
		seenTables[d.TableName] = true
	}

	primary := descriptions[0]
	if len(primary.Keys) == 0 {
		return nil, fmt.Errorf("primary table %s declares no keys", primary.TableName)
	}
	available := map[string]bool{}
	keyResult := map[string]string{} // abstract key → result column name
	for _, k := range primary.KeyNames() {
		available[k] = true
		keyResult[k] = primary.Keys[k]
	}

	// Front-loaded: fail on the first unresolvable key before building
	// any rows.
	for _, d := range descriptions[1:] {
		if len(d.Keys) == 0 {
			return nil, fmt.Errorf("table %s declares no keys and cannot be joined", d.TableName)
		}
		for _, k := range d.KeyNames() {
			if !available[k] {
				return nil, &UnresolvableKeyError{TableName: d.TableName, Key: k}
			}
		}
	}

	plan := &Plan{}
	var demotions []Demotion
	claimed := map[string]string{} // result column → claiming table

	for i, d := range descriptions {
		keyForColumn := map[string]string{} // concrete column → abstract key
		for _, k := range d.KeyNames() {
			keyForColumn[d.Keys[k]] = k
		}
		for _, col := range d.Columns {
			if abstract, ok := keyForColumn[col]; ok {
				result := keyResult[abstract]
				if i == 0 {
					claimed[result] = d.TableName
				}
				plan.Rows = append(plan.Rows, Row{
					TableName:    d.TableName,
					SourceColumn: col,
					ResultColumn: result,
					IsKey:        true,
					Want:         true,
				})
				continue
			}
			row := Row{TableName: d.TableName, SourceColumn: col, ResultColumn: col, Want: true}
			if owner, taken := claimed[col]; taken && owner != d.TableName {
				// First table wins; the later row is demoted, never
				// silently overwritten.
				row.Want = false
				demotions = append(demotions, Demotion{
					TableName:    d.TableName,
					SourceColumn: col,
					ResultColumn: col,
					ClaimedBy:    owner,
				})
			} else {
				claimed[col] = d.TableName
			}
			plan.Rows = append(plan.Rows, row)
		}
	}

	if opts.Collisions == CollisionReject && len(demotions) > 0 {
		return nil, &CollisionError{Collisions: demotions}
	}
	return &BuildResult{Plan: plan, Demotions: demotions}, nil
}
