package joinplan

import (
	"fmt"
	"sort"
)

// TableDescription holds schema and key metadata for one physical or
// logical table.
//
// Descriptions are created by introspecting a live table (see package
// dbexec) or declared by hand (see package descfile). They may be edited
// freely between creation and use; every consumer re-validates and never
// trusts a description blindly.
type TableDescription struct {
	// TableName identifies the table.
	TableName string `yaml:"table_name" json:"table_name"`

	// IsEmpty advises that the table currently holds no rows. Advisory
	// only; never used for correctness decisions.
	IsEmpty bool `yaml:"is_empty,omitempty" json:"is_empty,omitempty"`

	// IndicatorColumn optionally names the indicator column Actualize
	// should add for this table, overriding the format default.
	IndicatorColumn string `yaml:"indicator_column,omitempty" json:"indicator_column,omitempty"`

	// Columns lists the table's column names in order.
	Columns []string `yaml:"columns" json:"columns"`

	// Keys maps abstract key names to concrete column names. Every
	// value must be one of Columns.
	Keys map[string]string `yaml:"keys,omitempty" json:"keys,omitempty"`

	// ColClasses maps column names to declared types. Advisory.
	ColClasses map[string]string `yaml:"col_classes,omitempty" json:"col_classes,omitempty"`
}

// Validate checks a description's internal consistency.
func (d *TableDescription) Validate() error {
	if d.TableName == "" {
		return fmt.Errorf("table description has no table name")
	}
	if len(d.Columns) == 0 {
		return fmt.Errorf("table %s: no columns declared", d.TableName)
	}
	seen := map[string]bool{}
	for _, c := range d.Columns {
		if c == "" {
			return fmt.Errorf("table %s: empty column name", d.TableName)
		}
		if seen[c] {
			return fmt.Errorf("table %s: duplicate column %s", d.TableName, c)
		}
		seen[c] = true
	}
	for _, k := range d.KeyNames() {
		col := d.Keys[k]
		if !seen[col] {
			return fmt.Errorf("table %s: key %s maps to unknown column %s", d.TableName, k, col)
		}
	}
	return nil
}

// KeyNames returns the abstract key names in sorted order, for
// deterministic iteration.
func (d *TableDescription) KeyNames() []string {
	names := make([]string, 0, len(d.Keys))
	for k := range d.Keys {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// IsKeyColumn reports whether col is the concrete column of one of the
// table's keys.
func (d *TableDescription) IsKeyColumn(col string) bool {
	for _, c := range d.Keys {
		if c == col {
			return true
		}
	}
	return false
}
