package joinplan

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// The persisted format is a flat five-column table suitable for storage
// as a delimited file or spreadsheet. Booleans are written TRUE/FALSE so
// spreadsheet edits stay legible. Round-tripping a plan through storage
// and Actualize reproduces semantically identical joins.

var csvHeader = []string{"table_name", "source_column", "result_column", "is_key", "want"}

// WriteCSV writes the plan as delimited rows with a header line.
func (p *Plan) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write plan header: %w", err)
	}
	for _, r := range p.Rows {
		record := []string{r.TableName, r.SourceColumn, r.ResultColumn, formatBool(r.IsKey), formatBool(r.Want)}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write plan row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadCSV parses a plan from delimited rows, preserving row order.
func ReadCSV(r io.Reader) (*Plan, error) {
	cr := csv.NewReader(r)
	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("plan file is empty")
	}
	if !equalHeader(records[0]) {
		return nil, fmt.Errorf("plan header must be %s", strings.Join(csvHeader, ","))
	}
	plan := &Plan{}
	for i, rec := range records[1:] {
		if len(rec) != len(csvHeader) {
			return nil, fmt.Errorf("plan row %d: expected %d fields, got %d", i+2, len(csvHeader), len(rec))
		}
		isKey, err := parseBool(rec[3])
		if err != nil {
			return nil, fmt.Errorf("plan row %d: is_key: %w", i+2, err)
		}
		want, err := parseBool(rec[4])
		if err != nil {
			return nil, fmt.Errorf("plan row %d: want: %w", i+2, err)
		}
		plan.Rows = append(plan.Rows, Row{
			TableName:    rec[0],
			SourceColumn: rec[1],
			ResultColumn: rec[2],
			IsKey:        isKey,
			Want:         want,
		})
	}
	return plan, nil
}

// WriteFile persists the plan to path, choosing the format from the
// extension: .csv, or .yaml/.yml.
func (p *Plan) WriteFile(path string) error {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		return p.WriteCSV(f)
	case ".yaml", ".yml":
		data, err := yaml.Marshal(p)
		if err != nil {
			return fmt.Errorf("marshal plan: %w", err)
		}
		return os.WriteFile(path, data, 0o644)
	default:
		return fmt.Errorf("unsupported plan format %q (use .csv, .yaml or .yml)", ext)
	}
}

// ReadFile loads a plan from path, choosing the format from the
// extension.
func ReadFile(path string) (*Plan, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		return ReadCSV(f)
	case ".yaml", ".yml":
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		plan := &Plan{}
		if err := yaml.Unmarshal(data, plan); err != nil {
			return nil, fmt.Errorf("parse plan: %w", err)
		}
		return plan, nil
	default:
		return nil, fmt.Errorf("unsupported plan format %q (use .csv, .yaml or .yml)", ext)
	}
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

func parseBool(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "TRUE", "T", "1", "YES":
		return true, nil
	case "FALSE", "F", "0", "NO":
		return false, nil
	default:
		return false, fmt.Errorf("not a boolean: %q", s)
	}
}

func equalHeader(rec []string) bool {
	if len(rec) != len(csvHeader) {
		return false
	}
	for i, h := range csvHeader {
		if strings.TrimSpace(strings.ToLower(rec[i])) != h {
			return false
		}
	}
	return true
}
