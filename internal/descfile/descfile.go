// Package descfile loads hand-declared table descriptions from YAML or
// CUE files.
//
// A description file holds a "tables" list; each entry follows
// joinplan.TableDescription. CUE files get the benefit of CUE's own
// constraint checking before decoding; both formats are re-validated
// with TableDescription.Validate after decoding, since description
// files are edited by hand and never trusted blindly.
package descfile

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"gopkg.in/yaml.v3"

	"github.com/relquery/relq/internal/joinplan"
)

// LoadError reports a failure to load or validate a description file.
type LoadError struct {
	Path    string
	Message string
	Err     error
}

func (e *LoadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Path, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Path, e.Message)
}

func (e *LoadError) Unwrap() error { return e.Err }

// File is the on-disk shape of a description file.
type File struct {
	Tables []*joinplan.TableDescription `yaml:"tables" json:"tables"`
}

// Load reads table descriptions from path. The format is chosen by
// extension: .yaml/.yml or .cue. Every description is validated; order
// is preserved (the first table is the join primary).
func Load(path string) ([]*joinplan.TableDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &LoadError{Path: path, Message: "read description file", Err: err}
	}

	var file File
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, &LoadError{Path: path, Message: "parse YAML", Err: err}
		}
	case ".cue":
		ctx := cuecontext.New()
		v := ctx.CompileBytes(data, cue.Filename(path))
		if err := v.Err(); err != nil {
			return nil, &LoadError{Path: path, Message: "compile CUE", Err: err}
		}
		if err := v.Validate(); err != nil {
			return nil, &LoadError{Path: path, Message: "validate CUE", Err: err}
		}
		if err := v.Decode(&file); err != nil {
			return nil, &LoadError{Path: path, Message: "decode CUE", Err: err}
		}
	default:
		return nil, &LoadError{Path: path, Message: fmt.Sprintf("unsupported format %q (use .yaml, .yml or .cue)", ext)}
	}

	if len(file.Tables) == 0 {
		return nil, &LoadError{Path: path, Message: "no tables declared"}
	}
	for _, d := range file.Tables {
		if err := d.Validate(); err != nil {
			return nil, &LoadError{Path: path, Message: "invalid table description", Err: err}
		}
	}
	return file.Tables, nil
}
