// Package dialect defines per-target SQL dialect options.
//
// Options is a pure, immutable value threaded explicitly through every
// analysis and rendering call; there is no registry or ambient state.
// The package has no database driver dependencies, so dialect data can
// be used by tools that never open a connection.
package dialect

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Options is the immutable per-connection dialect configuration.
type Options struct {
	// Name identifies the dialect ("sqlite", "postgres", "mysql").
	Name string

	// QuoteIdent quotes one identifier for this dialect.
	QuoteIdent func(string) string

	// AllowLimitPush permits pushing a render limit into table-source
	// subqueries. Preview-only: omitting the pushdown still yields a
	// correct, just possibly slower, query.
	AllowLimitPush bool

	// TempTableKeyword is the keyword between CREATE and TABLE for
	// session-scoped staging tables ("TEMPORARY" or "TEMP").
	TempTableKeyword string

	// StrictColumnCheck makes drop operations require every dropped
	// name to exist.
	StrictColumnCheck bool

	// BoolAsInt renders boolean literals as 1/0 instead of TRUE/FALSE.
	BoolAsInt bool
}

// SQLite returns the dialect options for SQLite.
func SQLite() Options {
	return Options{
		Name:              "sqlite",
		QuoteIdent:        QuoteANSI,
		AllowLimitPush:    true,
		TempTableKeyword:  "TEMPORARY",
		StrictColumnCheck: true,
		BoolAsInt:         true,
	}
}

// Postgres returns the dialect options for PostgreSQL.
func Postgres() Options {
	return Options{
		Name:              "postgres",
		QuoteIdent:        QuoteANSI,
		AllowLimitPush:    true,
		TempTableKeyword:  "TEMPORARY",
		StrictColumnCheck: true,
		BoolAsInt:         false,
	}
}

// MySQL returns the dialect options for MySQL.
func MySQL() Options {
	return Options{
		Name:              "mysql",
		QuoteIdent:        QuoteBacktick,
		AllowLimitPush:    false,
		TempTableKeyword:  "TEMPORARY",
		StrictColumnCheck: true,
		BoolAsInt:         true,
	}
}

// ByName returns the preset options for a dialect name, and whether the
// name is known.
func ByName(name string) (Options, bool) {
	switch strings.ToLower(name) {
	case "sqlite", "sqlite3":
		return SQLite(), true
	case "postgres", "postgresql":
		return Postgres(), true
	case "mysql":
		return MySQL(), true
	default:
		return Options{}, false
	}
}

// QuoteANSI quotes an identifier with double quotes, doubling embedded
// quotes. The identifier is NFC-normalized first so that visually
// identical names compare and quote identically.
func QuoteANSI(ident string) string {
	ident = norm.NFC.String(ident)
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// QuoteBacktick quotes an identifier with backticks, doubling embedded
// backticks. NFC-normalized like QuoteANSI.
func QuoteBacktick(ident string) string {
	ident = norm.NFC.String(ident)
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// FormatBool renders a boolean literal for this dialect.
func (o Options) FormatBool(b bool) string {
	if o.BoolAsInt {
		if b {
			return "1"
		}
		return "0"
	}
	if b {
		return "TRUE"
	}
	return "FALSE"
}
