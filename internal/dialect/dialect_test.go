package dialect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByName(t *testing.T) {
	for name, want := range map[string]string{
		"sqlite":     "sqlite",
		"SQLite3":    "sqlite",
		"postgres":   "postgres",
		"PostgreSQL": "postgres",
		"mysql":      "mysql",
	} {
		opts, ok := ByName(name)
		require.True(t, ok, name)
		assert.Equal(t, want, opts.Name)
	}

	_, ok := ByName("oracle")
	assert.False(t, ok)
}

func TestQuoteANSI(t *testing.T) {
	assert.Equal(t, `"weight"`, QuoteANSI("weight"))
	assert.Equal(t, `"has""quote"`, QuoteANSI(`has"quote`))
}

func TestQuoteANSI_NormalizesUnicode(t *testing.T) {
	// NFD "é" (e + combining acute) quotes identically to NFC "é".
	decomposed := "cafe\u0301"
	composed := "caf\u00e9"
	assert.Equal(t, QuoteANSI(composed), QuoteANSI(decomposed))
}

func TestQuoteBacktick(t *testing.T) {
	assert.Equal(t, "`weight`", QuoteBacktick("weight"))
	assert.Equal(t, "`has``tick`", QuoteBacktick("has`tick"))
}

func TestFormatBool(t *testing.T) {
	assert.Equal(t, "1", SQLite().FormatBool(true))
	assert.Equal(t, "0", SQLite().FormatBool(false))
	assert.Equal(t, "TRUE", Postgres().FormatBool(true))
	assert.Equal(t, "FALSE", Postgres().FormatBool(false))
}

func TestPresets(t *testing.T) {
	assert.True(t, SQLite().AllowLimitPush)
	assert.False(t, MySQL().AllowLimitPush)
	assert.Equal(t, "TEMPORARY", SQLite().TempTableKeyword)
}
