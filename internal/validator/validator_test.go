package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-lang/facet/internal/parser"
)

func TestCheckPassesValidDocument(t *testing.T) {
	doc, diag := parser.Parse("@vars\n  name: \"Ada\" |> trim()\n@system\n  role: $name\n")
	require.Nil(t, diag)
	batch := New().Check(doc)
	assert.Empty(t, batch.Diagnostics)
}

func TestCheckReportsUndefinedVariable(t *testing.T) {
	doc, diag := parser.Parse("@system\n  role: $missing\n")
	require.Nil(t, diag)
	batch := New().Check(doc)
	require.Len(t, batch.Diagnostics, 1)
	assert.Equal(t, "V-UNDEF", string(batch.Diagnostics[0].Code))
}

func TestCheckReportsUnknownLens(t *testing.T) {
	doc, diag := parser.Parse("@vars\n  name: \"Ada\" |> not_a_real_lens()\n")
	require.Nil(t, diag)
	batch := New().Check(doc)
	require.Len(t, batch.Diagnostics, 1)
	assert.Equal(t, "V-LENS", string(batch.Diagnostics[0].Code))
}

func TestCheckReportsDuplicateVariable(t *testing.T) {
	doc, diag := parser.Parse("@vars\n  name: \"a\"\n  name: \"b\"\n")
	require.Nil(t, diag)
	batch := New().Check(doc)
	require.NotEmpty(t, batch.Diagnostics)
	found := false
	for _, d := range batch.Diagnostics {
		if string(d.Code) == "V-DUPLICATE" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestCheckReportsVarTypeMismatch(t *testing.T) {
	doc, diag := parser.Parse("@var_types\n  age: \"int\"\n@vars\n  age: \"not a number\"\n")
	require.Nil(t, diag)
	batch := New().Check(doc)
	require.NotEmpty(t, batch.Diagnostics)
	found := false
	for _, d := range batch.Diagnostics {
		if string(d.Code) == "V-TYPE" {
			found = true
		}
	}
	assert.True(t, found)
}

func TestValidateMocksRejectsPureDeterministicLens(t *testing.T) {
	doc, diag := parser.Parse("@test(name=\"t\")\n  mock:\n    trim: \"x\"\n")
	require.Nil(t, diag)
	require.Len(t, doc.Blocks, 1)
	batch := New().ValidateMocks(doc.Blocks[0].Trial)
	require.Len(t, batch.Diagnostics, 1)
	assert.Equal(t, "V-LENS", string(batch.Diagnostics[0].Code))
}

func TestValidateMocksAllowsNonLensTarget(t *testing.T) {
	doc, diag := parser.Parse("@test(name=\"t\")\n  mock:\n    lookup_weather: \"sunny\"\n")
	require.Nil(t, diag)
	batch := New().ValidateMocks(doc.Blocks[0].Trial)
	assert.Empty(t, batch.Diagnostics)
}
