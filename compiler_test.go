package facet

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-lang/facet/internal/render"
	"github.com/facet-lang/facet/internal/resolver"
)

func testCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}

func TestCompileTrimAndUppercasePipeline(t *testing.T) {
	src := "@meta\n  name: \"greeter\"\n@vars\n  greeting: \"  Hello World  \" |> trim() |> uppercase()\n@system\n  text: $greeting\n@user\n  text: \"hi\"\n"
	result, diag := Compile(testCtx(t), src, Options{})
	require.Nil(t, diag)
	require.NotNil(t, result)
	assert.Equal(t, "greeter", result.Payload.MetaName)
	assert.Equal(t, "HELLO WORLD", render.JoinedText(result.Payload.System))
	assert.Equal(t, "hi", render.JoinedText(result.Payload.User))
	assert.Equal(t, "HELLO WORLD", result.Payload.Variables["greeting"])
	assert.True(t, result.Diagnostics.Empty())

	// spec.md §4.6: metadata always carries version/total_tokens/budget/overflow.
	assert.Equal(t, "2.0", result.Payload.Metadata["version"])
	assert.Equal(t, int64(0), result.Payload.Metadata["budget"])
	assert.NotNil(t, result.Payload.Metadata["total_tokens"])
	assert.NotNil(t, result.Payload.Metadata["overflow"])

	// No @vars-produced bindings beyond "greeting" means variables is still
	// present here (greeting was bound), but an unrelated empty-vars compile
	// must omit the key entirely: covered by TestCompileOmitsVariablesWhenNoVarsBlock.
}

func TestCompileOmitsVariablesWhenNoVarsBlock(t *testing.T) {
	src := "@system\n  text: \"hi\"\n@user\n  text: \"hi\"\n"
	result, diag := Compile(testCtx(t), src, Options{})
	require.Nil(t, diag)
	assert.Empty(t, result.Payload.Variables)
	out, err := json.Marshal(result.Payload)
	require.NoError(t, err)
	assert.NotContains(t, string(out), `"variables"`)
}

func TestCompileRejectsDirectVariableCycle(t *testing.T) {
	src := "@vars\n  a: $b\n  b: $a\n@system\n  text: $a\n"
	_, diag := Compile(testCtx(t), src, Options{})
	require.NotNil(t, diag)
	assert.Equal(t, "E-CYCLE", string(diag.Code))
}

func TestCompileAbortsOnUndefinedVariableBeforeEvaluation(t *testing.T) {
	src := "@system\n  text: $missing\n"
	_, diag := Compile(testCtx(t), src, Options{})
	require.NotNil(t, diag)
	assert.Equal(t, "V-UNDEF", string(diag.Code))
}

func TestCompileRejectsTabIndentation(t *testing.T) {
	src := "@system\n\ttext: \"x\"\n"
	_, diag := Compile(testCtx(t), src, Options{})
	require.NotNil(t, diag)
	assert.Equal(t, "P-TAB", string(diag.Code))
}

func TestCompileShrinksContextUnderTightBudget(t *testing.T) {
	src := "@system\n  text: \"critical system text\"\n" +
		"@user\n  text: \"critical user text\"\n" +
		"@context\n  doc: \"this is a long supporting document that should be compressed or dropped under a tight budget\"\n"
	result, diag := Compile(testCtx(t), src, Options{Budget: 20})
	require.Nil(t, diag)
	require.NotNil(t, result.Allocation)
	assert.True(t, result.WasCompressed || result.WasDropped)
	assert.Equal(t, "critical system text", render.JoinedText(result.Payload.System))
	assert.Equal(t, "critical user text", render.JoinedText(result.Payload.User))
}

func TestCompileReturnsBudgetErrorWhenCriticalContentCannotFit(t *testing.T) {
	src := "@system\n  text: \"a very long system prompt that will not fit into a tiny budget at all\"\n" +
		"@user\n  text: \"hi\"\n"
	_, diag := Compile(testCtx(t), src, Options{Budget: 1})
	require.NotNil(t, diag)
	assert.Equal(t, "B-BUDGET", string(diag.Code))
}

type mapLoader map[string]string

func (m mapLoader) Load(_ context.Context, path string) (string, error) {
	src, ok := m[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return src, nil
}

func TestCompileDetectsImportCycle(t *testing.T) {
	loader := mapLoader{
		"a.facet": "@import \"b.facet\"\n",
		"b.facet": "@import \"a.facet\"\n",
	}
	_, diag := Compile(testCtx(t), loader["a.facet"], Options{Path: "a.facet", Loader: loader})
	require.NotNil(t, diag)
	assert.Equal(t, "R-CYCLE", string(diag.Code))
}

func TestCompileMergesImportedVars(t *testing.T) {
	loader := mapLoader{
		"shared.facet": "@vars\n  greeting: \"hi\"\n",
	}
	src := "@import \"shared.facet\"\n@system\n  text: $greeting\n"
	result, diag := Compile(testCtx(t), src, Options{Path: "root.facet", Loader: loader})
	require.Nil(t, diag)
	assert.Equal(t, "hi", render.JoinedText(result.Payload.System))
}

func TestCompileRequiresLoaderWhenImportsPresent(t *testing.T) {
	src := "@import \"shared.facet\"\n"
	_, diag := Compile(testCtx(t), src, Options{Path: "root.facet"})
	require.NotNil(t, diag)
	assert.Equal(t, "R-NOTFOUND", string(diag.Code))
}

func TestCompileRealFileLoader(t *testing.T) {
	var _ resolver.Loader = resolver.FileLoader{}
}
