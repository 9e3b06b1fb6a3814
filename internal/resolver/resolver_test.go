package resolver

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-lang/facet/internal/ast"
)

type mapLoader map[string]string

func (m mapLoader) Load(_ context.Context, path string) (string, error) {
	src, ok := m[path]
	if !ok {
		return "", fmt.Errorf("no such file: %s", path)
	}
	return src, nil
}

func TestResolveMergesImportedEntriesWithImporterWinning(t *testing.T) {
	loader := mapLoader{
		"shared.facet": "@vars\n  greeting: \"hi\"\n  name: \"shared\"\n",
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	doc, diag := New(loader).Resolve(ctx, "root.facet", "@import \"shared.facet\"\n@vars\n  name: \"root\"\n")
	require.Nil(t, diag)

	var varsBlock *ast.Block
	for _, b := range doc.Blocks {
		if b.Tag == ast.BlockVars {
			varsBlock = b
		}
	}
	require.NotNil(t, varsBlock)

	values := map[string]*ast.Entry{}
	for _, e := range varsBlock.Entries {
		values[e.Key] = e
	}
	require.Contains(t, values, "greeting")
	require.Contains(t, values, "name")
	scalar, ok := values["name"].Value.(*ast.Scalar)
	require.True(t, ok)
	assert.Equal(t, "root", scalar.Str)
}

func TestResolveDetectsImportCycle(t *testing.T) {
	loader := mapLoader{
		"a.facet": "@import \"b.facet\"\n",
		"b.facet": "@import \"a.facet\"\n",
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, diag := New(loader).Resolve(ctx, "a.facet", loader["a.facet"])
	require.NotNil(t, diag)
	assert.Equal(t, "R-CYCLE", string(diag.Code))
}

func TestResolveReportsMissingImport(t *testing.T) {
	loader := mapLoader{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, diag := New(loader).Resolve(ctx, "root.facet", "@import \"missing.facet\"\n")
	require.NotNil(t, diag)
	assert.Equal(t, "R-NOTFOUND", string(diag.Code))
}

func TestResolveExceedsMaxDepth(t *testing.T) {
	loader := mapLoader{}
	for i := 0; i < MaxImportDepth+2; i++ {
		loader[fmt.Sprintf("f%d.facet", i)] = fmt.Sprintf("@import \"f%d.facet\"\n", i+1)
	}
	loader[fmt.Sprintf("f%d.facet", MaxImportDepth+2)] = "@vars\n  x: 1\n"

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, diag := New(loader).Resolve(ctx, "f0.facet", loader["f0.facet"])
	require.NotNil(t, diag)
	assert.Equal(t, "R-DEPTH", string(diag.Code))
}
