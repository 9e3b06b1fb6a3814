package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-lang/facet/internal/ast"
)

// ignoreSpan treats all ast.Span values as equal; golden structural diffs
// care about tree shape, not byte offsets.
var ignoreSpan = cmp.Comparer(func(a, b ast.Span) bool { return true })

func TestParseSimpleDocument(t *testing.T) {
	src := "@meta\n  name: \"greeter\"\n@system\n  role: \"You are helpful.\"\n"
	doc, diag := Parse(src)
	require.Nil(t, diag)
	require.Len(t, doc.Blocks, 2)

	assert.Equal(t, ast.BlockMeta, doc.Blocks[0].Tag)
	assert.Equal(t, "name", doc.Blocks[0].Entries[0].Key)
	scalar, ok := doc.Blocks[0].Entries[0].Value.(*ast.Scalar)
	require.True(t, ok)
	assert.Equal(t, "greeter", scalar.Str)

	assert.Equal(t, ast.BlockSystem, doc.Blocks[1].Tag)
}

func TestParseImportBlock(t *testing.T) {
	doc, diag := Parse("@import \"shared.facet\"\n")
	require.Nil(t, diag)
	require.Len(t, doc.Blocks, 1)
	assert.Equal(t, ast.BlockImport, doc.Blocks[0].Tag)
	assert.Equal(t, "shared.facet", doc.Blocks[0].ImportPath)
}

func TestParsePipeline(t *testing.T) {
	src := "@vars\n  name: $input |> trim() |> lowercase()\n"
	doc, diag := Parse(src)
	require.Nil(t, diag)

	entry := doc.Blocks[0].Entries[0]
	pipeline, ok := entry.Value.(*ast.Pipeline)
	require.True(t, ok)
	_, ok = pipeline.Head.(*ast.VarRef)
	require.True(t, ok)
	require.Len(t, pipeline.Lenses, 2)
	assert.Equal(t, "trim", pipeline.Lenses[0].Name)
	assert.Equal(t, "lowercase", pipeline.Lenses[1].Name)
}

func TestParseNestedMapViaIndentation(t *testing.T) {
	src := "@vars\n  config:\n    retries: 3\n    timeout: 1.5\n"
	doc, diag := Parse(src)
	require.Nil(t, diag)

	entry := doc.Blocks[0].Entries[0]
	m, ok := entry.Value.(*ast.Map)
	require.True(t, ok)
	require.Len(t, m.Entries, 2)
	assert.Equal(t, "retries", m.Entries[0].Key)
	assert.Equal(t, "timeout", m.Entries[1].Key)
}

func TestParseListLiteral(t *testing.T) {
	src := "@vars\n  tags: [\"a\", \"b\", \"c\"]\n"
	doc, diag := Parse(src)
	require.Nil(t, diag)

	list, ok := doc.Blocks[0].Entries[0].Value.(*ast.List)
	require.True(t, ok)
	require.Len(t, list.Items, 3)
}

func TestParseDirective(t *testing.T) {
	src := "@vars\n  name: input(type=\"string\", required=true)\n"
	doc, diag := Parse(src)
	require.Nil(t, diag)

	d, ok := doc.Blocks[0].Entries[0].Value.(*ast.Directive)
	require.True(t, ok)
	assert.Equal(t, "input", d.Name)
	require.Len(t, d.Attrs, 2)
}

func TestParseUnclosedBracketDiagnostic(t *testing.T) {
	_, diag := Parse("@vars\n  tags: [\"a\", \"b\"\n")
	require.NotNil(t, diag)
	assert.Equal(t, "P-UNCLOSED", string(diag.Code))
}

func TestParsePipelineTreeShapeMatchesGolden(t *testing.T) {
	src := "@vars\n  greeting: $name |> trim() |> uppercase()\n"
	doc, diag := Parse(src)
	require.Nil(t, diag)

	want := &ast.Document{
		Blocks: []*ast.Block{
			{
				Tag: ast.BlockVars,
				Entries: []*ast.Entry{
					{
						Key: "greeting",
						Value: &ast.Pipeline{
							Head: &ast.VarRef{Name: "name"},
							Lenses: []*ast.LensCall{
								{Name: "trim"},
								{Name: "uppercase"},
							},
						},
					},
				},
			},
		},
	}

	if diff := cmp.Diff(want, doc, ignoreSpan); diff != "" {
		t.Errorf("parsed tree mismatch (-want +got):\n%s", diff)
	}
}

func TestParseTestBlock(t *testing.T) {
	src := "@test(name=\"basic\")\n  user_input: \"hi\"\n  mock:\n    trim: \"hi\"\n  assert:\n    system:\n      contains: \"helpful\"\n"
	doc, diag := Parse(src)
	require.Nil(t, diag)
	require.Len(t, doc.Blocks, 1)
	block := doc.Blocks[0]
	require.Equal(t, ast.BlockTest, block.Tag)
	require.NotNil(t, block.Trial)
	assert.Equal(t, "basic", block.Trial.Name)
	require.Len(t, block.Trial.Overrides, 1)
	require.Len(t, block.Trial.Mocks, 1)
	assert.Equal(t, "trim", block.Trial.Mocks[0].Target)
	require.Len(t, block.Trial.Assertions, 1)
	assert.Equal(t, "system", block.Trial.Assertions[0].Path)
	assert.Equal(t, "contains", block.Trial.Assertions[0].Operator)
}
