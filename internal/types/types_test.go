package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDescriptorStringRendersContainerShapes(t *testing.T) {
	assert.Equal(t, "list<string>", ListOf(Primitive(KindString)).String())
	assert.Equal(t, "map<int>", MapOf(Primitive(KindInt)).String())

	s := Struct([]string{"name", "age"}, map[string]*Field{
		"name": {Type: Primitive(KindString)},
		"age":  {Type: Primitive(KindInt), Optional: true},
	})
	assert.Equal(t, "struct{name: string, age?: int}", s.String())
}

func TestEqualIgnoresConstraints(t *testing.T) {
	min := 1.0
	a := &Descriptor{Kind: KindInt, Constraints: &Constraints{Min: &min}}
	b := Primitive(KindInt)
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(Primitive(KindInt), Primitive(KindString)))
}

func TestEqualRecursesIntoContainers(t *testing.T) {
	a := ListOf(MapOf(Primitive(KindString)))
	b := ListOf(MapOf(Primitive(KindString)))
	c := ListOf(MapOf(Primitive(KindInt)))
	assert.True(t, Equal(a, b))
	assert.False(t, Equal(a, c))
}

func TestMakeUnionCollapsesDuplicates(t *testing.T) {
	d := MakeUnion([]*Descriptor{Primitive(KindString), Primitive(KindString)})
	assert.Equal(t, KindString, d.Kind)
}

func TestMakeUnionKeepsDistinctMembersSorted(t *testing.T) {
	d := MakeUnion([]*Descriptor{Primitive(KindBool), Primitive(KindString)})
	require.Equal(t, KindUnion, d.Kind)
	require.Len(t, d.Members, 2)
	assert.Equal(t, KindString, d.Members[0].Kind)
	assert.Equal(t, KindBool, d.Members[1].Kind)
}

func TestToJSONSchemaAppliesConstraints(t *testing.T) {
	minLen := 3
	d := &Descriptor{Kind: KindString, Constraints: &Constraints{MinLength: &minLen}}
	schema := d.ToJSONSchema()
	assert.Equal(t, "string", schema["type"])
	assert.Equal(t, 3, schema["minLength"])
}

func TestValidateAcceptsAndRejectsAgainstStringSchema(t *testing.T) {
	minLen := 3
	d := &Descriptor{Kind: KindString, Constraints: &Constraints{MinLength: &minLen}}
	require.NoError(t, d.Validate("urn:test-ok", "hello"))
	assert.Error(t, d.Validate("urn:test-bad", "ab"))
}
