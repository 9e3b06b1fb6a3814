package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWalkVarsVisitsOnlyVarsBlocksInOrder(t *testing.T) {
	doc := &Document{
		Blocks: []*Block{
			{Tag: BlockMeta, Entries: []*Entry{{Key: "name", Value: &Scalar{Kind: ScalarString, Str: "x"}}}},
			{Tag: BlockVars, Entries: []*Entry{
				{Key: "a", Value: &Scalar{Kind: ScalarInt, Int: 1}},
				{Key: "b", Value: &Scalar{Kind: ScalarInt, Int: 2}},
			}},
			{Tag: BlockSystem, Entries: []*Entry{{Key: "role", Value: &Scalar{Kind: ScalarString, Str: "y"}}}},
			{Tag: BlockVars, Entries: []*Entry{{Key: "c", Value: &Scalar{Kind: ScalarInt, Int: 3}}}},
		},
	}

	var keys []string
	WalkVars(doc, func(e *Entry) { keys = append(keys, e.Key) })
	assert.Equal(t, []string{"a", "b", "c"}, keys)
}

func TestSpanStringFormatsLineColumn(t *testing.T) {
	s := Span{Line: 3, Column: 7}
	assert.Equal(t, "3:7", s.String())
}

func TestValueImplementationsReturnTheirOwnSpan(t *testing.T) {
	sp := Span{Line: 1, Column: 2}
	var values = []Value{
		&Scalar{Sp: sp},
		&List{Sp: sp},
		&Map{Sp: sp},
		&VarRef{Sp: sp},
		&Pipeline{Sp: sp},
		&Directive{Sp: sp},
	}
	for _, v := range values {
		assert.Equal(t, sp, v.Span())
	}
}
