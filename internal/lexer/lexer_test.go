package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenizeAllBasicEntry(t *testing.T) {
	toks, diag := TokenizeAll("@system\n  role: \"assistant\"\n")
	require.Nil(t, diag)

	var types []TokenType
	for _, tok := range toks {
		types = append(types, tok.Type)
	}
	assert.Equal(t, []TokenType{AT, IDENT, NEWLINE, INDENT, IDENT, COLON, STRING, NEWLINE, DEDENT, EOF}, types)
}

func TestTokenizeAllRejectsTabs(t *testing.T) {
	_, diag := TokenizeAll("@system\n\trole: \"x\"\n")
	require.NotNil(t, diag)
	assert.Equal(t, "P-TAB", string(diag.Code))
}

func TestTokenizeAllRejectsOddIndent(t *testing.T) {
	_, diag := TokenizeAll("@system\n   role: \"x\"\n")
	require.NotNil(t, diag)
	assert.Equal(t, "P-INDENT", string(diag.Code))
}

func TestTokenizeAllPipeArrow(t *testing.T) {
	toks, diag := TokenizeAll("@vars\n  name: $input |> trim()\n")
	require.Nil(t, diag)

	var hasPipe, hasDollar bool
	for _, tok := range toks {
		if tok.Type == PIPE {
			hasPipe = true
		}
		if tok.Type == DOLLAR {
			hasDollar = true
		}
	}
	assert.True(t, hasPipe)
	assert.True(t, hasDollar)
}

func TestTokenizeAllUnterminatedString(t *testing.T) {
	_, diag := TokenizeAll("@system\n  role: \"unterminated\n")
	require.NotNil(t, diag)
	assert.Equal(t, "P-UNCLOSED", string(diag.Code))
}

func TestTokenizeAllNumberAndBoolAndNull(t *testing.T) {
	toks, diag := TokenizeAll("@vars\n  n: 42\n  f: 3.5\n  b: true\n  z: null\n")
	require.Nil(t, diag)

	var kinds []TokenType
	for _, tok := range toks {
		switch tok.Type {
		case INT, FLOAT, BOOL, NULL:
			kinds = append(kinds, tok.Type)
		}
	}
	assert.Equal(t, []TokenType{INT, FLOAT, BOOL, NULL}, kinds)
}

func TestTokenizeAllLineComment(t *testing.T) {
	toks, diag := TokenizeAll("@vars # a comment\n  n: 1\n")
	require.Nil(t, diag)
	assert.Equal(t, AT, toks[0].Type)
	assert.Equal(t, IDENT, toks[1].Type)
}
