// Package parser builds an internal/ast.Document from a internal/lexer
// token stream. Grounded on runtime/parser/errors.go's BracketTracker and
// Rust/Clang snippet style (ported into internal/errors.Diagnostic
// already, reused here) and original_source/crates/fct-parser/src/
// parser.rs's grammar shape: block entries, directive calls, lens
// pipelines, `@test` trial bodies.
package parser

import (
	"strconv"

	"github.com/facet-lang/facet/internal/ast"
	"github.com/facet-lang/facet/internal/errors"
	"github.com/facet-lang/facet/internal/lexer"
)

// bracketInfo records an opening delimiter for unclosed-delimiter
// diagnostics, the runtime/parser/errors.go BracketTracker pattern.
type bracketInfo struct {
	tok     lexer.Token
	context string
}

type bracketTracker struct {
	stack []bracketInfo
}

func (bt *bracketTracker) push(tok lexer.Token, context string) {
	bt.stack = append(bt.stack, bracketInfo{tok: tok, context: context})
}

func (bt *bracketTracker) pop() {
	if len(bt.stack) > 0 {
		bt.stack = bt.stack[:len(bt.stack)-1]
	}
}

func (bt *bracketTracker) top() (bracketInfo, bool) {
	if len(bt.stack) == 0 {
		return bracketInfo{}, false
	}
	return bt.stack[len(bt.stack)-1], true
}

// Parser consumes a flat token slice (the lexer is run to completion ahead
// of parsing, matching the teacher's TokenizeToSlice-then-parse style).
type Parser struct {
	tokens  []lexer.Token
	pos     int
	source  string
	brackets bracketTracker
}

// Parse tokenizes and parses src in one call, returning the document or the
// first diagnostic encountered (lexer or parser).
func Parse(src string) (*ast.Document, *errors.Diagnostic) {
	toks, diag := lexer.TokenizeAll(src)
	if diag != nil {
		return nil, diag
	}
	p := &Parser{tokens: toks, source: src}
	return p.parseDocument()
}

func (p *Parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peek(n int) lexer.Token {
	idx := p.pos + n
	if idx >= len(p.tokens) {
		return lexer.Token{Type: lexer.EOF}
	}
	return p.tokens[idx]
}

func (p *Parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) span(tok lexer.Token) ast.Span {
	return ast.Span{Offset: tok.Offset, Line: tok.Line, Column: tok.Column}
}

func (p *Parser) errAt(tok lexer.Token, format string, args ...any) *errors.Diagnostic {
	return errors.At(errors.PUnexpected, errors.Span{Offset: tok.Offset, Line: tok.Line, Column: tok.Column}, p.source, format, args...)
}

func (p *Parser) errUnclosed(open lexer.Token, what string) *errors.Diagnostic {
	return errors.At(errors.PUnclosed, errors.Span{Offset: open.Offset, Line: open.Line, Column: open.Column}, p.source, "unclosed %s opened here", what)
}

func (p *Parser) expect(t lexer.TokenType, what string) (lexer.Token, *errors.Diagnostic) {
	if p.current().Type != t {
		return lexer.Token{}, p.errAt(p.current(), "expected %s, got %s", what, p.current().Type)
	}
	return p.advance(), nil
}

// skipNewlines consumes zero or more NEWLINE tokens.
func (p *Parser) skipNewlines() {
	for p.current().Type == lexer.NEWLINE {
		p.advance()
	}
}

func (p *Parser) parseDocument() (*ast.Document, *errors.Diagnostic) {
	doc := &ast.Document{Span: ast.Span{Line: 1, Column: 1}}
	p.skipNewlines()
	for p.current().Type != lexer.EOF {
		block, diag := p.parseBlock()
		if diag != nil {
			return nil, diag
		}
		doc.Blocks = append(doc.Blocks, block)
		p.skipNewlines()
	}
	if top, ok := p.brackets.top(); ok {
		return nil, p.errUnclosed(top.tok, top.context)
	}
	return doc, nil
}

func (p *Parser) parseBlock() (*ast.Block, *errors.Diagnostic) {
	at, diag := p.expect(lexer.AT, "'@'")
	if diag != nil {
		return nil, diag
	}
	nameTok, diag := p.expect(lexer.IDENT, "block name")
	if diag != nil {
		return nil, diag
	}
	tag := ast.BlockTag(nameTok.Value)

	if tag == ast.BlockImport {
		pathTok, diag := p.expect(lexer.STRING, "import path string")
		if diag != nil {
			return nil, diag
		}
		p.skipNewlines()
		return &ast.Block{Tag: tag, ImportPath: pathTok.Value, Span: p.span(at)}, nil
	}

	// Optional inline directive attrs on the opener, e.g. `@vars(strict=true)`.
	var openerAttrs []ast.NamedArg
	if p.current().Type == lexer.LPAREN {
		var diag *errors.Diagnostic
		openerAttrs, diag = p.parseArgList()
		if diag != nil {
			return nil, diag
		}
	}

	if p.current().Type != lexer.NEWLINE && p.current().Type != lexer.EOF {
		// Single-line block with no body, e.g. `@import "x"` already handled;
		// anything else with no newline/body is malformed.
		return nil, p.errAt(p.current(), "expected newline after '@%s'", nameTok.Value)
	}
	p.skipNewlines()

	if p.current().Type != lexer.INDENT {
		// Empty block body is legal (e.g. an @vars block with nothing set).
		return &ast.Block{Tag: tag, Span: p.span(at)}, nil
	}
	p.advance() // INDENT

	if tag == ast.BlockTest {
		trial, diag := p.parseTrial(openerAttrs)
		if diag != nil {
			return nil, diag
		}
		if _, diag := p.expect(lexer.DEDENT, "dedent"); diag != nil {
			return nil, diag
		}
		return &ast.Block{Tag: tag, Trial: trial, Span: p.span(at)}, nil
	}

	entries, diag := p.parseEntries()
	if diag != nil {
		return nil, diag
	}
	if _, diag := p.expect(lexer.DEDENT, "dedent"); diag != nil {
		return nil, diag
	}
	return &ast.Block{Tag: tag, Entries: entries, Span: p.span(at)}, nil
}

// parseEntries parses `key: value` / `key = value` lines until a DEDENT or
// EOF, including nested-indentation maps.
func (p *Parser) parseEntries() ([]*ast.Entry, *errors.Diagnostic) {
	var entries []*ast.Entry
	for {
		p.skipNewlines()
		if p.current().Type == lexer.DEDENT || p.current().Type == lexer.EOF {
			break
		}
		entry, diag := p.parseEntry()
		if diag != nil {
			return nil, diag
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (p *Parser) parseEntry() (*ast.Entry, *errors.Diagnostic) {
	keyTok := p.current()
	if keyTok.Type != lexer.IDENT && keyTok.Type != lexer.STRING {
		return nil, p.errAt(keyTok, "expected entry key, got %s", keyTok.Type)
	}
	p.advance()

	sep := p.current()
	if sep.Type != lexer.COLON && sep.Type != lexer.EQUALS {
		return nil, p.errAt(sep, "expected ':' or '=' after key %q", keyTok.Value)
	}
	p.advance()

	// A nested block value: `key:` followed directly by NEWLINE+INDENT
	// parses as a Map literal built from the nested entries.
	if p.current().Type == lexer.NEWLINE && p.peekNestedIndent() {
		p.advance() // NEWLINE
		p.advance() // INDENT
		nested, diag := p.parseEntries()
		if diag != nil {
			return nil, diag
		}
		if _, diag := p.expect(lexer.DEDENT, "dedent"); diag != nil {
			return nil, diag
		}
		m := &ast.Map{Sp: p.span(keyTok)}
		for _, e := range nested {
			m.Entries = append(m.Entries, ast.MapEntry{Key: e.Key, Value: e.Value, Sp: e.Span})
		}
		return &ast.Entry{Key: keyTok.Value, Value: m, Span: p.span(keyTok)}, nil
	}

	val, diag := p.parseValueWithPipeline()
	if diag != nil {
		return nil, diag
	}
	if p.current().Type == lexer.NEWLINE {
		p.advance()
	} else if p.current().Type != lexer.DEDENT && p.current().Type != lexer.EOF {
		return nil, p.errAt(p.current(), "expected newline after entry %q", keyTok.Value)
	}
	return &ast.Entry{Key: keyTok.Value, Value: val, Span: p.span(keyTok)}, nil
}

// peekNestedIndent reports whether the token right after the next NEWLINE
// is an INDENT, i.e. whether the current `key:` opens a nested block
// instead of starting a same-line scalar/composite value.
func (p *Parser) peekNestedIndent() bool {
	return p.peek(1).Type == lexer.INDENT
}

func (p *Parser) parseValueWithPipeline() (ast.Value, *errors.Diagnostic) {
	head, diag := p.parsePrimary()
	if diag != nil {
		return nil, diag
	}
	if p.current().Type != lexer.PIPE {
		return head, nil
	}
	pipeline := &ast.Pipeline{Head: head, Sp: head.Span()}
	for p.current().Type == lexer.PIPE {
		p.advance()
		call, diag := p.parseLensCall()
		if diag != nil {
			return nil, diag
		}
		pipeline.Lenses = append(pipeline.Lenses, call)
	}
	return pipeline, nil
}

func (p *Parser) parseLensCall() (*ast.LensCall, *errors.Diagnostic) {
	nameTok, diag := p.expect(lexer.IDENT, "lens name")
	if diag != nil {
		return nil, diag
	}
	call := &ast.LensCall{Name: nameTok.Value, Sp: p.span(nameTok)}
	if p.current().Type != lexer.LPAREN {
		return call, nil
	}
	args, diag := p.parseArgList()
	if diag != nil {
		return nil, diag
	}
	for _, a := range args {
		if a.Name == "" {
			call.Positional = append(call.Positional, a.Value)
		} else {
			call.Named = append(call.Named, a)
		}
	}
	return call, nil
}

// parseArgList parses a parenthesized `(a, b, name=value, ...)` argument
// list shared by directives and lens calls.
func (p *Parser) parseArgList() ([]ast.NamedArg, *errors.Diagnostic) {
	open, diag := p.expect(lexer.LPAREN, "'('")
	if diag != nil {
		return nil, diag
	}
	p.brackets.push(open, "argument list")
	defer p.brackets.pop()

	var args []ast.NamedArg
	for p.current().Type != lexer.RPAREN {
		if p.current().Type == lexer.EOF {
			return nil, p.errUnclosed(open, "'('")
		}
		name := ""
		if p.current().Type == lexer.IDENT && p.peek(1).Type == lexer.EQUALS {
			name = p.advance().Value
			p.advance() // '='
		}
		val, diag := p.parsePrimary()
		if diag != nil {
			return nil, diag
		}
		args = append(args, ast.NamedArg{Name: name, Value: val})
		if p.current().Type == lexer.COMMA {
			p.advance()
			continue
		}
		break
	}
	if _, diag := p.expect(lexer.RPAREN, "')'"); diag != nil {
		return nil, diag
	}
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Value, *errors.Diagnostic) {
	tok := p.current()
	switch tok.Type {
	case lexer.STRING:
		p.advance()
		return &ast.Scalar{Kind: ast.ScalarString, Str: tok.Value, Sp: p.span(tok)}, nil
	case lexer.INT:
		p.advance()
		n, err := strconv.ParseInt(tok.Value, 10, 64)
		if err != nil {
			return nil, p.errAt(tok, "invalid integer literal %q", tok.Value)
		}
		return &ast.Scalar{Kind: ast.ScalarInt, Int: n, Sp: p.span(tok)}, nil
	case lexer.FLOAT:
		p.advance()
		f, err := strconv.ParseFloat(tok.Value, 64)
		if err != nil {
			return nil, p.errAt(tok, "invalid float literal %q", tok.Value)
		}
		return &ast.Scalar{Kind: ast.ScalarFloat, Float: f, Sp: p.span(tok)}, nil
	case lexer.BOOL:
		p.advance()
		return &ast.Scalar{Kind: ast.ScalarBool, Bool: tok.Value == "true", Sp: p.span(tok)}, nil
	case lexer.NULL:
		p.advance()
		return &ast.Scalar{Kind: ast.ScalarNull, Sp: p.span(tok)}, nil
	case lexer.DOLLAR:
		return p.parseVarRef()
	case lexer.LBRACKET:
		return p.parseList()
	case lexer.LBRACE:
		return p.parseMapLiteral()
	case lexer.IDENT:
		if p.peek(1).Type == lexer.LPAREN {
			return p.parseDirective()
		}
		p.advance()
		return &ast.Scalar{Kind: ast.ScalarString, Str: tok.Value, Sp: p.span(tok)}, nil
	default:
		return nil, p.errAt(tok, "unexpected token %s", tok.Type)
	}
}

func (p *Parser) parseVarRef() (ast.Value, *errors.Diagnostic) {
	dollar := p.advance() // '$'
	if p.current().Type == lexer.LBRACE {
		open := p.advance()
		p.brackets.push(open, "variable reference")
		nameTok, diag := p.expect(lexer.IDENT, "variable name")
		if diag != nil {
			return nil, diag
		}
		if _, diag := p.expect(lexer.RBRACE, "'}'"); diag != nil {
			return nil, diag
		}
		p.brackets.pop()
		return &ast.VarRef{Name: nameTok.Value, Sp: p.span(dollar)}, nil
	}
	nameTok, diag := p.expect(lexer.IDENT, "variable name")
	if diag != nil {
		return nil, diag
	}
	return &ast.VarRef{Name: nameTok.Value, Sp: p.span(dollar)}, nil
}

func (p *Parser) parseList() (ast.Value, *errors.Diagnostic) {
	open := p.advance() // '['
	p.brackets.push(open, "list literal")
	defer p.brackets.pop()

	list := &ast.List{Sp: p.span(open)}
	p.skipNewlines()
	for p.current().Type != lexer.RBRACKET {
		if p.current().Type == lexer.EOF {
			return nil, p.errUnclosed(open, "'['")
		}
		val, diag := p.parseValueWithPipeline()
		if diag != nil {
			return nil, diag
		}
		list.Items = append(list.Items, val)
		p.skipNewlines()
		if p.current().Type == lexer.COMMA {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	p.skipNewlines()
	if t := p.current().Type; t == lexer.DEDENT || t == lexer.EOF {
		return nil, p.errUnclosed(open, "'['")
	}
	if _, diag := p.expect(lexer.RBRACKET, "']'"); diag != nil {
		return nil, diag
	}
	return list, nil
}

func (p *Parser) parseMapLiteral() (ast.Value, *errors.Diagnostic) {
	open := p.advance() // '{'
	p.brackets.push(open, "map literal")
	defer p.brackets.pop()

	m := &ast.Map{Sp: p.span(open)}
	p.skipNewlines()
	for p.current().Type != lexer.RBRACE {
		if p.current().Type == lexer.EOF {
			return nil, p.errUnclosed(open, "'{'")
		}
		keyTok, diag := p.expect(lexer.IDENT, "map key")
		if diag != nil {
			if p.current().Type == lexer.STRING {
				keyTok = p.advance()
			} else {
				return nil, diag
			}
		}
		if _, diag := p.expect(lexer.COLON, "':'"); diag != nil {
			return nil, diag
		}
		val, diag := p.parseValueWithPipeline()
		if diag != nil {
			return nil, diag
		}
		m.Entries = append(m.Entries, ast.MapEntry{Key: keyTok.Value, Value: val, Sp: p.span(keyTok)})
		p.skipNewlines()
		if p.current().Type == lexer.COMMA {
			p.advance()
			p.skipNewlines()
			continue
		}
		break
	}
	p.skipNewlines()
	if t := p.current().Type; t == lexer.DEDENT || t == lexer.EOF {
		return nil, p.errUnclosed(open, "'{'")
	}
	if _, diag := p.expect(lexer.RBRACE, "'}'"); diag != nil {
		return nil, diag
	}
	return m, nil
}

func (p *Parser) parseDirective() (ast.Value, *errors.Diagnostic) {
	nameTok := p.advance()
	args, diag := p.parseArgList()
	if diag != nil {
		return nil, diag
	}
	return &ast.Directive{Name: nameTok.Value, Attrs: args, Sp: p.span(nameTok)}, nil
}

// parseTrial parses an `@test` block body into an ast.Trial: entries keyed
// "mock" become MockEntry, entries keyed "assert" become Assertion (parsed
// from a nested map of `path: {operator: expected}`), every other entry is
// a variable/input override.
func (p *Parser) parseTrial(openerAttrs []ast.NamedArg) (*ast.Trial, *errors.Diagnostic) {
	trial := &ast.Trial{}
	for _, a := range openerAttrs {
		if a.Name == "name" {
			if s, ok := a.Value.(*ast.Scalar); ok {
				trial.Name = s.Str
			}
		}
	}
	for {
		p.skipNewlines()
		if p.current().Type == lexer.DEDENT || p.current().Type == lexer.EOF {
			break
		}
		entry, diag := p.parseEntry()
		if diag != nil {
			return nil, diag
		}
		switch entry.Key {
		case "mock":
			m, ok := entry.Value.(*ast.Map)
			if !ok || len(m.Entries) == 0 {
				return nil, p.errAt(lexer.Token{Line: entry.Span.Line, Column: entry.Span.Column}, "mock entry must be a map of target: value")
			}
			for _, me := range m.Entries {
				trial.Mocks = append(trial.Mocks, &ast.MockEntry{Target: me.Key, Value: me.Value, Span: entry.Span})
			}
		case "assert":
			m, ok := entry.Value.(*ast.Map)
			if !ok {
				return nil, p.errAt(lexer.Token{Line: entry.Span.Line, Column: entry.Span.Column}, "assert entry must be a map of path: {op: value}")
			}
			for _, ae := range m.Entries {
				opMap, ok := ae.Value.(*ast.Map)
				if !ok || len(opMap.Entries) == 0 {
					return nil, p.errAt(lexer.Token{Line: entry.Span.Line, Column: entry.Span.Column}, "assertion for %q must be a map of operator: expected", ae.Key)
				}
				first := opMap.Entries[0]
				trial.Assertions = append(trial.Assertions, &ast.Assertion{Path: ae.Key, Operator: first.Key, Expected: first.Value, Span: entry.Span})
			}
		default:
			trial.Overrides = append(trial.Overrides, entry)
		}
	}
	return trial, nil
}
