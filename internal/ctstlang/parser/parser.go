// Package parser implements the recursive-descent parser over the token
// stream produced by internal/ctstlang/lexer, building an internal/ctstlang/ast
// syntax tree and collecting diagnostics rather than failing on the first
// error, per the "full-file validation runs to completion" rule.
package parser

import (
	"fmt"
	"strconv"

	"github.com/containust/containust/internal/ctstlang/ast"
	"github.com/containust/containust/internal/ctstlang/lexer"
)

// Parser consumes a token stream and produces a File plus diagnostics.
type Parser struct {
	file string
	lex  *lexer.Lexer
	tok  lexer.Token
	next lexer.Token

	diags []ast.Diagnostic
}

// New creates a Parser over src, attributed to file for diagnostics.
func New(file, src string) *Parser {
	p := &Parser{file: file, lex: lexer.New(file, src)}
	p.tok = p.lex.Next()
	p.next = p.lex.Next()
	return p
}

// Parse runs the full parse and returns the resulting File (best-effort,
// populated even when diagnostics were emitted) and the diagnostics.
func Parse(file, src string) (*ast.File, []ast.Diagnostic) {
	p := New(file, src)
	f := p.parseFile()
	return f, p.diags
}

func (p *Parser) advance() {
	p.tok = p.next
	p.next = p.lex.Next()
}

func (p *Parser) errf(at lexer.Pos, code, format string, args ...interface{}) {
	p.diags = append(p.diags, ast.Diagnostic{
		Code:     code,
		Severity: ast.SeverityError,
		Pos:      at,
		Message:  sprintf(format, args...),
	})
}

func (p *Parser) warnf(at lexer.Pos, code, format string, args ...interface{}) {
	p.diags = append(p.diags, ast.Diagnostic{
		Code:     code,
		Severity: ast.SeverityWarning,
		Pos:      at,
		Message:  sprintf(format, args...),
	})
}

func sprintf(format string, args ...interface{}) string {
	if len(args) == 0 {
		return format
	}
	return fmt.Sprintf(format, args...)
}

// syncToNextStatement discards tokens until a position a new top-level
// statement can plausibly start, so one malformed statement does not cascade
// into spurious diagnostics for the rest of the file.
func (p *Parser) syncToNextStatement() {
	for p.tok.Kind != lexer.EOF {
		if p.tok.Kind == lexer.Keyword {
			switch p.tok.Literal {
			case "IMPORT", "COMPONENT", "CONNECT", "EXPOSE":
				return
			}
		}
		p.advance()
	}
}

func (p *Parser) parseFile() *ast.File {
	f := &ast.File{Path: p.file}

	for p.tok.Kind != lexer.EOF {
		switch {
		case p.tok.Kind == lexer.Keyword && p.tok.Literal == "IMPORT":
			if imp, ok := p.parseImport(); ok {
				f.Imports = append(f.Imports, imp)
			} else {
				p.syncToNextStatement()
			}
		case p.tok.Kind == lexer.Keyword && p.tok.Literal == "COMPONENT":
			if c, ok := p.parseComponent(); ok {
				f.Components = append(f.Components, c)
			} else {
				p.syncToNextStatement()
			}
		case p.tok.Kind == lexer.Keyword && p.tok.Literal == "CONNECT":
			if c, ok := p.parseConnect(); ok {
				f.Connects = append(f.Connects, c)
			} else {
				p.syncToNextStatement()
			}
		case p.tok.Kind == lexer.Keyword && p.tok.Literal == "EXPOSE":
			if e, ok := p.parseExpose(); ok {
				f.Exposes = append(f.Exposes, e)
			} else {
				p.syncToNextStatement()
			}
		case p.tok.Kind == lexer.Illegal:
			p.errf(p.tok.Pos, "E001", "unexpected token %q", p.tok.Literal)
			p.advance()
		default:
			p.errf(p.tok.Pos, "E001", "expected a top-level statement, found %s", p.tok.Kind)
			p.advance()
		}
	}

	return f
}

func (p *Parser) expect(kind lexer.Kind) (lexer.Token, bool) {
	if p.tok.Kind != kind {
		p.errf(p.tok.Pos, "E001", "expected %s, found %s", kind, p.tok.Kind)
		return lexer.Token{}, false
	}
	tok := p.tok
	p.advance()
	return tok, true
}

func (p *Parser) expectKeyword(kw string) bool {
	if p.tok.Kind != lexer.Keyword || p.tok.Literal != kw {
		p.errf(p.tok.Pos, "E001", "expected keyword %s, found %s %q", kw, p.tok.Kind, p.tok.Literal)
		return false
	}
	p.advance()
	return true
}

func (p *Parser) parseImport() (ast.ImportStmt, bool) {
	at := p.tok.Pos
	p.advance() // IMPORT
	pathTok, ok := p.expect(lexer.String)
	if !ok {
		return ast.ImportStmt{}, false
	}
	imp := ast.ImportStmt{Path: pathTok.Literal, At: at}
	if p.tok.Kind == lexer.Keyword && p.tok.Literal == "AS" {
		p.advance()
		aliasTok, ok := p.expect(lexer.Ident)
		if !ok {
			return ast.ImportStmt{}, false
		}
		imp.Alias = aliasTok.Literal
	}
	return imp, true
}

func (p *Parser) parseComponent() (ast.ComponentDecl, bool) {
	at := p.tok.Pos
	p.advance() // COMPONENT
	nameTok, ok := p.expect(lexer.Ident)
	if !ok {
		return ast.ComponentDecl{}, false
	}
	decl := ast.ComponentDecl{Name: nameTok.Literal, At: at}

	if p.tok.Kind == lexer.Keyword && p.tok.Literal == "FROM" {
		p.advance()
		fromTok, ok := p.expect(lexer.Ident)
		if !ok {
			return ast.ComponentDecl{}, false
		}
		decl.From = fromTok.Literal
	}

	body, ok := p.parseMapBody()
	if !ok {
		return ast.ComponentDecl{}, false
	}
	decl.Body = body
	return decl, true
}

func (p *Parser) parseConnect() (ast.ConnectStmt, bool) {
	at := p.tok.Pos
	p.advance() // CONNECT
	srcTok, ok := p.expect(lexer.Ident)
	if !ok {
		return ast.ConnectStmt{}, false
	}
	if _, ok := p.expect(lexer.Arrow); !ok {
		return ast.ConnectStmt{}, false
	}
	tgtTok, ok := p.expect(lexer.Ident)
	if !ok {
		return ast.ConnectStmt{}, false
	}
	return ast.ConnectStmt{Source: srcTok.Literal, Target: tgtTok.Literal, At: at}, true
}

// parseExpose accepts `EXPOSE <component> <port>` (bare int, meaning
// port:port) and `EXPOSE <component> "<host>:<container>"` (a string
// literal, following the same "host:container" convention as volume
// specifications).
func (p *Parser) parseExpose() (ast.ExposeStmt, bool) {
	at := p.tok.Pos
	p.advance() // EXPOSE

	compTok, ok := p.expect(lexer.Ident)
	if !ok {
		return ast.ExposeStmt{}, false
	}

	switch p.tok.Kind {
	case lexer.Int:
		portTok := p.tok
		p.advance()
		port, _ := strconv.Atoi(portTok.Literal)
		return ast.ExposeStmt{Component: compTok.Literal, HostPort: port, CtrPort: port, At: at}, true
	case lexer.String:
		spec := p.tok.Literal
		p.advance()
		host, ctr, ok := splitHostContainer(spec)
		if !ok {
			p.errf(at, "E006", "invalid EXPOSE specification %q, expected \"host:container\"", spec)
			return ast.ExposeStmt{}, false
		}
		return ast.ExposeStmt{Component: compTok.Literal, HostPort: host, CtrPort: ctr, At: at}, true
	default:
		p.errf(p.tok.Pos, "E006", "expected a port integer or \"host:container\" string after EXPOSE, found %s", p.tok.Kind)
		return ast.ExposeStmt{}, false
	}
}

func splitHostContainer(spec string) (host, ctr int, ok bool) {
	idx := -1
	for i, r := range spec {
		if r == ':' {
			idx = i
			break
		}
	}
	if idx < 0 {
		return 0, 0, false
	}
	h, err1 := strconv.Atoi(spec[:idx])
	c, err2 := strconv.Atoi(spec[idx+1:])
	if err1 != nil || err2 != nil {
		return 0, 0, false
	}
	return h, c, true
}

func (p *Parser) parseMapBody() (ast.MapValue, bool) {
	at := p.tok.Pos
	if _, ok := p.expect(lexer.LBrace); !ok {
		return ast.MapValue{}, false
	}
	m := ast.MapValue{At: at}
	for p.tok.Kind != lexer.RBrace {
		if p.tok.Kind == lexer.EOF {
			p.errf(p.tok.Pos, "E001", "unterminated block, expected '}'")
			return m, false
		}
		assign, ok := p.parseAssignment()
		if !ok {
			return m, false
		}
		m.Entries = append(m.Entries, assign)
	}
	p.advance() // }
	return m, true
}

func (p *Parser) parseAssignment() (ast.Assignment, bool) {
	at := p.tok.Pos
	keyTok, ok := p.expect(lexer.Ident)
	if !ok {
		return ast.Assignment{}, false
	}
	if _, ok := p.expect(lexer.Equals); !ok {
		return ast.Assignment{}, false
	}
	val, ok := p.parseValue()
	if !ok {
		return ast.Assignment{}, false
	}
	return ast.Assignment{Key: keyTok.Literal, Value: val, At: at}, true
}

func (p *Parser) parseValue() (ast.Value, bool) {
	switch p.tok.Kind {
	case lexer.String:
		v := ast.ScalarValue{Kind: ast.StringKind, Str: p.tok.Literal, At: p.tok.Pos}
		p.advance()
		return v, true
	case lexer.Int:
		n, _ := strconv.ParseInt(p.tok.Literal, 10, 64)
		v := ast.ScalarValue{Kind: ast.IntKind, Int: n, At: p.tok.Pos}
		p.advance()
		return v, true
	case lexer.Keyword:
		if p.tok.Literal == "true" || p.tok.Literal == "false" {
			v := ast.ScalarValue{Kind: ast.BoolKind, Bool: p.tok.Literal == "true", At: p.tok.Pos}
			p.advance()
			return v, true
		}
		p.errf(p.tok.Pos, "E006", "unexpected keyword %q in value position", p.tok.Literal)
		return nil, false
	case lexer.LBracket:
		return p.parseList()
	case lexer.LBrace:
		return p.parseMapBody()
	default:
		p.errf(p.tok.Pos, "E001", "expected a value, found %s", p.tok.Kind)
		return nil, false
	}
}

func (p *Parser) parseList() (ast.Value, bool) {
	at := p.tok.Pos
	p.advance() // [
	list := ast.ListValue{At: at}
	for p.tok.Kind != lexer.RBracket {
		if p.tok.Kind == lexer.EOF {
			p.errf(p.tok.Pos, "E001", "unterminated list, expected ']'")
			return list, false
		}
		v, ok := p.parseValue()
		if !ok {
			return list, false
		}
		list.Items = append(list.Items, v)
		if p.tok.Kind == lexer.Comma {
			p.advance()
		} else if p.tok.Kind != lexer.RBracket {
			p.errf(p.tok.Pos, "E001", "expected ',' or ']' in list")
			return list, false
		}
	}
	p.advance() // ]
	return list, true
}
