package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func tokenKinds(src string) []Kind {
	l := New("t.ctst", src)
	var kinds []Kind
	for {
		tok := l.Next()
		kinds = append(kinds, tok.Kind)
		if tok.Kind == EOF {
			return kinds
		}
	}
}

func TestLexEmptySourceYieldsEOF(t *testing.T) {
	assert.Equal(t, []Kind{EOF}, tokenKinds(""))
}

func TestLexIdentifierVsKeyword(t *testing.T) {
	l := New("t.ctst", "COMPONENT hello")
	tok := l.Next()
	assert.Equal(t, Keyword, tok.Kind)
	assert.Equal(t, "COMPONENT", tok.Literal)

	tok = l.Next()
	assert.Equal(t, Ident, tok.Kind)
	assert.Equal(t, "hello", tok.Literal)
}

func TestLexInteger(t *testing.T) {
	l := New("t.ctst", "8080")
	tok := l.Next()
	assert.Equal(t, Int, tok.Kind)
	assert.Equal(t, "8080", tok.Literal)
}

func TestLexStringWithEscapes(t *testing.T) {
	l := New("t.ctst", `"hi\n\t\"there\\"`)
	tok := l.Next()
	assert.Equal(t, String, tok.Kind)
	assert.Equal(t, "hi\n\t\"there\\", tok.Literal)
}

func TestLexUnterminatedStringIsIllegal(t *testing.T) {
	l := New("t.ctst", `"never closed`)
	tok := l.Next()
	assert.Equal(t, Illegal, tok.Kind)
}

func TestLexUnterminatedStringAtNewlineIsIllegal(t *testing.T) {
	l := New("t.ctst", "\"broken\nstill going\"")
	tok := l.Next()
	assert.Equal(t, Illegal, tok.Kind)
}

func TestLexPunctuation(t *testing.T) {
	kinds := tokenKinds("{ } [ ] = , ->")
	assert.Equal(t, []Kind{LBrace, RBrace, LBracket, RBracket, Equals, Comma, Arrow, EOF}, kinds)
}

func TestLexLineCommentIsSkipped(t *testing.T) {
	kinds := tokenKinds("// a comment\nCOMPONENT")
	assert.Equal(t, []Kind{Keyword, EOF}, kinds)
}

func TestLexUnknownCharIsIllegal(t *testing.T) {
	l := New("t.ctst", "@")
	tok := l.Next()
	assert.Equal(t, Illegal, tok.Kind)
	assert.Equal(t, "@", tok.Literal)
}

func TestLexPositionsTrackLineAndColumn(t *testing.T) {
	l := New("t.ctst", "COMPONENT\nfoo")
	tok := l.Next()
	assert.Equal(t, 1, tok.Pos.Line)
	assert.Equal(t, 1, tok.Pos.Column)

	tok = l.Next()
	assert.Equal(t, 2, tok.Pos.Line)
	assert.Equal(t, 1, tok.Pos.Column)
}

func TestLexEOFIsStableAfterEnd(t *testing.T) {
	l := New("t.ctst", "x")
	l.Next() // consume the identifier
	first := l.Next()
	second := l.Next()
	assert.Equal(t, EOF, first.Kind)
	assert.Equal(t, EOF, second.Kind)
}
