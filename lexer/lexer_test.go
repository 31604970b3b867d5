package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bqlquery/bql/lexer"
	"github.com/bqlquery/bql/token"
)

func tokenize(t *testing.T, input string) []token.Token {
	t.Helper()
	l := lexer.New(input)
	var toks []token.Token
	for {
		tok := l.Next()
		if tok.Type == token.EOF {
			break
		}
		toks = append(toks, tok)
	}
	return toks
}

func TestLexerModuloNotPlaceholder(t *testing.T) {
	toks := tokenize(t, "value % 2")
	require.Len(t, toks, 3)
	require.Equal(t, token.IDENT, toks[0].Type)
	require.Equal(t, token.PERCENT, toks[1].Type)
	require.Equal(t, token.INT, toks[2].Type)
	require.Equal(t, "2", toks[2].Literal)
}

func TestLexerPositionalPlaceholder(t *testing.T) {
	toks := tokenize(t, "value = %s")
	require.Len(t, toks, 3)
	require.Equal(t, token.PLACEHOLDER, toks[2].Type)
	require.Equal(t, "", toks[2].Literal)
}

func TestLexerNamedPlaceholder(t *testing.T) {
	toks := tokenize(t, "value = %(n)s")
	require.Len(t, toks, 3)
	require.Equal(t, token.PLACEHOLDER, toks[2].Type)
	require.Equal(t, "n", toks[2].Literal)
}

func TestLexerTrailingPercentAtEOF(t *testing.T) {
	toks := tokenize(t, "1 %")
	require.Len(t, toks, 2)
	require.Equal(t, token.PERCENT, toks[1].Type)
}

func TestLexerNumberDecimalDate(t *testing.T) {
	toks := tokenize(t, "42 3.14 2024-01-31")
	require.Len(t, toks, 3)
	require.Equal(t, token.INT, toks[0].Type)
	require.Equal(t, token.DECIMAL, toks[1].Type)
	require.Equal(t, token.DATE, toks[2].Type)
	require.Equal(t, "2024-01-31", toks[2].Literal)
}

func TestLexerStringEscapes(t *testing.T) {
	toks := tokenize(t, `'a\tb'`)
	require.Len(t, toks, 1)
	require.Equal(t, token.STRING, toks[0].Type)
	require.Equal(t, "a\tb", toks[0].Literal)
}

func TestLexerKeywordsCaseInsensitive(t *testing.T) {
	toks := tokenize(t, "SELECT Select select")
	require.Len(t, toks, 3)
	for _, tok := range toks {
		require.Equal(t, token.SELECT, tok.Type)
	}
}

func TestLexerComments(t *testing.T) {
	toks := tokenize(t, "1 -- trailing comment\n+ /* block */ 2")
	require.Len(t, toks, 3)
	require.Equal(t, token.INT, toks[0].Type)
	require.Equal(t, token.PLUS, toks[1].Type)
	require.Equal(t, token.INT, toks[2].Type)
}

func TestLexerMultiCharOperators(t *testing.T) {
	toks := tokenize(t, "<= >= != !~ ?~")
	want := []token.Type{token.LTEQ, token.GTEQ, token.NEQ, token.NOTTILDE, token.CONDTILDE}
	require.Len(t, toks, len(want))
	for i, w := range want {
		require.Equal(t, w, toks[i].Type)
	}
}

func TestLexerHashTableRef(t *testing.T) {
	toks := tokenize(t, "FROM #balances")
	require.Len(t, toks, 3)
	require.Equal(t, token.HASH, toks[1].Type)
	require.Equal(t, token.IDENT, toks[2].Type)
	require.Equal(t, "balances", toks[2].Literal)
}

func TestLexerIllegalByte(t *testing.T) {
	toks := tokenize(t, "1 @ 2")
	require.Len(t, toks, 3)
	require.Equal(t, token.ILLEGAL, toks[1].Type)
}
