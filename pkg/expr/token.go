package expr

import (
	"strconv"
	"strings"
	"unicode"
)

// TokenType is the class of an expression token.
type TokenType int

const (
	NUMBER TokenType = iota
	VARIABLE
	OPERATOR
	LPAREN
	RPAREN
)

// String returns a readable name for the token type.
func (t TokenType) String() string {
	switch t {
	case NUMBER:
		return "NUMBER"
	case VARIABLE:
		return "VARIABLE"
	case OPERATOR:
		return "OPERATOR"
	case LPAREN:
		return "LPAREN"
	case RPAREN:
		return "RPAREN"
	default:
		return "UNKNOWN"
	}
}

// Token is a single lexical unit of an expression.
type Token struct {
	Type    TokenType
	Literal string
	Number  float64 // Type == NUMBER のときのみ有効
}

// keyword operators are lexed as variables first and reclassified afterwards
var keywordOperators = map[string]bool{
	"and": true,
	"or":  true,
	"not": true,
}

// Tokenize splits an expression into tokens.
//
// Whitespace and the characters ( ) + - * / % = > < separate tokens. "==",
// ">=" and "<=" are formed greedily. Any other run of characters becomes a
// NUMBER when it parses as a float and a VARIABLE otherwise; variables
// spelled and, or, not are then turned into operators.
func Tokenize(expression string) []Token {
	var tokens []Token
	var buf strings.Builder

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		word := buf.String()
		buf.Reset()
		if n, err := strconv.ParseFloat(word, 64); err == nil {
			tokens = append(tokens, Token{Type: NUMBER, Literal: word, Number: n})
			return
		}
		tokens = append(tokens, Token{Type: VARIABLE, Literal: word})
	}

	runes := []rune(expression)
	for i := 0; i < len(runes); i++ {
		c := runes[i]
		switch {
		case unicode.IsSpace(c):
			flush()
		case c == '(':
			flush()
			tokens = append(tokens, Token{Type: LPAREN, Literal: "("})
		case c == ')':
			flush()
			tokens = append(tokens, Token{Type: RPAREN, Literal: ")"})
		case c == '+' || c == '-' || c == '*' || c == '/' || c == '%':
			flush()
			tokens = append(tokens, Token{Type: OPERATOR, Literal: string(c)})
		case c == '=' || c == '>' || c == '<':
			flush()
			if i+1 < len(runes) && runes[i+1] == '=' {
				tokens = append(tokens, Token{Type: OPERATOR, Literal: string(c) + "="})
				i++
			} else {
				tokens = append(tokens, Token{Type: OPERATOR, Literal: string(c)})
			}
		default:
			buf.WriteRune(c)
		}
	}
	flush()

	for i := range tokens {
		if tokens[i].Type == VARIABLE && keywordOperators[tokens[i].Literal] {
			tokens[i].Type = OPERATOR
		}
	}

	return tokens
}
