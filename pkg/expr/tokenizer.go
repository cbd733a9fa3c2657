package expr

import (
	"fmt"
	"strings"

	"github.com/goliatone/go-avrocontract/pkg/model"
)

type tokenKind int

const (
	tokenEOF tokenKind = iota
	tokenIdentifier
	tokenString
	tokenNumber
	tokenBool
	tokenNull
	tokenLParen
	tokenRParen
	tokenComma
)

type token struct {
	kind tokenKind
	raw  string
	pos  int
}

func tokenize(input string) ([]token, error) {
	var tokens []token
	i := 0

	next := func() byte {
		if i >= len(input) {
			return 0
		}
		return input[i]
	}

	for i < len(input) {
		ch := next()
		if ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r' {
			i++
			continue
		}

		switch ch {
		case '(':
			tokens = append(tokens, token{kind: tokenLParen, raw: "(", pos: i})
			i++
		case ')':
			tokens = append(tokens, token{kind: tokenRParen, raw: ")", pos: i})
			i++
		case ',':
			tokens = append(tokens, token{kind: tokenComma, raw: ",", pos: i})
			i++
		case '"', '\'':
			start := i
			i++
			escaped := false
			closed := false
			for i < len(input) {
				c := input[i]
				i++
				if escaped {
					escaped = false
					continue
				}
				if c == '\\' {
					escaped = true
					continue
				}
				if c == ch {
					closed = true
					break
				}
			}
			if !closed {
				return nil, &model.ParseError{Input: input, Pos: start, Msg: "unterminated string literal"}
			}
			value, ok := unescape(input[start+1:i-1], ch)
			if !ok {
				return nil, &model.ParseError{Input: input, Pos: start, Msg: "invalid string literal"}
			}
			tokens = append(tokens, token{kind: tokenString, raw: value, pos: start})
		default:
			start := i
			for i < len(input) {
				c := input[i]
				if c == ' ' || c == '\t' || c == '\n' || c == '\r' || c == '(' || c == ')' || c == ',' || c == '\'' || c == '"' {
					break
				}
				i++
			}
			raw := input[start:i]
			switch raw {
			case "true", "false":
				tokens = append(tokens, token{kind: tokenBool, raw: raw, pos: start})
			case "null":
				tokens = append(tokens, token{kind: tokenNull, raw: raw, pos: start})
			default:
				if looksLikeNumber(raw) {
					tokens = append(tokens, token{kind: tokenNumber, raw: raw, pos: start})
				} else {
					tokens = append(tokens, token{kind: tokenIdentifier, raw: raw, pos: start})
				}
			}
		}
	}

	return tokens, nil
}

func looksLikeNumber(raw string) bool {
	if raw == "" {
		return false
	}
	ch := raw[0]
	return (ch >= '0' && ch <= '9') || ch == '-' || ch == '+' || ch == '.'
}

// unescape resolves backslash escapes inside a quoted literal. Unknown escapes
// keep the backslash so regex patterns such as '\d+' survive unchanged.
func unescape(body string, quote byte) (string, bool) {
	if !strings.Contains(body, `\`) {
		return body, !strings.ContainsRune(body, rune(quote))
	}
	var b strings.Builder
	for i := 0; i < len(body); i++ {
		c := body[i]
		if c == quote {
			return "", false
		}
		if c != '\\' || i+1 >= len(body) {
			b.WriteByte(c)
			continue
		}
		i++
		switch n := body[i]; n {
		case '\\', '\'', '"':
			b.WriteByte(n)
		case 'n':
			b.WriteByte('\n')
		case 't':
			b.WriteByte('\t')
		case 'r':
			b.WriteByte('\r')
		default:
			b.WriteByte('\\')
			b.WriteByte(n)
		}
	}
	return b.String(), true
}

type tokenStream struct {
	input  string
	tokens []token
	pos    int
}

func (s *tokenStream) done() bool {
	return s.pos >= len(s.tokens)
}

func (s *tokenStream) peek() token {
	if s.done() {
		return token{kind: tokenEOF, raw: "end of input", pos: len(s.input)}
	}
	return s.tokens[s.pos]
}

func (s *tokenStream) next() token {
	tok := s.peek()
	if !s.done() {
		s.pos++
	}
	return tok
}

func (s *tokenStream) match(kind tokenKind) bool {
	if s.peek().kind != kind {
		return false
	}
	s.pos++
	return true
}

func (s *tokenStream) errorf(format string, args ...any) error {
	return s.errorAt(s.peek().pos, format, args...)
}

func (s *tokenStream) errorAt(pos int, format string, args ...any) error {
	return &model.ParseError{Input: s.input, Pos: pos, Msg: fmt.Sprintf(format, args...)}
}
