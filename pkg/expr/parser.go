package expr

import (
	"fmt"
	"mime"
	"regexp"
	"strconv"
	"strings"

	"github.com/goliatone/go-avrocontract/pkg/model"
	"github.com/goliatone/go-avrocontract/pkg/timefmt"
)

// Parse reads exactly one expression.
func Parse(text string) (Expression, error) {
	list, err := ParseList(text)
	if err != nil {
		return Expression{}, err
	}
	if len(list) != 1 {
		return Expression{}, &model.ParseError{Input: text, Pos: -1, Msg: fmt.Sprintf("expected one expression, found %d", len(list))}
	}
	return list[0], nil
}

// ParseList reads one or more comma-separated call expressions, or a single
// literal when text is not a call.
func ParseList(text string) ([]Expression, error) {
	trimmed := strings.TrimSpace(text)
	if !looksLikeCall(trimmed) {
		return []Expression{Literal(unquoteLiteral(trimmed))}, nil
	}

	tokens, err := tokenize(text)
	if err != nil {
		return nil, err
	}
	stream := &tokenStream{input: text, tokens: tokens}

	var out []Expression
	for {
		e, err := parseCall(stream)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
		if stream.done() {
			return out, nil
		}
		if !stream.match(tokenComma) {
			return nil, stream.errorf("expected ',' between expressions, found %q", stream.peek().raw)
		}
	}
}

// Example returns the concrete example carried by a list of definitions: the
// last definition that supplies one wins.
func Example(list []Expression) (string, bool) {
	for i := len(list) - 1; i >= 0; i-- {
		if list[i].HasValue {
			return list[i].Value, true
		}
	}
	return "", false
}

func looksLikeCall(s string) bool {
	i := 0
	for i < len(s) && isIdentByte(s[i]) {
		i++
	}
	if i == 0 {
		return false
	}
	for i < len(s) && s[i] == ' ' {
		i++
	}
	return i < len(s) && s[i] == '(' && strings.HasSuffix(s, ")")
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func unquoteLiteral(s string) string {
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		if v, ok := unescape(s[1:len(s)-1], s[0]); ok {
			return v
		}
	}
	return s
}

func parseCall(stream *tokenStream) (Expression, error) {
	name := stream.next()
	if name.kind != tokenIdentifier {
		return Expression{}, stream.errorAt(name.pos, "expected function name, found %q", name.raw)
	}
	if !stream.match(tokenLParen) {
		return Expression{}, stream.errorf("expected '(' after %s", name.raw)
	}
	args, err := parseArgs(stream)
	if err != nil {
		return Expression{}, err
	}

	switch name.raw {
	case "notEmpty":
		if len(args) != 1 {
			return Expression{}, stream.errorAt(name.pos, "notEmpty expects 1 argument, got %d", len(args))
		}
		return Expression{Kind: KindNotEmpty, Value: args[0].raw, HasValue: true}, nil
	case "fromProviderState":
		if len(args) != 2 {
			return Expression{}, stream.errorAt(name.pos, "fromProviderState expects 2 arguments, got %d", len(args))
		}
		return Expression{Kind: KindProviderState, Param: args[0].raw, Value: args[1].raw, HasValue: true}, nil
	case "matching":
		return parseMatching(stream, name, args)
	default:
		return Expression{}, stream.errorAt(name.pos, "unknown function %q", name.raw)
	}
}

func parseArgs(stream *tokenStream) ([]token, error) {
	var args []token
	if stream.match(tokenRParen) {
		return args, nil
	}
	for {
		tok := stream.next()
		switch tok.kind {
		case tokenString, tokenNumber, tokenBool, tokenIdentifier:
			args = append(args, tok)
		case tokenNull:
			return nil, stream.errorAt(tok.pos, "null is not a valid argument")
		case tokenEOF:
			return nil, stream.errorAt(tok.pos, "unexpected end of expression")
		default:
			return nil, stream.errorAt(tok.pos, "unexpected %q in argument list", tok.raw)
		}
		if stream.match(tokenRParen) {
			return args, nil
		}
		if !stream.match(tokenComma) {
			return nil, stream.errorf("expected ',' or ')', found %q", stream.peek().raw)
		}
	}
}

func parseMatching(stream *tokenStream, name token, args []token) (Expression, error) {
	if len(args) < 2 {
		return Expression{}, stream.errorAt(name.pos, "matching expects at least 2 arguments, got %d", len(args))
	}
	kind := Matcher(args[0].raw)
	rest := args[1:]
	pos := args[0].pos

	arity := func(want ...int) error {
		for _, n := range want {
			if len(rest) == n {
				return nil
			}
		}
		return stream.errorAt(pos, "matching(%s) expects %s, got %d", kind, describeArity(want), len(rest))
	}

	e := Expression{Kind: KindMatching, Matcher: kind}
	switch kind {
	case MatchRegex:
		if err := arity(2); err != nil {
			return Expression{}, err
		}
		e.Param, e.Value, e.HasValue = rest[0].raw, rest[1].raw, true
		re, err := regexp.Compile("^(?:" + e.Param + ")$")
		if err != nil {
			return Expression{}, stream.errorAt(rest[0].pos, "invalid regex %q: %v", e.Param, err)
		}
		if !re.MatchString(e.Value) {
			return Expression{}, stream.errorAt(rest[1].pos, "example %q does not match regex %q", e.Value, e.Param)
		}
	case MatchType, MatchEqualTo, MatchInclude:
		if err := arity(1); err != nil {
			return Expression{}, err
		}
		e.Value, e.HasValue = rest[0].raw, true
	case MatchInteger:
		if err := arity(1); err != nil {
			return Expression{}, err
		}
		e.Value, e.HasValue = rest[0].raw, true
		if !isInteger(e.Value) {
			return Expression{}, stream.errorAt(rest[0].pos, "%q is not an integer", e.Value)
		}
	case MatchNumber, MatchDecimal:
		if err := arity(1); err != nil {
			return Expression{}, err
		}
		e.Value, e.HasValue = rest[0].raw, true
		if _, err := strconv.ParseFloat(e.Value, 64); err != nil {
			return Expression{}, stream.errorAt(rest[0].pos, "%q is not a number", e.Value)
		}
	case MatchBoolean:
		if err := arity(1); err != nil {
			return Expression{}, err
		}
		e.Value, e.HasValue = rest[0].raw, true
		if e.Value != "true" && e.Value != "false" {
			return Expression{}, stream.errorAt(rest[0].pos, "%q is not a boolean", e.Value)
		}
	case MatchSemver:
		if err := arity(1); err != nil {
			return Expression{}, err
		}
		e.Value, e.HasValue = rest[0].raw, true
		if !ValidSemver(e.Value) {
			return Expression{}, stream.errorAt(rest[0].pos, "%q is not a semantic version", e.Value)
		}
	case MatchContentType:
		if err := arity(2); err != nil {
			return Expression{}, err
		}
		e.Param, e.Value, e.HasValue = rest[0].raw, rest[1].raw, true
		if _, _, err := mime.ParseMediaType(e.Param); err != nil {
			return Expression{}, stream.errorAt(rest[0].pos, "invalid content type %q: %v", e.Param, err)
		}
	case MatchDateTime, MatchDate, MatchTime:
		if err := arity(1, 2); err != nil {
			return Expression{}, err
		}
		e.Param = rest[0].raw
		if e.Param == "" {
			e.Param = defaultFormat(kind)
		}
		if _, err := timefmt.Layout(e.Param); err != nil {
			return Expression{}, stream.errorAt(rest[0].pos, "%v", err)
		}
		if len(rest) == 2 {
			e.Value, e.HasValue = rest[1].raw, true
			if _, err := timefmt.Parse(e.Param, e.Value); err != nil {
				return Expression{}, stream.errorAt(rest[1].pos, "%v", err)
			}
		}
	default:
		return Expression{}, stream.errorAt(pos, "unknown matcher %q", kind)
	}
	return e, nil
}

func describeArity(want []int) string {
	parts := make([]string, len(want))
	for i, n := range want {
		parts[i] = strconv.Itoa(n + 1)
	}
	return strings.Join(parts, " or ") + " arguments"
}

func isInteger(s string) bool {
	if s == "" {
		return false
	}
	if s[0] == '-' || s[0] == '+' {
		s = s[1:]
	}
	return s != "" && strings.Trim(s, "0123456789") == ""
}

var semverPattern = regexp.MustCompile(`^(0|[1-9]\d*)\.(0|[1-9]\d*)\.(0|[1-9]\d*)` +
	`(?:-((?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*)(?:\.(?:0|[1-9]\d*|\d*[a-zA-Z-][0-9a-zA-Z-]*))*))?` +
	`(?:\+([0-9a-zA-Z-]+(?:\.[0-9a-zA-Z-]+)*))?$`)

// ValidSemver reports whether s is a semantic version (2.0.0 grammar).
func ValidSemver(s string) bool {
	return semverPattern.MatchString(s)
}
