package model

import (
	"fmt"
	"sort"

	json "github.com/goccy/go-json"
)

// CategoryBody is the only rule/generator category produced for message
// contents.
const CategoryBody = "body"

// Matching rule names.
const (
	RuleNotEmpty    = "not-empty"
	RuleRegex       = "regex"
	RuleType        = "type"
	RuleNumber      = "number"
	RuleInteger     = "integer"
	RuleDecimal     = "decimal"
	RuleBoolean     = "boolean"
	RuleEquality    = "equality"
	RuleSemver      = "semver"
	RuleContentType = "content-type"
	RuleDateTime    = "datetime"
	RuleDate        = "date"
	RuleTime        = "time"
	RuleInclude     = "include"
)

// Generator type tags.
const (
	GeneratorDateTime      = "DateTime"
	GeneratorDate          = "Date"
	GeneratorTime          = "Time"
	GeneratorProviderState = "ProviderState"
	GeneratorUUID          = "Uuid"
	GeneratorRandomInt     = "RandomInt"
	GeneratorRandomDecimal = "RandomDecimal"
	GeneratorRandomString  = "RandomString"
	GeneratorRandomBoolean = "RandomBoolean"
)

// MatchingRule is a path-scoped assertion replayed by a verifier. Values holds
// the rule parameters (regex, value, format, ...).
type MatchingRule struct {
	Type   string
	Values map[string]any
}

// NewRule builds a rule with the supplied parameter pairs.
func NewRule(kind string, params ...any) MatchingRule {
	return MatchingRule{Type: kind, Values: pairs(params)}
}

// Param returns the parameter stored under key.
func (r MatchingRule) Param(key string) (any, bool) {
	v, ok := r.Values[key]
	return v, ok
}

// MarshalJSON renders the rule as {"match": type, ...params}.
func (r MatchingRule) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(r.Values)+1)
	for k, v := range r.Values {
		out[k] = v
	}
	out["match"] = r.Type
	return json.Marshal(out)
}

func (r *MatchingRule) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, _ := raw["match"].(string)
	if kind == "" {
		return fmt.Errorf("model: matching rule missing \"match\"")
	}
	delete(raw, "match")
	r.Type = kind
	r.Values = nil
	if len(raw) > 0 {
		r.Values = raw
	}
	return nil
}

// Generator is a path-scoped instruction for producing a fresh value.
type Generator struct {
	Type   string
	Values map[string]any
}

// NewGenerator builds a generator with the supplied parameter pairs.
func NewGenerator(kind string, params ...any) Generator {
	return Generator{Type: kind, Values: pairs(params)}
}

// Param returns the parameter stored under key.
func (g Generator) Param(key string) (any, bool) {
	v, ok := g.Values[key]
	return v, ok
}

// MarshalJSON renders the generator as {"type": type, ...params}.
func (g Generator) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(g.Values)+1)
	for k, v := range g.Values {
		out[k] = v
	}
	out["type"] = g.Type
	return json.Marshal(out)
}

func (g *Generator) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	kind, _ := raw["type"].(string)
	if kind == "" {
		return fmt.Errorf("model: generator missing \"type\"")
	}
	delete(raw, "type")
	g.Type = kind
	g.Values = nil
	if len(raw) > 0 {
		g.Values = raw
	}
	return nil
}

func pairs(params []any) map[string]any {
	if len(params) == 0 {
		return nil
	}
	if len(params)%2 != 0 {
		panic("model: odd number of parameter arguments")
	}
	out := make(map[string]any, len(params)/2)
	for i := 0; i < len(params); i += 2 {
		key, ok := params[i].(string)
		if !ok {
			panic(fmt.Sprintf("model: parameter key %v is not a string", params[i]))
		}
		out[key] = params[i+1]
	}
	return out
}

// RuleSet maps category to the ordered path index of matching rules.
type RuleSet map[string]*PathIndex[MatchingRule]

// Category returns the index for name, creating it when absent. A nil set
// yields an empty, detached index.
func (s RuleSet) Category(name string) *PathIndex[MatchingRule] {
	idx, ok := s[name]
	if !ok || idx == nil {
		idx = NewPathIndex[MatchingRule]()
		if s != nil {
			s[name] = idx
		}
	}
	return idx
}

// Body returns the rules recorded for the message body.
func (s RuleSet) Body() *PathIndex[MatchingRule] {
	return s.Category(CategoryBody)
}

// Categories lists category names in sorted order.
func (s RuleSet) Categories() []string {
	return sortedKeys(s)
}

// GeneratorSet maps category to the ordered path index of generators.
type GeneratorSet map[string]*PathIndex[Generator]

func (s GeneratorSet) Category(name string) *PathIndex[Generator] {
	idx, ok := s[name]
	if !ok || idx == nil {
		idx = NewPathIndex[Generator]()
		if s != nil {
			s[name] = idx
		}
	}
	return idx
}

func (s GeneratorSet) Body() *PathIndex[Generator] {
	return s.Category(CategoryBody)
}

func (s GeneratorSet) Categories() []string {
	return sortedKeys(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
