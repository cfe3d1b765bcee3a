// Package policy provides intent execution authorization against the
// user's central company rules.
package policy

import (
	"fmt"
	"strings"
)

// Decision is the result of an authority evaluation.
type Decision struct {
	Allowed          bool
	RequiresApproval bool
	Reason           string
}

// Effect is what a matched rule does to the checked action.
type Effect string

const (
	EffectDeny            Effect = "deny"
	EffectRequireApproval Effect = "require_approval"
)

// Rule is one structured authority predicate extracted from central
// rule text. Central rules express authority through literal markers,
// e.g. "disallow update hr" or "approval delete accounts". Scope holds
// everything after the action up to the end of the marker's line; a
// checked department matches when it is a prefix of Scope, which keeps
// multi-word departments ("dev team") and trailing prose working.
type Rule struct {
	Effect Effect
	Action string
	Scope  string
}

// RuleSet holds the typed rules extracted from a user's central rule
// documents.
type RuleSet struct {
	rules []Rule
}

var markerKeywords = []struct {
	keyword string
	effect  Effect
}{
	{"disallow ", EffectDeny},
	{"approval ", EffectRequireApproval},
}

// Compile extracts typed rules from central rule documents. Document
// order is irrelevant since all live documents participate. Matching
// is case-insensitive; markers must use single spaces and fit on one
// line.
func Compile(texts []string) RuleSet {
	text := strings.ToLower(strings.Join(texts, "\n"))
	var rules []Rule
	for _, kw := range markerKeywords {
		for pos := 0; ; {
			i := strings.Index(text[pos:], kw.keyword)
			if i < 0 {
				break
			}
			start := pos + i + len(kw.keyword)
			pos = start
			tail := text[start:]
			if nl := strings.IndexByte(tail, '\n'); nl >= 0 {
				tail = tail[:nl]
			}
			sp := strings.IndexByte(tail, ' ')
			if sp <= 0 {
				continue
			}
			rules = append(rules, Rule{Effect: kw.effect, Action: tail[:sp], Scope: tail[sp+1:]})
		}
	}
	return RuleSet{rules: rules}
}

// Evaluate decides whether an (action, department) pair may execute.
// A deny rule always wins over an approval rule; absence of both means
// allowed with no approval needed.
func (rs RuleSet) Evaluate(action, department string) Decision {
	action = strings.ToLower(action)
	department = strings.ToLower(department)
	if rs.match(EffectDeny, action, department) {
		return Decision{Reason: "Disallowed by central rules markers."}
	}
	if rs.match(EffectRequireApproval, action, department) {
		return Decision{RequiresApproval: true, Reason: "Approval required by central rules markers."}
	}
	return Decision{Allowed: true, Reason: "Allowed (no blocking markers found)."}
}

func (rs RuleSet) match(effect Effect, action, department string) bool {
	for _, r := range rs.rules {
		if r.Effect == effect && r.Action == action && strings.HasPrefix(r.Scope, department) {
			return true
		}
	}
	return false
}

// CentralRuleSource supplies the live central rule documents for a user.
type CentralRuleSource interface {
	LatestCentralRules(user string) ([]string, error)
}

// Gate answers allow/deny/approval-required for intent execution.
// It only prevents execution; free-text nuance in the rules is left to
// the LLM when it drafts the user-facing explanation.
type Gate struct {
	rules CentralRuleSource
}

// NewGate creates an authority gate over a central rule source.
func NewGate(rules CentralRuleSource) *Gate {
	return &Gate{rules: rules}
}

// Check evaluates the user's central rules for the given pair.
func (g *Gate) Check(user, department, action string) (Decision, error) {
	texts, err := g.rules.LatestCentralRules(user)
	if err != nil {
		return Decision{}, fmt.Errorf("load central rules: %w", err)
	}
	return Compile(texts).Evaluate(action, department), nil
}
