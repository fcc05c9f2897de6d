// Package rules holds the quantum-risk pattern table and the matcher that
// applies it to a parsed contract.
package rules

import (
	"fmt"
	"sort"

	"github.com/hqc-securechain/qrisk/internal/solidity"
	"github.com/hqc-securechain/qrisk/internal/types"
)

// Category selects which nodes a rule is offered.
type Category int

const (
	// CategoryCall rules see function-call expressions.
	CategoryCall Category = iota + 1
	// CategoryDeclaration rules see variable declarations of every scope:
	// state variables, locals, parameters, return values, event and error
	// fields, struct members.
	CategoryDeclaration
)

func (c Category) String() string {
	switch c {
	case CategoryCall:
		return "call"
	case CategoryDeclaration:
		return "declaration"
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// ParseCategory is the inverse of Category.String.
func ParseCategory(s string) (Category, error) {
	switch s {
	case "call":
		return CategoryCall, nil
	case "declaration":
		return CategoryDeclaration, nil
	}
	return 0, fmt.Errorf("unknown rule category %q (want call or declaration)", s)
}

// Rule is one row of the pattern table.
type Rule struct {
	ID          string
	Category    Category
	Kind        types.Kind
	Description string
	Predicate   func(n *solidity.Node) bool
	Message     func(n *solidity.Node) string
}

// Result is the outcome of matching one tree. Counts[k] always equals the
// number of Findings of kind k.
type Result struct {
	Findings []types.Finding
	Counts   types.Counts
}

// Messages returns the finding messages in traversal order. Never nil.
func (r Result) Messages() []string {
	out := make([]string, 0, len(r.Findings))
	for _, f := range r.Findings {
		out = append(out, f.Message)
	}
	return out
}

// Matcher applies a fixed rule set during a single pre-order traversal.
type Matcher struct {
	rules []Rule
	calls []Rule
	decls []Rule
}

// NewMatcher validates rs and drops the rules named in disabled. Unknown or
// duplicate IDs are errors so typos in configuration do not pass silently.
func NewMatcher(rs []Rule, disabled []string) (*Matcher, error) {
	off := map[string]bool{}
	for _, id := range disabled {
		off[id] = true
	}
	m := &Matcher{}
	seen := map[string]bool{}
	for _, r := range rs {
		if r.ID == "" || r.Predicate == nil || r.Message == nil {
			return nil, fmt.Errorf("rule %q: id, predicate and message are required", r.ID)
		}
		if seen[r.ID] {
			return nil, fmt.Errorf("duplicate rule id %q", r.ID)
		}
		seen[r.ID] = true
		if off[r.ID] {
			delete(off, r.ID)
			continue
		}
		switch r.Category {
		case CategoryCall:
			m.calls = append(m.calls, r)
		case CategoryDeclaration:
			m.decls = append(m.decls, r)
		default:
			return nil, fmt.Errorf("rule %q: unknown category %v", r.ID, r.Category)
		}
		m.rules = append(m.rules, r)
	}
	if len(off) > 0 {
		unknown := make([]string, 0, len(off))
		for id := range off {
			unknown = append(unknown, id)
		}
		sort.Strings(unknown)
		return nil, fmt.Errorf("cannot disable unknown rules: %v", unknown)
	}
	return m, nil
}

// Rules returns the enabled rules in table order.
func (m *Matcher) Rules() []Rule { return append([]Rule(nil), m.rules...) }

// Match walks root and returns a fresh Result. It never mutates the tree and
// keeps no state between calls.
func (m *Matcher) Match(root *solidity.Node) Result {
	res := Result{Findings: []types.Finding{}, Counts: types.Counts{}}
	solidity.Inspect(root, func(n *solidity.Node) bool {
		switch n.Kind {
		case solidity.KindFunctionCall:
			m.apply(&res, m.calls, n)
		case solidity.KindVariableDeclaration:
			m.apply(&res, m.decls, n)
		}
		return true
	})
	return res
}

func (m *Matcher) apply(res *Result, rs []Rule, n *solidity.Node) {
	for _, r := range rs {
		if !r.Predicate(n) {
			continue
		}
		f := types.Finding{
			Kind:    r.Kind,
			RuleID:  r.ID,
			Message: r.Message(n),
			Entity:  entity(n),
		}
		if n.Pos.Line > 0 {
			f.Location = &types.Location{Line: n.Pos.Line, Column: n.Pos.Column}
		}
		res.Findings = append(res.Findings, f)
		res.Counts[r.Kind]++
	}
}

// entity names the matched thing: a declaration's identifier or a call's
// callee.
func entity(n *solidity.Node) string {
	if n.Kind == solidity.KindFunctionCall {
		return calleeName(n)
	}
	return n.Name
}

func calleeName(call *solidity.Node) string {
	if call.Callee == nil {
		return ""
	}
	switch call.Callee.Kind {
	case solidity.KindIdentifier, solidity.KindMemberAccess, solidity.KindElementaryType:
		return call.Callee.Name
	}
	return ""
}

// describeType renders a declared type the way it reads in source, e.g.
// bytes32, bytes[] or mapping.
func describeType(t *solidity.Node) string {
	if t == nil {
		return ""
	}
	switch t.Kind {
	case solidity.KindArrayType:
		return describeType(t.Type) + "[]"
	case solidity.KindMapping:
		return "mapping"
	case solidity.KindFunctionType:
		return "function"
	}
	return t.Name
}
