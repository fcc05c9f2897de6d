package rules

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"

	"github.com/hqc-securechain/qrisk/internal/solidity"
	"github.com/hqc-securechain/qrisk/internal/types"
)

// CustomSpec declares a user rule whose predicate is a CEL expression over
// the variables described by CELVariables.
type CustomSpec struct {
	ID       string
	Kind     string
	Category string
	Expr     string
	// Message may reference {name}, {type} and {callee}.
	Message string
}

// CELVariables documents the activation offered to custom rule expressions.
var CELVariables = map[string]string{
	"name":     "declared identifier (declarations) or callee name (calls)",
	"typeName": "declared type as written, e.g. bytes32 or bytes[]; empty for calls",
	"callee":   "callee identifier or member name; empty for declarations",
	"member":   "true when the callee is a member access such as lib.f",
	"scope":    "state, local, parameter, return, event, error or member",
	"category": "call or declaration",
}

func celEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("typeName", cel.StringType),
		cel.Variable("callee", cel.StringType),
		cel.Variable("member", cel.BoolType),
		cel.Variable("scope", cel.StringType),
		cel.Variable("category", cel.StringType),
	)
}

// Compile turns custom specs into rules. Every expression must type-check to
// bool; the first failure is returned.
func Compile(specs []CustomSpec) ([]Rule, error) {
	if len(specs) == 0 {
		return nil, nil
	}
	env, err := celEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}
	out := make([]Rule, 0, len(specs))
	for _, s := range specs {
		r, err := compileOne(env, s)
		if err != nil {
			return nil, fmt.Errorf("custom rule %q: %w", s.ID, err)
		}
		out = append(out, r)
	}
	return out, nil
}

func compileOne(env *cel.Env, s CustomSpec) (Rule, error) {
	if s.ID == "" {
		return Rule{}, fmt.Errorf("id is required")
	}
	if s.Kind == "" {
		return Rule{}, fmt.Errorf("kind is required")
	}
	if k := types.Kind(s.Kind); k == types.KindEcrecover || k == types.KindKeyExposure {
		return Rule{}, fmt.Errorf("kind %s is reserved for built-in rules", s.Kind)
	}
	cat, err := ParseCategory(s.Category)
	if err != nil {
		return Rule{}, err
	}
	ast, iss := env.Compile(s.Expr)
	if iss != nil && iss.Err() != nil {
		return Rule{}, fmt.Errorf("compile %q: %w", s.Expr, iss.Err())
	}
	if got := ast.OutputType().String(); got != "bool" {
		return Rule{}, fmt.Errorf("expression %q has type %s, want bool", s.Expr, got)
	}
	prg, err := env.Program(ast)
	if err != nil {
		return Rule{}, fmt.Errorf("program: %w", err)
	}
	msg := s.Message
	if msg == "" {
		msg = "⚠ " + s.ID + ": {name}"
	}
	return Rule{
		ID:          s.ID,
		Category:    cat,
		Kind:        types.Kind(s.Kind),
		Description: s.Expr,
		Predicate: func(n *solidity.Node) bool {
			val, _, err := prg.Eval(activation(cat, n))
			if err != nil {
				return false
			}
			b, ok := val.Value().(bool)
			return ok && b
		},
		Message: func(n *solidity.Node) string {
			a := activation(cat, n)
			return strings.NewReplacer(
				"{name}", a["name"].(string),
				"{type}", a["typeName"].(string),
				"{callee}", a["callee"].(string),
			).Replace(msg)
		},
	}, nil
}

func activation(cat Category, n *solidity.Node) map[string]any {
	a := map[string]any{
		"name":     n.Name,
		"typeName": "",
		"callee":   "",
		"member":   false,
		"scope":    "",
		"category": cat.String(),
	}
	switch cat {
	case CategoryCall:
		callee := calleeName(n)
		a["name"] = callee
		a["callee"] = callee
		a["member"] = n.Callee != nil && n.Callee.Kind == solidity.KindMemberAccess
	case CategoryDeclaration:
		a["typeName"] = describeType(n.Type)
		a["scope"] = n.Value
	}
	return a
}
