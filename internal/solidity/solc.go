package solidity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ParseWithSolc runs solc to obtain the compact AST for a Solidity file and
// converts it into a Tree. Every failure, including a compiler rejection, is
// returned as a *FatalError carrying solc's message.
func ParseWithSolc(ctx context.Context, path, solcPath string) (*Tree, error) {
	if solcPath == "" {
		solcPath = "solc"
	}
	name := filepath.Base(path)
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &FatalError{File: name, Msg: err.Error()}
	}
	src, err := os.ReadFile(abs)
	if err != nil {
		return nil, &FatalError{File: name, Msg: err.Error()}
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, solcPath, "--ast-compact-json", abs)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = err.Error()
		}
		return nil, &FatalError{File: name, Msg: "solc: " + msg}
	}
	return convertCompactAST(name, src, stdout.Bytes())
}

// convertCompactAST maps solc's --ast-compact-json output onto Node. solc
// prints banner lines before the JSON object, so everything before the first
// '{' is dropped.
func convertCompactAST(file string, src, out []byte) (*Tree, error) {
	i := bytes.IndexByte(out, '{')
	if i < 0 {
		return nil, &FatalError{File: file, Msg: "solc produced no AST"}
	}
	var raw map[string]any
	dec := json.NewDecoder(bytes.NewReader(out[i:]))
	if err := dec.Decode(&raw); err != nil {
		return nil, &FatalError{File: file, Msg: fmt.Sprintf("decode solc AST: %v", err)}
	}
	c := &compactConverter{src: src, lines: lineStarts(src)}
	nodes := c.convert(raw, "")
	if len(nodes) != 1 || nodes[0].Kind != KindSourceUnit {
		return nil, &FatalError{File: file, Msg: "solc AST has no SourceUnit root"}
	}
	return &Tree{File: file, Root: nodes[0]}, nil
}

var compactKinds = map[string]NodeKind{
	"SourceUnit":                     KindSourceUnit,
	"PragmaDirective":                KindPragma,
	"ImportDirective":                KindImport,
	"ContractDefinition":             KindContract,
	"FunctionDefinition":             KindFunction,
	"ModifierDefinition":             KindFunction,
	"ModifierInvocation":             KindModifierInvocation,
	"InheritanceSpecifier":           KindModifierInvocation,
	"EventDefinition":                KindEvent,
	"ErrorDefinition":                KindErrorDefinition,
	"StructDefinition":               KindStruct,
	"EnumDefinition":                 KindEnum,
	"EnumValue":                      KindEnumValue,
	"UsingForDirective":              KindUsing,
	"UserDefinedValueTypeDefinition": KindTypeDefinition,
	"VariableDeclaration":            KindVariableDeclaration,
	"ElementaryTypeName":             KindElementaryType,
	"ElementaryTypeNameExpression":   KindElementaryType,
	"UserDefinedTypeName":            KindUserType,
	"IdentifierPath":                 KindUserType,
	"Mapping":                        KindMapping,
	"ArrayTypeName":                  KindArrayType,
	"FunctionTypeName":               KindFunctionType,
	"Block":                          KindBlock,
	"UncheckedBlock":                 KindUnchecked,
	"VariableDeclarationStatement":   KindVariableStatement,
	"ExpressionStatement":            KindExpressionStatement,
	"IfStatement":                    KindIf,
	"ForStatement":                   KindFor,
	"WhileStatement":                 KindWhile,
	"DoWhileStatement":               KindDoWhile,
	"Return":                         KindReturn,
	"EmitStatement":                  KindEmit,
	"RevertStatement":                KindRevert,
	"TryStatement":                   KindTry,
	"TryCatchClause":                 KindCatch,
	"InlineAssembly":                 KindAssembly,
	"Break":                          KindJump,
	"Continue":                       KindJump,
	"Throw":                          KindJump,
	"PlaceholderStatement":           KindEmpty,
	"FunctionCall":                   KindFunctionCall,
	"FunctionCallOptions":            KindCallOptions,
	"MemberAccess":                   KindMemberAccess,
	"IndexAccess":                    KindIndexAccess,
	"IndexRangeAccess":               KindIndexRange,
	"Identifier":                     KindIdentifier,
	"Literal":                        KindLiteral,
	"UnaryOperation":                 KindUnary,
	"BinaryOperation":                KindBinary,
	"Assignment":                     KindAssignment,
	"Conditional":                    KindConditional,
	"NewExpression":                  KindNew,
	"TupleExpression":                KindTuple,
	"OverrideSpecifier":              KindEmpty,
}

// compact AST keys that never hold syntax children
var compactSkipKeys = map[string]bool{
	"documentation":      true,
	"typeDescriptions":   true,
	"AST":                true, // Yul body of InlineAssembly
	"externalReferences": true,
	"pathNode":           true,
}

type compactConverter struct {
	src   []byte
	lines []int
}

func lineStarts(src []byte) []int {
	starts := []int{0}
	for i, b := range src {
		if b == '\n' {
			starts = append(starts, i+1)
		}
	}
	return starts
}

func (c *compactConverter) pos(src any) Pos {
	s, _ := src.(string)
	start, _, _ := strings.Cut(s, ":")
	off, err := strconv.Atoi(start)
	if err != nil || off < 0 {
		return Pos{}
	}
	line := sort.Search(len(c.lines), func(i int) bool { return c.lines[i] > off })
	col := off - c.lines[line-1] + 1
	if off <= len(c.src) {
		col = utf8.RuneCount(c.src[c.lines[line-1]:off]) + 1
	}
	return Pos{Offset: off, Line: line, Column: col}
}

// convert returns the nodes for one JSON object. ParameterList objects are
// flattened into their parent, tagging declarations with scope.
func (c *compactConverter) convert(m map[string]any, scope string) []*Node {
	nodeType, _ := m["nodeType"].(string)
	if nodeType == "ParameterList" {
		var out []*Node
		for _, p := range asObjects(m["parameters"]) {
			out = append(out, c.convert(p, scope)...)
		}
		return out
	}
	kind, ok := compactKinds[nodeType]
	if !ok {
		kind = KindError
	}
	n := &Node{Kind: kind, Pos: c.pos(m["src"])}
	if kind == KindError {
		n.Value = nodeType
	}
	c.fillAttributes(n, nodeType, m, scope)
	if nodeType == "ElementaryTypeNameExpression" || nodeType == "ElementaryTypeName" ||
		nodeType == "InlineAssembly" {
		return []*Node{n}
	}

	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var children []*Node
	for _, k := range keys {
		if compactSkipKeys[k] {
			continue
		}
		childScope := compactScope(nodeType, k)
		for _, obj := range asObjects(m[k]) {
			converted := c.convert(obj, childScope)
			for _, child := range converted {
				switch {
				case k == "typeName" && (kind == KindVariableDeclaration || kind == KindNew || kind == KindTypeDefinition):
					n.Type = child
				case k == "baseType" && kind == KindArrayType:
					n.Type = child
				case k == "expression" && kind == KindFunctionCall:
					n.Callee = child
				}
			}
			children = append(children, converted...)
		}
	}
	sort.SliceStable(children, func(i, j int) bool { return children[i].Pos.Offset < children[j].Pos.Offset })
	n.Children = children
	return []*Node{n}
}

func (c *compactConverter) fillAttributes(n *Node, nodeType string, m map[string]any, scope string) {
	str := func(k string) string { s, _ := m[k].(string); return s }
	switch nodeType {
	case "ContractDefinition":
		n.Name = str("name")
		n.Value = str("contractKind")
		if abstract, _ := m["abstract"].(bool); abstract {
			n.Value = "abstract " + n.Value
		}
	case "FunctionDefinition":
		n.Value = str("kind")
		n.Name = str("name")
		if n.Name == "" {
			n.Name = n.Value
		}
	case "ModifierDefinition":
		n.Value = "modifier"
		n.Name = str("name")
	case "VariableDeclaration":
		n.Name = str("name")
		n.Value = scope
		if state, _ := m["stateVariable"].(bool); state {
			n.Value = "state"
		} else if n.Value == "" {
			n.Value = "local"
		}
	case "ElementaryTypeName":
		n.Name = str("name")
		if str("stateMutability") == "payable" {
			n.Value = "payable"
		}
	case "ElementaryTypeNameExpression":
		if tn, ok := m["typeName"].(map[string]any); ok {
			n.Name, _ = tn["name"].(string)
		} else {
			n.Name = str("typeName")
		}
	case "UserDefinedTypeName":
		n.Name = str("name")
		if p, ok := m["pathNode"].(map[string]any); ok && n.Name == "" {
			n.Name, _ = p["name"].(string)
		}
	case "ModifierInvocation":
		if p, ok := m["modifierName"].(map[string]any); ok {
			n.Name, _ = p["name"].(string)
		}
	case "InheritanceSpecifier":
		n.Value = "base"
		if p, ok := m["baseName"].(map[string]any); ok {
			n.Name, _ = p["name"].(string)
		}
	case "MemberAccess":
		n.Name = str("memberName")
	case "Literal":
		n.Value = str("value")
		if n.Value == "" {
			n.Value = str("hexValue")
		}
	case "UnaryOperation", "BinaryOperation", "Assignment":
		n.Value = str("operator")
		if prefix, ok := m["prefix"].(bool); ok && !prefix {
			n.Name = "postfix"
		}
	case "ImportDirective":
		n.Name = str("file")
	case "PragmaDirective":
		if lits, ok := m["literals"].([]any); ok {
			parts := make([]string, 0, len(lits))
			for _, l := range lits {
				if s, ok := l.(string); ok {
					parts = append(parts, s)
				}
			}
			n.Value = strings.Join(parts, " ")
		}
	case "Break", "Continue", "Throw":
		n.Value = strings.ToLower(nodeType)
	default:
		n.Name = str("name")
	}
}

func compactScope(parentType, key string) string {
	switch parentType {
	case "FunctionDefinition", "ModifierDefinition", "FunctionTypeName":
		if key == "returnParameters" || key == "returnParameterTypes" {
			return "return"
		}
		return "parameter"
	case "EventDefinition":
		return "event"
	case "ErrorDefinition":
		return "error"
	case "StructDefinition":
		return "member"
	case "TryCatchClause":
		return "parameter"
	case "TryStatement":
		return "return"
	}
	return ""
}

// asObjects returns the JSON objects held directly by v, either a single
// object with a nodeType or an array of them.
func asObjects(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		if _, ok := t["nodeType"]; ok {
			return []map[string]any{t}
		}
	case []any:
		var out []map[string]any
		for _, e := range t {
			if o, ok := e.(map[string]any); ok {
				if _, ok := o["nodeType"]; ok {
					out = append(out, o)
				}
			}
		}
		return out
	}
	return nil
}
