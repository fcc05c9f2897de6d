package solidity

import (
	"fmt"
	"strings"
)

// NodeKind is the closed set of syntax node variants. Consumers dispatch on it
// with a switch rather than inspecting dynamic types.
type NodeKind int

const (
	KindSourceUnit NodeKind = iota
	KindPragma
	KindImport
	KindContract
	KindFunction
	KindModifierInvocation
	KindEvent
	KindErrorDefinition
	KindStruct
	KindEnum
	KindEnumValue
	KindUsing
	KindTypeDefinition
	KindVariableDeclaration

	KindElementaryType
	KindUserType
	KindMapping
	KindArrayType
	KindFunctionType

	KindBlock
	KindVariableStatement
	KindExpressionStatement
	KindIf
	KindFor
	KindWhile
	KindDoWhile
	KindReturn
	KindEmit
	KindRevert
	KindTry
	KindCatch
	KindAssembly
	KindUnchecked
	KindJump
	KindEmpty

	KindFunctionCall
	KindCallOptions
	KindNamedArgument
	KindMemberAccess
	KindIndexAccess
	KindIndexRange
	KindIdentifier
	KindLiteral
	KindUnary
	KindBinary
	KindAssignment
	KindConditional
	KindNew
	KindTuple
	KindArrayLiteral

	// KindError marks a region the parser skipped while recovering.
	KindError
)

var kindNames = [...]string{
	KindSourceUnit:          "SourceUnit",
	KindPragma:              "Pragma",
	KindImport:              "Import",
	KindContract:            "Contract",
	KindFunction:            "Function",
	KindModifierInvocation:  "ModifierInvocation",
	KindEvent:               "Event",
	KindErrorDefinition:     "ErrorDefinition",
	KindStruct:              "Struct",
	KindEnum:                "Enum",
	KindEnumValue:           "EnumValue",
	KindUsing:               "Using",
	KindTypeDefinition:      "TypeDefinition",
	KindVariableDeclaration: "VariableDeclaration",
	KindElementaryType:      "ElementaryType",
	KindUserType:            "UserType",
	KindMapping:             "Mapping",
	KindArrayType:           "ArrayType",
	KindFunctionType:        "FunctionType",
	KindBlock:               "Block",
	KindVariableStatement:   "VariableStatement",
	KindExpressionStatement: "ExpressionStatement",
	KindIf:                  "If",
	KindFor:                 "For",
	KindWhile:               "While",
	KindDoWhile:             "DoWhile",
	KindReturn:              "Return",
	KindEmit:                "Emit",
	KindRevert:              "Revert",
	KindTry:                 "Try",
	KindCatch:               "Catch",
	KindAssembly:            "Assembly",
	KindUnchecked:           "Unchecked",
	KindJump:                "Jump",
	KindEmpty:               "Empty",
	KindFunctionCall:        "FunctionCall",
	KindCallOptions:         "CallOptions",
	KindNamedArgument:       "NamedArgument",
	KindMemberAccess:        "MemberAccess",
	KindIndexAccess:         "IndexAccess",
	KindIndexRange:          "IndexRange",
	KindIdentifier:          "Identifier",
	KindLiteral:             "Literal",
	KindUnary:               "Unary",
	KindBinary:              "Binary",
	KindAssignment:          "Assignment",
	KindConditional:         "Conditional",
	KindNew:                 "New",
	KindTuple:               "Tuple",
	KindArrayLiteral:        "ArrayLiteral",
	KindError:               "Error",
}

func (k NodeKind) String() string {
	if k >= 0 && int(k) < len(kindNames) && kindNames[k] != "" {
		return kindNames[k]
	}
	return fmt.Sprintf("NodeKind(%d)", int(k))
}

// Node is one syntax tree node.
//
// Type and Callee are shortcuts into Children: a declaration's type node and a
// call's callee are also stored in Children, so walking Children alone reaches
// every node exactly once.
type Node struct {
	Kind NodeKind
	// Name is the declared or referenced identifier (declarations, identifiers,
	// member names, elementary and user type names).
	Name string
	// Value carries kind-specific text: operator, literal text, contract kind,
	// visibility, pragma body.
	Value    string
	Type     *Node
	Callee   *Node
	Children []*Node
	Pos      Pos
}

func newNode(kind NodeKind, pos Pos) *Node { return &Node{Kind: kind, Pos: pos} }

func (n *Node) add(children ...*Node) {
	for _, c := range children {
		if c != nil {
			n.Children = append(n.Children, c)
		}
	}
}

func (n *Node) setType(t *Node) {
	if t == nil {
		return
	}
	n.Type = t
	n.add(t)
}

func (n *Node) setCallee(c *Node) {
	if c == nil {
		return
	}
	n.Callee = c
	n.add(c)
}

// String renders a compact s-expression, mainly for tests and debug logging.
func (n *Node) String() string {
	var b strings.Builder
	n.render(&b)
	return b.String()
}

func (n *Node) render(b *strings.Builder) {
	if n == nil {
		b.WriteString("nil")
		return
	}
	b.WriteString("(")
	b.WriteString(n.Kind.String())
	if n.Name != "" {
		b.WriteString(" " + n.Name)
	}
	if n.Value != "" {
		b.WriteString(" " + fmt.Sprintf("%q", n.Value))
	}
	for _, c := range n.Children {
		b.WriteString(" ")
		c.render(b)
	}
	b.WriteString(")")
}

// Tree is the parsed form of one source file.
type Tree struct {
	File        string
	Root        *Node
	Diagnostics []Diagnostic
}
