package rules

import (
	"fmt"
	"strings"

	"github.com/hqc-securechain/qrisk/internal/solidity"
	"github.com/hqc-securechain/qrisk/internal/types"
)

const (
	IDEcrecover   = "ecrecover-usage"
	IDKeyExposure = "key-exposure"
)

// EcrecoverMessage is the fixed warning for every ecrecover call.
const EcrecoverMessage = "⚠ Uses ecrecover — vulnerable to quantum attacks"

// DefaultByteTypes are the declared types that can carry raw key material.
var DefaultByteTypes = []string{"bytes", "bytes32"}

// Builtin returns the built-in table. byteTypes replaces DefaultByteTypes when
// non-empty.
func Builtin(byteTypes []string) []Rule {
	return []Rule{Ecrecover(), KeyExposure(byteTypes)}
}

// Ecrecover matches calls whose callee is the bare identifier ecrecover.
// Member calls such as lib.ecrecover(...) are not matched.
func Ecrecover() Rule {
	return Rule{
		ID:          IDEcrecover,
		Category:    CategoryCall,
		Kind:        types.KindEcrecover,
		Description: "call to ecrecover (ECDSA signature recovery)",
		Predicate: func(n *solidity.Node) bool {
			return n.Callee != nil && n.Callee.Kind == solidity.KindIdentifier && n.Callee.Name == "ecrecover"
		},
		Message: func(*solidity.Node) string { return EcrecoverMessage },
	}
}

// KeyExposure matches byte-typed declarations whose name suggests a key.
//
// This is a naming heuristic. A bytes field called keystone is reported and a
// key held in a uint256 is not.
func KeyExposure(byteTypes []string) Rule {
	if len(byteTypes) == 0 {
		byteTypes = DefaultByteTypes
	}
	allowed := make(map[string]bool, len(byteTypes))
	for _, t := range byteTypes {
		allowed[t] = true
	}
	return Rule{
		ID:          IDKeyExposure,
		Category:    CategoryDeclaration,
		Kind:        types.KindKeyExposure,
		Description: fmt.Sprintf("%s declaration named like a key (pub/key)", strings.Join(byteTypes, "/")),
		Predicate: func(n *solidity.Node) bool {
			if n.Type == nil || n.Type.Kind != solidity.KindElementaryType || !allowed[n.Type.Name] {
				return false
			}
			return looksLikeKey(n.Name)
		},
		Message: func(n *solidity.Node) string {
			return fmt.Sprintf("⚠ Exposes key material in %s variable '%s' (quantum-vulnerable)", n.Type.Name, n.Name)
		},
	}
}

func looksLikeKey(name string) bool {
	lower := strings.ToLower(name)
	return strings.Contains(lower, "pub") || strings.Contains(lower, "key")
}
