// Package solidity turns Solidity source text into a small syntax tree.
//
// The built-in parser is tolerant: local syntax problems become Diagnostics
// and Error nodes and parsing resumes at the next statement or declaration.
// Only input that yields no usable tree is reported as a *FatalError.
// ParseWithSolc produces the same tree shape from solc's compact JSON AST.
package solidity
