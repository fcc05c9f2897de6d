// Package qrisk provides the command-line interface for the qrisk analyzer.
// It configures subcommands (analyze, batch, latest, summary, etc.), parses
// flags, merges configuration files and executes the selected command.
//
// Typical usage from a main package:
//
//	package main
//	import "github.com/hqc-securechain/qrisk/cmd/qrisk"
//	func main() { qrisk.Execute() }
package qrisk
