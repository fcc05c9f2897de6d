package core

import (
	"context"

	"github.com/hqc-securechain/qrisk/internal/engine"
	"github.com/hqc-securechain/qrisk/internal/rules"
	"github.com/hqc-securechain/qrisk/internal/types"
)

// Re-export selected internal types as a stable public API surface.
// These are type aliases so external consumers can depend on a stable path.
type (
	Options    = engine.Options
	Report     = types.Report
	Finding    = types.Finding
	Outcome    = engine.Outcome
	CustomRule = rules.CustomSpec
	ErrorKind  = engine.ErrorKind
)

const (
	KindNone     = engine.KindNone
	KindUsage    = engine.KindUsage
	KindNotFound = engine.KindNotFound
	KindParse    = engine.KindParse
	KindWrite    = engine.KindWrite
	KindOther    = engine.KindOther
)

// Analyze is the stable entrypoint for other programs. It analyses one
// contract, saves the report and returns it with the saved file's path.
func Analyze(ctx context.Context, path string, opts Options) (Report, string, error) {
	out, err := engine.Analyze(ctx, path, opts)
	if err != nil {
		return Report{}, "", err
	}
	return out.Report, out.Path, nil
}

// AnalyzeWithFindings is Analyze plus the located findings and recovered
// syntax diagnostics.
func AnalyzeWithFindings(ctx context.Context, path string, opts Options) (Outcome, error) {
	return engine.Analyze(ctx, path, opts)
}

// ErrorKindOf classifies an error returned by Analyze.
func ErrorKindOf(err error) ErrorKind { return engine.KindOf(err) }

// RuleIDs returns the IDs of the built-in rules.
func RuleIDs() []string {
	var ids []string
	for _, r := range rules.Builtin(nil) {
		ids = append(ids, r.ID)
	}
	return ids
}
