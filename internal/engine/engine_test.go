package engine

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/hqc-securechain/qrisk/internal/report"
	"github.com/hqc-securechain/qrisk/internal/rules"
	"github.com/hqc-securechain/qrisk/internal/score"
	"github.com/hqc-securechain/qrisk/internal/types"
)

const walletSol = `// SPDX-License-Identifier: MIT
pragma solidity ^0.8.0;

contract Wallet {
    bytes public pubKey;

    function verify(bytes32 hash, uint8 v, bytes32 r, bytes32 s) public pure returns (address) {
        return ecrecover(hash, v, r, s);
    }
}
`

const cleanSol = `pragma solidity ^0.8.0;

contract Counter {
    uint256 public count;

    function inc() external {
        count += 1;
    }
}
`

const threeCallsSol = `pragma solidity ^0.8.0;

contract Multi {
    function a(bytes32 h, uint8 v, bytes32 r, bytes32 s) public pure returns (address) {
        return ecrecover(h, v, r, s);
    }
    function b(bytes32 h, uint8 v, bytes32 r, bytes32 s) public pure returns (address) {
        return ecrecover(h, v, r, s);
    }
    function c(bytes32 h, uint8 v, bytes32 r, bytes32 s) public pure returns (address) {
        return ecrecover(h, v, r, s);
    }
}
`

func writeContract(t *testing.T, dir, name, src string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(src), 0o644))
	return p
}

func newTestEngine(t *testing.T, out string, mutate ...func(*Options)) *Engine {
	t.Helper()
	opts := Options{OutputDir: out, Logger: hclog.NewNullLogger()}
	for _, m := range mutate {
		m(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

func reportFiles(t *testing.T, dir string) []string {
	t.Helper()
	names, err := report.List(dir)
	require.NoError(t, err)
	return names
}

func TestAnalyze_EcrecoverAndPubKey(t *testing.T) {
	src := writeContract(t, t.TempDir(), "Wallet.sol", walletSol)
	out := t.TempDir()

	res, err := newTestEngine(t, out).Analyze(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, "Wallet.sol", res.Report.Contract)
	assert.Equal(t, 1, res.Report.EcrecoverCount)
	assert.Equal(t, 1, res.Report.PublicKeyExposureCount)
	assert.Equal(t, 60, res.Report.RiskScore)
	assert.Len(t, res.Report.Warnings, 2)
	assert.Contains(t, res.Report.Warnings, rules.EcrecoverMessage)
	assert.NotEmpty(t, res.RunID)

	onDisk, err := report.Read(res.Path)
	require.NoError(t, err)
	assert.Equal(t, res.Report, onDisk)
	assert.Equal(t, []string{filepath.Base(res.Path)}, reportFiles(t, out))
}

func TestAnalyze_CleanContract(t *testing.T) {
	src := writeContract(t, t.TempDir(), "Counter.sol", cleanSol)
	out := t.TempDir()

	res, err := newTestEngine(t, out).Analyze(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Report.RiskScore)
	assert.Equal(t, []string{}, res.Report.Warnings)

	raw, err := os.ReadFile(res.Path)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"warnings": []`)
}

func TestAnalyze_ClampsAtCeiling(t *testing.T) {
	src := writeContract(t, t.TempDir(), "Multi.sol", threeCallsSol)

	res, err := newTestEngine(t, t.TempDir()).Analyze(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Report.EcrecoverCount)
	assert.Equal(t, 0, res.Report.PublicKeyExposureCount)
	assert.Equal(t, 100, res.Report.RiskScore)
	assert.Len(t, res.Report.Warnings, 3)
}

func TestAnalyze_MissingFile(t *testing.T) {
	out := t.TempDir()
	_, err := newTestEngine(t, out).Analyze(context.Background(), filepath.Join(t.TempDir(), "missing.sol"))
	require.Error(t, err)

	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, KindNotFound, KindOf(err))
	assert.Equal(t, 1, ExitCode(err))
	assert.True(t, strings.HasPrefix(err.Error(), "not found: "))
	assert.Empty(t, reportFiles(t, out))
}

func TestAnalyze_DirectoryIsNotFound(t *testing.T) {
	_, err := newTestEngine(t, t.TempDir()).Analyze(context.Background(), t.TempDir())
	assert.Equal(t, KindNotFound, KindOf(err))
}

func TestAnalyze_EmptyPathIsUsage(t *testing.T) {
	_, err := newTestEngine(t, t.TempDir()).Analyze(context.Background(), "  ")
	assert.Equal(t, KindUsage, KindOf(err))
	assert.Equal(t, 2, ExitCode(err))
}

func TestAnalyze_ParseFailureWritesNothing(t *testing.T) {
	dir := t.TempDir()
	out := t.TempDir()
	e := newTestEngine(t, out)

	for name, body := range map[string]string{
		"binary.sol": "contract A {\x00}",
		"prose.sol":  "hello world",
	} {
		_, err := e.Analyze(context.Background(), writeContract(t, dir, name, body))
		require.Error(t, err, name)
		var pe *ParseError
		require.ErrorAs(t, err, &pe, name)
		assert.True(t, strings.HasPrefix(err.Error(), "parse error: "), err.Error())
		assert.Equal(t, 1, ExitCode(err))
	}
	assert.Empty(t, reportFiles(t, out))
}

func TestAnalyze_RecoversFromLocalSyntaxErrors(t *testing.T) {
	src := writeContract(t, t.TempDir(), "Broken.sol", `pragma solidity ^0.8.0;
contract Broken {
    bytes32 pubKeyHash;
    function f() public { uint x = ; }
    function g(bytes32 h, uint8 v) public pure returns (address) { return ecrecover(h, v, h, h); }
}
`)
	res, err := newTestEngine(t, t.TempDir()).Analyze(context.Background(), src)
	require.NoError(t, err)
	assert.NotEmpty(t, res.Diagnostics)
	assert.Equal(t, 1, res.Report.EcrecoverCount)
	assert.Equal(t, 1, res.Report.PublicKeyExposureCount)
}

func TestAnalyze_IdempotentAndNeverOverwrites(t *testing.T) {
	src := writeContract(t, t.TempDir(), "Wallet.sol", walletSol)
	out := t.TempDir()
	e := newTestEngine(t, out, func(o *Options) {
		o.Clock = func() time.Time { return time.UnixMilli(1_700_000_000_000) }
	})

	first, err := e.Analyze(context.Background(), src)
	require.NoError(t, err)
	second, err := e.Analyze(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, first.Report, second.Report)
	assert.Equal(t, first.Findings, second.Findings)
	assert.NotEqual(t, first.Path, second.Path)
	assert.NotEqual(t, first.RunID, second.RunID)

	a, err := os.ReadFile(first.Path)
	require.NoError(t, err)
	b, err := os.ReadFile(second.Path)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	latest, path, err := report.Latest(out)
	require.NoError(t, err)
	assert.Equal(t, second.Path, path)
	assert.Equal(t, second.Report, latest)
}

func TestAnalyze_NoCrossRunLeakage(t *testing.T) {
	dir := t.TempDir()
	e := newTestEngine(t, t.TempDir())

	_, err := e.Analyze(context.Background(), writeContract(t, dir, "Multi.sol", threeCallsSol))
	require.NoError(t, err)
	res, err := e.Analyze(context.Background(), writeContract(t, dir, "Counter.sol", cleanSol))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Report.EcrecoverCount)
	assert.Empty(t, res.Findings)
}

func TestAnalyze_WriteError(t *testing.T) {
	src := writeContract(t, t.TempDir(), "Wallet.sol", walletSol)
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	_, err := newTestEngine(t, filepath.Join(blocker, "reports")).Analyze(context.Background(), src)
	var we *WriteError
	require.ErrorAs(t, err, &we)
	assert.Equal(t, 3, ExitCode(err))
}

func TestAnalyze_CancelledWritesNothing(t *testing.T) {
	src := writeContract(t, t.TempDir(), "Wallet.sol", walletSol)
	out := t.TempDir()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine(t, out).Analyze(ctx, src)
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, ExitCode(err))
	assert.Empty(t, reportFiles(t, out))
}

func TestAnalyze_PolicyAndRuleOptions(t *testing.T) {
	src := writeContract(t, t.TempDir(), "Wallet.sol", walletSol)

	p := score.Default().With(map[types.Kind]int{types.KindEcrecover: 5, "SIG_PARAM": 7})
	e := newTestEngine(t, t.TempDir(), func(o *Options) {
		o.Policy = &p
		o.Disable = []string{rules.IDKeyExposure}
		o.Custom = []rules.CustomSpec{{
			ID:       "bytes32-param",
			Kind:     "SIG_PARAM",
			Category: "declaration",
			Expr:     `typeName == "bytes32" && scope == "parameter"`,
		}}
	})
	res, err := e.Analyze(context.Background(), src)
	require.NoError(t, err)

	assert.Equal(t, 1, res.Report.EcrecoverCount)
	assert.Equal(t, 0, res.Report.PublicKeyExposureCount, "disabled rule")
	// hash, r, s parameters
	assert.Equal(t, 5+3*7, res.Report.RiskScore)
	assert.Len(t, res.Report.Warnings, 4)
}

func TestNew_UsageErrors(t *testing.T) {
	bad := score.Policy{Weights: score.DefaultWeights(), Ceiling: 500}
	cases := map[string]Options{
		"parser":  {Parser: "antlr"},
		"disable": {Disable: []string{"nope"}},
		"custom":  {Custom: []rules.CustomSpec{{ID: "x", Kind: "X", Category: "call", Expr: "name +"}}},
		"policy":  {Policy: &bad},
		"errors":  {MaxParseErrors: -1},
	}
	for name, opts := range cases {
		_, err := New(opts)
		require.Error(t, err, name)
		assert.Equal(t, KindUsage, KindOf(err), name)
	}
}

func TestNew_Defaults(t *testing.T) {
	e, err := New(Options{})
	require.NoError(t, err)
	assert.Equal(t, DefaultOutputDir, e.OutputDir())
	assert.Equal(t, score.Default(), e.Policy())
	assert.Len(t, e.Rules(), 2)
}

func TestAnalyze_Spans(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	src := writeContract(t, t.TempDir(), "Wallet.sol", walletSol)
	e := newTestEngine(t, t.TempDir(), func(o *Options) { o.Tracer = tp.Tracer("test") })
	res, err := e.Analyze(context.Background(), src)
	require.NoError(t, err)

	var names []string
	var root sdktrace.ReadOnlySpan
	for _, s := range sr.Ended() {
		names = append(names, s.Name())
		if s.Name() == "qrisk.analyze" {
			root = s
		}
	}
	assert.ElementsMatch(t, []string{"load", "parse", "match", "score", "write", "qrisk.analyze"}, names)
	require.NotNil(t, root)
	for _, s := range sr.Ended() {
		if s.Name() != "qrisk.analyze" {
			assert.Equal(t, root.SpanContext().SpanID(), s.Parent().SpanID(), s.Name())
		}
	}
	var runID string
	for _, kv := range root.Attributes() {
		if kv.Key == "qrisk.run_id" {
			runID = kv.Value.AsString()
		}
	}
	assert.Equal(t, res.RunID, runID)
}

func TestAnalyze_FailedSpanStatus(t *testing.T) {
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	e := newTestEngine(t, t.TempDir(), func(o *Options) { o.Tracer = tp.Tracer("test") })
	_, err := e.Analyze(context.Background(), filepath.Join(t.TempDir(), "nope.sol"))
	require.Error(t, err)

	for _, s := range sr.Ended() {
		if s.Name() == "qrisk.analyze" {
			assert.Equal(t, "Error", s.Status().Code.String())
			return
		}
	}
	t.Fatal("no root span recorded")
}
