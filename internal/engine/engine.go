package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-hclog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/hqc-securechain/qrisk/internal/report"
	"github.com/hqc-securechain/qrisk/internal/rules"
	"github.com/hqc-securechain/qrisk/internal/score"
	"github.com/hqc-securechain/qrisk/internal/solidity"
	"github.com/hqc-securechain/qrisk/internal/types"
)

const (
	ParserBuiltin = "builtin"
	ParserSolc    = "solc"

	// DefaultOutputDir is where reports go when no directory is configured.
	DefaultOutputDir = "report-output"

	tracerName = "github.com/hqc-securechain/qrisk/internal/engine"
)

// Options controls one Engine. The zero value analyses with the built-in
// parser and rules, the default policy, and writes into DefaultOutputDir.
type Options struct {
	OutputDir      string
	Parser         string
	SolcPath       string
	MaxParseErrors int

	// ByteTypes replaces the key-exposure byte type set when non-empty.
	ByteTypes []string
	Custom    []rules.CustomSpec
	Disable   []string
	// Policy defaults to score.Default().
	Policy *score.Policy

	Logger hclog.Logger
	// Tracer defaults to the global provider's tracer.
	Tracer trace.Tracer
	// Clock feeds report filenames; defaults to time.Now.
	Clock func() time.Time
}

// Outcome is a completed run.
type Outcome struct {
	RunID    string
	Source   SourceUnit
	Report   types.Report
	Findings []types.Finding
	// Diagnostics are the recoverable syntax problems the parser skipped.
	Diagnostics []solidity.Diagnostic
	// Path is the written report file.
	Path     string
	Duration time.Duration
}

// Engine holds the validated, immutable configuration for analysis runs. It is
// safe for concurrent use; no run observes another run's findings.
type Engine struct {
	opts    Options
	matcher *rules.Matcher
	policy  score.Policy
	writer  *report.Writer
	log     hclog.Logger
	tracer  trace.Tracer
}

// New validates opts and compiles the rule table. Configuration problems are
// returned as *UsageError.
func New(opts Options) (*Engine, error) {
	switch opts.Parser {
	case "":
		opts.Parser = ParserBuiltin
	case ParserBuiltin, ParserSolc:
	default:
		return nil, &UsageError{Msg: fmt.Sprintf("unknown parser %q (want builtin or solc)", opts.Parser)}
	}
	if opts.OutputDir == "" {
		opts.OutputDir = DefaultOutputDir
	}
	if opts.MaxParseErrors < 0 {
		return nil, &UsageError{Msg: "max parse errors must not be negative"}
	}

	rs := rules.Builtin(opts.ByteTypes)
	custom, err := rules.Compile(opts.Custom)
	if err != nil {
		return nil, &UsageError{Msg: "invalid custom rule", Err: err}
	}
	rs = append(rs, custom...)
	matcher, err := rules.NewMatcher(rs, opts.Disable)
	if err != nil {
		return nil, &UsageError{Msg: "invalid rule set", Err: err}
	}

	policy := score.Default()
	if opts.Policy != nil {
		policy = *opts.Policy
	}
	if err := policy.Validate(); err != nil {
		return nil, &UsageError{Msg: "invalid scoring policy", Err: err}
	}

	e := &Engine{
		opts:    opts,
		matcher: matcher,
		policy:  policy,
		writer:  &report.Writer{Dir: opts.OutputDir, Clock: opts.Clock},
		log:     opts.Logger,
		tracer:  opts.Tracer,
	}
	if e.log == nil {
		e.log = hclog.NewNullLogger()
	}
	if e.tracer == nil {
		e.tracer = otel.Tracer(tracerName)
	}
	return e, nil
}

// Rules returns the active rules in evaluation order.
func (e *Engine) Rules() []rules.Rule { return e.matcher.Rules() }

// Policy returns the scoring policy in effect.
func (e *Engine) Policy() score.Policy { return e.policy }

// OutputDir returns the directory reports are written to.
func (e *Engine) OutputDir() string { return e.opts.OutputDir }

// Analyze runs the configured engine once.
func Analyze(ctx context.Context, path string, opts Options) (Outcome, error) {
	e, err := New(opts)
	if err != nil {
		return Outcome{}, err
	}
	return e.Analyze(ctx, path)
}

// Analyze loads, parses, matches, scores and persists one contract. On error
// no report file is written.
func (e *Engine) Analyze(ctx context.Context, path string) (out Outcome, err error) {
	start := time.Now()
	out.RunID = uuid.NewString()
	ctx, span := e.tracer.Start(ctx, "qrisk.analyze", trace.WithAttributes(
		attribute.String("qrisk.run_id", out.RunID),
		attribute.String("qrisk.path", path),
		attribute.String("qrisk.parser", e.opts.Parser),
	))
	log := e.log.With("run_id", out.RunID, "path", path)
	defer func() {
		out.Duration = time.Since(start)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.SetAttributes(attribute.String("qrisk.error_kind", KindOf(err).String()))
			log.Debug("analysis failed", "kind", KindOf(err), "error", err)
		}
		span.End()
	}()

	if strings.TrimSpace(path) == "" {
		return out, &UsageError{Msg: "missing contract path"}
	}

	src, err := e.load(ctx, path)
	if err != nil {
		return out, err
	}
	out.Source = src

	tree, err := e.parse(ctx, src)
	if err != nil {
		return out, err
	}
	out.Diagnostics = tree.Diagnostics
	if len(tree.Diagnostics) > 0 {
		log.Debug("recovered from syntax errors", "count", len(tree.Diagnostics), "first", tree.Diagnostics[0].Message)
	}

	res := e.match(ctx, tree)
	out.Findings = res.Findings

	out.Report = e.score(ctx, src.Name, res)

	// a cancelled run leaves nothing behind
	if err := ctx.Err(); err != nil {
		return out, err
	}
	out.Path, err = e.write(ctx, out.Report)
	if err != nil {
		return out, err
	}
	span.SetAttributes(attribute.Int("qrisk.risk_score", out.Report.RiskScore))
	log.Info("analysis complete", "contract", out.Report.Contract, "risk", out.Report.RiskScore,
		"findings", len(out.Findings), "report", out.Path)
	return out, nil
}

func (e *Engine) load(ctx context.Context, path string) (SourceUnit, error) {
	_, span := e.tracer.Start(ctx, "load")
	defer span.End()
	if err := ctx.Err(); err != nil {
		return SourceUnit{}, err
	}
	src, err := Load(path)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return src, err
	}
	span.SetAttributes(attribute.Int("qrisk.bytes", len(src.Text)))
	return src, nil
}

func (e *Engine) parse(ctx context.Context, src SourceUnit) (*solidity.Tree, error) {
	ctx, span := e.tracer.Start(ctx, "parse", trace.WithAttributes(attribute.String("qrisk.parser", e.opts.Parser)))
	defer span.End()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var (
		tree *solidity.Tree
		err  error
	)
	if e.opts.Parser == ParserSolc {
		tree, err = solidity.ParseWithSolc(ctx, src.Path, e.opts.SolcPath)
	} else {
		tree, err = solidity.Parse(src.Name, src.Text, solidity.Options{MaxErrors: e.opts.MaxParseErrors})
	}
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, &ParseError{Path: src.Path, Err: err}
	}
	span.SetAttributes(
		attribute.Int("qrisk.nodes", solidity.Count(tree.Root)),
		attribute.Int("qrisk.diagnostics", len(tree.Diagnostics)),
	)
	return tree, nil
}

func (e *Engine) match(ctx context.Context, tree *solidity.Tree) rules.Result {
	_, span := e.tracer.Start(ctx, "match")
	defer span.End()
	res := e.matcher.Match(tree.Root)
	span.SetAttributes(attribute.Int("qrisk.findings", len(res.Findings)))
	return res
}

func (e *Engine) score(ctx context.Context, contract string, res rules.Result) types.Report {
	_, span := e.tracer.Start(ctx, "score")
	defer span.End()
	rep := report.Build(contract, res, e.policy)
	span.SetAttributes(attribute.Int("qrisk.risk_score", rep.RiskScore))
	return rep
}

func (e *Engine) write(ctx context.Context, rep types.Report) (string, error) {
	_, span := e.tracer.Start(ctx, "write")
	defer span.End()
	path, err := e.writer.Write(rep)
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return "", &WriteError{Dir: e.opts.OutputDir, Err: err}
	}
	span.SetAttributes(attribute.String("qrisk.report", path))
	return path, nil
}
