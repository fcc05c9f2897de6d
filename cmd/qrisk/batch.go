package qrisk

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/hqc-securechain/qrisk/internal/audit"
	"github.com/hqc-securechain/qrisk/internal/engine"
	"github.com/hqc-securechain/qrisk/internal/report"
)

var (
	flagBatch           analysisFlags
	flagRoot            string
	flagInclude         string
	flagExclude         string
	flagWorkers         int
	flagMaxBytes        int64
	flagDefaultExcludes bool
	flagBatchJSON       bool
	flagAudit           bool
	flagBatchFailAbove  int
)

func init() {
	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Analyze every Solidity file under a directory",
		Args:  cobra.NoArgs,
		RunE:  runBatch,
	}
	rootCmd.AddCommand(cmd)

	addAnalysisFlags(cmd, &flagBatch)
	cmd.Flags().StringVarP(&flagRoot, "root", "r", ".", "directory to analyze")
	cmd.Flags().StringVar(&flagInclude, "include", "", "comma-separated include globs")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "comma-separated exclude globs")
	cmd.Flags().IntVar(&flagWorkers, "workers", 0, "concurrent analyses (0 = GOMAXPROCS)")
	cmd.Flags().Int64Var(&flagMaxBytes, "max-bytes", 1<<20, "skip files larger than this")
	cmd.Flags().BoolVar(&flagDefaultExcludes, "default-excludes", true, "skip node_modules, lib, build output and foundry tests")
	cmd.Flags().BoolVar(&flagBatchJSON, "json", false, "print per-file results as JSON")
	cmd.Flags().BoolVar(&flagAudit, "audit", false, "append a batch record to the audit log in the report directory")
	cmd.Flags().IntVar(&flagBatchFailAbove, "fail-above", -1, "exit 1 when any risk score exceeds this value (-1 = off)")
}

type batchFileJSON struct {
	File   string `json:"file"`
	Report any    `json:"report,omitempty"`
	Path   string `json:"path,omitempty"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"errorKind,omitempty"`
}

func runBatch(cmd *cobra.Command, _ []string) error {
	root, _ := filepath.Abs(flagRoot)
	c, err := loadConfigs(root)
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	log := newLogger(c, stderr)
	opts := engineOptions(flagBatch, c, log)
	tracer, shutdown := newTracer(stderr)
	defer shutdown()
	opts.Tracer = tracer

	e, err := engine.New(opts)
	if err != nil {
		return err
	}
	batchID := uuid.NewString()
	log = log.With("batch_id", batchID)

	bo := engine.BatchOptions{
		Selection: engine.Selection{
			Root:            root,
			Include:         engine.ParseGlobs(pickString(flagInclude, c.local.Include, c.global.Include)),
			Exclude:         engine.ParseGlobs(pickString(flagExclude, c.local.Exclude, c.global.Exclude)),
			DefaultExcludes: flagDefaultExcludes,
			MaxBytes:        pickInt64(flagMaxBytes, c.local.MaxBytes, c.global.MaxBytes),
		},
		Workers: pickInt(flagWorkers, c.local.Workers, c.global.Workers),
	}
	if !cmd.Flags().Changed("default-excludes") {
		switch {
		case c.local.DefaultExcludes != nil:
			bo.DefaultExcludes = *c.local.DefaultExcludes
		case c.global.DefaultExcludes != nil:
			bo.DefaultExcludes = *c.global.DefaultExcludes
		}
	}
	showProgress := !flagBatchJSON && !flagQuiet
	done := 0
	if showProgress {
		bo.Progress = func(engine.FileResult) {
			done++
			fmt.Fprintf(stderr, "\r[%d] analyzed", done)
		}
	}

	res, err := e.Batch(cmd.Context(), bo)
	if showProgress && done > 0 {
		fmt.Fprintln(stderr)
	}
	if err != nil {
		return err
	}
	log.Info("batch complete", "files", len(res.Files), "failed", res.Failed, "duration", res.Duration)

	if flagAudit {
		rec := audit.CreateBatchRecord(batchID, root, res)
		if err := audit.NewAuditLog(e.OutputDir()).LogBatch(rec); err != nil {
			log.Warn("audit log not written", "error", err)
		}
	}

	w := cmd.OutOrStdout()
	switch {
	case flagBatchJSON:
		rows := make([]batchFileJSON, 0, len(res.Files))
		for _, f := range res.Files {
			row := batchFileJSON{File: f.Rel}
			if f.Err != nil {
				row.Error = f.Err.Error()
				row.Kind = engine.KindOf(f.Err).String()
			} else {
				row.Report = f.Outcome.Report
				row.Path = f.Outcome.Path
			}
			rows = append(rows, row)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(rows); err != nil {
			return err
		}
	case flagQuiet:
	default:
		if err := report.PrintSummary(w, batchSummary(res), report.PrintOptions{NoColor: noColor(c)}); err != nil {
			return err
		}
		for _, f := range res.Files {
			if f.Err != nil {
				fmt.Fprintf(w, "failed: %s: %v\n", f.Rel, f.Err)
			}
		}
	}

	if flagBatchFailAbove >= 0 && res.MaxRisk() > flagBatchFailAbove {
		return &exitError{code: 1, msg: fmt.Sprintf("max risk score %d exceeds --fail-above %d", res.MaxRisk(), flagBatchFailAbove)}
	}
	if res.Failed > 0 {
		return &exitError{code: 1, msg: fmt.Sprintf("%d of %d contracts failed", res.Failed, len(res.Files))}
	}
	return nil
}

// batchSummary shapes a batch run like a directory summary, one row per
// analysed file.
func batchSummary(res engine.BatchResult) report.Summary {
	var rows []report.SummaryRow
	for _, f := range res.Files {
		if f.Err != nil {
			continue
		}
		rows = append(rows, report.RowOf(f.Rel, f.Outcome.Report))
	}
	return report.SummaryFrom(rows)
}
