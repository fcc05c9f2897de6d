package qrisk

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/hqc-securechain/qrisk/internal/engine"
	"github.com/hqc-securechain/qrisk/internal/report"
	"github.com/hqc-securechain/qrisk/internal/version"
)

var (
	flagAnalyze   analysisFlags
	flagJSON      bool
	flagSARIF     bool
	flagSnippets  bool
	flagFailAbove int
)

func init() {
	cmd := &cobra.Command{
		Use:   "analyze <contract.sol>",
		Short: "Analyze one Solidity file and save a report",
		Args: func(_ *cobra.Command, args []string) error {
			if len(args) != 1 {
				return &engine.UsageError{Msg: "analyze takes exactly one contract path"}
			}
			return nil
		},
		RunE: runAnalyze,
	}
	rootCmd.AddCommand(cmd)

	addAnalysisFlags(cmd, &flagAnalyze)
	cmd.Flags().BoolVar(&flagJSON, "json", false, "print the report JSON to stdout")
	cmd.Flags().BoolVar(&flagSARIF, "sarif", false, "print findings as SARIF 2.1.0 to stdout")
	cmd.Flags().BoolVar(&flagSnippets, "snippets", false, "show highlighted source lines for findings")
	cmd.Flags().IntVar(&flagFailAbove, "fail-above", -1, "exit 1 when the risk score exceeds this value (-1 = off)")
}

func addAnalysisFlags(cmd *cobra.Command, f *analysisFlags) {
	cmd.Flags().StringVarP(&f.out, "out", "o", "", "report directory (default "+engine.DefaultOutputDir+")")
	cmd.Flags().StringVar(&f.parser, "parser", "", "parser backend: builtin|solc")
	cmd.Flags().StringVar(&f.solc, "solc", "", "solc binary for --parser solc")
	cmd.Flags().StringVar(&f.disable, "disable", "", "comma-separated rule IDs to disable")
	cmd.Flags().StringVar(&f.byteTypes, "byte-types", "", "comma-separated types checked for key exposure (default bytes,bytes32)")
	cmd.Flags().IntVar(&f.maxParseErrors, "max-parse-errors", 0, "syntax errors tolerated before giving up (0 = default)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	c, err := loadConfigs(".")
	if err != nil {
		return err
	}
	stderr := cmd.ErrOrStderr()
	log := newLogger(c, stderr)
	opts := engineOptions(flagAnalyze, c, log)
	tracer, shutdown := newTracer(stderr)
	defer shutdown()
	opts.Tracer = tracer

	e, err := engine.New(opts)
	if err != nil {
		return err
	}
	out, err := e.Analyze(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	switch {
	case flagSARIF:
		uri := filepath.ToSlash(args[0])
		if err := report.WriteSARIF(w, uri, out.Report, out.Findings, e.Rules(), version.Semver().String()); err != nil {
			return fmt.Errorf("sarif error: %w", err)
		}
	case flagJSON:
		b, err := report.Marshal(out.Report)
		if err != nil {
			return err
		}
		if _, err := w.Write(b); err != nil {
			return err
		}
	case flagQuiet:
	default:
		report.PrintReport(w, out.Report, out.Findings, out.Path, report.PrintOptions{
			NoColor:    noColor(c),
			Snippets:   flagSnippets,
			Source:     out.Source.Text,
			SourceName: out.Source.Name,
		})
	}

	if report.ShouldFail(out.Report, flagFailAbove) {
		return &exitError{code: 1, msg: fmt.Sprintf("risk score %d exceeds --fail-above %d", out.Report.RiskScore, flagFailAbove)}
	}
	return nil
}
