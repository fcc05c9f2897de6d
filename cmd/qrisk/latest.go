package qrisk

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hqc-securechain/qrisk/internal/engine"
	"github.com/hqc-securechain/qrisk/internal/report"
)

var (
	flagReadOut  string
	flagReadJSON bool
)

func init() {
	latestCmd := &cobra.Command{
		Use:   "latest",
		Short: "Show the most recent report",
		Args:  cobra.NoArgs,
		RunE:  runLatest,
	}
	summaryCmd := &cobra.Command{
		Use:   "summary",
		Short: "Summarize every report in the report directory",
		Args:  cobra.NoArgs,
		RunE:  runSummary,
	}
	for _, c := range []*cobra.Command{latestCmd, summaryCmd} {
		c.Flags().StringVarP(&flagReadOut, "out", "o", "", "report directory (default "+engine.DefaultOutputDir+")")
		c.Flags().BoolVar(&flagReadJSON, "json", false, "emit JSON")
		rootCmd.AddCommand(c)
	}
}

func reportDir(c configs) string {
	if dir := pickString(flagReadOut, c.local.OutputDir, c.global.OutputDir); dir != "" {
		return dir
	}
	return engine.DefaultOutputDir
}

func runLatest(cmd *cobra.Command, _ []string) error {
	c, err := loadConfigs(".")
	if err != nil {
		return err
	}
	dir := reportDir(c)
	rep, path, err := report.Latest(dir)
	if err != nil {
		if errors.Is(err, report.ErrNoReports) {
			return fmt.Errorf("%w in %s", err, dir)
		}
		return err
	}
	w := cmd.OutOrStdout()
	if flagReadJSON {
		b, err := report.Marshal(rep)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
	report.PrintStored(w, rep, path, report.PrintOptions{NoColor: noColor(c)})
	return nil
}

func runSummary(cmd *cobra.Command, _ []string) error {
	c, err := loadConfigs(".")
	if err != nil {
		return err
	}
	s, err := report.Summarize(reportDir(c))
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if flagReadJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	}
	return report.PrintSummary(w, s, report.PrintOptions{NoColor: noColor(c)})
}
