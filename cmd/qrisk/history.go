package qrisk

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hqc-securechain/qrisk/internal/audit"
	"github.com/hqc-securechain/qrisk/internal/engine"
)

var (
	flagHistoryOut   string
	flagHistoryJSON  bool
	flagHistoryLimit int
)

func init() {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show past batch runs recorded with batch --audit",
		Args:  cobra.NoArgs,
		RunE:  runHistory,
	}
	cmd.Flags().StringVarP(&flagHistoryOut, "out", "o", "", "report directory holding the audit log")
	cmd.Flags().BoolVar(&flagHistoryJSON, "json", false, "emit JSON")
	cmd.Flags().IntVarP(&flagHistoryLimit, "limit", "n", 20, "show at most this many runs (0 = all)")
	rootCmd.AddCommand(cmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	c, err := loadConfigs(".")
	if err != nil {
		return err
	}
	dir := pickString(flagHistoryOut, c.local.OutputDir, c.global.OutputDir)
	if dir == "" {
		dir = engine.DefaultOutputDir
	}
	log := audit.NewAuditLog(dir)
	records, err := log.LoadHistory()
	if err != nil {
		return err
	}
	if flagHistoryLimit > 0 && len(records) > flagHistoryLimit {
		records = records[:flagHistoryLimit]
	}

	w := cmd.OutOrStdout()
	if flagHistoryJSON {
		if records == nil {
			records = []audit.BatchRecord{}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(records)
	}
	if len(records) == 0 {
		_, err := fmt.Fprintf(w, "No batch runs recorded in %s\n", log.Path())
		return err
	}
	table := tablewriter.NewWriter(w)
	table.Header("When", "Root", "Files", "Failed", "Max", "Avg", "ecrecover", "Key exp.", "Duration")
	for _, r := range records {
		if err := table.Append([]string{
			r.Timestamp.Local().Format("2006-01-02 15:04:05"),
			r.Root,
			strconv.Itoa(r.FilesAnalyzed),
			strconv.Itoa(r.Failed),
			strconv.Itoa(r.MaxRisk),
			strconv.FormatFloat(r.AvgRisk, 'f', 1, 64),
			strconv.Itoa(r.EcrecoverCount()),
			strconv.Itoa(r.KeyExposureCount()),
			r.Duration,
		}); err != nil {
			return err
		}
	}
	return table.Render()
}
