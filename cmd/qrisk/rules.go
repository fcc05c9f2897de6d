package qrisk

import (
	"encoding/json"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/hqc-securechain/qrisk/internal/engine"
)

var (
	flagRules     analysisFlags
	flagRulesJSON bool
)

type ruleRow struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Category    string `json:"category"`
	Weight      int    `json:"weight"`
	Description string `json:"description"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the active rules and their weights",
		Args:  cobra.NoArgs,
		RunE:  runRules,
	}
	rootCmd.AddCommand(cmd)
	cmd.Flags().StringVar(&flagRules.disable, "disable", "", "comma-separated rule IDs to disable")
	cmd.Flags().StringVar(&flagRules.byteTypes, "byte-types", "", "comma-separated types checked for key exposure")
	cmd.Flags().BoolVar(&flagRulesJSON, "json", false, "emit JSON")
}

func runRules(cmd *cobra.Command, _ []string) error {
	c, err := loadConfigs(".")
	if err != nil {
		return err
	}
	e, err := engine.New(engineOptions(flagRules, c, newLogger(c, cmd.ErrOrStderr())))
	if err != nil {
		return err
	}
	policy := e.Policy()
	var rows []ruleRow
	for _, r := range e.Rules() {
		rows = append(rows, ruleRow{
			ID:          r.ID,
			Kind:        string(r.Kind),
			Category:    r.Category.String(),
			Weight:      policy.Weights[r.Kind],
			Description: r.Description,
		})
	}

	w := cmd.OutOrStdout()
	if flagRulesJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}
	table := tablewriter.NewWriter(w)
	table.Header("ID", "Kind", "Category", "Weight", "Description")
	for _, r := range rows {
		if err := table.Append([]string{r.ID, r.Kind, r.Category, strconv.Itoa(r.Weight), r.Description}); err != nil {
			return err
		}
	}
	return table.Render()
}
