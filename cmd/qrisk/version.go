package qrisk

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hqc-securechain/qrisk/internal/version"
)

var flagVersionJSON bool

func init() {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the qrisk version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			w := cmd.OutOrStdout()
			if flagVersionJSON {
				return json.NewEncoder(w).Encode(info)
			}
			line := "qrisk " + info.Version
			if info.Revision != "" {
				rev := info.Revision
				if len(rev) > 12 {
					rev = rev[:12]
				}
				line += " (" + rev
				if info.Modified {
					line += ", modified"
				}
				line += ")"
			}
			_, err := fmt.Fprintln(w, line)
			return err
		},
	}
	cmd.Flags().BoolVar(&flagVersionJSON, "json", false, "emit JSON")
	rootCmd.AddCommand(cmd)
	rootCmd.Version = version.Semver().String()
}
