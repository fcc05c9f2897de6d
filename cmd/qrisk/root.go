package qrisk

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/hqc-securechain/qrisk/internal/engine"
)

var (
	flagConfig   string
	flagLogLevel string
	flagNoColor  bool
	flagQuiet    bool
	flagTrace    bool
)

// rootCmd is the base Cobra command for the qrisk CLI.
var rootCmd = &cobra.Command{
	Use:           "qrisk",
	Short:         "Find quantum-vulnerable patterns in Solidity contracts",
	Long:          "qrisk parses Solidity sources, flags ecrecover calls and exposed key material, scores the contract and saves a timestamped JSON report.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// exitError carries an explicit process status, e.g. for --fail-above.
type exitError struct {
	code int
	msg  string
}

func (e *exitError) Error() string { return e.msg }

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	return engine.ExitCode(err)
}

// Execute runs the qrisk CLI. It should be called by the main package.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "config file (default: .qrisk.yml here, then ~/.config/qrisk/config.yml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "log level: trace|debug|info|warn|error (default warn)")
	rootCmd.PersistentFlags().BoolVar(&flagNoColor, "no-color", false, "disable colorized output")
	rootCmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "only print errors")
	rootCmd.PersistentFlags().BoolVar(&flagTrace, "trace", false, "log per-stage timings")

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &engine.UsageError{Msg: err.Error()}
	})
}
