package qrisk

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/hqc-securechain/qrisk/internal/config"
	"github.com/hqc-securechain/qrisk/internal/engine"
	"github.com/hqc-securechain/qrisk/internal/files"
	"github.com/hqc-securechain/qrisk/internal/score"
)

var (
	cfgOutput          string
	cfgForce           bool
	cfgOutputDir       string
	cfgParser          string
	cfgDisable         string
	cfgByteTypes       string
	cfgWorkers         int
	cfgMaxBytes        int64
	cfgNoColor         bool
	cfgDefaultExcludes bool
	cfgWithRule        bool
	cfgGitignore       bool
)

func init() {
	cfgCmd := &cobra.Command{Use: "config", Short: "Configuration helpers"}
	rootCmd.AddCommand(cfgCmd)

	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Generate a .qrisk.yml with the stock policy and options",
		Args:  cobra.NoArgs,
		RunE:  runConfigInit,
	}
	cfgCmd.AddCommand(initCmd)

	initCmd.Flags().StringVar(&cfgOutput, "output", ".qrisk.yml", "output file path")
	initCmd.Flags().BoolVar(&cfgForce, "force", false, "overwrite an existing file")
	initCmd.Flags().StringVar(&cfgOutputDir, "out", engine.DefaultOutputDir, "report directory")
	initCmd.Flags().StringVar(&cfgParser, "parser", engine.ParserBuiltin, "parser backend: builtin|solc")
	initCmd.Flags().StringVar(&cfgDisable, "disable", "", "comma-separated rule IDs to disable")
	initCmd.Flags().StringVar(&cfgByteTypes, "byte-types", "", "comma-separated types checked for key exposure")
	initCmd.Flags().IntVar(&cfgWorkers, "workers", 0, "batch workers (0=GOMAXPROCS)")
	initCmd.Flags().Int64Var(&cfgMaxBytes, "max-bytes", 1<<20, "skip files larger than this in batch runs")
	initCmd.Flags().BoolVar(&cfgNoColor, "no-color", false, "disable color output by default")
	initCmd.Flags().BoolVar(&cfgDefaultExcludes, "default-excludes", true, "enable default batch excludes")
	initCmd.Flags().BoolVar(&cfgGitignore, "gitignore", false, "add the report directory to .gitignore")
	initCmd.Flags().BoolVar(&cfgWithRule, "example-rule", false, "include an example custom CEL rule")
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	if cfgParser != engine.ParserBuiltin && cfgParser != engine.ParserSolc {
		return &engine.UsageError{Msg: fmt.Sprintf("unknown parser %q (want builtin or solc)", cfgParser)}
	}
	if fileExists(cfgOutput) && !cfgForce {
		return &engine.UsageError{Msg: cfgOutput + " already exists (use --force to overwrite)"}
	}

	weights := map[string]int{}
	for k, v := range score.DefaultWeights() {
		weights[string(k)] = v
	}
	fc := config.FileConfig{
		OutputDir:       strPtr(cfgOutputDir),
		Parser:          strPtr(cfgParser),
		ByteTypes:       splitList(cfgByteTypes),
		Disable:         optStrPtr(cfgDisable),
		NoColor:         boolPtr(cfgNoColor),
		Weights:         weights,
		Ceiling:         intPtr(score.DefaultCeiling),
		Workers:         intPtr(cfgWorkers),
		DefaultExcludes: boolPtr(cfgDefaultExcludes),
		MaxBytes:        int64Ptr(cfgMaxBytes),
	}
	if cfgWithRule {
		fc.Rules = []config.RuleConfig{{
			ID:       "custom-bytes32-param",
			Kind:     "BYTES32_PARAMETER",
			Category: "declaration",
			Expr:     `typeName == "bytes32" && scope == "parameter"`,
			Message:  "bytes32 parameter {name} may carry key material",
			Weight:   intPtr(5),
		}}
	}

	b, err := yaml.Marshal(&fc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(cfgOutput, b, 0644); err != nil {
		return &engine.WriteError{Dir: cfgOutput, Err: err}
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Wrote", cfgOutput)
	if cfgGitignore {
		root := filepath.Dir(cfgOutput)
		for _, pattern := range files.ReportIgnores(cfgOutputDir) {
			if err := files.AppendIgnore(root, pattern); err != nil {
				return &engine.WriteError{Dir: filepath.Join(root, ".gitignore"), Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Ignored", pattern, "in .gitignore")
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
func optStrPtr(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
func intPtr(v int) *int {
	if v == 0 {
		return nil
	}
	return &v
}
func int64Ptr(v int64) *int64 { return &v }
func boolPtr(v bool) *bool    { return &v }
