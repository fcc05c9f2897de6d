package qrisk

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hqc-securechain/qrisk/internal/engine"
)

// ciTemplate is one provider's pipeline file. %[1]d is the fail-above
// threshold.
type ciTemplate struct {
	path    string
	content string
}

var ciTemplates = map[string]ciTemplate{
	"github": {
		path: ".github/workflows/qrisk.yml",
		content: `name: qrisk
on: [push, pull_request]
jobs:
  quantum-risk:
    runs-on: ubuntu-latest
    steps:
      - uses: actions/checkout@v4
      - uses: actions/setup-go@v5
        with:
          go-version: '1.25.x'
      - run: go install github.com/hqc-securechain/qrisk@latest
      - run: qrisk batch --json --audit --fail-above %[1]d | tee qrisk-batch.json
      - uses: actions/upload-artifact@v4
        if: always()
        with:
          name: qrisk-reports
          path: |
            qrisk-batch.json
            report-output/
`,
	},
	"gitlab": {
		path: ".gitlab-ci.yml",
		content: `stages: [scan]
quantum-risk:
  stage: scan
  image: golang:1.25
  script:
    - go install github.com/hqc-securechain/qrisk@latest
    - qrisk batch --json --audit --fail-above %[1]d | tee qrisk-batch.json
  artifacts:
    when: always
    paths:
      - qrisk-batch.json
      - report-output/
`,
	},
	"bitbucket": {
		path: "bitbucket-pipelines.yml",
		content: `pipelines:
  default:
    - step:
        name: qrisk
        image: golang:1.25
        script:
          - go install github.com/hqc-securechain/qrisk@latest
          - qrisk batch --json --audit --fail-above %[1]d | tee qrisk-batch.json
        artifacts:
          - qrisk-batch.json
          - report-output/**
`,
	},
	"azure": {
		path: "azure-pipelines.yml",
		content: `trigger:
- main

pool:
  vmImage: 'ubuntu-latest'

steps:
- task: GoTool@0
  inputs:
    version: '1.25.x'
- script: |
    go install github.com/hqc-securechain/qrisk@latest
    $(go env GOPATH)/bin/qrisk batch --json --audit --fail-above %[1]d | tee qrisk-batch.json
  displayName: 'qrisk'
- publish: report-output
  artifact: qrisk-reports
  condition: succeededOrFailed()
`,
	},
}

func ciProviders() string {
	names := make([]string, 0, len(ciTemplates))
	for name := range ciTemplates {
		names = append(names, name)
	}
	sort.Strings(names)
	return strings.Join(names, ", ")
}

func init() {
	ci := &cobra.Command{Use: "ci", Short: "CI template helpers for multiple providers"}
	rootCmd.AddCommand(ci)

	var (
		provider  string
		threshold int
		force     bool
	)
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Write a CI pipeline template for your provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			tmpl, ok := ciTemplates[provider]
			if !ok {
				return &engine.UsageError{Msg: fmt.Sprintf("unknown --provider %q (supported: %s)", provider, ciProviders())}
			}
			if threshold < 0 || threshold > 100 {
				return &engine.UsageError{Msg: "--fail-above must be within 0..100"}
			}
			if fileExists(tmpl.path) && !force {
				return &engine.UsageError{Msg: tmpl.path + " already exists (use --force to overwrite)"}
			}
			if err := os.MkdirAll(filepath.Dir(tmpl.path), 0755); err != nil {
				return &engine.WriteError{Dir: filepath.Dir(tmpl.path), Err: err}
			}
			if err := os.WriteFile(tmpl.path, []byte(fmt.Sprintf(tmpl.content, threshold)), 0644); err != nil {
				return &engine.WriteError{Dir: filepath.Dir(tmpl.path), Err: err}
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Wrote", tmpl.path)
			return nil
		},
	}
	initCmd.Flags().StringVar(&provider, "provider", "", "CI provider: "+ciProviders())
	initCmd.Flags().IntVar(&threshold, "fail-above", 49, "fail the pipeline when any risk score exceeds this")
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing file")
	if err := initCmd.MarkFlagRequired("provider"); err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not mark --provider as required:", err)
	}
	ci.AddCommand(initCmd)
}
