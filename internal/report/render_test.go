package report

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqc-securechain/qrisk/internal/types"
)

func TestLevel(t *testing.T) {
	assert.Equal(t, "low", Level(0))
	assert.Equal(t, "low", Level(29))
	assert.Equal(t, "medium", Level(30))
	assert.Equal(t, "medium", Level(69))
	assert.Equal(t, "high", Level(70))
	assert.Equal(t, "high", Level(100))
}

func TestPrintReport_Plain(t *testing.T) {
	src := "contract W {\n    bytes public pubKey;\n}\n"
	rep := types.Report{Contract: "W.sol", PublicKeyExposureCount: 1, RiskScore: 10, Warnings: []string{"w"}}
	findings := []types.Finding{{
		Kind:     types.KindKeyExposure,
		RuleID:   "key-exposure",
		Message:  "exposes pubKey",
		Entity:   "pubKey",
		Location: &types.Location{Line: 2, Column: 5},
	}}

	var buf bytes.Buffer
	PrintReport(&buf, rep, findings, "/tmp/out/1-analysis.json", PrintOptions{NoColor: true, Snippets: true, Source: src})
	out := buf.String()

	assert.Contains(t, out, "Contract: W.sol\n")
	assert.Contains(t, out, "Risk score: 10/100 (low)\n")
	assert.Contains(t, out, "Findings: 1\n")
	assert.Contains(t, out, "exposes pubKey  [key-exposure]")
	assert.Contains(t, out, "    2 │     bytes public pubKey;")
	assert.Contains(t, out, "Result saved to: /tmp/out/1-analysis.json\n")
	assert.NotContains(t, out, "\x1b[")
}

func TestPrintReport_Clean(t *testing.T) {
	var buf bytes.Buffer
	PrintReport(&buf, types.Report{Contract: "Clean.sol"}, nil, "", PrintOptions{NoColor: true})
	out := buf.String()
	assert.Contains(t, out, "No quantum-risk patterns found ✅")
	assert.NotContains(t, out, "Result saved to")
}

func TestSnippet(t *testing.T) {
	src := "a\r\nb\nc"
	assert.Equal(t, "    1 │ a", Snippet(src, 1, "x.sol", true))
	assert.Equal(t, "    3 │ c", Snippet(src, 3, "x.sol", true))
	assert.Empty(t, Snippet(src, 0, "x.sol", true))
	assert.Empty(t, Snippet(src, 4, "x.sol", true))

	colored := Snippet("uint x = 1;", 1, "", false)
	assert.Contains(t, colored, "x")
	assert.Contains(t, colored, "│")
}

func TestPrintSummary(t *testing.T) {
	s := Summary{
		TotalReports: 2,
		AvgRisk:      35,
		MaxRisk:      60,
		Reports: []SummaryRow{
			{File: "0000000001000-analysis.json", Contract: "A.sol", RiskScore: 60, EcrecoverCount: 1, PublicKeyExposureCount: 1},
			{File: "0000000002000-analysis.json", Contract: "B.sol", RiskScore: 10, PublicKeyExposureCount: 1},
		},
		Skipped: []string{"0000000003000-analysis.json"},
	}
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, s, PrintOptions{NoColor: true}))
	out := buf.String()

	assert.Contains(t, out, "A.sol")
	assert.Contains(t, out, "B.sol")
	assert.Contains(t, out, "0000000001000-analysis.json")
	assert.Contains(t, out, "Reports: 2   average risk: 35.0   max risk: 60")
	assert.Contains(t, out, "skipped unreadable report: 0000000003000-analysis.json")
	assert.Less(t, strings.Index(out, "A.sol"), strings.Index(out, "B.sol"))
}

func TestPrintSummary_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, PrintSummary(&buf, Summary{}, PrintOptions{}))
	assert.Equal(t, "No analysis reports found\n", buf.String())
}

func TestPrintStored(t *testing.T) {
	var buf bytes.Buffer
	rep := types.Report{Contract: "W.sol", EcrecoverCount: 1, RiskScore: 50, Warnings: []string{"first", "second"}}
	PrintStored(&buf, rep, "out/0000000001000-analysis.json", PrintOptions{NoColor: true})
	assert.Equal(t, `Contract: W.sol
Risk score: 50/100 (medium)
ecrecover calls: 1   key exposures: 0
  first
  second
Report: out/0000000001000-analysis.json
`, buf.String())
}
