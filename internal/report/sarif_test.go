package report

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqc-securechain/qrisk/internal/rules"
	"github.com/hqc-securechain/qrisk/internal/types"
)

type sarifDoc struct {
	Version string `json:"version"`
	Runs    []struct {
		Tool struct {
			Driver struct {
				Name            string `json:"name"`
				SemanticVersion string `json:"semanticVersion"`
				Rules           []struct {
					ID                   string `json:"id"`
					DefaultConfiguration struct {
						Level string `json:"level"`
					} `json:"defaultConfiguration"`
				} `json:"rules"`
			} `json:"driver"`
		} `json:"tool"`
		Results []struct {
			RuleID    string                `json:"ruleId"`
			Level     string                `json:"level"`
			Message   struct{ Text string } `json:"message"`
			Locations []struct {
				PhysicalLocation struct {
					ArtifactLocation struct{ URI string } `json:"artifactLocation"`
					Region           struct {
						StartLine   int `json:"startLine"`
						StartColumn int `json:"startColumn"`
					} `json:"region"`
				} `json:"physicalLocation"`
			} `json:"locations"`
			Properties map[string]string `json:"properties"`
		} `json:"results"`
	} `json:"runs"`
}

func TestWriteSARIF(t *testing.T) {
	findings := []types.Finding{
		{Kind: types.KindKeyExposure, RuleID: rules.IDKeyExposure, Message: "key", Entity: "pubKey", Location: &types.Location{Line: 3, Column: 5}},
		{Kind: types.KindEcrecover, RuleID: rules.IDEcrecover, Message: rules.EcrecoverMessage, Entity: "ecrecover", Location: &types.Location{Line: 7, Column: 16}},
		{Kind: types.KindEcrecover, RuleID: rules.IDEcrecover, Message: rules.EcrecoverMessage, Entity: "ecrecover", Location: &types.Location{Line: 9, Column: 16}},
	}
	rep := types.Report{Contract: "Vault.sol", EcrecoverCount: 2, PublicKeyExposureCount: 1, RiskScore: 100}

	var buf bytes.Buffer
	require.NoError(t, WriteSARIF(&buf, "contracts/Vault.sol", rep, findings, rules.Builtin(rules.DefaultByteTypes), "1.2.3"))

	var doc sarifDoc
	require.NoError(t, json.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, "2.1.0", doc.Version)
	require.Len(t, doc.Runs, 1)
	run := doc.Runs[0]
	assert.Equal(t, "qrisk", run.Tool.Driver.Name)
	assert.Equal(t, "1.2.3", run.Tool.Driver.SemanticVersion)

	levels := map[string]string{}
	for _, r := range run.Tool.Driver.Rules {
		levels[r.ID] = r.DefaultConfiguration.Level
	}
	assert.Equal(t, map[string]string{rules.IDEcrecover: "error", rules.IDKeyExposure: "warning"}, levels)

	require.Len(t, run.Results, 3)
	first := run.Results[0]
	assert.Equal(t, rules.IDKeyExposure, first.RuleID)
	assert.Equal(t, "warning", first.Level)
	assert.Equal(t, "contracts/Vault.sol", first.Locations[0].PhysicalLocation.ArtifactLocation.URI)
	assert.Equal(t, 3, first.Locations[0].PhysicalLocation.Region.StartLine)
	assert.Equal(t, 5, first.Locations[0].PhysicalLocation.Region.StartColumn)
	assert.Equal(t, "KEY_EXPOSURE", first.Properties["kind"])

	assert.Equal(t, "error", run.Results[1].Level)
	fp1, fp2 := run.Results[1].Properties["fingerprint"], run.Results[2].Properties["fingerprint"]
	assert.Len(t, fp1, 16)
	assert.NotEqual(t, fp1, fp2, "repeated findings get distinct fingerprints")
}

func TestFingerprint_IgnoresLocation(t *testing.T) {
	a := types.Finding{RuleID: "r", Entity: "e", Location: &types.Location{Line: 1}}
	b := types.Finding{RuleID: "r", Entity: "e", Location: &types.Location{Line: 40}}
	assert.Equal(t, Fingerprint("C.sol", a, 1), Fingerprint("C.sol", b, 1))
	assert.NotEqual(t, Fingerprint("C.sol", a, 1), Fingerprint("D.sol", a, 1))
	assert.NotEqual(t, Fingerprint("C.sol", a, 1), Fingerprint("C.sol", a, 2))
}
