package audit

import (
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqc-securechain/qrisk/internal/engine"
	"github.com/hqc-securechain/qrisk/internal/solidity"
	"github.com/hqc-securechain/qrisk/internal/types"
)

func outcome(path string, score int, kinds ...types.Kind) engine.Outcome {
	var fs []types.Finding
	for _, k := range kinds {
		fs = append(fs, types.Finding{Kind: k})
	}
	return engine.Outcome{Path: "/out/" + path, Report: types.Report{RiskScore: score}, Findings: fs}
}

func TestCreateBatchRecord(t *testing.T) {
	res := engine.BatchResult{
		Files: []engine.FileResult{
			{Rel: "src/B.sol", Outcome: outcome("2-analysis.json", 60, types.KindEcrecover, types.KindKeyExposure)},
			{Rel: "src/A.sol", Outcome: outcome("1-analysis.json", 60, types.KindEcrecover, types.KindKeyExposure)},
			{Rel: "src/C.sol", Outcome: outcome("3-analysis.json", 0)},
			{Rel: "src/Bad.sol", Err: &engine.ParseError{Err: &solidity.FatalError{File: "Bad.sol", Msg: "boom"}}},
		},
		Failed:   1,
		Duration: 2 * time.Second,
	}
	rec := CreateBatchRecord("b1", "/repo", res)

	assert.Equal(t, "b1", rec.BatchID)
	assert.Equal(t, 3, rec.FilesAnalyzed)
	assert.Equal(t, 1, rec.Failed)
	assert.Equal(t, 60, rec.MaxRisk)
	assert.InDelta(t, 40.0, rec.AvgRisk, 1e-9)
	assert.Equal(t, 2, rec.EcrecoverCount())
	assert.Equal(t, 2, rec.KeyExposureCount())
	assert.Equal(t, "2s", rec.Duration)
	assert.Equal(t, []ContractSummary{
		{Path: "src/A.sol", RiskScore: 60, Report: "1-analysis.json"},
		{Path: "src/B.sol", RiskScore: 60, Report: "2-analysis.json"},
	}, rec.TopRisks)
	require.Len(t, rec.Failures, 1)
	assert.Equal(t, "parse", rec.Failures[0].Kind)
	assert.Equal(t, "parse error: Bad.sol: boom", rec.Failures[0].Error)
}

func TestAuditLog_RoundTripNewestFirst(t *testing.T) {
	log := NewAuditLog(t.TempDir() + "/reports")

	history, err := log.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, history)

	require.NoError(t, log.LogBatch(BatchRecord{BatchID: "first", Root: "/a"}))
	require.NoError(t, log.LogBatch(BatchRecord{Root: "/b"}))

	history, err = log.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "/b", history[0].Root)
	assert.NotEmpty(t, history[0].BatchID)
	assert.Equal(t, "first", history[1].BatchID)

	info, err := os.Stat(log.Path())
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
}

func TestAuditLog_SkipsCorruptLines(t *testing.T) {
	log := NewAuditLog(t.TempDir())
	require.NoError(t, log.LogBatch(BatchRecord{BatchID: "one"}))

	f, err := os.OpenFile(log.Path(), os.O_APPEND|os.O_WRONLY, 0o600)
	require.NoError(t, err)
	_, err = f.WriteString("{not json\n\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, log.LogBatch(BatchRecord{BatchID: "two"}))

	history, err := log.LoadHistory()
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "two", history[0].BatchID)
	assert.Equal(t, "one", history[1].BatchID)
}

func TestAuditLog_UnreadablePath(t *testing.T) {
	dir := t.TempDir()
	// a directory where the log file should be
	require.NoError(t, os.Mkdir(dir+"/"+FileName, 0o755))
	log := NewAuditLog(dir)
	err := log.LogBatch(BatchRecord{})
	require.Error(t, err)
	assert.False(t, errors.Is(err, os.ErrNotExist))
}
