package report

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hqc-securechain/qrisk/internal/types"
)

func writeRaw(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func writeReport(t *testing.T, dir string, ms int64, seq int, rep types.Report) {
	t.Helper()
	b, err := Marshal(rep)
	require.NoError(t, err)
	writeRaw(t, dir, FileName(ms, seq), string(b))
}

func TestList_FiltersAndSorts(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, 2000, 0, types.Report{Contract: "B.sol"})
	writeReport(t, dir, 1000, 1, types.Report{Contract: "A2.sol"})
	writeReport(t, dir, 1000, 0, types.Report{Contract: "A1.sol"})
	writeRaw(t, dir, ".qrisk-123.tmp", "{}")
	writeRaw(t, dir, ".hidden-analysis.json", "{}")
	writeRaw(t, dir, "notes.txt", "x")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "9999999999999-analysis.json"), 0o755))

	names, err := List(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"0000000001000-analysis.json",
		"0000000001000.001-analysis.json",
		"0000000002000-analysis.json",
	}, names)
}

func TestList_MissingDirIsEmpty(t *testing.T) {
	names, err := List(filepath.Join(t.TempDir(), "absent"))
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, 1000, 0, types.Report{Contract: "Old.sol", RiskScore: 10})
	writeReport(t, dir, 1000, 3, types.Report{Contract: "Burst.sol", RiskScore: 20})
	writeReport(t, dir, 900, 0, types.Report{Contract: "Older.sol"})

	rep, path, err := Latest(dir)
	require.NoError(t, err)
	assert.Equal(t, "Burst.sol", rep.Contract)
	assert.Equal(t, 20, rep.RiskScore)
	assert.Equal(t, []string{}, rep.Warnings)
	assert.Equal(t, filepath.Join(dir, "0000000001000.003-analysis.json"), path)
}

func TestLatest_NoReports(t *testing.T) {
	dir := t.TempDir()
	writeRaw(t, dir, ".qrisk-1.tmp", "partial")

	_, _, err := Latest(dir)
	assert.ErrorIs(t, err, ErrNoReports)

	_, _, err = Latest(filepath.Join(dir, "missing"))
	assert.ErrorIs(t, err, ErrNoReports)
}

func TestLatest_CorruptNewest(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, 1000, 0, types.Report{Contract: "A.sol"})
	writeRaw(t, dir, FileName(2000, 0), "{not json")

	_, _, err := Latest(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "0000000002000-analysis.json")
}

func TestSummarize(t *testing.T) {
	dir := t.TempDir()
	writeReport(t, dir, 1000, 0, types.Report{Contract: "A.sol", EcrecoverCount: 1, RiskScore: 50})
	writeReport(t, dir, 2000, 0, types.Report{Contract: "B.sol", PublicKeyExposureCount: 2, RiskScore: 20})
	writeReport(t, dir, 3000, 0, types.Report{Contract: "C.sol", EcrecoverCount: 2, PublicKeyExposureCount: 1, RiskScore: 100})
	writeRaw(t, dir, FileName(4000, 0), "garbage")

	s, err := Summarize(dir)
	require.NoError(t, err)
	assert.Equal(t, 3, s.TotalReports)
	assert.InDelta(t, 170.0/3.0, s.AvgRisk, 1e-9)
	assert.Equal(t, 100, s.MaxRisk)
	assert.Equal(t, []string{"0000000004000-analysis.json"}, s.Skipped)
	require.Len(t, s.Reports, 3)
	assert.Equal(t, SummaryRow{
		File:                   "0000000002000-analysis.json",
		Contract:               "B.sol",
		RiskScore:              20,
		PublicKeyExposureCount: 2,
	}, s.Reports[1])
}

func TestSummarize_Empty(t *testing.T) {
	s, err := Summarize(filepath.Join(t.TempDir(), "none"))
	require.NoError(t, err)
	assert.Equal(t, 0, s.TotalReports)
	assert.Zero(t, s.AvgRisk)
	assert.NotNil(t, s.Reports)
}

func TestSummaryFrom(t *testing.T) {
	s := SummaryFrom([]SummaryRow{
		RowOf("src/A.sol", types.Report{Contract: "A.sol", EcrecoverCount: 1, RiskScore: 50}),
		RowOf("src/B.sol", types.Report{Contract: "B.sol", RiskScore: 0}),
		RowOf("src/C.sol", types.Report{Contract: "C.sol", PublicKeyExposureCount: 1, RiskScore: 10}),
	})
	assert.Equal(t, 3, s.TotalReports)
	assert.InDelta(t, 20.0, s.AvgRisk, 1e-9)
	assert.Equal(t, 50, s.MaxRisk)
	assert.Equal(t, "src/C.sol", s.Reports[2].File)
	assert.Equal(t, 1, s.Reports[2].PublicKeyExposureCount)
	assert.Nil(t, s.Skipped)

	empty := SummaryFrom(nil)
	assert.Equal(t, 0, empty.TotalReports)
	assert.Zero(t, empty.MaxRisk)
	assert.NotNil(t, empty.Reports)
}

func TestShouldFail(t *testing.T) {
	cases := []struct {
		score, threshold int
		want             bool
	}{
		{60, 50, true},
		{50, 50, false},
		{0, 0, false},
		{1, 0, true},
		{100, -1, false},
	}
	for _, c := range cases {
		got := ShouldFail(types.Report{RiskScore: c.score}, c.threshold)
		if got != c.want {
			t.Fatalf("ShouldFail(score=%d, threshold=%d) = %v, want %v", c.score, c.threshold, got, c.want)
		}
	}
}
