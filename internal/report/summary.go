package report

import (
	"path/filepath"

	"github.com/hqc-securechain/qrisk/internal/types"
)

// SummaryRow is the per-report line of a Summary.
type SummaryRow struct {
	File                   string `json:"file"`
	Contract               string `json:"contract"`
	RiskScore              int    `json:"riskScore"`
	EcrecoverCount         int    `json:"ecrecoverCount"`
	PublicKeyExposureCount int    `json:"publicKeyExposureCount"`
}

// Summary aggregates every report in a directory.
type Summary struct {
	TotalReports int          `json:"totalReports"`
	AvgRisk      float64      `json:"avgRisk"`
	MaxRisk      int          `json:"maxRisk"`
	Reports      []SummaryRow `json:"reports"`
	// Skipped lists files that could not be decoded.
	Skipped []string `json:"skipped,omitempty"`
}

// Summarize reads all reports in dir, oldest first. Undecodable files are
// reported in Skipped rather than failing the whole summary.
func Summarize(dir string) (Summary, error) {
	names, err := List(dir)
	if err != nil {
		return Summary{Reports: []SummaryRow{}}, err
	}
	var rows []SummaryRow
	var skipped []string
	for _, name := range names {
		rep, err := Read(filepath.Join(dir, name))
		if err != nil {
			skipped = append(skipped, name)
			continue
		}
		rows = append(rows, RowOf(name, rep))
	}
	s := SummaryFrom(rows)
	s.Skipped = skipped
	return s, nil
}

// SummaryFrom totals rows in the order given.
func SummaryFrom(rows []SummaryRow) Summary {
	s := Summary{TotalReports: len(rows), Reports: rows}
	if s.Reports == nil {
		s.Reports = []SummaryRow{}
	}
	sum := 0
	for _, r := range rows {
		sum += r.RiskScore
		s.MaxRisk = max(s.MaxRisk, r.RiskScore)
	}
	if s.TotalReports > 0 {
		s.AvgRisk = float64(sum) / float64(s.TotalReports)
	}
	return s
}

// RowOf is the summary line for one report.
func RowOf(file string, rep types.Report) SummaryRow {
	return SummaryRow{
		File:                   file,
		Contract:               rep.Contract,
		RiskScore:              rep.RiskScore,
		EcrecoverCount:         rep.EcrecoverCount,
		PublicKeyExposureCount: rep.PublicKeyExposureCount,
	}
}
