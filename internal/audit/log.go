// Package audit keeps an append-only JSONL history of batch runs next to the
// reports they produced.
package audit

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/hqc-securechain/qrisk/internal/engine"
	"github.com/hqc-securechain/qrisk/internal/types"
)

// FileName is the audit log inside the output directory. The leading dot
// keeps it out of report listings.
const FileName = ".qrisk_audit.jsonl"

const topN = 10

// maxRecordBytes bounds a single JSONL line.
const maxRecordBytes = 10 << 20

type BatchRecord struct {
	Timestamp     time.Time         `json:"timestamp"`
	BatchID       string            `json:"batch_id"`
	Root          string            `json:"root"`
	FilesAnalyzed int               `json:"files_analyzed"`
	Failed        int               `json:"failed"`
	MaxRisk       int               `json:"max_risk"`
	AvgRisk       float64           `json:"avg_risk"`
	KindCounts    map[string]int    `json:"kind_counts"`
	Duration      string            `json:"duration"`
	TopRisks      []ContractSummary `json:"top_risks,omitempty"`
	Failures      []FailureSummary  `json:"failures,omitempty"`
}

type ContractSummary struct {
	Path      string `json:"path"`
	RiskScore int    `json:"risk_score"`
	Report    string `json:"report"`
}

type FailureSummary struct {
	Path  string `json:"path"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

type AuditLog struct {
	logPath string
}

func NewAuditLog(outDir string) *AuditLog {
	return &AuditLog{logPath: filepath.Join(outDir, FileName)}
}

// Path returns the log file location.
func (a *AuditLog) Path() string { return a.logPath }

// LoadHistory returns recorded batches newest first. Corrupt lines are
// skipped and a missing log is an empty history.
func (a *AuditLog) LoadHistory() ([]BatchRecord, error) {
	f, err := os.Open(a.logPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	var records []BatchRecord
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxRecordBytes)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var record BatchRecord
		if err := json.Unmarshal(line, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit log: %w", err)
	}

	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (a *AuditLog) LogBatch(record BatchRecord) error {
	if record.BatchID == "" {
		record.BatchID = fmt.Sprintf("batch_%d", time.Now().Unix())
	}
	if err := os.MkdirAll(filepath.Dir(a.logPath), 0o755); err != nil {
		return fmt.Errorf("failed to create audit dir: %w", err)
	}
	f, err := os.OpenFile(a.logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("failed to open audit log: %w", err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	if err := encoder.Encode(record); err != nil {
		return fmt.Errorf("failed to write audit record: %w", err)
	}
	return nil
}

// CreateBatchRecord summarises a batch run. TopRisks holds the highest
// scoring contracts, ties broken by path.
func CreateBatchRecord(batchID, root string, res engine.BatchResult) BatchRecord {
	rec := BatchRecord{
		Timestamp:  time.Now(),
		BatchID:    batchID,
		Root:       root,
		Failed:     res.Failed,
		MaxRisk:    res.MaxRisk(),
		KindCounts: map[string]int{},
		Duration:   res.Duration.String(),
	}
	var ok []ContractSummary
	sum := 0
	for _, f := range res.Files {
		if f.Err != nil {
			rec.Failures = append(rec.Failures, FailureSummary{
				Path:  f.Rel,
				Kind:  engine.KindOf(f.Err).String(),
				Error: f.Err.Error(),
			})
			continue
		}
		rep := f.Outcome.Report
		sum += rep.RiskScore
		ok = append(ok, ContractSummary{Path: f.Rel, RiskScore: rep.RiskScore, Report: filepath.Base(f.Outcome.Path)})
		for _, fd := range f.Outcome.Findings {
			rec.KindCounts[string(fd.Kind)]++
		}
	}
	rec.FilesAnalyzed = len(ok)
	if len(ok) > 0 {
		rec.AvgRisk = float64(sum) / float64(len(ok))
	}
	sort.SliceStable(ok, func(i, j int) bool {
		if ok[i].RiskScore != ok[j].RiskScore {
			return ok[i].RiskScore > ok[j].RiskScore
		}
		return ok[i].Path < ok[j].Path
	})
	for _, c := range ok {
		if len(rec.TopRisks) == topN || c.RiskScore == 0 {
			break
		}
		rec.TopRisks = append(rec.TopRisks, c)
	}
	return rec
}

// kindCount is the record's count for k; absent kinds are zero.
func (r BatchRecord) kindCount(k types.Kind) int { return r.KindCounts[string(k)] }

// EcrecoverCount returns the batch total of ecrecover findings.
func (r BatchRecord) EcrecoverCount() int { return r.kindCount(types.KindEcrecover) }

// KeyExposureCount returns the batch total of key exposure findings.
func (r BatchRecord) KeyExposureCount() int { return r.kindCount(types.KindKeyExposure) }
