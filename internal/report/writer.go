package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hqc-securechain/qrisk/internal/rules"
	"github.com/hqc-securechain/qrisk/internal/score"
	"github.com/hqc-securechain/qrisk/internal/types"
)

// Suffix ends every report filename. Listing a directory, keeping names with
// this suffix and sorting them yields reports oldest first.
const Suffix = "-analysis.json"

// maxSeq bounds the burst counter within one millisecond.
const maxSeq = 999

// Build assembles the immutable report for one run.
func Build(contract string, res rules.Result, p score.Policy) types.Report {
	return types.Report{
		Contract:               contract,
		EcrecoverCount:         res.Counts[types.KindEcrecover],
		PublicKeyExposureCount: res.Counts[types.KindKeyExposure],
		RiskScore:              p.Score(res.Counts),
		Warnings:               res.Messages(),
	}
}

// Marshal renders rep exactly as it is persisted.
func Marshal(rep types.Report) ([]byte, error) {
	if rep.Warnings == nil {
		rep.Warnings = []string{}
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(b, '\n'), nil
}

// FileName returns the report name for a millisecond timestamp and burst
// sequence. Sequence zero has no counter; later ones add ".NNN". Since
// '-' sorts before '.', which sorts before digits, lexicographic order stays
// chronological.
func FileName(millis int64, seq int) string {
	if seq == 0 {
		return fmt.Sprintf("%013d%s", millis, Suffix)
	}
	return fmt.Sprintf("%013d.%03d%s", millis, seq, Suffix)
}

// Writer persists reports into one flat directory. It is safe for concurrent
// use, and separate processes sharing the directory never overwrite each
// other because the final name is claimed with a hard link that fails when
// the name exists.
type Writer struct {
	Dir string
	// Clock defaults to time.Now.
	Clock func() time.Time

	mu      sync.Mutex
	lastMs  int64
	lastSeq int
}

// NewWriter returns a Writer for dir.
func NewWriter(dir string) *Writer { return &Writer{Dir: dir} }

func (w *Writer) now() time.Time {
	if w.Clock != nil {
		return w.Clock()
	}
	return time.Now()
}

// next reserves the next (millis, seq) pair, never going backwards even if
// the clock does.
func (w *Writer) next() (int64, int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	ms := w.now().UnixMilli()
	seq := 0
	if ms <= w.lastMs {
		ms, seq = w.lastMs, w.lastSeq+1
		if seq > maxSeq {
			ms, seq = ms+1, 0
		}
	}
	w.lastMs, w.lastSeq = ms, seq
	return ms, seq
}

// Write persists rep and returns the path of the new file. The write is all
// or nothing: on any error no file with the report suffix is left behind.
func (w *Writer) Write(rep types.Report) (string, error) {
	data, err := Marshal(rep)
	if err != nil {
		return "", fmt.Errorf("encode report: %w", err)
	}
	if err := os.MkdirAll(w.Dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(w.Dir, ".qrisk-*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp report: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("sync temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("close temp report: %w", err)
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return "", fmt.Errorf("chmod temp report: %w", err)
	}

	ms, seq := w.next()
	for attempt := 0; attempt <= maxSeq+1; attempt++ {
		final := filepath.Join(w.Dir, FileName(ms, seq))
		err := os.Link(tmpName, final)
		if err == nil {
			return final, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return "", fmt.Errorf("publish report: %w", err)
		}
		// another writer took this name; move past it
		w.mu.Lock()
		if seq++; seq > maxSeq {
			ms, seq = ms+1, 0
		}
		if ms > w.lastMs || (ms == w.lastMs && seq > w.lastSeq) {
			w.lastMs, w.lastSeq = ms, seq
		}
		w.mu.Unlock()
	}
	return "", fmt.Errorf("publish report: no free name near %s", FileName(ms, 0))
}
