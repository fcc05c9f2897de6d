package engine

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/hqc-securechain/qrisk/internal/ignore"
)

// FileResult is the outcome of one contract in a batch.
type FileResult struct {
	// Rel is the path relative to the batch root.
	Rel     string
	Outcome Outcome
	Err     error
}

// BatchResult collects a batch run in file order.
type BatchResult struct {
	Files    []FileResult
	Failed   int
	Duration time.Duration
}

// MaxRisk returns the highest score among successful files.
func (b BatchResult) MaxRisk() int {
	m := 0
	for _, f := range b.Files {
		if f.Err == nil {
			m = max(m, f.Outcome.Report.RiskScore)
		}
	}
	return m
}

// BatchOptions controls Batch.
type BatchOptions struct {
	Selection
	// Workers bounds concurrent pipelines; zero means GOMAXPROCS.
	Workers int
	// Progress, when set, is called once per finished file. Calls are
	// serialised.
	Progress func(FileResult)
}

func determineWorkers(n int) int {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	if n > 64 {
		n = 64
	}
	return n
}

// Batch analyses every selected contract under opts.Root with a bounded worker
// pool. Each file runs an independent pipeline and writes its own report; one
// file's failure is recorded in its FileResult and never stops the others.
// The returned error is non-nil only when the walk fails or ctx is cancelled.
func (e *Engine) Batch(ctx context.Context, opts BatchOptions) (BatchResult, error) {
	start := time.Now()
	var res BatchResult
	if opts.Root == "" {
		return res, &UsageError{Msg: "missing batch root"}
	}
	ign, err := ignore.Load(filepath.Join(opts.Root, ignore.FileName))
	if err != nil {
		return res, fmt.Errorf("load %s: %w", ignore.FileName, err)
	}
	files, err := Walk(ctx, opts.Selection, ign)
	if err != nil {
		return res, fmt.Errorf("walk %s: %w", opts.Root, err)
	}
	e.log.Debug("batch selected files", "root", opts.Root, "count", len(files))

	res.Files = make([]FileResult, len(files))
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(determineWorkers(opts.Workers))
	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out, err := e.Analyze(gctx, filepath.Join(opts.Root, filepath.FromSlash(rel)))
			fr := FileResult{Rel: rel, Outcome: out, Err: err}
			if err != nil {
				e.log.Warn("skipping contract", "file", rel, "error", err)
			}
			mu.Lock()
			res.Files[i] = fr
			if err != nil {
				res.Failed++
			}
			if opts.Progress != nil {
				opts.Progress(fr)
			}
			mu.Unlock()
			return nil
		})
	}
	err = g.Wait()
	res.Duration = time.Since(start)
	if err != nil {
		return res, err
	}
	return res, ctx.Err()
}
