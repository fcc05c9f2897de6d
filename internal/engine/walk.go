package engine

import (
	"context"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hqc-securechain/qrisk/internal/ignore"
)

// Selection picks the contracts of a batch run.
type Selection struct {
	Root    string
	Include []string
	Exclude []string
	// DefaultExcludes skips dependency and build directories and
	// foundry test and script files.
	DefaultExcludes bool
	// MaxBytes skips larger files when positive.
	MaxBytes int64
}

// Walk returns the Solidity files under sel.Root, relative to it and sorted.
// Paths matched by the root's .qriskignore are skipped. Unreadable entries
// are skipped rather than failing the walk.
func Walk(ctx context.Context, sel Selection, ign ignore.Matcher) ([]string, error) {
	var out []string
	err := filepath.WalkDir(sel.Root, func(p string, d fs.DirEntry, err error) error {
		if ctx != nil {
			if cerr := ctx.Err(); cerr != nil {
				return cerr
			}
		}
		if err != nil {
			return nil
		}
		rel, _ := filepath.Rel(sel.Root, p)
		if d.IsDir() {
			if p == sel.Root {
				return nil
			}
			if sel.DefaultExcludes && isDefaultDirExcluded(d.Name()) {
				return filepath.SkipDir
			}
			if ign.MatchDir(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !strings.EqualFold(filepath.Ext(p), SourceExt) {
			return nil
		}
		if sel.DefaultExcludes && isDefaultFileExcluded(strings.ToLower(filepath.ToSlash(rel))) {
			return nil
		}
		if !allowedByGlobs(rel, sel.Include, sel.Exclude) {
			return nil
		}
		if ign.Match(rel) {
			return nil
		}
		if sel.MaxBytes > 0 {
			if info, _ := d.Info(); info != nil && info.Size() > sel.MaxBytes {
				return nil
			}
		}
		out = append(out, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(out)
	return out, nil
}
