package report

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/hqc-securechain/qrisk/internal/types"
)

// ErrNoReports is returned by Latest when the directory holds no reports.
var ErrNoReports = errors.New("no analysis reports found")

// List returns report filenames in dir oldest first. A missing directory
// is an empty list.
func List(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	var names []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, Suffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Read decodes one persisted report.
func Read(path string) (types.Report, error) {
	var rep types.Report
	b, err := os.ReadFile(path)
	if err != nil {
		return rep, err
	}
	if err := json.Unmarshal(b, &rep); err != nil {
		return rep, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	if rep.Warnings == nil {
		rep.Warnings = []string{}
	}
	return rep, nil
}

// Latest returns the newest report in dir and its path.
func Latest(dir string) (types.Report, string, error) {
	names, err := List(dir)
	if err != nil {
		return types.Report{}, "", err
	}
	if len(names) == 0 {
		return types.Report{}, "", ErrNoReports
	}
	path := filepath.Join(dir, names[len(names)-1])
	rep, err := Read(path)
	return rep, path, err
}
