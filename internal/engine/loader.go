package engine

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// SourceUnit is the loaded text of one contract.
type SourceUnit struct {
	Path string
	// Name is the base filename; it becomes the report's contract field.
	Name string
	Text string
}

// Load reads path fully. The file handle is closed before returning on every
// path.
func Load(path string) (SourceUnit, error) {
	if strings.TrimSpace(path) == "" {
		return SourceUnit{}, &UsageError{Msg: "missing contract path"}
	}
	info, err := os.Stat(path)
	if err != nil {
		return SourceUnit{}, &NotFoundError{Path: path, Err: err}
	}
	if info.IsDir() {
		return SourceUnit{}, &NotFoundError{Path: path, Err: errors.New("is a directory")}
	}
	if !info.Mode().IsRegular() {
		return SourceUnit{}, &NotFoundError{Path: path, Err: errors.New("not a regular file")}
	}
	f, err := os.Open(path)
	if err != nil {
		return SourceUnit{}, &NotFoundError{Path: path, Err: err}
	}
	defer f.Close()
	b, err := io.ReadAll(f)
	if err != nil {
		return SourceUnit{}, &NotFoundError{Path: path, Err: err}
	}
	return SourceUnit{Path: path, Name: filepath.Base(path), Text: string(b)}, nil
}
