// Package files edits repository housekeeping files.
package files

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
)

// AppendIgnore ensures the given pattern is present in .gitignore at repoRoot.
// It creates the file if missing and terminates an unfinished last line
// before appending. Idempotent.
func AppendIgnore(repoRoot, pattern string) error {
	path := filepath.Join(repoRoot, ".gitignore")
	existing := map[string]bool{}
	needsNewline := false
	if b, err := os.ReadFile(path); err == nil {
		sc := bufio.NewScanner(strings.NewReader(string(b)))
		for sc.Scan() {
			existing[strings.TrimSpace(sc.Text())] = true
		}
		needsNewline = len(b) > 0 && b[len(b)-1] != '\n'
	} else if !os.IsNotExist(err) {
		return err
	}
	if existing[pattern] {
		return nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	defer f.Close()
	line := pattern + "\n"
	if needsNewline {
		line = "\n" + line
	}
	_, err = f.WriteString(line)
	return err
}

// ReportIgnores returns the .gitignore patterns that keep saved reports out
// of version control. Directories outside the repository yield nothing.
func ReportIgnores(outDir string) []string {
	clean := filepath.ToSlash(filepath.Clean(outDir))
	if clean == "." || filepath.IsAbs(outDir) || strings.HasPrefix(clean, "../") {
		return nil
	}
	return []string{clean + "/"}
}
