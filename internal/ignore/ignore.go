// Package ignore reads .qriskignore files: one gitignore-style pattern per
// line, '#' comments, a trailing '/' for directories and a leading '!' to
// re-include. Patterns are matched with doublestar against slash-separated
// paths relative to the batch root.
package ignore

import (
	"bufio"
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// FileName is the ignore file looked up at a batch root.
const FileName = ".qriskignore"

type rule struct {
	glob   string
	dir    bool
	negate bool
}

// Matcher decides whether a relative path is ignored. The zero value ignores
// nothing.
type Matcher struct {
	rules []rule
}

// Load reads path. A missing file yields an empty matcher.
func Load(path string) (Matcher, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Matcher{}, nil
		}
		return Matcher{}, err
	}
	defer f.Close()
	return Parse(f)
}

// Parse reads patterns from r.
func Parse(r io.Reader) (Matcher, error) {
	var m Matcher
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		var ru rule
		if rest, ok := strings.CutPrefix(line, "!"); ok {
			ru.negate = true
			line = rest
		}
		if rest, ok := strings.CutSuffix(line, "/"); ok {
			ru.dir = true
			line = rest
		}
		if line == "" || !doublestar.ValidatePattern(line) {
			continue
		}
		ru.glob = line
		m.rules = append(m.rules, ru)
	}
	return m, sc.Err()
}

// Match reports whether rel is ignored. The last matching pattern wins.
func (m Matcher) Match(rel string) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	ignored := false
	for _, ru := range m.rules {
		if ru.matches(rel) {
			ignored = !ru.negate
		}
	}
	return ignored
}

// MatchDir reports whether directory rel is pruned by a directory pattern
// such as "node_modules/". File patterns never prune, so a later "!" can
// still re-include files below a matched path.
func (m Matcher) MatchDir(rel string) bool {
	rel = strings.TrimPrefix(filepath.ToSlash(rel), "./")
	pruned := false
	for _, ru := range m.rules {
		if !ru.dir {
			continue
		}
		if ok, _ := doublestar.Match(ru.anchored(), rel); ok {
			pruned = !ru.negate
		}
	}
	return pruned
}

// anchored returns the glob relative to the root. Without a slash a pattern
// applies at any depth.
func (ru rule) anchored() string {
	if strings.Contains(ru.glob, "/") {
		return strings.TrimPrefix(ru.glob, "/")
	}
	return "**/" + ru.glob
}

func (ru rule) matches(rel string) bool {
	glob := ru.anchored()
	if ru.dir {
		ok, _ := doublestar.Match(glob+"/**", rel)
		return ok
	}
	if ok, _ := doublestar.Match(glob, rel); ok {
		return true
	}
	ok, _ := doublestar.Match(glob+"/**", rel)
	return ok
}
