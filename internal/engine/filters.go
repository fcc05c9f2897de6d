package engine

import (
	"path/filepath"
	"strings"

	doublestar "github.com/bmatcuk/doublestar/v4"
)

// SourceExt is the extension batch runs select.
const SourceExt = ".sol"

// dependency and build output directories of common Solidity toolchains
var defaultExcludeDirs = map[string]bool{
	".git":         true,
	"node_modules": true,
	"lib":          true, // foundry dependencies
	"out":          true,
	"cache":        true,
	"artifacts":    true,
	"typechain":    true,
	"coverage":     true,
	"build":        true,
	".deps":        true,
}

func isDefaultDirExcluded(name string) bool {
	return defaultExcludeDirs[name] || strings.HasPrefix(name, ".git")
}

// foundry test and script files are not deployed contracts
func isDefaultFileExcluded(lowerRel string) bool {
	return strings.HasSuffix(lowerRel, ".t.sol") || strings.HasSuffix(lowerRel, ".s.sol")
}

func allowedByGlobs(relPath string, include, exclude []string) bool {
	rp := filepath.ToSlash(relPath)
	if len(include) > 0 && !matchAnyGlob(rp, include) {
		return false
	}
	if len(exclude) > 0 && matchAnyGlob(rp, exclude) {
		return false
	}
	return true
}

// ParseGlobs splits a comma separated glob list. Each glob is also kept
// without a leading "**/" so that root-level files match.
func ParseGlobs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
			if t := trimGlobPrefix(p); t != p {
				out = append(out, t)
			}
		}
	}
	return out
}

func matchAnyGlob(pathToMatch string, globs []string) bool {
	for _, g := range globs {
		if ok, _ := doublestar.Match(g, pathToMatch); ok {
			return true
		}
		if ok, _ := doublestar.Match(g, filepath.Base(pathToMatch)); ok {
			return true
		}
	}
	return false
}

func trimGlobPrefix(g string) string {
	return strings.TrimPrefix(g, "**/")
}
