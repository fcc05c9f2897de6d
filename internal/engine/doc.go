// Package engine runs the analysis pipeline: it loads one contract, parses it,
// applies the rule table, scores the result and persists the report. Batch
// runs fan the same pipeline out over a directory tree. This package is
// internal; external consumers should use the stable facade in pkg/core.
package engine
