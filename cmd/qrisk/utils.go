package qrisk

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-hclog"

	"github.com/hqc-securechain/qrisk/internal/config"
	"github.com/hqc-securechain/qrisk/internal/engine"
	"github.com/hqc-securechain/qrisk/internal/rules"
	"github.com/hqc-securechain/qrisk/internal/score"
)

// configs holds the file layers below the CLI flags.
type configs struct {
	local, global config.FileConfig
}

// loadConfigs returns the local and global layers. An explicit --config file
// replaces the local search in dir. Missing files are not errors; broken
// ones are.
func loadConfigs(dir string) (configs, error) {
	var c configs
	if g, err := config.LoadGlobal(); err == nil {
		c.global = g
	} else if p, perr := config.GlobalPath(); perr == nil && fileExists(p) {
		return c, &engine.UsageError{Msg: "global config", Err: err}
	}
	if flagConfig != "" {
		l, err := config.LoadFile(flagConfig)
		if err != nil {
			return c, &engine.UsageError{Msg: "config", Err: err}
		}
		c.local = l
		return c, nil
	}
	if l, err := config.LoadLocal(dir); err == nil {
		c.local = l
	} else if anyLocalExists(dir) {
		return c, &engine.UsageError{Msg: "local config", Err: err}
	}
	return c, nil
}

func fileExists(p string) bool {
	_, err := os.Stat(p)
	return err == nil
}

func anyLocalExists(dir string) bool {
	for _, name := range config.LocalNames {
		if fileExists(filepath.Join(dir, name)) {
			return true
		}
	}
	return false
}

// analysisFlags are shared by analyze and batch.
type analysisFlags struct {
	out            string
	parser         string
	solc           string
	disable        string
	byteTypes      string
	maxParseErrors int
}

// engineOptions merges flags over the local and global files.
func engineOptions(f analysisFlags, c configs, log hclog.Logger) engine.Options {
	opts := engine.Options{
		OutputDir:      pickString(f.out, c.local.OutputDir, c.global.OutputDir),
		Parser:         pickString(f.parser, c.local.Parser, c.global.Parser),
		SolcPath:       pickString(f.solc, c.local.SolcPath, c.global.SolcPath),
		MaxParseErrors: pickInt(f.maxParseErrors, c.local.MaxParseErrors, c.global.MaxParseErrors),
		ByteTypes:      pickList(splitList(f.byteTypes), c.local.ByteTypes, c.global.ByteTypes),
		Disable:        splitList(pickString(f.disable, c.local.Disable, c.global.Disable)),
		Custom:         mergeCustom(c.global.CustomSpecs(), c.local.CustomSpecs()),
		Logger:         log,
	}
	p := score.Default().With(c.global.WeightOverrides()).With(c.local.WeightOverrides())
	switch {
	case c.local.Ceiling != nil:
		p.Ceiling = *c.local.Ceiling
	case c.global.Ceiling != nil:
		p.Ceiling = *c.global.Ceiling
	}
	opts.Policy = &p
	return opts
}

// mergeCustom appends local rules to global ones; a local rule replaces a
// global rule with the same ID.
func mergeCustom(global, local []rules.CustomSpec) []rules.CustomSpec {
	if len(local) == 0 {
		return global
	}
	override := map[string]bool{}
	for _, r := range local {
		override[r.ID] = true
	}
	var out []rules.CustomSpec
	for _, r := range global {
		if !override[r.ID] {
			out = append(out, r)
		}
	}
	return append(out, local...)
}

func newLogger(c configs, w io.Writer) hclog.Logger {
	level := pickString(flagLogLevel, c.local.LogLevel, c.global.LogLevel)
	if flagQuiet && flagLogLevel == "" {
		level = "error"
	}
	lvl := hclog.LevelFromString(level)
	if lvl == hclog.NoLevel {
		lvl = hclog.Warn
	}
	return hclog.New(&hclog.LoggerOptions{
		Name:            "qrisk",
		Level:           lvl,
		Output:          w,
		Color:           hclog.ColorOff,
		DisableTime:     true,
		IncludeLocation: lvl <= hclog.Debug,
	})
}

func noColor(c configs) bool {
	return pickBool(flagNoColor, c.local.NoColor, c.global.NoColor)
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func pickString(cli string, local, global *string) string {
	if cli != "" {
		return cli
	}
	if local != nil && *local != "" {
		return *local
	}
	if global != nil && *global != "" {
		return *global
	}
	return ""
}

func pickInt(cli int, local, global *int) int {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickInt64(cli int64, local, global *int64) int64 {
	if cli != 0 {
		return cli
	}
	if local != nil && *local != 0 {
		return *local
	}
	if global != nil && *global != 0 {
		return *global
	}
	return 0
}

func pickBool(cli bool, local, global *bool) bool {
	if cli {
		return true
	}
	if local != nil {
		return *local
	}
	if global != nil {
		return *global
	}
	return false
}

func pickList(cli, local, global []string) []string {
	switch {
	case len(cli) > 0:
		return cli
	case len(local) > 0:
		return local
	}
	return global
}
