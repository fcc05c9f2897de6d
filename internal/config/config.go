package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/hqc-securechain/qrisk/internal/rules"
	"github.com/hqc-securechain/qrisk/internal/types"
)

// LocalNames are the repo-local config files, in search order.
var LocalNames = []string{".qrisk.yml", ".qrisk.yaml", "qrisk.yml", "qrisk.yaml"}

// FileConfig is the on-disk YAML configuration shape for qrisk. Nil fields
// were not set and fall through to the next source.
type FileConfig struct {
	OutputDir      *string  `yaml:"output_dir,omitempty"`
	Parser         *string  `yaml:"parser,omitempty"`
	SolcPath       *string  `yaml:"solc_path,omitempty"`
	MaxParseErrors *int     `yaml:"max_parse_errors,omitempty"`
	ByteTypes      []string `yaml:"byte_types,omitempty"`
	Disable        *string  `yaml:"disable,omitempty"`
	NoColor        *bool    `yaml:"no_color,omitempty"`
	LogLevel       *string  `yaml:"log_level,omitempty"`

	// Scoring
	Weights map[string]int `yaml:"weights,omitempty"`
	Ceiling *int           `yaml:"ceiling,omitempty"`

	// Custom CEL rules appended to the built-in table
	Rules []RuleConfig `yaml:"rules,omitempty"`

	// Batch selection mirrors the batch flags
	Include         *string `yaml:"include,omitempty"`
	Exclude         *string `yaml:"exclude,omitempty"`
	Workers         *int    `yaml:"workers,omitempty"`
	DefaultExcludes *bool   `yaml:"default_excludes,omitempty"`
	MaxBytes        *int64  `yaml:"max_bytes,omitempty"`
}

// RuleConfig declares one custom rule.
type RuleConfig struct {
	ID       string `yaml:"id,omitempty"`
	Kind     string `yaml:"kind,omitempty"`
	Category string `yaml:"category,omitempty"`
	Expr     string `yaml:"expr,omitempty"`
	Message  string `yaml:"message,omitempty"`
	// Weight is added to the scoring table under Kind.
	Weight *int `yaml:"weight,omitempty"`
}

// LoadFile reads a YAML config file from the provided path. Unknown keys are
// rejected so that typos do not silently fall back to defaults.
func LoadFile(path string) (FileConfig, error) {
	var cfg FileConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	return cfg, nil
}

// LoadLocal searches for a repo-local config file in the given root.
// It supports .qrisk.yml/.yaml and qrisk.yml/.yaml.
func LoadLocal(repoRoot string) (FileConfig, error) {
	var cfg FileConfig
	for _, name := range LocalNames {
		p := filepath.Join(repoRoot, name)
		if _, err := os.Stat(p); err == nil {
			return LoadFile(p)
		}
	}
	return cfg, errors.New("no local config")
}

// GlobalPath returns the global config location under XDG_CONFIG_HOME or
// ~/.config.
func GlobalPath() (string, error) {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, _ := os.UserHomeDir()
		if home != "" {
			base = filepath.Join(home, ".config")
		}
	}
	if base == "" {
		return "", errors.New("no config dir")
	}
	return filepath.Join(base, "qrisk", "config.yml"), nil
}

// LoadGlobal loads the global config file from XDG base directory or ~/.config.
func LoadGlobal() (FileConfig, error) {
	var cfg FileConfig
	p, err := GlobalPath()
	if err != nil {
		return cfg, err
	}
	if _, err := os.Stat(p); err == nil {
		return LoadFile(p)
	}
	return cfg, errors.New("no global config")
}

// CustomSpecs converts the configured rules for rules.Compile.
func (fc FileConfig) CustomSpecs() []rules.CustomSpec {
	if len(fc.Rules) == 0 {
		return nil
	}
	out := make([]rules.CustomSpec, 0, len(fc.Rules))
	for _, r := range fc.Rules {
		out = append(out, rules.CustomSpec{
			ID:       r.ID,
			Kind:     r.Kind,
			Category: r.Category,
			Expr:     r.Expr,
			Message:  r.Message,
		})
	}
	return out
}

// WeightOverrides merges the weights table with the per-rule weights. A
// per-rule weight wins over a weights entry for the same kind.
func (fc FileConfig) WeightOverrides() map[types.Kind]int {
	out := map[types.Kind]int{}
	for k, w := range fc.Weights {
		out[types.Kind(k)] = w
	}
	for _, r := range fc.Rules {
		if r.Weight != nil && r.Kind != "" {
			out[types.Kind(r.Kind)] = *r.Weight
		}
	}
	return out
}
