package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/hqc-securechain/qrisk/internal/rules"
	"github.com/hqc-securechain/qrisk/internal/types"
)

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(body), 0o644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}
	return p
}

func TestLoadFile_Basic(t *testing.T) {
	dir := t.TempDir()
	p := writeTemp(t, dir, "qrisk.yaml", `output_dir: out
parser: solc
max_parse_errors: 50
byte_types: [bytes, bytes32, bytes64]
weights:
  ECRECOVER_USAGE: 40
ceiling: 90
workers: 4
rules:
  - id: member-ecrecover
    kind: MEMBER_ECRECOVER
    category: call
    expr: 'member && callee == "ecrecover"'
    weight: 25
`)
	cfg, err := LoadFile(p)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.OutputDir == nil || *cfg.OutputDir != "out" {
		t.Fatalf("expected output_dir=out, got %#v", cfg.OutputDir)
	}
	if cfg.Parser == nil || *cfg.Parser != "solc" {
		t.Fatalf("expected parser=solc, got %#v", cfg.Parser)
	}
	if cfg.MaxParseErrors == nil || *cfg.MaxParseErrors != 50 {
		t.Fatalf("expected max_parse_errors=50, got %#v", cfg.MaxParseErrors)
	}
	if cfg.Workers == nil || *cfg.Workers != 4 {
		t.Fatalf("expected workers=4, got %#v", cfg.Workers)
	}
	assert.Equal(t, []string{"bytes", "bytes32", "bytes64"}, cfg.ByteTypes)
	require.NotNil(t, cfg.Ceiling)
	assert.Equal(t, 90, *cfg.Ceiling)
	assert.Nil(t, cfg.NoColor)

	assert.Equal(t, []rules.CustomSpec{{
		ID:       "member-ecrecover",
		Kind:     "MEMBER_ECRECOVER",
		Category: "call",
		Expr:     `member && callee == "ecrecover"`,
	}}, cfg.CustomSpecs())
	assert.Equal(t, map[types.Kind]int{types.KindEcrecover: 40, "MEMBER_ECRECOVER": 25}, cfg.WeightOverrides())
}

func TestLoadFile_RejectsUnknownKeys(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "qrisk.yml", "outptu_dir: typo\n")
	_, err := LoadFile(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qrisk.yml")
}

func TestLoadFile_Empty(t *testing.T) {
	p := writeTemp(t, t.TempDir(), "qrisk.yml", "")
	cfg, err := LoadFile(p)
	require.NoError(t, err)
	assert.Nil(t, cfg.OutputDir)
	assert.Nil(t, cfg.CustomSpecs())
	assert.Empty(t, cfg.WeightOverrides())
}

func TestLoadLocal_PrefersDotfile(t *testing.T) {
	dir := t.TempDir()
	// place both, expect the dotfile to be picked first by search order
	writeTemp(t, dir, "qrisk.yaml", "workers: 1\n")
	writeTemp(t, dir, ".qrisk.yaml", "workers: 7\n")
	cfg, err := LoadLocal(dir)
	if err != nil {
		t.Fatalf("LoadLocal: %v", err)
	}
	if cfg.Workers == nil || *cfg.Workers != 7 {
		t.Fatalf("expected workers=7 from .qrisk.yaml, got %#v", cfg.Workers)
	}
}

func TestLoadLocal_NoConfig(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadLocal(dir); err == nil {
		t.Fatal("expected error when no local config exists")
	}
}

func TestLoadGlobal_XDG_Config(t *testing.T) {
	dir := t.TempDir()
	cfgDir := filepath.Join(dir, "qrisk")
	if err := os.MkdirAll(cfgDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	p := filepath.Join(cfgDir, "config.yml")
	if err := os.WriteFile(p, []byte("log_level: debug\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	t.Setenv("XDG_CONFIG_HOME", dir)
	cfg, err := LoadGlobal()
	if err != nil {
		t.Fatalf("LoadGlobal: %v", err)
	}
	if cfg.LogLevel == nil || *cfg.LogLevel != "debug" {
		t.Fatalf("expected log_level=debug from global config, got %#v", cfg.LogLevel)
	}
	gp, err := GlobalPath()
	require.NoError(t, err)
	assert.Equal(t, p, gp)
}

func TestLoadGlobal_NoConfig(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "")
	// with no HOME either there is no config dir to look in
	t.Setenv("HOME", "")
	if _, err := LoadGlobal(); err == nil {
		t.Fatal("expected error when no global config dir exists")
	}
}

func TestFileConfig_MarshalOmitsUnset(t *testing.T) {
	dir := "reports"
	b, err := yaml.Marshal(FileConfig{OutputDir: &dir})
	require.NoError(t, err)
	assert.Equal(t, "output_dir: reports\n", string(b))
}
