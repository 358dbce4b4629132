package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the command-line flags. Relative paths are resolved
// against the directory holding the file.
type fileConfig struct {
	Workspace          string        `yaml:"workspace"`
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	HealthcheckPort    int           `yaml:"healthcheck_port"`
	LogFormat          string        `yaml:"log_format"`
	LogLevel           string        `yaml:"log_level"`
	Prod               bool          `yaml:"prod"`
	DataPath           string        `yaml:"data_path"`
	TokenSecret        string        `yaml:"token_secret"`
	RequestLimit       int64         `yaml:"request_limit"`
	Debounce           time.Duration `yaml:"debounce"`
	MaxDepth           int           `yaml:"max_depth"`
	DisableModuleCache bool          `yaml:"disable_module_cache"`
}

func loadFile(path string) (*fileConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg fileConfig
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	cfg.Workspace = resolve(dir, cfg.Workspace)
	cfg.DataPath = resolve(dir, cfg.DataPath)
	return &cfg, nil
}

func resolve(dir, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
