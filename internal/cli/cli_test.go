package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/burstfn/internal/app"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "burstfn.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestParse_Defaults(t *testing.T) {
	// --- Arrange ---
	t.Setenv(TokenSecretEnv, "")
	var out bytes.Buffer

	// --- Act ---
	cfg, exit, err := Parse([]string{"functions"}, &out)

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "functions", cfg.WorkspacePath)
	assert.Equal(t, app.DefaultPort, cfg.Port)
	assert.Equal(t, app.DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, "auto", cfg.LogFormat)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "burstfn.db", cfg.DataPath)
	assert.False(t, cfg.Production)
	assert.Empty(t, cfg.TokenSecret)
}

func TestParse_Flags(t *testing.T) {
	cfg, exit, err := Parse([]string{
		"-w", "ws",
		"-port", "9090",
		"-host", "127.0.0.1",
		"-log-level", "DEBUG",
		"-log-format", "json",
		"-prod",
		"-data-path", "",
		"-token-secret", "s3cret",
		"-request-limit", "1024",
		"-debounce", "250ms",
		"-max-depth", "4",
		"-disable-module-cache",
	}, &bytes.Buffer{})

	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, "ws", cfg.WorkspacePath)
	assert.Equal(t, "127.0.0.1:9090", cfg.Addr())
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, cfg.Production)
	assert.Empty(t, cfg.DataPath)
	assert.Equal(t, "s3cret", cfg.TokenSecret)
	assert.Equal(t, int64(1024), cfg.RequestLimit)
	assert.Equal(t, 250*time.Millisecond, cfg.Debounce)
	assert.Equal(t, 4, cfg.MaxDepth)
	assert.True(t, cfg.DisableModuleCache)
}

func TestParse_WorkspaceFlagWinsOverPositional(t *testing.T) {
	cfg, _, err := Parse([]string{"-workspace", "a", "b"}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "a", cfg.WorkspacePath)
}

func TestParse_ConfigFileSuppliesDefaults(t *testing.T) {
	// --- Arrange ---
	t.Setenv(TokenSecretEnv, "")
	path := writeConfig(t, `
workspace: functions
port: 7000
log_level: warn
prod: true
data_path: state/data.db
token_secret: from-file
debounce: 1s
max_depth: 10
`)
	dir := filepath.Dir(path)

	// --- Act ---
	cfg, exit, err := Parse([]string{"-config", path, "-port", "7100"}, &bytes.Buffer{})

	// --- Assert ---
	require.NoError(t, err)
	require.False(t, exit)
	assert.Equal(t, filepath.Join(dir, "functions"), cfg.WorkspacePath)
	assert.Equal(t, 7100, cfg.Port, "explicit flag wins")
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.True(t, cfg.Production)
	assert.Equal(t, filepath.Join(dir, "state/data.db"), cfg.DataPath)
	assert.Equal(t, "from-file", cfg.TokenSecret)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, 10, cfg.MaxDepth)
}

func TestParse_TokenSecretFromEnv(t *testing.T) {
	t.Setenv(TokenSecretEnv, "from-env")

	cfg, _, err := Parse([]string{"functions"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.TokenSecret)

	cfg, _, err = Parse([]string{"-token-secret", "from-flag", "functions"}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, "from-flag", cfg.TokenSecret)
}

func TestParse_ShouldExit(t *testing.T) {
	t.Run("help", func(t *testing.T) {
		var out bytes.Buffer
		cfg, exit, err := Parse([]string{"-h"}, &out)

		require.NoError(t, err)
		assert.True(t, exit)
		assert.Nil(t, cfg)
		assert.Contains(t, out.String(), "Usage:")
	})

	t.Run("no workspace", func(t *testing.T) {
		var out bytes.Buffer
		_, exit, err := Parse(nil, &out)

		require.NoError(t, err)
		assert.True(t, exit)
		assert.Contains(t, out.String(), "WORKSPACE")
	})
}

func TestParse_Errors(t *testing.T) {
	testCases := []struct {
		name    string
		args    func(t *testing.T) []string
		wantErr string
	}{
		{
			name:    "unknown flag",
			args:    func(*testing.T) []string { return []string{"-nope"} },
			wantErr: "flag provided but not defined",
		},
		{
			name:    "bad log level",
			args:    func(*testing.T) []string { return []string{"-log-level", "loud", "ws"} },
			wantErr: "invalid log level",
		},
		{
			name:    "bad port",
			args:    func(*testing.T) []string { return []string{"-port", "-5", "ws"} },
			wantErr: "invalid port",
		},
		{
			name:    "missing config file",
			args:    func(t *testing.T) []string { return []string{"-config", filepath.Join(t.TempDir(), "none.yaml"), "ws"} },
			wantErr: "reading config file",
		},
		{
			name: "unknown config key",
			args: func(t *testing.T) []string {
				return []string{"-config", writeConfig(t, "colour: blue\n"), "ws"}
			},
			wantErr: "parsing config file",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, exit, err := Parse(tc.args(t), &bytes.Buffer{})

			assert.False(t, exit)
			var exitErr *ExitError
			require.ErrorAs(t, err, &exitErr)
			assert.Equal(t, 2, exitErr.Code)
			assert.Contains(t, exitErr.Message, tc.wantErr)
		})
	}
}

func TestParse_EmptyConfigFile(t *testing.T) {
	cfg, _, err := Parse([]string{"-config", writeConfig(t, ""), "ws"}, &bytes.Buffer{})

	require.NoError(t, err)
	assert.Equal(t, "ws", cfg.WorkspacePath)
}
