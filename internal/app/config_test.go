package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewConfig_Defaults(t *testing.T) {
	// --- Act ---
	cfg, err := NewConfig(Config{WorkspacePath: "functions"})

	// --- Assert ---
	require.NoError(t, err)
	assert.Equal(t, DefaultPort, cfg.Port)
	assert.Equal(t, DefaultMaxDepth, cfg.MaxDepth)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.Addr())
}

func TestNewConfig_KeepsExplicitValues(t *testing.T) {
	cfg, err := NewConfig(Config{
		WorkspacePath: "functions",
		Host:          "127.0.0.1",
		Port:          9000,
		LogLevel:      "debug",
		LogFormat:     "auto",
		MaxDepth:      3,
		Debounce:      50 * time.Millisecond,
	})

	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.Addr())
	assert.Equal(t, 3, cfg.MaxDepth)
	assert.Equal(t, "auto", cfg.LogFormat)
}

func TestNewConfig_Invalid(t *testing.T) {
	testCases := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing workspace", Config{}, "WorkspacePath"},
		{"port out of range", Config{WorkspacePath: "w", Port: 70000}, "invalid port"},
		{"negative healthcheck port", Config{WorkspacePath: "w", HealthcheckPort: -1}, "invalid healthcheck port"},
		{"healthcheck collides", Config{WorkspacePath: "w", Port: 8080, HealthcheckPort: 8080}, "collides"},
		{"bad level", Config{WorkspacePath: "w", LogLevel: "loud"}, "invalid log level"},
		{"bad format", Config{WorkspacePath: "w", LogFormat: "xml"}, "invalid log format"},
		{"negative depth", Config{WorkspacePath: "w", MaxDepth: -1}, "invalid max depth"},
		{"negative debounce", Config{WorkspacePath: "w", Debounce: -time.Second}, "invalid debounce"},
		{"negative limit", Config{WorkspacePath: "w", RequestLimit: -1}, "invalid request limit"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewConfig(tc.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}
