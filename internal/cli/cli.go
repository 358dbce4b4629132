package cli

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/vk/burstfn/internal/app"
)

// TokenSecretEnv is consulted when no token secret is given by flag or file.
const TokenSecretEnv = "BURSTFN_TOKEN_SECRET"

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// Parse processes command-line arguments. It returns a populated Config,
// a boolean indicating if the program should exit cleanly, or an ExitError.
// Values from the -config file fill in every flag that was not given
// explicitly.
func Parse(args []string, output io.Writer) (*app.Config, bool, error) {
	slog.Debug("CLI parser started.")
	flagSet := flag.NewFlagSet("burstfn", flag.ContinueOnError)
	flagSet.SetOutput(output)

	flagSet.Usage = func() {
		fmt.Fprint(output, `
burstfn - A hot-reloading function runtime for HCL workspaces.

Usage:
  burstfn [options] [WORKSPACE]

Arguments:
  WORKSPACE
    Directory of .hcl function files. Each file is served at /<relative path>.

Options:
`)
		flagSet.PrintDefaults()
	}

	workspaceFlag := flagSet.String("workspace", "", "Path to the function workspace directory.")
	wFlag := flagSet.String("w", "", "Path to the function workspace directory (shorthand).")
	configFlag := flagSet.String("config", "", "Path to a YAML config file supplying defaults.")
	hostFlag := flagSet.String("host", "", "Interface to listen on. Empty listens on all.")
	portFlag := flagSet.Int("port", app.DefaultPort, "Port for the function server.")
	healthPortFlag := flagSet.Int("healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	logFormatFlag := flagSet.String("log-format", "auto", "Log output format. Options: 'text', 'json' or 'auto'.")
	logLevelFlag := flagSet.String("log-level", "info", "Set the logging level. Options: 'debug', 'info', 'warn', 'error'.")
	prodFlag := flagSet.Bool("prod", false, "Production mode: disable hot reload.")
	dataPathFlag := flagSet.String("data-path", "burstfn.db", "Path to the database file. Empty disables the database.")
	tokenSecretFlag := flagSet.String("token-secret", "", "Secret used to sign tokens. Falls back to $"+TokenSecretEnv+".")
	requestLimitFlag := flagSet.Int64("request-limit", 0, "Maximum request body size in bytes. 0 uses the server default.")
	debounceFlag := flagSet.Duration("debounce", 0, "Quiet period before a changed file is reloaded. 0 uses the watcher default.")
	maxDepthFlag := flagSet.Int("max-depth", app.DefaultMaxDepth, "Maximum nested invocation depth.")
	noCacheFlag := flagSet.Bool("disable-module-cache", false, "Instantiate functions on every invocation.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return nil, true, nil
		}
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}
	slog.Debug("Arguments parsed successfully.")

	explicit := map[string]bool{}
	flagSet.Visit(func(f *flag.Flag) { explicit[f.Name] = true })

	var file fileConfig
	if *configFlag != "" {
		loaded, err := loadFile(*configFlag)
		if err != nil {
			return nil, false, &ExitError{Code: 2, Message: err.Error()}
		}
		file = *loaded
		slog.Debug("Config file loaded.", "path", *configFlag)
	}

	var path string
	if *workspaceFlag != "" {
		path = *workspaceFlag
	} else if *wFlag != "" {
		path = *wFlag
	} else if flagSet.NArg() > 0 {
		path = flagSet.Arg(0)
	} else {
		path = file.Workspace
	}
	slog.Debug("Workspace path determined.", "path", path)

	if path == "" {
		slog.Debug("No workspace path provided, printing usage and exiting.")
		flagSet.Usage()
		return nil, true, nil
	}

	tokenSecret := pick(explicit["token-secret"], *tokenSecretFlag, file.TokenSecret)
	if tokenSecret == "" {
		tokenSecret = os.Getenv(TokenSecretEnv)
	}

	config, err := app.NewConfig(app.Config{
		WorkspacePath:      path,
		Host:               pick(explicit["host"], *hostFlag, file.Host),
		Port:               pick(explicit["port"], *portFlag, file.Port),
		HealthcheckPort:    pick(explicit["healthcheck-port"], *healthPortFlag, file.HealthcheckPort),
		LogFormat:          strings.ToLower(pick(explicit["log-format"], *logFormatFlag, file.LogFormat)),
		LogLevel:           strings.ToLower(pick(explicit["log-level"], *logLevelFlag, file.LogLevel)),
		Production:         pick(explicit["prod"], *prodFlag, file.Prod),
		Debounce:           pick(explicit["debounce"], *debounceFlag, file.Debounce),
		MaxDepth:           pick(explicit["max-depth"], *maxDepthFlag, file.MaxDepth),
		DisableModuleCache: pick(explicit["disable-module-cache"], *noCacheFlag, file.DisableModuleCache),
		RequestLimit:       pick(explicit["request-limit"], *requestLimitFlag, file.RequestLimit),
		DataPath:           pick(explicit["data-path"], *dataPathFlag, file.DataPath),
		TokenSecret:        tokenSecret,
	})
	if err != nil {
		return nil, false, &ExitError{Code: 2, Message: err.Error()}
	}

	slog.Debug("CLI parser finished successfully.", "workspace", config.WorkspacePath, "addr", config.Addr())
	return config, false, nil
}

// pick returns the flag value when it was set explicitly or the file left
// the setting empty.
func pick[T comparable](explicit bool, flagValue, fileValue T) T {
	var zero T
	if explicit || fileValue == zero {
		return flagValue
	}
	return fileValue
}
