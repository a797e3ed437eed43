package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"

	"github.com/spf13/cobra"

	"abicompat/internal/config"
	"abicompat/internal/slogutil"
	"abicompat/internal/version"
)

var (
	rootDirFlag  string
	logLevelFlag string
	verboseFlag  int
	quietFlag    bool
)

// app is the per-invocation state prepared before a command runs.
var app struct {
	root   string
	config *config.Config
	logs   *slogutil.LoggerFactory
	logger *slog.Logger
}

var rootCmd = &cobra.Command{
	Use:   "abicompat",
	Short: "abicompat - C++ API/ABI compatibility checker",
	Long: `abicompat compares the declaration models of two versions of a C++ library
and reports every source or binary incompatibility with a severity, a rationale
and semantic version advice.

Models are JSON, YAML or TOML documents (optionally zstd-compressed), SCIP
indexes, or headers read with the built-in extractor.`,
	Version:           version.Info(),
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setupApp,
}

func init() {
	rootCmd.SetVersionTemplate("abicompat version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootDirFlag, "root", ".",
		"Project root holding .abicompat/config.json")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "",
		"Log level: debug, info, warn, error (overrides -v and config)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all log output")
}

// setupApp loads configuration and builds the logger.
// Level precedence: --quiet > --log-level > -v > config logging.level.
func setupApp(cmd *cobra.Command, args []string) error {
	root, err := filepath.Abs(rootDirFlag)
	if err != nil {
		return inputError(fmt.Errorf("invalid --root: %w", err))
	}
	cfg, err := config.LoadConfig(root)
	if err != nil {
		return inputError(err)
	}

	logs := slogutil.NewLoggerFactory(root, cfg)
	switch {
	case quietFlag:
		logs.SetCLILevel(slogutil.LevelSilent)
	case logLevelFlag != "":
		level, err := slogutil.ParseLevel(logLevelFlag)
		if err != nil {
			return inputError(err)
		}
		logs.SetCLILevel(level)
	case verboseFlag > 0:
		logs.SetCLILevel(slogutil.VerbosityLevel(verboseFlag))
	}

	closeApp()
	app.root = root
	app.config = cfg
	app.logs = logs
	app.logger = logs.Logger(cmd.ErrOrStderr())
	app.logger.Debug("Configuration loaded", "root", root, "logLevel", logs.EffectiveLevel().String())
	return nil
}

func closeApp() {
	if app.logs != nil {
		_ = app.logs.Close()
	}
	app.logs = nil
}

func newContext() context.Context {
	return context.Background()
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	closeApp()
	if err == nil {
		return ExitOK
	}
	code := exitCodeOf(err)
	if msg := err.Error(); msg != "" {
		fmt.Fprintf(stderr, "Error: %s\n", msg)
		printFixes(stderr, err)
	}
	return code
}
