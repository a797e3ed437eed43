package slogutil

import (
	"io"
	"log/slog"

	"abicompat/internal/config"
)

// LoggerFactory builds the CLI logger from configuration.
// Level precedence: CLI flag > config logging.level > warn.
type LoggerFactory struct {
	root     string
	config   *config.Config
	cliLevel slog.Level
	cliSet   bool
	closers  []io.Closer
}

// NewLoggerFactory creates a factory for the project at root.
func NewLoggerFactory(root string, cfg *config.Config) *LoggerFactory {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &LoggerFactory{root: root, config: cfg}
}

// SetCLILevel records a level chosen on the command line.
func (f *LoggerFactory) SetCLILevel(level slog.Level) {
	f.cliLevel = level
	f.cliSet = true
}

// EffectiveLevel returns the level loggers are created with.
func (f *LoggerFactory) EffectiveLevel() slog.Level {
	if f.cliSet {
		return f.cliLevel
	}
	if level, err := ParseLevel(f.config.Logging.Level); err == nil {
		return level
	}
	return slog.LevelWarn
}

// Logger returns a logger writing to console and, when logging.file is
// configured, also to a rotating log file. The file always records at
// least info level. A log file that cannot be opened is reported on the
// console logger and skipped.
func (f *LoggerFactory) Logger(console io.Writer) *slog.Logger {
	level := f.EffectiveLevel()
	consoleHandler := NewHandler(console, &slog.HandlerOptions{Level: level})

	path := f.config.LogPath(f.root)
	if path == "" {
		return slog.New(consoleHandler)
	}

	fileLevel := level
	if fileLevel > slog.LevelInfo {
		fileLevel = slog.LevelInfo
	}
	w, err := OpenRotatingFile(path, f.config.Logging.MaxSizeMB, f.config.Logging.MaxBackups)
	if err != nil {
		logger := slog.New(consoleHandler)
		logger.Warn("Cannot open log file", "path", path, "error", err)
		return logger
	}
	f.closers = append(f.closers, w)
	return slog.New(fanout{consoleHandler, NewHandler(w, &slog.HandlerOptions{Level: fileLevel})})
}

// Close closes all open log files.
func (f *LoggerFactory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
