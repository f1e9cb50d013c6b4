package logger

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// Logger wraps zerolog.Logger with the writers it owns
type Logger struct {
	logger   zerolog.Logger
	file     io.Closer
	path     string
	redactor *Redactor
}

// Config holds logger configuration
type Config struct {
	Level     string // debug, info, warn, error
	FileLevel string // level for the file writer, defaults to Level
	Dir       string // directory for dated daily log files
	File      string // explicit log file path, overrides Dir
	Console   bool   // enable console output
	Pretty    bool   // pretty format for console
	Redaction bool   // enable sensitive data redaction
	MaxSize   int    // max size in MB before rotation
	MaxAge    int    // max age in days
	Compress  bool   // compress rotated logs
}

// DailyFile returns the dated log file for day t inside dir
func DailyFile(dir string, t time.Time) string {
	return filepath.Join(dir, t.Format("2006-01-02")+".log")
}

// New creates a new logger. Unlike zerolog's global logger, the result is
// passed explicitly to the components that log.
func New(cfg Config) (*Logger, error) {
	level := parseLevel(cfg.Level, zerolog.InfoLevel)
	fileLevel := parseLevel(cfg.FileLevel, level)

	var redactor *Redactor
	if cfg.Redaction {
		redactor = NewRedactor()
	}

	// Each writer filters its own level; redaction runs before the filter
	filtered := func(w io.Writer, lvl zerolog.Level) io.Writer {
		if redactor != nil {
			w = redactor.Wrap(w)
		}
		return &zerolog.FilteredLevelWriter{
			Writer: zerolog.LevelWriterAdapter{Writer: w},
			Level:  lvl,
		}
	}

	var writers []io.Writer
	minLevel := zerolog.Disabled

	if cfg.Console {
		var consoleWriter io.Writer = os.Stderr
		if cfg.Pretty {
			consoleWriter = zerolog.ConsoleWriter{
				Out:        os.Stderr,
				TimeFormat: time.RFC3339,
			}
		}
		writers = append(writers, filtered(consoleWriter, level))
		minLevel = min(minLevel, level)
	}

	path := cfg.File
	if path == "" && cfg.Dir != "" {
		path = DailyFile(cfg.Dir, time.Now())
	}

	var file *RotatingWriter
	if path != "" {
		maxSize := cfg.MaxSize
		if maxSize <= 0 {
			maxSize = 100
		}
		var err error
		file, err = NewRotatingWriter(path, maxSize, cfg.MaxAge, cfg.Compress)
		if err != nil {
			return nil, err
		}
		writers = append(writers, filtered(file, fileLevel))
		minLevel = min(minLevel, fileLevel)
	}

	var writer io.Writer
	switch len(writers) {
	case 0:
		writer = io.Discard
		minLevel = level
	case 1:
		writer = writers[0]
	default:
		writer = zerolog.MultiLevelWriter(writers...)
	}

	logger := zerolog.New(writer).
		Level(minLevel).
		With().
		Timestamp().
		Logger()

	l := &Logger{
		logger:   logger,
		path:     path,
		redactor: redactor,
	}
	if file != nil {
		l.file = file
	}
	return l, nil
}

// parseLevel parses s, falling back to def when s is empty or invalid
func parseLevel(s string, def zerolog.Level) zerolog.Level {
	if s == "" {
		return def
	}
	level, err := zerolog.ParseLevel(s)
	if err != nil {
		return def
	}
	return level
}

// Nop returns a logger that writes nothing
func Nop() *Logger {
	return &Logger{logger: zerolog.Nop()}
}

// Close closes the logger and any open files
func (l *Logger) Close() error {
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// Path returns the log file path, or "" when logging only to the console
func (l *Logger) Path() string {
	return l.path
}

// Debug logs a debug message
func (l *Logger) Debug() *zerolog.Event {
	return l.logger.Debug()
}

// Info logs an info message
func (l *Logger) Info() *zerolog.Event {
	return l.logger.Info()
}

// Warn logs a warning message
func (l *Logger) Warn() *zerolog.Event {
	return l.logger.Warn()
}

// Error logs an error message
func (l *Logger) Error() *zerolog.Event {
	return l.logger.Error()
}

// With creates a child logger with additional context
func (l *Logger) With() zerolog.Context {
	return l.logger.With()
}

// Component returns a child logger tagged with the component name
func (l *Logger) Component(name string) zerolog.Logger {
	return l.logger.With().Str("component", name).Logger()
}

// GetZerolog returns the underlying zerolog.Logger
func (l *Logger) GetZerolog() zerolog.Logger {
	return l.logger
}

// DefaultConfig returns default logger configuration
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		FileLevel: "debug",
		Console:   true,
		Pretty:    true,
		Redaction: true,
		MaxSize:   100,
		MaxAge:    7,
		Compress:  true,
	}
}
