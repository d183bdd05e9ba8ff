package log

import (
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Named loggers of the client components.
const (
	ComponentHTTP = "http" // transport, one line per request
	ComponentKeys = "keys" // keys API, watch lifecycle
)

// Config of the CLI logger.
type Config struct {
	Stdout io.Writer
	Stderr io.Writer
	// File receives all messages of all components, if set.
	File *os.File
	// Verbose prints debug messages of all components to Stdout.
	Verbose bool
	// VerboseHTTP prints debug messages of the ComponentHTTP to Stdout.
	VerboseHTTP bool
}

// NewLogger logs info to Stdout, warnings and errors to Stderr.
// Debug messages are printed to Stdout only for the components enabled by the Config.
func NewLogger(cfg Config) *zap.SugaredLogger {
	var cores []zapcore.Core
	if cfg.File != nil {
		cores = append(cores, fileCore(cfg.File))
	}
	cores = append(cores,
		&componentCore{
			Core:  consoleCore(cfg.Stdout, cfg.Verbose || cfg.VerboseHTTP, zapcore.DebugLevel, zapcore.InfoLevel),
			debug: cfg.debugEnabled,
		},
		consoleCore(cfg.Stderr, cfg.Verbose || cfg.VerboseHTTP, zapcore.WarnLevel, zapcore.FatalLevel),
	)
	return zap.New(zapcore.NewTee(cores...)).Sugar()
}

// NewNopLogger discards all messages.
func NewNopLogger() *zap.SugaredLogger {
	return zap.NewNop().Sugar()
}

func (cfg Config) debugEnabled(loggerName string) bool {
	if cfg.Verbose {
		return true
	}
	return cfg.VerboseHTTP && (loggerName == ComponentHTTP || strings.HasPrefix(loggerName, ComponentHTTP+"."))
}

// componentCore drops debug messages of disabled components.
type componentCore struct {
	zapcore.Core
	debug func(loggerName string) bool
}

func (c *componentCore) With(fields []zapcore.Field) zapcore.Core {
	return &componentCore{Core: c.Core.With(fields), debug: c.debug}
}

func (c *componentCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if entry.Level == zapcore.DebugLevel && !c.debug(entry.LoggerName) {
		return checked
	}
	return c.Core.Check(entry, checked)
}

// fileCore logs all levels with time and component.
func fileCore(file *os.File) zapcore.Core {
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		TimeKey:          "ts",
		LevelKey:         "level",
		NameKey:          "component",
		MessageKey:       "msg",
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: "\t",
	})
	return zapcore.NewCore(encoder, zapcore.Lock(file), zapcore.DebugLevel)
}

// consoleCore logs levels from min to max, the level is printed only in the verbose mode.
func consoleCore(w io.Writer, verbose bool, minLevel, maxLevel zapcore.Level) zapcore.Core {
	levelKey := ""
	if verbose {
		levelKey = "level"
	}
	encoder := zapcore.NewConsoleEncoder(zapcore.EncoderConfig{
		LevelKey:         levelKey,
		MessageKey:       "msg",
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		ConsoleSeparator: "\t",
	})
	levels := zap.LevelEnablerFunc(func(l zapcore.Level) bool {
		return l >= minLevel && l <= maxLevel
	})
	return zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(w)), levels)
}

// Writer writes each line as a message with the level, for cobra output.
type Writer struct {
	level  zapcore.Level
	logger *zap.SugaredLogger
}

func (w *Writer) Write(p []byte) (n int, err error) {
	for _, line := range strings.Split(strings.TrimRight(string(p), "\n"), "\n") {
		if entry := w.logger.Desugar().Check(w.level, line); entry != nil {
			entry.Write()
		}
	}
	return len(p), nil
}

func (w *Writer) WriteStringNoErr(s string) {
	if _, err := w.Write([]byte(s)); err != nil {
		panic(fmt.Errorf("cannot write: %w", err))
	}
}

func ToDebugWriter(l *zap.SugaredLogger) *Writer {
	return &Writer{level: zapcore.DebugLevel, logger: l}
}

func ToInfoWriter(l *zap.SugaredLogger) *Writer {
	return &Writer{level: zapcore.InfoLevel, logger: l}
}

func ToWarnWriter(l *zap.SugaredLogger) *Writer {
	return &Writer{level: zapcore.WarnLevel, logger: l}
}
