package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger writes trading activity to a rotating file and optionally stdout
type Logger struct {
	name    string
	logPath string
	sugar   *zap.SugaredLogger
	base    *zap.Logger
	rotator *lumberjack.Logger
}

// LogLevel represents different types of log entries
type LogLevel string

const (
	LogLevelDebug   LogLevel = "DEBUG"
	LogLevelInfo    LogLevel = "INFO"
	LogLevelWarning LogLevel = "WARN"
	LogLevelError   LogLevel = "ERROR"
	LogLevelTrade   LogLevel = "TRADE"
	LogLevelStatus  LogLevel = "STATUS"
)

// Options configures a Logger
type Options struct {
	Name       string // used in the file name
	Dir        string
	Level      string // debug, info, warn, error
	Console    bool
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// NewLogger creates a logger writing to <dir>/<name>_<date>.log
func NewLogger(opts Options) (*Logger, error) {
	if opts.Name == "" {
		opts.Name = "trading_bot"
	}
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if opts.MaxSizeMB <= 0 {
		opts.MaxSizeMB = 50
	}
	if opts.MaxBackups <= 0 {
		opts.MaxBackups = 5
	}
	if opts.MaxAgeDays <= 0 {
		opts.MaxAgeDays = 14
	}

	if err := os.MkdirAll(opts.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	filename := fmt.Sprintf("%s_%s.log", opts.Name, time.Now().Format("2006-01-02"))
	logPath := filepath.Join(opts.Dir, filename)

	rotator := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}

	level := parseLevel(opts.Level)
	encoder := zapcore.NewConsoleEncoder(encoderConfig())

	cores := []zapcore.Core{
		zapcore.NewCore(encoder, zapcore.AddSync(rotator), level),
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stdout), level))
	}

	base := zap.New(zapcore.NewTee(cores...))
	l := &Logger{
		name:    opts.Name,
		logPath: logPath,
		sugar:   base.Sugar(),
		base:    base,
		rotator: rotator,
	}

	l.writeSessionHeader()
	return l, nil
}

// NewNop returns a logger that discards everything
func NewNop() *Logger {
	base := zap.NewNop()
	return &Logger{name: "nop", sugar: base.Sugar(), base: base}
}

// NewWithZap wraps an existing zap logger, used by tests with zaptest/observer
func NewWithZap(base *zap.Logger) *Logger {
	return &Logger{name: "custom", sugar: base.Sugar(), base: base}
}

func encoderConfig() zapcore.EncoderConfig {
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "time"
	cfg.EncodeTime = zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05")
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = ""
	return cfg
}

func parseLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func (l *Logger) writeSessionHeader() {
	l.sugar.Infof("================ TRADING SESSION STARTED ================ log=%s", l.logPath)
}

// Log writes a formatted entry tagged with the given level
func (l *Logger) Log(level LogLevel, format string, args ...interface{}) {
	message := fmt.Sprintf(format, args...)
	switch level {
	case LogLevelDebug:
		l.sugar.Debug(message)
	case LogLevelWarning:
		l.sugar.Warn(message)
	case LogLevelError:
		l.sugar.Error(message)
	case LogLevelTrade, LogLevelStatus:
		l.sugar.Infow(message, "kind", string(level))
	default:
		l.sugar.Info(message)
	}
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(LogLevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(LogLevelInfo, format, args...)
}

// Warning logs a warning message
func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(LogLevelWarning, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(LogLevelError, format, args...)
}

// Trade logs a trading action
func (l *Logger) Trade(format string, args ...interface{}) {
	l.Log(LogLevelTrade, format, args...)
}

// Status logs periodic status information
func (l *Logger) Status(format string, args ...interface{}) {
	l.Log(LogLevelStatus, format, args...)
}

// LogError logs error with context
func (l *Logger) LogError(context string, err error) {
	l.Error("%s: %v", context, err)
}

// LogWarning logs warning with context
func (l *Logger) LogWarning(context string, message string, args ...interface{}) {
	l.Warning("%s: %s", context, fmt.Sprintf(message, args...))
}

// Zap exposes the underlying zap logger for libraries that take one
func (l *Logger) Zap() *zap.Logger {
	return l.base
}

// GetLogPath returns the current log file path
func (l *Logger) GetLogPath() string {
	return l.logPath
}

// Close flushes buffered entries and closes the log file
func (l *Logger) Close() error {
	if l.rotator == nil {
		return nil
	}
	l.sugar.Infof("================ TRADING SESSION ENDED ================")
	_ = l.base.Sync()
	return l.rotator.Close()
}
