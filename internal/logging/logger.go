package logging

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "TISCAM_LOG_LEVEL"

// FileOptions configures the rotating log file sink
type FileOptions struct {
	Path       string // Log file path
	MaxSizeMB  int    // Rotate after this many megabytes (default 10)
	MaxBackups int    // Rotated files to keep (default 3)
	MaxAgeDays int    // Days to keep rotated files (0 keeps forever)
}

// Initialize sets up the global logger at level, falling back to
// TISCAM_LOG_LEVEL. With neither set the logger is a no-op so command
// output stays clean.
func Initialize(level string) error {
	return InitializeWithFile(level, FileOptions{})
}

// InitializeWithFile is Initialize plus an optional rotating JSON file.
// Console entries go to stderr so they never mix with piped command
// output. A file without a level records at info and the console stays
// silent.
func InitializeWithFile(level string, file FileOptions) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}
	if level == "" && file.Path == "" {
		logger = zap.NewNop()
		return nil
	}

	var cores []zapcore.Core
	if level != "" {
		cores = append(cores, consoleCore(parseLevel(level)))
	}
	if file.Path != "" {
		fileLevel := zapcore.InfoLevel
		if level != "" {
			fileLevel = parseLevel(level)
		}
		cores = append(cores, fileCore(file, fileLevel))
	}

	logger = zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(zapcore.Lock(os.Stderr)),
	)
	return nil
}

// parseLevel maps a level name to zap; unknown names mean info
func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func consoleCore(level zapcore.Level) zapcore.Core {
	encCfg := zap.NewDevelopmentEncoderConfig()
	encCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encCfg.EncodeCaller = zapcore.ShortCallerEncoder
	return zapcore.NewCore(zapcore.NewConsoleEncoder(encCfg), zapcore.Lock(os.Stderr), level)
}

func fileCore(file FileOptions, level zapcore.Level) zapcore.Core {
	if file.MaxSizeMB == 0 {
		file.MaxSizeMB = 10
	}
	if file.MaxBackups == 0 {
		file.MaxBackups = 3
	}

	sink := &lumberjack.Logger{
		Filename:   file.Path,
		MaxSize:    file.MaxSizeMB,
		MaxBackups: file.MaxBackups,
		MaxAge:     file.MaxAgeDays,
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(sink), level)
}

// InitializeFromEnv initializes from TISCAM_LOG_LEVEL alone
func InitializeFromEnv() error {
	return Initialize("")
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return logger
}

// SetLogger replaces the global logger; tests use it with zaptest/observer
func SetLogger(l *zap.Logger) {
	logger = l
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// LogConnection logs a preview client connection event
func LogConnection(remoteAddr string, event string) {
	Info("Connection event",
		zap.String("remote_addr", remoteAddr),
		zap.String("event", event),
	)
}

// LogHTTPRequest logs a completed HTTP request
func LogHTTPRequest(remoteAddr, method, path string, statusCode int, elapsed time.Duration) {
	Info("HTTP request",
		zap.String("remote_addr", remoteAddr),
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status_code", statusCode),
		zap.Duration("elapsed", elapsed),
	)
}

// LogWebSocketMessage logs a WebSocket message without its payload
func LogWebSocketMessage(remoteAddr string, direction string, messageType int, length int) {
	Debug("WebSocket message",
		zap.String("remote_addr", remoteAddr),
		zap.String("direction", direction),
		zap.String("message_type", wsMessageTypeName(messageType)),
		zap.Int("length", length),
	)
}

// LogAcquisition logs the outcome of one recording
func LogAcquisition(cameraName string, frames int, elapsed time.Duration, err error) {
	fields := []zap.Field{
		zap.String("camera", cameraName),
		zap.Int("frames", frames),
		zap.Duration("elapsed", elapsed),
	}
	if err != nil {
		Warn("Acquisition failed", append(fields, zap.Error(err))...)
		return
	}
	Info("Acquisition complete", fields...)
}

func wsMessageTypeName(msgType int) string {
	switch msgType {
	case 1:
		return "text"
	case 2:
		return "binary"
	case 8:
		return "close"
	case 9:
		return "ping"
	case 10:
		return "pong"
	default:
		return fmt.Sprintf("unknown(%d)", msgType)
	}
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
