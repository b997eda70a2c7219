package common

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/berrythewa/cliplog/internal/config"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogFileName is the daemon log file inside the configured log directory
const LogFileName = "cliplog_daemon.log"

// NewLogger creates a new logger instance writing to stderr
func NewLogger(cfg *config.Config) (*zap.Logger, error) {
	encoding := cfg.Log.Format
	if encoding != "json" {
		encoding = "console"
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(ParseLevel(cfg.Log.Level)),
		Development: false,
		Sampling: &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		},
		Encoding:         encoding,
		EncoderConfig:    encoderCfg,
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	return config.Build()
}

// DaemonLogger is the daemon's logger. Its level can be changed at runtime.
type DaemonLogger struct {
	*zap.Logger
	Level zap.AtomicLevel
	file  *os.File
}

// Close flushes the logger and closes the log file, if any
func (l *DaemonLogger) Close() error {
	_ = l.Sync()
	if l.file != nil {
		return l.file.Close()
	}
	return nil
}

// NewDaemonLogger tees stderr output into the daemon log file when file
// logging is enabled.
func NewDaemonLogger(cfg *config.Config) (*DaemonLogger, error) {
	level := zap.NewAtomicLevelAt(ParseLevel(cfg.Log.Level))

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(zapcore.NewConsoleEncoder(encoderCfg), zapcore.Lock(os.Stderr), level),
	}

	var logF *os.File
	if cfg.Log.EnableFileLogging {
		logDir := cfg.SystemPaths.LogDir
		if err := os.MkdirAll(logDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create log directory: %w", err)
		}

		var err error
		logF, err = os.OpenFile(filepath.Join(logDir, LogFileName), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encoderCfg), zapcore.AddSync(logF), level))
	}

	return &DaemonLogger{
		Logger: zap.New(zapcore.NewTee(cores...), zap.AddCaller()),
		Level:  level,
		file:   logF,
	}, nil
}

// ParseLevel maps a level name to a zap level, defaulting to info
func ParseLevel(name string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}
