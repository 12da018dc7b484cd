package utils

import (
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvLogFile overrides the log file prefix.
const EnvLogFile = "LOG_FILE"

const defaultLogFile = "liquidator"

var (
	log  *zap.Logger
	once sync.Once
)

// LogConfig selects the level and file outputs of a logger.
type LogConfig struct {
	Debug bool
	// File is the prefix of the log files. Empty logs to the console only.
	File string
}

// BuildLogger builds a production JSON logger. Everything goes to stdout and
// <File>.log, internal errors to stderr and <File>-error.log.
func BuildLogger(cfg LogConfig) (*zap.Logger, error) {
	config := zap.NewProductionConfig()
	if cfg.Debug {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}

	config.OutputPaths = []string{"stdout"}
	config.ErrorOutputPaths = []string{"stderr"}
	if cfg.File != "" {
		config.OutputPaths = append(config.OutputPaths, cfg.File+".log")
		config.ErrorOutputPaths = append(config.ErrorOutputPaths, cfg.File+"-error.log")
	}

	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.StacktraceKey = "stacktrace"

	logger, err := config.Build(
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel),
	)
	if err != nil {
		return nil, err
	}
	return logger.Named("liquidator"), nil
}

// InitLogger initializes the global logger instance
func InitLogger(debug bool) *zap.Logger {
	once.Do(func() {
		file := os.Getenv(EnvLogFile)
		if file == "" {
			file = defaultLogFile
		}
		logger, err := BuildLogger(LogConfig{Debug: debug, File: file})
		if err != nil {
			panic(err)
		}
		log = logger
	})

	return log
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if log == nil {
		return InitLogger(false)
	}
	return log
}

// CleanupLogger flushes any buffered log entries
func CleanupLogger() {
	if log != nil {
		_ = log.Sync()
	}
}
