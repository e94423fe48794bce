package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/Fuuurma/FinanceHub-sub001/internal/config"
)

const timestampFormat = "2006-01-02T15:04:05.000Z"

// Init configures the standard logrus logger and returns it for injection
func Init(cfg config.LoggerConfig) *logrus.Logger {
	log := logrus.StandardLogger()
	Configure(log, cfg)
	return log
}

// Configure applies level, format and output settings to log
func Configure(log *logrus.Logger, cfg config.LoggerConfig) {
	// Set log level
	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	// Set log format
	switch strings.ToLower(cfg.Format) {
	case "text":
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	default:
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timestampFormat,
		})
	}

	log.SetOutput(output(cfg))
}

// WithComponent tags every entry with the emitting component
func WithComponent(log *logrus.Logger, component string) *logrus.Entry {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithField("component", component)
}

func output(cfg config.LoggerConfig) io.Writer {
	if cfg.Filename == "" {
		return os.Stdout
	}
	switch strings.ToLower(cfg.Output) {
	case "file":
		return fileWriter(cfg)
	case "both":
		return io.MultiWriter(os.Stdout, fileWriter(cfg))
	default:
		return os.Stdout
	}
}

// fileWriter returns a file writer with rotation
func fileWriter(cfg config.LoggerConfig) io.Writer {
	return &lumberjack.Logger{
		Filename:   cfg.Filename,
		MaxSize:    cfg.MaxSize,
		MaxAge:     cfg.MaxAge,
		MaxBackups: cfg.MaxBackups,
		Compress:   cfg.Compress,
	}
}
