// Package runlog builds the structured logger for experiment runs. Events
// go to run.log as JSON lines so a run leaves a machine-readable trace next
// to its results; warnings can be mirrored to the terminal for runs without
// the live display.
package runlog

import (
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// FileName is the log file inside an experiment's output directory.
const FileName = "run.log"

// Options configure the run logger.
type Options struct {
	// Path of the JSON log file, created or appended to.
	Path string
	// Level is the minimum level written to the file: debug, info, warn,
	// or error. Unknown values fall back to info.
	Level string
	// Mirror, when set, receives warn and error events in console form.
	Mirror io.Writer
}

// New builds a logger per Options. Callers own Sync on shutdown.
func New(opts Options) (*zap.Logger, error) {
	file, err := os.OpenFile(opts.Path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open run log: %w", err)
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	cores := []zapcore.Core{
		zapcore.NewCore(
			zapcore.NewJSONEncoder(encoderConfig),
			zapcore.AddSync(file),
			zap.NewAtomicLevelAt(ParseLevel(opts.Level)),
		),
	}
	if opts.Mirror != nil {
		consoleConfig := zap.NewDevelopmentEncoderConfig()
		consoleConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(consoleConfig),
			zapcore.AddSync(opts.Mirror),
			zap.NewAtomicLevelAt(zapcore.WarnLevel),
		))
	}
	return zap.New(zapcore.NewTee(cores...)), nil
}

// ParseLevel maps a config logging level to zap's, defaulting to info.
func ParseLevel(level string) zapcore.Level {
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
