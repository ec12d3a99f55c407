// Package logger builds the zap loggers used by the server, the CLI and the
// lambda entrypoint.
package logger

import (
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Format selects the log line encoding
type Format string

const (
	// FormatConsole writes human readable lines
	FormatConsole Format = "console"
	// FormatJSON writes one JSON object per line, for log aggregation
	FormatJSON Format = "json"
)

// New returns a console logger writing to stdout, or to writers if any are
// given. debug lowers the level to Debug.
func New(debug bool, writers ...io.Writer) *zap.Logger {
	return NewWithFormat(FormatConsole, debug, writers...)
}

// NewWithFormat is New with an explicit encoding
func NewWithFormat(format Format, debug bool, writers ...io.Writer) *zap.Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.TimeKey = "time"
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	level := zap.InfoLevel
	if debug {
		level = zap.DebugLevel
	}

	if len(writers) == 0 {
		writers = []io.Writer{os.Stdout}
	}

	syncers := make([]zapcore.WriteSyncer, 0, len(writers))
	for _, writer := range writers {
		syncers = append(syncers, zapcore.AddSync(writer))
	}

	var encoder zapcore.Encoder
	if format == FormatJSON {
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	} else {
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	}

	core := zapcore.NewCore(encoder, zapcore.NewMultiWriteSyncer(syncers...), level)
	return zap.New(core, zap.AddCaller())
}

// Nop returns a logger that discards everything
func Nop() *zap.Logger {
	return zap.NewNop()
}
