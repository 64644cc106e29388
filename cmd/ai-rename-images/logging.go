package renameimages

import (
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const (
	loggingFormatJSON    = "json"
	loggingFormatConsole = "console"
	defaultLoggingLevel  = "error"
)

// newLogger builds the command logger. verbose lowers the threshold to info
// when the configured level is quieter.
func newLogger(levelText string, format string, verbose bool, output io.Writer) (*zap.Logger, error) {
	trimmedLevel := strings.TrimSpace(levelText)
	if trimmedLevel == "" {
		trimmedLevel = defaultLoggingLevel
	}
	level, parseErr := zapcore.ParseLevel(trimmedLevel)
	if parseErr != nil {
		return nil, fmt.Errorf("logging level %q: %w", trimmedLevel, parseErr)
	}
	if verbose && level > zapcore.InfoLevel {
		level = zapcore.InfoLevel
	}

	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	var encoder zapcore.Encoder
	switch strings.ToLower(strings.TrimSpace(format)) {
	case loggingFormatJSON:
		encoder = zapcore.NewJSONEncoder(encoderConfig)
	case loggingFormatConsole, "text", "":
		encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderConfig)
	default:
		return nil, fmt.Errorf("logging format %q: expected %s or %s", format, loggingFormatConsole, loggingFormatJSON)
	}
	core := zapcore.NewCore(encoder, zapcore.AddSync(output), level)
	return zap.New(core), nil
}
