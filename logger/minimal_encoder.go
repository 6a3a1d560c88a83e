package logger

import (
	"time"

	"go.uber.org/zap/zapcore"
)

// newMinimalEncoder returns the console encoder used for human-readable
// output: short timestamps, colored levels, no caller/stacktrace noise.
// Structured fields render as trailing key=value pairs, so the subsystem
// symbol (sym.IX, sym.Pulse, ...) stays visible without dominating the line.
func newMinimalEncoder() zapcore.Encoder {
	cfg := zapcore.EncoderConfig{
		MessageKey:       "msg",
		LevelKey:         "level",
		TimeKey:          "ts",
		NameKey:          "logger",
		CallerKey:        "", // callers are noise at CLI verbosity levels
		StacktraceKey:    "", // stack traces come from the errors package instead
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeLevel:      zapcore.CapitalColorLevelEncoder,
		EncodeTime:       minimalTimeEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeName:       zapcore.FullNameEncoder,
		ConsoleSeparator: "  ",
	}
	return zapcore.NewConsoleEncoder(cfg)
}

func minimalTimeEncoder(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString(t.Format("15:04:05"))
}
