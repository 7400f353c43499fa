package givmodbus

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// LogConfig controls the structured logger Client uses. Grounded on
// EdgxCloud-EdgeFlow's logger.Config: a Level string plus a Format
// switch between human-readable console output and JSON for log
// aggregation.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// DefaultLogConfig returns info level, console format, suitable for
// local/interactive use.
func DefaultLogConfig() LogConfig {
	return LogConfig{Level: "info", Format: "console"}
}

// NewLogger builds a *zap.Logger from cfg. An unrecognised level falls
// back to info; an unrecognised format falls back to console.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encoderCfg)
	} else {
		encoderCfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		encoder = zapcore.NewConsoleEncoder(encoderCfg)
	}

	core := zapcore.NewCore(encoder, zapcore.Lock(zapcore.AddSync(os.Stdout)), level)
	return zap.New(core), nil
}
