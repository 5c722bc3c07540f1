package cmd

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/wippyai/kool-runtime/config"
)

// newLogger writes to w so program output on stdout stays clean.
func newLogger(cfg *config.Config, w io.Writer) (*zap.Logger, error) {
	level, err := cfg.LogLevel()
	if err != nil {
		return nil, err
	}

	var enc zapcore.Encoder
	if cfg.Logging.Format == "json" {
		ec := zap.NewProductionEncoderConfig()
		ec.EncodeTime = zapcore.ISO8601TimeEncoder
		enc = zapcore.NewJSONEncoder(ec)
	} else {
		ec := zap.NewDevelopmentEncoderConfig()
		ec.EncodeLevel = zapcore.CapitalColorLevelEncoder
		enc = zapcore.NewConsoleEncoder(ec)
	}

	core := zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), level)
	return zap.New(core), nil
}
