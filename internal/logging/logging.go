// Package logging builds the process-wide zap logger, grounded in
// chenquan-lighthouse's zap.Error/zap.String call-site style. File
// rotation, when a log file path is configured, goes through lumberjack.
package logging

import (
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ioprotolab/simhub/internal/config"
)

// New builds a *zap.Logger from a LoggingConfig. Level defaults to info;
// when FilePath is set, output is written through a rotating lumberjack
// writer instead of stderr.
func New(cfg config.LoggingConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(orDefault(cfg.Level, "info"))
	if err != nil {
		return nil, err
	}

	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var sink zapcore.WriteSyncer
	if cfg.FilePath != "" {
		sink = zapcore.AddSync(&lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    orDefaultInt(cfg.MaxSizeMB, 100),
			MaxBackups: orDefaultInt(cfg.MaxBackups, 3),
		})
	} else {
		sink = zapcore.Lock(zapcore.AddSync(os.Stderr))
	}

	core := zapcore.NewCore(encoder, sink, level)
	return zap.New(core, zap.AddCaller()), nil
}

// Module builds a child logger the way lighthouse's xlog.LoggerModule does:
// every subsystem gets its own "module" field instead of a bespoke prefix.
func Module(base *zap.Logger, name string) *zap.Logger {
	return base.With(zap.String("module", name))
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func orDefaultInt(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
