// internal/logger/logger.go
//
// Structured JSON logger (Zap + Lumberjack).
//
// Context
// -------
// Gate decisions, pool lifecycle, token rejections, and heartbeat writes
// all land in one JSON file per day under `<dir>/YYYY-MM-DD.log`.  Every
// line carries `service=tenancy` so a shared collector can split streams.
// In an interactive TTY the same events are mirrored, colorized, to
// stdout.  Lumberjack rotates, compresses, and prunes old files.
//
// Usage
// -----
//
//	log, err := logger.New(logger.Options{Dir: dir, Level: "info", Tee: tty})
//	if err != nil { … }
//	log.Infow("tenant pool opened", "tenant_id", id)
//
// Notes
// -----
// • Token values and passwords must never be passed as fields.  Log the
//   token id or a redacted descriptor instead.
// • Oxford commas, two spaces after periods.
package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/natefinch/lumberjack"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	Dir   string // required
	Level string // debug | info | warn | error; empty means info
	Tee   bool   // mirror to stdout
}

// New returns a *zap.SugaredLogger writing JSON to Dir/YYYY-MM-DD.log and
// installs it as zap's global logger.
func New(o Options) (*zap.SugaredLogger, error) {
	level := zapcore.InfoLevel
	if o.Level != "" {
		l, err := zapcore.ParseLevel(o.Level)
		if err != nil {
			return nil, fmt.Errorf("logger: %w", err)
		}
		level = l
	}
	if err := os.MkdirAll(o.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}

	sink := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(o.Dir, time.Now().Format(time.DateOnly)+".log"),
		MaxSize:    50, // MB
		MaxBackups: 7,
		MaxAge:     14, // days
		Compress:   true,
	})

	enc := zapcore.EncoderConfig{
		TimeKey:      "ts",
		LevelKey:     "level",
		MessageKey:   "msg",
		CallerKey:    "caller",
		EncodeTime:   zapcore.ISO8601TimeEncoder,
		EncodeLevel:  zapcore.LowercaseLevelEncoder,
		EncodeCaller: zapcore.ShortCallerEncoder,
	}
	cores := []zapcore.Core{zapcore.NewCore(zapcore.NewJSONEncoder(enc), sink, level)}
	if o.Tee {
		console := enc
		console.EncodeLevel = zapcore.LowercaseColorLevelEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(console), zapcore.AddSync(os.Stdout), level))
	}

	z := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.ErrorOutput(sink),
		zap.Fields(zap.String("service", "tenancy")),
	)
	zap.ReplaceGlobals(z)

	s := z.Sugar()
	s.Infow("logger online", "level", level.String(), "tee", o.Tee)
	return s, nil
}
