package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

const FileName = "siteprobe.log"

type Options struct {
	Dir   string
	Level string // debug, info, warn, error; empty means info
	// Console, when set, also receives human-readable logs (CLI runs).
	Console io.Writer
}

// New builds a JSON logger writing to a rotating file under opts.Dir.
func New(opts Options) (*zap.Logger, error) {
	if opts.Dir == "" {
		opts.Dir = "logs"
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("log dir: %w", err)
	}
	lvl, err := ParseLevel(opts.Level)
	if err != nil {
		return nil, err
	}

	w := zapcore.AddSync(&lumberjack.Logger{
		Filename:   filepath.Join(opts.Dir, FileName),
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     14, // days
		Compress:   true,
	})
	cfg := zap.NewProductionEncoderConfig()
	cfg.TimeKey = "ts"
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(cfg), w, lvl)

	if opts.Console != nil {
		ccfg := zap.NewDevelopmentEncoderConfig()
		ccfg.EncodeLevel = zapcore.CapitalColorLevelEncoder
		ccfg.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		console := zapcore.NewCore(zapcore.NewConsoleEncoder(ccfg), zapcore.AddSync(opts.Console), lvl)
		core = zapcore.NewTee(core, console)
	}
	return zap.New(core), nil
}

// NewLogger keeps the service entry points on a file-only info logger.
func NewLogger(logDir string) (*zap.Logger, error) {
	return New(Options{Dir: logDir})
}

func ParseLevel(s string) (zapcore.Level, error) {
	if s == "" {
		return zap.InfoLevel, nil
	}
	var l zapcore.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return l, fmt.Errorf("log level %q: %w", s, err)
	}
	return l, nil
}
