// Package logging builds the application logger. The TUI owns stdout, so
// logs go to a file; logging is disabled entirely unless a file is
// configured.
package logging

import (
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultPath returns ~/.local/state/kbchat/kbchat.log.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "state", "kbchat", "kbchat.log"), nil
}

// New returns a file-backed logger at the given level plus a close function.
// An empty path yields a nop logger. Unknown levels fall back to info.
func New(path, level string) (*zap.Logger, func(), error) {
	if path == "" {
		return zap.NewNop(), func() {}, nil
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.InfoLevel
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, err
	}

	encCfg := zap.NewProductionEncoderConfig()
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	core := zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.Lock(f), lvl)
	logger := zap.New(core)

	closer := func() {
		_ = logger.Sync()
		_ = f.Close()
	}
	return logger, closer, nil
}
