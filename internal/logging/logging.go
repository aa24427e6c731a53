// Package logging builds the per-layer zap loggers used across idpgo.
// Grounded on cmd/nerd/main.go's zap production-config setup in the
// teacher repo: one *zap.Logger built once at process start, atomic
// level control, and a named child logger handed to each subsystem.
package logging

import (
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Layer names the subsystems that get their own named logger.
type Layer string

const (
	LayerFOBDD      Layer = "fobdd"
	LayerPropagate  Layer = "propagate"
	LayerGenerate   Layer = "generate"
	LayerGround     Layer = "ground"
	LayerLazy       Layer = "lazy"
	LayerDefinition Layer = "definition"
	LayerInference  Layer = "inference"
	LayerRunctl     Layer = "runctl"
)

var (
	mu     sync.Mutex
	base   *zap.Logger
	level  = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	inited bool
)

// Init configures the process-wide base logger. debug selects
// DebugLevel instead of InfoLevel, mirroring the teacher's
// zap.NewAtomicLevelAt(zapcore.DebugLevel) toggle. Safe to call more
// than once; later calls replace the base logger.
func Init(debug bool) error {
	mu.Lock()
	defer mu.Unlock()

	if debug {
		level.SetLevel(zapcore.DebugLevel)
	} else {
		level.SetLevel(zapcore.InfoLevel)
	}

	cfg := zap.NewProductionConfig()
	cfg.Level = level
	cfg.EncoderConfig.TimeKey = "ts"

	l, err := cfg.Build()
	if err != nil {
		return err
	}
	base = l
	inited = true
	return nil
}

// For returns the named logger for layer, initializing a default
// zap production logger lazily if Init was never called (so library
// consumers who never configure logging still get a working logger).
func For(layer Layer) *zap.SugaredLogger {
	mu.Lock()
	defer mu.Unlock()
	if !inited {
		base, _ = zap.NewProduction()
		inited = true
	}
	return base.Sugar().Named(string(layer))
}

// Sync flushes any buffered log entries; call before process exit.
func Sync() {
	mu.Lock()
	defer mu.Unlock()
	if base != nil {
		_ = base.Sync()
	}
}
