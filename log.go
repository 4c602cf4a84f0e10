package oltpbench

import (
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogLevelType uint8

const (
	LevelVerbose LogLevelType = 50
	LevelDebug   LogLevelType = 40
	LevelInfo    LogLevelType = 30
	LevelWarn    LogLevelType = 20
	LevelError   LogLevelType = 10
	LevelQuiet   LogLevelType = 0
)

var (
	nameToLevels = map[string]LogLevelType{
		"verbose": LevelVerbose,
		"debug":   LevelDebug,
		"info":    LevelInfo,
		"warn":    LevelWarn,
		"error":   LevelError,
		"quiet":   LevelQuiet,
	}
)

var (
	logLock  sync.Mutex
	logLevel = zap.NewAtomicLevelAt(zapcore.InfoLevel)
	logger   = newLogger(logLevel)
)

func newLogger(level zap.AtomicLevel) *zap.SugaredLogger {
	config := zap.NewDevelopmentEncoderConfig()
	config.EncodeLevel = zapcore.CapitalLevelEncoder
	core := zapcore.NewCore(
		zapcore.NewConsoleEncoder(config),
		zapcore.Lock(os.Stderr),
		level)
	return zap.New(core).Sugar()
}

// ParseLogLevel maps a level name to its level.
func ParseLogLevel(name string) (LogLevelType, error) {
	level, ok := nameToLevels[name]
	if !ok {
		return LevelQuiet, fmt.Errorf("unknown log level: %s", name)
	}
	return level, nil
}

// SetLogLevel sets the level below which messages are dropped.
// Verbose and debug both map to zap's debug level.
func SetLogLevel(level LogLevelType) {
	switch {
	case level >= LevelDebug:
		logLevel.SetLevel(zapcore.DebugLevel)
	case level >= LevelInfo:
		logLevel.SetLevel(zapcore.InfoLevel)
	case level >= LevelWarn:
		logLevel.SetLevel(zapcore.WarnLevel)
	case level >= LevelError:
		logLevel.SetLevel(zapcore.ErrorLevel)
	default:
		// above every level zap emits through the sugared logger
		logLevel.SetLevel(zapcore.FatalLevel)
	}
}

// SetLogger replaces the logger, e.g. with zaptest or zap.NewNop in tests.
func SetLogger(l *zap.Logger) {
	logLock.Lock()
	defer logLock.Unlock()
	logger = l.Sugar()
}

func getLogger() *zap.SugaredLogger {
	logLock.Lock()
	defer logLock.Unlock()
	return logger
}

func Errorf(format string, args ...interface{}) {
	getLogger().Errorf(format, args...)
}

func Warnf(format string, args ...interface{}) {
	getLogger().Warnf(format, args...)
}

func Infof(format string, args ...interface{}) {
	getLogger().Infof(format, args...)
}

func Debugf(format string, args ...interface{}) {
	getLogger().Debugf(format, args...)
}

func Verbosef(format string, args ...interface{}) {
	getLogger().Debugf(format, args...)
}

// Infow logs a message with structured key value pairs.
func Infow(msg string, keysAndValues ...interface{}) {
	getLogger().Infow(msg, keysAndValues...)
}

func Sync() {
	_ = getLogger().Sync()
}
