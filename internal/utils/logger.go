package utils

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides leveled logging with verbose mode support.
// Output goes to stderr through zap's console encoder; verbose mode lowers
// the level from info to debug.
type Logger struct {
	level zap.AtomicLevel
	mu    sync.RWMutex
	zl    *zap.Logger
}

var (
	loggerInstance *Logger
	once           sync.Once
)

// GetLogger returns the singleton logger instance.
func GetLogger() *Logger {
	once.Do(func() {
		level := zap.NewAtomicLevelAt(zapcore.InfoLevel)
		loggerInstance = &Logger{
			level: level,
			zl:    newZap(zapcore.Lock(os.Stderr), level),
		}
	})
	return loggerInstance
}

func newZap(w zapcore.WriteSyncer, level zap.AtomicLevel) *zap.Logger {
	enc := zap.NewDevelopmentEncoderConfig()
	enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
	enc.EncodeLevel = zapcore.CapitalLevelEncoder
	enc.CallerKey = ""
	return zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(enc), w, level))
}

// SetVerboseMode sets the verbose mode globally.
func SetVerboseMode(verbose bool) {
	GetLogger().SetVerbose(verbose)
}

// SetVerbose sets the verbose mode for this logger instance.
func (l *Logger) SetVerbose(verbose bool) {
	if verbose {
		l.level.SetLevel(zapcore.DebugLevel)
	} else {
		l.level.SetLevel(zapcore.InfoLevel)
	}
}

// IsVerbose returns whether verbose mode is enabled.
func (l *Logger) IsVerbose() bool {
	return l.level.Enabled(zapcore.DebugLevel)
}

// SetOutput redirects the logger. Used by the TUI so log lines do not land
// on the alternate screen, and by tests.
func (l *Logger) SetOutput(w io.Writer) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.zl = newZap(zapcore.AddSync(w), l.level)
}

// Zap returns the underlying zap logger for structured fields.
func (l *Logger) Zap() *zap.Logger {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.zl
}

func (l *Logger) sugar() *zap.SugaredLogger {
	return l.Zap().Sugar()
}

// Debug logs at debug level. Arguments, if any, are applied to msg as a
// printf template; a bare msg is logged as is.
func (l *Logger) Debug(msg string, args ...interface{}) { l.sugar().Debugf(msg, args...) }

// Info logs at info level.
func (l *Logger) Info(msg string, args ...interface{}) { l.sugar().Infof(msg, args...) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string, args ...interface{}) { l.sugar().Warnf(msg, args...) }

// Error logs at error level.
func (l *Logger) Error(msg string, args ...interface{}) { l.sugar().Errorf(msg, args...) }

// Sync flushes buffered output.
func (l *Logger) Sync() {
	_ = l.Zap().Sync()
}

// Debugf logs through the global logger. Shown only in verbose mode.
func Debugf(format string, args ...interface{}) { GetLogger().Debug(format, args...) }

// Infof logs through the global logger.
func Infof(format string, args ...interface{}) { GetLogger().Info(format, args...) }

// Warnf logs through the global logger.
func Warnf(format string, args ...interface{}) { GetLogger().Warn(format, args...) }

// Errorf logs through the global logger.
func Errorf(format string, args ...interface{}) { GetLogger().Error(format, args...) }

// BackgroundLogger redirects the global logger into a file for the duration
// of a full-screen session and restores stderr on Close.
type BackgroundLogger struct {
	logFile  *os.File
	filePath string
}

// NewBackgroundLogger opens path for appending and points the global logger at it.
// On failure the global logger is silenced rather than left on the terminal.
func NewBackgroundLogger(path string) (*BackgroundLogger, error) {
	bl := &BackgroundLogger{filePath: path}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		GetLogger().SetOutput(io.Discard)
		return bl, err
	}

	bl.logFile = file
	GetLogger().SetOutput(file)
	return bl, nil
}

// Close closes the log file and restores stderr output.
func (bl *BackgroundLogger) Close() {
	GetLogger().Sync()
	if bl.logFile != nil {
		_ = bl.logFile.Close()
		bl.logFile = nil
	}
	GetLogger().SetOutput(os.Stderr)
}

// GetLogPath returns the log file path.
func (bl *BackgroundLogger) GetLogPath() string {
	return bl.filePath
}
