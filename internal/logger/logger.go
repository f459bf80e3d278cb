package logger

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger provides leveled logging (info/warning/error) backed by zap.
// Every level is written to the console and to its own file in the log
// directory so the files can be served and cleared individually.
type Logger struct {
	sugar  *zap.SugaredLogger
	files  map[string]*os.File
	logDir string
	mu     sync.Mutex
}

// NewLogger creates a Logger and ensures the log directory exists.
func NewLogger(logDir string) (*Logger, error) {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}

	l := &Logger{
		logDir: logDir,
		files:  make(map[string]*os.File),
	}

	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	fileEncoder := zapcore.NewJSONEncoder(fileEncoderCfg)

	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoderCfg.EncodeLevel = zapcore.CapitalLevelEncoder
	consoleEncoder := zapcore.NewConsoleEncoder(consoleEncoderCfg)

	cores := []zapcore.Core{
		zapcore.NewCore(consoleEncoder, zapcore.Lock(os.Stdout), zapcore.InfoLevel),
	}

	levels := []struct {
		file   string
		enable zap.LevelEnablerFunc
	}{
		{"info.log", func(lvl zapcore.Level) bool { return lvl == zapcore.InfoLevel }},
		{"warning.log", func(lvl zapcore.Level) bool { return lvl == zapcore.WarnLevel }},
		{"error.log", func(lvl zapcore.Level) bool { return lvl >= zapcore.ErrorLevel }},
	}

	for _, lv := range levels {
		file, err := os.OpenFile(filepath.Join(logDir, lv.file), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file %s: %w", lv.file, err)
		}
		l.files[lv.file] = file
		cores = append(cores, zapcore.NewCore(fileEncoder, zapcore.Lock(file), lv.enable))
	}

	zl := zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1))
	l.sugar = zl.Sugar()
	return l, nil
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.sugar.Infof(format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.sugar.Warnf(format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.sugar.Errorf(format, v...)
}

// Sync flushes buffered log entries.
func (l *Logger) Sync() {
	_ = l.sugar.Sync()
}

// CleanLogs truncates the named log file. The zap cores keep their
// append-mode handles, so writes continue at the new end of file.
func (l *Logger) CleanLogs(fileName string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	filePath := filepath.Join(l.logDir, fileName)
	file, err := os.OpenFile(filePath, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		l.Error("Error opening file: %v", err)
		return
	}
	defer file.Close()

	l.Info("Log file %s has been cleared", fileName)
}

// Close flushes and closes all log files.
func (l *Logger) Close() {
	l.Sync()
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, file := range l.files {
		file.Close()
	}
}
