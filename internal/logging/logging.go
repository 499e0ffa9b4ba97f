// internal/logging/logging.go
// Package logging records request traffic and application events for foundrychat.
// Output is discarded until Init is called with a log file path.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

// Traffic directions used with LogRequest.
const (
	DirClientToService = "CLIENT->FOUNDRY"
	DirServiceToClient = "FOUNDRY->CLIENT"
	DirClientToCLI     = "CLIENT->CLI"
	DirCLIToClient     = "CLI->CLIENT"
)

var (
	mu      sync.Mutex
	logFile *os.File
	logger  = newLogger()
)

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true, DisableColors: true})
	l.SetLevel(logrus.InfoLevel)
	return l
}

// Init directs log output to logPath, creating parent directories as needed.
// An empty path discards all output.
func Init(logPath string) error {
	mu.Lock()
	defer mu.Unlock()

	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	logPath = strings.TrimSpace(logPath)
	if logPath == "" {
		logger.SetOutput(io.Discard)
		return nil
	}

	if dir := filepath.Dir(logPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	logFile = file
	logger.SetOutput(file)
	return nil
}

// SetDebug toggles debug-level entries.
func SetDebug(enabled bool) {
	if enabled {
		logger.SetLevel(logrus.DebugLevel)
		return
	}
	logger.SetLevel(logrus.InfoLevel)
}

// Close flushes and releases the log file, if any.
func Close() error {
	mu.Lock()
	defer mu.Unlock()
	logger.SetOutput(io.Discard)
	if logFile == nil {
		return nil
	}
	err := logFile.Close()
	logFile = nil
	return err
}

// Logger exposes the shared logrus logger for callers that want fields.
func Logger() *logrus.Logger {
	return logger
}

// LogEvent writes a formatted informational entry.
func LogEvent(format string, args ...any) {
	logger.Info(fmt.Sprintf(format, args...))
}

// LogDebug writes a formatted debug entry.
func LogDebug(format string, args ...any) {
	logger.Debug(fmt.Sprintf(format, args...))
}

// LogRequest records one leg of a request/response exchange.
func LogRequest(direction, host, model, tool string, payload any) {
	logger.WithFields(requestFields(direction, host, model, tool, payload)).Info("traffic")
}

func requestFields(direction, host, model, tool string, payload any) logrus.Fields {
	dir := strings.ToUpper(strings.TrimSpace(direction))
	hostValue := strings.TrimSpace(host)
	if hostValue == "" {
		hostValue = "unknown"
	}
	modelValue := strings.TrimSpace(model)
	if modelValue == "" {
		modelValue = "unknown"
	}
	fields := logrus.Fields{
		"direction": dir,
		"host":      hostValue,
		"model":     modelValue,
		"payload":   formatPayload(payload),
	}
	if tool = strings.TrimSpace(tool); tool != "" {
		fields["tool"] = tool
	}
	return fields
}

func formatPayload(payload any) string {
	switch v := payload.(type) {
	case nil:
		return "null"
	case string:
		if strings.TrimSpace(v) == "" {
			return `""`
		}
		return v
	case []byte:
		if len(v) == 0 {
			return "[]"
		}
		return string(v)
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
