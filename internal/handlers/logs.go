package handlers

import (
	"net/http"
	"os"
	"path/filepath"

	"signserver/internal/config"
	"signserver/internal/logger"
)

// logFiles maps the level query parameter onto the per-level log files.
var logFiles = map[string]string{
	"info":    "info.log",
	"warning": "warning.log",
	"error":   "error.log",
}

// ShowLogsHandler serves one of the per-level log files as plain text.
func ShowLogsHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[r.URL.Query().Get("level")]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown log level")
			return
		}

		filePath := filepath.Join(cfg.LogDirectory, filename)
		if _, err := os.Stat(filePath); os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "log file not found: "+filename)
			return
		}

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, filePath)
	}
}

// ClearLogsHandler truncates one of the per-level log files.
func ClearLogsHandler(logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, ok := logFiles[r.URL.Query().Get("level")]
		if !ok {
			writeError(w, http.StatusBadRequest, "unknown log level")
			return
		}

		logger.CleanLogs(filename)
		w.WriteHeader(http.StatusNoContent)
	}
}
