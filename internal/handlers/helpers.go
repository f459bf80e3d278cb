package handlers

import (
	"encoding/json"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"signserver/internal/dto"
)

// allowedExtensions lists the upload types the analyzer accepts.
var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(v)
}

// writeError sends the message the frontend displays to the user.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.ErrorResponse{Error: message})
}

// validUpload accepts JPG, JPEG and PNG files and rejects anything whose
// content does not match an image type, whatever its extension claims.
func validUpload(filename string, data []byte) bool {
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExtensions[ext] {
		return false
	}
	switch http.DetectContentType(data) {
	case "image/jpeg", "image/png":
		return true
	}
	return false
}

// parseThreshold reads the confidence threshold form value. Absent means
// the configured default; malformed or out of [0, 1] is an error.
func parseThreshold(raw string, def float64) (float64, error) {
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v < 0 || v > 1 {
		return 0, errInvalidThreshold
	}
	return v, nil
}

// atoiDefault converts string to int or returns a default when conversion fails or value <= 0.
func atoiDefault(s string, def int) int {
	if v, err := strconv.Atoi(s); err == nil && v > 0 {
		return v
	}
	return def
}

// parseDate parses a date string in the format "2006-01-02" from the request (HTML input format).
func parseDate(v string) time.Time {
	if v == "" {
		return time.Time{}
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}
	}
	return t
}

// safeImageName rejects names that could escape the image directory.
func safeImageName(name string) bool {
	return name != "" && name == filepath.Base(name) && !strings.HasPrefix(name, ".")
}
