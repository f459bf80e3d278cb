package ai

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"signserver/internal/logger"
)

// ErrUnavailable is returned by Detect when the detection network could
// not be loaded, or when the binary was built without the gocv tag.
var ErrUnavailable = errors.New("detection engine unavailable")

// LoadClassNames reads one class name per line from the given file.
// Blank lines and lines starting with # are skipped. A missing file is
// logged and yields nil; detections then fall back to numeric labels.
func LoadClassNames(path string, logger *logger.Logger) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		logger.Warning("Could not read class names from %s: %v", path, err)
		return nil
	}

	var names []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		names = append(names, line)
	}
	return names
}

// ClassName resolves a class index into its label.
func ClassName(names []string, id int) string {
	if id >= 0 && id < len(names) {
		return names[id]
	}
	return fmt.Sprintf("class_%d", id)
}
