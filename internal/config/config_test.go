package config

import (
	"os"
	"path/filepath"
	"testing"
)

// ========================================
// Config Loading Tests
// ========================================

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Port)
	}
	if cfg.MonitorPort != 9090 {
		t.Errorf("Expected default monitor port 9090, got %d", cfg.MonitorPort)
	}
	if cfg.DefaultConfidence != 0.25 {
		t.Errorf("Expected default confidence 0.25, got %v", cfg.DefaultConfidence)
	}
	if cfg.InputSize != 640 {
		t.Errorf("Expected default input size 640, got %d", cfg.InputSize)
	}
	if cfg.IOUThreshold != 0.45 {
		t.Errorf("Expected default IOU threshold 0.45, got %v", cfg.IOUThreshold)
	}
	if cfg.MaxUploadSizeMB != 10 {
		t.Errorf("Expected default upload cap 10 MB, got %d", cfg.MaxUploadSizeMB)
	}
	if cfg.SessionTTLMinutes != 30 {
		t.Errorf("Expected default session TTL 30 minutes, got %d", cfg.SessionTTLMinutes)
	}
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PORT", "9999")
	t.Setenv("MODEL_PATH", "/opt/models/signs.onnx")
	t.Setenv("DEFAULT_CONFIDENCE", "0.4")
	t.Setenv("MAX_UPLOAD_MB", "25")
	t.Setenv("SESSION_TTL_MINUTES", "5")

	cfg := Load()

	if cfg.Port != 9999 {
		t.Errorf("Expected port 9999, got %d", cfg.Port)
	}
	if cfg.ModelPath != "/opt/models/signs.onnx" {
		t.Errorf("Expected model path override, got %s", cfg.ModelPath)
	}
	if cfg.DefaultConfidence != 0.4 {
		t.Errorf("Expected confidence 0.4, got %v", cfg.DefaultConfidence)
	}
	if cfg.MaxUploadSizeMB != 25 {
		t.Errorf("Expected upload cap 25 MB, got %d", cfg.MaxUploadSizeMB)
	}
	if cfg.SessionTTLMinutes != 5 {
		t.Errorf("Expected session TTL 5 minutes, got %d", cfg.SessionTTLMinutes)
	}
}

func TestLoad_InvalidEnvValuesKeepDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("PORT", "not-a-number")
	t.Setenv("DEFAULT_CONFIDENCE", "high")

	cfg := Load()

	if cfg.Port != 8080 {
		t.Errorf("Invalid PORT should keep default, got %d", cfg.Port)
	}
	if cfg.DefaultConfidence != 0.25 {
		t.Errorf("Invalid DEFAULT_CONFIDENCE should keep default, got %v", cfg.DefaultConfidence)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	yamlContent := `
port: 7070
model_path: custom/model.onnx
default_confidence: 0.35
image_directory: /var/lib/signs/images
session_ttl_minutes: 10
`
	if err := os.WriteFile(configPath, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", configPath)

	cfg := Load()

	if cfg.Port != 7070 {
		t.Errorf("Expected port 7070 from file, got %d", cfg.Port)
	}
	if cfg.ModelPath != "custom/model.onnx" {
		t.Errorf("Expected model path from file, got %s", cfg.ModelPath)
	}
	if cfg.DefaultConfidence != 0.35 {
		t.Errorf("Expected confidence 0.35 from file, got %v", cfg.DefaultConfidence)
	}
	if cfg.ImageDirectory != "/var/lib/signs/images" {
		t.Errorf("Expected image directory from file, got %s", cfg.ImageDirectory)
	}
	// Keys absent from the file keep their defaults
	if cfg.MonitorPort != 9090 {
		t.Errorf("Expected default monitor port, got %d", cfg.MonitorPort)
	}
}

func TestLoad_EnvironmentBeatsFile(t *testing.T) {
	tempDir := t.TempDir()
	configPath := filepath.Join(tempDir, "config.yaml")

	if err := os.WriteFile(configPath, []byte("port: 7070\n"), 0644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}
	t.Setenv("CONFIG_FILE", configPath)
	t.Setenv("PORT", "6060")

	cfg := Load()

	if cfg.Port != 6060 {
		t.Errorf("Environment should override file, got %d", cfg.Port)
	}
}

// ========================================
// Derived Value Tests
// ========================================

func TestConfig_DatabasePath(t *testing.T) {
	cfg := &Config{DataDirectory: "/srv/signserver/data"}

	expected := filepath.Join("/srv/signserver/data", "analyses.db")
	if cfg.DatabasePath() != expected {
		t.Errorf("Expected %s, got %s", expected, cfg.DatabasePath())
	}
}

func TestConfig_MaxUploadBytes(t *testing.T) {
	cfg := &Config{MaxUploadSizeMB: 10}

	if cfg.MaxUploadBytes() != 10*1024*1024 {
		t.Errorf("Expected 10 MB in bytes, got %d", cfg.MaxUploadBytes())
	}
}

func TestConfig_MaxImageDirectoryBytes(t *testing.T) {
	cfg := &Config{MaxImageDirectorySize: 4}

	if cfg.MaxImageDirectoryBytes() != 4*1024*1024*1024 {
		t.Errorf("Expected 4 GB in bytes, got %d", cfg.MaxImageDirectoryBytes())
	}
}
