package config

import (
	"log"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings for the server.
type Config struct {
	Port        int `yaml:"port"`
	MonitorPort int `yaml:"monitor_port"`

	ModelPath      string `yaml:"model_path"`
	ClassNamesPath string `yaml:"class_names_path"`
	ModelURL       string `yaml:"model_url"`
	ClassNamesURL  string `yaml:"class_names_url"`

	InputSize         int     `yaml:"input_size"`
	DefaultConfidence float64 `yaml:"default_confidence"`
	IOUThreshold      float64 `yaml:"iou_threshold"`

	MaxUploadSizeMB       int64  `yaml:"max_upload_mb"`
	ImageDirectory        string `yaml:"image_directory"`
	DataDirectory         string `yaml:"data_directory"`
	LogDirectory          string `yaml:"log_directory"`
	MaxImageDirectorySize int64  `yaml:"max_image_directory_size"` // GB

	SessionTTLMinutes      int `yaml:"session_ttl_minutes"`
	CleanupIntervalSeconds int `yaml:"cleanup_interval_seconds"`
}

// Load builds the configuration in three layers: built-in defaults,
// the optional YAML file (CONFIG_FILE, default config.yaml), then
// environment variables. A .env file is loaded first when present.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		Port:                   8080,
		MonitorPort:            9090,
		ModelPath:              filepath.Join("models", "best.onnx"),
		ClassNamesPath:         filepath.Join("models", "classes.txt"),
		InputSize:              640,
		DefaultConfidence:      0.25,
		IOUThreshold:           0.45,
		MaxUploadSizeMB:        10,
		ImageDirectory:         filepath.Join(".", "images"),
		DataDirectory:          filepath.Join(".", "data"),
		LogDirectory:           filepath.Join(".", "logs"),
		MaxImageDirectorySize:  4,
		SessionTTLMinutes:      30,
		CleanupIntervalSeconds: 60,
	}

	configFile := getEnv("CONFIG_FILE", "config.yaml")
	if data, err := os.ReadFile(configFile); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			log.Fatalf("Failed to parse config file %s: %v", configFile, err)
		}
	}

	cfg.Port = getEnvAsInt("PORT", cfg.Port)
	cfg.MonitorPort = getEnvAsInt("MONITOR_PORT", cfg.MonitorPort)
	cfg.ModelPath = getEnv("MODEL_PATH", cfg.ModelPath)
	cfg.ClassNamesPath = getEnv("CLASS_NAMES_PATH", cfg.ClassNamesPath)
	cfg.ModelURL = getEnv("MODEL_URL", cfg.ModelURL)
	cfg.ClassNamesURL = getEnv("CLASS_NAMES_URL", cfg.ClassNamesURL)
	cfg.InputSize = getEnvAsInt("INPUT_SIZE", cfg.InputSize)
	cfg.DefaultConfidence = getEnvAsFloat("DEFAULT_CONFIDENCE", cfg.DefaultConfidence)
	cfg.IOUThreshold = getEnvAsFloat("IOU_THRESHOLD", cfg.IOUThreshold)
	cfg.MaxUploadSizeMB = getEnvAsInt64("MAX_UPLOAD_MB", cfg.MaxUploadSizeMB)
	cfg.ImageDirectory = getEnv("IMAGE_DIR", cfg.ImageDirectory)
	cfg.DataDirectory = getEnv("DATA_DIR", cfg.DataDirectory)
	cfg.LogDirectory = getEnv("LOG_DIR", cfg.LogDirectory)
	cfg.MaxImageDirectorySize = getEnvAsInt64("MAX_IMAGE_DIRECTORY_SIZE", cfg.MaxImageDirectorySize)
	cfg.SessionTTLMinutes = getEnvAsInt("SESSION_TTL_MINUTES", cfg.SessionTTLMinutes)
	cfg.CleanupIntervalSeconds = getEnvAsInt("CLEANUP_INTERVAL", cfg.CleanupIntervalSeconds)

	return cfg
}

// DatabasePath returns the location of the SQLite database file.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDirectory, "analyses.db")
}

// MaxUploadBytes returns the upload size cap in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return c.MaxUploadSizeMB << 20
}

// MaxImageDirectoryBytes returns the image directory cap in bytes.
func (c *Config) MaxImageDirectoryBytes() int64 {
	return c.MaxImageDirectorySize << 30
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}
