package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the process configuration. Precedence, lowest first: defaults,
// YAML file, .env file, environment. Command-line flags are applied by the
// caller on top.
type Config struct {
	Port              string `yaml:"port"`
	ModelPath         string `yaml:"model_path"`
	MetadataPath      string `yaml:"metadata_path"`
	SharedLibraryPath string `yaml:"onnxruntime_lib"`
	LogLevel          string `yaml:"log_level"`
	LogFormat         string `yaml:"log_format"`
	TelegramToken     string `yaml:"telegram_token"`
	MaxUploadBytes    int64  `yaml:"max_upload_bytes"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:           "8080",
		ModelPath:      filepath.Join("models", "model.onnx"),
		MetadataPath:   filepath.Join("models", "model_metadata.json"),
		LogLevel:       "info",
		LogFormat:      "text",
		MaxUploadBytes: 10 << 20,
	}
}

// Load builds the configuration. path names an optional YAML file; when empty
// SAFESKIN_CONFIG is consulted. A missing .env file is ignored.
func Load(path string) (*Config, error) {
	// .env values never override variables already set in the environment
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()

	if path == "" {
		path = os.Getenv("SAFESKIN_CONFIG")
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("config file %s not found", path)
	}
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	setString(&c.Port, "PORT")
	setString(&c.ModelPath, "MODEL_PATH")
	setString(&c.MetadataPath, "METADATA_PATH")
	setString(&c.SharedLibraryPath, "ONNXRUNTIME_LIB")
	setString(&c.LogLevel, "LOG_LEVEL")
	setString(&c.LogFormat, "LOG_FORMAT")
	setString(&c.TelegramToken, "TELEGRAM_TOKEN")

	if v := os.Getenv("MAX_UPLOAD_BYTES"); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
		}
		c.MaxUploadBytes = n
	}
	return nil
}

// Validate rejects values the server cannot start with.
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if c.ModelPath == "" {
		return errors.New("model path is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max upload bytes must be positive, got %d", c.MaxUploadBytes)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}
