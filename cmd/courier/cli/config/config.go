package config

import "time"

// Config represents the courier CLI configuration.
// Use mapstructure tags for Viper unmarshaling.
type Config struct {
	Progress  string            `mapstructure:"progress"`
	Timeout   time.Duration     `mapstructure:"timeout"`
	UserAgent string            `mapstructure:"user-agent"`
	Headers   map[string]string `mapstructure:"headers"`
	Upload    UploadConfig      `mapstructure:"upload"`
}

// UploadConfig holds defaults for the upload command.
type UploadConfig struct {
	Method      string `mapstructure:"method"`
	Compression string `mapstructure:"compression"`
	ChunkSize   int    `mapstructure:"chunk-size"`
	Digest      bool   `mapstructure:"digest"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Progress: "auto",
		Timeout:  10 * time.Minute,
		Upload: UploadConfig{
			Method:      "PUT",
			Compression: "none",
			ChunkSize:   64 * 1024,
		},
	}
}
