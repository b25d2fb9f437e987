package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Pipeline  PipelineConfig
	Batch     BatchConfig
	Anonymize AnonymizeConfig
}

// PipelineConfig holds per-document analysis configuration
type PipelineConfig struct {
	DefaultLocale   string
	MinConfidence   float64
	DocumentTimeout time.Duration
}

// BatchConfig holds batch-processing configuration
type BatchConfig struct {
	Workers   int
	QueueSize int
}

// AnonymizeConfig holds anonymization configuration
type AnonymizeConfig struct {
	Enabled    bool
	Strategy   string   // mask | pseudonym | redact
	Categories []string // ids | banking | phone
	Salt       string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			DefaultLocale:   getEnv("EXTRACT_DEFAULT_LOCALE", "fr"),
			MinConfidence:   getEnvAsFloat64("EXTRACT_MIN_CONFIDENCE", 0.30),
			DocumentTimeout: getEnvAsDuration("EXTRACT_DOC_TIMEOUT", 30*time.Second),
		},
		Batch: BatchConfig{
			Workers:   getEnvAsInt("EXTRACT_WORKERS", 4),
			QueueSize: getEnvAsInt("EXTRACT_QUEUE_SIZE", 256),
		},
		Anonymize: AnonymizeConfig{
			Enabled:    getEnvAsBool("EXTRACT_ANONYMIZE", false),
			Strategy:   getEnv("EXTRACT_ANONYMIZE_STRATEGY", "mask"),
			Categories: getEnvAsList("EXTRACT_ANONYMIZE_CATEGORIES", []string{"ids", "banking", "phone"}),
			Salt:       getEnv("EXTRACT_ANONYMIZE_SALT", ""),
		},
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	if c.Pipeline.MinConfidence < 0 || c.Pipeline.MinConfidence > 1 {
		return NewAppError("CONFIG_ERROR", "EXTRACT_MIN_CONFIDENCE must be in [0,1]", ErrValidationFailure)
	}
	if c.Batch.Workers <= 0 {
		return NewAppError("CONFIG_ERROR", "EXTRACT_WORKERS must be positive", ErrValidationFailure)
	}
	switch c.Anonymize.Strategy {
	case "mask", "pseudonym", "redact":
	default:
		return NewAppError("CONFIG_ERROR", "EXTRACT_ANONYMIZE_STRATEGY must be mask, pseudonym or redact", ErrValidationFailure)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat64(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return defaultValue
}
