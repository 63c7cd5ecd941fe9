package config

import (
	"os"
	"strconv"
	"time"
)

// GatewayConfig configures the classifierd service from the environment.
type GatewayConfig struct {
	Port           string
	ModelDir       string
	InferenceURL   string
	LogLevel       string
	RequestTimeout time.Duration
}

func LoadGateway() *GatewayConfig {
	return &GatewayConfig{
		Port:           getEnv("PORT", "8080"),
		ModelDir:       getEnv("MODEL_DIR", "./model"),
		InferenceURL:   getEnv("INFERENCE_URL", "http://localhost:5000/predict"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		RequestTimeout: time.Duration(getEnvInt("REQUEST_TIMEOUT_MS", 5000)) * time.Millisecond,
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val, err := strconv.Atoi(os.Getenv(key)); err == nil && val > 0 {
		return val
	}
	return defaultVal
}
