package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	GatewayPort        int
	BankingServiceURL  string
	JWTSecret          string
	CORSAllowedOrigins []string
	ProxyTimeout       time.Duration
}

func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	port, err := strconv.Atoi(getEnvOrDefault("GATEWAY_PORT", "80"))
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_PORT: %w", err)
	}
	cfg.GatewayPort = port

	cfg.BankingServiceURL = getEnvOrDefault("BANKING_SERVICE_HOST", "http://localhost:8082")
	cfg.JWTSecret = getEnvOrDefault("JWT_SECRET", "")
	if cfg.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET must be set")
	}
	cfg.CORSAllowedOrigins = splitList(getEnvOrDefault("CORS_ALLOWED_ORIGINS", "http://localhost:5173"))

	timeout, err := time.ParseDuration(getEnvOrDefault("GATEWAY_PROXY_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid GATEWAY_PROXY_TIMEOUT: %w", err)
	}
	cfg.ProxyTimeout = timeout

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
