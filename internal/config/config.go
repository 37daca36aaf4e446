package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port                  string
	AllowedOrigin         string
	DatabaseURL           string
	RedisAddr             string
	RedisPassword         string
	RedisDB               int
	DataDir               string
	Timezone              string
	AuthSecret            string
	AccessTokenTTLMinutes int
	OperatorEmail         string
	OperatorPassword      string
	GeminiAPIKey          string
	GeminiModel           string
	GeminiEndpoint        string
	AdviceLanguage        string
	AdviceCacheTTLSeconds int
	AdviceTimeoutSeconds  int
	LowStockThreshold     int
	LogLevel              string
}

// Load reads the environment. Values from an optional .env file (or the file
// named by NOVAPOS_ENV_FILE) fill in variables that are not already set. A
// missing file is fine; one that cannot be read or parsed is an error.
func Load() (Config, error) {
	envFile := getEnv("NOVAPOS_ENV_FILE", ".env")
	if err := loadDotEnv(envFile); err != nil {
		return Config{}, fmt.Errorf("config: load %s: %w", envFile, err)
	}

	cfg := Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigin:         getEnv("ALLOWED_ORIGIN", "http://127.0.0.1:5173"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RedisPassword:         os.Getenv("REDIS_PASSWORD"),
		RedisDB:               getInt("REDIS_DB", 0, 0),
		DataDir:               getEnv("DATA_DIR", "data"),
		Timezone:              getEnv("TIMEZONE", "Local"),
		AuthSecret:            strings.TrimSpace(os.Getenv("AUTH_SECRET")),
		AccessTokenTTLMinutes: getInt("ACCESS_TOKEN_TTL_MINUTES", 480, 1),
		OperatorEmail:         strings.ToLower(strings.TrimSpace(os.Getenv("OPERATOR_EMAIL"))),
		OperatorPassword:      os.Getenv("OPERATOR_PASSWORD"),
		GeminiAPIKey:          strings.TrimSpace(os.Getenv("GEMINI_API_KEY")),
		GeminiModel:           os.Getenv("GEMINI_MODEL"),
		GeminiEndpoint:        os.Getenv("GEMINI_ENDPOINT"),
		AdviceLanguage:        getEnv("ADVICE_LANGUAGE", "Spanish"),
		AdviceCacheTTLSeconds: getInt("ADVICE_CACHE_TTL_SECONDS", 600, 1),
		AdviceTimeoutSeconds:  getInt("ADVICE_TIMEOUT_SECONDS", 20, 1),
		LowStockThreshold:     getInt("LOW_STOCK_THRESHOLD", 5, 1),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
	}

	return cfg, nil
}

func (c Config) Address() string {
	return fmt.Sprintf(":%s", c.Port)
}

// Location resolves Timezone. Daily analytics bucket sales by calendar day in
// this zone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || strings.EqualFold(c.Timezone, "local") {
		return time.Local, nil
	}
	return time.LoadLocation(c.Timezone)
}

func (c Config) AdviceCacheTTL() time.Duration {
	return time.Duration(c.AdviceCacheTTLSeconds) * time.Second
}

func (c Config) AdviceTimeout() time.Duration {
	return time.Duration(c.AdviceTimeoutSeconds) * time.Second
}

func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

func getEnv(key string, fallback string) string {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	return val
}

func getInt(key string, fallback int, minVal int) int {
	n, err := strconv.Atoi(getEnv(key, strconv.Itoa(fallback)))
	if err != nil || n < minVal {
		return fallback
	}
	return n
}
