package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Supported LLM providers.
const (
	ProviderOpenAI = "openai"
	ProviderVertex = "vertex"
)

// Config holds all configuration for the application.
type Config struct {
	WorkDir     string
	LedgerPath  string
	DownloadDir string
	ImagesDir   string
	OutputDir   string
	ResultsDir  string

	MailLookback         time.Duration
	GmailCredentialsFile string
	GmailTokenFile       string
	GmailUser            string

	LLMProvider     string
	LLMBaseURL      string
	LLMAPIKey       string
	VisionModel     string
	TextModel       string
	VertexProjectID string
	VertexRegion    string

	RasterDPI    int
	PdftoppmPath string
	SchemaDir    string

	RetryAttempts int
	APIPort       string
	LogLevel      slog.Level
	LogFormat     string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or a parent directory, it will be loaded automatically.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	workDir := getEnv("WORK_DIR", ".")

	cfg := &Config{
		WorkDir:     workDir,
		LedgerPath:  getEnv("LEDGER_PATH", filepath.Join(workDir, "data", "ledger.db")),
		DownloadDir: getEnv("DOWNLOAD_DIR", filepath.Join(workDir, "download")),
		ImagesDir:   getEnv("IMAGES_DIR", filepath.Join(workDir, "images")),
		OutputDir:   getEnv("OUTPUT_DIR", filepath.Join(workDir, "output")),
		ResultsDir:  getEnv("RESULTS_DIR", filepath.Join(workDir, "results")),

		GmailCredentialsFile: getEnv("GMAIL_CREDENTIALS_FILE", "credentials.json"),
		GmailTokenFile:       getEnv("GMAIL_TOKEN_FILE", "token.json"),
		GmailUser:            getEnv("GMAIL_USER", "me"),

		LLMProvider:     strings.ToLower(getEnv("LLM_PROVIDER", ProviderOpenAI)),
		LLMBaseURL:      getEnv("LLM_BASE_URL", "https://api.openai.com/v1"),
		LLMAPIKey:       getEnv("LLM_API_KEY", ""),
		VisionModel:     getEnv("VISION_MODEL", "gpt-4o-mini"),
		TextModel:       getEnv("TEXT_MODEL", "gpt-4o-mini"),
		VertexProjectID: getEnv("VERTEX_PROJECT_ID", ""),
		VertexRegion:    getEnv("VERTEX_REGION", "us-central1"),

		PdftoppmPath: getEnv("PDFTOPPM_PATH", "pdftoppm"),
		SchemaDir:    getEnv("SCHEMA_DIR", ""),
		APIPort:      getEnv("API_PORT", "9000"),
		LogFormat:    strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	lookback, err := time.ParseDuration(getEnv("MAIL_LOOKBACK", "24h"))
	if err != nil {
		return nil, fmt.Errorf("MAIL_LOOKBACK must be a valid duration: %w", err)
	}
	if lookback <= 0 {
		return nil, fmt.Errorf("MAIL_LOOKBACK must be greater than 0")
	}
	cfg.MailLookback = lookback

	cfg.RasterDPI, err = getPositiveInt("RASTER_DPI", 300)
	if err != nil {
		return nil, err
	}
	cfg.RetryAttempts, err = getPositiveInt("RETRY_ATTEMPTS", 3)
	if err != nil {
		return nil, err
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", "info"))
	if err != nil {
		return nil, err
	}
	cfg.LogLevel = level

	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return nil, fmt.Errorf("LOG_FORMAT must be text or json, got %q", cfg.LogFormat)
	}

	switch cfg.LLMProvider {
	case ProviderOpenAI:
	case ProviderVertex:
		if cfg.VertexProjectID == "" {
			return nil, fmt.Errorf("VERTEX_PROJECT_ID is required when LLM_PROVIDER=vertex")
		}
	default:
		return nil, fmt.Errorf("LLM_PROVIDER must be %s or %s, got %q", ProviderOpenAI, ProviderVertex, cfg.LLMProvider)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.LedgerPath), 0755); err != nil {
		return nil, fmt.Errorf("failed to create ledger directory: %w", err)
	}

	return cfg, nil
}

// RequireLLM reports an error when the configured provider is missing credentials.
// Passes that never call a model (ingest, report, dedupe) skip this check.
func (c *Config) RequireLLM() error {
	if c.LLMProvider == ProviderOpenAI && c.LLMAPIKey == "" {
		return fmt.Errorf("LLM_API_KEY is required when LLM_PROVIDER=openai")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if v <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return v, nil
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error: %w", err)
	}
	return level, nil
}
