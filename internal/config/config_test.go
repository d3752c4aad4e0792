package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnv sets an environment variable, ignoring errors (for test setup)
func setEnv(key, value string) {
	_ = os.Setenv(key, value)
}

// unsetEnv unsets an environment variable, ignoring errors (for test cleanup)
func unsetEnv(key string) {
	_ = os.Unsetenv(key)
}

var envVars = []string{
	"WORK_DIR", "LEDGER_PATH", "DOWNLOAD_DIR", "IMAGES_DIR", "OUTPUT_DIR", "RESULTS_DIR",
	"MAIL_LOOKBACK", "GMAIL_CREDENTIALS_FILE", "GMAIL_TOKEN_FILE", "GMAIL_USER",
	"LLM_PROVIDER", "LLM_BASE_URL", "LLM_API_KEY", "VISION_MODEL", "TEXT_MODEL",
	"VERTEX_PROJECT_ID", "VERTEX_REGION", "RASTER_DPI", "PDFTOPPM_PATH", "SCHEMA_DIR",
	"RETRY_ATTEMPTS", "API_PORT", "LOG_LEVEL", "LOG_FORMAT",
}

// isolateEnv clears all config env vars and moves into an empty directory so
// no .env file is picked up. Everything is restored when the test ends.
func isolateEnv(t *testing.T) {
	t.Helper()

	originalEnv := make(map[string]string)
	for _, key := range envVars {
		originalEnv[key] = os.Getenv(key)
		unsetEnv(key)
	}

	originalWd, _ := os.Getwd()
	_ = os.Chdir(t.TempDir())

	t.Cleanup(func() {
		_ = os.Chdir(originalWd)
		for key, value := range originalEnv {
			if value != "" {
				setEnv(key, value)
			} else {
				unsetEnv(key)
			}
		}
	})
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		setupEnv    func(*testing.T)
		wantErr     bool
		checkConfig func(*testing.T, *Config)
	}{
		{
			name:     "defaults",
			setupEnv: func(t *testing.T) {},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.LedgerPath != filepath.Join(".", "data", "ledger.db") {
					t.Errorf("LedgerPath = %q", cfg.LedgerPath)
				}
				if cfg.DownloadDir != "download" {
					t.Errorf("DownloadDir = %q, want download", cfg.DownloadDir)
				}
				if cfg.MailLookback != 24*time.Hour {
					t.Errorf("MailLookback = %v, want 24h", cfg.MailLookback)
				}
				if cfg.RasterDPI != 300 {
					t.Errorf("RasterDPI = %d, want 300", cfg.RasterDPI)
				}
				if cfg.RetryAttempts != 3 {
					t.Errorf("RetryAttempts = %d, want 3", cfg.RetryAttempts)
				}
				if cfg.LLMProvider != ProviderOpenAI {
					t.Errorf("LLMProvider = %q, want openai", cfg.LLMProvider)
				}
				if cfg.GmailUser != "me" {
					t.Errorf("GmailUser = %q, want me", cfg.GmailUser)
				}
				if cfg.LogLevel != slog.LevelInfo || cfg.LogFormat != "text" {
					t.Errorf("logging = %v/%q, want info/text", cfg.LogLevel, cfg.LogFormat)
				}
				if cfg.APIPort != "9000" {
					t.Errorf("APIPort = %q, want 9000", cfg.APIPort)
				}
			},
		},
		{
			name: "work dir drives artifact directories",
			setupEnv: func(t *testing.T) {
				setEnv("WORK_DIR", "/srv/docflow")
				setEnv("LEDGER_PATH", filepath.Join(t.TempDir(), "ledger.db"))
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.DownloadDir != "/srv/docflow/download" {
					t.Errorf("DownloadDir = %q", cfg.DownloadDir)
				}
				if cfg.ResultsDir != "/srv/docflow/results" {
					t.Errorf("ResultsDir = %q", cfg.ResultsDir)
				}
			},
		},
		{
			name: "custom values",
			setupEnv: func(t *testing.T) {
				setEnv("MAIL_LOOKBACK", "72h")
				setEnv("RASTER_DPI", "150")
				setEnv("LOG_LEVEL", "debug")
				setEnv("LOG_FORMAT", "JSON")
				setEnv("VISION_MODEL", "gpt-4.1")
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.MailLookback != 72*time.Hour {
					t.Errorf("MailLookback = %v", cfg.MailLookback)
				}
				if cfg.RasterDPI != 150 {
					t.Errorf("RasterDPI = %d", cfg.RasterDPI)
				}
				if cfg.LogLevel != slog.LevelDebug || cfg.LogFormat != "json" {
					t.Errorf("logging = %v/%q", cfg.LogLevel, cfg.LogFormat)
				}
				if cfg.VisionModel != "gpt-4.1" {
					t.Errorf("VisionModel = %q", cfg.VisionModel)
				}
			},
		},
		{
			name:     "invalid lookback",
			setupEnv: func(t *testing.T) { setEnv("MAIL_LOOKBACK", "yesterday") },
			wantErr:  true,
		},
		{
			name:     "negative lookback",
			setupEnv: func(t *testing.T) { setEnv("MAIL_LOOKBACK", "-1h") },
			wantErr:  true,
		},
		{
			name:     "invalid dpi",
			setupEnv: func(t *testing.T) { setEnv("RASTER_DPI", "high") },
			wantErr:  true,
		},
		{
			name:     "zero retry attempts",
			setupEnv: func(t *testing.T) { setEnv("RETRY_ATTEMPTS", "0") },
			wantErr:  true,
		},
		{
			name:     "unknown provider",
			setupEnv: func(t *testing.T) { setEnv("LLM_PROVIDER", "anthropic") },
			wantErr:  true,
		},
		{
			name:     "vertex without project",
			setupEnv: func(t *testing.T) { setEnv("LLM_PROVIDER", "vertex") },
			wantErr:  true,
		},
		{
			name: "vertex with project",
			setupEnv: func(t *testing.T) {
				setEnv("LLM_PROVIDER", "vertex")
				setEnv("VERTEX_PROJECT_ID", "acme")
			},
			checkConfig: func(t *testing.T, cfg *Config) {
				if cfg.VertexRegion != "us-central1" {
					t.Errorf("VertexRegion = %q", cfg.VertexRegion)
				}
			},
		},
		{
			name:     "invalid log format",
			setupEnv: func(t *testing.T) { setEnv("LOG_FORMAT", "xml") },
			wantErr:  true,
		},
		{
			name:     "invalid log level",
			setupEnv: func(t *testing.T) { setEnv("LOG_LEVEL", "loud") },
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolateEnv(t)
			tt.setupEnv(t)

			cfg, err := Load()

			if tt.wantErr {
				if err == nil {
					t.Errorf("Load() expected error, got nil")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() unexpected error: %v", err)
			}
			if tt.checkConfig != nil {
				tt.checkConfig(t, cfg)
			}
		})
	}
}

func TestLoad_CreatesLedgerDirectory(t *testing.T) {
	isolateEnv(t)

	ledgerPath := filepath.Join(t.TempDir(), "nested", "ledger.db")
	setEnv("LEDGER_PATH", ledgerPath)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if _, err := os.Stat(filepath.Dir(ledgerPath)); os.IsNotExist(err) {
		t.Errorf("Load() should create ledger directory: %v", err)
	}
	if cfg.LedgerPath != ledgerPath {
		t.Errorf("Load() LedgerPath = %v, want %v", cfg.LedgerPath, ledgerPath)
	}
}

func TestConfig_RequireLLM(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "openai with key", cfg: Config{LLMProvider: ProviderOpenAI, LLMAPIKey: "sk-test"}},
		{name: "openai without key", cfg: Config{LLMProvider: ProviderOpenAI}, wantErr: true},
		{name: "vertex uses ambient credentials", cfg: Config{LLMProvider: ProviderVertex}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.RequireLLM()
			if (err != nil) != tt.wantErr {
				t.Errorf("RequireLLM() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetEnv(t *testing.T) {
	originalValue := os.Getenv("TEST_ENV_VAR")
	defer func() {
		if originalValue != "" {
			setEnv("TEST_ENV_VAR", originalValue)
		} else {
			unsetEnv("TEST_ENV_VAR")
		}
	}()

	tests := []struct {
		name         string
		setupEnv     func()
		key          string
		defaultValue string
		want         string
	}{
		{
			name:         "env var set",
			setupEnv:     func() { setEnv("TEST_ENV_VAR", "set-value") },
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "set-value",
		},
		{
			name:         "env var not set",
			setupEnv:     func() { unsetEnv("TEST_ENV_VAR") },
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "default",
		},
		{
			name:         "empty env var uses default",
			setupEnv:     func() { setEnv("TEST_ENV_VAR", "") },
			key:          "TEST_ENV_VAR",
			defaultValue: "default",
			want:         "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.setupEnv()
			got := getEnv(tt.key, tt.defaultValue)
			if got != tt.want {
				t.Errorf("getEnv(%q, %q) = %q, want %q", tt.key, tt.defaultValue, got, tt.want)
			}
		})
	}
}
