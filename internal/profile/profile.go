package profile

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Profile is configuration to start main server.
type Profile struct {
	// LLM configuration (OpenAI-compatible protocol).
	// Every provider (gemini, openai, deepseek, siliconflow, openrouter, ollama) shares it.
	LLMProvider string
	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	LLMTimeout  int // seconds

	// Feedback settings
	DefaultPageSize int
	MaxPageSize     int
	MaxSummaryItems int
	ValidSources    []string

	CORSOrigins []string
	LogLevel    string

	Mode    string
	Addr    string
	Port    int
	Data    string
	Driver  string
	DSN     string
	Version string
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
	MaxSummaryItems = 50
)

// DefaultValidSources are the channels feedback may originate from.
var DefaultValidSources = []string{"support_ticket", "survey", "app_store"}

// Provider default configurations for LLM.
// Used when FEEDLENS_AI_LLM_BASE_URL is not explicitly set.
var llmProviderDefaults = map[string]struct {
	BaseURL string
	Model   string
}{
	"gemini": {
		BaseURL: "https://generativelanguage.googleapis.com/v1beta/openai/",
		Model:   "gemini-2.5-flash",
	},
	"openai": {
		BaseURL: "https://api.openai.com/v1",
		Model:   "gpt-4o-mini",
	},
	"deepseek": {
		BaseURL: "https://api.deepseek.com",
		Model:   "deepseek-chat",
	},
	"siliconflow": {
		BaseURL: "https://api.siliconflow.cn/v1",
		Model:   "Qwen/Qwen2.5-7B-Instruct",
	},
	"openrouter": {
		BaseURL: "https://openrouter.ai/api/v1",
		Model:   "google/gemini-2.5-flash",
	},
	"ollama": {
		BaseURL: "http://localhost:11434/v1",
		Model:   "llama3.1",
	},
}

func (p *Profile) IsDev() bool {
	return p.Mode != "prod"
}

// IsAIEnabled returns true if an LLM API key is configured.
// Ollama runs locally and needs no key.
func (p *Profile) IsAIEnabled() bool {
	return p.LLMAPIKey != "" || p.LLMProvider == "ollama"
}

// getEnvOrDefault returns environment variable value or default value.
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvOrDefaultInt returns environment variable value as int or default value.
func getEnvOrDefaultInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		slog.Warn("ignoring non-integer environment value", "key", key, "value", value)
	}
	return defaultValue
}

// parseList accepts either a JSON array or a comma separated list.
func parseList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var list []string
	if err := json.Unmarshal([]byte(raw), &list); err == nil {
		return list
	}
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			list = append(list, item)
		}
	}
	return list
}

// FromEnv loads configuration from environment variables.
func (p *Profile) FromEnv() {
	p.LLMProvider = getEnvOrDefault("FEEDLENS_AI_LLM_PROVIDER", "gemini")
	p.LLMAPIKey = getEnvOrDefault("FEEDLENS_AI_LLM_API_KEY", "")
	p.LLMBaseURL = getEnvOrDefault("FEEDLENS_AI_LLM_BASE_URL", "")
	p.LLMModel = getEnvOrDefault("FEEDLENS_AI_LLM_MODEL", "")
	p.LLMTimeout = getEnvOrDefaultInt("FEEDLENS_AI_LLM_TIMEOUT_SECONDS", 30)

	if _, ok := llmProviderDefaults[p.LLMProvider]; !ok {
		slog.Warn("Unknown LLM provider, treating as generic OpenAI-compatible endpoint", "provider", p.LLMProvider)
	}
	if defaults, ok := llmProviderDefaults[p.LLMProvider]; ok {
		if p.LLMBaseURL == "" {
			p.LLMBaseURL = defaults.BaseURL
		}
		if p.LLMModel == "" {
			p.LLMModel = defaults.Model
		}
	}

	p.DefaultPageSize = getEnvOrDefaultInt("FEEDLENS_DEFAULT_PAGE_SIZE", DefaultPageSize)
	p.MaxPageSize = getEnvOrDefaultInt("FEEDLENS_MAX_PAGE_SIZE", MaxPageSize)
	p.MaxSummaryItems = getEnvOrDefaultInt("FEEDLENS_MAX_SUMMARY_ITEMS", MaxSummaryItems)

	p.ValidSources = parseList(os.Getenv("FEEDLENS_VALID_SOURCES"))
	if len(p.ValidSources) == 0 {
		p.ValidSources = append([]string(nil), DefaultValidSources...)
	}
	p.CORSOrigins = parseList(getEnvOrDefault("FEEDLENS_CORS_ORIGINS", "http://localhost:5173,http://localhost:3000"))
	p.LogLevel = getEnvOrDefault("FEEDLENS_LOG_LEVEL", "info")
}

func checkDataDir(dataDir string) (string, error) {
	// Convert to absolute path if relative path is supplied.
	if !filepath.IsAbs(dataDir) {
		relativeDir := filepath.Join(filepath.Dir(os.Args[0]), dataDir)
		absDir, err := filepath.Abs(relativeDir)
		if err != nil {
			return "", err
		}
		dataDir = absDir
	}

	// Trim trailing \ or / in case user supplies
	dataDir = strings.TrimRight(dataDir, "\\/")
	if _, err := os.Stat(dataDir); err != nil {
		return "", errors.Wrapf(err, "unable to access data folder %s", dataDir)
	}
	return dataDir, nil
}

func (p *Profile) Validate() error {
	if p.Mode != "demo" && p.Mode != "dev" && p.Mode != "prod" {
		p.Mode = "demo"
	}

	if p.DefaultPageSize <= 0 || p.MaxPageSize <= 0 || p.MaxSummaryItems <= 0 {
		return errors.Errorf("page sizes must be positive (default=%d, max=%d, summary=%d)",
			p.DefaultPageSize, p.MaxPageSize, p.MaxSummaryItems)
	}
	if p.DefaultPageSize > p.MaxPageSize {
		p.DefaultPageSize = p.MaxPageSize
	}
	if len(p.ValidSources) == 0 {
		return errors.New("at least one valid feedback source is required")
	}

	switch p.Driver {
	case "postgres":
		if p.DSN != "" && !strings.HasPrefix(p.DSN, "postgres://") && !strings.HasPrefix(p.DSN, "postgresql://") {
			return errors.Errorf("postgres dsn must start with postgres:// or postgresql://")
		}
		return nil
	case "sqlite":
	default:
		return errors.Errorf("unsupported driver %q", p.Driver)
	}

	if p.Mode == "prod" && p.Data == "" {
		if runtime.GOOS == "windows" {
			p.Data = filepath.Join(os.Getenv("ProgramData"), "feedlens")
		} else {
			p.Data = "/var/opt/feedlens"
		}
		if _, err := os.Stat(p.Data); os.IsNotExist(err) {
			if err := os.MkdirAll(p.Data, 0770); err != nil {
				slog.Error("failed to create data directory", slog.String("data", p.Data), slog.String("error", err.Error()))
				return err
			}
		}
	}
	if p.Data == "" {
		p.Data = "."
	}

	dataDir, err := checkDataDir(p.Data)
	if err != nil {
		slog.Error("failed to check data dir", slog.String("data", p.Data), slog.String("error", err.Error()))
		return err
	}
	p.Data = dataDir

	if p.DSN == "" {
		p.DSN = filepath.Join(dataDir, fmt.Sprintf("feedlens_%s.db", p.Mode))
	}
	return nil
}
