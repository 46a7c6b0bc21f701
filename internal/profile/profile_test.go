package profile

import (
	"os"
	"testing"
)

var envKeys = []string{
	"FEEDLENS_AI_LLM_PROVIDER",
	"FEEDLENS_AI_LLM_API_KEY",
	"FEEDLENS_AI_LLM_BASE_URL",
	"FEEDLENS_AI_LLM_MODEL",
	"FEEDLENS_AI_LLM_TIMEOUT_SECONDS",
	"FEEDLENS_DEFAULT_PAGE_SIZE",
	"FEEDLENS_MAX_PAGE_SIZE",
	"FEEDLENS_MAX_SUMMARY_ITEMS",
	"FEEDLENS_VALID_SOURCES",
	"FEEDLENS_CORS_ORIGINS",
	"FEEDLENS_LOG_LEVEL",
}

// clearEnvVars resets every FEEDLENS_* variable for the duration of the test.
func clearEnvVars(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func TestProfileDefaults(t *testing.T) {
	clearEnvVars(t)

	profile := &Profile{}
	profile.FromEnv()

	tests := []struct {
		name     string
		expected string
		actual   string
	}{
		{"LLMProvider default", "gemini", profile.LLMProvider},
		{"LLMBaseURL default", "https://generativelanguage.googleapis.com/v1beta/openai/", profile.LLMBaseURL},
		{"LLMModel default", "gemini-2.5-flash", profile.LLMModel},
		{"LLMAPIKey default", "", profile.LLMAPIKey},
		{"LogLevel default", "info", profile.LogLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, tt.actual)
			}
		})
	}

	if profile.LLMTimeout != 30 {
		t.Errorf("LLMTimeout: expected 30, got %d", profile.LLMTimeout)
	}
	if profile.DefaultPageSize != 20 || profile.MaxPageSize != 100 || profile.MaxSummaryItems != 50 {
		t.Errorf("unexpected size defaults: %d/%d/%d", profile.DefaultPageSize, profile.MaxPageSize, profile.MaxSummaryItems)
	}
	if len(profile.ValidSources) != 3 || profile.ValidSources[0] != "support_ticket" {
		t.Errorf("unexpected valid sources: %v", profile.ValidSources)
	}
	if profile.IsAIEnabled() {
		t.Errorf("AI should be disabled without an API key")
	}
}

func TestProfileFromEnv(t *testing.T) {
	tests := []struct {
		name     string
		envVar   string
		envValue string
		field    func(*Profile) string
		expected string
	}{
		{
			name:     "API key",
			envVar:   "FEEDLENS_AI_LLM_API_KEY",
			envValue: "test-key",
			field:    func(p *Profile) string { return p.LLMAPIKey },
			expected: "test-key",
		},
		{
			name:     "provider switch picks provider base URL",
			envVar:   "FEEDLENS_AI_LLM_PROVIDER",
			envValue: "deepseek",
			field:    func(p *Profile) string { return p.LLMBaseURL },
			expected: "https://api.deepseek.com",
		},
		{
			name:     "explicit model wins over provider default",
			envVar:   "FEEDLENS_AI_LLM_MODEL",
			envValue: "gemini-2.0-flash",
			field:    func(p *Profile) string { return p.LLMModel },
			expected: "gemini-2.0-flash",
		},
		{
			name:     "log level",
			envVar:   "FEEDLENS_LOG_LEVEL",
			envValue: "debug",
			field:    func(p *Profile) string { return p.LogLevel },
			expected: "debug",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnvVars(t)
			t.Setenv(tt.envVar, tt.envValue)

			profile := &Profile{}
			profile.FromEnv()

			if actual := tt.field(profile); actual != tt.expected {
				t.Errorf("%s: expected %q, got %q", tt.name, tt.expected, actual)
			}
		})
	}
}

func TestProfileListParsing(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected []string
	}{
		{"comma list", "a, b ,c", []string{"a", "b", "c"}},
		{"json array", `["http://x","http://y"]`, []string{"http://x", "http://y"}},
		{"empty", "  ", nil},
		{"skips blanks", "a,,b,", []string{"a", "b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseList(tt.raw)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("index %d: expected %q, got %q", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestProfileInvalidIntegerFallsBack(t *testing.T) {
	clearEnvVars(t)
	t.Setenv("FEEDLENS_MAX_PAGE_SIZE", "lots")

	profile := &Profile{}
	profile.FromEnv()

	if profile.MaxPageSize != MaxPageSize {
		t.Errorf("expected %d, got %d", MaxPageSize, profile.MaxPageSize)
	}
}

func TestProfileValidate(t *testing.T) {
	t.Run("sqlite defaults dsn into data dir", func(t *testing.T) {
		dir := t.TempDir()
		p := &Profile{Mode: "weird", Driver: "sqlite", Data: dir, DefaultPageSize: 20, MaxPageSize: 100, MaxSummaryItems: 50, ValidSources: DefaultValidSources}
		if err := p.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.Mode != "demo" {
			t.Errorf("expected mode demo, got %q", p.Mode)
		}
		if p.DSN == "" {
			t.Errorf("expected dsn to be set")
		}
	})

	t.Run("postgres rejects foreign dsn", func(t *testing.T) {
		p := &Profile{Mode: "prod", Driver: "postgres", DSN: "mysql://x", DefaultPageSize: 20, MaxPageSize: 100, MaxSummaryItems: 50, ValidSources: DefaultValidSources}
		if err := p.Validate(); err == nil {
			t.Errorf("expected error for non-postgres dsn")
		}
	})

	t.Run("non-positive sizes rejected", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: t.TempDir(), DefaultPageSize: 0, MaxPageSize: 100, MaxSummaryItems: 50, ValidSources: DefaultValidSources}
		if err := p.Validate(); err == nil {
			t.Errorf("expected error for zero page size")
		}
	})

	t.Run("default page size clamped to max", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "sqlite", Data: t.TempDir(), DefaultPageSize: 500, MaxPageSize: 100, MaxSummaryItems: 50, ValidSources: DefaultValidSources}
		if err := p.Validate(); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.DefaultPageSize != 100 {
			t.Errorf("expected 100, got %d", p.DefaultPageSize)
		}
	})

	t.Run("unknown driver", func(t *testing.T) {
		p := &Profile{Mode: "dev", Driver: "mysql", DefaultPageSize: 20, MaxPageSize: 100, MaxSummaryItems: 50, ValidSources: DefaultValidSources}
		if err := p.Validate(); err == nil {
			t.Errorf("expected error for unsupported driver")
		}
	})
}
