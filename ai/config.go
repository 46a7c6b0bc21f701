// Package ai holds the configuration shared by the AI components.
package ai

import (
	"errors"

	"github.com/hrygo/feedlens/ai/core/llm"
	"github.com/hrygo/feedlens/internal/profile"
)

// Config represents AI configuration.
type Config struct {
	LLM     LLMConfig
	Enabled bool
}

// LLMConfig represents LLM configuration.
type LLMConfig struct {
	Provider    string // gemini, openai, deepseek, siliconflow, openrouter, ollama
	Model       string // gemini-2.5-flash, gpt-4o-mini, deepseek-chat
	APIKey      string
	BaseURL     string
	MaxTokens   int     // 0 leaves the provider default
	Temperature float32 // default: 0, labels must be stable
	Timeout     int     // seconds
}

// NewConfigFromProfile creates AI config from profile.
func NewConfigFromProfile(p *profile.Profile) *Config {
	cfg := &Config{
		Enabled: p.IsAIEnabled(),
	}
	if !cfg.Enabled {
		return cfg
	}

	cfg.LLM = LLMConfig{
		Provider: p.LLMProvider,
		Model:    p.LLMModel,
		APIKey:   p.LLMAPIKey,
		BaseURL:  p.LLMBaseURL,
		Timeout:  p.LLMTimeout,
	}
	return cfg
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.LLM.Provider == "" {
		return errors.New("LLM provider is required")
	}
	if c.LLM.Model == "" {
		return errors.New("LLM model is required")
	}
	if c.LLM.Provider != "ollama" && c.LLM.APIKey == "" {
		return errors.New("LLM API key is required")
	}
	return nil
}

// ServiceConfig converts c into an llm.Config reporting calls to recorder.
func (c *LLMConfig) ServiceConfig(recorder llm.CallRecorder) *llm.Config {
	return &llm.Config{
		Provider:    c.Provider,
		Model:       c.Model,
		APIKey:      c.APIKey,
		BaseURL:     c.BaseURL,
		MaxTokens:   c.MaxTokens,
		Temperature: c.Temperature,
		Timeout:     c.Timeout,
		Recorder:    recorder,
	}
}
