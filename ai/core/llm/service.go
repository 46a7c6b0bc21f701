package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/hrygo/feedlens/internal/logging"
)

// Message represents a chat message.
type Message struct {
	Role    string // system, user, assistant
	Content string
}

// LLMCallStats represents statistics for a single LLM call.
type LLMCallStats struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`

	// TotalDurationMs is the total wall-clock time for the request.
	TotalDurationMs int64 `json:"total_duration_ms"`
}

// Service is the LLM service interface.
type Service interface {
	// Chat performs synchronous chat. Returns content, statistics, and error.
	Chat(ctx context.Context, messages []Message) (string, *LLMCallStats, error)

	// Warmup sends a lightweight ping request to establish and warm up the LLM connection.
	Warmup(ctx context.Context)
}

// CallRecorder receives one observation per completed LLM request.
type CallRecorder interface {
	RecordLLMCall(provider, model string, latency time.Duration, promptTokens, completionTokens int, err error)
}

// ErrEmptyResponse is returned when the provider answers without any choice.
var ErrEmptyResponse = errors.New("empty response from LLM")

// Config represents LLM service configuration.
type Config struct {
	Provider    string // gemini, openai, deepseek, siliconflow, openrouter, ollama
	Model       string // gemini-2.5-flash, gpt-4o-mini, deepseek-chat
	APIKey      string
	BaseURL     string
	MaxTokens   int     // 0 leaves the provider default
	Temperature float32 // default: 0
	Timeout     int     // Request timeout in seconds (default: 30)

	Recorder CallRecorder
}

type service struct {
	client      *openai.Client
	model       string
	provider    string
	maxTokens   int
	temperature float32
	timeout     int // Request timeout in seconds
	recorder    CallRecorder
}

// NewService creates a new LLM Service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil || cfg.Provider == "" {
		return nil, errors.New("llm provider is required")
	}
	if cfg.Model == "" {
		return nil, fmt.Errorf("llm model is required for provider %q", cfg.Provider)
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	clientConfig.HTTPClient = newHTTPClient()

	switch cfg.Provider {
	case "gemini":
		// Google's OpenAI-compatible endpoint.
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "https://generativelanguage.googleapis.com/v1beta/openai/")
	case "openai":
		if cfg.BaseURL != "" {
			clientConfig.BaseURL = cfg.BaseURL
		}
	case "deepseek":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "https://api.deepseek.com")
	case "siliconflow":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "https://api.siliconflow.cn/v1")
	case "openrouter":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "https://openrouter.ai/api/v1")
	case "ollama":
		clientConfig.BaseURL = defaultBaseURL(cfg.BaseURL, "http://localhost:11434/v1")
	default:
		// Generic fallback for any other OpenAI-compatible provider
		slog.Info("Using generic OpenAI-compatible provider", "provider", cfg.Provider)
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("base URL is required for provider %q", cfg.Provider)
		}
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30
	}

	return &service{
		client:      openai.NewClientWithConfig(clientConfig),
		model:       cfg.Model,
		provider:    cfg.Provider,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		timeout:     timeout,
		recorder:    cfg.Recorder,
	}, nil
}

func defaultBaseURL(configured, fallback string) string {
	if configured != "" {
		return configured
	}
	return fallback
}

func (s *service) Chat(ctx context.Context, messages []Message) (string, *LLMCallStats, error) {
	// Add timeout protection using configured timeout
	ctx, cancel := context.WithTimeout(ctx, time.Duration(s.timeout)*time.Second)
	defer cancel()

	slog.Debug("LLM: Chat request",
		"model", s.model,
		"messages_count", len(messages),
	)

	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
		Messages:    convertMessages(messages),
	}

	resp, err := s.client.CreateChatCompletion(ctx, req)
	totalDuration := time.Since(startTime)
	if err == nil && len(resp.Choices) == 0 {
		err = ErrEmptyResponse
	}
	if s.recorder != nil {
		s.recorder.RecordLLMCall(s.provider, s.model, totalDuration, resp.Usage.PromptTokens, resp.Usage.CompletionTokens, err)
	}
	if err != nil {
		logging.FromContext(ctx).Warn("LLM: Chat request failed", "provider", s.provider, "error", err, "duration_ms", totalDuration.Milliseconds())
		return "", nil, fmt.Errorf("LLM chat failed: %w", err)
	}

	stats := &LLMCallStats{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
		TotalDurationMs:  totalDuration.Milliseconds(),
	}

	slog.Debug("LLM: Chat response received",
		"content_length", len(resp.Choices[0].Message.Content),
		"total_tokens", stats.TotalTokens,
		"duration_ms", stats.TotalDurationMs,
	)

	return resp.Choices[0].Message.Content, stats, nil
}

func (s *service) Warmup(ctx context.Context) {
	warmupCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	slog.Info("LLM: starting connection warmup",
		"provider", s.provider,
		"model", s.model,
	)

	startTime := time.Now()

	req := openai.ChatCompletionRequest{
		Model:       s.model,
		MaxTokens:   1,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: "Hi"},
		},
	}

	_, err := s.client.CreateChatCompletion(warmupCtx, req)

	duration := time.Since(startTime)

	if err != nil {
		slog.Warn("LLM: warmup ping failed (service will still work, first request may be slower)",
			"provider", s.provider,
			"model", s.model,
			"error", err,
			"duration_ms", duration.Milliseconds(),
		)
		return
	}

	slog.Info("LLM: connection warmed up successfully",
		"provider", s.provider,
		"model", s.model,
		"duration_ms", duration.Milliseconds(),
	)
}

func convertMessages(messages []Message) []openai.ChatCompletionMessage {
	llmMessages := make([]openai.ChatCompletionMessage, len(messages))
	for i, m := range messages {
		role := openai.ChatMessageRoleUser
		switch m.Role {
		case "system":
			role = openai.ChatMessageRoleSystem
		case "assistant":
			role = openai.ChatMessageRoleAssistant
		}
		llmMessages[i] = openai.ChatCompletionMessage{
			Role:    role,
			Content: m.Content,
		}
	}
	return llmMessages
}

// newHTTPClient sets no overall Timeout; Chat bounds each call with the configured deadline.
func newHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			DialContext: (&net.Dialer{
				Timeout:   30 * time.Second,
				KeepAlive: 30 * time.Second,
			}).DialContext,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}
}

// Helper for creating system prompts.
func SystemPrompt(content string) Message {
	return Message{Role: "system", Content: content}
}

// Helper for creating user messages.
func UserMessage(content string) Message {
	return Message{Role: "user", Content: content}
}
