package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/feedlens/ai/core/llm"
	"github.com/hrygo/feedlens/internal/logging"
)

// llmSummarizer uses the LLM to summarize feedback.
type llmSummarizer struct {
	llm      llm.Service
	maxItems int
	recorder Recorder
}

// NewSummarizer creates a summarizer. A nil llmSvc always reports ErrUnavailable.
func NewSummarizer(llmSvc llm.Service, maxItems int, recorder Recorder) Summarizer {
	if maxItems <= 0 {
		maxItems = DefaultMaxItems
	}
	return &llmSummarizer{
		llm:      llmSvc,
		maxItems: maxItems,
		recorder: recorder,
	}
}

func (s *llmSummarizer) Summarize(ctx context.Context, texts []string, hints *Hints) (string, error) {
	if len(texts) == 0 {
		s.record("empty")
		return EmptySummary, nil
	}

	if s.llm == nil {
		s.record("error")
		return "", errors.Wrap(ErrUnavailable, "no language model configured")
	}

	if len(texts) > s.maxItems {
		logging.FromContext(ctx).Warn("summary: truncating feedback batch", "used", s.maxItems, "total", len(texts))
		texts = texts[:s.maxItems]
	}

	messages := []llm.Message{
		llm.UserMessage(buildPrompt(texts, hints)),
	}

	content, _, err := s.llm.Chat(ctx, messages)
	if err != nil {
		s.record("error")
		return "", fmt.Errorf("failed to generate summary: %w: %w", ErrUnavailable, err)
	}

	logging.FromContext(ctx).Info("summary: generated", "items", len(texts))
	s.record("success")
	return strings.TrimSpace(content), nil
}

func (s *llmSummarizer) record(status string) {
	if s.recorder != nil {
		s.recorder.RecordSummary(status)
	}
}

// buildPrompt assembles the instruction, optional hints and the numbered feedback block.
func buildPrompt(texts []string, hints *Hints) string {
	blocks := make([]string, len(texts))
	for i, text := range texts {
		blocks[i] = fmt.Sprintf("Feedback %d:\n%s", i+1, text)
	}

	var hintLines strings.Builder
	if hints != nil {
		if hints.DateRange != "" {
			fmt.Fprintf(&hintLines, "Date range: %s\n", hints.DateRange)
		}
		if hints.Source != "" {
			fmt.Fprintf(&hintLines, "Source filter: %s\n", hints.Source)
		}
	}

	return summaryInstruction + "\n" + hintLines.String() +
		"\nFeedback entries:\n" + strings.Join(blocks, "\n\n---\n\n") +
		"\n\nSummary:"
}

const summaryInstruction = `You are analyzing customer feedback for a product team.
Summarize the key themes, complaints, and positive feedback from the following customer feedback entries.
Be concise but comprehensive. Focus on actionable insights.`
