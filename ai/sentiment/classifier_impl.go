package sentiment

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/feedlens/ai/core/llm"
	"github.com/hrygo/feedlens/internal/logging"
	"github.com/hrygo/feedlens/store"
)

// llmClassifier asks the model for a label and falls back to keywords.
type llmClassifier struct {
	llm      llm.Service
	recorder Recorder
}

// NewClassifier creates a classifier. A nil llmSvc classifies by keywords only.
func NewClassifier(llmSvc llm.Service, recorder Recorder) Classifier {
	return &llmClassifier{
		llm:      llmSvc,
		recorder: recorder,
	}
}

func (c *llmClassifier) Classify(ctx context.Context, text string) store.Sentiment {
	if strings.TrimSpace(text) == "" {
		c.record(MethodSkipped)
		return store.SentimentNeutral
	}

	if c.llm == nil {
		c.record(MethodFallback)
		return Fallback(text)
	}

	messages := []llm.Message{
		llm.UserMessage(fmt.Sprintf(classifyPrompt, truncateRunes(text, MaxSnippetRunes))),
	}

	logger := logging.FromContext(ctx)
	content, _, err := c.llm.Chat(ctx, messages)
	if err != nil {
		logger.Warn("sentiment: model call failed, using keyword fallback", "error", err)
		c.record(MethodFallback)
		return Fallback(text)
	}

	label := parseLabel(content)
	if !label.IsValid() {
		logger.Warn("sentiment: invalid label from model, using keyword fallback", "label", string(label))
		c.record(MethodFallback)
		return Fallback(text)
	}

	logger.Debug("sentiment: model label", "label", string(label))
	c.record(MethodLLM)
	return label
}

func (c *llmClassifier) record(method string) {
	if c.recorder != nil {
		c.recorder.RecordClassification(method)
	}
}

// parseLabel takes the first whitespace-delimited token, lower-cased.
// Punctuation is kept, so "Positive." does not parse as a label.
func parseLabel(content string) store.Sentiment {
	fields := strings.Fields(strings.ToLower(content))
	if len(fields) == 0 {
		return ""
	}
	return store.Sentiment(fields[0])
}

// truncateRunes cuts s to at most maxLen runes.
func truncateRunes(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen])
}

const classifyPrompt = `Analyze the sentiment of the following customer feedback.
Respond with ONLY one word: 'positive', 'negative', or 'neutral'.

Feedback: %s

Sentiment:`
