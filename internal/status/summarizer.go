package status

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// SummaryConfig controls the optional LLM-assisted activity summarizer.
type SummaryConfig struct {
	Enabled        bool
	APIKey         string
	Endpoint       string
	Model          string
	MaxTokens      int
	TimeoutSeconds float64
}

const summarySystemPrompt = "Summarize the current activity of an AI coding " +
	"assistant from its terminal output tail, in one short sentence."

// Summarizer produces a short activity summary, preferring an LLM call
// when configured and falling back to the pure-regex tail summary on any
// failure.
type Summarizer struct {
	cfg    SummaryConfig
	client *http.Client
}

// NewSummarizer builds a Summarizer from SummaryConfig.
func NewSummarizer(cfg SummaryConfig) *Summarizer {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 200
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 10
	}
	return &Summarizer{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds * float64(time.Second))},
	}
}

// Summarize returns a short activity summary for tail.
func (s *Summarizer) Summarize(ctx context.Context, tail string) string {
	if s.cfg.Enabled && s.cfg.APIKey != "" {
		if text, err := s.summarizeLLM(ctx, tail); err == nil && text != "" {
			return text
		}
	}
	return RegexActivitySummary(tail)
}

func (s *Summarizer) summarizeLLM(ctx context.Context, tail string) (string, error) {
	type message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	reqBody := struct {
		Model     string    `json:"model"`
		Messages  []message `json:"messages"`
		MaxTokens int       `json:"max_tokens"`
	}{
		Model: s.cfg.Model,
		Messages: []message{
			{Role: "system", Content: summarySystemPrompt},
			{Role: "user", Content: tail},
		},
		MaxTokens: s.cfg.MaxTokens,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarize: llm endpoint returned %d", resp.StatusCode)
	}

	var parsed struct {
		Choices []struct {
			Message message `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("summarize: empty llm response")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
