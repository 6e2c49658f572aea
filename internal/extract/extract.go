// Package extract implements the Response Extraction pipeline: ANSI/noise
// preprocessing, an optional LLM-assisted pass, and a regex fallback. Relay
// gating against an agent's last extracted response is done by the caller
// (status.Monitor), not here.
package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/agentforge/agentforge/internal/termtext"
)

const preprocessedTailChars = 10000

var extraSpinnerGlyphs = []string{"✢", "✳", "✶", "✽", "⏺"}

// Config controls the optional LLM-assisted extraction path.
type Config struct {
	Enabled        bool
	APIKey         string
	Endpoint       string // chat-completions endpoint; defaults to OpenAI's
	Model          string
	MaxTokens      int
	TimeoutSeconds float64
}

const systemPrompt = "You are extracting the final textual message an AI coding " +
	"assistant produced in a terminal session. Return only that message — no " +
	"tool calls, no file contents, no terminal UI chrome. If there is no final " +
	"textual message, return an empty string."

// Extractor runs the two-path extraction pipeline.
type Extractor struct {
	cfg    Config
	client *http.Client
}

// New builds an Extractor from Config.
func New(cfg Config) *Extractor {
	if cfg.Endpoint == "" {
		cfg.Endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 800
	}
	if cfg.TimeoutSeconds <= 0 {
		cfg.TimeoutSeconds = 15
	}
	return &Extractor{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutSeconds * float64(time.Second))},
	}
}

// Preprocess strips ANSI, drops noise lines (including extractor-specific
// spinner/dot glyphs beyond the activity filter's set), and keeps the last
// ~10000 chars of what remains.
func Preprocess(raw string) string {
	clean := termtext.StripANSI(raw)
	lines := termtext.FilterNoise(clean)
	filtered := make([]string, 0, len(lines))
	for _, l := range lines {
		if containsAny(l, extraSpinnerGlyphs) && strings.TrimSpace(stripGlyphs(l, extraSpinnerGlyphs)) == "" {
			continue
		}
		filtered = append(filtered, l)
	}
	joined := strings.Join(filtered, "\n")
	return termtext.Tail(joined, preprocessedTailChars)
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func stripGlyphs(s string, glyphs []string) string {
	for _, g := range glyphs {
		s = strings.ReplaceAll(s, g, "")
	}
	return s
}

// Extract runs the preprocessed tail through the LLM path (if enabled and
// keyed) falling back to regex on any error, timeout, or when disabled.
func (e *Extractor) Extract(ctx context.Context, rawTail string) string {
	pre := Preprocess(rawTail)

	if e.cfg.Enabled && e.cfg.APIKey != "" {
		if text, err := e.extractLLM(ctx, pre); err == nil {
			return text
		}
	}
	return RegexFallback(pre)
}

// RegexFallback returns the last 50 meaningful lines, each truncated to 200
// chars.
func RegexFallback(pre string) string {
	lines := strings.Split(pre, "\n")
	var meaningful []string
	for _, l := range lines {
		if strings.TrimSpace(l) != "" {
			meaningful = append(meaningful, termtext.Truncate(l, 200))
		}
	}
	if len(meaningful) > 50 {
		meaningful = meaningful[len(meaningful)-50:]
	}
	return strings.Join(meaningful, "\n")
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model     string        `json:"model"`
	Messages  []chatMessage `json:"messages"`
	MaxTokens int           `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

func (e *Extractor) extractLLM(ctx context.Context, pre string) (string, error) {
	reqBody := chatRequest{
		Model: e.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("```terminal\n%s\n```", pre)},
		},
		MaxTokens: e.cfg.MaxTokens,
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+e.cfg.APIKey)

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("extract: llm endpoint returned %d", resp.StatusCode)
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("extract: empty llm response")
	}
	return strings.TrimSpace(parsed.Choices[0].Message.Content), nil
}
