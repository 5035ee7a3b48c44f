package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/discoursa/debate-engine/internal/stance"
)

// GeminiClient generates debate turns via the Google Gemini API
type GeminiClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
}

// Config holds model provider configuration. Passed explicitly per engine,
// never read from process-wide state.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		BaseURL: "https://generativelanguage.googleapis.com/v1beta",
		Model:   "gemini-2.0-flash-exp",
		Timeout: 30 * time.Second,
	}
}

// NewGeminiClient creates a new Gemini client
func NewGeminiClient(config Config) *GeminiClient {
	if config.BaseURL == "" {
		config.BaseURL = DefaultConfig().BaseURL
	}
	if config.Model == "" {
		config.Model = DefaultConfig().Model
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultConfig().Timeout
	}

	return &GeminiClient{
		apiKey:  config.APIKey,
		baseURL: config.BaseURL,
		model:   config.Model,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
}

type geminiResponse struct {
	Candidates []struct {
		Content geminiContent `json:"content"`
	} `json:"candidates"`
}

// Complete generates the next assistant turn from the prompt context
func (c *GeminiClient) Complete(ctx context.Context, pc *stance.PromptContext) (string, error) {
	req := geminiRequest{
		SystemInstruction: &geminiContent{
			Parts: []geminiPart{{Text: pc.Render()}},
		},
	}

	for _, msg := range pc.History {
		role := "user"
		if msg.Role == "assistant" {
			role = "model"
		}
		req.Contents = append(req.Contents, geminiContent{
			Role:  role,
			Parts: []geminiPart{{Text: msg.Content}},
		})
	}
	req.Contents = append(req.Contents, geminiContent{
		Role:  "user",
		Parts: []geminiPart{{Text: pc.UserMessage}},
	})

	return c.generate(ctx, req)
}

// DeriveStance produces the fixed opposing position for a topic
func (c *GeminiClient) DeriveStance(ctx context.Context, topic string) (string, error) {
	prompt := fmt.Sprintf(
		"A user wants to debate the topic '%s'. State, in one or two sentences, "+
			"the position that opposes the user's apparent stance on this topic. "+
			"Phrase it as a directive for a debater, e.g. 'Argue that ...'. "+
			"Return only the directive.", topic)

	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// GenerateSubtopics produces up to five subtopics for a debate topic
func (c *GeminiClient) GenerateSubtopics(ctx context.Context, topic string) ([]string, error) {
	prompt := fmt.Sprintf(
		"List 5 relevant subtopics for a debate on '%s'. "+
			"Return only the subtopics as a numbered list.", topic)

	req := geminiRequest{
		Contents: []geminiContent{{Role: "user", Parts: []geminiPart{{Text: prompt}}}},
	}

	text, err := c.generate(ctx, req)
	if err != nil {
		return nil, err
	}

	return ParseNumberedList(text, 5), nil
}

func (c *GeminiClient) generate(ctx context.Context, reqBody geminiRequest) (string, error) {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", ErrTimeout
		}
		return "", fmt.Errorf("%w: %v", ErrTimeout, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return "", fmt.Errorf("%w: status %d", ErrInvalidRequest, resp.StatusCode)
	default:
		return "", fmt.Errorf("%w: status %d", ErrTimeout, resp.StatusCode)
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if len(gr.Candidates) == 0 || len(gr.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrInvalidRequest)
	}

	return strings.TrimSpace(gr.Candidates[0].Content.Parts[0].Text), nil
}

// ParseNumberedList extracts items from a numbered-list response, keeping at
// most limit items.
func ParseNumberedList(content string, limit int) []string {
	var items []string
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if idx := strings.Index(line, "."); idx > 0 && idx <= 3 {
			if item := strings.TrimSpace(line[idx+1:]); item != "" {
				items = append(items, item)
				continue
			}
		}
		items = append(items, line)
	}

	if len(items) > limit {
		items = items[:limit]
	}
	return items
}
