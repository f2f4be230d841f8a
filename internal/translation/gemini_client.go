package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
)

const geminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/models"

// Completer sends one prompt to a model and returns its reply.
type Completer interface {
	Translate(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ErrUnavailable wraps failures to reach the model at all.
var ErrUnavailable = errors.New("model unavailable")

// APIError is a request the Gemini API answered with an error.
type APIError struct {
	StatusCode int
	// Status is the API's error status, e.g. RESOURCE_EXHAUSTED.
	Status  string
	Message string
	// RetryAfter is the server's requested delay, if it sent one.
	RetryAfter time.Duration
}

func (e *APIError) Error() string {
	if e.Status != "" {
		return fmt.Sprintf("gemini: status %d %s: %s", e.StatusCode, e.Status, e.Message)
	}
	return fmt.Sprintf("gemini: status %d: %s", e.StatusCode, e.Message)
}

// Temporary reports whether the same request may succeed later.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Usage is the token count of every successful request of a client.
type Usage struct {
	Requests     int64
	PromptTokens int64
	OutputTokens int64
}

// GeminiClient drafts translations through the Gemini generateContent API.
type GeminiClient struct {
	apiKey      string
	model       string
	baseURL     string
	maxAttempts int
	backoff     time.Duration
	maxTokens   int
	temperature float64
	httpClient  *http.Client

	requests     atomic.Int64
	promptTokens atomic.Int64
	outputTokens atomic.Int64
}

// NewGeminiClient creates a client for model.
func NewGeminiClient(apiKey, model string) *GeminiClient {
	return &GeminiClient{
		apiKey:      apiKey,
		model:       model,
		baseURL:     geminiBaseURL,
		maxAttempts: 3,
		backoff:     2 * time.Second,
		maxTokens:   8192,
		temperature: 0.3,
		httpClient:  &http.Client{Timeout: 120 * time.Second},
	}
}

// Model returns the model name.
func (c *GeminiClient) Model() string {
	return c.model
}

// Usage returns the tokens spent so far.
func (c *GeminiClient) Usage() Usage {
	return Usage{
		Requests:     c.requests.Load(),
		PromptTokens: c.promptTokens.Load(),
		OutputTokens: c.outputTokens.Load(),
	}
}

type generateRequest struct {
	SystemInstruction *turn             `json:"systemInstruction,omitempty"`
	Contents          []turn            `json:"contents"`
	GenerationConfig  *generationConfig `json:"generationConfig,omitempty"`
}

type turn struct {
	Role  string     `json:"role,omitempty"`
	Parts []textPart `json:"parts"`
}

type textPart struct {
	Text string `json:"text"`
}

type generationConfig struct {
	MaxOutputTokens int     `json:"maxOutputTokens,omitempty"`
	Temperature     float64 `json:"temperature,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      turn   `json:"content"`
		FinishReason string `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback,omitempty"`
	UsageMetadata *struct {
		PromptTokenCount     int64 `json:"promptTokenCount"`
		CandidatesTokenCount int64 `json:"candidatesTokenCount"`
	} `json:"usageMetadata,omitempty"`
}

type errorResponse struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Translate returns the model's reply to one prompt. Unreachable models and
// temporary API errors are retried with a growing delay, or the delay the
// server asks for.
func (c *GeminiClient) Translate(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("GEMINI_API_KEY is not set")
	}

	body, err := json.Marshal(generateRequest{
		SystemInstruction: &turn{Parts: []textPart{{Text: systemPrompt}}},
		Contents:          []turn{{Role: "user", Parts: []textPart{{Text: userPrompt}}}},
		GenerationConfig:  &generationConfig{MaxOutputTokens: c.maxTokens, Temperature: c.temperature},
	})
	if err != nil {
		return "", fmt.Errorf("encode generate request: %w", err)
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		reply, err := c.generate(ctx, body)
		if err == nil {
			return reply, nil
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		lastErr = err

		delay, retry := c.retryDelay(err, attempt)
		if !retry || attempt == c.maxAttempts {
			break
		}
		log.Warn().Err(err).Int("attempt", attempt).Dur("delay", delay).Msg("Retrying model request")
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}
	return "", fmt.Errorf("generate with %s: %w", c.model, lastErr)
}

// retryDelay decides whether a failed attempt is worth repeating, and when.
func (c *GeminiClient) retryDelay(err error, attempt int) (time.Duration, bool) {
	var apiErr *APIError
	switch {
	case errors.As(err, &apiErr):
		if !apiErr.Temporary() {
			return 0, false
		}
		if apiErr.RetryAfter > 0 {
			return apiErr.RetryAfter, true
		}
	case !errors.Is(err, ErrUnavailable):
		return 0, false
	}
	return time.Duration(attempt) * c.backoff, true
}

func (c *GeminiClient) generate(ctx context.Context, body []byte) (string, error) {
	url := fmt.Sprintf("%s/%s:generateContent", c.baseURL, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %w", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", newAPIError(resp, data)
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.UsageMetadata != nil {
		c.promptTokens.Add(out.UsageMetadata.PromptTokenCount)
		c.outputTokens.Add(out.UsageMetadata.CandidatesTokenCount)
	}
	c.requests.Add(1)

	if out.PromptFeedback != nil && out.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("prompt blocked: %s", out.PromptFeedback.BlockReason)
	}
	if len(out.Candidates) == 0 {
		return "", errors.New("response has no candidates")
	}

	cand := out.Candidates[0]
	var sb strings.Builder
	for _, p := range cand.Content.Parts {
		sb.WriteString(p.Text)
	}
	reply := strings.TrimSpace(sb.String())

	switch cand.FinishReason {
	case "", "STOP":
	case "MAX_TOKENS":
		log.Warn().Str("model", c.model).Msg("Reply cut off at the output token limit")
	default:
		if reply == "" {
			return "", fmt.Errorf("no reply: finish reason %s", cand.FinishReason)
		}
	}
	return reply, nil
}

// newAPIError reads the error body Gemini sends, falling back to the raw text.
func newAPIError(resp *http.Response, body []byte) *APIError {
	e := &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	var parsed errorResponse
	if json.Unmarshal(body, &parsed) == nil && parsed.Error.Message != "" {
		e.Status = parsed.Error.Status
		e.Message = parsed.Error.Message
	}
	if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs > 0 {
		e.RetryAfter = time.Duration(secs) * time.Second
	}
	return e
}
