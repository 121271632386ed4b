// Package explain asks a generative-language API for plain-language
// explanations of analysis results. Every caller goes through Fallback, which
// substitutes templated text when the API is slow, failing or absent.
package explain

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/terminal-bench/civicsim/internal/config"
)

// maxPromptText bounds how much document text is sent upstream.
const maxPromptText = 2000

// ErrUnavailable is returned when no explanation service is configured.
var ErrUnavailable = errors.New("explanation service not configured")

// Explainer produces explanations for analysis results.
type Explainer interface {
	ExplainAuthenticity(ctx context.Context, text, documentType string) (string, error)
	ExplainSimulation(ctx context.Context, scenario string, params, outcome any) (string, error)
}

// Client calls a Gemini-style generateContent endpoint.
type Client struct {
	http       *http.Client
	endpoint   string
	apiKey     string
	model      string
	timeout    time.Duration
	maxRetries uint64
	backoff    time.Duration
	breaker    *Breaker
	logger     *slog.Logger
}

// NewClient returns a client for cfg, or nil when no endpoint is configured.
func NewClient(cfg config.AIConfig, logger *slog.Logger) *Client {
	if cfg.Endpoint == "" {
		return nil
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		http:       &http.Client{Transport: otelhttp.NewTransport(http.DefaultTransport)},
		endpoint:   strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		timeout:    timeout,
		maxRetries: 2,
		backoff:    200 * time.Millisecond,
		breaker:    NewBreaker(DefaultBreakerConfig),
		logger:     logger,
	}
}

// ExplainAuthenticity asks for a short authenticity assessment of text.
func (c *Client) ExplainAuthenticity(ctx context.Context, text, documentType string) (string, error) {
	text = truncateRunes(text, maxPromptText)
	prompt := fmt.Sprintf(`Analyze this %s document for authenticity indicators.
Your analysis is probabilistic, for educational purposes, and must not be presented as definitive proof.

Document text (first %d characters):
%s

In under 200 words, comment on language patterns, formatting and structure, typical characteristics of
official documents, and any inconsistencies or red flags. End by encouraging human verification.`,
		documentType, maxPromptText, text)
	return c.generate(ctx, prompt)
}

// truncateRunes keeps at most n characters of s, cutting on a rune boundary.
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// ExplainSimulation asks for a citizen-friendly explanation of a simulation.
func (c *Client) ExplainSimulation(ctx context.Context, scenario string, params, outcome any) (string, error) {
	p, err := json.MarshalIndent(params, "", "  ")
	if err != nil {
		return "", err
	}
	o, err := json.MarshalIndent(outcome, "", "  ")
	if err != nil {
		return "", err
	}
	prompt := fmt.Sprintf(`You are a policy analysis assistant helping citizens understand potential policy impacts.
These are simplified projections from mathematical models; real outcomes may differ.

Policy scenario: %s
Input parameters: %s
Predicted outcomes: %s

In 200-300 words, summarise the key impacts, explain the reasoning behind the projections, note likely
benefits and risks, and stress the uncertainty and the need for expert consultation. Use plain language.`,
		scenario, p, o)
	return c.generate(ctx, prompt)
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// generate sends prompt with retries, bounded by the client timeout and
// guarded by the circuit breaker.
func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	if err := c.breaker.Allow(); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	b := &backoff.ExponentialBackOff{
		InitialInterval:     c.backoff,
		RandomizationFactor: 1,
		Multiplier:          2,
		MaxInterval:         2 * time.Second,
		Stop:                backoff.Stop,
		Clock:               backoff.SystemClock,
	}
	b.Reset()

	attempt := 0
	text, err := backoff.RetryWithData(func() (string, error) {
		attempt++
		return c.call(ctx, prompt)
	}, backoff.WithContext(backoff.WithMaxRetries(b, c.maxRetries), ctx))

	c.breaker.Record(err == nil)
	if err != nil {
		c.logger.Warn("explanation request failed", "attempts", attempt, "error", err)
		return "", err
	}
	return text, nil
}

func (c *Client) call(ctx context.Context, prompt string) (string, error) {
	body, err := json.Marshal(generateRequest{Contents: []content{{Parts: []part{{Text: prompt}}}}})
	if err != nil {
		return "", backoff.Permanent(err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", c.endpoint, c.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", err
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
		return "", fmt.Errorf("upstream status %d", resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", backoff.Permanent(fmt.Errorf("upstream status %d", resp.StatusCode))
	}

	var out generateResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode response: %w", err))
	}
	if len(out.Candidates) == 0 {
		return "", backoff.Permanent(errors.New("no candidates in response"))
	}
	var sb strings.Builder
	for _, p := range out.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", backoff.Permanent(errors.New("empty response"))
	}
	return text, nil
}
