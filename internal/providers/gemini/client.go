package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"playground/internal/infra"
)

// ErrMissingAPIKey indicates that the client was configured without credentials.
var ErrMissingAPIKey = errors.New("gemini: api key is required")

const defaultModel = "gemini-2.0-flash-exp"

// Options controls how the Gemini client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	Model      string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client wraps the genai SDK for the two calls the playground makes: a text
// completion used by the prompt interpreter and an image description.
type Client struct {
	sdk    *genai.Client
	model  string
	logger *infra.Logger
}

// NewClient constructs the SDK client once; callers share it.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	apiKey := strings.TrimSpace(opts.APIKey)
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = defaultModel
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}

	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if base := strings.TrimSpace(opts.BaseURL); base != "" {
		cfg.HTTPOptions = genai.HTTPOptions{BaseURL: strings.TrimRight(base, "/") + "/"}
	}
	sdk, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("gemini: new client: %w", err)
	}
	return &Client{sdk: sdk, model: model, logger: logger}, nil
}

// Model reports the configured model name.
func (c *Client) Model() string { return c.model }

// Complete sends the text parts as one user turn and returns the answer text.
func (c *Client) Complete(ctx context.Context, parts ...string) (string, error) {
	if len(parts) == 0 {
		return "", errors.New("gemini: nothing to send")
	}
	sdkParts := make([]*genai.Part, 0, len(parts))
	for _, p := range parts {
		sdkParts = append(sdkParts, genai.NewPartFromText(p))
	}
	return c.generate(ctx, "complete", sdkParts)
}

// Describe sends an inline image followed by the query.
func (c *Client) Describe(ctx context.Context, data []byte, mime, query string) (string, error) {
	if len(data) == 0 {
		return "", errors.New("gemini: image data is empty")
	}
	if mime == "" {
		mime = "image/jpeg"
	}
	parts := []*genai.Part{
		genai.NewPartFromBytes(data, mime),
		genai.NewPartFromText(query),
	}
	return c.generate(ctx, "describe", parts)
}

func (c *Client) generate(ctx context.Context, op string, parts []*genai.Part) (string, error) {
	start := time.Now()
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}
	resp, err := c.sdk.Models.GenerateContent(ctx, c.model, contents, nil)
	elapsed := time.Since(start)
	if err != nil {
		if apiErr, ok := asAPIError(err); ok {
			c.logger.Error().Int("code", apiErr.Code).Str("status", apiErr.Status).Str("op", op).Dur("elapsed", elapsed).Msg("gemini: api error")
			return "", fmt.Errorf("gemini: %s: status %d: %s", op, apiErr.Code, apiErr.Message)
		}
		c.logger.Error().Err(err).Str("op", op).Dur("elapsed", elapsed).Msg("gemini: request failed")
		return "", fmt.Errorf("gemini: %s: %w", op, err)
	}

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return "", fmt.Errorf("gemini: %s: empty response", op)
	}
	c.logger.Debug().Str("op", op).Str("model", c.model).Dur("elapsed", elapsed).Int("chars", len(text)).Msg("gemini: response received")
	return text, nil
}

// asAPIError accepts both the value and pointer forms the SDK may return.
func asAPIError(err error) (genai.APIError, bool) {
	var v genai.APIError
	if errors.As(err, &v) {
		return v, true
	}
	var p *genai.APIError
	if errors.As(err, &p) && p != nil {
		return *p, true
	}
	return genai.APIError{}, false
}
