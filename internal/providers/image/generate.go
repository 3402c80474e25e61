package image

import (
	"context"
	"net/url"
	"strings"

	"playground/internal/domain"
)

const DefaultPollinationsBaseURL = "https://image.pollinations.ai"

// PollinationsGenerator builds a text-to-image URL. Pollinations renders on
// first fetch, so no request is made here.
type PollinationsGenerator struct {
	baseURL string
}

func NewPollinationsGenerator(baseURL string) *PollinationsGenerator {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		base = DefaultPollinationsBaseURL
	}
	return &PollinationsGenerator{baseURL: base}
}

func (g *PollinationsGenerator) Action() domain.Action { return domain.ActionGenerate }

func (g *PollinationsGenerator) Execute(_ context.Context, in Input) (*Result, error) {
	if strings.TrimSpace(in.Query) == "" {
		return nil, domain.ErrEmptyPrompt
	}
	return &Result{ImageURL: g.URLFor(in.Query)}, nil
}

// URLFor returns the image URL for prompt.
func (g *PollinationsGenerator) URLFor(prompt string) string {
	return g.baseURL + "/prompt/" + escapeComponent(prompt)
}

// escapeComponent escapes everything except the unreserved characters a
// browser leaves alone in a URI component.
func escapeComponent(s string) string {
	escaped := url.QueryEscape(s)
	return componentFixups.Replace(escaped)
}

var componentFixups = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

var _ Operation = (*PollinationsGenerator)(nil)
