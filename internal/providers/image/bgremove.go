package image

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"playground/internal/domain"
	"playground/internal/infra"
)

const (
	DefaultRemoveBGBaseURL = "https://api.remove.bg/v1.0"
	RemoveBGMIME           = "image/png"
)

// RemoveBGClient cuts the subject out through remove.bg and returns PNG bytes.
type RemoveBGClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

func NewRemoveBGClient(opts ProviderOptions) *RemoveBGClient {
	return &RemoveBGClient{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    opts.base(DefaultRemoveBGBaseURL),
		httpClient: opts.client(),
		logger:     opts.logger(),
	}
}

func (c *RemoveBGClient) Action() domain.Action { return domain.ActionRemoveBackground }

func (c *RemoveBGClient) Execute(ctx context.Context, in Input) (*Result, error) {
	if in.Image.empty() {
		return nil, domain.ErrMissingImage
	}
	if c.apiKey == "" {
		return nil, fmt.Errorf("%w: remove.bg", domain.ErrProviderNotConfigured)
	}
	resp, err := postMultipart(ctx, c.httpClient, "remove.bg", c.baseURL+"/removebg",
		map[string]string{"X-Api-Key": c.apiKey},
		[]formField{{name: "size", value: "auto"}},
		formFile{field: "image_file", image: in.Image},
	)
	if err != nil {
		c.logger.Error().Err(err).Msg("bgremove: provider call failed")
		return nil, err
	}
	if len(resp.body) == 0 {
		return nil, fmt.Errorf("%w: remove.bg: empty body", domain.ErrProviderFailure)
	}
	return &Result{Data: resp.body, MIME: RemoveBGMIME}, nil
}

var _ Operation = (*RemoveBGClient)(nil)
