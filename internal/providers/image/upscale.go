package image

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"playground/internal/domain"
	"playground/internal/infra"
)

const DefaultPicsartBaseURL = "https://api.picsart.io/tools/1.0"

// ProviderOptions configures an HTTP-backed SaaS operation.
type ProviderOptions struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

func (o ProviderOptions) client() *http.Client {
	if o.HTTPClient != nil {
		return o.HTTPClient
	}
	return &http.Client{Timeout: 60 * time.Second}
}

func (o ProviderOptions) logger() *infra.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return infra.NopLogger()
}

func (o ProviderOptions) base(fallback string) string {
	base := strings.TrimRight(strings.TrimSpace(o.BaseURL), "/")
	if base == "" {
		return fallback
	}
	return base
}

// PicsartUpscaler enlarges an image through the Picsart upscale tool.
type PicsartUpscaler struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     *infra.Logger
}

type picsartResponse struct {
	Status string `json:"status"`
	Data   struct {
		ID  string `json:"id"`
		URL string `json:"url"`
	} `json:"data"`
}

func NewPicsartUpscaler(opts ProviderOptions) *PicsartUpscaler {
	return &PicsartUpscaler{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    opts.base(DefaultPicsartBaseURL),
		httpClient: opts.client(),
		logger:     opts.logger(),
	}
}

func (u *PicsartUpscaler) Action() domain.Action { return domain.ActionUpscale }

func (u *PicsartUpscaler) Execute(ctx context.Context, in Input) (*Result, error) {
	if in.Image.empty() {
		return nil, domain.ErrMissingImage
	}
	if u.apiKey == "" {
		return nil, fmt.Errorf("%w: picsart", domain.ErrProviderNotConfigured)
	}
	factor := strings.TrimSpace(in.UpscaleFactor)
	if factor == "" {
		factor = domain.DefaultUpscaleFactor
	}
	if !domain.ValidUpscaleFactor(factor) {
		return nil, domain.ErrInvalidUpscaleFactor
	}
	format := strings.ToUpper(strings.TrimSpace(in.Format))
	if format == "" {
		format = domain.DefaultUpscaleFormat
	}
	if !domain.ValidUpscaleFormat(format) {
		return nil, domain.ErrInvalidFormat
	}

	resp, err := postMultipart(ctx, u.httpClient, "picsart", u.baseURL+"/upscale",
		map[string]string{
			"X-Picsart-API-Key": u.apiKey,
			"Accept":            "application/json",
		},
		[]formField{{name: "upscale_factor", value: factor}, {name: "format", value: format}},
		formFile{field: "image", image: in.Image},
	)
	if err != nil {
		u.logger.Error().Err(err).Str("factor", factor).Msg("upscale: provider call failed")
		return nil, err
	}

	var decoded picsartResponse
	if err := json.Unmarshal(resp.body, &decoded); err != nil {
		return nil, fmt.Errorf("%w: picsart: decode response: %v", domain.ErrProviderFailure, err)
	}
	u.logger.Debug().Str("factor", factor).Str("format", format).Str("id", decoded.Data.ID).Msg("upscale: done")
	return &Result{
		ImageURL: decoded.Data.URL,
		Raw:      json.RawMessage(resp.body),
	}, nil
}

var _ Operation = (*PicsartUpscaler)(nil)
