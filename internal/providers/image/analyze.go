package image

import (
	"context"
	"fmt"
	"strings"

	"playground/internal/domain"
	"playground/internal/imaging"
	"playground/internal/infra"
)

const DefaultAnalyzeQuery = "Describe this image in detail."

// Describer answers a question about an inline image.
type Describer interface {
	Describe(ctx context.Context, data []byte, mime, query string) (string, error)
}

// GeminiAnalyzer shrinks the upload and asks the multimodal model about it.
type GeminiAnalyzer struct {
	describer    Describer
	maxDimension int
	quality      int
	logger       *infra.Logger
}

type AnalyzerOptions struct {
	MaxDimension int
	JPEGQuality  int
	Logger       *infra.Logger
}

func NewGeminiAnalyzer(describer Describer, opts AnalyzerOptions) *GeminiAnalyzer {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &GeminiAnalyzer{
		describer:    describer,
		maxDimension: opts.MaxDimension,
		quality:      opts.JPEGQuality,
		logger:       logger,
	}
}

func (a *GeminiAnalyzer) Action() domain.Action { return domain.ActionAnalyze }

func (a *GeminiAnalyzer) Execute(ctx context.Context, in Input) (*Result, error) {
	if in.Image.empty() {
		return nil, domain.ErrMissingImage
	}
	if a.describer == nil {
		return nil, fmt.Errorf("%w: gemini", domain.ErrProviderNotConfigured)
	}
	query := in.Query
	if strings.TrimSpace(query) == "" {
		query = DefaultAnalyzeQuery
	}

	optimized, err := imaging.Optimize(in.Image.Data, a.maxDimension, a.quality)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUnsupportedImage, err)
	}
	a.logger.Debug().
		Int("original_bytes", len(in.Image.Data)).
		Int("optimized_bytes", len(optimized.Data)).
		Int("width", optimized.Width).
		Int("height", optimized.Height).
		Msg("analyze: image optimized")

	text, err := a.describer.Describe(ctx, optimized.Data, optimized.MIME, query)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
	}
	return &Result{Text: text}, nil
}

var _ Operation = (*GeminiAnalyzer)(nil)
