// Package playground runs the combined prompt + image flow: a manual option
// runs directly, a lone image is analyzed, a lone prompt generates, and a
// prompt with an image goes through the interpreter first.
package playground

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"playground/internal/domain"
	"playground/internal/history"
	"playground/internal/infra"
	"playground/internal/providers/image"
)

// Interpreter resolves a prompt to an action.
type Interpreter interface {
	Interpret(ctx context.Context, req domain.InterpretationRequest) (*domain.InterpretationResult, error)
}

// Runner executes one action.
type Runner interface {
	Run(ctx context.Context, action domain.Action, in image.Input) (*image.Result, error)
}

// FileSaver stores binary results and returns a URL for them.
type FileSaver interface {
	Save(ctx context.Context, prefix, ext string, data []byte) (key string, url string, err error)
}

type Request struct {
	Prompt        string
	Image         *image.SourceImage
	Option        string
	UpscaleFactor string
	Format        string
}

type Response struct {
	Success        bool                         `json:"success"`
	Action         domain.Action                `json:"action"`
	Interpretation *domain.InterpretationResult `json:"interpretation,omitempty"`
	ImageURL       string                       `json:"imageUrl,omitempty"`
	Text           string                       `json:"text,omitempty"`
	Data           json.RawMessage              `json:"data,omitempty"`
	HistoryID      string                       `json:"historyId,omitempty"`
}

type Service struct {
	interpreter Interpreter
	runner      Runner
	files       FileSaver
	recorder    *history.Recorder
	logger      *infra.Logger
}

type Options struct {
	Interpreter Interpreter
	Runner      Runner
	Files       FileSaver
	Recorder    *history.Recorder
	Logger      *infra.Logger
}

func NewService(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Service{
		interpreter: opts.Interpreter,
		runner:      opts.Runner,
		files:       opts.Files,
		recorder:    opts.Recorder,
		logger:      logger,
	}
}

// Run resolves the request to one action and executes it.
func (s *Service) Run(ctx context.Context, req Request) (*Response, error) {
	prompt := strings.TrimSpace(req.Prompt)
	hasImage := req.Image != nil && len(req.Image.Data) > 0

	if option := strings.TrimSpace(req.Option); option != "" {
		action, ok := domain.ParseAction(option)
		if !ok {
			return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedAction, option)
		}
		return s.execute(ctx, action, nil, s.manualInput(action, req, prompt))
	}

	switch {
	case prompt == "" && !hasImage:
		return nil, domain.ErrNothingToDo
	case prompt == "":
		return s.execute(ctx, domain.ActionAnalyze, nil, image.Input{Image: req.Image})
	case !hasImage:
		return s.execute(ctx, domain.ActionGenerate, nil, image.Input{Query: req.Prompt})
	}

	interpretation, err := s.interpreter.Interpret(ctx, domain.InterpretationRequest{Prompt: req.Prompt, HasImage: true})
	if err != nil {
		return nil, err
	}
	s.logger.Debug().Str("action", string(interpretation.Action)).Str("reasoning", interpretation.Reasoning).Msg("playground: interpreted")
	return s.execute(ctx, interpretation.Action, interpretation, dispatchInput(interpretation, req))
}

func (s *Service) manualInput(action domain.Action, req Request, prompt string) image.Input {
	in := image.Input{Image: req.Image}
	switch action {
	case domain.ActionGenerate, domain.ActionAnalyze:
		in.Query = prompt
	case domain.ActionUpscale:
		in.UpscaleFactor = req.UpscaleFactor
		in.Format = req.Format
	}
	return in
}

// dispatchInput maps interpreted parameters onto the operation input, falling
// back to the request's own values where the model left a field empty.
func dispatchInput(res *domain.InterpretationResult, req Request) image.Input {
	in := image.Input{Image: req.Image}
	params := res.Parameters
	switch res.Action {
	case domain.ActionGenerate:
		in.Query = params.Query
		if strings.TrimSpace(in.Query) == "" {
			in.Query = req.Prompt
		}
	case domain.ActionAnalyze:
		in.Query = params.Query
	case domain.ActionUpscale:
		in.UpscaleFactor = firstNonEmpty(params.UpscaleFactor, req.UpscaleFactor)
		in.Format = firstNonEmpty(params.Format, req.Format)
	}
	return in
}

func (s *Service) execute(ctx context.Context, action domain.Action, interpretation *domain.InterpretationResult, in image.Input) (*Response, error) {
	if s.runner == nil {
		return nil, fmt.Errorf("%w: no operations configured", domain.ErrProviderNotConfigured)
	}
	result, err := s.runner.Run(ctx, action, in)
	if err != nil {
		return nil, err
	}

	resp := &Response{
		Success:        true,
		Action:         action,
		Interpretation: interpretation,
		ImageURL:       result.ImageURL,
		Text:           result.Text,
		Data:           result.Raw,
	}
	if len(result.Data) > 0 {
		url, err := s.storeBinary(ctx, action, result)
		if err != nil {
			return nil, err
		}
		resp.ImageURL = url
	}

	entry := s.recorder.Save(ctx, domain.HistoryTypeFor(action), historyInput(action, in), domain.HistoryOutput{
		ImageURL: resp.ImageURL,
		Text:     resp.Text,
	})
	resp.HistoryID = entry.ID
	return resp, nil
}

func (s *Service) storeBinary(ctx context.Context, action domain.Action, result *image.Result) (string, error) {
	if s.files == nil {
		return "data:" + result.MIME + ";base64," + base64.StdEncoding.EncodeToString(result.Data), nil
	}
	_, url, err := s.files.Save(ctx, strings.ToLower(string(action)), extensionFor(result.MIME), result.Data)
	if err != nil {
		return "", fmt.Errorf("playground: store result: %w", err)
	}
	return url, nil
}

func historyInput(action domain.Action, in image.Input) domain.HistoryInput {
	out := domain.HistoryInput{}
	if in.Image != nil {
		out.ImageName = in.Image.Filename
	}
	switch action {
	case domain.ActionGenerate:
		out.Prompt = in.Query
	case domain.ActionAnalyze:
		out.Query = in.Query
	case domain.ActionUpscale:
		out.Factor = firstNonEmpty(in.UpscaleFactor, domain.DefaultUpscaleFactor)
	}
	return out
}

func extensionFor(mime string) string {
	switch mime {
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
