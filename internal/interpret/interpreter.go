package interpret

import (
	"context"
	"errors"
	"strings"
	"unicode/utf8"

	"playground/internal/domain"
	"playground/internal/infra"
	"playground/internal/metrics"
)

// NoImageReasoning replaces the model's reasoning when the no-image override
// changes the action.
const NoImageReasoning = "No image uploaded, defaulting to image generation"

// Completer is the text-completion collaborator. Parts are sent in order as a
// single user turn and the raw text answer is returned.
type Completer interface {
	Complete(ctx context.Context, parts ...string) (string, error)
}

// Interpreter turns a free-form prompt into one of the four image actions.
type Interpreter struct {
	completer Completer
	logger    *infra.Logger
}

func New(completer Completer, logger *infra.Logger) *Interpreter {
	if logger == nil {
		logger = infra.NopLogger()
	}
	return &Interpreter{completer: completer, logger: logger}
}

// Interpret asks the collaborator once and validates its answer. The result
// is never a partial default: on any failure the error is an *Error.
func (i *Interpreter) Interpret(ctx context.Context, req domain.InterpretationRequest) (*domain.InterpretationResult, error) {
	result, err := i.interpret(ctx, req)
	if err != nil {
		metrics.ObserveInterpretation("", err)
		return nil, err
	}
	metrics.ObserveInterpretation(result.Action, nil)
	return result, nil
}

func (i *Interpreter) interpret(ctx context.Context, req domain.InterpretationRequest) (*domain.InterpretationResult, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, newError(domain.ErrEmptyPrompt, nil)
	}
	if i.completer == nil {
		return nil, newError(domain.ErrCollaboratorUnavailable, errors.New("no completer configured"))
	}

	text, err := i.completer.Complete(ctx, BuildInstruction(req.HasImage), BuildUserPrompt(req.Prompt))
	if err != nil {
		i.logger.Warn().Err(err).Bool("has_image", req.HasImage).Msg("interpret: completion failed")
		return nil, newError(domain.ErrCollaboratorUnavailable, err)
	}

	result, err := ParseResult(text)
	if err != nil {
		i.logger.Warn().Err(err).Str("raw", truncate(text, 512)).Msg("interpret: rejected model output")
		return nil, err
	}

	if applyNoImageRule(result, req) {
		metrics.Overrides.Inc()
		i.logger.Debug().Msg("interpret: no image, forced GENERATE")
	}
	i.logger.Debug().
		Str("action", string(result.Action)).
		Bool("has_image", req.HasImage).
		Msg("interpret: resolved")
	return result, nil
}

// applyNoImageRule enforces that a request without an image always generates
// from the user's own words. It reports whether the action was changed.
func applyNoImageRule(result *domain.InterpretationResult, req domain.InterpretationRequest) bool {
	if req.HasImage {
		return false
	}
	result.Parameters.Query = req.Prompt
	if result.Action == domain.ActionGenerate {
		return false
	}
	result.Action = domain.ActionGenerate
	result.Reasoning = NoImageReasoning
	return true
}

// truncate cuts s to at most n bytes without splitting a rune.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
