package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"playground/internal/domain"
	"playground/internal/history"
	"playground/internal/infra"
	"playground/internal/playground"
	"playground/internal/providers/image"
)

// Interpreter resolves a prompt to an action.
type Interpreter interface {
	Interpret(ctx context.Context, req domain.InterpretationRequest) (*domain.InterpretationResult, error)
}

// Runner executes one image operation.
type Runner interface {
	Run(ctx context.Context, action domain.Action, in image.Input) (*image.Result, error)
}

// Playground runs the combined flow.
type Playground interface {
	Run(ctx context.Context, req playground.Request) (*playground.Response, error)
}

type App struct {
	Config      *infra.Config
	Logger      zerolog.Logger
	Interpreter Interpreter
	Operations  Runner
	Playground  Playground
	Recorder    *history.Recorder
	Files       playground.FileSaver
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// errorBody is the error shape the web client reads: error is a short title,
// message or details carries the cause.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Details string `json:"details,omitempty"`
}

func (a *App) fail(w http.ResponseWriter, code int, title, message string) {
	a.json(w, code, errorBody{Error: title, Message: message})
}

// log returns the request-scoped logger when the logging middleware set one.
func (a *App) log(r *http.Request) *zerolog.Logger {
	if l := zerolog.Ctx(r.Context()); l != nil && l.GetLevel() != zerolog.Disabled {
		return l
	}
	return &a.Logger
}

func (a *App) maxUploadBytes() int64 {
	if a.Config != nil && a.Config.UploadMaxBytes > 0 {
		return a.Config.UploadMaxBytes
	}
	return defaultUploadMaxBytes
}

// statusFor maps domain errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrEmptyPrompt),
		errors.Is(err, domain.ErrMissingImage),
		errors.Is(err, domain.ErrInvalidUpscaleFactor),
		errors.Is(err, domain.ErrInvalidFormat),
		errors.Is(err, domain.ErrUnsupportedImage),
		errors.Is(err, domain.ErrNothingToDo),
		errors.Is(err, domain.ErrUnsupportedAction):
		return http.StatusBadRequest
	case errors.Is(err, errUploadTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
