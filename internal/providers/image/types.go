package image

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"playground/internal/domain"
	"playground/internal/metrics"
)

// SourceImage is an uploaded file held in memory for the duration of a request.
type SourceImage struct {
	Data     []byte
	MIME     string
	Filename string
}

func (s *SourceImage) empty() bool {
	return s == nil || len(s.Data) == 0
}

// Input carries every parameter an operation may read. Each operation ignores
// the fields it does not need.
type Input struct {
	Image         *SourceImage
	Query         string
	UpscaleFactor string
	Format        string
}

// Result is the normalized output of an operation. Generate and Upscale set
// ImageURL, Analyze sets Text, RemoveBackground sets Data and MIME. Raw holds
// the provider's JSON body when one was returned.
type Result struct {
	Action   domain.Action
	ImageURL string
	Text     string
	Data     []byte
	MIME     string
	Raw      json.RawMessage
}

// Operation is one downstream capability behind a single action.
type Operation interface {
	Action() domain.Action
	Execute(ctx context.Context, in Input) (*Result, error)
}

// Operations routes an action to the operation registered for it.
type Operations map[domain.Action]Operation

// NewOperations indexes ops by their action. Later entries win.
func NewOperations(ops ...Operation) Operations {
	out := make(Operations, len(ops))
	for _, op := range ops {
		if op == nil {
			continue
		}
		out[op.Action()] = op
	}
	return out
}

// Run executes the operation for action and records its outcome.
func (o Operations) Run(ctx context.Context, action domain.Action, in Input) (*Result, error) {
	op, ok := o[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedAction, action)
	}
	started := time.Now()
	res, err := op.Execute(ctx, in)
	metrics.ObserveOperation(action, started, err)
	if err != nil {
		return nil, err
	}
	res.Action = action
	return res, nil
}
