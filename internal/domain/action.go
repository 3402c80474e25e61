package domain

import "strings"

// Action enumerates the operations the playground can route a prompt to.
type Action string

const (
	ActionGenerate         Action = "GENERATE"
	ActionAnalyze          Action = "ANALYZE"
	ActionUpscale          Action = "UPSCALE"
	ActionRemoveBackground Action = "REMOVE_BG"
)

// Actions lists every legal action in presentation order.
var Actions = []Action{ActionGenerate, ActionAnalyze, ActionUpscale, ActionRemoveBackground}

// Valid reports whether a is one of the four legal actions. Matching is exact.
func (a Action) Valid() bool {
	switch a {
	case ActionGenerate, ActionAnalyze, ActionUpscale, ActionRemoveBackground:
		return true
	}
	return false
}

// ParseAction accepts the manual option names used by the playground form.
// Unlike interpretation output, user-selected options are matched
// case-insensitively.
func ParseAction(raw string) (Action, bool) {
	a := Action(strings.ToUpper(strings.TrimSpace(raw)))
	return a, a.Valid()
}

// Supported upscale factors and output formats.
var (
	UpscaleFactors = []string{"2", "4", "6", "8"}
	UpscaleFormats = []string{"JPG", "PNG"}
)

const (
	DefaultUpscaleFactor = "2"
	DefaultUpscaleFormat = "JPG"
)

// ValidUpscaleFactor reports whether factor is one of the supported factors.
func ValidUpscaleFactor(factor string) bool {
	for _, f := range UpscaleFactors {
		if f == factor {
			return true
		}
	}
	return false
}

// ValidUpscaleFormat reports whether format is one of the supported formats.
func ValidUpscaleFormat(format string) bool {
	for _, f := range UpscaleFormats {
		if f == format {
			return true
		}
	}
	return false
}

// InterpretationRequest is the input of a single interpretation.
type InterpretationRequest struct {
	Prompt   string `json:"prompt"`
	HasImage bool   `json:"hasImage"`
}

// InterpretationParameters carries the optional operation parameters.
type InterpretationParameters struct {
	UpscaleFactor string `json:"upscaleFactor,omitempty"`
	Format        string `json:"format,omitempty"`
	Query         string `json:"query,omitempty"`
}

// InterpretationResult is the structured decision produced for a prompt.
type InterpretationResult struct {
	Action     Action                   `json:"action"`
	Reasoning  string                   `json:"reasoning"`
	Parameters InterpretationParameters `json:"parameters"`
}
