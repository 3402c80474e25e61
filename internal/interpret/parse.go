package interpret

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"playground/internal/domain"
)

const fence = "```"

// resultSchema checks the structural shape of the model output. The action
// value is deliberately unconstrained here so an unknown action is reported
// as ErrInvalidAction rather than as a malformed response.
const resultSchema = `{
  "type": "object",
  "properties": {
    "reasoning": {"type": ["string", "null"]},
    "parameters": {
      "type": ["object", "null"],
      "properties": {
        "upscaleFactor": {"type": ["string", "number", "null"]},
        "format": {"type": ["string", "null"]},
        "query": {"type": ["string", "null"]}
      }
    }
  }
}`

var compiledSchema = mustCompileSchema(resultSchema)

func mustCompileSchema(raw string) *gojsonschema.Schema {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("interpret: compile result schema: %v", err))
	}
	return schema
}

type rawResult struct {
	Action     json.RawMessage `json:"action"`
	Reasoning  *string         `json:"reasoning"`
	Parameters *rawParameters  `json:"parameters"`
}

type rawParameters struct {
	UpscaleFactor json.RawMessage `json:"upscaleFactor"`
	Format        *string         `json:"format"`
	Query         *string         `json:"query"`
}

// UnwrapFence removes exactly one markdown code fence around text, either
// annotated ("```json") or bare. Text without a leading fence is only trimmed.
func UnwrapFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, fence) {
		return trimmed
	}
	trimmed = trimmed[len(fence):]
	if len(trimmed) >= 4 && strings.EqualFold(trimmed[:4], "json") {
		trimmed = trimmed[4:]
	}
	trimmed = strings.TrimSpace(trimmed)
	trimmed = strings.TrimSuffix(trimmed, fence)
	return strings.TrimSpace(trimmed)
}

// ParseResult decodes and validates the model output. It never guesses: any
// structural problem is ErrMalformedResponse and any action outside the four
// legal values is ErrInvalidAction.
func ParseResult(text string) (*domain.InterpretationResult, error) {
	body := UnwrapFence(text)
	if body == "" {
		return nil, newError(domain.ErrMalformedResponse, errors.New("empty response"))
	}

	validation, err := compiledSchema.Validate(gojsonschema.NewStringLoader(body))
	if err != nil {
		return nil, newError(domain.ErrMalformedResponse, err)
	}
	if !validation.Valid() {
		msgs := make([]string, len(validation.Errors()))
		for i, desc := range validation.Errors() {
			msgs[i] = desc.String()
		}
		return nil, newError(domain.ErrMalformedResponse, errors.New(strings.Join(msgs, "; ")))
	}

	var raw rawResult
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, newError(domain.ErrMalformedResponse, err)
	}

	var action string
	if len(raw.Action) == 0 || json.Unmarshal(raw.Action, &action) != nil {
		return nil, newError(domain.ErrInvalidAction, fmt.Errorf("action %s", orNull(raw.Action)))
	}
	if !domain.Action(action).Valid() {
		return nil, newError(domain.ErrInvalidAction, fmt.Errorf("action %q", action))
	}

	result := &domain.InterpretationResult{Action: domain.Action(action)}
	if raw.Reasoning != nil {
		result.Reasoning = *raw.Reasoning
	}
	if raw.Parameters != nil {
		params, err := normalizeParameters(*raw.Parameters)
		if err != nil {
			return nil, newError(domain.ErrMalformedResponse, err)
		}
		result.Parameters = params
	}
	return result, nil
}

var upper = cases.Upper(language.Und)

func normalizeParameters(raw rawParameters) (domain.InterpretationParameters, error) {
	var out domain.InterpretationParameters

	factor, err := normalizeFactor(raw.UpscaleFactor)
	if err != nil {
		return out, err
	}
	out.UpscaleFactor = factor

	if raw.Format != nil {
		format := upper.String(strings.TrimSpace(*raw.Format))
		if format == "JPEG" {
			format = "JPG"
		}
		out.Format = format
	}
	if raw.Query != nil {
		out.Query = *raw.Query
	}
	return out, nil
}

// normalizeFactor turns the factor into its string form. Models answer with
// "4", 4 or "4x" interchangeably; values outside the supported set are kept
// as-is and rejected later by the upscale operation.
func normalizeFactor(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		s = strings.TrimSpace(s)
		s = strings.TrimSuffix(strings.TrimSuffix(s, "x"), "X")
		return strings.TrimSpace(s), nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return "", fmt.Errorf("upscaleFactor: %w", err)
	}
	if f == float64(int64(f)) {
		return strconv.FormatInt(int64(f), 10), nil
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

func orNull(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "missing"
	}
	return string(raw)
}
