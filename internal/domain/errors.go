package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	ErrEmptyPrompt             = errors.New("prompt is required")
	ErrCollaboratorUnavailable = errors.New("text completion unavailable")
	ErrMalformedResponse       = errors.New("malformed interpretation response")
	ErrInvalidAction           = errors.New("invalid action returned by AI")
	ErrMissingImage            = errors.New("no image file uploaded")
	ErrInvalidUpscaleFactor    = errors.New("upscale factor must be 2, 4, 6, or 8")
	ErrInvalidFormat           = errors.New("format must be JPG or PNG")
	ErrUnsupportedImage        = errors.New("unsupported image encoding")
	ErrProviderNotConfigured   = errors.New("provider api key not configured")
	ErrProviderFailure         = errors.New("provider failure")
	ErrNothingToDo             = errors.New("please provide a prompt or upload an image")
	ErrUnsupportedAction       = errors.New("unsupported action")
)
