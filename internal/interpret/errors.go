package interpret

import "fmt"

// Error reports why an interpretation failed. Kind is one of the domain
// sentinels (ErrEmptyPrompt, ErrCollaboratorUnavailable, ErrMalformedResponse,
// ErrInvalidAction); Err holds the underlying cause, if any. errors.Is matches
// against both.
type Error struct {
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

func newError(kind, cause error) *Error {
	return &Error{Kind: kind, Err: cause}
}
