package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"playground/internal/domain"
	"playground/internal/playground"
)

type playgroundRequest struct {
	Prompt        string `json:"prompt"`
	Option        string `json:"option"`
	UpscaleFactor string `json:"upscaleFactor"`
	Format        string `json:"format"`
}

// RunPlayground runs the combined flow. It accepts either a multipart form with
// an optional image or a JSON body for prompt-only requests.
func (a *App) RunPlayground(w http.ResponseWriter, r *http.Request) {
	var req playground.Request
	if isMultipart(r) {
		img, err := a.parseUpload(w, r)
		if err != nil {
			if errors.Is(err, errUploadTooLarge) {
				a.fail(w, http.StatusRequestEntityTooLarge, "Image too large", err.Error())
				return
			}
			a.fail(w, http.StatusBadRequest, "Invalid upload", err.Error())
			return
		}
		req = playground.Request{
			Prompt:        r.FormValue("prompt"),
			Image:         img,
			Option:        r.FormValue("option"),
			UpscaleFactor: r.FormValue("upscale_factor"),
			Format:        r.FormValue("format"),
		}
	} else {
		var body playgroundRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			a.json(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
			return
		}
		req = playground.Request{
			Prompt:        body.Prompt,
			Option:        body.Option,
			UpscaleFactor: body.UpscaleFactor,
			Format:        body.Format,
		}
	}

	if a.Playground == nil {
		a.fail(w, http.StatusInternalServerError, "Playground not configured", domain.ErrProviderNotConfigured.Error())
		return
	}
	resp, err := a.Playground.Run(r.Context(), req)
	if err != nil {
		code := statusFor(err)
		if code >= http.StatusInternalServerError {
			a.log(r).Error().Err(err).Msg("playground failed")
		}
		a.fail(w, code, playgroundTitle(err), err.Error())
		return
	}
	a.json(w, http.StatusOK, resp)
}

func playgroundTitle(err error) string {
	switch {
	case errors.Is(err, domain.ErrNothingToDo):
		return "Nothing to do"
	case errors.Is(err, domain.ErrCollaboratorUnavailable),
		errors.Is(err, domain.ErrMalformedResponse),
		errors.Is(err, domain.ErrInvalidAction):
		return "Failed to interpret prompt"
	case errors.Is(err, domain.ErrProviderNotConfigured):
		return "Provider not configured"
	default:
		return "Failed to process request"
	}
}
