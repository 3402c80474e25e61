package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"playground/internal/domain"
)

type interpretRequest struct {
	Prompt   string `json:"prompt"`
	HasImage bool   `json:"hasImage"`
}

// Interpret resolves a prompt to one action without executing it.
func (a *App) Interpret(w http.ResponseWriter, r *http.Request) {
	var req interpretRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	if a.Interpreter == nil {
		a.json(w, http.StatusInternalServerError, errorBody{Error: "Failed to interpret prompt", Details: domain.ErrCollaboratorUnavailable.Error()})
		return
	}

	result, err := a.Interpreter.Interpret(r.Context(), domain.InterpretationRequest{Prompt: req.Prompt, HasImage: req.HasImage})
	if err != nil {
		if errors.Is(err, domain.ErrEmptyPrompt) {
			a.json(w, http.StatusBadRequest, errorBody{Error: "Prompt is required"})
			return
		}
		a.log(r).Error().Err(err).Msg("interpret failed")
		a.json(w, http.StatusInternalServerError, errorBody{Error: "Failed to interpret prompt", Details: err.Error()})
		return
	}
	a.json(w, http.StatusOK, result)
}
