package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"playground/internal/domain"
	"playground/internal/history"
)

type historyList struct {
	Items []domain.HistoryItem `json:"items"`
}

func (a *App) historyLog(w http.ResponseWriter) (history.Log[domain.HistoryItem], bool) {
	log := a.Recorder.Log()
	if log == nil {
		a.json(w, http.StatusServiceUnavailable, errorBody{Error: "History not configured"})
		return nil, false
	}
	return log, true
}

// ListHistory returns the stored entries newest first.
func (a *App) ListHistory(w http.ResponseWriter, r *http.Request) {
	log, ok := a.historyLog(w)
	if !ok {
		return
	}
	items, err := log.List(r.Context())
	if err != nil {
		a.log(r).Error().Err(err).Msg("history: list failed")
		a.fail(w, http.StatusInternalServerError, "Failed to load history", err.Error())
		return
	}
	if items == nil {
		items = []domain.HistoryItem{}
	}
	a.json(w, http.StatusOK, historyList{Items: items})
}

// SaveHistory stores a client-supplied entry, assigning id and timestamp.
func (a *App) SaveHistory(w http.ResponseWriter, r *http.Request) {
	log, ok := a.historyLog(w)
	if !ok {
		return
	}
	var item domain.HistoryItem
	if err := json.NewDecoder(r.Body).Decode(&item); err != nil {
		a.json(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	if !item.Type.Valid() {
		a.fail(w, http.StatusBadRequest, "Invalid history type", "type must be generate, analyze, upscale, or bgRemove")
		return
	}
	item.ID = ""
	item.Timestamp = 0
	item = a.Recorder.Stamp(item)
	if err := log.Push(r.Context(), item); err != nil {
		a.log(r).Error().Err(err).Msg("history: save failed")
		a.fail(w, http.StatusInternalServerError, "Failed to save history", err.Error())
		return
	}
	a.json(w, http.StatusCreated, item)
}

// ClearHistory removes every entry.
func (a *App) ClearHistory(w http.ResponseWriter, r *http.Request) {
	log, ok := a.historyLog(w)
	if !ok {
		return
	}
	if err := log.Clear(r.Context()); err != nil {
		a.log(r).Error().Err(err).Msg("history: clear failed")
		a.fail(w, http.StatusInternalServerError, "Failed to clear history", err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"success": true})
}

// DeleteHistory removes one entry by id.
func (a *App) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	log, ok := a.historyLog(w)
	if !ok {
		return
	}
	id := chi.URLParam(r, "id")
	if err := log.Delete(r.Context(), id); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			a.json(w, http.StatusNotFound, errorBody{Error: "History item not found"})
			return
		}
		a.log(r).Error().Err(err).Str("id", id).Msg("history: delete failed")
		a.fail(w, http.StatusInternalServerError, "Failed to delete history item", err.Error())
		return
	}
	a.json(w, http.StatusOK, map[string]bool{"success": true})
}
