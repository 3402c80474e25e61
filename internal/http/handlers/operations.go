package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"playground/internal/domain"
	"playground/internal/providers/image"
)

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	ImageURL string `json:"imageUrl"`
	Prompt   string `json:"prompt"`
}

type analyzeResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

type upscaleResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// notConfigured holds the error bodies sent when a provider key is missing.
var notConfigured = map[domain.Action]errorBody{
	domain.ActionAnalyze: {
		Error:   "Gemini API key not configured",
		Message: "Please set GOOGLE_API_KEY in environment variables",
	},
	domain.ActionUpscale: {
		Error:   "Picsart API key not configured",
		Message: "Please set PICSART_API_KEY in environment variables",
	},
	domain.ActionRemoveBackground: {
		Error:   "Remove.bg API key not configured",
		Message: "Please set REMOVE_BG_API_KEY in environment variables",
	},
}

var failureTitles = map[domain.Action]string{
	domain.ActionGenerate:         "Failed to generate image",
	domain.ActionAnalyze:          "Failed to analyze image",
	domain.ActionUpscale:          "Failed to upscale image",
	domain.ActionRemoveBackground: "Failed to remove background",
}

// operationFailed writes the error body for a failed operation.
func (a *App) operationFailed(w http.ResponseWriter, r *http.Request, action domain.Action, err error) {
	switch {
	case errors.Is(err, domain.ErrProviderNotConfigured):
		if body, ok := notConfigured[action]; ok {
			a.json(w, http.StatusInternalServerError, body)
			return
		}
	case errors.Is(err, domain.ErrMissingImage):
		a.json(w, http.StatusBadRequest, errorBody{Error: "No image file uploaded"})
		return
	case errors.Is(err, domain.ErrInvalidUpscaleFactor):
		a.fail(w, http.StatusBadRequest, "Invalid upscale factor", "Upscale factor must be 2, 4, 6, or 8")
		return
	case errors.Is(err, domain.ErrInvalidFormat):
		a.fail(w, http.StatusBadRequest, "Invalid format", "Format must be JPG or PNG")
		return
	case errors.Is(err, domain.ErrEmptyPrompt):
		a.json(w, http.StatusBadRequest, errorBody{Error: "Prompt is required"})
		return
	}

	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		a.log(r).Error().Err(err).Str("action", string(action)).Msg("operation failed")
	}
	a.fail(w, code, failureTitles[action], err.Error())
}

func (a *App) run(r *http.Request, action domain.Action, in image.Input) (*image.Result, error) {
	if a.Operations == nil {
		return nil, domain.ErrProviderNotConfigured
	}
	return a.Operations.Run(r.Context(), action, in)
}

// Generate returns an image URL for a text prompt.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.json(w, http.StatusBadRequest, errorBody{Error: "Invalid request body"})
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		a.json(w, http.StatusBadRequest, errorBody{Error: "Prompt is required"})
		return
	}

	res, err := a.run(r, domain.ActionGenerate, image.Input{Query: req.Prompt})
	if err != nil {
		a.operationFailed(w, r, domain.ActionGenerate, err)
		return
	}
	a.Recorder.Save(r.Context(), domain.HistoryGenerate,
		domain.HistoryInput{Prompt: req.Prompt},
		domain.HistoryOutput{ImageURL: res.ImageURL})
	a.json(w, http.StatusOK, generateResponse{ImageURL: res.ImageURL, Prompt: req.Prompt})
}

// Analyze describes an uploaded image, answering the optional query.
func (a *App) Analyze(w http.ResponseWriter, r *http.Request) {
	img, ok := a.requireUpload(w, r)
	if !ok {
		return
	}
	query := r.FormValue("query")

	res, err := a.run(r, domain.ActionAnalyze, image.Input{Image: img, Query: query})
	if err != nil {
		a.operationFailed(w, r, domain.ActionAnalyze, err)
		return
	}
	a.Recorder.Save(r.Context(), domain.HistoryAnalyze,
		domain.HistoryInput{Query: query, ImageName: img.Filename},
		domain.HistoryOutput{Text: res.Text})
	a.json(w, http.StatusOK, analyzeResponse{Success: true, Text: res.Text})
}

// Upscale enlarges an uploaded image through the upscaling provider.
func (a *App) Upscale(w http.ResponseWriter, r *http.Request) {
	img, ok := a.requireUpload(w, r)
	if !ok {
		return
	}
	in := image.Input{
		Image:         img,
		UpscaleFactor: r.FormValue("upscale_factor"),
		Format:        r.FormValue("format"),
	}

	res, err := a.run(r, domain.ActionUpscale, in)
	if err != nil {
		a.operationFailed(w, r, domain.ActionUpscale, err)
		return
	}
	factor := in.UpscaleFactor
	if factor == "" {
		factor = domain.DefaultUpscaleFactor
	}
	a.Recorder.Save(r.Context(), domain.HistoryUpscale,
		domain.HistoryInput{ImageName: img.Filename, Factor: factor},
		domain.HistoryOutput{ImageURL: res.ImageURL})

	data := res.Raw
	if len(data) == 0 {
		data, _ = json.Marshal(map[string]string{"url": res.ImageURL})
	}
	a.json(w, http.StatusOK, upscaleResponse{Success: true, Data: data})
}

// RemoveBackground streams the cut-out PNG back as an attachment.
func (a *App) RemoveBackground(w http.ResponseWriter, r *http.Request) {
	img, ok := a.requireUpload(w, r)
	if !ok {
		return
	}

	res, err := a.run(r, domain.ActionRemoveBackground, image.Input{Image: img})
	if err != nil {
		a.operationFailed(w, r, domain.ActionRemoveBackground, err)
		return
	}

	var url string
	if a.Files != nil {
		if _, stored, err := a.Files.Save(r.Context(), "bgremove", ".png", res.Data); err != nil {
			a.log(r).Warn().Err(err).Msg("bgRemove: store copy failed")
		} else {
			url = stored
		}
	}
	a.Recorder.Save(r.Context(), domain.HistoryBgRemove,
		domain.HistoryInput{ImageName: img.Filename},
		domain.HistoryOutput{ImageURL: url})

	mime := res.MIME
	if mime == "" {
		mime = image.RemoveBGMIME
	}
	w.Header().Set("Content-Type", mime)
	w.Header().Set("Content-Disposition", `attachment; filename="no-bg.png"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(res.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(res.Data)
}
