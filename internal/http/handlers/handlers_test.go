package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"playground/internal/domain"
	"playground/internal/history"
	"playground/internal/infra"
	"playground/internal/playground"
	"playground/internal/providers/image"
)

type stubInterpreter struct {
	result *domain.InterpretationResult
	err    error
	got    domain.InterpretationRequest
}

func (s *stubInterpreter) Interpret(_ context.Context, req domain.InterpretationRequest) (*domain.InterpretationResult, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	if strings.TrimSpace(req.Prompt) == "" {
		return nil, domain.ErrEmptyPrompt
	}
	return s.result, nil
}

type stubRunner struct {
	results map[domain.Action]*image.Result
	err     error
	calls   []domain.Action
	inputs  []image.Input
}

func (s *stubRunner) Run(_ context.Context, action domain.Action, in image.Input) (*image.Result, error) {
	s.calls = append(s.calls, action)
	s.inputs = append(s.inputs, in)
	if s.err != nil {
		return nil, s.err
	}
	res, ok := s.results[action]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedAction, action)
	}
	return res, nil
}

type stubFiles struct {
	saved [][]byte
}

func (s *stubFiles) Save(_ context.Context, prefix, ext string, data []byte) (string, string, error) {
	s.saved = append(s.saved, data)
	return prefix + "/x" + ext, "/static/" + prefix + "/x" + ext, nil
}

func newTestApp(runner *stubRunner, interp *stubInterpreter) (*App, *history.Memory[domain.HistoryItem]) {
	log := history.NewMemory[domain.HistoryItem](10)
	rec := history.NewRecorder(log, infra.NopLogger())
	files := &stubFiles{}
	a := &App{
		Config:      &infra.Config{UploadMaxBytes: 1 << 20},
		Logger:      zerolog.Nop(),
		Interpreter: interp,
		Operations:  runner,
		Recorder:    rec,
		Files:       files,
	}
	a.Playground = playground.NewService(playground.Options{
		Interpreter: interp,
		Runner:      runner,
		Files:       files,
		Recorder:    rec,
	})
	return a, log
}

func multipartBody(t *testing.T, fields map[string]string, file []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	if file != nil {
		part, err := w.CreateFormFile("image", "cat.png")
		if err != nil {
			t.Fatalf("create file: %v", err)
		}
		_, _ = part.Write(file)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return &buf, w.FormDataContentType()
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rr.Body.String(), err)
	}
	return out
}

func TestRootAndHealth(t *testing.T) {
	a, _ := newTestApp(&stubRunner{}, &stubInterpreter{})

	rr := httptest.NewRecorder()
	a.Root(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusOK || rr.Body.String() != rootGreeting {
		t.Fatalf("root = %d %q", rr.Code, rr.Body.String())
	}

	rr = httptest.NewRecorder()
	a.Health(rr, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if body := decodeBody(t, rr); body["status"] != "ok" {
		t.Fatalf("health body = %v", body)
	}
}

func TestInterpretHandler(t *testing.T) {
	want := &domain.InterpretationResult{
		Action:     domain.ActionUpscale,
		Reasoning:  "asked for 4x",
		Parameters: domain.InterpretationParameters{UpscaleFactor: "4", Format: "JPG"},
	}

	cases := []struct {
		name       string
		body       string
		interpErr  error
		wantStatus int
		wantKey    string
		wantValue  string
	}{
		{name: "ok", body: `{"prompt":"upscale this 4x please","hasImage":true}`, wantStatus: http.StatusOK, wantKey: "action", wantValue: "UPSCALE"},
		{name: "missing prompt", body: `{"prompt":"","hasImage":true}`, wantStatus: http.StatusBadRequest, wantKey: "error", wantValue: "Prompt is required"},
		{name: "bad json", body: `{`, wantStatus: http.StatusBadRequest, wantKey: "error", wantValue: "Invalid request body"},
		{name: "malformed", body: `{"prompt":"x"}`, interpErr: domain.ErrMalformedResponse, wantStatus: http.StatusInternalServerError, wantKey: "error", wantValue: "Failed to interpret prompt"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			interp := &stubInterpreter{result: want, err: tc.interpErr}
			a, _ := newTestApp(&stubRunner{}, interp)
			rr := httptest.NewRecorder()
			a.Interpret(rr, httptest.NewRequest(http.MethodPost, "/interpret", strings.NewReader(tc.body)))
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d (%s)", rr.Code, tc.wantStatus, rr.Body.String())
			}
			body := decodeBody(t, rr)
			if body[tc.wantKey] != tc.wantValue {
				t.Fatalf("%s = %v, want %q", tc.wantKey, body[tc.wantKey], tc.wantValue)
			}
			if tc.interpErr != nil && body["details"] == nil {
				t.Fatalf("expected details in %v", body)
			}
		})
	}
}

func TestGenerateRecordsHistory(t *testing.T) {
	runner := &stubRunner{results: map[domain.Action]*image.Result{
		domain.ActionGenerate: {ImageURL: "https://img.example/prompt/cat"},
	}}
	a, log := newTestApp(runner, &stubInterpreter{})

	rr := httptest.NewRecorder()
	a.Generate(rr, httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"cat"}`)))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body := decodeBody(t, rr)
	if body["imageUrl"] != "https://img.example/prompt/cat" || body["prompt"] != "cat" {
		t.Fatalf("body = %v", body)
	}
	items, _ := log.List(context.Background())
	if len(items) != 1 || items[0].Type != domain.HistoryGenerate || items[0].Input.Prompt != "cat" {
		t.Fatalf("history = %+v", items)
	}

	rr = httptest.NewRecorder()
	a.Generate(rr, httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(`{"prompt":"  "}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("empty prompt status = %d", rr.Code)
	}
}

func TestAnalyzeHandler(t *testing.T) {
	runner := &stubRunner{results: map[domain.Action]*image.Result{
		domain.ActionAnalyze: {Text: "a cat"},
	}}
	a, _ := newTestApp(runner, &stubInterpreter{})

	body, ctype := multipartBody(t, map[string]string{"query": "what animal?"}, []byte("png-bytes"))
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	a.Analyze(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}
	out := decodeBody(t, rr)
	if out["success"] != true || out["text"] != "a cat" {
		t.Fatalf("body = %v", out)
	}
	if got := runner.inputs[0]; got.Query != "what animal?" || got.Image == nil || got.Image.Filename != "cat.png" {
		t.Fatalf("input = %+v", got)
	}

	body, ctype = multipartBody(t, map[string]string{"query": "x"}, nil)
	req = httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", ctype)
	rr = httptest.NewRecorder()
	a.Analyze(rr, req)
	if rr.Code != http.StatusBadRequest || decodeBody(t, rr)["error"] != "No image file uploaded" {
		t.Fatalf("missing image = %d %s", rr.Code, rr.Body.String())
	}
}

func TestAnalyzeUploadTooLarge(t *testing.T) {
	a, _ := newTestApp(&stubRunner{}, &stubInterpreter{})
	a.Config.UploadMaxBytes = 256

	body, ctype := multipartBody(t, nil, bytes.Repeat([]byte("x"), 4096))
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	a.Analyze(rr, req)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestUpscaleErrors(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantError  string
	}{
		{name: "factor", err: domain.ErrInvalidUpscaleFactor, wantStatus: http.StatusBadRequest, wantError: "Invalid upscale factor"},
		{name: "format", err: domain.ErrInvalidFormat, wantStatus: http.StatusBadRequest, wantError: "Invalid format"},
		{name: "key", err: fmt.Errorf("picsart: %w", domain.ErrProviderNotConfigured), wantStatus: http.StatusInternalServerError, wantError: "Picsart API key not configured"},
		{name: "provider", err: &image.ProviderError{Provider: "picsart", Status: 502, Body: "bad gateway"}, wantStatus: http.StatusInternalServerError, wantError: "Failed to upscale image"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a, _ := newTestApp(&stubRunner{err: tc.err}, &stubInterpreter{})
			body, ctype := multipartBody(t, map[string]string{"upscale_factor": "3"}, []byte("img"))
			req := httptest.NewRequest(http.MethodPost, "/upscale", body)
			req.Header.Set("Content-Type", ctype)
			rr := httptest.NewRecorder()
			a.Upscale(rr, req)
			if rr.Code != tc.wantStatus {
				t.Fatalf("status = %d, want %d", rr.Code, tc.wantStatus)
			}
			out := decodeBody(t, rr)
			if out["error"] != tc.wantError || out["message"] == nil {
				t.Fatalf("body = %v", out)
			}
		})
	}
}

func TestUpscaleSuccess(t *testing.T) {
	raw := json.RawMessage(`{"status":"success","data":{"url":"https://cdn.example/up.jpg"}}`)
	runner := &stubRunner{results: map[domain.Action]*image.Result{
		domain.ActionUpscale: {ImageURL: "https://cdn.example/up.jpg", Raw: raw},
	}}
	a, log := newTestApp(runner, &stubInterpreter{})

	body, ctype := multipartBody(t, map[string]string{"upscale_factor": "4", "format": "PNG"}, []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/upscale", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	a.Upscale(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}
	var out struct {
		Success bool `json:"success"`
		Data    struct {
			Status string `json:"status"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !out.Success || out.Data.Status != "success" {
		t.Fatalf("body = %s", rr.Body.String())
	}
	if in := runner.inputs[0]; in.UpscaleFactor != "4" || in.Format != "PNG" {
		t.Fatalf("input = %+v", in)
	}
	items, _ := log.List(context.Background())
	if len(items) != 1 || items[0].Input.Factor != "4" {
		t.Fatalf("history = %+v", items)
	}
}

func TestRemoveBackgroundAttachment(t *testing.T) {
	png := []byte("\x89PNG-fake")
	runner := &stubRunner{results: map[domain.Action]*image.Result{
		domain.ActionRemoveBackground: {Data: png, MIME: "image/png"},
	}}
	a, log := newTestApp(runner, &stubInterpreter{})

	body, ctype := multipartBody(t, nil, []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/bgRemove", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	a.RemoveBackground(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d (%s)", rr.Code, rr.Body.String())
	}
	if got := rr.Header().Get("Content-Disposition"); got != `attachment; filename="no-bg.png"` {
		t.Fatalf("disposition = %q", got)
	}
	if rr.Header().Get("Content-Type") != "image/png" || !bytes.Equal(rr.Body.Bytes(), png) {
		t.Fatalf("unexpected payload")
	}
	items, _ := log.List(context.Background())
	if len(items) != 1 || items[0].Type != domain.HistoryBgRemove || items[0].Output.ImageURL == "" {
		t.Fatalf("history = %+v", items)
	}
}

func TestRemoveBackgroundNotConfigured(t *testing.T) {
	a, _ := newTestApp(&stubRunner{err: domain.ErrProviderNotConfigured}, &stubInterpreter{})
	body, ctype := multipartBody(t, nil, []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/bgRemove", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	a.RemoveBackground(rr, req)
	out := decodeBody(t, rr)
	if rr.Code != http.StatusInternalServerError || out["error"] != "Remove.bg API key not configured" {
		t.Fatalf("got %d %v", rr.Code, out)
	}
}

func TestPlaygroundHandler(t *testing.T) {
	runner := &stubRunner{results: map[domain.Action]*image.Result{
		domain.ActionGenerate: {ImageURL: "https://img.example/prompt/city"},
		domain.ActionUpscale:  {ImageURL: "https://cdn.example/up.jpg"},
	}}
	interp := &stubInterpreter{result: &domain.InterpretationResult{
		Action:     domain.ActionUpscale,
		Reasoning:  "4x",
		Parameters: domain.InterpretationParameters{UpscaleFactor: "4", Format: "JPG"},
	}}
	a, _ := newTestApp(runner, interp)

	t.Run("json prompt only", func(t *testing.T) {
		rr := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/playground", strings.NewReader(`{"prompt":"a city at night"}`))
		req.Header.Set("Content-Type", "application/json")
		a.RunPlayground(rr, req)
		out := decodeBody(t, rr)
		if rr.Code != http.StatusOK || out["action"] != "GENERATE" || out["imageUrl"] != "https://img.example/prompt/city" {
			t.Fatalf("got %d %v", rr.Code, out)
		}
	})

	t.Run("multipart prompt and image", func(t *testing.T) {
		body, ctype := multipartBody(t, map[string]string{"prompt": "upscale this 4x please"}, []byte("img"))
		req := httptest.NewRequest(http.MethodPost, "/playground", body)
		req.Header.Set("Content-Type", ctype)
		rr := httptest.NewRecorder()
		a.RunPlayground(rr, req)
		out := decodeBody(t, rr)
		if rr.Code != http.StatusOK || out["action"] != "UPSCALE" || out["interpretation"] == nil {
			t.Fatalf("got %d %v", rr.Code, out)
		}
		if !interp.got.HasImage {
			t.Fatal("interpreter should see the image")
		}
	})

	t.Run("nothing to do", func(t *testing.T) {
		rr := httptest.NewRecorder()
		a.RunPlayground(rr, httptest.NewRequest(http.MethodPost, "/playground", strings.NewReader(`{}`)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rr.Code)
		}
	})

	t.Run("unknown option", func(t *testing.T) {
		rr := httptest.NewRecorder()
		a.RunPlayground(rr, httptest.NewRequest(http.MethodPost, "/playground", strings.NewReader(`{"prompt":"x","option":"DELETE_EVERYTHING"}`)))
		if rr.Code != http.StatusBadRequest {
			t.Fatalf("status = %d", rr.Code)
		}
	})
}

func withURLParam(r *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func TestHistoryRoutes(t *testing.T) {
	a, _ := newTestApp(&stubRunner{}, &stubInterpreter{})

	rr := httptest.NewRecorder()
	a.ListHistory(rr, httptest.NewRequest(http.MethodGet, "/history", nil))
	if rr.Body.String() != "{\"items\":[]}\n" {
		t.Fatalf("empty list = %q", rr.Body.String())
	}

	rr = httptest.NewRecorder()
	a.SaveHistory(rr, httptest.NewRequest(http.MethodPost, "/history", strings.NewReader(`{"type":"video"}`)))
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("invalid type status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	a.SaveHistory(rr, httptest.NewRequest(http.MethodPost, "/history", strings.NewReader(`{"id":"client","type":"analyze","input":{"query":"q"},"output":{"text":"t"}}`)))
	if rr.Code != http.StatusCreated {
		t.Fatalf("save status = %d (%s)", rr.Code, rr.Body.String())
	}
	var saved domain.HistoryItem
	if err := json.Unmarshal(rr.Body.Bytes(), &saved); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if saved.ID == "" || saved.ID == "client" || saved.Timestamp == 0 {
		t.Fatalf("saved = %+v", saved)
	}

	rr = httptest.NewRecorder()
	a.DeleteHistory(rr, withURLParam(httptest.NewRequest(http.MethodDelete, "/history/missing", nil), "id", "missing"))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("missing delete status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	a.DeleteHistory(rr, withURLParam(httptest.NewRequest(http.MethodDelete, "/history/"+saved.ID, nil), "id", saved.ID))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	a.ClearHistory(rr, httptest.NewRequest(http.MethodDelete, "/history", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("clear status = %d", rr.Code)
	}
}

func TestHistoryNotConfigured(t *testing.T) {
	a := &App{Logger: zerolog.Nop()}
	rr := httptest.NewRecorder()
	a.ListHistory(rr, httptest.NewRequest(http.MethodGet, "/history", nil))
	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d", rr.Code)
	}
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		domain.ErrNothingToDo:                  http.StatusBadRequest,
		domain.ErrUnsupportedImage:             http.StatusBadRequest,
		&history.NotFoundError{ID: "x"}:        http.StatusNotFound,
		domain.ErrCollaboratorUnavailable:      http.StatusInternalServerError,
		errors.New("boom"):                     http.StatusInternalServerError,
		fmt.Errorf("x: %w", errUploadTooLarge): http.StatusRequestEntityTooLarge,
	}
	for err, want := range cases {
		if got := statusFor(err); got != want {
			t.Errorf("statusFor(%v) = %d, want %d", err, got, want)
		}
	}
}

func TestOpenAPIDocument(t *testing.T) {
	a := &App{}
	rr := httptest.NewRecorder()
	a.OpenAPIJSON(rr, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &doc); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, p := range []string{"/interpret", "/generate", "/analyze", "/upscale", "/bgRemove", "/playground", "/history", "/history/{id}"} {
		if _, ok := doc.Paths[p]; !ok {
			t.Errorf("missing path %s", p)
		}
	}
}

func TestAnalyzeNotConfiguredNamesKeyVariable(t *testing.T) {
	a, _ := newTestApp(&stubRunner{err: fmt.Errorf("gemini: %w", domain.ErrProviderNotConfigured)}, &stubInterpreter{})
	body, ctype := multipartBody(t, nil, []byte("img"))
	req := httptest.NewRequest(http.MethodPost, "/analyze", body)
	req.Header.Set("Content-Type", ctype)
	rr := httptest.NewRecorder()
	a.Analyze(rr, req)
	out := decodeBody(t, rr)
	if rr.Code != http.StatusInternalServerError || out["error"] != "Gemini API key not configured" {
		t.Fatalf("got %d %v", rr.Code, out)
	}
	if out["message"] != "Please set GOOGLE_API_KEY in environment variables" {
		t.Fatalf("message = %v", out["message"])
	}
}
