package image

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"playground/internal/domain"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) { return f(req) }

type capturedForm struct {
	path    string
	headers http.Header
	fields  map[string]string
	files   map[string][]byte
	mimes   map[string]string
	names   map[string]string
}

func captureMultipart(t *testing.T, r *http.Request) capturedForm {
	t.Helper()
	out := capturedForm{
		path:    r.URL.Path,
		headers: r.Header.Clone(),
		fields:  map[string]string{},
		files:   map[string][]byte{},
		mimes:   map[string]string{},
		names:   map[string]string{},
	}
	_, params, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		t.Errorf("content type: %v", err)
		return out
	}
	reader := multipart.NewReader(r.Body, params["boundary"])
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			t.Errorf("next part: %v", err)
			return out
		}
		data, _ := io.ReadAll(part)
		if part.FileName() != "" {
			out.files[part.FormName()] = data
			out.mimes[part.FormName()] = part.Header.Get("Content-Type")
			out.names[part.FormName()] = part.FileName()
			continue
		}
		out.fields[part.FormName()] = string(data)
	}
	return out
}

func pngImage(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 4))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
	return buf.Bytes()
}

func TestPollinationsGeneratorEscapesPrompt(t *testing.T) {
	gen := NewPollinationsGenerator("")
	res, err := gen.Execute(context.Background(), Input{Query: "a cat & dog (at night)!"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := "https://image.pollinations.ai/prompt/a%20cat%20%26%20dog%20(at%20night)!"
	if res.ImageURL != want {
		t.Fatalf("url = %q, want %q", res.ImageURL, want)
	}
}

func TestPollinationsGeneratorEscapesSlashesAndUnicode(t *testing.T) {
	gen := NewPollinationsGenerator("http://example.test/")
	got := gen.URLFor("50/50 café?")
	want := "http://example.test/prompt/50%2F50%20caf%C3%A9%3F"
	if got != want {
		t.Fatalf("url = %q, want %q", got, want)
	}
}

func TestPollinationsGeneratorRequiresPrompt(t *testing.T) {
	_, err := NewPollinationsGenerator("").Execute(context.Background(), Input{Query: "  "})
	if !errors.Is(err, domain.ErrEmptyPrompt) {
		t.Fatalf("err = %v, want ErrEmptyPrompt", err)
	}
}

type stubDescriber struct {
	data  []byte
	mime  string
	query string
	text  string
	err   error
}

func (s *stubDescriber) Describe(_ context.Context, data []byte, mime, query string) (string, error) {
	s.data, s.mime, s.query = data, mime, query
	return s.text, s.err
}

func TestGeminiAnalyzerDefaultsQueryAndReencodes(t *testing.T) {
	stub := &stubDescriber{text: "a red dot"}
	analyzer := NewGeminiAnalyzer(stub, AnalyzerOptions{MaxDimension: 1024, JPEGQuality: 80})
	res, err := analyzer.Execute(context.Background(), Input{Image: &SourceImage{Data: pngImage(t), MIME: "image/png"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Text != "a red dot" {
		t.Fatalf("text = %q", res.Text)
	}
	if stub.query != DefaultAnalyzeQuery {
		t.Fatalf("query = %q", stub.query)
	}
	if stub.mime != "image/jpeg" || len(stub.data) < 2 || stub.data[0] != 0xff || stub.data[1] != 0xd8 {
		t.Fatalf("image not re-encoded as jpeg (mime %q)", stub.mime)
	}
}

func TestGeminiAnalyzerErrors(t *testing.T) {
	tests := []struct {
		name     string
		describe Describer
		in       Input
		want     error
	}{
		{name: "no image", describe: &stubDescriber{}, in: Input{}, want: domain.ErrMissingImage},
		{name: "not configured", describe: nil, in: Input{Image: &SourceImage{Data: []byte{1}}}, want: domain.ErrProviderNotConfigured},
		{name: "garbage", describe: &stubDescriber{}, in: Input{Image: &SourceImage{Data: []byte("nope")}}, want: domain.ErrUnsupportedImage},
		{name: "provider", describe: &stubDescriber{err: errors.New("quota")}, in: Input{Image: &SourceImage{Data: pngImage(t)}}, want: domain.ErrProviderFailure},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewGeminiAnalyzer(tc.describe, AnalyzerOptions{}).Execute(context.Background(), tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPicsartUpscalerPostsForm(t *testing.T) {
	var got capturedForm
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = captureMultipart(t, r)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"status":"success","data":{"id":"abc","url":"https://cdn.picsart.io/abc.jpg"}}`)
	}))
	defer srv.Close()

	up := NewPicsartUpscaler(ProviderOptions{APIKey: "pk", BaseURL: srv.URL, HTTPClient: srv.Client()})
	res, err := up.Execute(context.Background(), Input{
		Image:         &SourceImage{Data: []byte("img"), MIME: "image/png", Filename: "cat.png"},
		UpscaleFactor: "4",
		Format:        "png",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.ImageURL != "https://cdn.picsart.io/abc.jpg" {
		t.Fatalf("url = %q", res.ImageURL)
	}
	if !strings.Contains(string(res.Raw), `"id":"abc"`) {
		t.Fatalf("raw = %s", res.Raw)
	}
	if got.path != "/upscale" || got.headers.Get("X-Picsart-API-Key") != "pk" {
		t.Fatalf("path=%q key=%q", got.path, got.headers.Get("X-Picsart-API-Key"))
	}
	if got.fields["upscale_factor"] != "4" || got.fields["format"] != "PNG" {
		t.Fatalf("fields = %v", got.fields)
	}
	if string(got.files["image"]) != "img" || got.names["image"] != "cat.png" || got.mimes["image"] != "image/png" {
		t.Fatalf("file part mismatch: %q %q %q", got.files["image"], got.names["image"], got.mimes["image"])
	}
}

func TestPicsartUpscalerDefaults(t *testing.T) {
	var got capturedForm
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		got = captureMultipart(t, r)
		return &http.Response{
			StatusCode: http.StatusOK,
			Header:     http.Header{"Content-Type": []string{"application/json"}},
			Body:       io.NopCloser(strings.NewReader(`{"data":{"url":"u"}}`)),
		}, nil
	})}
	up := NewPicsartUpscaler(ProviderOptions{APIKey: "pk", HTTPClient: client})
	if _, err := up.Execute(context.Background(), Input{Image: &SourceImage{Data: []byte("x")}}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got.fields["upscale_factor"] != domain.DefaultUpscaleFactor || got.fields["format"] != domain.DefaultUpscaleFormat {
		t.Fatalf("fields = %v", got.fields)
	}
}

func TestPicsartUpscalerValidation(t *testing.T) {
	img := &SourceImage{Data: []byte("x")}
	tests := []struct {
		name string
		key  string
		in   Input
		want error
	}{
		{name: "no image", key: "pk", in: Input{}, want: domain.ErrMissingImage},
		{name: "no key", key: "", in: Input{Image: img}, want: domain.ErrProviderNotConfigured},
		{name: "factor 3", key: "pk", in: Input{Image: img, UpscaleFactor: "3"}, want: domain.ErrInvalidUpscaleFactor},
		{name: "factor 16", key: "pk", in: Input{Image: img, UpscaleFactor: "16"}, want: domain.ErrInvalidUpscaleFactor},
		{name: "gif", key: "pk", in: Input{Image: img, Format: "GIF"}, want: domain.ErrInvalidFormat},
	}
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		t.Fatalf("provider must not be called")
		return nil, nil
	})}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			up := NewPicsartUpscaler(ProviderOptions{APIKey: tc.key, HTTPClient: client})
			_, err := up.Execute(context.Background(), tc.in)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestPicsartUpscalerProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"message":"bad key"}`)
	}))
	defer srv.Close()

	up := NewPicsartUpscaler(ProviderOptions{APIKey: "pk", BaseURL: srv.URL})
	_, err := up.Execute(context.Background(), Input{Image: &SourceImage{Data: []byte("x")}})
	var perr *ProviderError
	if !errors.As(err, &perr) || perr.Status != http.StatusUnauthorized {
		t.Fatalf("err = %v, want ProviderError 401", err)
	}
	if !errors.Is(err, domain.ErrProviderFailure) {
		t.Fatalf("err does not match ErrProviderFailure")
	}
}

func TestRemoveBGClientReturnsPNG(t *testing.T) {
	var got capturedForm
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = captureMultipart(t, r)
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write([]byte("\x89PNG-bytes"))
	}))
	defer srv.Close()

	rb := NewRemoveBGClient(ProviderOptions{APIKey: "rk", BaseURL: srv.URL + "/"})
	res, err := rb.Execute(context.Background(), Input{Image: &SourceImage{Data: []byte("photo"), MIME: "image/jpeg"}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if string(res.Data) != "\x89PNG-bytes" || res.MIME != RemoveBGMIME {
		t.Fatalf("result = %q %q", res.Data, res.MIME)
	}
	if got.path != "/removebg" || got.headers.Get("X-Api-Key") != "rk" {
		t.Fatalf("path=%q key=%q", got.path, got.headers.Get("X-Api-Key"))
	}
	if got.fields["size"] != "auto" || string(got.files["image_file"]) != "photo" {
		t.Fatalf("form = %v %q", got.fields, got.files["image_file"])
	}
}

func TestRemoveBGClientNotConfigured(t *testing.T) {
	_, err := NewRemoveBGClient(ProviderOptions{}).Execute(context.Background(), Input{Image: &SourceImage{Data: []byte("x")}})
	if !errors.Is(err, domain.ErrProviderNotConfigured) {
		t.Fatalf("err = %v", err)
	}
}

type stubOperation struct {
	action domain.Action
	in     Input
	calls  int
}

func (s *stubOperation) Action() domain.Action { return s.action }

func (s *stubOperation) Execute(_ context.Context, in Input) (*Result, error) {
	s.calls++
	s.in = in
	return &Result{Text: "ok"}, nil
}

func TestOperationsRun(t *testing.T) {
	analyze := &stubOperation{action: domain.ActionAnalyze}
	ops := NewOperations(analyze, nil)

	res, err := ops.Run(context.Background(), domain.ActionAnalyze, Input{Query: "q"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Action != domain.ActionAnalyze || analyze.calls != 1 || analyze.in.Query != "q" {
		t.Fatalf("unexpected dispatch: %+v calls=%d", res, analyze.calls)
	}

	if _, err := ops.Run(context.Background(), domain.ActionUpscale, Input{}); !errors.Is(err, domain.ErrUnsupportedAction) {
		t.Fatalf("err = %v, want ErrUnsupportedAction", err)
	}
}
