package image

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"

	"playground/internal/domain"
)

// ProviderError is a non-2xx answer from a SaaS provider.
type ProviderError struct {
	Provider string
	Status   int
	Body     string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("%s api error: %d - %s", e.Provider, e.Status, e.Body)
}

func (e *ProviderError) Unwrap() error { return domain.ErrProviderFailure }

type formField struct {
	name  string
	value string
}

type formFile struct {
	field string
	image *SourceImage
}

type providerResponse struct {
	status      int
	contentType string
	body        []byte
}

// postMultipart sends fields followed by the file and returns the raw body.
// Non-2xx statuses are reported as *ProviderError.
func postMultipart(ctx context.Context, client *http.Client, provider, endpoint string, headers map[string]string, fields []formField, file formFile) (*providerResponse, error) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	for _, f := range fields {
		if err := writer.WriteField(f.name, f.value); err != nil {
			return nil, fmt.Errorf("%s: write field %s: %w", provider, f.name, err)
		}
	}
	if err := writeFilePart(writer, file); err != nil {
		return nil, fmt.Errorf("%s: write file: %w", provider, err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("%s: close form: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &buf)
	if err != nil {
		return nil, fmt.Errorf("%s: build request: %w", provider, err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: http request: %v", domain.ErrProviderFailure, provider, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: read response: %v", domain.ErrProviderFailure, provider, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &ProviderError{Provider: provider, Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	return &providerResponse{
		status:      resp.StatusCode,
		contentType: resp.Header.Get("Content-Type"),
		body:        raw,
	}, nil
}

func writeFilePart(writer *multipart.Writer, file formFile) error {
	filename := file.image.Filename
	if filename == "" {
		filename = "blob"
	}
	mime := file.image.MIME
	if mime == "" {
		mime = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, file.field, filename))
	h.Set("Content-Type", mime)
	part, err := writer.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = part.Write(file.image.Data)
	return err
}
