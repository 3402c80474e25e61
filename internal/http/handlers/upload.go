package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"playground/internal/domain"
	"playground/internal/providers/image"
)

const (
	defaultUploadMaxBytes = 10 << 20
	imageField            = "image"
	multipartMemory       = 8 << 20
)

var errUploadTooLarge = errors.New("upload too large")

func isMultipart(r *http.Request) bool {
	return strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data")
}

// parseUpload parses a multipart body bounded by the configured upload limit
// and returns the image part, or nil when the form carries no image.
func (a *App) parseUpload(w http.ResponseWriter, r *http.Request) (*image.SourceImage, error) {
	r.Body = http.MaxBytesReader(w, r.Body, a.maxUploadBytes())
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || strings.Contains(err.Error(), "request body too large") {
			return nil, fmt.Errorf("%w: limit %d bytes", errUploadTooLarge, a.maxUploadBytes())
		}
		if errors.Is(err, http.ErrNotMultipart) {
			return nil, domain.ErrMissingImage
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMissingImage, err)
	}

	file, header, err := r.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrMissingImage, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, nil
	}
	mime := header.Header.Get("Content-Type")
	if mime == "" || mime == "application/octet-stream" {
		mime = http.DetectContentType(data)
	}
	return &image.SourceImage{Data: data, MIME: mime, Filename: header.Filename}, nil
}

// requireUpload is parseUpload for routes where the image is mandatory.
func (a *App) requireUpload(w http.ResponseWriter, r *http.Request) (*image.SourceImage, bool) {
	img, err := a.parseUpload(w, r)
	if err == nil && img == nil {
		err = domain.ErrMissingImage
	}
	if err != nil {
		if errors.Is(err, errUploadTooLarge) {
			a.fail(w, http.StatusRequestEntityTooLarge, "Image too large", err.Error())
			return nil, false
		}
		a.json(w, http.StatusBadRequest, errorBody{Error: "No image file uploaded"})
		return nil, false
	}
	return img, true
}
