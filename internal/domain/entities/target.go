package entities

import (
	"encoding/base64"
	"fmt"
	"strings"
)

var imageMediaTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/gif":  true,
	"image/webp": true,
}

// AnalysisTarget is what the personas look at: a URL, a screenshot, or both
type AnalysisTarget struct {
	URL            string `json:"url,omitempty" validate:"omitempty,url"`
	ImageBase64    string `json:"image_base64,omitempty"`
	ImageMediaType string `json:"image_media_type,omitempty"`
	// Snapshot is optional extracted page text shown alongside the URL
	Snapshot string `json:"-"`
}

// HasImage reports whether a screenshot is attached
func (t AnalysisTarget) HasImage() bool {
	return t.ImageBase64 != ""
}

// ImageData returns the base64 payload without any data: URL prefix
func (t AnalysisTarget) ImageData() string {
	data := strings.TrimSpace(t.ImageBase64)
	if strings.HasPrefix(data, "data:") {
		if idx := strings.Index(data, ","); idx >= 0 {
			data = data[idx+1:]
		}
	}
	return data
}

// Validate checks that there is something to look at and the image decodes
func (t AnalysisTarget) Validate() error {
	if strings.TrimSpace(t.URL) == "" && !t.HasImage() {
		return fmt.Errorf("%w: url or image is required", ErrInvalidTarget)
	}
	if !t.HasImage() {
		return nil
	}
	if !imageMediaTypes[strings.ToLower(t.ImageMediaType)] {
		return fmt.Errorf("%w: unsupported image media type %q", ErrInvalidTarget, t.ImageMediaType)
	}
	if _, err := base64.StdEncoding.DecodeString(t.ImageData()); err != nil {
		return fmt.Errorf("%w: image is not valid base64", ErrInvalidTarget)
	}
	return nil
}
