package media

import (
	"context"
	"encoding/base64"
	"net/http"
	"strings"

	"whatsapp-lite/internal/apperr"
)

// MaxImageBytes caps a decoded image payload.
const MaxImageBytes = 10 << 20

// ImageStore turns a client supplied image payload into the reference stored on the message.
type ImageStore interface {
	Store(ctx context.Context, ownerID int64, payload string) (string, error)
}

var extensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
}

// Image is a decoded image payload.
type Image struct {
	ContentType string
	Data        []byte
}

func (i Image) Extension() string {
	return extensions[i.ContentType]
}

// IsReference reports whether payload already points at stored media.
func IsReference(payload string) bool {
	return strings.HasPrefix(payload, "http://") || strings.HasPrefix(payload, "https://")
}

// Decode accepts raw base64 or a data URL and checks that it holds a supported image.
func Decode(payload string) (Image, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return Image{}, apperr.Validation("image data is required for image messages")
	}

	declared := ""
	if strings.HasPrefix(payload, "data:") {
		header, body, ok := strings.Cut(payload, ",")
		if !ok || !strings.HasSuffix(header, ";base64") {
			return Image{}, apperr.Validation("image must be a base64 data url")
		}
		declared = strings.TrimSuffix(strings.TrimPrefix(header, "data:"), ";base64")
		payload = body
	}

	if base64.StdEncoding.DecodedLen(len(payload)) > MaxImageBytes+3 {
		return Image{}, apperr.Validation("image exceeds 10MB")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, apperr.Validation("image is not valid base64")
	}
	if len(data) > MaxImageBytes {
		return Image{}, apperr.Validation("image exceeds 10MB")
	}

	contentType := http.DetectContentType(data)
	if _, ok := extensions[contentType]; !ok {
		return Image{}, apperr.Validation("unsupported image type")
	}
	if declared != "" && declared != contentType && !(declared == "image/jpg" && contentType == "image/jpeg") {
		return Image{}, apperr.Validation("image type does not match its content")
	}
	return Image{ContentType: contentType, Data: data}, nil
}

// InlineStore keeps the payload on the message row itself.
type InlineStore struct{}

func (InlineStore) Store(ctx context.Context, ownerID int64, payload string) (string, error) {
	if IsReference(payload) {
		return payload, nil
	}
	if _, err := Decode(payload); err != nil {
		return "", err
	}
	return strings.TrimSpace(payload), nil
}
