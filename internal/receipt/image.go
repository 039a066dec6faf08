package receipt

import (
	"bytes"
	"encoding/base64"
	"errors"
	"image/jpeg"
	"image/png"
	"strings"

	"github.com/tiibntick/service-expedition/internal/platform/apperr"
)

// Image is a decoded data URL.
type Image struct {
	Type string // fpdf image type: PNG or JPG
	Data []byte
}

// DecodeDataURL parses data:image/png;base64,... and data:image/jpeg;base64,...
// payloads and checks that the image header decodes.
func DecodeDataURL(s string) (Image, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(s), "data:")
	if !ok {
		return Image{}, apperr.NewRenderError("image is not a data URL", nil)
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return Image{}, apperr.NewRenderError("data URL has no payload", nil)
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return Image{}, apperr.NewRenderError("data URL is not base64 encoded", nil)
	}

	var imgType string
	switch strings.ToLower(mime) {
	case "image/png":
		imgType = "PNG"
	case "image/jpeg", "image/jpg":
		imgType = "JPG"
	default:
		return Image{}, apperr.NewRenderError("unsupported image type "+mime, nil)
	}

	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return Image{}, apperr.NewRenderError("invalid base64 image", err)
	}
	if len(data) == 0 {
		return Image{}, apperr.NewRenderError("empty image", errors.New("no bytes"))
	}

	decodeConfig := png.DecodeConfig
	if imgType == "JPG" {
		decodeConfig = jpeg.DecodeConfig
	}
	if _, err := decodeConfig(bytes.NewReader(data)); err != nil {
		return Image{}, apperr.NewRenderError("unreadable "+mime+" image", err)
	}
	return Image{Type: imgType, Data: data}, nil
}
