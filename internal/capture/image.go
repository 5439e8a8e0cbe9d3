// Package capture acquires still images from a camera or an uploaded file and
// normalizes both into a single EncodedImage representation.
package capture

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/xiangxin/internal/apperrors"
	"github.com/kozaktomas/xiangxin/internal/constants"
)

// MIMETypeJPEG is the MIME type of every normalized capture.
const MIMETypeJPEG = "image/jpeg"

// EncodedImage is an immutable encoded capture. Both acquisition paths produce
// JPEG so callers never need to know where an image came from.
type EncodedImage struct {
	Data     []byte
	MIMEType string
	Width    int
	Height   int
}

// Base64 returns the payload as standard base64 without a data-URI prefix.
func (e EncodedImage) Base64() string {
	return base64.StdEncoding.EncodeToString(e.Data)
}

// DataURL returns the payload as a data URI.
func (e EncodedImage) DataURL() string {
	return fmt.Sprintf("data:%s;base64,%s", e.MIMEType, e.Base64())
}

// Empty reports whether the image carries no data.
func (e EncodedImage) Empty() bool {
	return len(e.Data) == 0
}

// Normalize decodes data and re-encodes it as JPEG with its long side capped
// at maxSize, keeping aspect ratio.
func Normalize(data []byte, maxSize int) (EncodedImage, error) {
	img, err := decodeBounded(data)
	if err != nil {
		return EncodedImage{}, err
	}
	return encode(fit(img, maxSize, maxSize))
}

// decodeBounded decodes data, rejecting images over constants.MaxImagePixels
// from their header before any bitmap is allocated.
func decodeBounded(data []byte) (image.Image, error) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Decode("the file is not a supported image", err)
	}
	if int64(cfg.Width)*int64(cfg.Height) > constants.MaxImagePixels {
		return nil, apperrors.Decode(
			fmt.Sprintf("the image is too large (%dx%d)", cfg.Width, cfg.Height), nil)
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, apperrors.Decode("the file is not a supported image", err)
	}
	return img, nil
}

// fit scales img down so it fits within maxWidth x maxHeight. Images that
// already fit are returned unchanged.
func fit(img image.Image, maxWidth, maxHeight int) image.Image {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()

	if width <= maxWidth && height <= maxHeight {
		return img
	}

	scale := min(float64(maxWidth)/float64(width), float64(maxHeight)/float64(height))
	newWidth := max(1, int(float64(width)*scale))
	newHeight := max(1, int(float64(height)*scale))

	resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
	draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
	return resized
}

func encode(img image.Image) (EncodedImage, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: constants.JPEGQuality}); err != nil {
		return EncodedImage{}, fmt.Errorf("failed to encode image: %w", err)
	}
	bounds := img.Bounds()
	return EncodedImage{
		Data:     buf.Bytes(),
		MIMEType: MIMETypeJPEG,
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
	}, nil
}
