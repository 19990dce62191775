// Package images prepares uploaded inspection photos for inline transport.
package images

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/disintegration/imaging"

	errx "github.com/opsdesk/reportgen/internal/core/error"
	"github.com/opsdesk/reportgen/internal/report/model"
)

const (
	// MaxWidth is the widest image sent to the generation service.
	MaxWidth = 1280
	// JPEGQuality is the re-encoding quality.
	JPEGQuality = 90
	// MIMEType is the format tag of every normalised image.
	MIMEType = "image/jpeg"
	// MaxPixels bounds the decoded raster to keep memory predictable.
	MaxPixels = 50_000_000
)

// Normalize decodes data, flattens any alpha onto white, scales it down to
// MaxWidth when wider, and re-encodes it as JPEG. The width bound applies to
// the stored pixel frame; EXIF orientation tags are not applied. Any decode
// failure is an ImageDecode error; no partial image is ever returned.
func Normalize(data []byte) (model.InlineImage, error) {
	if len(data) == 0 {
		return model.InlineImage{}, errx.ImageDecode(errors.New("empty image payload"))
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return model.InlineImage{}, errx.ImageDecode(fmt.Errorf("read image header: %w", err))
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return model.InlineImage{}, errx.ImageDecode(fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height))
	}
	if cfg.Width*cfg.Height > MaxPixels {
		return model.InlineImage{}, errx.ImageDecode(fmt.Errorf("image too large: %dx%d", cfg.Width, cfg.Height))
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return model.InlineImage{}, errx.ImageDecode(fmt.Errorf("decode image: %w", err))
	}

	width, height := img.Bounds().Dx(), img.Bounds().Dy()
	var out image.Image = imaging.Overlay(imaging.New(width, height, color.White), img, image.Pt(0, 0), 1.0)

	if width > MaxWidth {
		width, height = MaxWidth, ScaledHeight(width, height, MaxWidth)
		out = imaging.Resize(out, width, height, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, out, imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return model.InlineImage{}, errx.ImageDecode(fmt.Errorf("encode jpeg: %w", err))
	}

	return model.InlineImage{
		MIMEType: MIMEType,
		Data:     buf.Bytes(),
		Width:    width,
		Height:   height,
	}, nil
}

// ScaledHeight returns round(height * targetWidth / width), never below 1.
func ScaledHeight(width, height, targetWidth int) int {
	h := int(math.Round(float64(height) * float64(targetWidth) / float64(width)))
	if h < 1 {
		return 1
	}
	return h
}
