// Package imageprep decodes uploaded menu images and re-encodes them as
// compact JPEGs suitable for inline submission to the vision model.
package imageprep

import (
	"bytes"
	"image"
	"image/jpeg"
	_ "image/png" // register PNG decoder for image.Decode

	"github.com/rs/zerolog/log"
	"golang.org/x/image/draw"

	"menucritic/internal/failure"
)

// qualityLadder is the descending JPEG quality sequence tried until the
// encoded image fits under the target byte ceiling.
var qualityLadder = []int{90, 85, 78, 72, 65, 58, 50}

// Encoded is a preprocessed image ready for the model: always JPEG.
type Encoded struct {
	Data    []byte
	Width   int
	Height  int
	Quality int
}

// MIMEType returns the inline-data MIME type for the encoded image.
func (e *Encoded) MIMEType() string { return "image/jpeg" }

// Preprocessor validates, downscales, and re-encodes menu photos.
type Preprocessor struct {
	// MaxUploadBytes is the hard ceiling on the raw upload.
	MaxUploadBytes int64
	// TargetBytes is the ceiling the re-encoded JPEG must fit under.
	TargetBytes int
	// MaxDimension bounds the longest edge after downscaling.
	MaxDimension int
}

// Prepare converts raw upload bytes into an Encoded payload.
// All failures map to the image-parse category: the caller never needs to
// distinguish a corrupt file from an oversized one.
func (p *Preprocessor) Prepare(data []byte) (*Encoded, *failure.Report) {
	if len(data) == 0 {
		return nil, failure.New(failure.ImageParseFailure, "no image uploaded")
	}
	if int64(len(data)) > p.MaxUploadBytes {
		log.Warn().
			Int("size", len(data)).
			Int64("limit", p.MaxUploadBytes).
			Msg("Rejected image upload over size limit")
		return nil, failure.Newf(failure.ImageParseFailure,
			"image is too large (%.1f MB); the limit is %d MB",
			float64(len(data))/(1024*1024), p.MaxUploadBytes/(1024*1024))
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, failure.Newf(failure.ImageParseFailure, "could not decode image: %v", err)
	}

	img := flattenToRGBA(src)
	bounds := img.Bounds()
	origWidth, origHeight := bounds.Dx(), bounds.Dy()

	newWidth, newHeight := fitDimensions(origWidth, origHeight, p.MaxDimension)
	if newWidth != origWidth || newHeight != origHeight {
		resized := image.NewRGBA(image.Rect(0, 0, newWidth, newHeight))
		draw.CatmullRom.Scale(resized, resized.Bounds(), img, bounds, draw.Over, nil)
		img = resized
	}

	var buf bytes.Buffer
	usedQuality := qualityLadder[0]
	for _, quality := range qualityLadder {
		buf.Reset()
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, failure.Newf(failure.ImageParseFailure, "could not re-encode image: %v", err)
		}
		usedQuality = quality
		if buf.Len() <= p.TargetBytes {
			break
		}
	}

	if buf.Len() > p.TargetBytes {
		log.Warn().
			Int("size", buf.Len()).
			Int("target", p.TargetBytes).
			Msg("Image remained too large after compression")
		return nil, failure.New(failure.ImageParseFailure,
			"image is still too large after resize and compression; try a smaller or cropped image, or paste the menu text instead")
	}

	log.Debug().
		Str("sourceFormat", format).
		Int("origWidth", origWidth).
		Int("origHeight", origHeight).
		Int("width", newWidth).
		Int("height", newHeight).
		Int("quality", usedQuality).
		Int("bytes", buf.Len()).
		Msg("Image preprocessing complete")

	return &Encoded{
		Data:    append([]byte(nil), buf.Bytes()...),
		Width:   newWidth,
		Height:  newHeight,
		Quality: usedQuality,
	}, nil
}

// flattenToRGBA composites the image over a white background, dropping any
// alpha channel. JPEG has no transparency; without this, transparent menu
// scans come out black.
func flattenToRGBA(src image.Image) *image.RGBA {
	bounds := src.Bounds()
	out := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, out.Bounds(), src, bounds.Min, draw.Over)
	return out
}

// fitDimensions calculates downscaled dimensions maintaining aspect ratio.
// Images already within maxDimension keep their original size.
func fitDimensions(width, height, maxDimension int) (int, int) {
	if width <= maxDimension && height <= maxDimension {
		return width, height
	}

	if width > height {
		newWidth := maxDimension
		newHeight := int(float64(height) * float64(maxDimension) / float64(width))
		if newHeight < 1 {
			newHeight = 1
		}
		return newWidth, newHeight
	}

	newHeight := maxDimension
	newWidth := int(float64(width) * float64(maxDimension) / float64(height))
	if newWidth < 1 {
		newWidth = 1
	}
	return newWidth, newHeight
}
