package sanitizer

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	// Decoders for the supported raster set.
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/disintegration/imaging"
)

var (
	errEmptyPayload   = errors.New("empty payload")
	errNotRaster      = errors.New("not a supported raster type")
	errEmptyEncoding  = errors.New("encoder produced no bytes")
	errZeroDimensions = errors.New("image has zero dimensions")
	errTooManyPixels  = errors.New("image exceeds pixel limit")
)

// Transform decodes a raster upload, resizes it into the configured box,
// optionally adds noise and re-encodes it as JPEG from pixels only. No source
// container metadata survives the re-encode.
func (s *Sanitizer) Transform(ctx context.Context, raw RawUpload, opts Options) (*Result, error) {
	mimeType := resolveMimeType(raw.MimeType, raw.Data)
	if !IsRaster(mimeType) {
		return nil, &DecodeError{MimeType: mimeType, Err: errNotRaster}
	}
	if len(raw.Data) == 0 {
		return nil, &DecodeError{MimeType: mimeType, Err: errEmptyPayload}
	}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(raw.Data))
	if err != nil {
		return nil, &DecodeError{MimeType: mimeType, Err: err}
	}
	if pixels := int64(cfg.Width) * int64(cfg.Height); pixels > opts.pixelLimit() {
		return nil, &DecodeError{
			MimeType: mimeType,
			Err:      fmt.Errorf("%w: %dx%d > %d", errTooManyPixels, cfg.Width, cfg.Height, opts.pixelLimit()),
		}
	}

	src, err := imaging.Decode(bytes.NewReader(raw.Data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &DecodeError{MimeType: mimeType, Err: err}
	}
	width, height := src.Bounds().Dx(), src.Bounds().Dy()
	if width == 0 || height == 0 {
		return nil, &DecodeError{MimeType: mimeType, Err: errZeroDimensions}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	targetW, targetH := TargetDimensions(width, height, opts.MaxWidth, opts.MaxHeight)
	resized := targetW != width || targetH != height

	var canvas *image.NRGBA
	if resized {
		canvas = imaging.Resize(src, targetW, targetH, imaging.Lanczos)
	} else {
		canvas = imaging.Clone(src)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if opts.AddNoise {
		ApplyNoise(canvas, GenerateNoise(s.noiseRand(), targetW, targetH, opts.NoiseIntensity))
	}

	flat := imaging.Overlay(imaging.New(targetW, targetH, color.White), canvas, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.JPEG, imaging.JPEGQuality(opts.jpegQuality())); err != nil {
		return nil, &EncodeError{Format: OutputMimeType, Err: err}
	}
	if buf.Len() == 0 {
		return nil, &EncodeError{Format: OutputMimeType, Err: errEmptyEncoding}
	}

	name, err := s.scrubber.Scrub(raw.Filename, outputExtension)
	if err != nil {
		return nil, fmt.Errorf("scrub filename: %w", err)
	}

	tags := tagSet{TagMetadataStripped}
	if opts.AddNoise {
		tags.add(TagNoiseAdded)
	}
	if resized {
		tags.add(TagResized)
	}
	tags.add(TagSafeFilename)

	return &Result{
		SanitizedBytes:    buf.Bytes(),
		SanitizedFilename: name,
		MimeType:          OutputMimeType,
		Width:             targetW,
		Height:            targetH,
		OriginalSize:      int64(len(raw.Data)),
		ProcessedSize:     int64(buf.Len()),
		MetadataStripped:  true,
		NoiseAdded:        opts.AddNoise,
		ProcessingApplied: tags,
	}, nil
}
