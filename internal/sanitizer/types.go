package sanitizer

import (
	"errors"
	"fmt"
	"math"
	"slices"
)

// Processing tags recorded in Result.ProcessingApplied.
const (
	TagMetadataStripped = "metadata_stripped"
	TagNoiseAdded       = "noise_added"
	TagResized          = "resized"
	TagSafeFilename     = "safe_filename"
	TagProcessingFailed = "processing_failed"
)

// ErrInvalidOptions is returned when Options fail validation.
var ErrInvalidOptions = errors.New("invalid processing options")

// DefaultMaxPixels bounds the decoded size of a single image.
const DefaultMaxPixels = 50_000_000

// RawUpload is a single file handed over by the upload boundary.
// Filename is untrusted and never propagated into a Result.
type RawUpload struct {
	Data     []byte
	MimeType string
	Filename string
}

// Options configures a single pipeline invocation. It is passed by value and
// never mutated while processing.
type Options struct {
	MaxWidth  int
	MaxHeight int
	// MaxPixels rejects images whose header declares more pixels before
	// they are decoded. Zero means DefaultMaxPixels.
	MaxPixels int64
	// Quality is either a fraction in (0,1] or a percentage in (1,100].
	Quality        float64
	AddNoise       bool
	NoiseIntensity float64
	// StripMetadata only affects reporting. Raster output is always
	// re-encoded from pixels, so source metadata never survives.
	StripMetadata bool
}

// DefaultOptions returns the options used when the caller has no preference.
func DefaultOptions() Options {
	return Options{
		MaxWidth:       1920,
		MaxHeight:      1080,
		MaxPixels:      DefaultMaxPixels,
		Quality:        0.85,
		AddNoise:       true,
		NoiseIntensity: 0.3,
		StripMetadata:  true,
	}
}

// Validate reports whether the options can be used.
func (o Options) Validate() error {
	switch {
	case o.MaxWidth <= 0 || o.MaxHeight <= 0:
		return fmt.Errorf("%w: max dimensions must be positive, got %dx%d", ErrInvalidOptions, o.MaxWidth, o.MaxHeight)
	case o.MaxPixels < 0:
		return fmt.Errorf("%w: negative max pixels %d", ErrInvalidOptions, o.MaxPixels)
	case !finite(o.Quality) || o.Quality <= 0 || o.Quality > 100:
		return fmt.Errorf("%w: quality %v out of range", ErrInvalidOptions, o.Quality)
	case !finite(o.NoiseIntensity) || o.NoiseIntensity < 0:
		return fmt.Errorf("%w: noise intensity %v out of range", ErrInvalidOptions, o.NoiseIntensity)
	}
	return nil
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (o Options) pixelLimit() int64 {
	if o.MaxPixels > 0 {
		return o.MaxPixels
	}
	return DefaultMaxPixels
}

// jpegQuality maps Quality onto the 1..100 scale used by the JPEG encoder.
func (o Options) jpegQuality() int {
	q := o.Quality
	if q <= 1 {
		q *= 100
	}
	quality := int(q + 0.5)
	if quality < 1 {
		return 1
	}
	if quality > 100 {
		return 100
	}
	return quality
}

// Result is the immutable outcome of processing one RawUpload.
type Result struct {
	SanitizedBytes    []byte   `json:"-"`
	SanitizedFilename string   `json:"sanitized_filename"`
	MimeType          string   `json:"mime_type"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	OriginalSize      int64    `json:"original_size"`
	ProcessedSize     int64    `json:"processed_size"`
	MetadataStripped  bool     `json:"metadata_stripped"`
	NoiseAdded        bool     `json:"noise_added"`
	ProcessingApplied []string `json:"processing_applied"`
}

// Has reports whether tag was recorded for the result.
func (r *Result) Has(tag string) bool {
	return slices.Contains(r.ProcessingApplied, tag)
}

// Failed reports whether the item fell back after a processing failure.
func (r *Result) Failed() bool {
	return r.Has(TagProcessingFailed)
}

// Manifest holds one result per input in input order. A nil slot is only
// possible when ProcessAll was cancelled before that item completed.
type Manifest []*Result

// Summary aggregates a Manifest for display and audit.
type Summary struct {
	TotalFiles       int     `json:"total_files"`
	MetadataStripped int     `json:"metadata_stripped"`
	NoiseAdded       int     `json:"noise_added"`
	Processed        int     `json:"processed"`
	SizeReduction    float64 `json:"size_reduction_percent"`
}

type tagSet []string

func (t *tagSet) add(tag string) {
	if !slices.Contains(*t, tag) {
		*t = append(*t, tag)
	}
}
