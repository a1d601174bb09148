package sanitizer

import (
	"context"
	"io"
	"math/rand/v2"
	"runtime"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/evidenceflow/pkg/metrics"
)

const tracerName = "github.com/your-org/evidenceflow/internal/sanitizer"

// MediaSanitizer is the contract offered to upload boundaries.
type MediaSanitizer interface {
	Process(ctx context.Context, raw RawUpload, opts Options) (*Result, error)
	ProcessAll(ctx context.Context, raws []RawUpload, opts Options) (Manifest, error)
}

var _ MediaSanitizer = (*Sanitizer)(nil)

// Params configures a Sanitizer. Every field is optional.
type Params struct {
	Logger  *zap.Logger
	Metrics metrics.Recorder
	// Clock stamps generated filenames with the processing time.
	Clock func() time.Time
	// Entropy feeds the random filename token.
	Entropy io.Reader
	// NoiseSeed seeds the per-file noise generator. It must be safe for
	// concurrent use.
	NoiseSeed func() uint64
	// Workers bounds batch parallelism. Zero means GOMAXPROCS.
	Workers int
}

// Sanitizer strips identifying information from evidence uploads. It holds
// no per-file state and is safe for concurrent use.
type Sanitizer struct {
	logger   *zap.Logger
	metrics  metrics.Recorder
	scrubber *Scrubber
	clock    func() time.Time
	seed     func() uint64
	workers  int
	tracer   trace.Tracer
}

// New constructs a Sanitizer.
func New(p Params) *Sanitizer {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Metrics == nil {
		p.Metrics = metrics.Noop{}
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.NoiseSeed == nil {
		p.NoiseSeed = rand.Uint64
	}
	if p.Workers <= 0 {
		p.Workers = runtime.GOMAXPROCS(0)
	}
	return &Sanitizer{
		logger:   p.Logger,
		metrics:  p.Metrics,
		scrubber: NewScrubber(p.Clock, p.Entropy),
		clock:    p.Clock,
		seed:     p.NoiseSeed,
		workers:  p.Workers,
		tracer:   otel.Tracer(tracerName),
	}
}

func (s *Sanitizer) noiseRand() *rand.Rand {
	return rand.New(rand.NewPCG(s.seed(), s.seed()))
}

// Process sanitizes a single upload. Raster failures are returned as
// *DecodeError or *EncodeError; unsupported types take the passthrough path
// and are not an error.
func (s *Sanitizer) Process(ctx context.Context, raw RawUpload, opts Options) (*Result, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return s.process(ctx, raw, opts)
}

func (s *Sanitizer) process(ctx context.Context, raw RawUpload, opts Options) (*Result, error) {
	mimeType := resolveMimeType(raw.MimeType, raw.Data)
	ctx, span := s.tracer.Start(ctx, "sanitizer.process", trace.WithAttributes(
		attribute.String("mime_type", mimeType),
		attribute.Int("size_bytes", len(raw.Data)),
	))
	defer span.End()

	started := time.Now()
	path := metrics.PathPassthrough
	var (
		res *Result
		err error
	)
	if IsRaster(mimeType) {
		path = metrics.PathRaster
		res, err = s.Transform(ctx, raw, opts)
	} else {
		res, err = s.Passthrough(raw)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "processing failed")
		return nil, err
	}

	span.SetAttributes(
		attribute.Bool("metadata_stripped", res.MetadataStripped),
		attribute.Bool("noise_added", res.NoiseAdded),
		attribute.Int64("processed_bytes", res.ProcessedSize),
	)
	s.metrics.ObserveFile(path, res.OriginalSize, res.ProcessedSize, time.Since(started))
	return res, nil
}
