package sanitizer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/your-org/evidenceflow/pkg/metrics"
)

// ProcessAll sanitizes every upload and returns exactly one result per input
// in input order. A failing item is replaced by a processing_failed result
// carrying its original bytes and never affects its siblings.
//
// When ctx is cancelled ProcessAll stops scheduling, waits for running items
// and returns the partial manifest together with ctx.Err(). Slots of items
// that did not complete are nil.
//
// Invalid opts are rejected up front with a nil manifest and an error
// wrapping ErrInvalidOptions; this is the only case without a result per
// input.
func (s *Sanitizer) ProcessAll(ctx context.Context, raws []RawUpload, opts Options) (Manifest, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	ctx, span := s.tracer.Start(ctx, "sanitizer.process_all", trace.WithAttributes(
		attribute.Int("files", len(raws)),
	))
	defer span.End()

	manifest := make(Manifest, len(raws))

	// Item failures are absorbed, so the group never cancels siblings.
	var g errgroup.Group
	g.SetLimit(s.workers)
	for i := range raws {
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			manifest[i] = s.processItem(ctx, i, raws[i], opts)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		span.RecordError(err)
		return manifest, fmt.Errorf("process batch: %w", err)
	}
	return manifest, nil
}

func (s *Sanitizer) processItem(ctx context.Context, index int, raw RawUpload, opts Options) (res *Result) {
	started := time.Now()
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sanitizer panic recovered",
				zap.Int("index", index),
				zap.String("mime_type", raw.MimeType),
				zap.Any("panic", r),
			)
			res = s.failed(index, raw, started)
		}
	}()

	res, err := s.process(ctx, raw, opts)
	if err == nil {
		return res
	}
	if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
		return nil
	}

	s.logger.Warn("sanitizer fell back to passthrough",
		zap.Int("index", index),
		zap.String("mime_type", raw.MimeType),
		zap.Int("size_bytes", len(raw.Data)),
		zap.Error(err),
	)
	return s.failed(index, raw, started)
}

func (s *Sanitizer) failed(index int, raw RawUpload, started time.Time) *Result {
	res := s.fallback(raw, index)
	s.metrics.ObserveFile(metrics.PathFailed, res.OriginalSize, res.ProcessedSize, time.Since(started))
	return res
}
