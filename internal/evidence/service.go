package evidence

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/your-org/evidenceflow/internal/sanitizer"
	"github.com/your-org/evidenceflow/pkg/metrics"
	"github.com/your-org/evidenceflow/pkg/storage/objectstore"
)

var (
	ErrNoFiles       = errors.New("at least one file is required")
	ErrTooManyFiles  = errors.New("too many files in submission")
	ErrFileTooLarge  = errors.New("file exceeds max size limit")
	errPendingResult = errors.New("sanitizer returned an incomplete manifest")
)

// Publisher emits submission events.
type Publisher interface {
	PublishJSON(ctx context.Context, key string, event any, headers map[string]string) error
	Close(ctx context.Context) error
}

// Limits are the caller-side policies applied before sanitization.
type Limits struct {
	MaxFiles     int
	MaxFileBytes int64
}

// Service sanitizes evidence submissions, stores the results and announces them.
type Service struct {
	sanitizer sanitizer.MediaSanitizer
	options   sanitizer.Options
	store     objectstore.Client
	producer  Publisher
	logger    *zap.Logger
	metrics   metrics.SubmissionRecorder
	limits    Limits
	prefix    string
	clock     func() time.Time
	tracer    trace.Tracer
}

type Params struct {
	Sanitizer sanitizer.MediaSanitizer
	Options   sanitizer.Options
	Store     objectstore.Client
	Producer  Publisher
	Logger    *zap.Logger
	Metrics   metrics.SubmissionRecorder
	Limits    Limits
	// Prefix is the object key prefix for stored evidence.
	Prefix string
	Clock  func() time.Time
}

// Item is the stored record of one sanitized file.
type Item struct {
	Index             int      `json:"index"`
	ObjectKey         string   `json:"object_key"`
	Filename          string   `json:"filename"`
	MimeType          string   `json:"mime_type"`
	Checksum          string   `json:"checksum"`
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	OriginalSize      int64    `json:"original_size"`
	ProcessedSize     int64    `json:"processed_size"`
	MetadataStripped  bool     `json:"metadata_stripped"`
	NoiseAdded        bool     `json:"noise_added"`
	ProcessingApplied []string `json:"processing_applied"`
}

// Submission is the outcome returned to the submitter.
type Submission struct {
	ID          string            `json:"submission_id"`
	Items       []Item            `json:"items"`
	Summary     sanitizer.Summary `json:"summary"`
	NeedsReview bool              `json:"needs_review"`
	SubmittedAt time.Time         `json:"submitted_at"`
}

// NewService constructs an evidence Service.
func NewService(p Params) *Service {
	if p.Logger == nil {
		p.Logger = zap.NewNop()
	}
	if p.Metrics == nil {
		p.Metrics = metrics.Noop{}
	}
	if p.Clock == nil {
		p.Clock = time.Now
	}
	if p.Prefix == "" {
		p.Prefix = "evidence"
	}
	return &Service{
		sanitizer: p.Sanitizer,
		options:   p.Options,
		store:     p.Store,
		producer:  p.Producer,
		logger:    p.Logger,
		metrics:   p.Metrics,
		limits:    p.Limits,
		prefix:    strings.Trim(p.Prefix, "/"),
		clock:     p.Clock,
		tracer:    otel.Tracer("github.com/your-org/evidenceflow/internal/evidence"),
	}
}

// CheckLimits validates a submission against the configured limits.
func (s *Service) CheckLimits(uploads []sanitizer.RawUpload) error {
	if len(uploads) == 0 {
		return ErrNoFiles
	}
	if s.limits.MaxFiles > 0 && len(uploads) > s.limits.MaxFiles {
		return fmt.Errorf("%w: %d > %d", ErrTooManyFiles, len(uploads), s.limits.MaxFiles)
	}
	for i, u := range uploads {
		if s.limits.MaxFileBytes > 0 && int64(len(u.Data)) > s.limits.MaxFileBytes {
			return fmt.Errorf("%w: file %d has %d bytes", ErrFileTooLarge, i, len(u.Data))
		}
	}
	return nil
}

// Submit sanitizes uploads, persists every result and emits one event.
// Only sanitized bytes and manifest flags are stored; original filenames and
// client metadata never leave this call.
func (s *Service) Submit(ctx context.Context, uploads []sanitizer.RawUpload) (*Submission, error) {
	if err := s.CheckLimits(uploads); err != nil {
		s.metrics.IncSubmissions("rejected")
		return nil, err
	}

	submissionID := uuid.NewString()
	ctx, span := s.tracer.Start(ctx, "evidence.submit", trace.WithAttributes(
		attribute.String("submission_id", submissionID),
		attribute.Int("files", len(uploads)),
	))
	defer span.End()

	manifest, err := s.sanitizer.ProcessAll(ctx, uploads, s.options)
	if err != nil {
		s.metrics.IncSubmissions("failed")
		return nil, fmt.Errorf("sanitize submission: %w", err)
	}

	now := s.clock().UTC()
	items := make([]Item, 0, len(manifest))
	stored := make([]string, 0, len(manifest))
	for i, res := range manifest {
		if res == nil {
			s.rollback(ctx, stored)
			s.metrics.IncSubmissions("failed")
			return nil, errPendingResult
		}
		item, err := s.persist(ctx, i, res, now)
		if err != nil {
			s.rollback(ctx, stored)
			s.metrics.IncSubmissions("failed")
			return nil, err
		}
		stored = append(stored, item.ObjectKey)
		items = append(items, item)
	}

	summary := sanitizer.Summarize(manifest)
	sub := &Submission{
		ID:          submissionID,
		Items:       items,
		Summary:     summary,
		NeedsReview: summary.MetadataStripped < summary.TotalFiles,
		SubmittedAt: now,
	}

	event := EvidenceEvent{
		ID:          sub.ID,
		Items:       sub.Items,
		Summary:     sub.Summary,
		NeedsReview: sub.NeedsReview,
		CreatedAt:   now,
	}
	headers := map[string]string{
		"submission_id": sub.ID,
		"event_type":    EventType,
	}
	if err := s.producer.PublishJSON(ctx, sub.ID, event, headers); err != nil {
		s.metrics.IncSubmissions("failed")
		return nil, fmt.Errorf("publish evidence event: %w", err)
	}

	s.logger.Info("evidence submission stored",
		zap.String("submission_id", sub.ID),
		zap.Int("files", summary.TotalFiles),
		zap.Int("processed", summary.Processed),
		zap.Int("metadata_stripped", summary.MetadataStripped),
		zap.Bool("needs_review", sub.NeedsReview),
	)
	s.metrics.IncSubmissions("accepted")
	return sub, nil
}

func (s *Service) persist(ctx context.Context, index int, res *sanitizer.Result, at time.Time) (Item, error) {
	sum := sha256.Sum256(res.SanitizedBytes)
	item := Item{
		Index:             index,
		ObjectKey:         s.objectKey(at, res.SanitizedFilename),
		Filename:          res.SanitizedFilename,
		MimeType:          res.MimeType,
		Checksum:          hex.EncodeToString(sum[:]),
		Width:             res.Width,
		Height:            res.Height,
		OriginalSize:      res.OriginalSize,
		ProcessedSize:     res.ProcessedSize,
		MetadataStripped:  res.MetadataStripped,
		NoiseAdded:        res.NoiseAdded,
		ProcessingApplied: res.ProcessingApplied,
	}

	opts := objectstore.PutOptions{
		ContentType: res.MimeType,
		Metadata: map[string]string{
			"checksum":           item.Checksum,
			"metadata_stripped":  strconv.FormatBool(res.MetadataStripped),
			"noise_added":        strconv.FormatBool(res.NoiseAdded),
			"processing_applied": strings.Join(res.ProcessingApplied, ","),
		},
	}
	if err := s.store.Put(ctx, item.ObjectKey, bytes.NewReader(res.SanitizedBytes), res.ProcessedSize, opts); err != nil {
		return Item{}, fmt.Errorf("put object: %w", err)
	}
	return item, nil
}

func (s *Service) objectKey(at time.Time, filename string) string {
	return path.Join(s.prefix, at.Format("2006/01/02"), filename)
}

func (s *Service) rollback(ctx context.Context, keys []string) {
	for _, key := range keys {
		if err := s.store.Remove(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Error("remove stored evidence failed", zap.String("object_key", key), zap.Error(err))
		}
	}
}

// Close releases underlying resources.
func (s *Service) Close(ctx context.Context) error {
	if err := s.producer.Close(ctx); err != nil {
		return err
	}
	return s.store.Close()
}
