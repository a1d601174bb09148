package evidence

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/your-org/evidenceflow/internal/sanitizer"
)

var submittedAt = time.Date(2026, 10, 16, 8, 30, 0, 0, time.UTC)

func newTestService(store *memStore, pub *memPublisher, san sanitizer.MediaSanitizer) *Service {
	if san == nil {
		san = sanitizer.New(sanitizer.Params{Workers: 2})
	}
	return NewService(Params{
		Sanitizer: san,
		Options:   sanitizer.DefaultOptions(),
		Store:     store,
		Producer:  pub,
		Limits:    Limits{MaxFiles: 5, MaxFileBytes: 10 << 20},
		Clock:     func() time.Time { return submittedAt },
	})
}

func TestSubmitStoresSanitizedEvidence(t *testing.T) {
	store, pub := newMemStore(), &memPublisher{}
	svc := newTestService(store, pub, nil)

	uploads := []sanitizer.RawUpload{
		{Data: testJPEG(t, 64, 32), MimeType: "image/jpeg", Filename: "tambang_liar_Andi.jpg"},
		{Data: []byte("PK\x03\x04 doc"), MimeType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document", Filename: "saksi_Andi.docx"},
	}

	sub, err := svc.Submit(context.Background(), uploads)
	require.NoError(t, err)

	require.Len(t, sub.Items, 2)
	assert.NotEmpty(t, sub.ID)
	assert.True(t, sub.NeedsReview)
	assert.Equal(t, 2, sub.Summary.TotalFiles)
	assert.Equal(t, 1, sub.Summary.MetadataStripped)
	assert.Equal(t, submittedAt, sub.SubmittedAt)

	for i, item := range sub.Items {
		assert.Equal(t, i, item.Index)
		assert.True(t, strings.HasPrefix(item.ObjectKey, "evidence/2026/10/16/evidence_"), item.ObjectKey)
		assert.NotContains(t, item.ObjectKey, "Andi")

		obj, ok := store.objects[item.ObjectKey]
		require.True(t, ok, item.ObjectKey)
		assert.Equal(t, item.MimeType, obj.opts.ContentType)
		assert.Equal(t, item.Checksum, obj.opts.Metadata["checksum"])
		for _, v := range obj.opts.Metadata {
			assert.NotContains(t, v, "Andi")
		}
	}
	assert.True(t, sub.Items[0].MetadataStripped)
	assert.Equal(t, "true", store.objects[sub.Items[0].ObjectKey].opts.Metadata["metadata_stripped"])
	assert.Equal(t, "false", store.objects[sub.Items[1].ObjectKey].opts.Metadata["metadata_stripped"])
	assert.Equal(t, uploads[1].Data, store.objects[sub.Items[1].ObjectKey].data)

	require.Len(t, pub.events, 1)
	ev := pub.events[0]
	assert.Equal(t, sub.ID, ev.key)
	assert.Equal(t, EventType, ev.headers["event_type"])
	assert.NotContains(t, string(ev.payload), "Andi")

	var decoded EvidenceEvent
	require.NoError(t, json.Unmarshal(ev.payload, &decoded))
	assert.Equal(t, sub.ID, decoded.ID)
	assert.True(t, decoded.NeedsReview)
	assert.Len(t, decoded.Items, 2)
}

func TestSubmitAllRasterNeedsNoReview(t *testing.T) {
	store, pub := newMemStore(), &memPublisher{}
	sub, err := newTestService(store, pub, nil).Submit(context.Background(), []sanitizer.RawUpload{
		{Data: testJPEG(t, 10, 10), MimeType: "image/jpeg"},
	})
	require.NoError(t, err)
	assert.False(t, sub.NeedsReview)
	assert.Equal(t, 1, sub.Summary.Processed)
}

func TestSubmitLimits(t *testing.T) {
	svc := newTestService(newMemStore(), &memPublisher{}, nil)

	_, err := svc.Submit(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNoFiles)

	_, err = svc.Submit(context.Background(), make([]sanitizer.RawUpload, 6))
	assert.ErrorIs(t, err, ErrTooManyFiles)

	_, err = svc.Submit(context.Background(), []sanitizer.RawUpload{{Data: make([]byte, 10<<20+1)}})
	assert.ErrorIs(t, err, ErrFileTooLarge)
}

func TestSubmitRollsBackOnStoreFailure(t *testing.T) {
	store, pub := newMemStore(), &memPublisher{}
	store.failOn = 1
	svc := newTestService(store, pub, nil)

	_, err := svc.Submit(context.Background(), []sanitizer.RawUpload{
		{Data: []byte("a"), MimeType: "text/plain"},
		{Data: []byte("b"), MimeType: "text/plain"},
	})
	require.ErrorContains(t, err, "bucket unavailable")
	assert.Empty(t, store.objects)
	assert.Len(t, store.removed, 1)
	assert.Empty(t, pub.events)
}

func TestSubmitPublishFailure(t *testing.T) {
	pub := &memPublisher{err: assert.AnError}
	_, err := newTestService(newMemStore(), pub, nil).Submit(context.Background(), []sanitizer.RawUpload{
		{Data: []byte("a"), MimeType: "text/plain"},
	})
	assert.ErrorIs(t, err, assert.AnError)
}

func TestSubmitSanitizerErrors(t *testing.T) {
	_, err := newTestService(newMemStore(), &memPublisher{}, stubSanitizer{err: context.Canceled}).
		Submit(context.Background(), []sanitizer.RawUpload{{Data: []byte("a")}})
	assert.ErrorIs(t, err, context.Canceled)

	store := newMemStore()
	_, err = newTestService(store, &memPublisher{}, stubSanitizer{manifest: sanitizer.Manifest{
		{SanitizedFilename: "evidence_1_aa.bin", SanitizedBytes: []byte("a"), ProcessedSize: 1},
		nil,
	}}).Submit(context.Background(), []sanitizer.RawUpload{{Data: []byte("a")}, {Data: []byte("b")}})
	assert.ErrorIs(t, err, errPendingResult)
	assert.Empty(t, store.objects)
}

func TestClose(t *testing.T) {
	store, pub := newMemStore(), &memPublisher{}
	require.NoError(t, newTestService(store, pub, nil).Close(context.Background()))
	assert.True(t, store.closed)
	assert.True(t, pub.closed)
}
