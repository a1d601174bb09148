package evidence

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"image/jpeg"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/your-org/evidenceflow/internal/sanitizer"
	"github.com/your-org/evidenceflow/pkg/storage/objectstore"
)

type storedObject struct {
	data []byte
	opts objectstore.PutOptions
}

type memStore struct {
	mu      sync.Mutex
	objects map[string]storedObject
	removed []string
	failOn  int
	puts    int
	closed  bool
}

func newMemStore() *memStore {
	return &memStore{objects: map[string]storedObject{}, failOn: -1}
}

func (m *memStore) Put(_ context.Context, key string, r io.Reader, size int64, opts objectstore.PutOptions) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	defer func() { m.puts++ }()
	if m.puts == m.failOn {
		return errors.New("bucket unavailable")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return errors.New("size mismatch")
	}
	m.objects[key] = storedObject{data: data, opts: opts}
	return nil
}

func (m *memStore) Remove(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, key)
	m.removed = append(m.removed, key)
	return nil
}

func (m *memStore) Close() error {
	m.closed = true
	return nil
}

type published struct {
	key     string
	payload []byte
	headers map[string]string
}

type memPublisher struct {
	mu     sync.Mutex
	events []published
	err    error
	closed bool
}

func (p *memPublisher) PublishJSON(_ context.Context, key string, event any, headers map[string]string) error {
	if p.err != nil {
		return p.err
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, published{key: key, payload: payload, headers: headers})
	return nil
}

func (p *memPublisher) Close(context.Context) error {
	p.closed = true
	return nil
}

type stubSanitizer struct {
	manifest sanitizer.Manifest
	err      error
}

func (s stubSanitizer) Process(context.Context, sanitizer.RawUpload, sanitizer.Options) (*sanitizer.Result, error) {
	return nil, errors.New("not used")
}

func (s stubSanitizer) ProcessAll(context.Context, []sanitizer.RawUpload, sanitizer.Options) (sanitizer.Manifest, error) {
	return s.manifest, s.err
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}
