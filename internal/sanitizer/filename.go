package sanitizer

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	filenamePrefix = "evidence"
	// minLinkLength is the shortest shared substring treated as a link back
	// to the original filename.
	minLinkLength = 4
	maxTokenDraws = 8
)

// ErrLinkedFilename is returned when no drawn token is free of substrings of
// the original filename.
var ErrLinkedFilename = errors.New("filename token linked to original name")

// Scrubber derives anonymous evidence filenames of the form
// evidence_<unix millis>_<random token>.<ext>. The timestamp is the
// processing time, never a capture time.
type Scrubber struct {
	now func() time.Time

	mu      sync.Mutex
	entropy io.Reader
}

// NewScrubber builds a Scrubber. Nil arguments fall back to the wall clock
// and crypto/rand.
func NewScrubber(now func() time.Time, entropy io.Reader) *Scrubber {
	if now == nil {
		now = time.Now
	}
	if entropy == nil {
		entropy = rand.Reader
	}
	return &Scrubber{now: now, entropy: entropy}
}

// Scrub returns a fresh filename unrelated to original. ext may carry a
// leading dot. The token is redrawn while it shares a substring with
// original; the processing timestamp is independent of the upload and is
// not checked.
func (s *Scrubber) Scrub(original, ext string) (string, error) {
	ext = strings.ToLower(strings.TrimPrefix(ext, "."))
	if ext == "" {
		ext = "bin"
	}
	stamp := strconv.FormatInt(s.now().UTC().UnixMilli(), 10)
	lowered := strings.ToLower(original)

	for range maxTokenDraws {
		token, err := s.token()
		if err != nil {
			return "", fmt.Errorf("draw filename token: %w", err)
		}
		if !linked("_"+token, lowered) {
			return fmt.Sprintf("%s_%s_%s.%s", filenamePrefix, stamp, token, ext), nil
		}
	}
	return "", fmt.Errorf("%w after %d draws", ErrLinkedFilename, maxTokenDraws)
}

func (s *Scrubber) token() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id, err := uuid.NewRandomFromReader(s.entropy)
	if err != nil {
		return "", err
	}
	return strings.ReplaceAll(id.String(), "-", ""), nil
}

// linked reports whether candidate shares a substring of minLinkLength or
// more with original.
func linked(candidate, original string) bool {
	if len(original) < minLinkLength {
		return false
	}
	for i := 0; i+minLinkLength <= len(candidate); i++ {
		if strings.Contains(original, candidate[i:i+minLinkLength]) {
			return true
		}
	}
	return false
}
