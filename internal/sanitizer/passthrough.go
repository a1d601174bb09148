package sanitizer

import (
	"bytes"
	"fmt"
)

// Passthrough handles uploads the raster path cannot process. The bytes are
// kept verbatim and only the filename is replaced, so the result never
// claims metadata stripping or noise.
func (s *Sanitizer) Passthrough(raw RawUpload) (*Result, error) {
	mimeType := resolveMimeType(raw.MimeType, raw.Data)
	name, err := s.scrubber.Scrub(raw.Filename, extensionFor(mimeType, raw.Data))
	if err != nil {
		return nil, fmt.Errorf("scrub filename: %w", err)
	}
	return unprocessedResult(raw, mimeType, name, tagSet{TagSafeFilename}), nil
}

// fallback produces the result for an item whose processing failed. It
// cannot fail: when the scrubber is unusable a name is built from the clock
// and the item's position.
func (s *Sanitizer) fallback(raw RawUpload, index int) *Result {
	mimeType := resolveMimeType(raw.MimeType, raw.Data)
	ext := extensionFor(mimeType, raw.Data)
	name, err := s.scrubber.Scrub(raw.Filename, ext)
	if err != nil {
		name = fmt.Sprintf("%s_%d_failed%d.%s", filenamePrefix, s.clock().UTC().UnixMilli(), index, ext)
	}
	return unprocessedResult(raw, mimeType, name, tagSet{TagSafeFilename, TagProcessingFailed})
}

func unprocessedResult(raw RawUpload, mimeType, name string, tags tagSet) *Result {
	return &Result{
		SanitizedBytes:    bytes.Clone(raw.Data),
		SanitizedFilename: name,
		MimeType:          mimeType,
		OriginalSize:      int64(len(raw.Data)),
		ProcessedSize:     int64(len(raw.Data)),
		ProcessingApplied: tags,
	}
}
