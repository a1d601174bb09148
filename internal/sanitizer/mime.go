package sanitizer

import (
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// OutputMimeType is the canonical encoding of every raster result.
const (
	OutputMimeType  = "image/jpeg"
	outputExtension = "jpg"
	genericMimeType = "application/octet-stream"
)

var rasterTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
	"image/gif":  true,
}

var mimeAliases = map[string]string{
	"image/jpg":   "image/jpeg",
	"image/pjpeg": "image/jpeg",
	"image/x-png": "image/png",
}

// IsRaster reports whether mimeType is decoded by the raster path.
func IsRaster(mimeType string) bool {
	return rasterTypes[mimeType]
}

// resolveMimeType normalises the declared type and falls back to sniffing
// data when the declaration carries no information.
func resolveMimeType(declared string, data []byte) string {
	mt := strings.ToLower(strings.TrimSpace(declared))
	if parsed, _, err := mime.ParseMediaType(mt); err == nil {
		mt = parsed
	}
	if alias, ok := mimeAliases[mt]; ok {
		mt = alias
	}
	if mt == "" || mt == genericMimeType {
		if len(data) == 0 {
			return genericMimeType
		}
		detected, _, _ := mime.ParseMediaType(mimetype.Detect(data).String())
		if detected != "" {
			return detected
		}
		return genericMimeType
	}
	return mt
}

// extensionFor picks a file extension from the MIME type alone, never from
// the uploaded filename.
func extensionFor(mimeType string, data []byte) string {
	if m := mimetype.Lookup(mimeType); m != nil && m.Extension() != "" {
		return strings.TrimPrefix(m.Extension(), ".")
	}
	if len(data) > 0 {
		if ext := mimetype.Detect(data).Extension(); ext != "" {
			return strings.TrimPrefix(ext, ".")
		}
	}
	return "bin"
}
