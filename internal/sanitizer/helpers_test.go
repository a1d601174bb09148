package sanitizer

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const gpsMarker = "GPSLatitude=-6.208800;GPSLongitude=106.845600;Make=FieldCam"

var fixedClock = func() time.Time { return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC) }

// seqReader yields an endless deterministic byte stream.
type seqReader struct{ next byte }

func (r *seqReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.next
		r.next = r.next*31 + 7
	}
	return len(p), nil
}

func newTestSanitizer(t *testing.T) *Sanitizer {
	t.Helper()
	var seed atomic.Uint64
	return New(Params{
		Clock:     fixedClock,
		NoiseSeed: func() uint64 { return seed.Add(1) },
		Workers:   3,
	})
}

func gradient(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 255 / w), G: uint8(y * 255 / h), B: 128, A: 255})
		}
	}
	return img
}

func encodeJPEG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}))
	return buf.Bytes()
}

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func encodeGIF(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, gif.Encode(&buf, img, nil))
	return buf.Bytes()
}

// withEXIF inserts an APP1 Exif segment right after SOI. The TIFF block
// carries a single orientation entry followed by marker text.
func withEXIF(t *testing.T, jpg []byte, orientation uint16, marker string) []byte {
	t.Helper()
	require.True(t, bytes.HasPrefix(jpg, []byte{0xFF, 0xD8}))

	var tiff bytes.Buffer
	tiff.WriteString("MM")
	binary.Write(&tiff, binary.BigEndian, uint16(0x002A)) //nolint:errcheck
	binary.Write(&tiff, binary.BigEndian, uint32(8))      //nolint:errcheck
	binary.Write(&tiff, binary.BigEndian, uint16(1))      //nolint:errcheck
	binary.Write(&tiff, binary.BigEndian, uint16(0x0112)) //nolint:errcheck
	binary.Write(&tiff, binary.BigEndian, uint16(3))      //nolint:errcheck
	binary.Write(&tiff, binary.BigEndian, uint32(1))      //nolint:errcheck
	binary.Write(&tiff, binary.BigEndian, orientation)    //nolint:errcheck
	binary.Write(&tiff, binary.BigEndian, uint16(0))      //nolint:errcheck
	binary.Write(&tiff, binary.BigEndian, uint32(0))      //nolint:errcheck
	tiff.WriteString(marker)

	payload := append([]byte("Exif\x00\x00"), tiff.Bytes()...)
	segment := []byte{0xFF, 0xE1}
	segment = binary.BigEndian.AppendUint16(segment, uint16(len(payload)+2))
	segment = append(segment, payload...)

	out := append([]byte{}, jpg[:2]...)
	out = append(out, segment...)
	return append(out, jpg[2:]...)
}

// withPNGText inserts a tEXt chunk right after IHDR.
func withPNGText(t *testing.T, pngBytes []byte, keyword, text string) []byte {
	t.Helper()
	const ihdrEnd = 8 + 4 + 4 + 13 + 4
	require.Greater(t, len(pngBytes), ihdrEnd)

	data := append([]byte(keyword), 0)
	data = append(data, text...)
	chunk := binary.BigEndian.AppendUint32(nil, uint32(len(data)))
	typed := append([]byte("tEXt"), data...)
	chunk = append(chunk, typed...)
	chunk = binary.BigEndian.AppendUint32(chunk, crc32.ChecksumIEEE(typed))

	out := append([]byte{}, pngBytes[:ihdrEnd]...)
	out = append(out, chunk...)
	return append(out, pngBytes[ihdrEnd:]...)
}

// pngHeader returns a PNG stream that declares w x h grayscale pixels but
// carries no image data.
func pngHeader(w, h uint32) []byte {
	out := []byte("\x89PNG\r\n\x1a\n")
	ihdr := binary.BigEndian.AppendUint32(nil, w)
	ihdr = binary.BigEndian.AppendUint32(ihdr, h)
	ihdr = append(ihdr, 8, 0, 0, 0, 0)
	typed := append([]byte("IHDR"), ihdr...)
	out = binary.BigEndian.AppendUint32(out, uint32(len(ihdr)))
	out = append(out, typed...)
	return binary.BigEndian.AppendUint32(out, crc32.ChecksumIEEE(typed))
}

func decodeConfig(t *testing.T, data []byte) (image.Config, string) {
	t.Helper()
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	return cfg, format
}
