package sanitizer

import "math"

// TargetDimensions fits width x height into maxWidth x maxHeight keeping the
// aspect ratio. Width is clamped first, then height, and the height clamp
// rescales the already clamped width. Images are never upscaled. A
// non-positive bound leaves that axis unconstrained.
func TargetDimensions(width, height, maxWidth, maxHeight int) (int, int) {
	if width <= 0 || height <= 0 {
		return width, height
	}
	w, h := width, height
	if maxWidth > 0 && w > maxWidth {
		h = scaleSide(h, maxWidth, w)
		w = maxWidth
	}
	if maxHeight > 0 && h > maxHeight {
		w = scaleSide(w, maxHeight, h)
		h = maxHeight
	}
	return w, h
}

// scaleSide returns side*num/den rounded to the nearest pixel, at least 1.
func scaleSide(side, num, den int) int {
	v := int(math.Round(float64(side) * float64(num) / float64(den)))
	if v < 1 {
		return 1
	}
	return v
}
