package sanitizer

import (
	"image"
	"math"
	"math/rand/v2"
)

// NoiseScale maps intensity onto channel units. A sample lies in
// [-intensity*NoiseScale/2, intensity*NoiseScale/2].
const NoiseScale = 10.0

// NoiseField holds one perturbation per pixel per RGB channel, row-major.
type NoiseField struct {
	Width  int
	Height int
	Values []float32
}

// At returns the R, G and B perturbations of pixel (x, y).
func (f NoiseField) At(x, y int) (r, g, b float32) {
	i := (y*f.Width + x) * 3
	return f.Values[i], f.Values[i+1], f.Values[i+2]
}

// GenerateNoise samples a zero-mean uniform perturbation field. The result
// depends only on its arguments and the state of rng.
func GenerateNoise(rng *rand.Rand, width, height int, intensity float64) NoiseField {
	if width <= 0 || height <= 0 {
		return NoiseField{}
	}
	values := make([]float32, width*height*3)
	if intensity > 0 {
		span := intensity * NoiseScale
		for i := range values {
			values[i] = float32((rng.Float64() - 0.5) * span)
		}
	}
	return NoiseField{Width: width, Height: height, Values: values}
}

// ApplyNoise adds field to the colour channels of img in place, clipping to
// 0..255. Alpha is left untouched.
func ApplyNoise(img *image.NRGBA, field NoiseField) {
	b := img.Bounds()
	w := min(b.Dx(), field.Width)
	h := min(b.Dy(), field.Height)
	for y := 0; y < h; y++ {
		row := img.Pix[y*img.Stride : y*img.Stride+b.Dx()*4]
		for x := 0; x < w; x++ {
			nr, ng, nb := field.At(x, y)
			p := row[x*4 : x*4+4]
			p[0] = clampChannel(float32(p[0]) + nr)
			p[1] = clampChannel(float32(p[1]) + ng)
			p[2] = clampChannel(float32(p[2]) + nb)
		}
	}
}

func clampChannel(v float32) uint8 {
	v = float32(math.Round(float64(v)))
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(v)
}
