package imaging

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
)

// DefaultBlurSigma is the Gaussian sigma applied before circle voting.
// bild builds a kernel of length ceil(2*sigma+1), so 2 gives the 5-tap
// kernel of a 5x5 separable blur.
const DefaultBlurSigma = 2.0

// HoughInput prepares the grayscale edge-intensity image the circle detector
// votes on.
//
// The image is the classification itself (stamp pixels 255, background 0)
// rather than the luminance of the recolored stamp, so the edge contrast does
// not depend on how dark the target color is. A Gaussian blur with the given
// sigma suppresses jagged mask edges and isolated pixels. A sigma of zero
// skips the blur.
func HoughInput(mask *RegionMask, sigma float64) *image.Gray {
	gray := mask.Gray()
	if sigma <= 0 {
		return gray
	}
	return effect.Grayscale(blur.Gaussian(gray, sigma))
}

