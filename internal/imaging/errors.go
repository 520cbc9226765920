package imaging

import (
	"errors"
	"fmt"
	"image"
)

var (
	// ErrInvalidInput reports a malformed image, color or option set.
	ErrInvalidInput = errors.New("invalid input")

	// ErrGeometryDegenerate reports a crop box or mask radius that is not positive.
	ErrGeometryDegenerate = errors.New("degenerate geometry")
)

// ValidateImage checks that img is a usable pixel buffer: non-nil, non-empty,
// and with a pixel slice large enough for its stride and height.
func ValidateImage(img *image.NRGBA) error {
	if img == nil {
		return fmt.Errorf("%w: nil image", ErrInvalidInput)
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return fmt.Errorf("%w: image has zero width or height (%dx%d)", ErrInvalidInput, b.Dx(), b.Dy())
	}
	if img.Stride < 4*b.Dx() {
		return fmt.Errorf("%w: stride %d too small for width %d", ErrInvalidInput, img.Stride, b.Dx())
	}
	if need := img.Stride*(b.Dy()-1) + 4*b.Dx(); len(img.Pix) < need {
		return fmt.Errorf("%w: pixel buffer length %d, need %d", ErrInvalidInput, len(img.Pix), need)
	}
	return nil
}
