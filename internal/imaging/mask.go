package imaging

import "image"

// Mask values.
const (
	MaskOff uint8 = 0
	MaskOn  uint8 = 255
)

// RegionMask is a binary bitmap marking stamp-colored pixels.
//
// Pix holds one byte per pixel in row-major order, either MaskOff or MaskOn.
// A mask is created by Classify for one image and color, consumed by the
// next pipeline stage, and then dropped.
type RegionMask struct {
	Width  int
	Height int
	Pix    []uint8
}

// NewRegionMask allocates an all-off mask.
func NewRegionMask(width, height int) *RegionMask {
	return &RegionMask{
		Width:  width,
		Height: height,
		Pix:    make([]uint8, width*height),
	}
}

// Bounds returns the mask rectangle with its origin at (0,0).
func (m *RegionMask) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// Matches reports whether (x, y) is stamp-colored. Out-of-range coordinates
// never match.
func (m *RegionMask) Matches(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x] == MaskOn
}

// Set marks (x, y) as stamp-colored.
func (m *RegionMask) Set(x, y int) {
	m.Pix[y*m.Width+x] = MaskOn
}

// Count returns the number of stamp-colored pixels.
func (m *RegionMask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v == MaskOn {
			n++
		}
	}
	return n
}

// Gray copies the mask into a grayscale image (255 = stamp, 0 = background).
func (m *RegionMask) Gray() *image.Gray {
	g := image.NewGray(m.Bounds())
	copy(g.Pix, m.Pix)
	return g
}
