package imaging

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// ColorSpec is a target stamp color with 8-bit components.
//
// The alpha component only matters when the spec is used as a fill color;
// classification looks at R, G and B.
type ColorSpec struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// HSVColor is a color in the half-range HSV convention.
type HSVColor struct {
	H int `json:"h"` // Hue: 0-179 (degrees / 2)
	S int `json:"s"` // Saturation: 0-255
	V int `json:"v"` // Value: 0-255
}

// RGB returns an opaque ColorSpec.
func RGB(r, g, b uint8) ColorSpec {
	return ColorSpec{R: r, G: g, B: b, A: 255}
}

// ParseHexColor parses a hex color string like "#FF0000" or "#FF000080".
//
// The leading '#' is optional and digits are case-insensitive. Six-digit
// colors are opaque. Any other length or a non-hex digit is an error wrapping
// ErrInvalidInput.
func ParseHexColor(hex string) (ColorSpec, error) {
	s := strings.TrimPrefix(strings.TrimSpace(hex), "#")
	if s == "" {
		return ColorSpec{}, fmt.Errorf("%w: empty color string", ErrInvalidInput)
	}

	val, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return ColorSpec{}, fmt.Errorf("%w: invalid hex color %q", ErrInvalidInput, hex)
	}

	switch len(s) {
	case 6:
		return ColorSpec{R: uint8(val >> 16), G: uint8(val >> 8), B: uint8(val), A: 255}, nil
	case 8:
		return ColorSpec{R: uint8(val >> 24), G: uint8(val >> 16), B: uint8(val >> 8), A: uint8(val)}, nil
	default:
		return ColorSpec{}, fmt.Errorf("%w: invalid hex color length %q", ErrInvalidInput, hex)
	}
}

// Hex formats the color as "#RRGGBB" (alpha excluded).
func (c ColorSpec) Hex() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

// HSV derives the half-range HSV triple from the RGB components.
func (c ColorSpec) HSV() HSVColor {
	return RGBToHSV(c.R, c.G, c.B)
}

// NRGBA returns the color as a non-premultiplied color.NRGBA.
func (c ColorSpec) NRGBA() color.NRGBA {
	return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// RGBToHSV converts 8-bit RGB values to half-range HSV.
//
// Hue degrees are halved and rounded, then folded into 0-179, so 359.5
// degrees maps to 0 rather than 180. Saturation and value are scaled to
// 0-255 and rounded.
func RGBToHSV(r, g, b uint8) HSVColor {
	h, s, v := colorful.Color{
		R: float64(r) / 255.0,
		G: float64(g) / 255.0,
		B: float64(b) / 255.0,
	}.Hsv()

	return HSVColor{
		H: int(math.Round(h/2)) % 180,
		S: int(math.Round(s * 255)),
		V: int(math.Round(v * 255)),
	}
}

// RGBColor represents an RGB color with 8-bit components.
type RGBColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

// RGBAColor represents an RGBA color with 8-bit components including alpha.
type RGBAColor struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
	A uint8 `json:"a"`
}

// ColorResult contains a color value in multiple representations.
type ColorResult struct {
	Hex  string    `json:"hex"`  // Hex format "#RRGGBB" (no alpha)
	RGB  RGBColor  `json:"rgb"`  // RGB components
	RGBA RGBAColor `json:"rgba"` // RGBA components with alpha
	HSV  HSVColor  `json:"hsv"`  // Half-range HSV
}

// SampleColor extracts the color value at a specific pixel coordinate.
//
// Parameters:
//   - img: The source image to sample from.
//   - x: X coordinate (0-based, 0 = leftmost pixel).
//   - y: Y coordinate (0-based, 0 = topmost pixel).
//
// Returns:
//   - *ColorResult: The color at (x, y) in multiple formats.
//   - error: Non-nil if coordinates are outside the image bounds.
//
// The color is read as non-premultiplied 8-bit components, so a half
// transparent red pixel reports R=255 rather than R=127.
func SampleColor(img image.Image, x, y int) (*ColorResult, error) {
	bounds := img.Bounds()
	if x < bounds.Min.X || x >= bounds.Max.X || y < bounds.Min.Y || y >= bounds.Max.Y {
		return nil, fmt.Errorf("%w: coordinates (%d,%d) outside image bounds", ErrInvalidInput, x, y)
	}

	c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)

	return &ColorResult{
		Hex:  fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B),
		RGB:  RGBColor{R: c.R, G: c.G, B: c.B},
		RGBA: RGBAColor{R: c.R, G: c.G, B: c.B, A: c.A},
		HSV:  RGBToHSV(c.R, c.G, c.B),
	}, nil
}

// ColorFrequency represents a candidate stamp color and how much of the image it covers.
type ColorFrequency struct {
	Hex        string   `json:"hex"`        // Hex color "#RRGGBB" (quantized)
	Percentage float64  `json:"percentage"` // Percentage of all pixels with this color (0-100)
	RGB        RGBColor `json:"rgb"`        // RGB components (quantized)
	HSV        HSVColor `json:"hsv"`        // Half-range HSV of the quantized color
}

// SuggestedColorsResult contains candidate stamp colors, most frequent first.
type SuggestedColorsResult struct {
	Colors []ColorFrequency `json:"colors"`
}

// SuggestStampColors finds the most common saturated colors in an image.
//
// Paper, ink and scanner noise are mostly low-saturation or dark, so pixels
// whose saturation or value fall below the floors in opts are skipped, as are
// fully transparent pixels. What remains is quantized and counted.
//
// Parameters:
//   - img: The source image to analyze.
//   - count: Maximum number of colors to return.
//   - opts: Classifier options; only SaturationRange.Min and ValueRange.Min
//     are consulted.
//
// # Color Quantization
//
// RGB components are quantized by dividing by 16 and rounding down, so colors
// within 16 units of each other (per component) are grouped together:
//
//	quantized = (original / 16) * 16
//
// Percentages are relative to the total pixel count, not to the saturated
// subset, so a stamp covering 3% of the page reports roughly 3.
func SuggestStampColors(img image.Image, count int, opts ClassifyOptions) *SuggestedColorsResult {
	bounds := img.Bounds()
	counts := make(map[uint32]int)
	total := bounds.Dx() * bounds.Dy()

	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			if c.A == 0 {
				continue
			}
			hsv := RGBToHSV(c.R, c.G, c.B)
			if hsv.S < opts.SaturationRange.Min || hsv.V < opts.ValueRange.Min {
				continue
			}
			key := uint32(c.R/16*16)<<16 | uint32(c.G/16*16)<<8 | uint32(c.B/16*16)
			counts[key]++
		}
	}

	colors := make([]ColorFrequency, 0, len(counts))
	for key, n := range counts {
		r, g, b := uint8(key>>16), uint8(key>>8), uint8(key)
		colors = append(colors, ColorFrequency{
			Hex:        fmt.Sprintf("#%02X%02X%02X", r, g, b),
			Percentage: float64(n) / float64(total) * 100,
			RGB:        RGBColor{R: r, G: g, B: b},
			HSV:        RGBToHSV(r, g, b),
		})
	}

	sort.Slice(colors, func(i, j int) bool {
		if colors[i].Percentage != colors[j].Percentage {
			return colors[i].Percentage > colors[j].Percentage
		}
		return colors[i].Hex < colors[j].Hex
	})

	if count > 0 && len(colors) > count {
		colors = colors[:count]
	}

	return &SuggestedColorsResult{Colors: colors}
}
