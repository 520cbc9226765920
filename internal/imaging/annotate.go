package imaging

import (
	"image"
	"image/color"
	"math"
	"strconv"

	"github.com/disintegration/imaging"
)

// Annotate draws each circle's outline on a copy of img and labels it with
// its 1-based index, so a user can see which detection produced which stamp.
//
// Parameters:
//   - img: The source image. It is not modified.
//   - circles: Detected circles, in the order they will be numbered.
//   - outline: Outline color. Labels are drawn white on a translucent black
//     background.
//
// Returns a new *image.NRGBA with the same bounds as img, rebased to (0,0).
func Annotate(img image.Image, circles []Circle, outline ColorSpec) *image.NRGBA {
	result := imaging.Clone(img)

	stroke := outline.NRGBA()
	labelColor := color.NRGBA{255, 255, 255, 255}
	bgColor := color.NRGBA{0, 0, 0, 180}

	for i, c := range circles {
		cx := int(math.Round(c.X))
		cy := int(math.Round(c.Y))
		r := int(math.Round(c.Radius))
		// Two rings so the outline survives downscaled previews.
		drawCircle(result, cx, cy, r, stroke)
		if r > 1 {
			drawCircle(result, cx, cy, r-1, stroke)
		}
		drawLabel(result, cx-2, cy-3, strconv.Itoa(i+1), labelColor, bgColor)
	}

	return result
}

// drawCircle rasterizes a circle outline with the midpoint algorithm.
func drawCircle(img *image.NRGBA, cx, cy, r int, c color.NRGBA) {
	if r <= 0 {
		setClipped(img, cx, cy, c)
		return
	}
	x, y := r, 0
	d := 1 - r
	for x >= y {
		for _, p := range [8][2]int{
			{x, y}, {y, x}, {-y, x}, {-x, y},
			{-x, -y}, {-y, -x}, {y, -x}, {x, -y},
		} {
			setClipped(img, cx+p[0], cy+p[1], c)
		}
		y++
		if d < 0 {
			d += 2*y + 1
		} else {
			x--
			d += 2*(y-x) + 1
		}
	}
}

func setClipped(img *image.NRGBA, x, y int, c color.NRGBA) {
	if image.Pt(x, y).In(img.Bounds()) {
		img.SetNRGBA(x, y, c)
	}
}

// drawLabel draws a simple text label at the given position using a 3x5
// pixel font for digits.
func drawLabel(img *image.NRGBA, x, y int, text string, fg, bg color.NRGBA) {
	glyphs := map[rune][]string{
		'0': {"111", "101", "101", "101", "111"},
		'1': {"010", "110", "010", "010", "111"},
		'2': {"111", "001", "111", "100", "111"},
		'3': {"111", "001", "111", "001", "111"},
		'4': {"101", "101", "111", "001", "001"},
		'5': {"111", "100", "111", "001", "111"},
		'6': {"111", "100", "111", "101", "111"},
		'7': {"111", "001", "001", "001", "001"},
		'8': {"111", "101", "111", "101", "111"},
		'9': {"111", "101", "111", "001", "111"},
	}

	charWidth := 4
	labelWidth := len(text) * charWidth
	labelHeight := 7

	for dy := -1; dy < labelHeight; dy++ {
		for dx := -1; dx < labelWidth; dx++ {
			setClipped(img, x+dx, y+dy, bg)
		}
	}

	cx := x
	for _, ch := range text {
		glyph, ok := glyphs[ch]
		if !ok {
			cx += charWidth
			continue
		}
		for row, line := range glyph {
			for col, pixel := range line {
				if pixel == '1' {
					setClipped(img, cx+col, y+row, fg)
				}
			}
		}
		cx += charWidth
	}
}
