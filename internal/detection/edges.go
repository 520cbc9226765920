package detection

import (
	"image"
	"math"
)

// Gradients holds the Sobel derivatives of a grayscale image in row-major
// order.
type Gradients struct {
	Width  int
	Height int
	DX     []float64
	DY     []float64
	Mag    []float64
}

// SobelGradients computes 3x3 Sobel derivatives of gray. Pixel values are
// used unnormalized (0-255), so a hard black-to-white step has a magnitude
// of 1020. Border pixels use clamped (replicated) neighbors.
func SobelGradients(gray *image.Gray) *Gradients {
	b := gray.Bounds()
	width, height := b.Dx(), b.Dy()
	n := width * height
	g := &Gradients{
		Width:  width,
		Height: height,
		DX:     make([]float64, n),
		DY:     make([]float64, n),
		Mag:    make([]float64, n),
	}

	sobelX := [3][3]float64{
		{-1, 0, 1},
		{-2, 0, 2},
		{-1, 0, 1},
	}
	sobelY := [3][3]float64{
		{-1, -2, -1},
		{0, 0, 0},
		{1, 2, 1},
	}

	at := func(x, y int) float64 {
		x = clamp(x, 0, width-1)
		y = clamp(y, 0, height-1)
		return float64(gray.Pix[gray.PixOffset(b.Min.X+x, b.Min.Y+y)])
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var gx, gy float64
			for ky := -1; ky <= 1; ky++ {
				for kx := -1; kx <= 1; kx++ {
					v := at(x+kx, y+ky)
					gx += v * sobelX[ky+1][kx+1]
					gy += v * sobelY[ky+1][kx+1]
				}
			}
			i := y*width + x
			g.DX[i] = gx
			g.DY[i] = gy
			g.Mag[i] = math.Sqrt(gx*gx + gy*gy)
		}
	}
	return g
}

// Canny thins the gradient magnitude to one-pixel ridges and keeps the
// ridges above high plus any ridge pixels above low that are 8-connected to
// them. It returns one flag per pixel.
//
// # Algorithm
//
//  1. Non-maximum suppression: keep a pixel only if its magnitude is not
//     smaller than both neighbors along the quantized gradient direction
//     (0°, 45°, 90° or 135°). Border pixels are never edges.
//  2. Hysteresis: seed from strong pixels (>= high) and flood through weak
//     pixels (>= low).
func Canny(g *Gradients, low, high float64) []bool {
	width, height := g.Width, g.Height
	suppressed := make([]float64, width*height)

	for y := 1; y < height-1; y++ {
		for x := 1; x < width-1; x++ {
			i := y*width + x
			mag := g.Mag[i]
			if mag < low {
				continue
			}

			angle := math.Atan2(g.DY[i], g.DX[i])
			var n1, n2 float64
			if (angle >= -math.Pi/8 && angle < math.Pi/8) || (angle >= 7*math.Pi/8 || angle < -7*math.Pi/8) {
				n1 = g.Mag[i-1]
				n2 = g.Mag[i+1]
			} else if (angle >= math.Pi/8 && angle < 3*math.Pi/8) || (angle >= -7*math.Pi/8 && angle < -5*math.Pi/8) {
				n1 = g.Mag[i-width-1]
				n2 = g.Mag[i+width+1]
			} else if (angle >= 3*math.Pi/8 && angle < 5*math.Pi/8) || (angle >= -5*math.Pi/8 && angle < -3*math.Pi/8) {
				n1 = g.Mag[i-width]
				n2 = g.Mag[i+width]
			} else {
				n1 = g.Mag[i-width+1]
				n2 = g.Mag[i+width-1]
			}

			if mag >= n1 && mag >= n2 {
				suppressed[i] = mag
			}
		}
	}

	edges := make([]bool, width*height)
	stack := make([]int, 0, 256)
	for i, v := range suppressed {
		if v < high || edges[i] {
			continue
		}
		edges[i] = true
		stack = append(stack, i)

		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			px, py := p%width, p/width

			for dy := -1; dy <= 1; dy++ {
				for dx := -1; dx <= 1; dx++ {
					nx, ny := px+dx, py+dy
					if nx < 0 || nx >= width || ny < 0 || ny >= height {
						continue
					}
					j := ny*width + nx
					if !edges[j] && suppressed[j] >= low {
						edges[j] = true
						stack = append(stack, j)
					}
				}
			}
		}
	}

	return edges
}

// clamp constrains an integer value to the range [lo, hi].
func clamp(val, lo, hi int) int {
	if val < lo {
		return lo
	}
	if val > hi {
		return hi
	}
	return val
}
