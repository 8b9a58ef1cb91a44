package editor

import "math"

// DefaultCanvas is the logical size of an A4 landscape page at 96 DPI. All
// position overrides are expressed in this coordinate space regardless of the
// on-screen scale.
var DefaultCanvas = Size{Width: 1123, Height: 794}

const (
	minFitScale = 0.1
	maxFitScale = 1.0
)

// fitScale computes the uniform scale that fits the canvas into the available
// container area without cropping. The result is clamped so extreme container
// sizes never collapse or magnify the document.
func fitScale(avail, canvas Size) float64 {
	if canvas.Width <= 0 || canvas.Height <= 0 {
		return maxFitScale
	}
	if avail.Width <= 0 || avail.Height <= 0 {
		return minFitScale
	}
	scale := math.Min(avail.Width/canvas.Width, avail.Height/canvas.Height)
	return clampScale(scale)
}

func clampScale(scale float64) float64 {
	if scale < minFitScale {
		return minFitScale
	}
	if scale > maxFitScale {
		return maxFitScale
	}
	return scale
}

// toCanvas converts a screen-space point into canvas units given the canvas
// element's on-screen origin and the current scale.
func toCanvas(pointer, canvasOrigin Point, scale float64) Point {
	if scale == 0 {
		scale = maxFitScale
	}
	return Point{
		X: (pointer.X - canvasOrigin.X) / scale,
		Y: (pointer.Y - canvasOrigin.Y) / scale,
	}
}
