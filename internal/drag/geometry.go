package drag

import "gioui.org/f32"

// Rect is an axis-aligned screen rectangle with Min at the top-left.
type Rect struct {
	Min, Max f32.Point
}

// R builds a rectangle from its left, top, right and bottom edges.
func R(left, top, right, bottom float32) Rect {
	return Rect{Min: f32.Pt(left, top), Max: f32.Pt(right, bottom)}
}

// SpansX reports whether x lies within the rectangle's horizontal span,
// edges included.
func (r Rect) SpansX(x float32) bool {
	return x >= r.Min.X && x <= r.Max.X
}

// Contains reports whether p lies inside the rectangle, edges included.
func (r Rect) Contains(p f32.Point) bool {
	return r.SpansX(p.X) && p.Y >= r.Min.Y && p.Y <= r.Max.Y
}
