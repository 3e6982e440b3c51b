package sim

// Box is an axis-aligned rectangle in whole pixels. X/Y name the top-left
// corner; the canvas origin is top-left with Y growing downward.
type Box struct {
	X int `json:"x"`
	Y int `json:"y"`
	W int `json:"w"`
	H int `json:"h"`
}

// Overlaps reports whether two boxes share any area. Intervals are half-open,
// so boxes that merely touch along an edge do not collide.
func (b Box) Overlaps(other Box) bool {
	return b.X < other.X+other.W &&
		b.X+b.W > other.X &&
		b.Y < other.Y+other.H &&
		b.Y+b.H > other.Y
}

// Inset shrinks the box by n pixels on every side. The collision pass insets
// outer bounds by one pixel as a forgiveness margin before the precise test.
func (b Box) Inset(n int) Box {
	return Box{X: b.X + n, Y: b.Y + n, W: b.W - 2*n, H: b.H - 2*n}
}

// Translate returns the box shifted by (dx, dy). Catalog sub-hitboxes are
// stored at a local origin and translated to world space at test time.
func (b Box) Translate(dx, dy int) Box {
	return Box{X: b.X + dx, Y: b.Y + dy, W: b.W, H: b.H}
}
