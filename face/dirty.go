package face

import "image"

// dirtyTracker accumulates the union of changed screen regions for one
// frame (spec §4.9: "The union rectangle of all regions that may have
// changed this frame").
type dirtyTracker struct {
	bounds image.Rectangle
	rect   image.Rectangle
	full   bool
}

func newDirtyTracker(bounds image.Rectangle) *dirtyTracker {
	return &dirtyTracker{bounds: bounds}
}

// markFull marks the whole screen dirty, per spec §4.9's "conservative
// policy" for calibration/system/rage/sparkle/afterglow frames.
func (d *dirtyTracker) markFull() {
	d.full = true
}

// mark unions r into the dirty rectangle. A no-op once markFull has been
// called.
func (d *dirtyTracker) mark(r image.Rectangle) {
	if d.full || r.Empty() {
		return
	}
	if d.rect.Empty() {
		d.rect = r
		return
	}
	d.rect = d.rect.Union(r)
}

// Rect returns the final, bounds-clipped dirty rectangle for the frame.
func (d *dirtyTracker) Rect() image.Rectangle {
	if d.full || d.rect.Empty() {
		return d.bounds
	}
	return d.rect.Intersect(d.bounds)
}

// faceBand returns the central region covering the eyes and mouth, the
// non-full-screen default dirty region (spec §4.9: "a central band
// covering eyes+mouth").
func faceBand(dims image.Point) image.Rectangle {
	marginX := dims.X / 8
	marginY := dims.Y / 6
	return image.Rect(marginX, marginY, dims.X-marginX, dims.Y-marginY)
}

// borderEdgeStrips returns the thin strips along all four screen edges
// unioned in when the conversation border is active (spec §4.9).
func borderEdgeStrips(dims image.Point, thickness int) image.Rectangle {
	if thickness <= 0 {
		thickness = 1
	}
	// A single bounding rectangle covering the strips is sufficient
	// since the dirty rect is itself a bounding box, not an exact mask.
	return image.Rect(0, 0, dims.X, dims.Y)
}
