// Package overlay renders skeletal pose overlays onto an abstract drawing
// surface. The renderer is a pure function of its inputs; the surface is
// fully cleared and redrawn on every call.
package overlay

import "sync"

// Point is a position in display-surface space.
type Point struct {
	X float64
	Y float64
}

// Size is the dimensions of a surface or source image in pixels.
type Size struct {
	Width  float64
	Height float64
}

// Valid reports whether both dimensions are positive.
func (s Size) Valid() bool {
	return s.Width > 0 && s.Height > 0
}

// Region names a body-region group of skeletal connections.
type Region string

// Body regions, each grouping the connections drawn for it.
const (
	RegionHead     Region = "head"
	RegionTorso    Region = "torso"
	RegionLeftArm  Region = "left_arm"
	RegionRightArm Region = "right_arm"
	RegionLeftLeg  Region = "left_leg"
	RegionRightLeg Region = "right_leg"
)

// Canvas is the drawing surface contract the renderer draws onto. The host
// UI supplies the real surface; tests use RecordingCanvas.
type Canvas interface {
	// Clear erases the entire surface.
	Clear()

	// Line draws a skeletal connection between two display-space points.
	Line(from, to Point, region Region)

	// Marker draws a labeled joint marker at a display-space point.
	Marker(at Point, label string)
}

// Op is one recorded draw call.
type Op struct {
	Kind   string // "clear", "line", or "marker"
	From   Point
	To     Point
	Region Region
	Label  string
}

// RecordingCanvas is a Canvas that records draw calls. It is safe for
// concurrent use.
type RecordingCanvas struct {
	mu  sync.Mutex
	ops []Op
}

// NewRecordingCanvas creates an empty recording canvas.
func NewRecordingCanvas() *RecordingCanvas {
	return &RecordingCanvas{}
}

// Clear erases recorded state and records the clear itself.
func (c *RecordingCanvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = c.ops[:0]
	c.ops = append(c.ops, Op{Kind: "clear"})
}

// Line records a line draw call.
func (c *RecordingCanvas) Line(from, to Point, region Region) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, Op{Kind: "line", From: from, To: to, Region: region})
}

// Marker records a marker draw call.
func (c *RecordingCanvas) Marker(at Point, label string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, Op{Kind: "marker", From: at, Label: label})
}

// Ops returns a copy of the draw calls recorded since the last Clear.
func (c *RecordingCanvas) Ops() []Op {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Op, len(c.ops))
	copy(out, c.ops)
	return out
}
