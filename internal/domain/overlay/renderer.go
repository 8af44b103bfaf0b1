package overlay

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/kinesia/poseloop/internal/domain/model"
	"github.com/kinesia/poseloop/pkg/logger"
	"github.com/kinesia/poseloop/pkg/metrics"
)

// Option applies a configuration option to the Renderer.
type Option func(*Renderer)

// WithVisibilityThreshold sets the confidence below which a keypoint is
// excluded from rendering.
func WithVisibilityThreshold(threshold float64) Option {
	return func(r *Renderer) {
		if threshold > 0 && threshold < 1 {
			r.visibilityThreshold = threshold
		}
	}
}

// WithLogger sets a custom logger for the renderer.
func WithLogger(log logger.Logger) Option {
	return func(r *Renderer) {
		if log != nil {
			r.logger = log
		}
	}
}

// Renderer draws the latest keypoint snapshot onto a Canvas. It keeps no
// state between calls beyond the enabled toggle; every render clears the
// surface and redraws from scratch.
type Renderer struct {
	canvas              Canvas
	visibilityThreshold float64
	enabled             atomic.Bool
	logger              logger.Logger
}

// New creates a renderer drawing onto canvas. The renderer starts enabled.
func New(canvas Canvas, opts ...Option) *Renderer {
	r := &Renderer{
		canvas:              canvas,
		visibilityThreshold: model.DefaultVisibilityThreshold,
		logger:              logger.Get().Named("overlay"),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.enabled.Store(true)
	return r
}

// SetEnabled toggles overlay drawing. Disabling clears the surface so no
// stale skeleton lingers.
func (r *Renderer) SetEnabled(enabled bool) {
	r.enabled.Store(enabled)
	if !enabled {
		r.canvas.Clear()
	}
}

// Enabled reports whether overlay drawing is on.
func (r *Renderer) Enabled() bool {
	return r.enabled.Load()
}

// Clear erases the surface. Used on session teardown.
func (r *Renderer) Clear() {
	r.canvas.Clear()
}

// Render clears the surface and draws every subject whose keypoint set has
// the expected cardinality, scaled from source-image space to display
// space. Subjects with absent or malformed keypoints are skipped whole; a
// partial skeleton is never drawn.
func (r *Renderer) Render(ctx context.Context, keypointsBySubject map[int][]model.Keypoint, display, source Size) {
	if !r.enabled.Load() {
		return
	}
	r.canvas.Clear()
	metrics.RecordRender()

	if !display.Valid() || !source.Valid() {
		r.logger.Warn(ctx, "render skipped: degenerate surface size",
			logger.Float64("displayWidth", display.Width),
			logger.Float64("displayHeight", display.Height),
		)
		return
	}

	// Scale factors are recomputed every render to tolerate surface resizes.
	scaleX := display.Width / source.Width
	scaleY := display.Height / source.Height

	for _, id := range sortedSubjectIDs(keypointsBySubject) {
		keypoints := keypointsBySubject[id]
		if len(keypoints) != model.KeypointCount {
			metrics.RecordRenderSubjectSkipped()
			continue
		}
		r.drawSubject(keypoints, scaleX, scaleY)
	}
}

func (r *Renderer) drawSubject(keypoints []model.Keypoint, scaleX, scaleY float64) {
	project := func(k model.Keypoint) Point {
		return Point{X: k.X * scaleX, Y: k.Y * scaleY}
	}

	for _, region := range regionOrder {
		for _, conn := range skeleton[region] {
			a, b := keypoints[conn.a], keypoints[conn.b]
			if !a.Visible(r.visibilityThreshold) || !b.Visible(r.visibilityThreshold) {
				continue
			}
			r.canvas.Line(project(a), project(b), region)
		}
	}

	for i, k := range keypoints {
		if !k.Visible(r.visibilityThreshold) {
			continue
		}
		r.canvas.Marker(project(k), landmarkLabels[i])
	}
}

// sortedSubjectIDs fixes iteration order over the subject map.
func sortedSubjectIDs(m map[int][]model.Keypoint) []int {
	ids := make([]int, 0, len(m))
	for id := range m {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}
