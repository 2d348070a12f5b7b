// Package canvas captures handwriting strokes as coordinate arrays and
// renders them to PNG. It models the drawing surface's data only; actual
// pointer events and on-screen drawing belong to the hosting UI.
package canvas

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"

	"golang.org/x/image/vector"
)

// DefaultLineWidth is the rendered stroke thickness in pixels.
const DefaultLineWidth = 3.0

// Stroke is one continuous pen trace as parallel coordinate arrays.
type Stroke struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// Len returns the number of points in the stroke.
func (s Stroke) Len() int { return len(s.X) }

type state int

const (
	stateIdle state = iota
	stateDrawing
)

// Canvas accumulates strokes for one drawing session.
//
// The capture cycle is idle -> drawing -> idle: Begin opens a stroke, Move
// appends points while drawing, End (or Leave) finalises it. Strokes with
// fewer than two points are discarded at finalisation.
type Canvas struct {
	width     int
	height    int
	lineWidth float64
	strokes   []Stroke
	current   Stroke
	state     state
}

// Option configures a Canvas.
type Option func(*Canvas)

// WithLineWidth overrides the rendered stroke thickness.
func WithLineWidth(w float64) Option {
	return func(c *Canvas) {
		if w > 0 {
			c.lineWidth = w
		}
	}
}

// New returns an empty canvas with the given pixel dimensions.
func New(width, height int, opts ...Option) (*Canvas, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("canvas: invalid dimensions %dx%d", width, height)
	}
	c := &Canvas{width: width, height: height, lineWidth: DefaultLineWidth}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Width returns the canvas width in pixels.
func (c *Canvas) Width() int { return c.width }

// Height returns the canvas height in pixels.
func (c *Canvas) Height() int { return c.height }

// Begin starts a new stroke at (x, y). An in-flight stroke is finalised
// first, so a missed pointer-up cannot merge two traces.
func (c *Canvas) Begin(x, y float64) {
	if c.state == stateDrawing {
		c.End()
	}
	c.state = stateDrawing
	c.current = Stroke{X: []float64{x}, Y: []float64{y}}
}

// Move appends a point to the in-flight stroke. It is a no-op while idle,
// matching pointer-move events that arrive with no button down.
func (c *Canvas) Move(x, y float64) {
	if c.state != stateDrawing {
		return
	}
	c.current.X = append(c.current.X, x)
	c.current.Y = append(c.current.Y, y)
}

// End finalises the in-flight stroke, discarding it when it has fewer than
// two points.
func (c *Canvas) End() {
	if c.state != stateDrawing {
		return
	}
	c.state = stateIdle
	if c.current.Len() >= 2 {
		c.strokes = append(c.strokes, c.current)
	}
	c.current = Stroke{}
}

// Leave finalises like End; it mirrors the pointer leaving the surface.
func (c *Canvas) Leave() { c.End() }

// Undo removes the most recently finalised stroke and reports whether
// anything was removed. Rendering always replays the remaining strokes from
// scratch, so no incremental erase is needed.
func (c *Canvas) Undo() bool {
	if len(c.strokes) == 0 {
		return false
	}
	c.strokes = c.strokes[:len(c.strokes)-1]
	return true
}

// Clear removes all strokes and aborts any in-flight capture.
func (c *Canvas) Clear() {
	c.strokes = nil
	c.current = Stroke{}
	c.state = stateIdle
}

// Resize rescales every stored point by the ratio of the new to the old
// dimensions, preserving drawing proportions.
func (c *Canvas) Resize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("canvas: invalid dimensions %dx%d", width, height)
	}
	sx := float64(width) / float64(c.width)
	sy := float64(height) / float64(c.height)
	scale := func(s *Stroke) {
		for i := range s.X {
			s.X[i] *= sx
			s.Y[i] *= sy
		}
	}
	for i := range c.strokes {
		scale(&c.strokes[i])
	}
	scale(&c.current)
	c.width = width
	c.height = height
	return nil
}

// StrokeCount returns the number of finalised strokes.
func (c *Canvas) StrokeCount() int { return len(c.strokes) }

// IsEmpty reports whether no stroke has been finalised.
func (c *Canvas) IsEmpty() bool { return len(c.strokes) == 0 }

// Strokes returns a deep copy of the finalised strokes.
func (c *Canvas) Strokes() []Stroke {
	out := make([]Stroke, len(c.strokes))
	for i, s := range c.strokes {
		out[i] = Stroke{
			X: append([]float64(nil), s.X...),
			Y: append([]float64(nil), s.Y...),
		}
	}
	return out
}

// strokesDocument is the JSON layout of the exported stroke data.
type strokesDocument struct {
	Width   int      `json:"width"`
	Height  int      `json:"height"`
	Strokes []Stroke `json:"strokes"`
}

// StrokesJSON serialises the stroke coordinate arrays together with the
// canvas dimensions.
func (c *Canvas) StrokesJSON() ([]byte, error) {
	doc := strokesDocument{Width: c.width, Height: c.height, Strokes: c.strokes}
	if doc.Strokes == nil {
		doc.Strokes = []Stroke{}
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("canvas: marshal strokes: %w", err)
	}
	return data, nil
}

// EncodePNG rasterises the finalised strokes in black on a white background.
func (c *Canvas) EncodePNG() ([]byte, error) {
	if c.width <= 0 || c.height <= 0 {
		return nil, errors.New("canvas: not initialised")
	}
	dst := image.NewRGBA(image.Rect(0, 0, c.width, c.height))
	for i := range dst.Pix {
		dst.Pix[i] = 0xff
	}

	if len(c.strokes) > 0 {
		r := vector.NewRasterizer(c.width, c.height)
		half := c.lineWidth / 2
		for _, s := range c.strokes {
			for i := 0; i+1 < s.Len(); i++ {
				quadForSegment(r, s.X[i], s.Y[i], s.X[i+1], s.Y[i+1], half)
			}
		}
		r.Draw(dst, dst.Bounds(), image.NewUniform(color.Black), image.Point{})
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dst); err != nil {
		return nil, fmt.Errorf("canvas: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// quadForSegment adds the filled quad covering one line segment with the
// given half thickness.
func quadForSegment(r *vector.Rasterizer, x0, y0, x1, y1, half float64) {
	dx, dy := x1-x0, y1-y0
	length := math.Hypot(dx, dy)
	if length == 0 {
		return
	}
	// Perpendicular unit vector scaled to half the line width.
	px := -dy / length * half
	py := dx / length * half

	r.MoveTo(float32(x0+px), float32(y0+py))
	r.LineTo(float32(x1+px), float32(y1+py))
	r.LineTo(float32(x1-px), float32(y1-py))
	r.LineTo(float32(x0-px), float32(y0-py))
	r.ClosePath()
}
