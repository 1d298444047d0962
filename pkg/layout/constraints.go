// Package layout defines the value types a surface hands to the render
// pipeline for one layout pass: sizing bounds, direction, viewport offset
// and scale. The layout algorithm itself lives behind the pipeline and is
// not part of this package.
package layout

import (
	"fmt"
	"math"
)

// Direction is the writing direction a surface is laid out in.
type Direction int

const (
	// DirectionUndefined lets the pipeline inherit its default direction.
	DirectionUndefined Direction = iota
	// DirectionLTR lays content out left to right.
	DirectionLTR
	// DirectionRTL lays content out right to left.
	DirectionRTL
)

func (d Direction) String() string {
	switch d {
	case DirectionLTR:
		return "ltr"
	case DirectionRTL:
		return "rtl"
	default:
		return "undefined"
	}
}

// Constraints bounds the size of a surface's root for one layout pass.
type Constraints struct {
	MinSize   Size
	MaxSize   Size
	Direction Direction
}

// Unbounded returns constraints with no maximum in either axis.
func Unbounded() Constraints {
	return Constraints{
		MaxSize: Size{Width: math.Inf(1), Height: math.Inf(1)},
	}
}

// Tight returns constraints that admit exactly the given size.
func Tight(size Size) Constraints {
	return Constraints{MinSize: size, MaxSize: size}
}

// IsTight reports whether the constraints admit exactly one size.
func (c Constraints) IsTight() bool {
	return floatEqual(c.MinSize.Width, c.MaxSize.Width) &&
		floatEqual(c.MinSize.Height, c.MaxSize.Height)
}

// Clamp returns the size closest to s that satisfies the constraints.
func (c Constraints) Clamp(s Size) Size {
	return Size{
		Width:  math.Max(c.MinSize.Width, math.Min(c.MaxSize.Width, s.Width)),
		Height: math.Max(c.MinSize.Height, math.Min(c.MaxSize.Height, s.Height)),
	}
}

// Equal reports whether two constraints are approximately equal.
func (c Constraints) Equal(other Constraints) bool {
	return c.Direction == other.Direction &&
		floatEqual(c.MinSize.Width, other.MinSize.Width) &&
		floatEqual(c.MinSize.Height, other.MinSize.Height) &&
		floatEqual(c.MaxSize.Width, other.MaxSize.Width) &&
		floatEqual(c.MaxSize.Height, other.MaxSize.Height)
}

func (c Constraints) String() string {
	return fmt.Sprintf("(%g,%g)-(%g,%g) %s",
		c.MinSize.Width, c.MinSize.Height, c.MaxSize.Width, c.MaxSize.Height, c.Direction)
}

// Context carries the per-pass metadata that is not a sizing bound.
type Context struct {
	// PointScaleFactor is the number of physical pixels per logical point.
	PointScaleFactor float64
	// SwapLeftAndRightInRTL mirrors left/right style edges when the
	// direction is RTL.
	SwapLeftAndRightInRTL bool
	// ViewportOffset is the surface origin within the host window.
	ViewportOffset Offset
}

// DefaultContext returns a context with a scale factor of 1.
func DefaultContext() Context {
	return Context{PointScaleFactor: 1}
}

// RoundToPixelGrid snaps a logical value to the nearest physical pixel.
func (c Context) RoundToPixelGrid(v float64) float64 {
	scale := c.PointScaleFactor
	if scale <= 0 {
		scale = 1
	}
	return math.Round(v*scale) / scale
}

// PhysicalSize converts a logical size to physical pixels.
func (c Context) PhysicalSize(s Size) Size {
	scale := c.PointScaleFactor
	if scale <= 0 {
		scale = 1
	}
	return Size{Width: s.Width * scale, Height: s.Height * scale}
}
