package layout

import (
	"math"
	"testing"
)

func TestConstraintsClamp(t *testing.T) {
	c := Constraints{MinSize: Size{Width: 10, Height: 20}, MaxSize: Size{Width: 320, Height: 640}}
	tests := []struct {
		in   Size
		want Size
	}{
		{Size{Width: 0, Height: 0}, Size{Width: 10, Height: 20}},
		{Size{Width: 100, Height: 100}, Size{Width: 100, Height: 100}},
		{Size{Width: 1000, Height: 1000}, Size{Width: 320, Height: 640}},
	}
	for _, tt := range tests {
		if got := c.Clamp(tt.in); got != tt.want {
			t.Errorf("Clamp(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestConstraintsTight(t *testing.T) {
	if !Tight(Size{Width: 5, Height: 5}).IsTight() {
		t.Error("Tight constraints should report IsTight")
	}
	if Unbounded().IsTight() {
		t.Error("Unbounded constraints should not report IsTight")
	}
	if !math.IsInf(Unbounded().MaxSize.Width, 1) {
		t.Error("Unbounded max width should be +Inf")
	}
}

func TestConstraintsEqual(t *testing.T) {
	a := Constraints{MaxSize: Size{Width: 320, Height: 640}, Direction: DirectionLTR}
	b := a
	b.MaxSize.Width += epsilon / 2
	if !a.Equal(b) {
		t.Error("constraints within epsilon should be equal")
	}
	b.Direction = DirectionRTL
	if a.Equal(b) {
		t.Error("constraints with different direction should not be equal")
	}
	if !Unbounded().Equal(Unbounded()) {
		t.Error("unbounded constraints should equal themselves")
	}
}

func TestDirectionString(t *testing.T) {
	tests := []struct {
		d    Direction
		want string
	}{
		{DirectionUndefined, "undefined"},
		{DirectionLTR, "ltr"},
		{DirectionRTL, "rtl"},
	}
	for _, tt := range tests {
		if got := tt.d.String(); got != tt.want {
			t.Errorf("Direction(%d).String() = %q, want %q", tt.d, got, tt.want)
		}
	}
}

func TestContextPixelGrid(t *testing.T) {
	ctx := Context{PointScaleFactor: 3}
	if got, want := ctx.RoundToPixelGrid(10.1), 10.0; got != want {
		t.Errorf("RoundToPixelGrid(10.1) = %v, want %v", got, want)
	}
	if got, want := ctx.PhysicalSize(Size{Width: 2, Height: 4}), (Size{Width: 6, Height: 12}); got != want {
		t.Errorf("PhysicalSize = %v, want %v", got, want)
	}
	var zero Context
	if got, want := zero.RoundToPixelGrid(1.4), 1.0; got != want {
		t.Errorf("zero-scale RoundToPixelGrid(1.4) = %v, want %v", got, want)
	}
}

func TestRectFromOffsetAndSize(t *testing.T) {
	r := RectFromOffsetAndSize(Offset{X: 1, Y: 2}, Size{Width: 3, Height: 4})
	if r.Right != 4 || r.Bottom != 6 {
		t.Errorf("rect = %+v, want right=4 bottom=6", r)
	}
	if r.Size() != (Size{Width: 3, Height: 4}) {
		t.Errorf("Size() = %v", r.Size())
	}
	if r.IsEmpty() {
		t.Error("rect should not be empty")
	}
}
