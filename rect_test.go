package reframe

import (
	"math"
	"testing"
)

func TestRectCenter(t *testing.T) {

	r := NewRect(100, 200, 50, 80)
	c := r.Center()

	if c.X != 125 || c.Y != 240 {
		t.Errorf("expected center (125, 240), got (%v, %v)", c.X, c.Y)
	}
}

func TestRectIsValid(t *testing.T) {

	tests := []struct {
		name string
		rect Rect
		want bool
	}{
		{"normal", NewRect(0, 0, 100, 100), true},
		{"zero width", NewRect(0, 0, 0, 100), false},
		{"negative height", NewRect(0, 0, 100, -5), false},
		{"nan coordinate", NewRect(math.NaN(), 0, 100, 100), false},
		{"infinite width", NewRect(0, 0, math.Inf(1), 100), false},
		{"negative origin", NewRect(-10, -10, 100, 100), true},
	}

	for _, tt := range tests {
		if got := tt.rect.IsValid(); got != tt.want {
			t.Errorf("%s: IsValid() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestRectIoU(t *testing.T) {

	a := NewRect(0, 0, 100, 100)

	if iou := a.IoU(a); math.Abs(iou-1) > 1e-9 {
		t.Errorf("identical rects should have IoU 1, got %v", iou)
	}

	// half overlap, area 5000 over union 15000
	b := NewRect(50, 0, 100, 100)

	if iou := a.IoU(b); math.Abs(iou-1.0/3.0) > 1e-9 {
		t.Errorf("expected IoU 1/3, got %v", iou)
	}

	// disjoint
	c := NewRect(200, 200, 10, 10)

	if iou := a.IoU(c); iou != 0 {
		t.Errorf("disjoint rects should have IoU 0, got %v", iou)
	}

	// touching edges only
	d := NewRect(100, 0, 50, 100)

	if iou := a.IoU(d); iou != 0 {
		t.Errorf("touching rects should have IoU 0, got %v", iou)
	}
}

func TestPointDistanceTo(t *testing.T) {

	p := Point{X: 0, Y: 0}
	q := Point{X: 3, Y: 4}

	if d := p.DistanceTo(q); d != 5 {
		t.Errorf("expected distance 5, got %v", d)
	}
}

func TestWindowValid(t *testing.T) {

	tests := []struct {
		name string
		win  Window
		want bool
	}{
		{"full frame", NewWindow(0, 0, 1920, 1080), true},
		{"interior", NewWindow(100, 0, 608, 1080), true},
		{"negative x", NewWindow(-1, 0, 608, 1080), false},
		{"overruns width", NewWindow(1400, 0, 608, 1080), false},
		{"overruns height", NewWindow(0, 10, 608, 1080), false},
		{"zero width", NewWindow(0, 0, 0, 1080), false},
	}

	for _, tt := range tests {
		if got := tt.win.Valid(1920, 1080); got != tt.want {
			t.Errorf("%s: Valid() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestWindowCenter(t *testing.T) {

	w := NewWindow(656, 0, 608, 1080)
	c := w.Center()

	if c.X != 960 || c.Y != 540 {
		t.Errorf("expected center (960, 540), got (%v, %v)", c.X, c.Y)
	}
}
