package crop

import (
	"testing"

	"github.com/IORoot/reframer"
	"github.com/stretchr/testify/require"
)

func TestSmoothConstantSequenceUnchanged(t *testing.T) {
	s := NewWindowSmoother(30, 0.8, 0.9)

	win := reframe.NewWindow(656, 0, 608, 1080)
	windows := make([]reframe.Window, 90)

	for i := range windows {
		windows[i] = win
	}

	smoothed := s.Smooth(windows, 1920, 1080)

	require.Len(t, smoothed, len(windows))

	for i, got := range smoothed {
		require.Equal(t, win, got, "frame %d", i)
	}
}

func TestSmoothDampsStepChange(t *testing.T) {
	s := NewWindowSmoother(10, 0.8, 0.9)

	windows := make([]reframe.Window, 60)

	for i := range windows {
		if i < 30 {
			windows[i] = reframe.NewWindow(0, 0, 608, 1080)
		} else {
			windows[i] = reframe.NewWindow(1000, 0, 608, 1080)
		}
	}

	smoothed := s.Smooth(windows, 1920, 1080)

	// the jump at frame 30 is spread out rather than instantaneous
	jump := smoothed[30].X - smoothed[29].X
	require.Less(t, jump, 1000)
	require.GreaterOrEqual(t, jump, 0)

	// and the sequence still ends up at the new position
	require.InDelta(t, 1000, smoothed[len(smoothed)-1].X, 5)
}

func TestSmoothStaysWithinFrame(t *testing.T) {
	s := NewWindowSmoother(5, 0.5, 0.5)

	// alternate between the two horizontal extremes
	windows := make([]reframe.Window, 40)

	for i := range windows {
		if i%2 == 0 {
			windows[i] = reframe.NewWindow(0, 0, 608, 1080)
		} else {
			windows[i] = reframe.NewWindow(1312, 0, 608, 1080)
		}
	}

	for i, win := range s.Smooth(windows, 1920, 1080) {
		require.True(t, win.Valid(1920, 1080), "frame %d", i)
	}
}

func TestSmoothEmptyInput(t *testing.T) {
	s := NewWindowSmoother(30, 0.8, 0.9)
	require.Nil(t, s.Smooth(nil, 1920, 1080))
}

func TestSmoothDoesNotModifyInput(t *testing.T) {
	s := NewWindowSmoother(4, 0.8, 0.9)

	windows := []reframe.Window{
		reframe.NewWindow(0, 0, 608, 1080),
		reframe.NewWindow(400, 0, 608, 1080),
		reframe.NewWindow(800, 0, 608, 1080),
	}

	orig := make([]reframe.Window, len(windows))
	copy(orig, windows)

	s.Smooth(windows, 1920, 1080)

	require.Equal(t, orig, windows)
}
