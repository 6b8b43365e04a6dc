package crop

import (
	"math"
	"testing"

	"github.com/IORoot/reframer"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"
)

func TestCenterCropPortrait(t *testing.T) {
	// 1920x1080 to 9:16 portrait
	win := CenterCrop(1920, 1080, 9.0/16.0)

	require.Equal(t, reframe.NewWindow(656, 0, 608, 1080), win)
	require.True(t, win.Valid(1920, 1080))
}

func TestCenterCropLandscapeIntoNarrowFrame(t *testing.T) {
	// target wider than the frame forces the width to be fixed instead
	win := CenterCrop(608, 1080, 16.0/9.0)

	require.Equal(t, 608, win.Width)
	require.Equal(t, 342, win.Height)
	require.True(t, win.Valid(608, 1080))
}

func TestCenterCropUnusableRatio(t *testing.T) {
	for _, ratio := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		win := CenterCrop(1920, 1080, ratio)
		require.True(t, win.Valid(1920, 1080), "ratio %v", ratio)
	}
}

func TestCalculateSingleDetection(t *testing.T) {
	calc := NewCalculator(reframe.DefaultConfig(), nil)

	objects := []reframe.Object{
		reframe.NewObject(reframe.NewRect(800, 400, 200, 300), "person", 0, 0.9),
	}

	win := calc.Calculate(objects, 1920, 1080, nil)

	require.True(t, win.Valid(1920, 1080))
	require.Equal(t, 608, win.Width)
	require.Equal(t, 1080, win.Height)

	// attention point is the object center (900, 550), the crop is centered
	// on it and clamped vertically
	require.Equal(t, 596, win.X)
	require.Equal(t, 0, win.Y)
}

func TestCalculateAlwaysReturnsValidWindow(t *testing.T) {
	cases := []struct {
		name    string
		objects []reframe.Object
		w, h    int
	}{
		{"no objects", nil, 1920, 1080},
		{"zero frame", nil, 0, 0},
		{"negative frame", nil, -5, -5},
		{"square frame", []reframe.Object{
			reframe.NewObject(reframe.NewRect(10, 10, 50, 50), "dog", 16, 0.8),
		}, 500, 500},
		{"malformed boxes", []reframe.Object{
			reframe.NewObject(reframe.NewRect(0, 0, -10, 20), "person", 0, 0.9),
			reframe.NewObject(reframe.NewRect(math.NaN(), 0, 10, 20), "person", 0, 0.9),
			reframe.NewObject(reframe.NewRect(0, 0, 10, 0), "person", 0, 0.9),
		}, 1280, 720},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			calc := NewCalculator(reframe.DefaultConfig(), nil)
			win := calc.Calculate(tc.objects, tc.w, tc.h, nil)

			require.Positive(t, win.Width)
			require.Positive(t, win.Height)

			if tc.w > 0 && tc.h > 0 {
				require.True(t, win.Valid(tc.w, tc.h))
			}
		})
	}
}

func TestCalculateDropsMalformedObjects(t *testing.T) {
	valid := reframe.NewObject(reframe.NewRect(800, 400, 200, 300), "person", 0, 0.9)

	a := NewCalculator(reframe.DefaultConfig(), nil)
	b := NewCalculator(reframe.DefaultConfig(), nil)

	clean := a.Calculate([]reframe.Object{valid}, 1920, 1080, nil)

	dirty := b.Calculate([]reframe.Object{
		reframe.NewObject(reframe.NewRect(0, 0, 0, 0), "person", 0, 0.9),
		valid,
		reframe.NewObject(reframe.NewRect(5, 5, math.Inf(1), 10), "car", 2, 0.7),
	}, 1920, 1080, nil)

	require.Equal(t, clean, dirty)
}

func TestCalculateHoldsPreviousWindowOnSignalLoss(t *testing.T) {
	calc := NewCalculator(reframe.DefaultConfig(), nil)

	objects := []reframe.Object{
		reframe.NewObject(reframe.NewRect(100, 100, 200, 300), "person", 0, 0.9),
	}

	first := calc.Calculate(objects, 1920, 1080, nil)
	second := calc.Calculate(nil, 1920, 1080, nil)

	require.Equal(t, first, second)
}

func TestCalculateConvergesOnStaticObject(t *testing.T) {
	calc := NewCalculator(reframe.DefaultConfig(), nil)

	objects := []reframe.Object{
		reframe.NewObject(reframe.NewRect(1500, 200, 200, 400), "person", 0, 0.9),
	}

	prev := calc.Calculate(objects, 1920, 1080, nil)
	lastDelta := math.MaxInt

	for i := 0; i < 100; i++ {
		win := calc.Calculate(objects, 1920, 1080, nil)

		lastDelta = abs(win.X-prev.X) + abs(win.Y-prev.Y) +
			abs(win.Width-prev.Width) + abs(win.Height-prev.Height)
		prev = win
	}

	// the window settles once the rolling state catches up to the static
	// object
	require.Zero(t, lastDelta)
}

func TestCalculateWeightedCenterFusion(t *testing.T) {
	cfg := reframe.DefaultConfig()
	cfg.WeightedCenter = true
	cfg.HistoryWeight = 0

	calc := NewCalculator(cfg, nil)

	// two identical people mirrored around x=960, the fused attention
	// point lands between them
	objects := []reframe.Object{
		reframe.NewObject(reframe.NewRect(400, 400, 200, 300), "person", 0, 0.9),
		reframe.NewObject(reframe.NewRect(1320, 400, 200, 300), "person", 0, 0.9),
	}

	win := calc.Calculate(objects, 1920, 1080, nil)

	require.True(t, win.Valid(1920, 1080))
	require.InDelta(t, 960.0, win.Center().X, 1.0)
}

func TestCalculateResetClearsState(t *testing.T) {
	calc := NewCalculator(reframe.DefaultConfig(), nil)

	objects := []reframe.Object{
		reframe.NewObject(reframe.NewRect(1400, 200, 200, 400), "person", 0, 0.9),
	}

	first := calc.Calculate(objects, 1920, 1080, nil)

	// drift the state away from the first result
	for i := 0; i < 10; i++ {
		calc.Calculate(objects, 1920, 1080, nil)
	}

	calc.Reset()

	require.Equal(t, first, calc.Calculate(objects, 1920, 1080, nil))
}

// stubSaliency returns a fixed point for every frame
type stubSaliency struct {
	point reframe.Point
}

func (s stubSaliency) Find(img gocv.Mat, frameWidth, frameHeight int) (reframe.Point, bool, error) {
	return s.point, true, nil
}

// stubFaces returns fixed face boxes for every frame
type stubFaces struct {
	boxes []reframe.Rect
}

func (s stubFaces) Find(img gocv.Mat) ([]reframe.Rect, error) {
	return s.boxes, nil
}

func TestCalculateSaliencyOnly(t *testing.T) {
	cfg := reframe.DefaultConfig()
	cfg.HistoryWeight = 0

	calc := NewCalculator(cfg, nil)
	calc.SetSaliencyFinder(stubSaliency{point: reframe.Point{X: 400, Y: 540}})

	frame := gocv.NewMatWithSize(1080, 1920, gocv.MatTypeCV8UC3)
	defer frame.Close()

	win := calc.Calculate(nil, 1920, 1080, &frame)

	require.True(t, win.Valid(1920, 1080))
	require.InDelta(t, 400.0, win.Center().X, 1.0)
}

func TestCalculateBlendsSaliencyWithFewObjects(t *testing.T) {
	cfg := reframe.DefaultConfig()
	cfg.HistoryWeight = 0
	cfg.BlendSaliency = true

	calc := NewCalculator(cfg, nil)
	calc.SetSaliencyFinder(stubSaliency{point: reframe.Point{X: 200, Y: 540}})

	frame := gocv.NewMatWithSize(1080, 1920, gocv.MatTypeCV8UC3)
	defer frame.Close()

	objects := []reframe.Object{
		reframe.NewObject(reframe.NewRect(900, 390, 200, 300), "person", 0, 0.9),
	}

	win := calc.Calculate(objects, 1920, 1080, &frame)

	// object center x=1000 pulled 30% toward the saliency point at x=200
	require.True(t, win.Valid(1920, 1080))
	require.InDelta(t, 760.0, win.Center().X, 1.0)
}

func TestCalculateInjectsFaces(t *testing.T) {
	cfg := reframe.DefaultConfig()
	cfg.HistoryWeight = 0
	cfg.FaceDetection = true

	calc := NewCalculator(cfg, nil)
	calc.SetFaceFinder(stubFaces{boxes: []reframe.Rect{
		reframe.NewRect(1500, 100, 300, 300),
	}})

	frame := gocv.NewMatWithSize(1080, 1920, gocv.MatTypeCV8UC3)
	defer frame.Close()

	win := calc.Calculate(nil, 1920, 1080, &frame)

	// the synthetic face is the only signal, the crop follows it as far as
	// the clamp allows
	require.True(t, win.Valid(1920, 1080))
	require.Equal(t, 1920-win.Width, win.X)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
