package render

import (
	"testing"

	"github.com/IORoot/reframer"
	"gocv.io/x/gocv"
)

func TestAttentionPointDrawsGreenMarker(t *testing.T) {

	img := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	defer img.Close()

	AttentionPoint(&img, reframe.Point{X: 50, Y: 50})

	// pixels are BGR ordered
	v := img.GetVecbAt(50, 50)

	if v[1] != 255 {
		t.Errorf("expected green channel 255 at marker center, got %d", v[1])
	}

	if v[2] != 0 {
		t.Errorf("expected red channel 0 at marker center, got %d", v[2])
	}
}

func TestCropWindowDrawsRedOutline(t *testing.T) {

	img := gocv.NewMatWithSize(100, 100, gocv.MatTypeCV8UC3)
	defer img.Close()

	CropWindow(&img, reframe.NewWindow(10, 10, 50, 50), 1)

	v := img.GetVecbAt(10, 30)

	if v[2] != 255 {
		t.Errorf("expected red channel 255 on outline, got %d", v[2])
	}

	// interior stays untouched
	v = img.GetVecbAt(35, 35)

	if v[0] != 0 || v[1] != 0 || v[2] != 0 {
		t.Errorf("expected untouched interior pixel, got %v", v)
	}
}

func TestDetectionBoxesDrawsEachObject(t *testing.T) {

	img := gocv.NewMatWithSize(200, 200, gocv.MatTypeCV8UC3)
	defer img.Close()

	objects := []reframe.Object{
		{Box: reframe.NewRect(20, 40, 60, 60), ClassName: "person", Confidence: 0.9, TrackID: 1},
	}

	DetectionBoxes(&img, objects, DefaultFont(), 1)

	// left edge of the box
	v := img.GetVecbAt(70, 20)

	if v[0] == 0 && v[1] == 0 && v[2] == 0 {
		t.Error("expected box edge pixel to be drawn")
	}
}
