package detect

import (
	"image"
	"image/color"

	"github.com/IORoot/reframer"
	"gocv.io/x/gocv"
)

// Letterbox scales frames to the model input size whilst maintaining image
// aspect, padding the remainder with a neutral border
type Letterbox struct {
	// source frame dimensions
	srcWidth  int
	srcHeight int
	// model input dimensions
	dstWidth  int
	dstHeight int
	// scaled image dimensions before padding
	resizeWidth  int
	resizeHeight int
	// padding applied on each side
	xPad int
	yPad int
	// scale factor between source and model input
	scale float64
	// tempMat is reused across frames during resizing
	tempMat gocv.Mat
}

// padColor is the neutral gray used for letterbox padding
var padColor = color.RGBA{R: 114, G: 114, B: 114, A: 255}

// NewLetterbox returns a Letterbox for scaling frames of the given source
// size to the given model input size
func NewLetterbox(srcWidth, srcHeight, dstWidth, dstHeight int) *Letterbox {

	l := &Letterbox{
		srcWidth:  srcWidth,
		srcHeight: srcHeight,
		dstWidth:  dstWidth,
		dstHeight: dstHeight,
		tempMat:   gocv.NewMat(),
	}

	// precalculate the scaling dimensions
	scaleW := float64(dstWidth) / float64(srcWidth)
	scaleH := float64(dstHeight) / float64(srcHeight)

	l.scale = min(scaleW, scaleH)
	l.resizeWidth = int(float64(srcWidth) * l.scale)
	l.resizeHeight = int(float64(srcHeight) * l.scale)

	l.xPad = (dstWidth - l.resizeWidth) / 2
	l.yPad = (dstHeight - l.resizeHeight) / 2

	return l
}

// Close frees memory allocated during the resize process
func (l *Letterbox) Close() error {
	return l.tempMat.Close()
}

// Apply resizes the source frame into dst at the model input size with
// letterbox padding
func (l *Letterbox) Apply(src gocv.Mat, dst *gocv.Mat) {

	gocv.Resize(src, &l.tempMat, image.Pt(l.resizeWidth, l.resizeHeight),
		0, 0, gocv.InterpolationArea)

	gocv.CopyMakeBorder(l.tempMat, dst,
		l.yPad, l.dstHeight-l.resizeHeight-l.yPad,
		l.xPad, l.dstWidth-l.resizeWidth-l.xPad,
		gocv.BorderConstant, padColor)
}

// ToSource maps a rectangle in model input coordinates back to source frame
// coordinates, clamped to the frame
func (l *Letterbox) ToSource(r reframe.Rect) reframe.Rect {

	x := (r.X - float64(l.xPad)) / l.scale
	y := (r.Y - float64(l.yPad)) / l.scale
	w := r.Width / l.scale
	h := r.Height / l.scale

	// clamp to the source frame
	x = max(0, min(x, float64(l.srcWidth)))
	y = max(0, min(y, float64(l.srcHeight)))
	w = min(w, float64(l.srcWidth)-x)
	h = min(h, float64(l.srcHeight)-y)

	return reframe.NewRect(x, y, w, h)
}

// Scale returns the scale factor between source and model input
func (l *Letterbox) Scale() float64 {
	return l.scale
}
