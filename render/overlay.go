package render

import (
	"fmt"
	"image"

	"github.com/IORoot/reframer"
	"gocv.io/x/gocv"
)

// DetectionBoxes draws the bounding box and label of each detected object
// on the frame, cycling colors by track identity
func DetectionBoxes(img *gocv.Mat, objects []reframe.Object, font Font, lineThickness int) {

	for i, obj := range objects {

		colorIndex := i

		if obj.TrackID > 0 {
			colorIndex = int(obj.TrackID)
		}

		useClr := boxColors[colorIndex%len(boxColors)]

		rect := image.Rect(
			int(obj.Box.X), int(obj.Box.Y),
			int(obj.Box.X+obj.Box.Width), int(obj.Box.Y+obj.Box.Height),
		)
		gocv.Rectangle(img, rect, useClr, lineThickness)

		text := fmt.Sprintf("%s %.2f", obj.ClassName, obj.Confidence)

		if obj.TrackID > 0 {
			text = fmt.Sprintf("%s #%d %.2f", obj.ClassName, obj.TrackID, obj.Confidence)
		}

		textSize := gocv.GetTextSize(text, font.Face, font.Scale, font.Thickness)

		// label background sits above the box
		labelRect := image.Rect(rect.Min.X, rect.Min.Y-textSize.Y-8,
			rect.Min.X+textSize.X+8, rect.Min.Y)
		gocv.Rectangle(img, labelRect, useClr, -1)

		gocv.PutTextWithParams(img, text, image.Pt(rect.Min.X+4, rect.Min.Y-5),
			font.Face, font.Scale, black, font.Thickness, font.LineType, false)
	}
}

// CropWindow outlines the chosen crop window on the frame
func CropWindow(img *gocv.Mat, win reframe.Window, lineThickness int) {
	gocv.Rectangle(img,
		image.Rect(win.X, win.Y, win.X+win.Width, win.Y+win.Height),
		red, lineThickness)
}

// AttentionPoint marks the fused attention point on the frame, in a color
// distinct from the crop window outline
func AttentionPoint(img *gocv.Mat, p reframe.Point) {
	gocv.Circle(img, image.Pt(int(p.X), int(p.Y)), 6, green, -1)
}
