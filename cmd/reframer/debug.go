package main

import (
	"fmt"
	"strings"

	"github.com/IORoot/reframer"
	"github.com/IORoot/reframer/crop"
	"github.com/IORoot/reframer/render"
	"github.com/IORoot/reframer/video"
	"gocv.io/x/gocv"
)

// debugWriter writes a side video of the analysed keyframes with detection
// boxes, the crop window and the attention point drawn on each frame
type debugWriter struct {
	writer *gocv.VideoWriter
	canvas gocv.Mat
	font   render.Font
}

// newDebugWriter creates the debug video next to the output file, with a
// .debug.mp4 suffix.  Its frame rate reflects the keyframe cadence so it
// plays at roughly real time.
func newDebugWriter(outputPath string, info video.Info, skip int) (*debugWriter, error) {

	path := strings.TrimSuffix(outputPath, ".mp4") + ".debug.mp4"

	if skip < 1 {
		skip = 1
	}

	fps := info.FPS / float64(skip)

	if fps < 1 {
		fps = 1
	}

	writer, err := gocv.VideoWriterFile(path, "mp4v", fps,
		info.Width, info.Height, true)
	if err != nil {
		return nil, fmt.Errorf("creating debug video %s: %w", path, err)
	}

	return &debugWriter{
		writer: writer,
		canvas: gocv.NewMat(),
		font:   render.DefaultFont(),
	}, nil
}

// Write draws the overlays for one keyframe and appends it to the debug
// video.  An empty frame is skipped.
func (d *debugWriter) Write(frame *gocv.Mat, objects []reframe.Object,
	win reframe.Window, calc *crop.Calculator) {

	if frame == nil || frame.Empty() {
		return
	}

	frame.CopyTo(&d.canvas)

	render.DetectionBoxes(&d.canvas, objects, d.font, 2)
	render.CropWindow(&d.canvas, win, 2)

	if p, ok := calc.PreviousAttention(); ok {
		render.AttentionPoint(&d.canvas, p)
	}

	d.writer.Write(d.canvas)
}

// Close releases the video writer and the drawing buffer
func (d *debugWriter) Close() error {

	d.canvas.Close()

	return d.writer.Close()
}
