package video

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/IORoot/reframer"
	"gocv.io/x/gocv"
)

// Generator writes the reframed output video by applying one crop window per
// source frame
type Generator struct {
	logger *slog.Logger

	// Decorate, when set, is applied to each cropped frame before it is
	// written.  Used for watermarking and debug overlays.
	Decorate func(frameIdx int, frame *gocv.Mat)
}

// NewGenerator creates an output video generator.  A nil logger falls back
// to slog.Default.
func NewGenerator(logger *slog.Logger) *Generator {

	if logger == nil {
		logger = slog.Default()
	}

	return &Generator{logger: logger}
}

// Generate reads every frame of the source, crops it with the matching
// window and writes the result to outputPath.  The output dimensions come
// from the first crop window, frames whose window differs in size after
// smoothing are resized to match.
func (g *Generator) Generate(r *Reader, outputPath string, windows []reframe.Window) error {

	if len(windows) == 0 {
		return fmt.Errorf("no crop windows to apply")
	}

	if dir := filepath.Dir(outputPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("error creating output directory: %w", err)
		}
	}

	outWidth, outHeight := windows[0].Width, windows[0].Height

	writer, err := gocv.VideoWriterFile(outputPath, "mp4v", r.Info().FPS,
		outWidth, outHeight, true)

	if err != nil {
		return fmt.Errorf("error creating video writer: %w", err)
	}

	defer writer.Close()

	r.Rewind()

	frame := gocv.NewMat()
	defer frame.Close()

	resized := gocv.NewMat()
	defer resized.Close()

	for i := 0; i < len(windows); i++ {
		if !g.writeFrame(r, writer, &frame, &resized, windows[i], i, outWidth, outHeight) {
			break
		}

		if i%100 == 0 {
			g.logger.Debug("writing output", "frame", i, "total", len(windows))
		}
	}

	return nil
}

// writeFrame crops and writes a single frame, reporting false at the end of
// the source video
func (g *Generator) writeFrame(r *Reader, writer *gocv.VideoWriter,
	frame, resized *gocv.Mat, win reframe.Window, idx, outWidth, outHeight int) bool {

	if !r.ReadNext(frame) {
		return false
	}

	cropped := ApplyCrop(*frame, win)
	defer cropped.Close()

	// smoothing can leave windows a pixel or two off the output size, and
	// region Mats share memory with the source frame so decoration needs a
	// copy either way
	if cropped.Cols() != outWidth || cropped.Rows() != outHeight {
		gocv.Resize(cropped, resized, image.Pt(outWidth, outHeight),
			0, 0, gocv.InterpolationLinear)
	} else {
		cropped.CopyTo(resized)
	}

	if g.Decorate != nil {
		g.Decorate(idx, resized)
	}

	if err := writer.Write(*resized); err != nil {
		g.logger.Warn("error writing frame", "frame", idx, "error", err)
	}

	return true
}
