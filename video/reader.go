// Package video handles reading source videos, applying crop windows and
// writing the reframed output.
package video

import (
	"fmt"
	"image"

	"github.com/IORoot/reframer"
	"gocv.io/x/gocv"
)

// Info holds the basic properties of a loaded video
type Info struct {
	Width       int
	Height      int
	FPS         float64
	TotalFrames int
	Path        string
}

// Reader provides random access to the frames of a video file
type Reader struct {
	cap  *gocv.VideoCapture
	info Info
}

// OpenReader opens the video file and reads its properties
func OpenReader(path string) (*Reader, error) {

	cap, err := gocv.OpenVideoCapture(path)

	if err != nil {
		return nil, fmt.Errorf("error opening video %s: %w", path, err)
	}

	info := Info{
		Width:       int(cap.Get(gocv.VideoCaptureFrameWidth)),
		Height:      int(cap.Get(gocv.VideoCaptureFrameHeight)),
		FPS:         cap.Get(gocv.VideoCaptureFPS),
		TotalFrames: int(cap.Get(gocv.VideoCaptureFrameCount)),
		Path:        path,
	}

	if info.Width <= 0 || info.Height <= 0 || info.TotalFrames <= 0 {
		cap.Close()
		return nil, fmt.Errorf("video %s has no readable frames", path)
	}

	return &Reader{cap: cap, info: info}, nil
}

// Info returns the properties of the loaded video
func (r *Reader) Info() Info {
	return r.info
}

// ReadFrameAt reads the frame at the given index into dst.  Seeking is
// supported in any order but sequential access is cheapest.
func (r *Reader) ReadFrameAt(idx int, dst *gocv.Mat) error {

	r.cap.Set(gocv.VideoCapturePosFrames, float64(idx))

	if ok := r.cap.Read(dst); !ok || dst.Empty() {
		return fmt.Errorf("error reading frame %d", idx)
	}

	return nil
}

// Rewind seeks back to the first frame for sequential reading
func (r *Reader) Rewind() {
	r.cap.Set(gocv.VideoCapturePosFrames, 0)
}

// ReadNext reads the next frame in sequence into dst, returning false at the
// end of the video
func (r *Reader) ReadNext(dst *gocv.Mat) bool {
	return r.cap.Read(dst) && !dst.Empty()
}

// Close releases the video capture
func (r *Reader) Close() error {
	return r.cap.Close()
}

// ApplyCrop returns the region of the frame selected by the crop window,
// clamped to the frame boundaries.  The returned Mat shares memory with the
// frame and must be closed by the caller.
func ApplyCrop(frame gocv.Mat, win reframe.Window) gocv.Mat {

	fw, fh := frame.Cols(), frame.Rows()

	x := max(0, min(win.X, fw-1))
	y := max(0, min(win.Y, fh-1))
	w := max(1, min(win.Width, fw-x))
	h := max(1, min(win.Height, fh-y))

	return frame.Region(image.Rect(x, y, x+w, y+h))
}
