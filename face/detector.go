// Package face provides the auxiliary face extractor backed by the pigo
// cascade classifier.  Detected faces are injected into the crop engine as
// synthetic high priority objects.
package face

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/IORoot/reframer"
	pigo "github.com/esimov/pigo/core"
	"gocv.io/x/gocv"
)

const (
	// minSize is the minimum face size in pixels
	minSize = 20
	// maxSize is the maximum face size in pixels
	maxSize = 1000
	// shiftFactor moves the detection window by a fraction of its size
	shiftFactor = 0.1
	// scaleFactor grows the detection window between pyramid levels
	scaleFactor = 1.1
	// iouThreshold is the overlap threshold used to cluster detections
	iouThreshold = 0.2
	// qualityThreshold is the minimum cascade quality score to keep
	qualityThreshold = 5.0
)

// Detector finds face regions on a frame using the pigo cascade classifier
type Detector struct {
	classifier *pigo.Pigo
	logger     *slog.Logger
}

// NewDetector loads the pigo cascade from the given file and returns a face
// Detector.  A nil logger falls back to slog.Default.
func NewDetector(cascadePath string, logger *slog.Logger) (*Detector, error) {

	if logger == nil {
		logger = slog.Default()
	}

	cascade, err := os.ReadFile(cascadePath)

	if err != nil {
		return nil, fmt.Errorf("error reading cascade file: %w", err)
	}

	classifier, err := pigo.NewPigo().Unpack(cascade)

	if err != nil {
		return nil, fmt.Errorf("error unpacking cascade: %w", err)
	}

	return &Detector{
		classifier: classifier,
		logger:     logger,
	}, nil
}

// Find runs face detection over the frame and returns one rectangle per
// detected face in source frame coordinates
func (d *Detector) Find(img gocv.Mat) ([]reframe.Rect, error) {

	if img.Empty() {
		return nil, nil
	}

	gray := gocv.NewMat()
	defer gray.Close()

	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	params := pigo.CascadeParams{
		MinSize:     minSize,
		MaxSize:     maxSize,
		ShiftFactor: shiftFactor,
		ScaleFactor: scaleFactor,
		ImageParams: pigo.ImageParams{
			Pixels: gray.ToBytes(),
			Rows:   gray.Rows(),
			Cols:   gray.Cols(),
			Dim:    gray.Cols(),
		},
	}

	// detect at quality 0 and filter afterwards so clustering sees every
	// candidate
	dets := d.classifier.RunCascade(params, 0.0)
	dets = d.classifier.ClusterDetections(dets, iouThreshold)

	faces := make([]reframe.Rect, 0, len(dets))

	for _, det := range dets {
		if det.Q < qualityThreshold {
			continue
		}

		// pigo reports the face center, Scale is the side length
		faces = append(faces, reframe.NewRect(
			float64(det.Col-det.Scale/2),
			float64(det.Row-det.Scale/2),
			float64(det.Scale),
			float64(det.Scale),
		))
	}

	d.logger.Debug("face detection complete", "found", len(faces))

	return faces, nil
}
