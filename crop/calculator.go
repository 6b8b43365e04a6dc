package crop

import (
	"log/slog"
	"math"
	"sort"

	"github.com/IORoot/reframer"
	"gocv.io/x/gocv"
)

const (
	// classBias increases the influence of class weight over raw centrality
	classBias = 1.5
	// sizeBias increases the influence of object area
	sizeBias = 1.2
	// fallbackImportance is assigned when scoring an object fails
	fallbackImportance = 0.1
	// faceConfidence is the confidence given to synthetic face detections
	faceConfidence = 0.9
)

// FaceFinder locates face regions on a raw frame.  Implementations must not
// be relied on, a failure degrades to no faces found.
type FaceFinder interface {
	Find(img gocv.Mat) ([]reframe.Rect, error)
}

// SaliencyFinder estimates the most visually prominent point on a raw frame.
// The boolean result reports whether a salient region was found at all.
type SaliencyFinder interface {
	Find(img gocv.Mat, frameWidth, frameHeight int) (reframe.Point, bool, error)
}

// Calculator computes the optimal crop window for each analysed frame from
// detected objects, faces and saliency.
//
// A Calculator carries the previous attention point and previous crop window
// forward between calls as its stabilisation state, so Calculate must be
// invoked in strictly increasing frame order and never concurrently.  Use
// Reset between videos when reusing an instance.
type Calculator struct {
	cfg    reframe.Config
	logger *slog.Logger

	faces    FaceFinder
	saliency SaliencyFinder

	// rolling state, nil until the first analysed frame
	prevWindow *reframe.Window
	prevPoint  *reframe.Point
}

// NewCalculator creates a crop Calculator with the given configuration.  A
// nil logger falls back to slog.Default.
func NewCalculator(cfg reframe.Config, logger *slog.Logger) *Calculator {

	if logger == nil {
		logger = slog.Default()
	}

	return &Calculator{
		cfg:    cfg,
		logger: logger,
	}
}

// SetFaceFinder sets the auxiliary face extractor.  Faces are only searched
// for when face detection is enabled in the configuration and a raw frame is
// supplied to Calculate.
func (c *Calculator) SetFaceFinder(f FaceFinder) {
	c.faces = f
}

// SetSaliencyFinder sets the auxiliary saliency extractor.  Saliency is only
// computed when a raw frame is supplied and the validated object count is
// below the configured threshold.
func (c *Calculator) SetSaliencyFinder(s SaliencyFinder) {
	c.saliency = s
}

// Reset clears the rolling state so the Calculator can be reused for another
// video
func (c *Calculator) Reset() {
	c.prevWindow = nil
	c.prevPoint = nil
}

// PreviousAttention returns the attention point of the most recent analysed
// frame, false when no frame has produced one yet
func (c *Calculator) PreviousAttention() (reframe.Point, bool) {

	if c.prevPoint == nil {
		return reframe.Point{}, false
	}

	return *c.prevPoint, true
}

// Calculate computes the crop window for one analysed frame.  The frame Mat
// is optional, when nil or empty the auxiliary extractors are skipped.
//
// Calculate never fails, any invalid input or arithmetic error degrades to a
// centered crop of the correct aspect ratio.
func (c *Calculator) Calculate(objects []reframe.Object, frameWidth, frameHeight int,
	frame *gocv.Mat) reframe.Window {

	if frameWidth <= 0 || frameHeight <= 0 {
		c.logger.Warn("invalid frame dimensions, using center crop",
			"width", frameWidth, "height", frameHeight)
		return CenterCrop(max(1, frameWidth), max(1, frameHeight), c.cfg.TargetRatio)
	}

	valid := c.validObjects(objects)

	// auxiliary signals need the raw frame
	var salPoint *reframe.Point

	if frame != nil && !frame.Empty() {
		valid = c.appendFaces(valid, *frame)

		if c.saliency != nil && len(valid) < c.cfg.SaliencyMaxObjects {
			pt, ok, err := c.saliency.Find(*frame, frameWidth, frameHeight)

			if err != nil {
				c.logger.Warn("saliency calculation failed", "error", err)
			} else if ok {
				salPoint = &pt
			}
		}
	}

	// no signal at all, hold the previous window or fall back to center
	if len(valid) == 0 && salPoint == nil {
		if c.prevWindow != nil && c.prevWindow.Valid(frameWidth, frameHeight) {
			return *c.prevWindow
		}

		return CenterCrop(frameWidth, frameHeight, c.cfg.TargetRatio)
	}

	// score and order by importance descending
	for i := range valid {
		valid[i].Importance = c.importance(valid[i], frameWidth, frameHeight)
	}

	sort.SliceStable(valid, func(i, j int) bool {
		return valid[i].Importance > valid[j].Importance
	})

	target := c.fuseAttention(valid, salPoint, frameWidth, frameHeight)

	// history blending at the attention point level, the primary inter
	// frame stabiliser
	if c.prevPoint != nil {
		target.X = c.prevPoint.X*c.cfg.HistoryWeight + target.X*(1-c.cfg.HistoryWeight)
		target.Y = c.prevPoint.Y*c.cfg.HistoryWeight + target.Y*(1-c.cfg.HistoryWeight)
	}

	c.prevPoint = &target

	window := c.synthesize(target, frameWidth, frameHeight)

	// rectangle level smoothing, also damps size changes which point
	// blending alone cannot do
	if c.prevWindow != nil {
		window = c.smoothTransition(*c.prevWindow, window)
	}

	if !window.Valid(frameWidth, frameHeight) {
		c.logger.Warn("invalid crop window generated, using center crop",
			"window", window)
		window = CenterCrop(frameWidth, frameHeight, c.cfg.TargetRatio)
	}

	c.prevWindow = &window

	return window
}

// validObjects filters out objects whose bounding box has non finite
// coordinates or non positive dimensions
func (c *Calculator) validObjects(objects []reframe.Object) []reframe.Object {

	valid := make([]reframe.Object, 0, len(objects))

	for _, obj := range objects {
		if !obj.Box.IsValid() {
			c.logger.Warn("dropping object with invalid box",
				"class", obj.ClassName, "box", obj.Box)
			continue
		}

		valid = append(valid, obj)
	}

	return valid
}

// appendFaces runs the face extractor and injects each face as a synthetic
// detection.  Extractor failure degrades to no faces found.
func (c *Calculator) appendFaces(objects []reframe.Object, frame gocv.Mat) []reframe.Object {

	if !c.cfg.FaceDetection || c.faces == nil {
		return objects
	}

	faces, err := c.faces.Find(frame)

	if err != nil {
		c.logger.Warn("face detection failed", "error", err)
		return objects
	}

	for _, box := range faces {
		if !box.IsValid() {
			continue
		}

		objects = append(objects, reframe.Object{
			Box:        box,
			ClassName:  reframe.FaceClassName,
			ClassID:    reframe.FaceClassID,
			Confidence: faceConfidence,
		})
	}

	return objects
}

// importance scores a single object.  Size and centrality are proxies for
// likely subject of interest, with class identity and area deliberately
// biased over raw centrality.
func (c *Calculator) importance(obj reframe.Object, frameWidth, frameHeight int) float64 {

	classWeight := c.cfg.ClassWeight(obj.ClassName)

	frameArea := float64(frameWidth) * float64(frameHeight)
	sizeFactor := obj.Box.Area() / frameArea

	frameCenter := reframe.Point{
		X: float64(frameWidth) / 2,
		Y: float64(frameHeight) / 2,
	}

	// normalise distance by the center to corner distance
	maxDistance := math.Hypot(frameCenter.X, frameCenter.Y)
	centerFactor := 1 - frameCenter.DistanceTo(obj.Box.Center())/maxDistance

	importance := classWeight * classBias * obj.Confidence *
		(c.cfg.SizeWeight*sizeFactor*sizeBias + c.cfg.CenterWeight*centerFactor)

	if math.IsNaN(importance) || math.IsInf(importance, 0) {
		c.logger.Warn("importance calculation failed for object",
			"class", obj.ClassName)
		return fallbackImportance
	}

	return importance
}

// fuseAttention combines the scored objects and the optional saliency point
// into a single target attention point.  Objects must already be sorted by
// importance descending.
func (c *Calculator) fuseAttention(objects []reframe.Object, salPoint *reframe.Point,
	frameWidth, frameHeight int) reframe.Point {

	var target reframe.Point

	switch {
	case len(objects) > 0 && c.cfg.WeightedCenter:
		target = weightedCenter(objects)

	case len(objects) > 0:
		target = objects[0].Box.Center()

	case salPoint != nil:
		target = *salPoint

	default:
		target = reframe.Point{
			X: float64(frameWidth) / 2,
			Y: float64(frameHeight) / 2,
		}
	}

	if math.IsNaN(target.X) || math.IsNaN(target.Y) ||
		math.IsInf(target.X, 0) || math.IsInf(target.Y, 0) {
		c.logger.Warn("invalid attention point, using frame center",
			"x", target.X, "y", target.Y)
		target = reframe.Point{
			X: float64(frameWidth) / 2,
			Y: float64(frameHeight) / 2,
		}
	}

	// with few detections a saliency correction reduces overreliance on a
	// single possibly spurious detection
	if len(objects) > 0 && salPoint != nil && c.cfg.BlendSaliency &&
		len(objects) <= c.cfg.BlendMaxObjects {
		target.X = target.X*(1-c.cfg.BlendFactor) + salPoint.X*c.cfg.BlendFactor
		target.Y = target.Y*(1-c.cfg.BlendFactor) + salPoint.Y*c.cfg.BlendFactor
	}

	return target
}

// weightedCenter returns the importance weighted average center of the
// objects, falling back to the first object's center when the total
// importance is zero
func weightedCenter(objects []reframe.Object) reframe.Point {

	var total, sumX, sumY float64

	for _, obj := range objects {
		center := obj.Box.Center()
		total += obj.Importance
		sumX += center.X * obj.Importance
		sumY += center.Y * obj.Importance
	}

	if total <= 0 {
		return objects[0].Box.Center()
	}

	return reframe.Point{X: sumX / total, Y: sumY / total}
}

// synthesize turns the attention point into an aspect ratio correct,
// boundary clamped crop window
func (c *Calculator) synthesize(target reframe.Point, frameWidth, frameHeight int) reframe.Window {

	cropWidth, cropHeight := cropSize(frameWidth, frameHeight, c.cfg.TargetRatio)

	// center on the attention point
	x := int(math.Round(target.X - float64(cropWidth)/2))
	y := int(math.Round(target.Y - float64(cropHeight)/2))

	// clamp within the frame
	x = max(0, min(x, frameWidth-cropWidth))
	y = max(0, min(y, frameHeight-cropHeight))

	return reframe.NewWindow(x, y, cropWidth, cropHeight)
}

// smoothTransition exponentially blends each field of the new window with
// the previous one to damp jitter between consecutive analysed frames
func (c *Calculator) smoothTransition(prev, curr reframe.Window) reframe.Window {

	h := c.cfg.HistoryWeight

	blend := func(a, b int) int {
		return int(math.Round(float64(a)*h + float64(b)*(1-h)))
	}

	return reframe.NewWindow(
		blend(prev.X, curr.X),
		blend(prev.Y, curr.Y),
		blend(prev.Width, curr.Width),
		blend(prev.Height, curr.Height),
	)
}

// cropSize returns the largest crop dimensions with the target aspect ratio
// that fit within the frame.  An unusable ratio degrades to the full frame.
func cropSize(frameWidth, frameHeight int, targetRatio float64) (int, int) {

	if math.IsNaN(targetRatio) || math.IsInf(targetRatio, 0) || targetRatio <= 0 {
		return frameWidth, frameHeight
	}

	cropHeight := frameHeight
	cropWidth := int(math.Round(float64(cropHeight) * targetRatio))

	// if the target crop is wider than the frame, fix the width instead
	if cropWidth > frameWidth {
		cropWidth = frameWidth
		cropHeight = int(math.Round(float64(cropWidth) / targetRatio))
	}

	return max(1, cropWidth), max(1, cropHeight)
}

// CenterCrop returns the maximal ratio correct crop window centered in the
// frame.  This is the terminal fallback for every failure mode in the
// engine.
func CenterCrop(frameWidth, frameHeight int, targetRatio float64) reframe.Window {

	cropWidth, cropHeight := cropSize(frameWidth, frameHeight, targetRatio)

	x := (frameWidth - cropWidth) / 2
	y := (frameHeight - cropHeight) / 2

	return reframe.NewWindow(x, y, cropWidth, cropHeight)
}
