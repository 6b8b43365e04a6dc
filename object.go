package reframe

import (
	"gocv.io/x/gocv"
)

// FaceClassID is the reserved class ID given to synthetic face detections so
// they are distinguishable from model detected classes
const FaceClassID = -1

// FaceClassName is the class name given to synthetic face detections
const FaceClassName = "face"

// Object is a single candidate region of interest on an analysed frame
type Object struct {
	// Box is the bounding box of the object in source frame coordinates
	Box Rect
	// ClassName is the class label of the detected object
	ClassName string
	// ClassID is the numeric class of the detected object, or FaceClassID
	// for synthetic face detections
	ClassID int
	// Confidence is the detection confidence in the range [0, 1]
	Confidence float64
	// Importance is the scalar importance assigned by the crop calculator,
	// zero until scoring has run
	Importance float64
	// TrackID is a stable identity assigned by the tracker, zero for
	// untracked detections
	TrackID int64
}

// NewObject is a constructor function for the Object struct
func NewObject(box Rect, className string, classID int, confidence float64) Object {
	return Object{
		Box:        box,
		ClassName:  className,
		ClassID:    classID,
		Confidence: confidence,
	}
}

// Detector locates candidate objects on a frame.  Results are ordered by
// descending confidence and limited to topN entries.
type Detector interface {
	Detect(img gocv.Mat, topN int) ([]Object, error)
	Close() error
}
