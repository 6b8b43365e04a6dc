// Package detect provides object detection for keyframe analysis, backed by
// a YOLOv8 model running on ONNX Runtime.
package detect

import (
	"fmt"
	"log/slog"
	"runtime"
	"sort"

	"github.com/IORoot/reframer"
	ort "github.com/yalue/onnxruntime_go"
	"gocv.io/x/gocv"
)

// Params are the tunable parameters for the YOLOv8 detector
type Params struct {
	// InputWidth is the model input tensor width
	InputWidth int
	// InputHeight is the model input tensor height
	InputHeight int
	// BoxThreshold is the minimum confidence for a detection to be kept
	BoxThreshold float64
	// NMSThreshold is the Non-Maximum Suppression overlap threshold
	NMSThreshold float64
	// Classes restricts detection to the given class IDs, empty keeps all
	Classes []int
	// LibraryPath is the ONNX Runtime shared library location, empty uses
	// the platform default
	LibraryPath string
}

// COCOParams returns the default parameters for a YOLOv8 model trained on
// the COCO dataset, restricted to the person class
func COCOParams() Params {
	return Params{
		InputWidth:   640,
		InputHeight:  640,
		BoxThreshold: 0.5,
		NMSThreshold: 0.45,
		Classes:      []int{0},
	}
}

// YOLOv8 runs a YOLOv8 ONNX model and decodes its detections into source
// frame coordinates.  It implements reframe.Detector.  An instance is not
// safe for concurrent use, run one per worker via reframe.Pool.
type YOLOv8 struct {
	params  Params
	labels  []string
	logger  *slog.Logger
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	// candidates is the number of anchor positions the model predicts
	candidates int
	// letterbox is created on the first frame and recreated if the source
	// dimensions change
	letterbox *Letterbox
	// resized holds the letterboxed model input image
	resized gocv.Mat
}

// NewYOLOv8 loads the model and prepares an inference session.  labels must
// match the classes the model was trained on.
func NewYOLOv8(modelPath string, labels []string, p Params, logger *slog.Logger) (*YOLOv8, error) {

	if logger == nil {
		logger = slog.Default()
	}

	if len(labels) == 0 {
		return nil, fmt.Errorf("no class labels provided")
	}

	if err := initRuntime(p.LibraryPath); err != nil {
		return nil, err
	}

	// one prediction per cell of the stride 8, 16 and 32 feature maps
	candidates := 0

	for _, stride := range []int{8, 16, 32} {
		candidates += (p.InputWidth / stride) * (p.InputHeight / stride)
	}

	inputShape := ort.NewShape(1, 3, int64(p.InputHeight), int64(p.InputWidth))
	inputData := make([]float32, 3*p.InputHeight*p.InputWidth)

	input, err := ort.NewTensor(inputShape, inputData)

	if err != nil {
		return nil, fmt.Errorf("error creating input tensor: %w", err)
	}

	outputShape := ort.NewShape(1, int64(4+len(labels)), int64(candidates))
	output, err := ort.NewEmptyTensor[float32](outputShape)

	if err != nil {
		input.Destroy()
		return nil, fmt.Errorf("error creating output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSession(modelPath,
		[]string{"images"}, []string{"output0"},
		[]ort.Value{input}, []ort.Value{output}, nil)

	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, fmt.Errorf("error creating inference session: %w", err)
	}

	return &YOLOv8{
		params:     p,
		labels:     labels,
		logger:     logger,
		session:    session,
		input:      input,
		output:     output,
		candidates: candidates,
		resized:    gocv.NewMat(),
	}, nil
}

// initRuntime points ONNX Runtime at its shared library and initialises the
// environment once for the process
func initRuntime(libraryPath string) error {

	if ort.IsInitialized() {
		return nil
	}

	if libraryPath == "" {
		libraryPath = "libonnxruntime.so"

		if runtime.GOOS == "windows" {
			libraryPath = "onnxruntime.dll"
		}
	}

	ort.SetSharedLibraryPath(libraryPath)

	if err := ort.InitializeEnvironment(); err != nil {
		return fmt.Errorf("error initialising onnx runtime: %w", err)
	}

	return nil
}

// Close releases the inference session and tensors
func (y *YOLOv8) Close() error {

	y.session.Destroy()
	y.input.Destroy()
	y.output.Destroy()

	if y.letterbox != nil {
		_ = y.letterbox.Close()
	}

	return y.resized.Close()
}

// Detect locates objects on the frame and returns up to topN results in
// descending confidence order, in source frame coordinates
func (y *YOLOv8) Detect(img gocv.Mat, topN int) ([]reframe.Object, error) {

	if img.Empty() {
		return nil, fmt.Errorf("empty frame")
	}

	if err := y.preprocess(img); err != nil {
		return nil, err
	}

	if err := y.session.Run(); err != nil {
		return nil, fmt.Errorf("error running inference: %w", err)
	}

	objects := y.decode()
	objects = nonMaxSuppress(objects, y.params.NMSThreshold)

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Confidence > objects[j].Confidence
	})

	if topN > 0 && len(objects) > topN {
		objects = objects[:topN]
	}

	y.logger.Debug("detection complete", "objects", len(objects))

	return objects, nil
}

// preprocess letterboxes the frame to the model input size and fills the
// input tensor with normalised CHW float data
func (y *YOLOv8) preprocess(img gocv.Mat) error {

	if y.letterbox == nil || img.Cols() != y.letterbox.srcWidth ||
		img.Rows() != y.letterbox.srcHeight {

		if y.letterbox != nil {
			_ = y.letterbox.Close()
		}

		y.letterbox = NewLetterbox(img.Cols(), img.Rows(),
			y.params.InputWidth, y.params.InputHeight)
	}

	y.letterbox.Apply(img, &y.resized)

	rgb := gocv.NewMat()
	defer rgb.Close()

	gocv.CvtColor(y.resized, &rgb, gocv.ColorBGRToRGB)

	floats := gocv.NewMat()
	defer floats.Close()

	rgb.ConvertToWithParams(&floats, gocv.MatTypeCV32F, 1.0/255.0, 0)

	pixels, err := floats.DataPtrFloat32()

	if err != nil {
		return fmt.Errorf("error accessing image data: %w", err)
	}

	// repack interleaved HWC pixels into the planar CHW tensor
	data := y.input.GetData()
	hw := y.params.InputWidth * y.params.InputHeight

	for i := 0; i < hw; i++ {
		data[i] = pixels[i*3]
		data[hw+i] = pixels[i*3+1]
		data[2*hw+i] = pixels[i*3+2]
	}

	return nil
}

// decode converts the raw output tensor into objects above the confidence
// threshold, mapped back to source frame coordinates
func (y *YOLOv8) decode() []reframe.Object {

	data := y.output.GetData()

	var objects []reframe.Object

	for i := 0; i < y.candidates; i++ {

		// best scoring class for this candidate
		classID := -1
		confidence := float32(0)

		for c := 0; c < len(y.labels); c++ {
			if score := data[(4+c)*y.candidates+i]; score > confidence {
				confidence = score
				classID = c
			}
		}

		if classID < 0 || float64(confidence) < y.params.BoxThreshold {
			continue
		}

		if !y.wantClass(classID) {
			continue
		}

		// box is center x, center y, width, height in input coordinates
		cx := float64(data[i])
		cy := float64(data[y.candidates+i])
		w := float64(data[2*y.candidates+i])
		h := float64(data[3*y.candidates+i])

		box := y.letterbox.ToSource(reframe.NewRect(cx-w/2, cy-h/2, w, h))

		if !box.IsValid() {
			continue
		}

		objects = append(objects,
			reframe.NewObject(box, y.labels[classID], classID, float64(confidence)))
	}

	return objects
}

// wantClass reports whether the class ID passes the configured class filter
func (y *YOLOv8) wantClass(classID int) bool {

	if len(y.params.Classes) == 0 {
		return true
	}

	for _, c := range y.params.Classes {
		if c == classID {
			return true
		}
	}

	return false
}

// nonMaxSuppress removes overlapping detections of the same class, keeping
// the highest confidence box of each overlapping group
func nonMaxSuppress(objects []reframe.Object, threshold float64) []reframe.Object {

	sort.SliceStable(objects, func(i, j int) bool {
		return objects[i].Confidence > objects[j].Confidence
	})

	kept := make([]reframe.Object, 0, len(objects))

	for _, obj := range objects {
		overlaps := false

		for _, k := range kept {
			if k.ClassID == obj.ClassID && k.Box.IoU(obj.Box) > threshold {
				overlaps = true
				break
			}
		}

		if !overlaps {
			kept = append(kept, obj)
		}
	}

	return kept
}
