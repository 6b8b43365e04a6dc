package reframe

// Config holds the tunable parameters for the crop window engine.  A Config
// is passed by value at construction and never mutated afterwards, there is
// no ambient global configuration.
type Config struct {
	// TargetRatio is the aspect ratio (width/height) of the output video
	TargetRatio float64
	// PaddingRatio is the padding around objects as a ratio of frame
	// dimensions.  Advisory, reserved for future margin enforcement.
	PaddingRatio float64
	// SizeWeight is the weight of object size in importance scoring
	SizeWeight float64
	// CenterWeight is the weight of center proximity in importance scoring
	CenterWeight float64
	// MotionWeight is the weight of object motion.  Reserved.
	MotionWeight float64
	// HistoryWeight controls how strongly prior frame state persists into
	// the current decision, applied at both the attention point and crop
	// window level
	HistoryWeight float64
	// SaliencyWeight is the weight of the saliency signal.  Reserved for
	// saliency map weighting, the point blend uses BlendFactor.
	SaliencyWeight float64
	// BlendFactor is how far the attention point moves toward the saliency
	// point when blending is eligible
	BlendFactor float64
	// SaliencyMaxObjects computes saliency only when fewer than this many
	// validated objects exist on the frame
	SaliencyMaxObjects int
	// BlendMaxObjects blends saliency into the attention point only when at
	// most this many objects exist on the frame
	BlendMaxObjects int
	// ClassWeights maps class names to importance weights.  Classes without
	// a mapping use DefaultClassWeight.
	ClassWeights map[string]float64
	// DefaultClassWeight is the weight for unmapped classes
	DefaultClassWeight float64
	// FaceDetection enables the auxiliary face extractor
	FaceDetection bool
	// WeightedCenter fuses the importance weighted average center of all
	// objects instead of the highest importance object's center
	WeightedCenter bool
	// BlendSaliency enables blending the saliency point into the attention
	// point
	BlendSaliency bool
}

// DefaultClassWeights returns the default class weight mapping.  People and
// faces rank highest, animals and sports equipment mid, vehicles low.
func DefaultClassWeights() map[string]float64 {
	return map[string]float64{
		"person":      40,
		"face":        40,
		"dog":         30,
		"cat":         30,
		"sports ball": 20,
		"bicycle":     10,
		"motorcycle":  10,
		"car":         10,
		"bird":        10,
	}
}

// DefaultConfig returns a Config with the default tuning for portrait
// reframing
func DefaultConfig() Config {
	return Config{
		TargetRatio:        9.0 / 16.0,
		PaddingRatio:       0.1,
		SizeWeight:         0.4,
		CenterWeight:       0.3,
		MotionWeight:       0.3,
		HistoryWeight:      0.7,
		SaliencyWeight:     0.4,
		BlendFactor:        0.3,
		SaliencyMaxObjects: 3,
		BlendMaxObjects:    2,
		ClassWeights:       DefaultClassWeights(),
		DefaultClassWeight: 0.5,
	}
}

// ClassWeight returns the importance weight for the given class name, or the
// default weight when the class has no mapping
func (c Config) ClassWeight(className string) float64 {

	if w, ok := c.ClassWeights[className]; ok {
		return w
	}

	return c.DefaultClassWeight
}
