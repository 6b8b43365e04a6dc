// Package saliency estimates the most visually prominent point on a frame
// using the spectral residual method.  It is a fallback attention signal for
// frames where object detection is weak.
package saliency

import (
	"image"
	"image/color"
	"log/slog"

	"github.com/IORoot/reframer"
	"gocv.io/x/gocv"
)

// maxDimension bounds the working image size, frames are downscaled before
// the saliency map is computed
const maxDimension = 400

// SpectralResidual computes a spectral residual saliency map, thresholds it
// with Otsu's method and reports the centroid of the largest salient region.
type SpectralResidual struct {
	logger *slog.Logger
}

// New returns a spectral residual saliency estimator.  A nil logger falls
// back to slog.Default.
func New(logger *slog.Logger) *SpectralResidual {

	if logger == nil {
		logger = slog.Default()
	}

	return &SpectralResidual{logger: logger}
}

// Find returns the most salient point on the frame in source coordinates.
// The boolean result is false when thresholding yields no region or the
// largest region has zero area.
func (s *SpectralResidual) Find(img gocv.Mat, frameWidth, frameHeight int) (reframe.Point, bool, error) {

	if img.Empty() || frameWidth <= 0 || frameHeight <= 0 {
		return reframe.Point{}, false, nil
	}

	// downscale for speed, saliency does not need full resolution
	scale := min(float64(maxDimension)/float64(frameWidth),
		float64(maxDimension)/float64(frameHeight))

	small := gocv.NewMat()
	defer small.Close()

	if scale < 1.0 {
		gocv.Resize(img, &small, image.Pt(0, 0), scale, scale, gocv.InterpolationArea)
	} else {
		scale = 1.0
		img.CopyTo(&small)
	}

	salMap := gocv.NewMat()
	defer salMap.Close()

	s.residualMap(small, &salMap)

	// Otsu threshold keeps only the most salient regions
	thresh := gocv.NewMat()
	defer thresh.Close()

	gocv.Threshold(salMap, &thresh, 0, 255, gocv.ThresholdBinary|gocv.ThresholdOtsu)

	contours := gocv.FindContours(thresh, gocv.RetrievalExternal, gocv.ChainApproxSimple)
	defer contours.Close()

	if contours.Size() == 0 {
		return reframe.Point{}, false, nil
	}

	// centroid of the largest salient region
	largest := 0
	largestArea := 0.0

	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > largestArea {
			largestArea = area
			largest = i
		}
	}

	mask := gocv.Zeros(thresh.Rows(), thresh.Cols(), gocv.MatTypeCV8U)
	defer mask.Close()

	gocv.DrawContours(&mask, contours, largest, color.RGBA{R: 255, G: 255, B: 255, A: 255}, -1)

	m := gocv.Moments(mask, true)

	if m["m00"] == 0 {
		return reframe.Point{}, false, nil
	}

	// scale the centroid back to source coordinates
	return reframe.Point{
		X: m["m10"] / m["m00"] / scale,
		Y: m["m01"] / m["m00"] / scale,
	}, true, nil
}

// residualMap computes the spectral residual saliency map of the image as an
// 8 bit single channel Mat.
//
// The spectral residual is the difference between the log amplitude spectrum
// and its local average, transformed back to the spatial domain.  Regions
// whose spectrum deviates from the smooth background stand out as salient.
func (s *SpectralResidual) residualMap(img gocv.Mat, dst *gocv.Mat) {

	gray := gocv.NewMat()
	defer gray.Close()

	gocv.CvtColor(img, &gray, gocv.ColorBGRToGray)

	floatImg := gocv.NewMat()
	defer floatImg.Close()

	gray.ConvertToWithParams(&floatImg, gocv.MatTypeCV32F, 1.0/255.0, 0)

	// forward transform
	freq := gocv.NewMat()
	defer freq.Close()

	gocv.DFT(floatImg, &freq, gocv.DftComplexOutput)

	planes := gocv.Split(freq)

	defer func() {
		for _, p := range planes {
			p.Close()
		}
	}()

	magnitude := gocv.NewMat()
	defer magnitude.Close()

	phase := gocv.NewMat()
	defer phase.Close()

	gocv.Magnitude(planes[0], planes[1], &magnitude)
	gocv.Phase(planes[0], planes[1], &phase, false)

	// log amplitude minus its local average is the spectral residual
	logAmp := gocv.NewMat()
	defer logAmp.Close()

	gocv.Log(magnitude, &logAmp)

	smoothed := gocv.NewMat()
	defer smoothed.Close()

	gocv.Blur(logAmp, &smoothed, image.Pt(3, 3))

	residual := gocv.NewMat()
	defer residual.Close()

	gocv.Subtract(logAmp, smoothed, &residual)
	gocv.Exp(residual, &residual)

	// recombine the residual amplitude with the original phase and invert
	realPart := gocv.NewMat()
	defer realPart.Close()

	imagPart := gocv.NewMat()
	defer imagPart.Close()

	gocv.PolarToCart(residual, phase, &realPart, &imagPart, false)

	combined := gocv.NewMat()
	defer combined.Close()

	gocv.Merge([]gocv.Mat{realPart, imagPart}, &combined)

	spatial := gocv.NewMat()
	defer spatial.Close()

	gocv.DFT(combined, &spatial, gocv.DftInverse|gocv.DftScale|gocv.DftComplexOutput)

	backPlanes := gocv.Split(spatial)

	defer func() {
		for _, p := range backPlanes {
			p.Close()
		}
	}()

	saliency := gocv.NewMat()
	defer saliency.Close()

	gocv.Magnitude(backPlanes[0], backPlanes[1], &saliency)
	gocv.Multiply(saliency, saliency, &saliency)

	gocv.GaussianBlur(saliency, &saliency, image.Pt(11, 11), 0, 0, gocv.BorderDefault)

	// normalise to 8 bit for Otsu thresholding
	gocv.Normalize(saliency, &saliency, 0, 255, gocv.NormMinMax)
	saliency.ConvertTo(dst, gocv.MatTypeCV8U)
}
