package render

import (
	"image"
	"image/color"

	"gocv.io/x/gocv"
)

// WatermarkConfig describes the text watermark drawn on output frames
type WatermarkConfig struct {
	Enabled   bool
	Text      string
	Position  string // top-left, top-right, bottom-left, bottom-right, center
	Opacity   float64
	FontScale float64
	Thickness int
	Color     color.RGBA
	Margin    int
}

// DefaultWatermarkConfig returns the default watermark settings, disabled
func DefaultWatermarkConfig() WatermarkConfig {
	return WatermarkConfig{
		Text:      "BETA",
		Position:  "bottom-right",
		Opacity:   0.3,
		FontScale: 1.0,
		Thickness: 2,
		Color:     white,
		Margin:    20,
	}
}

// Watermark blends a text watermark onto the frame according to the config.
// A disabled config is a no-op.
type Watermark struct {
	cfg     WatermarkConfig
	overlay gocv.Mat
}

// NewWatermark creates a watermark renderer
func NewWatermark(cfg WatermarkConfig) *Watermark {
	return &Watermark{
		cfg:     cfg,
		overlay: gocv.NewMat(),
	}
}

// Close frees the overlay buffer
func (w *Watermark) Close() error {
	return w.overlay.Close()
}

// Apply draws the watermark onto the frame in place
func (w *Watermark) Apply(frame *gocv.Mat) {

	if !w.cfg.Enabled || frame.Empty() {
		return
	}

	font := gocv.FontHersheySimplex
	textSize := gocv.GetTextSize(w.cfg.Text, font, w.cfg.FontScale, w.cfg.Thickness)

	x, y := w.textPosition(frame.Cols(), frame.Rows(), textSize)

	frame.CopyTo(&w.overlay)

	// text over a dark backing rectangle for visibility, clamped to the
	// frame
	const padding = 5

	rect := image.Rect(
		max(0, x-padding),
		max(0, y-textSize.Y-padding),
		min(frame.Cols(), x+textSize.X+padding),
		min(frame.Rows(), y+padding),
	)

	gocv.Rectangle(&w.overlay, rect, black, -1)
	gocv.PutText(&w.overlay, w.cfg.Text, image.Pt(x, y), font,
		w.cfg.FontScale, w.cfg.Color, w.cfg.Thickness)

	gocv.AddWeighted(*frame, 1.0-w.cfg.Opacity, w.overlay, w.cfg.Opacity, 0, frame)
}

// textPosition resolves the configured corner or center into text origin
// coordinates
func (w *Watermark) textPosition(frameWidth, frameHeight int, textSize image.Point) (int, int) {

	margin := w.cfg.Margin

	switch w.cfg.Position {
	case "top-left":
		return margin, margin + textSize.Y

	case "top-right":
		return frameWidth - textSize.X - margin, margin + textSize.Y

	case "bottom-left":
		return margin, frameHeight - margin

	case "center":
		return (frameWidth - textSize.X) / 2, (frameHeight + textSize.Y) / 2

	default:
		// bottom-right
		return frameWidth - textSize.X - margin, frameHeight - margin
	}
}
