// Command reframer converts a landscape video into a portrait (or any other
// aspect ratio) video by tracking the action and moving a crop window to
// follow it.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/IORoot/reframer"
	"github.com/IORoot/reframer/crop"
	"github.com/IORoot/reframer/detect"
	"github.com/IORoot/reframer/face"
	appconfig "github.com/IORoot/reframer/internal/config"
	"github.com/IORoot/reframer/render"
	"github.com/IORoot/reframer/saliency"
	"github.com/IORoot/reframer/track"
	"github.com/IORoot/reframer/video"
	"github.com/lmittmann/tint"
	"gocv.io/x/gocv"
)

// options holds the parsed command line flags
type options struct {
	input       string
	output      string
	configPath  string
	modelPath   string
	labelsPath  string
	cascadePath string

	targetRatio   float64
	maxWorkers    int
	skipFrames    int
	confThreshold float64
	objectClasses string
	trackCount    int

	paddingRatio   float64
	sizeWeight     float64
	centerWeight   float64
	motionWeight   float64
	historyWeight  float64
	saliencyWeight float64

	faceDetection   bool
	weightedCenter  bool
	saliencyEnabled bool
	blendSaliency   bool

	applySmoothing  bool
	smoothingWindow int
	positionInertia float64
	sizeInertia     float64

	h264  bool
	debug bool
}

func parseFlags(fs *flag.FlagSet, args []string) (options, error) {

	var o options

	fs.StringVar(&o.input, "input", "", "input video file")
	fs.StringVar(&o.output, "output", "output.mp4", "output video file")
	fs.StringVar(&o.configPath, "config", "", "config file, defaults to reframer.yaml in the working directory")
	fs.StringVar(&o.modelPath, "model", "models/yolov8n.onnx", "YOLOv8 ONNX model file")
	fs.StringVar(&o.labelsPath, "labels", "models/coco_labels.txt", "class labels file, one label per line")
	fs.StringVar(&o.cascadePath, "cascade", "models/facefinder", "pigo face cascade file")

	fs.Float64Var(&o.targetRatio, "ratio", 9.0/16.0, "output aspect ratio (width/height)")
	fs.IntVar(&o.maxWorkers, "workers", 4, "number of parallel detection workers")
	fs.IntVar(&o.skipFrames, "skip", 10, "analyse every Nth frame")
	fs.Float64Var(&o.confThreshold, "conf", 0.5, "detection confidence threshold")
	fs.StringVar(&o.objectClasses, "classes", "0", "comma separated class IDs to detect, empty keeps all")
	fs.IntVar(&o.trackCount, "track-count", 5, "maximum objects considered per frame")

	fs.Float64Var(&o.paddingRatio, "padding", 0.1, "padding around objects as a ratio of frame size")
	fs.Float64Var(&o.sizeWeight, "size-weight", 0.4, "weight of object size in importance scoring")
	fs.Float64Var(&o.centerWeight, "center-weight", 0.3, "weight of center proximity in importance scoring")
	fs.Float64Var(&o.motionWeight, "motion-weight", 0.3, "weight of object motion in importance scoring")
	fs.Float64Var(&o.historyWeight, "history-weight", 0.7, "how strongly prior frames hold the crop in place")
	fs.Float64Var(&o.saliencyWeight, "saliency-weight", 0.4, "weight of the saliency signal")

	fs.BoolVar(&o.faceDetection, "faces", false, "enable face detection as an additional signal")
	fs.BoolVar(&o.weightedCenter, "weighted-center", false, "follow the weighted center of all objects instead of the most important one")
	fs.BoolVar(&o.saliencyEnabled, "saliency", true, "use saliency as a fallback attention signal on frames with few detections")
	fs.BoolVar(&o.blendSaliency, "blend-saliency", false, "blend the saliency point into the attention point on sparse frames")

	fs.BoolVar(&o.applySmoothing, "smoothing", false, "apply temporal smoothing to the crop windows")
	fs.IntVar(&o.smoothingWindow, "smoothing-window", 30, "moving average window size in frames")
	fs.Float64Var(&o.positionInertia, "position-inertia", 0.8, "crop position inertia, higher is steadier")
	fs.Float64Var(&o.sizeInertia, "size-inertia", 0.9, "crop size inertia, higher is steadier")

	fs.BoolVar(&o.h264, "h264", false, "re-encode the output as H.264 with ffmpeg")
	fs.BoolVar(&o.debug, "debug", false, "verbose logging and a side video with detection overlays")

	if err := fs.Parse(args); err != nil {
		return options{}, err
	}

	return o, nil
}

func main() {

	o, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		os.Exit(2)
	}

	level := slog.LevelInfo

	if o.debug {
		level = slog.LevelDebug
	}

	logger := slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.Kitchen,
	}))
	slog.SetDefault(logger)

	if o.input == "" {
		flag.Usage()
		logger.Error("an input video is required")
		os.Exit(1)
	}

	if err := run(o, logger); err != nil {
		logger.Error("reframing failed", "error", err)
		os.Exit(1)
	}
}

// run executes the full pipeline, keyframe detection, crop calculation,
// interpolation, smoothing and rendering
func run(o options, logger *slog.Logger) error {

	start := time.Now()

	appCfg, err := appconfig.Load(o.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	engCfg := engineConfig(o, appCfg)

	reader, err := video.OpenReader(o.input)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer reader.Close()

	info := reader.Info()

	logger.Info("input video",
		"path", info.Path,
		"size", fmt.Sprintf("%dx%d", info.Width, info.Height),
		"fps", info.FPS,
		"frames", info.TotalFrames,
	)

	keyframes := keyframeIndexes(info.TotalFrames, o.skipFrames)

	detections, err := detectKeyframes(o, appCfg, reader, keyframes, logger)
	if err != nil {
		return err
	}

	windows, err := calculateWindows(o, engCfg, reader, info, keyframes, detections, logger)
	if err != nil {
		return err
	}

	fallback := crop.CenterCrop(info.Width, info.Height, o.targetRatio)

	dense := crop.Interpolate(windows, info.TotalFrames, fallback)

	if o.applySmoothing {
		smoother := crop.NewWindowSmoother(o.smoothingWindow,
			o.positionInertia, o.sizeInertia)
		dense = smoother.Smooth(dense, info.Width, info.Height)
	}

	if err := renderVideo(o, appCfg, reader, dense, logger); err != nil {
		return err
	}

	logger.Info("done", "output", o.output, "elapsed", time.Since(start))

	return nil
}

// engineConfig builds the crop engine configuration from the command line
// flags and the class weight overrides of the config file
func engineConfig(o options, appCfg *appconfig.Config) reframe.Config {

	cfg := reframe.DefaultConfig()
	cfg.TargetRatio = o.targetRatio
	cfg.PaddingRatio = o.paddingRatio
	cfg.SizeWeight = o.sizeWeight
	cfg.CenterWeight = o.centerWeight
	cfg.MotionWeight = o.motionWeight
	cfg.HistoryWeight = o.historyWeight
	cfg.SaliencyWeight = o.saliencyWeight
	cfg.FaceDetection = o.faceDetection
	cfg.WeightedCenter = o.weightedCenter
	cfg.BlendSaliency = o.blendSaliency

	for name, weight := range appCfg.ClassWeights {
		cfg.ClassWeights[name] = weight
	}

	return cfg
}

// keyframeIndexes returns every Nth frame index of the video
func keyframeIndexes(totalFrames, skip int) []int {

	if skip < 1 {
		skip = 1
	}

	idxs := make([]int, 0, totalFrames/skip+1)

	for i := 0; i < totalFrames; i += skip {
		idxs = append(idxs, i)
	}

	return idxs
}

// needsFrame reports whether the crop phase has to read raw frames, which
// only the auxiliary extractors and the debug overlays consume
func needsFrame(o options) bool {
	return o.faceDetection || o.saliencyEnabled || o.debug
}

// parseClasses turns the comma separated class ID list into ints
func parseClasses(s string) ([]int, error) {

	s = strings.TrimSpace(s)

	if s == "" {
		return nil, nil
	}

	var ids []int

	for _, part := range strings.Split(s, ",") {

		id, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, fmt.Errorf("invalid class ID %q: %w", part, err)
		}

		ids = append(ids, id)
	}

	return ids, nil
}

// detection job dispatched to a worker, the worker owns the frame and closes
// it when done
type job struct {
	idx   int
	frame gocv.Mat
}

// detectKeyframes runs the object detector on every keyframe using a pool of
// detector instances.  Frames are read sequentially, detection runs in
// parallel.
func detectKeyframes(o options, appCfg *appconfig.Config, reader *video.Reader,
	keyframes []int, logger *slog.Logger) (map[int][]reframe.Object, error) {

	classes, err := parseClasses(o.objectClasses)
	if err != nil {
		return nil, err
	}

	labels, err := reframe.LoadLabels(o.labelsPath)
	if err != nil {
		return nil, fmt.Errorf("loading labels: %w", err)
	}

	params := detect.COCOParams()
	params.BoxThreshold = o.confThreshold
	params.Classes = classes
	params.LibraryPath = appCfg.OnnxLibrary

	workers := o.maxWorkers

	if workers < 1 {
		workers = 1
	}

	pool, err := reframe.NewPool(workers, func() (reframe.Detector, error) {
		return detect.NewYOLOv8(o.modelPath, labels, params, logger)
	})
	if err != nil {
		return nil, fmt.Errorf("creating detector pool: %w", err)
	}
	defer pool.Close()

	logger.Info("detecting keyframes",
		"keyframes", len(keyframes), "workers", pool.Size())

	var (
		mu         sync.Mutex
		wg         sync.WaitGroup
		detections = make(map[int][]reframe.Object, len(keyframes))
	)

	jobs := make(chan job)

	for i := 0; i < pool.Size(); i++ {

		wg.Add(1)

		go func() {
			defer wg.Done()

			for j := range jobs {

				det := pool.Get()
				objects, err := det.Detect(j.frame, o.trackCount)
				pool.Return(det)

				j.frame.Close()

				if err != nil {
					logger.Warn("detection failed",
						"frame", j.idx, "error", err)
					continue
				}

				mu.Lock()
				detections[j.idx] = objects
				mu.Unlock()
			}
		}()
	}

	// the capture handle is not safe for concurrent use, only the reads
	// are serialized here
	for _, idx := range keyframes {

		frame := gocv.NewMat()

		if err := reader.ReadFrameAt(idx, &frame); err != nil {
			frame.Close()
			logger.Warn("skipping unreadable frame", "frame", idx, "error", err)
			continue
		}

		jobs <- job{idx: idx, frame: frame}
	}

	close(jobs)
	wg.Wait()

	return detections, nil
}

// calculateWindows walks the keyframes in order, feeding tracked detections
// through the crop calculator.  This phase is strictly sequential, the
// tracker and the calculator both carry state from frame to frame.
func calculateWindows(o options, engCfg reframe.Config, reader *video.Reader,
	info video.Info, keyframes []int, detections map[int][]reframe.Object,
	logger *slog.Logger) (map[int]reframe.Window, error) {

	calc := crop.NewCalculator(engCfg, logger)

	if o.faceDetection {

		fd, err := face.NewDetector(o.cascadePath, logger)
		if err != nil {
			return nil, fmt.Errorf("loading face cascade: %w", err)
		}

		calc.SetFaceFinder(fd)
	}

	// saliency backs up sparse detections as an attention source on its
	// own, BlendSaliency only gates the blending step inside the engine
	if o.saliencyEnabled {
		calc.SetSaliencyFinder(saliency.New(logger))
	}

	tracker := track.NewCentroidTracker(30, 50)

	var debugOut *debugWriter

	if o.debug {

		var err error

		debugOut, err = newDebugWriter(o.output, info, o.skipFrames)
		if err != nil {
			return nil, err
		}
		defer debugOut.Close()
	}

	// the calculator only reads raw pixels for the auxiliary signals and
	// the debug overlays
	needFrame := needsFrame(o)

	frame := gocv.NewMat()
	defer frame.Close()

	sort.Ints(keyframes)

	windows := make(map[int]reframe.Window, len(keyframes))

	for _, idx := range keyframes {

		var framePtr *gocv.Mat

		if needFrame {

			if err := reader.ReadFrameAt(idx, &frame); err != nil {
				logger.Warn("skipping unreadable frame",
					"frame", idx, "error", err)
				continue
			}

			framePtr = &frame
		}

		tracked := tracker.Update(detections[idx])

		win := calc.Calculate(tracked, info.Width, info.Height, framePtr)
		windows[idx] = win

		logger.Debug("keyframe window",
			"frame", idx, "objects", len(tracked), "window", win)

		if debugOut != nil {
			debugOut.Write(&frame, tracked, win, calc)
		}
	}

	return windows, nil
}

// renderVideo writes the output video and runs the optional ffmpeg post
// processing steps
func renderVideo(o options, appCfg *appconfig.Config, reader *video.Reader,
	windows []reframe.Window, logger *slog.Logger) error {

	gen := video.NewGenerator(logger)

	if appCfg.Watermark.Enabled {

		wmCfg := render.DefaultWatermarkConfig()
		wmCfg.Enabled = true
		wmCfg.Text = appCfg.Watermark.Text
		wmCfg.Position = appCfg.Watermark.Position
		wmCfg.Opacity = appCfg.Watermark.Opacity
		wmCfg.FontScale = appCfg.Watermark.FontScale
		wmCfg.Thickness = appCfg.Watermark.Thickness
		wmCfg.Margin = appCfg.Watermark.Margin

		wm := render.NewWatermark(wmCfg)
		defer wm.Close()

		gen.Decorate = func(_ int, frame *gocv.Mat) {
			wm.Apply(frame)
		}
	}

	reader.Rewind()

	if err := gen.Generate(reader, o.output, windows); err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	ctx := context.Background()
	ffmpeg := video.NewFFmpeg(appCfg.FFmpegPath)

	// a missing or failing ffmpeg leaves a silent output rather than
	// failing the whole run
	if err := ffmpeg.MergeAudio(ctx, o.output, o.input); err != nil {
		logger.Warn("audio merge skipped", "error", err)
	}

	if o.h264 {
		if err := ffmpeg.ConvertToH264(ctx, o.output); err != nil {
			logger.Warn("H.264 conversion skipped", "error", err)
		}
	}

	return nil
}
