// Command respiration-demo runs the live estimation pipeline against a
// camera, a video file or a recorded frame sequence, printing breathing phase
// transitions and the final pattern classification.
//
// Camera and video acquisition are external collaborators of the core: frames
// are converted to tensors here and everything after that point is the
// pipeline's contract.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/pkg/errors"
	"gocv.io/x/gocv"

	"github.com/CDupuis7/go-respiration/analysis"
	"github.com/CDupuis7/go-respiration/detect"
	"github.com/CDupuis7/go-respiration/inference"
	"github.com/CDupuis7/go-respiration/pipeline"
	"github.com/CDupuis7/go-respiration/track"
	"github.com/CDupuis7/go-respiration/util"
)

const (
	// calibrationFrames is how many tracked frames to observe before
	// recalibrating the velocity thresholds from history.
	calibrationFrames = 40
	// frameInterval throttles live camera capture; the core itself never
	// throttles.
	frameInterval = 100 * time.Millisecond
	// replayIntervalMS is the synthetic timeline step when replaying a
	// recorded frame directory.
	replayIntervalMS = 100
)

// options holds the parsed command-line configuration.
type options struct {
	modelPath    string
	cameraID     int
	videoPath    string
	framesDir    string
	rotation     int
	exportPath   string
	advisoryPath string
	listenAddr   string
	maxFrames    int
}

func main() {
	var opts options
	flag.StringVar(&opts.modelPath, "model", "subject_detector.onnx", "Path to the ONNX detection model")
	flag.IntVar(&opts.cameraID, "camera", 0, "Video capture device ID")
	flag.StringVar(&opts.videoPath, "video", "", "Path to a video file instead of the camera")
	flag.StringVar(&opts.framesDir, "frames", "", "Directory of recorded frames instead of the camera")
	flag.IntVar(&opts.rotation, "rotation", 0, "Display rotation in degrees (0/90/180/270)")
	flag.StringVar(&opts.exportPath, "export", "", "Write the session data to this CSV file on exit")
	flag.StringVar(&opts.advisoryPath, "advisory", "", "Optional advisory model weights JSON")
	flag.StringVar(&opts.listenAddr, "listen", "", "Serve Prometheus metrics on this address")
	flag.IntVar(&opts.maxFrames, "max-frames", 0, "Stop after this many frames (0 = unlimited)")
	flag.Parse()

	// Errors surface here after run's defers have released the native
	// session and capture resources.
	if err := run(opts); err != nil {
		log.Fatalf("%v", err)
	}
}

func run(opts options) error {
	classifier, err := buildClassifier(opts.advisoryPath)
	if err != nil {
		return errors.Wrap(err, "advisory model")
	}

	config := inference.DefaultConfig()
	config.ModelPath = opts.modelPath
	session, info, err := inference.NewSession(config)
	if err != nil {
		return errors.Wrap(err, "loading model")
	}
	defer session.Close()

	pipe := pipeline.NewSession(info, pipeline.DefaultConfig(), classifier)

	if opts.listenAddr != "" {
		go serveMetrics(pipe, opts.listenAddr)
	}

	r := &runner{
		session:  session,
		pipe:     pipe,
		info:     info,
		rotation: detect.Rotation(opts.rotation),
		phase:    pipe.Phase(),
	}

	if opts.framesDir != "" {
		err = r.frameSequence(opts.framesDir, opts.maxFrames)
	} else {
		err = r.capture(opts.videoPath, opts.cameraID, opts.maxFrames)
	}
	if err != nil {
		return errors.Wrap(err, "processing")
	}

	report(pipe)

	if opts.exportPath != "" {
		if err := exportSession(pipe, opts.exportPath); err != nil {
			return errors.Wrap(err, "exporting session")
		}
		log.Printf("session written to %s", opts.exportPath)
	}
	return nil
}

// buildClassifier selects the classification strategy once at startup.
func buildClassifier(advisoryPath string) (analysis.PatternClassifier, error) {
	rules := analysis.NewRuleClassifier(analysis.DefaultClassifierConfig())
	if advisoryPath == "" {
		return rules, nil
	}
	model, err := analysis.LoadAdvisoryModel(advisoryPath)
	if err != nil {
		return nil, err
	}
	return analysis.NewModelAssistedClassifier(rules, model), nil
}

func serveMetrics(pipe *pipeline.Session, addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", pipe.Instrumentation().Handler())
	log.Printf("metrics listening on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Printf("metrics server: %v", err)
	}
}

// runner carries the per-run state shared by the capture loops.
type runner struct {
	session    *inference.Session
	pipe       *pipeline.Session
	info       inference.ModelInfo
	rotation   detect.Rotation
	phase      track.Phase
	tracked    int
	calibrated bool
}

// capture drives the pipeline from a camera or video file via OpenCV.
func (r *runner) capture(videoPath string, cameraID int, maxFrames int) error {
	var capture *gocv.VideoCapture
	var err error
	if videoPath != "" {
		capture, err = gocv.OpenVideoCapture(videoPath)
	} else {
		capture, err = gocv.OpenVideoCapture(cameraID)
	}
	if err != nil {
		return err
	}
	defer capture.Close()

	mat := gocv.NewMat()
	defer mat.Close()

	frames := 0
	for maxFrames <= 0 || frames < maxFrames {
		if ok := capture.Read(&mat); !ok || mat.Empty() {
			break
		}
		img, err := mat.ToImage()
		if err != nil {
			return err
		}
		if err := r.step(img, time.Now().UnixMilli()); err != nil {
			return err
		}
		frames++
		time.Sleep(frameInterval)
	}
	return nil
}

// frameSequence replays a recorded directory of frames in order on a
// synthetic timeline.
func (r *runner) frameSequence(dir string, maxFrames int) error {
	frames, err := util.LoadFrameSequence(dir)
	if err != nil {
		return err
	}
	if maxFrames > 0 && len(frames) > maxFrames {
		frames = frames[:maxFrames]
	}

	timestampMS := int64(0)
	for _, frame := range frames {
		img, _, err := image.Decode(bytes.NewReader(frame.Data))
		if err != nil {
			log.Printf("skipping %s: %v", frame.Path, err)
			continue
		}
		if err := r.step(img, timestampMS); err != nil {
			return err
		}
		timestampMS += replayIntervalMS
	}
	return nil
}

// step runs one frame through inference and the pipeline, logging phase
// transitions and recalibrating once enough history has accumulated.
func (r *runner) step(img image.Image, timestampMS int64) error {
	bounds := img.Bounds()
	input := inference.Preprocess(img, r.info.InputWidth, r.info.InputHeight)
	raw, err := r.session.Run(input)
	if err != nil {
		return err
	}

	result := r.pipe.ProcessFrame(raw, bounds.Dx(), bounds.Dy(), r.rotation, timestampMS)
	if !result.Tracked {
		return nil
	}
	r.tracked++

	if result.Phase != r.phase {
		log.Printf("phase %s -> %s (v=%.2f)", r.phase, result.Phase, result.Point.VerticalVelocity)
		r.phase = result.Phase
	}

	if !r.calibrated && r.tracked >= calibrationFrames {
		if r.pipe.CalibrateFromHistory() {
			log.Printf("velocity thresholds calibrated after %d tracked frames", r.tracked)
		}
		r.calibrated = true
	}
	return nil
}

// report prints the final metrics and classification.
func report(pipe *pipeline.Session) {
	metrics, ok := pipe.Metrics()
	if !ok {
		fmt.Println("\nNot enough tracked frames for breathing metrics.")
		return
	}
	fmt.Printf("\nBreathing rate: %.2f breaths/min\n", metrics.BreathingRate)
	fmt.Printf("Breaths counted: %d over %.1f s\n", metrics.BreathCount, metrics.DurationSeconds)
	fmt.Printf("Amplitude avg/max/min: %.2f / %.2f / %.2f\n",
		metrics.AverageAmplitude, metrics.MaxAmplitude, metrics.MinAmplitude)
	fmt.Printf("Irregularity index: %.2f\n", metrics.IrregularityIndex)

	result := pipe.Classify()
	fmt.Printf("\nClassification: %s (confidence %.2f)\n", result.Label, result.Confidence)
	for _, c := range result.Conditions {
		fmt.Printf("  - %s\n", c)
	}
	fmt.Printf("  %s\n", result.Detail)
	if result.AdvisoryProbability >= 0 {
		fmt.Printf("  advisory abnormality probability: %.2f\n", result.AdvisoryProbability)
	}
}

func exportSession(pipe *pipeline.Session, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	metrics, _ := pipe.Metrics()
	return analysis.WriteSession(f, &analysis.Session{
		Metrics: metrics,
		Points:  pipe.History(),
	})
}
