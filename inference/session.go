package inference

import (
	"log"
	"os"
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
	"gorgonia.org/tensor"
)

var initOnce sync.Once

// Session wraps an ONNX Runtime session with preallocated input and output
// tensors. One session serves one frame stream; Run is not safe for
// concurrent callers.
type Session struct {
	session *ort.AdvancedSession
	input   *ort.Tensor[float32]
	output  *ort.Tensor[float32]
	config  Config
}

// NewSession loads a detection model and returns the session together with
// the explicit ModelInfo value callers thread through the pipeline.
//
// Order of operations: native library check, one-time environment
// initialization, fixed-shape tensor allocation, session creation. Callers
// own the session and must Close it.
func NewSession(config Config) (*Session, ModelInfo, error) {
	var info ModelInfo

	if _, err := os.Stat(config.ModelPath); err != nil {
		return nil, info, errors.Wrapf(err, "model file %s", config.ModelPath)
	}

	libPath := sharedLibPath(config.LibraryPath)
	if _, err := os.Stat(libPath); err != nil {
		return nil, info, errors.Wrapf(err, "ONNX Runtime library not found at %s", libPath)
	}

	var initErr error
	initOnce.Do(func() {
		ort.SetSharedLibraryPath(libPath)
		initErr = ort.InitializeEnvironment()
	})
	if initErr != nil {
		return nil, info, errors.Wrap(initErr, "initializing ONNX Runtime environment")
	}

	input, err := ort.NewEmptyTensor[float32](
		ort.NewShape(1, 3, int64(config.InputHeight), int64(config.InputWidth)))
	if err != nil {
		return nil, info, errors.Wrap(err, "creating input tensor")
	}

	output, err := ort.NewEmptyTensor[float32](ort.NewShape(config.OutputShape...))
	if err != nil {
		input.Destroy()
		return nil, info, errors.Wrap(err, "creating output tensor")
	}

	session, err := ort.NewAdvancedSession(
		config.ModelPath,
		[]string{config.InputName},
		[]string{config.OutputName},
		[]ort.ArbitraryTensor{input},
		[]ort.ArbitraryTensor{output},
		nil,
	)
	if err != nil {
		input.Destroy()
		output.Destroy()
		return nil, info, errors.Wrapf(err, "creating session for %s", config.ModelPath)
	}

	log.Printf("detection model loaded: %s (input %dx%d)",
		config.ModelPath, config.InputWidth, config.InputHeight)

	info = ModelInfo{
		Path:        config.ModelPath,
		InputWidth:  config.InputWidth,
		InputHeight: config.InputHeight,
		OutputShape: config.OutputShape,
	}
	return &Session{session: session, input: input, output: output, config: config}, info, nil
}

// Run executes the model on a preprocessed CHW float32 image and returns the
// raw output as a dense tensor whose shape drives layout classification in
// the detect package.
func (s *Session) Run(input []float32) (tensor.Tensor, error) {
	dst := s.input.GetData()
	if len(input) != len(dst) {
		return nil, errors.Errorf("input length %d, model expects %d", len(input), len(dst))
	}
	copy(dst, input)

	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "running inference")
	}

	src := s.output.GetData()
	data := make([]float32, len(src))
	copy(data, src)

	dims := make([]int, len(s.config.OutputShape))
	for i, d := range s.config.OutputShape {
		dims[i] = int(d)
	}
	return tensor.New(tensor.WithShape(dims...), tensor.WithBacking(data)), nil
}

// Close releases the native resources associated with the session.
func (s *Session) Close() {
	if s.input != nil {
		s.input.Destroy()
		s.input = nil
	}
	if s.output != nil {
		s.output.Destroy()
		s.output = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}
