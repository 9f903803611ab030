// Package inference - ONNX Runtime session management and image
// preprocessing for the subject detection model.
package inference

import (
	"runtime"
)

// Config describes how to load and run a detection model.
type Config struct {
	// ModelPath is the location of the ONNX model file.
	ModelPath string `json:"model_path" yaml:"model_path"`
	// InputWidth and InputHeight are the model's expected image dimensions.
	InputWidth  int `json:"input_width" yaml:"input_width"`
	InputHeight int `json:"input_height" yaml:"input_height"`
	// InputName and OutputName are the model's graph tensor names.
	InputName  string `json:"input_name" yaml:"input_name"`
	OutputName string `json:"output_name" yaml:"output_name"`
	// OutputShape is the model's raw output tensor shape.
	OutputShape []int64 `json:"output_shape" yaml:"output_shape"`
	// LibraryPath overrides the ONNX Runtime shared library location.
	LibraryPath string `json:"library_path" yaml:"library_path"`
}

// DefaultConfig returns the settings for the standard 640x640 detector.
func DefaultConfig() Config {
	return Config{
		ModelPath:   "subject_detector.onnx",
		InputWidth:  640,
		InputHeight: 640,
		InputName:   "images",
		OutputName:  "output0",
		OutputShape: []int64{1, 84, 8400},
	}
}

// ModelInfo describes a loaded model. It is returned from NewSession and
// passed explicitly to the pipeline, so no package-level model state exists.
type ModelInfo struct {
	Path        string
	InputWidth  int
	InputHeight int
	OutputShape []int64
}

// sharedLibPath resolves the ONNX Runtime native library for this platform.
// An explicit override wins.
func sharedLibPath(override string) string {
	if override != "" {
		return override
	}
	if runtime.GOOS == "windows" && runtime.GOARCH == "amd64" {
		return "third_party/onnxruntime.dll"
	}
	if runtime.GOOS == "darwin" {
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.dylib"
		}
		return "third_party/onnxruntime_amd64.dylib"
	}
	if runtime.GOOS == "linux" {
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
	return "third_party/onnxruntime.so"
}
