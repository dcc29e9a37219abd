package model

// Engine evaluates the model on one normalized input tensor and returns the
// per-class scores.
type Engine interface {
	Run(input []float32) ([]float32, error)
	Close()
}

// Options describes how a Session is built.
type Options struct {
	ModelPath   string
	InputName   string
	OutputName  string
	InputShape  []int64
	OutputShape []int64
	// LibraryPath is the onnxruntime shared library. Empty keeps the default.
	LibraryPath string
	// Threads sets intra-op parallelism; zero keeps default session options.
	Threads int
}

func elements(shape []int64) int {
	if len(shape) == 0 {
		return 0
	}
	n := 1
	for _, d := range shape {
		n *= int(d)
	}
	return n
}
