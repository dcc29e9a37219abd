// Package model wraps the ONNX runtime session that holds the classifier.
package model

import (
	"sync"

	"github.com/pkg/errors"
	ort "github.com/yalue/onnxruntime_go"
)

var envMu sync.Mutex

// Session is an Engine backed by an onnxruntime AdvancedSession. The input
// and output tensors are bound once, so Run is serialized.
type Session struct {
	mu           sync.Mutex
	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
	inputLen     int
}

// NewSession loads the model at opts.ModelPath.
func NewSession(opts Options) (*Session, error) {
	if elements(opts.InputShape) == 0 || elements(opts.OutputShape) == 0 {
		return nil, errors.Errorf("invalid tensor shapes %v -> %v", opts.InputShape, opts.OutputShape)
	}
	if err := initEnvironment(opts.LibraryPath); err != nil {
		return nil, err
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(opts.InputShape...))
	if err != nil {
		return nil, errors.Wrap(err, "failed to create input tensor")
	}

	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(opts.OutputShape...))
	if err != nil {
		inputTensor.Destroy()
		return nil, errors.Wrap(err, "failed to create output tensor")
	}

	var sessionOpts *ort.SessionOptions
	if opts.Threads > 0 {
		sessionOpts, err = ort.NewSessionOptions()
		if err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, errors.Wrap(err, "failed to create session options")
		}
		defer sessionOpts.Destroy()
		if err := sessionOpts.SetIntraOpNumThreads(opts.Threads); err != nil {
			inputTensor.Destroy()
			outputTensor.Destroy()
			return nil, errors.Wrap(err, "failed to set thread count")
		}
	}

	session, err := ort.NewAdvancedSession(opts.ModelPath,
		[]string{opts.InputName}, []string{opts.OutputName},
		[]ort.Value{inputTensor}, []ort.Value{outputTensor},
		sessionOpts)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, errors.Wrap(err, "failed to create ONNX session")
	}

	return &Session{
		session:      session,
		inputTensor:  inputTensor,
		outputTensor: outputTensor,
		inputLen:     elements(opts.InputShape),
	}, nil
}

func initEnvironment(libraryPath string) error {
	envMu.Lock()
	defer envMu.Unlock()

	if ort.IsInitialized() {
		return nil
	}
	if libraryPath != "" {
		ort.SetSharedLibraryPath(libraryPath)
	}
	if err := ort.InitializeEnvironment(); err != nil {
		return errors.Wrap(err, "failed to initialize ONNX environment")
	}
	return nil
}

// Run copies input into the bound tensor, runs the model and returns a copy
// of the output.
func (s *Session) Run(input []float32) ([]float32, error) {
	if len(input) != s.inputLen {
		return nil, errors.Errorf("expected %d input values, got %d", s.inputLen, len(input))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	copy(s.inputTensor.GetData(), input)
	if err := s.session.Run(); err != nil {
		return nil, errors.Wrap(err, "inference failed")
	}

	out := s.outputTensor.GetData()
	return append([]float32(nil), out...), nil
}

// Close releases the session and its tensors. The runtime environment stays
// up for other sessions in the process.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.inputTensor != nil {
		s.inputTensor.Destroy()
		s.inputTensor = nil
	}
	if s.outputTensor != nil {
		s.outputTensor.Destroy()
		s.outputTensor = nil
	}
	if s.session != nil {
		s.session.Destroy()
		s.session = nil
	}
}

// Shutdown tears down the runtime environment. Call once at process exit.
func Shutdown() {
	envMu.Lock()
	defer envMu.Unlock()
	if ort.IsInitialized() {
		ort.DestroyEnvironment()
	}
}
