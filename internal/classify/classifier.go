package classify

import (
	"context"
	"image"

	"github.com/pkg/errors"

	"github.com/Brownie44l1/breed-classifier/internal/config"
	"github.com/Brownie44l1/breed-classifier/internal/labels"
	"github.com/Brownie44l1/breed-classifier/internal/model"
	"github.com/Brownie44l1/breed-classifier/internal/preprocess"
)

// Classifier runs preprocess, inference and decision for one image. It holds
// only read-only state after construction and is safe for concurrent use
// when its Engine is.
type Classifier struct {
	pipeline  preprocess.Pipeline
	engine    model.Engine
	labels    labels.List
	threshold *float32
}

// New assembles a classifier from a loaded label list and engine.
func New(v config.Variant, l labels.List, engine model.Engine) (*Classifier, error) {
	if engine == nil {
		return nil, errors.New("nil engine")
	}
	if v.NumClasses > 0 && v.NumClasses != l.Len() {
		return nil, errors.Wrapf(ErrOutputMismatch, "variant %s expects %d classes, label file has %d",
			v.Name, v.NumClasses, l.Len())
	}
	var threshold *float32
	if v.HasThreshold() {
		t := *v.Threshold
		threshold = &t
	}
	return &Classifier{
		pipeline:  preprocess.New(v),
		engine:    engine,
		labels:    l,
		threshold: threshold,
	}, nil
}

// Load reads the label file, opens the model and builds the classifier.
func Load(cfg *config.Config) (*Classifier, error) {
	v := cfg.Variant
	l, err := labels.Load(v.Labels)
	if err != nil {
		return nil, err
	}

	p := preprocess.New(v)
	engine, err := model.NewSession(model.Options{
		ModelPath:   v.Model,
		InputName:   v.InputName,
		OutputName:  v.OutputName,
		InputShape:  p.Shape(),
		OutputShape: []int64{1, int64(l.Len())},
		LibraryPath: cfg.Engine.Library,
		Threads:     cfg.Engine.Threads,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "load model %s", v.Model)
	}

	c, err := New(v, l, engine)
	if err != nil {
		engine.Close()
		return nil, err
	}
	return c, nil
}

// Labels returns the label list.
func (c *Classifier) Labels() labels.List { return c.labels }

// InputLen is the tensor length the engine expects.
func (c *Classifier) InputLen() int { return c.pipeline.Len() }

// Classify runs the pipeline on img. ctx is checked between stages; a
// started inference call is not interrupted.
func (c *Classifier) Classify(ctx context.Context, img image.Image) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	input, err := c.pipeline.Process(img)
	if err != nil {
		return Result{}, errors.Wrap(err, "preprocess")
	}
	return c.ClassifyTensor(ctx, input)
}

// ClassifyTensor runs inference on an already normalized tensor.
func (c *Classifier) ClassifyTensor(ctx context.Context, input []float32) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(input) != c.pipeline.Len() {
		return Result{}, errors.Errorf("expected %d input values, got %d", c.pipeline.Len(), len(input))
	}
	scores, err := c.engine.Run(input)
	if err != nil {
		return Result{}, errors.Wrap(err, "inference")
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	return Decide(scores, c.labels, c.threshold)
}

// Close releases the engine.
func (c *Classifier) Close() {
	c.engine.Close()
}
