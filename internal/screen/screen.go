// Package screen is the classification screen controller. It owns the
// displayed image and the classifier, runs classification off the UI
// context and posts results back through a Dispatcher.
package screen

import (
	"context"
	"image"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"

	"github.com/Brownie44l1/breed-classifier/internal/acquire"
	"github.com/Brownie44l1/breed-classifier/internal/classify"
	"github.com/Brownie44l1/breed-classifier/internal/config"
)

var (
	// ErrNotInitialized is logged when classify runs after a failed Init.
	ErrNotInitialized = errors.New("classifier not initialized")
	// ErrNoImage is logged when classify runs before any image was loaded.
	ErrNoImage = errors.New("no image loaded")
)

// View is the display surface. Its methods are only called through the
// screen's Dispatcher.
type View interface {
	ShowImage(img image.Image)
	ShowResult(label, confidence string)
	SetClassifyEnabled(enabled bool)
	Notify(msg string)
}

// Loader builds the classifier during Init.
type Loader func() (*classify.Classifier, error)

// Acquisition is the host's answer to a gallery or camera request. Gallery
// results carry a URI, camera results an in-memory Image.
type Acquisition struct {
	URI   string
	Image image.Image
	Err   error
}

// Screen is one classification screen, configured by a variant.
type Screen struct {
	copy config.Copy
	view View
	ui   Dispatcher
	log  *logrus.Entry
	sem  *semaphore.Weighted

	mu         sync.RWMutex
	classifier *classify.Classifier
	image      image.Image

	wg sync.WaitGroup
}

// New returns a screen that has not loaded its classifier yet.
func New(v config.Variant, view View, ui Dispatcher, log *logrus.Entry) *Screen {
	s := &Screen{
		copy: v.Copy,
		view: view,
		ui:   ui,
		log:  log.WithField("variant", v.Name),
	}
	if v.MaxInFlight > 0 {
		s.sem = semaphore.NewWeighted(int64(v.MaxInFlight))
	}
	return s
}

// Init loads the classifier. A failure is logged and shown once; the
// screen keeps running but cannot classify.
func (s *Screen) Init(load Loader) error {
	s.ui.Do(func() { s.view.SetClassifyEnabled(false) })

	c, err := load()
	if err != nil {
		s.log.WithError(err).Error("initialization failed")
		s.ui.Do(func() { s.view.Notify(s.copy.InitError) })
		return err
	}

	s.mu.Lock()
	s.classifier = c
	s.mu.Unlock()
	s.log.WithField("classes", c.Labels().Len()).Info("classifier ready")
	return nil
}

// Ready reports whether Init succeeded.
func (s *Screen) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.classifier != nil
}

// HasImage reports whether an image is loaded.
func (s *Screen) HasImage() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.image != nil
}

// OnResult delivers the outcome of a gallery or camera request. Successful
// results replace the displayed image and enable classification; failures
// and cancellations leave the screen unchanged.
func (s *Screen) OnResult(code acquire.RequestCode, res Acquisition) {
	log := s.log.WithField("request", code.String())
	if res.Err != nil {
		if errors.Is(res.Err, acquire.ErrCancelled) {
			log.Debug("acquisition cancelled")
		} else {
			log.WithError(res.Err).Warn("acquisition failed")
		}
		return
	}

	img := res.Image
	if code == acquire.RequestGallery && res.URI != "" {
		var err error
		if img, err = acquire.Open(res.URI); err != nil {
			log.WithError(err).Warn("could not open picked image")
			return
		}
	}
	if img == nil {
		log.Warn("acquisition returned no image")
		return
	}

	s.mu.Lock()
	s.image = img
	s.mu.Unlock()

	b := img.Bounds()
	log.WithFields(logrus.Fields{"width": b.Dx(), "height": b.Dy()}).Info("image loaded")
	s.ui.Do(func() {
		s.view.ShowImage(img)
		s.view.SetClassifyEnabled(true)
	})
}

// PickFromGallery loads the image at uri.
func (s *Screen) PickFromGallery(uri string) {
	s.OnResult(acquire.RequestGallery, Acquisition{URI: uri})
}

// CaptureFromCamera asks cam for a photo in the background.
func (s *Screen) CaptureFromCamera(ctx context.Context, cam acquire.Camera) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		img, err := cam.Capture(ctx)
		s.OnResult(acquire.RequestCamera, Acquisition{Image: img, Err: err})
	}()
}

// Classify classifies the current image on a new goroutine and returns the
// request ID, or "" when there is nothing to do. Errors are logged only.
func (s *Screen) Classify(ctx context.Context) string {
	s.mu.RLock()
	c, img := s.classifier, s.image
	s.mu.RUnlock()

	if c == nil {
		s.log.WithError(ErrNotInitialized).Error("cannot classify")
		return ""
	}
	if img == nil {
		s.log.WithError(ErrNoImage).Error("cannot classify")
		return ""
	}

	id := uuid.NewString()
	log := s.log.WithField("request_id", id)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if s.sem != nil {
			if err := s.sem.Acquire(ctx, 1); err != nil {
				log.WithError(err).Warn("classification abandoned")
				return
			}
			defer s.sem.Release(1)
		}

		start := time.Now()
		res, err := c.Classify(ctx, img)
		if err != nil {
			log.WithError(err).Error("classification failed")
			return
		}
		log.WithFields(logrus.Fields{
			"label":    res.Label,
			"score":    res.Score,
			"known":    res.Known,
			"duration": time.Since(start),
		}).Info("image classified")

		s.ui.Do(func() { s.show(res) })
	}()
	return id
}

func (s *Screen) show(res classify.Result) {
	if res.Known {
		s.view.ShowResult(res.Label, res.ConfidenceText())
		return
	}
	s.view.ShowResult(s.copy.UnknownLabel, s.copy.UnknownLabel)
	if s.copy.Unknown != "" {
		s.view.Notify(s.copy.Unknown)
	}
}

// Wait blocks until background captures and classifications finish.
func (s *Screen) Wait() {
	s.wg.Wait()
}

// Close waits for background work and releases the classifier.
func (s *Screen) Close() {
	s.Wait()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.classifier != nil {
		s.classifier.Close()
		s.classifier = nil
	}
}
