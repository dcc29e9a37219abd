package screen

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Brownie44l1/breed-classifier/internal/acquire"
	"github.com/Brownie44l1/breed-classifier/internal/classify"
	"github.com/Brownie44l1/breed-classifier/internal/config"
	"github.com/Brownie44l1/breed-classifier/internal/labels"
	"github.com/Brownie44l1/breed-classifier/internal/model/modeltest"
)

type recordingView struct {
	mu      sync.Mutex
	images  int
	label   string
	conf    string
	results int
	enabled bool
	notices []string
}

func (v *recordingView) ShowImage(image.Image) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.images++
}

func (v *recordingView) ShowResult(label, confidence string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.label, v.conf = label, confidence
	v.results++
}

func (v *recordingView) SetClassifyEnabled(enabled bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.enabled = enabled
}

func (v *recordingView) Notify(msg string) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.notices = append(v.notices, msg)
}

func (v *recordingView) snapshot() recordingView {
	v.mu.Lock()
	defer v.mu.Unlock()
	return recordingView{
		images:  v.images,
		label:   v.label,
		conf:    v.conf,
		results: v.results,
		enabled: v.enabled,
		notices: append([]string(nil), v.notices...),
	}
}

func variant(threshold *float32, unknown string) config.Variant {
	return config.Variant{
		Name:      "test",
		ImageSize: 4,
		Layout:    config.LayoutNHWC,
		Threshold: threshold,
		Copy: config.Copy{
			InitError:    "Initialization error!",
			Unknown:      unknown,
			UnknownLabel: "-",
		},
	}
}

func thr(v float32) *float32 { return &v }

func photo() image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	img.SetRGBA(1, 1, color.RGBA{G: 120, A: 255})
	return img
}

func newScreen(t *testing.T, v config.Variant, engine *modeltest.Engine) (*Screen, *recordingView, *logtest.Hook) {
	t.Helper()
	logger, hook := logtest.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	view := &recordingView{}
	s := New(v, view, Inline, logrus.NewEntry(logger))

	l := labels.New([]string{"beagle", "poodle"})
	require.NoError(t, s.Init(func() (*classify.Classifier, error) {
		return classify.New(v, l, engine)
	}))
	return s, view, hook
}

func TestClassify_ShowsKnownResult(t *testing.T) {
	s, view, _ := newScreen(t, variant(thr(0.5), "Unknown breed."), modeltest.New(0.2, 0.81))

	s.OnResult(acquire.RequestCamera, Acquisition{Image: photo()})
	require.NotEmpty(t, s.Classify(context.Background()))
	s.Wait()

	got := view.snapshot()
	assert.Equal(t, "poodle", got.label)
	assert.Equal(t, "81.00%", got.conf)
	assert.Empty(t, got.notices)
}

func TestClassify_Unknown(t *testing.T) {
	tests := []struct {
		name    string
		unknown string
		notices []string
	}{
		{name: "with notice", unknown: "Unknown breed.", notices: []string{"Unknown breed."}},
		{name: "without notice", unknown: "", notices: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, view, _ := newScreen(t, variant(thr(0.7), tt.unknown), modeltest.New(0.69, 0.31))

			s.OnResult(acquire.RequestCamera, Acquisition{Image: photo()})
			s.Classify(context.Background())
			s.Wait()

			got := view.snapshot()
			assert.Equal(t, "-", got.label)
			assert.Equal(t, "-", got.conf)
			assert.Equal(t, tt.notices, got.notices)
		})
	}
}

func TestClassify_NoThresholdAlwaysKnown(t *testing.T) {
	s, view, _ := newScreen(t, variant(nil, ""), modeltest.New(0.11, 0.1))

	s.OnResult(acquire.RequestCamera, Acquisition{Image: photo()})
	s.Classify(context.Background())
	s.Wait()

	got := view.snapshot()
	assert.Equal(t, "beagle", got.label)
	assert.Equal(t, "11.00%", got.conf)
}

func TestClassify_NoImage(t *testing.T) {
	engine := modeltest.New(0.2, 0.81)
	s, view, hook := newScreen(t, variant(thr(0.5), "Unknown breed."), engine)

	assert.Empty(t, s.Classify(context.Background()))
	s.Wait()

	got := view.snapshot()
	assert.Equal(t, 0, got.results)
	assert.Empty(t, got.label)
	assert.False(t, got.enabled)
	assert.Equal(t, 0, engine.Calls())

	entry := hook.LastEntry()
	require.NotNil(t, entry)
	assert.Equal(t, logrus.ErrorLevel, entry.Level)
	assert.ErrorIs(t, entry.Data[logrus.ErrorKey].(error), ErrNoImage)
}

func TestClassify_EngineFailureLeavesDisplay(t *testing.T) {
	engine := modeltest.New()
	engine.Err = errors.New("interpreter crashed")
	s, view, _ := newScreen(t, variant(thr(0.5), "Unknown breed."), engine)

	s.OnResult(acquire.RequestCamera, Acquisition{Image: photo()})
	s.Classify(context.Background())
	s.Wait()

	assert.Equal(t, 0, view.snapshot().results)
}

func TestInit_Failure(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	view := &recordingView{}
	s := New(variant(thr(0.5), ""), view, Inline, logrus.NewEntry(logger))

	err := s.Init(func() (*classify.Classifier, error) {
		return nil, errors.New("model.onnx: no such file")
	})
	require.Error(t, err)
	assert.False(t, s.Ready())
	assert.Equal(t, []string{"Initialization error!"}, view.snapshot().notices)

	s.OnResult(acquire.RequestCamera, Acquisition{Image: photo()})
	assert.Empty(t, s.Classify(context.Background()))
	s.Wait()

	assert.Equal(t, 0, view.snapshot().results)
	assert.Len(t, view.snapshot().notices, 1)
	assert.ErrorIs(t, hook.LastEntry().Data[logrus.ErrorKey].(error), ErrNotInitialized)
}

func TestOnResult(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dog.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	require.NoError(t, png.Encode(f, photo()))
	require.NoError(t, f.Close())

	tests := []struct {
		name   string
		code   acquire.RequestCode
		res    Acquisition
		loaded bool
	}{
		{name: "gallery uri", code: acquire.RequestGallery, res: Acquisition{URI: "file://" + path}, loaded: true},
		{name: "camera bitmap", code: acquire.RequestCamera, res: Acquisition{Image: photo()}, loaded: true},
		{name: "cancelled", code: acquire.RequestCamera, res: Acquisition{Err: acquire.ErrCancelled}},
		{name: "failed", code: acquire.RequestGallery, res: Acquisition{Err: errors.New("picker crashed")}},
		{name: "unreadable uri", code: acquire.RequestGallery, res: Acquisition{URI: filepath.Join(dir, "missing.png")}},
		{name: "empty result", code: acquire.RequestCamera, res: Acquisition{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, view, _ := newScreen(t, variant(thr(0.5), ""), modeltest.New(0.2, 0.81))

			s.OnResult(tt.code, tt.res)

			got := view.snapshot()
			assert.Equal(t, tt.loaded, s.HasImage())
			assert.Equal(t, tt.loaded, got.enabled)
			if tt.loaded {
				assert.Equal(t, 1, got.images)
			} else {
				assert.Equal(t, 0, got.images)
			}
		})
	}
}

func TestCaptureFromCamera(t *testing.T) {
	s, view, _ := newScreen(t, variant(thr(0.5), ""), modeltest.New(0.2, 0.81))

	s.CaptureFromCamera(context.Background(), acquire.CameraFunc(func(context.Context) (image.Image, error) {
		return nil, acquire.ErrCancelled
	}))
	s.Wait()
	assert.False(t, s.HasImage())
	assert.Equal(t, 0, view.snapshot().images)

	s.CaptureFromCamera(context.Background(), acquire.CameraFunc(func(context.Context) (image.Image, error) {
		return photo(), nil
	}))
	s.Wait()
	assert.True(t, s.HasImage())
	assert.True(t, view.snapshot().enabled)
}

func TestClassify_MaxInFlight(t *testing.T) {
	engine := modeltest.New(0.2, 0.81)
	engine.Block = make(chan struct{})

	v := variant(thr(0.5), "")
	v.MaxInFlight = 1
	s, view, _ := newScreen(t, v, engine)
	s.OnResult(acquire.RequestCamera, Acquisition{Image: photo()})

	for i := 0; i < 3; i++ {
		s.Classify(context.Background())
	}
	require.Eventually(t, func() bool { return engine.Active() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, 1, engine.Active())

	close(engine.Block)
	s.Wait()

	assert.Equal(t, 1, engine.MaxActive())
	assert.Equal(t, 3, engine.Calls())
	assert.Equal(t, 3, view.snapshot().results)
}

func TestClassify_Unbounded(t *testing.T) {
	engine := modeltest.New(0.2, 0.81)
	engine.Block = make(chan struct{})
	s, _, _ := newScreen(t, variant(thr(0.5), ""), engine)
	s.OnResult(acquire.RequestCamera, Acquisition{Image: photo()})

	for i := 0; i < 3; i++ {
		s.Classify(context.Background())
	}
	require.Eventually(t, func() bool { return engine.Active() == 3 }, time.Second, 5*time.Millisecond)

	close(engine.Block)
	s.Wait()
	assert.Equal(t, 3, engine.Calls())
}

func TestClassify_CancelledWhileQueued(t *testing.T) {
	engine := modeltest.New(0.2, 0.81)
	engine.Block = make(chan struct{})

	v := variant(thr(0.5), "")
	v.MaxInFlight = 1
	s, view, _ := newScreen(t, v, engine)
	s.OnResult(acquire.RequestCamera, Acquisition{Image: photo()})

	s.Classify(context.Background())
	require.Eventually(t, func() bool { return engine.Active() == 1 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	s.Classify(ctx)
	cancel()

	close(engine.Block)
	s.Wait()

	assert.Equal(t, 1, engine.Calls())
	assert.Equal(t, 1, view.snapshot().results)
}

func TestClose(t *testing.T) {
	engine := modeltest.New(0.2, 0.81)
	s, _, _ := newScreen(t, variant(thr(0.5), ""), engine)

	s.Close()
	assert.True(t, engine.Closed())
	assert.False(t, s.Ready())
}
