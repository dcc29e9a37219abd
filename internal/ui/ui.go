// Package ui is the fyne front end of the classification screen.
package ui

import (
	"context"
	"image"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/widget"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/breed-classifier/internal/acquire"
	"github.com/Brownie44l1/breed-classifier/internal/config"
	"github.com/Brownie44l1/breed-classifier/internal/screen"
)

var imageExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".tif", ".tiff"}

// Dispatcher runs work on the fyne UI goroutine.
var Dispatcher screen.Dispatcher = screen.DispatcherFunc(fyne.Do)

// Window is the classification window. It implements screen.View.
type Window struct {
	app    fyne.App
	win    fyne.Window
	copy   config.Copy
	log    *logrus.Entry
	camera acquire.Camera

	picture    *canvas.Image
	label      *widget.Label
	confidence *widget.Label
	classify   *widget.Button
	capture    *widget.Button

	screen *screen.Screen
}

// New builds the window. camera may be nil, which disables the camera button.
func New(a fyne.App, v config.Variant, camera acquire.Camera, log *logrus.Entry) *Window {
	w := &Window{
		app:    a,
		win:    a.NewWindow(v.Copy.Title),
		copy:   v.Copy,
		log:    log,
		camera: camera,
	}
	w.screen = screen.New(v, w, Dispatcher, log)
	w.build()
	return w
}

// Screen returns the controller behind the window.
func (w *Window) Screen() *screen.Screen { return w.screen }

func (w *Window) build() {
	w.picture = canvas.NewImageFromImage(nil)
	w.picture.FillMode = canvas.ImageFillContain
	w.picture.SetMinSize(fyne.NewSize(320, 320))

	w.label = widget.NewLabel(w.copy.UnknownLabel)
	w.label.TextStyle = fyne.TextStyle{Bold: true}
	w.label.Alignment = fyne.TextAlignCenter
	w.confidence = widget.NewLabel(w.copy.UnknownLabel)
	w.confidence.Alignment = fyne.TextAlignCenter

	gallery := widget.NewButton(w.copy.Gallery, w.openGallery)
	w.capture = widget.NewButton(w.copy.Camera, w.openCamera)
	if w.camera == nil {
		w.capture.Disable()
	}
	w.classify = widget.NewButton(w.copy.Classify, func() {
		w.screen.Classify(context.Background())
	})
	w.classify.Disable()

	buttons := container.NewGridWithColumns(3, gallery, w.capture, w.classify)
	results := container.NewVBox(w.label, w.confidence, buttons)
	w.win.SetContent(container.NewBorder(nil, results, nil, nil, w.picture))
	w.win.Resize(fyne.NewSize(420, 560))
}

func (w *Window) openGallery() {
	d := dialog.NewFileOpen(func(r fyne.URIReadCloser, err error) {
		if err != nil {
			w.screen.OnResult(acquire.RequestGallery, screen.Acquisition{Err: err})
			return
		}
		if r == nil {
			w.screen.OnResult(acquire.RequestGallery, screen.Acquisition{Err: acquire.ErrCancelled})
			return
		}
		defer r.Close()
		img, err := acquire.DecodeReader(r)
		w.screen.OnResult(acquire.RequestGallery, screen.Acquisition{Image: img, Err: err})
	}, w.win)
	d.SetFilter(storage.NewExtensionFileFilter(imageExtensions))
	d.Show()
}

func (w *Window) openCamera() {
	if w.camera == nil {
		return
	}
	w.screen.CaptureFromCamera(context.Background(), w.camera)
}

// ShowImage implements screen.View.
func (w *Window) ShowImage(img image.Image) {
	w.picture.Image = img
	w.picture.Refresh()
}

// ShowResult implements screen.View.
func (w *Window) ShowResult(label, confidence string) {
	w.label.SetText(label)
	w.confidence.SetText(confidence)
}

// SetClassifyEnabled implements screen.View.
func (w *Window) SetClassifyEnabled(enabled bool) {
	if enabled {
		w.classify.Enable()
	} else {
		w.classify.Disable()
	}
}

// Notify implements screen.View with a system notification.
func (w *Window) Notify(msg string) {
	w.app.SendNotification(fyne.NewNotification(w.copy.Title, msg))
}

// ShowAndRun displays the window and blocks until it is closed.
func (w *Window) ShowAndRun() {
	w.win.SetOnClosed(w.screen.Close)
	w.win.ShowAndRun()
}
