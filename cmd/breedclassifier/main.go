// Command breedclassifier is the desktop classification app.
package main

import (
	"flag"

	"fyne.io/fyne/v2/app"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/breed-classifier/internal/acquire"
	"github.com/Brownie44l1/breed-classifier/internal/classify"
	"github.com/Brownie44l1/breed-classifier/internal/config"
	"github.com/Brownie44l1/breed-classifier/internal/logging"
	"github.com/Brownie44l1/breed-classifier/internal/model"
	"github.com/Brownie44l1/breed-classifier/internal/ui"
)

const appID = "com.github.brownie44l1.breedclassifier"

func main() {
	configPath := flag.String("config", "", "configuration file (YAML)")
	flag.Parse()

	logger := logrus.StandardLogger()
	cfg, err := config.Load(*configPath, nil)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := logging.Setup(logger, cfg.Log); err != nil {
		logger.Fatalf("Failed to set up logging: %v", err)
	}
	defer model.Shutdown()

	var camera acquire.Camera
	if len(cfg.Camera.Command) > 0 {
		camera = acquire.CommandCamera{Command: cfg.Camera.Command, Timeout: cfg.Camera.Timeout}
	}

	w := ui.New(app.NewWithID(appID), cfg.Variant, camera, logging.Component(logger, "ui"))
	// A failed load is reported in the window; the app stays open.
	_ = w.Screen().Init(func() (*classify.Classifier, error) { return classify.Load(cfg) })
	w.ShowAndRun()
}
