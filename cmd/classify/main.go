// Command classify runs the classification screen headless on one image.
package main

import (
	"context"
	"flag"
	"fmt"
	"image"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/breed-classifier/internal/acquire"
	"github.com/Brownie44l1/breed-classifier/internal/classify"
	"github.com/Brownie44l1/breed-classifier/internal/config"
	"github.com/Brownie44l1/breed-classifier/internal/logging"
	"github.com/Brownie44l1/breed-classifier/internal/model"
	"github.com/Brownie44l1/breed-classifier/internal/screen"
)

// console prints what a graphical view would display.
type console struct {
	mu     sync.Mutex
	shown  bool
	result chan struct{}
}

func (c *console) ShowImage(img image.Image) {
	b := img.Bounds()
	fmt.Printf("image: %dx%d\n", b.Dx(), b.Dy())
}

func (c *console) ShowResult(label, confidence string) {
	fmt.Printf("label: %s\nconfidence: %s\n", label, confidence)
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.shown {
		c.shown = true
		close(c.result)
	}
}

func (c *console) SetClassifyEnabled(bool) {}

func (c *console) Notify(msg string) {
	fmt.Fprintln(os.Stderr, msg)
}

func main() {
	configPath := flag.String("config", "", "configuration file (YAML)")
	variant := flag.String("variant", "", "variant name ("+strings.Join(config.Variants(), ", ")+")")
	camera := flag.Bool("camera", false, "capture with the configured camera command instead of reading a file")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] [image]\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	overrides := map[string]interface{}{}
	if *variant != "" {
		overrides["variant.name"] = *variant
	}
	if !*camera && flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	logger := logrus.StandardLogger()
	cfg, err := config.Load(*configPath, overrides)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	if err := logging.Setup(logger, cfg.Log); err != nil {
		logger.Fatalf("Failed to set up logging: %v", err)
	}

	os.Exit(run(cfg, logger, *camera, flag.Arg(0)))
}

func run(cfg *config.Config, logger *logrus.Logger, useCamera bool, ref string) int {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	loop := screen.NewLoop(16)
	go func() { _ = loop.Run(ctx) }()

	view := &console{result: make(chan struct{})}
	s := screen.New(cfg.Variant, view, loop, logging.Component(logger, "screen"))
	defer model.Shutdown()
	defer s.Close()

	if err := s.Init(func() (*classify.Classifier, error) { return classify.Load(cfg) }); err != nil {
		loop.Sync()
		return 1
	}

	if useCamera {
		s.CaptureFromCamera(ctx, acquire.CommandCamera{Command: cfg.Camera.Command, Timeout: cfg.Camera.Timeout})
		s.Wait()
	} else {
		s.PickFromGallery(ref)
	}
	if !s.HasImage() {
		loop.Sync()
		return 1
	}

	if !s.Ready() || s.Classify(ctx) == "" {
		return 1
	}
	s.Wait()
	loop.Sync()

	select {
	case <-view.result:
		return 0
	default:
		return 1
	}
}
