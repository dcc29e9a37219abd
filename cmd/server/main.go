package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/Brownie44l1/breed-classifier/internal/classify"
	"github.com/Brownie44l1/breed-classifier/internal/config"
	"github.com/Brownie44l1/breed-classifier/internal/handlers"
	"github.com/Brownie44l1/breed-classifier/internal/logging"
	"github.com/Brownie44l1/breed-classifier/internal/model"
)

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
	log := logging.Component(logger, "server")

	log.Infof("Loading model from: %s", cfg.Variant.Model)
	classifier, err := classify.Load(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize classifier: %v", err)
	}
	defer model.Shutdown()
	defer classifier.Close()

	if cfg.Log.Level != "debug" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	handlers.NewHandler(classifier, cfg.Variant, cfg.Server.MaxUploadBytes, log).Register(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithFields(logrus.Fields{
			"port":    cfg.Server.Port,
			"variant": cfg.Variant.Name,
			"classes": classifier.Labels().Len(),
		}).Info("Server starting")
		log.Infof("Classes: %v", classifier.Labels().Names())
		log.Info("  GET  /health        - Health check")
		log.Info("  POST /predict       - Raw tensor prediction")
		log.Info("  POST /predict/image - Predict from image upload")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		log.Info("Server shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Errorf("Server failed: %v", err)
		os.Exit(1)
	}
}
