// Package handlers exposes the classifier over HTTP.
package handlers

import (
	"context"
	"fmt"
	"image"
	"io"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/Brownie44l1/breed-classifier/internal/acquire"
	"github.com/Brownie44l1/breed-classifier/internal/classify"
	"github.com/Brownie44l1/breed-classifier/internal/config"
)

// Classifier is what the handlers need from classify.Classifier.
type Classifier interface {
	Classify(ctx context.Context, img image.Image) (classify.Result, error)
	ClassifyTensor(ctx context.Context, input []float32) (classify.Result, error)
	InputLen() int
}

// PredictionRequest carries an already normalized input tensor.
type PredictionRequest struct {
	Image []float32 `json:"image"`
}

// PredictionResponse is returned by both predict endpoints.
type PredictionResponse struct {
	RequestID      string  `json:"request_id"`
	Label          string  `json:"label"`
	Confidence     float32 `json:"confidence"`
	ConfidenceText string  `json:"confidence_text"`
	Known          bool    `json:"known"`
}

type Handler struct {
	classifier Classifier
	variant    config.Variant
	maxUpload  int64
	log        *logrus.Entry
}

func NewHandler(classifier Classifier, variant config.Variant, maxUpload int64, log *logrus.Entry) *Handler {
	return &Handler{
		classifier: classifier,
		variant:    variant,
		maxUpload:  maxUpload,
		log:        log,
	}
}

// Register mounts the routes on r.
func (h *Handler) Register(r gin.IRouter) {
	r.Use(CORS())
	r.GET("/health", h.Health)
	r.POST("/predict", h.Predict)
	r.POST("/predict/image", h.PredictFromImage)
}

// CORS allows browser clients from any origin.
func CORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

func (h *Handler) Health(c *gin.Context) {
	c.Header("Cache-Control", "no-store")
	c.JSON(http.StatusOK, gin.H{"status": "healthy", "variant": h.variant.Name})
}

// Predict classifies a raw tensor.
func (h *Handler) Predict(c *gin.Context) {
	var req PredictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
		return
	}

	if expected := h.classifier.InputLen(); len(req.Image) != expected {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("Expected %d values, got %d", expected, len(req.Image))})
		return
	}

	id := uuid.NewString()
	result, err := h.classifier.ClassifyTensor(c.Request.Context(), req.Image)
	if err != nil {
		h.log.WithField("request_id", id).WithError(err).Error("prediction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed"})
		return
	}
	c.JSON(http.StatusOK, h.response(id, result))
}

// PredictFromImage classifies an uploaded image in the "image" form field.
func (h *Handler) PredictFromImage(c *gin.Context) {
	if c.Request.ContentLength > h.maxUpload {
		h.tooLarge(c)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)

	file, header, err := c.Request.FormFile("image")
	if err != nil {
		if errors.As(err, new(*http.MaxBytesError)) {
			h.tooLarge(c)
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No image file provided. Use 'image' as the form field name"})
		return
	}
	defer file.Close()

	id := uuid.NewString()
	log := h.log.WithFields(logrus.Fields{"request_id": id, "filename": header.Filename, "size": header.Size})

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read upload"})
		return
	}
	if mime := mimetype.Detect(data); !strings.HasPrefix(mime.String(), "image/") {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": fmt.Sprintf("Unsupported content type %s", mime.String())})
		return
	}

	img, err := acquire.Decode(data)
	if err != nil {
		log.WithError(err).Warn("decode failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid image format"})
		return
	}
	log.WithFields(logrus.Fields{"width": img.Bounds().Dx(), "height": img.Bounds().Dy()}).Debug("image received")

	result, err := h.classifier.Classify(c.Request.Context(), img)
	if err != nil {
		log.WithError(err).Error("prediction failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed"})
		return
	}
	c.JSON(http.StatusOK, h.response(id, result))
}

func (h *Handler) tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("Upload exceeds %d bytes", h.maxUpload)})
}

func (h *Handler) response(id string, r classify.Result) PredictionResponse {
	resp := PredictionResponse{
		RequestID:      id,
		Label:          r.Label,
		Confidence:     r.Score,
		ConfidenceText: r.ConfidenceText(),
		Known:          r.Known,
	}
	if !r.Known {
		resp.Label = h.variant.Copy.UnknownLabel
		resp.ConfidenceText = h.variant.Copy.UnknownLabel
	}
	return resp
}
