package handlers

import (
	"context"
	"embed"
	"errors"
	"io/fs"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/photoauth/internal/capture"
	"github.com/example/photoauth/internal/checkin"
	"github.com/example/photoauth/internal/usecase"
)

// MaxUploadSize bounds photo uploads to the capture endpoint.
const MaxUploadSize = capture.MaxImageSize

// multipart framing allowance on top of the photo itself
const formOverhead = 1 << 20

var allowedImageTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/png":  {},
	"image/gif":  {},
}

//go:embed static
var staticFiles embed.FS

// History exposes recorded attempts.
type History interface {
	GetAttempt(ctx context.Context, objectKey string) (*usecase.Attempt, error)
	GetOutcomeSummary(ctx context.Context) (*usecase.OutcomeSummary, error)
}

type cameraRequest struct {
	Active *bool `json:"active" binding:"required"`
}

// RegisterRoutes wires the kiosk endpoints to the Gin router. Middleware, when
// given, guards the /api group.
func RegisterRoutes(router *gin.Engine, kiosk *checkin.Kiosk, history History, logger *zap.Logger, middleware ...gin.HandlerFunc) {
	static, err := fs.Sub(staticFiles, "static")
	if err != nil {
		panic(err)
	}
	index, err := fs.ReadFile(static, "index.html")
	if err != nil {
		panic(err)
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/", func(c *gin.Context) {
		c.Data(http.StatusOK, "text/html; charset=utf-8", index)
	})
	router.StaticFS("/static", http.FS(static))

	api := router.Group("/api", middleware...)

	api.GET("/state", func(c *gin.Context) {
		c.JSON(http.StatusOK, kiosk.State())
	})

	api.POST("/capture", func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxUploadSize+formOverhead)

		file, err := c.FormFile("image")
		if err != nil {
			var maxErr *http.MaxBytesError
			if errors.As(err, &maxErr) {
				c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
				return
			}
			c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
			return
		}
		if file.Size > MaxUploadSize {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
			return
		}

		contentType := strings.ToLower(strings.TrimSpace(strings.Split(file.Header.Get("Content-Type"), ";")[0]))
		if _, ok := allowedImageTypes[contentType]; !ok {
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "unsupported image type"})
			return
		}

		src, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unable to open image"})
			return
		}
		defer src.Close()

		state, err := kiosk.SelectFile(src)
		switch {
		case errors.Is(err, capture.ErrTooLarge):
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image exceeds upload limit"})
		case errors.Is(err, capture.ErrNotAnImage):
			c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": "file is not a readable image"})
		case err != nil:
			logger.Error("capture failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read image"})
		default:
			c.JSON(http.StatusOK, state)
		}
	})

	api.POST("/camera", func(c *gin.Context) {
		var req cameraRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "active is required"})
			return
		}
		c.JSON(http.StatusOK, kiosk.SetCamera(c.Request.Context(), *req.Active))
	})

	api.POST("/camera/toggle", func(c *gin.Context) {
		c.JSON(http.StatusOK, kiosk.ToggleCamera(c.Request.Context()))
	})

	api.POST("/camera/snapshot", func(c *gin.Context) {
		state, err := kiosk.Snapshot(c.Request.Context())
		if err != nil {
			logger.Warn("snapshot failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to capture frame", "state": state})
			return
		}
		c.JSON(http.StatusOK, state)
	})

	api.POST("/authenticate", func(c *gin.Context) {
		state, err := kiosk.Authenticate(c.Request.Context())
		switch {
		case errors.Is(err, checkin.ErrBusy):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "state": state})
		case errors.Is(err, checkin.ErrNoPhoto):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "state": state})
		case err != nil:
			c.JSON(http.StatusBadGateway, gin.H{"error": state.Message, "state": state})
		default:
			c.JSON(http.StatusOK, state)
		}
	})

	api.GET("/preview/:id", func(c *gin.Context) {
		data, ok := kiosk.Preview(c.Param("id"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "preview not found"})
			return
		}
		c.Header("Cache-Control", "no-store")
		c.Data(http.StatusOK, "image/jpeg", data)
	})

	api.GET("/attempts/summary", func(c *gin.Context) {
		if history == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": usecase.ErrHistoryDisabled.Error()})
			return
		}
		summary, err := history.GetOutcomeSummary(c.Request.Context())
		if errors.Is(err, usecase.ErrHistoryDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		if err != nil {
			logger.Error("summary failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load summary"})
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	api.GET("/attempts/:key", func(c *gin.Context) {
		if history == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
			return
		}
		attempt, err := history.GetAttempt(c.Request.Context(), c.Param("key"))
		if errors.Is(err, usecase.ErrAttemptNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "attempt not found"})
			return
		}
		if err != nil {
			logger.Error("attempt lookup failed", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load attempt"})
			return
		}
		c.JSON(http.StatusOK, attempt)
	})
}
