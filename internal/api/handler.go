package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"

	"rlis-backend/internal/extract"
	"rlis-backend/internal/inventory"
	"rlis-backend/internal/logger"
	"rlis-backend/internal/report"
	"rlis-backend/internal/sheet"
	"rlis-backend/internal/store"
)

// Extractor reads fields from machine photographs.
type Extractor interface {
	Extract(ctx context.Context, machineID string, task extract.Task, images []extract.Image) (map[string]string, error)
}

// Deps are the collaborators the handlers need. Renderer and Extractor may
// be nil, in which case their endpoints answer 503.
type Deps struct {
	Registry  *inventory.Registry
	Store     store.Store
	Builder   *report.Builder
	Renderer  *report.Renderer
	Extractor Extractor
	WebPush   *webpush.Options
	Sheet     sheet.Options
	MaxUpload int64
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	registry  *inventory.Registry
	store     store.Store
	builder   *report.Builder
	renderer  *report.Renderer
	extractor Extractor
	webpush   *webpush.Options
	sheet     sheet.Options
	maxUpload int64
}

// NewHandler creates a new API handler.
func NewHandler(d Deps) *Handler {
	builder := d.Builder
	if builder == nil {
		builder = report.NewBuilder("", "")
	}
	maxUpload := d.MaxUpload
	if maxUpload <= 0 {
		maxUpload = 32 << 20
	}
	return &Handler{
		registry:  d.Registry,
		store:     d.Store,
		builder:   builder,
		renderer:  d.Renderer,
		extractor: d.Extractor,
		webpush:   d.WebPush,
		sheet:     d.Sheet,
		maxUpload: maxUpload,
	}
}

var errUnavailable = errors.New("feature not configured")

// statusFor maps domain errors to HTTP status codes. Errors it does not
// recognise get fallback.
func statusFor(err error, fallback int) int {
	switch {
	case errors.Is(err, inventory.ErrNotFound),
		errors.Is(err, report.ErrMissingTemplate):
		return http.StatusNotFound
	case errors.Is(err, inventory.ErrDuplicateFacility),
		errors.Is(err, inventory.ErrDuplicateLocation),
		errors.Is(err, extract.ErrInFlight):
		return http.StatusConflict
	case errors.Is(err, inventory.ErrNoMachines),
		errors.Is(err, inventory.ErrConflictingRows),
		errors.Is(err, inventory.ErrInvalidCategory),
		errors.Is(err, inventory.ErrInvalidReason),
		errors.Is(err, inventory.ErrNothingRecorded),
		errors.Is(err, inventory.ErrMissingFacility),
		errors.Is(err, sheet.ErrHeaderNotFound),
		errors.Is(err, extract.ErrUnknownTask),
		errors.Is(err, extract.ErrNoImages):
		return http.StatusBadRequest
	case errors.Is(err, extract.ErrNotConfigured),
		errors.Is(err, errUnavailable):
		return http.StatusServiceUnavailable
	}
	return fallback
}

func abort(c *gin.Context, err error, fallback int) {
	status := statusFor(err, fallback)
	if status >= http.StatusInternalServerError {
		logger.Errorf(c.Request.Context(), "%s %s: %v", c.Request.Method, c.FullPath(), err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": err.Error()})
}
