package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"rlis-backend/internal/extract"
	"rlis-backend/internal/logger"
	"rlis-backend/internal/report"
)

const docxMediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// GetReport handles GET /api/machines/:id/report and returns the flattened
// payload a document would be filled with.
func (h *Handler) GetReport(c *gin.Context) {
	m, err := h.registry.Get(c.Param("id"))
	if err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	p := h.builder.Build(m)
	c.JSON(http.StatusOK, gin.H{
		"filename": report.Filename(p, m.InspectionType),
		"payload":  p,
	})
}

// GetReportDocument handles GET /api/machines/:id/report/document.
func (h *Handler) GetReportDocument(c *gin.Context) {
	if h.renderer == nil {
		abort(c, errUnavailable, http.StatusServiceUnavailable)
		return
	}
	m, err := h.registry.Get(c.Param("id"))
	if err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	p := h.builder.Build(m)
	doc, err := h.renderer.Render(m.InspectionType, p)
	if err != nil {
		abort(c, err, http.StatusBadGateway)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", report.Filename(p, m.InspectionType)))
	c.Data(http.StatusOK, docxMediaType, doc)
}

// PostExtract handles POST /api/machines/:id/extract. The form carries a
// "task" name and one or more "images" files. The extracted values are
// returned for review and not written to the machine.
func (h *Handler) PostExtract(c *gin.Context) {
	if h.extractor == nil {
		abort(c, extract.ErrNotConfigured, http.StatusServiceUnavailable)
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	m, err := h.registry.Get(c.Param("id"))
	if err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	task, err := extract.TaskFor(m.InspectionType, c.PostForm("task"))
	if err != nil {
		abort(c, err, http.StatusBadRequest)
		return
	}

	form, err := c.MultipartForm()
	if err != nil {
		abort(c, extract.ErrNoImages, http.StatusBadRequest)
		return
	}
	var images []extract.Image
	for _, fh := range form.File["images"] {
		f, err := fh.Open()
		if err != nil {
			abort(c, fmt.Errorf("open %s: %w", fh.Filename, err), http.StatusBadRequest)
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			abort(c, fmt.Errorf("read %s: %w", fh.Filename, err), http.StatusBadRequest)
			return
		}
		mediaType := fh.Header.Get("Content-Type")
		if mediaType == "" || mediaType == "application/octet-stream" {
			mediaType = http.DetectContentType(data)
		}
		images = append(images, extract.Image{MediaType: mediaType, Data: data})
	}

	fields, err := h.extractor.Extract(c.Request.Context(), m.ID, task, images)
	if err != nil {
		abort(c, err, http.StatusBadGateway)
		return
	}
	logger.Infof(c.Request.Context(), "extracted %d %s fields for machine %s", len(fields), task.Name, m.ID)
	c.JSON(http.StatusOK, gin.H{"task": task.Name, "fields": fields})
}
