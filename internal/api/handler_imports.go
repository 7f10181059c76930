package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"rlis-backend/internal/inventory"
	"rlis-backend/internal/logger"
	"rlis-backend/internal/sheet"
)

type importResponse struct {
	Imported   int      `json:"imported"`
	Facilities []string `json:"facilities"`
}

// PostImport handles POST /api/imports with a multipart "file" spreadsheet.
func (h *Handler) PostImport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUpload)
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "a spreadsheet must be uploaded as \"file\""})
		return
	}
	f, err := fh.Open()
	if err != nil {
		abort(c, fmt.Errorf("open upload: %w", err), http.StatusBadRequest)
		return
	}
	defer f.Close()

	records, err := sheet.Read(f, h.sheet)
	if err != nil {
		abort(c, err, http.StatusBadRequest)
		return
	}
	rows := make([]inventory.Row, len(records))
	for i, rec := range records {
		rows[i] = inventory.RowFromRecord(rec)
	}

	result, err := h.registry.Import(rows)
	if err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	logger.Infof(c.Request.Context(), "imported %d machines for %d facilities from %s",
		len(result.Machines), len(result.Facilities), fh.Filename)

	c.JSON(http.StatusCreated, importResponse{
		Imported:   len(result.Machines),
		Facilities: result.Facilities,
	})
}
