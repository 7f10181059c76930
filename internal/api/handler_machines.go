package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rlis-backend/internal/inventory"
)

// GetMachine handles GET /api/machines/:id.
func (h *Handler) GetMachine(c *gin.Context) {
	m, err := h.registry.Get(c.Param("id"))
	if err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, m)
}

// PatchMachineData handles PATCH /api/machines/:id/data. The body is a flat
// object of data keys; an empty string clears a value.
func (h *Handler) PatchMachineData(c *gin.Context) {
	var fields map[string]string
	if err := c.ShouldBindJSON(&fields); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "body must be an object of string values"})
		return
	}
	m, err := h.registry.UpdateFields(c.Param("id"), fields)
	if err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	// Tube sync may have added or removed siblings.
	siblings, err := h.registry.SiblingsOf(m.ID)
	if err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, gin.H{"machine": m, "siblings": siblings})
}

type changeTypeRequest struct {
	Category string `json:"category" binding:"required"`
	Label    string `json:"label"`
}

// PutMachineType handles PUT /api/machines/:id/type.
func (h *Handler) PutMachineType(c *gin.Context) {
	var req changeTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	machines, err := h.registry.ChangeType(c.Param("id"), inventory.Category(req.Category), req.Label)
	if err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, machines)
}

type noDataRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// PutNoData handles PUT /api/machines/:id/no-data.
func (h *Handler) PutNoData(c *gin.Context) {
	var req noDataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	h.respondMachine(c)(h.registry.SetNoData(c.Param("id"), req.Reason))
}

// DeleteNoData handles DELETE /api/machines/:id/no-data.
func (h *Handler) DeleteNoData(c *gin.Context) {
	h.respondMachine(c)(h.registry.ClearNoData(c.Param("id")))
}

// PostComplete handles POST /api/machines/:id/complete.
func (h *Handler) PostComplete(c *gin.Context) {
	h.respondMachine(c)(h.registry.Complete(c.Param("id")))
}

// DeleteComplete handles DELETE /api/machines/:id/complete.
func (h *Handler) DeleteComplete(c *gin.Context) {
	h.respondMachine(c)(h.registry.Reopen(c.Param("id")))
}

// DeleteMachine handles DELETE /api/machines/:id.
func (h *Handler) DeleteMachine(c *gin.Context) {
	if err := h.registry.Remove(c.Param("id")); err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) respondMachine(c *gin.Context) func(inventory.Machine, error) {
	return func(m inventory.Machine, err error) {
		if err != nil {
			abort(c, err, http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, m)
	}
}
