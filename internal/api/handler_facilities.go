package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"rlis-backend/internal/inventory"
)

// GetFacilities handles GET /api/facilities.
func (h *Handler) GetFacilities(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Facilities())
}

// GetFacilityMachines handles GET /api/facilities/:entity_id/machines.
func (h *Handler) GetFacilityMachines(c *gin.Context) {
	machines := h.registry.ListByFacility(c.Param("entity_id"))
	if len(machines) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "facility not found"})
		return
	}
	c.JSON(http.StatusOK, machines)
}

type extraMachineRequest struct {
	Type           string `json:"type"`
	InspectionType string `json:"inspectionType"`
	Location       string `json:"location" binding:"required"`
	Make           string `json:"make"`
	Model          string `json:"model"`
	Serial         string `json:"serial"`
}

// PostFacilityMachine handles POST /api/facilities/:entity_id/machines, adding
// an ad-hoc machine found on site.
func (h *Handler) PostFacilityMachine(c *gin.Context) {
	var req extraMachineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	details := req.Make
	for _, part := range []string{req.Model, req.Serial} {
		if part != "" {
			if details != "" {
				details += " / "
			}
			details += part
		}
	}

	m, err := h.registry.AddExtra(c.Param("entity_id"), inventory.Machine{
		FullDetails:    details,
		Make:           req.Make,
		Model:          req.Model,
		Serial:         req.Serial,
		Type:           req.Type,
		InspectionType: inventory.Category(req.InspectionType),
		Location:       req.Location,
		Data:           inventory.Data{},
	})
	if err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusCreated, m)
}

// DeleteFacility handles DELETE /api/facilities/:entity_id. The facility is
// archived before its machines are removed.
func (h *Handler) DeleteFacility(c *gin.Context) {
	archive, err := h.registry.RemoveFacility(c.Param("entity_id"))
	if err != nil {
		abort(c, err, http.StatusInternalServerError)
		return
	}
	c.JSON(http.StatusOK, archive)
}

// GetArchives handles GET /api/archives.
func (h *Handler) GetArchives(c *gin.Context) {
	c.JSON(http.StatusOK, h.registry.Archives())
}

type categoryResponse struct {
	Value inventory.Category `json:"value"`
	Label string             `json:"label"`
}

// GetCategories handles GET /api/categories, the choices for a type change.
func (h *Handler) GetCategories(c *gin.Context) {
	cats := append(inventory.Categories(), inventory.CategoryCombinationRF)
	out := make([]categoryResponse, len(cats))
	for i, cat := range cats {
		out[i] = categoryResponse{Value: cat, Label: cat.Label()}
	}
	c.JSON(http.StatusOK, gin.H{"categories": out, "no_data_reasons": inventory.NoDataReasons()})
}
