package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type resourceResponse struct {
	ID             string    `json:"id"`
	Name           string    `json:"name"`
	Mode           string    `json:"mode"`
	FullyAvailable bool      `json:"fullyAvailable"`
	LastModified   time.Time `json:"lastModified"`
}

// ListResources handles GET /api/resources.
func (h *Handler) ListResources(c *gin.Context) {
	resources, err := h.store.ListResources(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list resources")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve resources"})
		return
	}

	resp := make([]resourceResponse, len(resources))
	for i, r := range resources {
		resp[i] = resourceResponse{
			ID:             r.ID,
			Name:           r.Name,
			Mode:           r.Mode,
			FullyAvailable: r.FullyAvailable,
			LastModified:   r.LastModified,
		}
	}
	c.JSON(http.StatusOK, resp)
}
