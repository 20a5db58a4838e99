package api

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"resource-availability-backend/internal/feed"
	"resource-availability-backend/internal/resource"
	"resource-availability-backend/internal/source"
)

type eventRequest struct {
	UpdatedResources []source.ApiResource `json:"updatedResources"`
	DeletedResources []string             `json:"deletedResources"`
}

// PostEvent accepts a change notification pushed by the upstream and
// publishes it to the open sessions.
func (h *Handler) PostEvent(c *gin.Context) {
	if h.opts.WebhookToken != "" {
		token := c.GetHeader("X-Feed-Token")
		if subtle.ConstantTimeCompare([]byte(token), []byte(h.opts.WebhookToken)) != 1 {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid feed token"})
			return
		}
	}

	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	var ev feed.Event
	for _, item := range req.UpdatedResources {
		r, err := source.ToResource(item, h.opts.Location)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "resource " + item.ID + ": " + err.Error()})
			return
		}
		ev.Updated = append(ev.Updated, r)
	}
	for _, raw := range req.DeletedResources {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid deleted resource ID " + raw})
			return
		}
		ev.Deleted = append(ev.Deleted, id)
	}

	h.mirror(c, ev.Updated, ev.Deleted)
	h.deps.Metrics.FeedEvents.WithLabelValues("updated").Add(float64(len(ev.Updated)))
	h.deps.Metrics.FeedEvents.WithLabelValues("deleted").Add(float64(len(ev.Deleted)))
	h.hub.Publish(ev)

	c.JSON(http.StatusAccepted, gin.H{
		"updated": len(ev.Updated),
		"deleted": len(ev.Deleted),
	})
}

// mirror keeps the catalog in step with a pushed event. Failures are logged
// only: sessions do not depend on the catalog.
func (h *Handler) mirror(c *gin.Context, updated []resource.Resource, deleted []uuid.UUID) {
	if h.store == nil {
		return
	}
	ctx := c.Request.Context()
	if err := h.store.UpsertResources(ctx, updated); err != nil {
		h.logger.WithError(err).Error("Error mirroring updated resources")
	}
	if err := h.store.DeleteResources(ctx, deleted); err != nil {
		h.logger.WithError(err).Error("Error mirroring deleted resources")
	}
	if h.cache != nil {
		h.cache.Flush()
	}
}
