package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"resource-availability-backend/internal/datasource"
	"resource-availability-backend/internal/resource"
)

type createSessionRequest struct {
	Pool string `json:"pool"`
}

// CreateSession opens a data source session for the requested pool.
func (h *Handler) CreateSession(c *gin.Context) {
	var req createSessionRequest
	// An empty body selects every resource.
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ds := datasource.New(h.deps, resource.Context{Now: h.now()})
	if err := ds.ProcessArguments(c.Request.Context(), datasource.Arguments{Pool: req.Pool}); err != nil {
		ds.Destroy()
		if errors.Is(err, datasource.ErrInvalidPool) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logger.WithError(err).Error("Failed to create session")
		c.JSON(http.StatusBadGateway, gin.H{"error": "failed to resolve resource pool"})
		return
	}

	h.sessions.Add(ds)
	c.JSON(http.StatusCreated, gin.H{
		"id":      ds.ID(),
		"columns": ds.Columns(),
	})
}

// session resolves the :id path parameter, writing an error response when it fails.
func (h *Handler) session(c *gin.Context) (*datasource.DataSource, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return nil, false
	}
	ds, ok := h.sessions.Get(id)
	if !ok {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, false
	}
	return ds, true
}

// GetPage returns the next page of rows of a session.
func (h *Handler) GetPage(c *gin.Context) {
	ds, ok := h.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, ds.NextPage(c.Request.Context()))
}

// DeleteSession destroys a session.
func (h *Handler) DeleteSession(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session ID"})
		return
	}
	if !h.sessions.Remove(id) {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return
	}
	c.Status(http.StatusNoContent)
}
