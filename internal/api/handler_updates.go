package api

import (
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"resource-availability-backend/internal/datasource"
	"resource-availability-backend/internal/rows"
)

type rowEvent struct {
	name string
	data any
}

type removedRow struct {
	Key string `json:"key"`
}

// streamUpdater buffers row operations for one SSE connection. When the
// consumer falls behind and the buffer fills up, the stream is marked
// overflowed: the client must reload, since dropping operations would leave
// it out of sync.
type streamUpdater struct {
	events chan rowEvent

	once     sync.Once
	overflow chan struct{}
}

func newStreamUpdater(size int) *streamUpdater {
	return &streamUpdater{
		events:   make(chan rowEvent, size),
		overflow: make(chan struct{}),
	}
}

func (u *streamUpdater) AddRow(row rows.Row) { u.push(rowEvent{name: "add", data: row}) }

func (u *streamUpdater) UpdateRow(row rows.Row) { u.push(rowEvent{name: "update", data: row}) }

func (u *streamUpdater) RemoveRow(key string) {
	u.push(rowEvent{name: "remove", data: removedRow{Key: key}})
}

func (u *streamUpdater) push(ev rowEvent) {
	select {
	case <-u.overflow:
	case u.events <- ev:
	default:
		u.once.Do(func() { close(u.overflow) })
	}
}

// StreamUpdates streams the live row operations of a session as server-sent
// events until the client disconnects. Operations produced while no stream was
// open are sent first. A session serves one stream at a time.
func (h *Handler) StreamUpdates(c *gin.Context) {
	ds, ok := h.session(c)
	if !ok {
		return
	}

	updater := newStreamUpdater(h.opts.UpdateBuffer)
	if err := ds.StartUpdates(updater); err != nil {
		switch {
		case errors.Is(err, datasource.ErrUpdatesActive):
			c.JSON(http.StatusConflict, gin.H{"error": "session already has an update stream"})
		case errors.Is(err, datasource.ErrSessionClosed):
			c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		default:
			h.logger.WithError(err).Error("Failed to start updates")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to start updates"})
		}
		return
	}
	defer ds.StopUpdates()

	log := h.logger.WithField("session", ds.ID())
	log.Info("Update stream opened")
	defer log.Info("Update stream closed")

	keepAlive := time.NewTicker(h.opts.KeepAlive)
	defer keepAlive.Stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"id": ds.ID()})
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-updater.events:
			c.SSEvent(ev.name, ev.data)
			return true
		case <-updater.overflow:
			log.Warn("Update stream overflowed, asking client to reload")
			c.SSEvent("reset", gin.H{"reason": "update buffer overflow"})
			return false
		case <-keepAlive.C:
			// Keeps the session from idling out while a client listens.
			h.sessions.Get(ds.ID())
			c.SSEvent("ping", "")
			return true
		}
	})
}
