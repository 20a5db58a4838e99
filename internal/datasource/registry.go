package datasource

import (
	"time"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"resource-availability-backend/internal/metrics"
)

// Registry keeps the open sessions. A session that is not touched for the
// idle timeout is evicted and destroyed.
type Registry struct {
	sessions *cache.Cache
	metrics  *metrics.Metrics
	logger   logrus.FieldLogger
}

// NewRegistry creates a registry that expires sessions after idle.
func NewRegistry(idle time.Duration, m *metrics.Metrics, logger logrus.FieldLogger) *Registry {
	r := &Registry{
		sessions: cache.New(idle, idle/2),
		metrics:  m,
		logger:   logger,
	}
	r.sessions.OnEvicted(func(key string, value interface{}) {
		ds, ok := value.(*DataSource)
		if !ok {
			return
		}
		ds.Destroy()
		r.metrics.ActiveSessions.Dec()
		r.logger.WithField("session", key).Info("Session closed")
	})
	return r
}

// Add stores ds under its id.
func (r *Registry) Add(ds *DataSource) {
	r.sessions.SetDefault(ds.ID().String(), ds)
	r.metrics.ActiveSessions.Inc()
}

// Get returns the session with the given id and resets its idle timer.
func (r *Registry) Get(id uuid.UUID) (*DataSource, bool) {
	value, ok := r.sessions.Get(id.String())
	if !ok {
		return nil, false
	}
	ds := value.(*DataSource)
	r.sessions.SetDefault(id.String(), ds)
	return ds, true
}

// Remove destroys and forgets the session. It reports whether the session existed.
func (r *Registry) Remove(id uuid.UUID) bool {
	if _, ok := r.sessions.Get(id.String()); !ok {
		return false
	}
	r.sessions.Delete(id.String())
	return true
}

// Len returns the number of open sessions.
func (r *Registry) Len() int {
	return r.sessions.ItemCount()
}

// Close destroys every open session.
func (r *Registry) Close() {
	for key := range r.sessions.Items() {
		r.sessions.Delete(key)
	}
}
