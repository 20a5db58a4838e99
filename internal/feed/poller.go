package feed

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"resource-availability-backend/internal/metrics"
	"resource-availability-backend/internal/resource"
	"resource-availability-backend/internal/rows"
	"resource-availability-backend/internal/source"
)

// Fetcher lists the complete upstream catalogue.
type Fetcher interface {
	FetchAll(ctx context.Context, filter source.Filter) ([]resource.Resource, error)
}

// Catalog mirrors resource metadata for the rest of the service.
type Catalog interface {
	UpsertResources(ctx context.Context, resources []resource.Resource) error
	DeleteResources(ctx context.Context, ids []uuid.UUID) error
}

// Dispatcher is told about resources that became fully available again.
type Dispatcher interface {
	Dispatch(resourceID uuid.UUID)
}

// Poller turns periodic full listings of the upstream into change events.
type Poller struct {
	interval   time.Duration
	fetcher    Fetcher
	catalog    Catalog
	hub        *Hub
	dispatcher Dispatcher
	metrics    *metrics.Metrics
	logger     logrus.FieldLogger
	now        func() time.Time
	onChange   func()

	lastModified map[uuid.UUID]time.Time
	available    map[uuid.UUID]bool
}

// NewPoller creates a poller. catalog and dispatcher may be nil; m is required.
func NewPoller(interval time.Duration, fetcher Fetcher, catalog Catalog, hub *Hub, dispatcher Dispatcher, m *metrics.Metrics, logger logrus.FieldLogger) *Poller {
	return &Poller{
		interval:     interval,
		fetcher:      fetcher,
		catalog:      catalog,
		hub:          hub,
		dispatcher:   dispatcher,
		metrics:      m,
		logger:       logger,
		now:          time.Now,
		lastModified: make(map[uuid.UUID]time.Time),
		available:    make(map[uuid.UUID]bool),
	}
}

// OnCatalogChange registers fn to run after a cycle changed the mirrored
// catalog, typically to invalidate cached responses built from it.
func (p *Poller) OnCatalogChange(fn func()) {
	p.onChange = fn
}

// Run polls until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Starting feed poller...")

	p.PollOnce(ctx)

	timer := time.NewTimer(p.interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Feed poller shutting down.")
			return
		case <-timer.C:
			p.PollOnce(ctx)
			timer.Reset(p.interval)
		}
	}
}

// PollOnce performs a single poll cycle and returns the published event.
func (p *Poller) PollOnce(ctx context.Context) Event {
	p.logger.Debug("Executing poll cycle...")

	all, err := p.fetcher.FetchAll(ctx, source.Filter{})
	if err != nil {
		// A partial listing would read as mass deletion, so nothing is published.
		p.logger.WithError(err).Error("Poll cycle aborted due to fetch error. No changes will be published.")
		p.metrics.PollCycles.WithLabelValues("failed").Inc()
		return Event{}
	}

	factory := rows.NewFactory(resource.Context{Now: p.now()})
	seen := make(map[uuid.UUID]struct{}, len(all))
	var ev Event
	var becameAvailable []uuid.UUID

	for _, r := range all {
		seen[r.ID] = struct{}{}

		ts, known := p.lastModified[r.ID]
		if known && !ts.Before(r.LastModified) {
			continue
		}
		p.lastModified[r.ID] = r.LastModified
		ev.Updated = append(ev.Updated, r)

		availableNow := rows.FullyAvailable(factory.ResourceToRows(r))
		if known && availableNow && !p.available[r.ID] {
			becameAvailable = append(becameAvailable, r.ID)
		}
		p.available[r.ID] = availableNow
	}

	// Resources we tracked that are no longer listed upstream.
	for id := range p.lastModified {
		if _, ok := seen[id]; !ok {
			ev.Deleted = append(ev.Deleted, id)
			delete(p.lastModified, id)
			delete(p.available, id)
		}
	}

	if p.catalog != nil {
		if err := p.catalog.UpsertResources(ctx, ev.Updated); err != nil {
			p.logger.WithError(err).Error("Error mirroring updated resources")
		}
		if err := p.catalog.DeleteResources(ctx, ev.Deleted); err != nil {
			p.logger.WithError(err).Error("Error mirroring deleted resources")
		}
		if p.onChange != nil && !ev.Empty() {
			p.onChange()
		}
	}

	p.metrics.FeedEvents.WithLabelValues("updated").Add(float64(len(ev.Updated)))
	p.metrics.FeedEvents.WithLabelValues("deleted").Add(float64(len(ev.Deleted)))
	p.hub.Publish(ev)

	if p.dispatcher != nil && len(becameAvailable) > 0 {
		p.logger.Infof("Dispatching notifications for %d resources", len(becameAvailable))
		for _, id := range becameAvailable {
			p.dispatcher.Dispatch(id)
		}
	}

	p.metrics.PollCycles.WithLabelValues("ok").Inc()
	p.logger.Debugf("Poll cycle finished: %d updated, %d deleted.", len(ev.Updated), len(ev.Deleted))
	return ev
}
