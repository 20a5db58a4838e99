// Package datasource exposes resource availability rows as paged, live-updating sessions.
package datasource

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"resource-availability-backend/internal/feed"
	"resource-availability-backend/internal/metrics"
	"resource-availability-backend/internal/resource"
	"resource-availability-backend/internal/rows"
	"resource-availability-backend/internal/source"
)

// ErrInvalidPool is returned when the pool argument cannot be resolved.
var ErrInvalidPool = errors.New("invalid resource pool")

// ErrUpdatesActive is returned by StartUpdates while another consumer is attached.
var ErrUpdatesActive = errors.New("updates already streaming for session")

// ErrSessionClosed is returned by StartUpdates once the session is destroyed.
var ErrSessionClosed = errors.New("session closed")

// Arguments are the user supplied inputs of a session.
type Arguments struct {
	// Pool optionally restricts the session to the resources of one pool.
	Pool string `json:"pool"`
}

// Deps are the collaborators shared by every session. All of them are required.
type Deps struct {
	Pager   source.Pager
	Pools   source.PoolLookup
	Hub     *feed.Hub
	Metrics *metrics.Metrics
	Logger  logrus.FieldLogger
}

// Page is one batch of rows handed to the consumer.
type Page struct {
	Rows        []rows.Row `json:"rows"`
	HasNextPage bool       `json:"hasNextPage"`
}

// DataSource is a single consumer session: it pages the initial rows and
// keeps them in sync with the change feed. Live changes are tracked from the
// moment the session is subscribed; operations produced while no consumer is
// attached are queued until StartUpdates.
type DataSource struct {
	id         uuid.UUID
	deps       Deps
	logger     logrus.FieldLogger
	collection *rows.Collection
	relay      *relay

	// paging serializes NextPage calls without blocking the state below.
	paging sync.Mutex

	mu        sync.Mutex
	filter    source.Filter
	pool      *resource.Pool
	started   bool
	cursor    source.Cursor
	exhausted bool
	sub       *feed.Subscription
	destroyed bool
}

// New creates a session. ctx fixes the reference instant used for rolling windows.
func New(deps Deps, ctx resource.Context) *DataSource {
	id := uuid.New()
	d := &DataSource{
		id:         id,
		deps:       deps,
		logger:     deps.Logger.WithField("session", id),
		collection: rows.NewCollection(rows.NewFactory(ctx)),
		relay:      &relay{},
	}
	d.collection.SetUpdater(d.relay)
	return d
}

func (d *DataSource) ID() uuid.UUID {
	return d.id
}

// Pool returns the pool the session is filtered on, or nil.
func (d *DataSource) Pool() *resource.Pool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pool
}

// ProcessArguments resolves the session filter. An empty pool selects every resource.
func (d *DataSource) ProcessArguments(ctx context.Context, args Arguments) error {
	raw := strings.TrimSpace(args.Pool)
	filter := source.Filter{}
	var pool *resource.Pool

	if raw != "" {
		poolID, err := uuid.Parse(raw)
		if err != nil {
			return d.invalidPool(fmt.Sprintf("Could not parse '%s' to a valid ID for a resource pool", raw))
		}
		pool, err = d.deps.Pools.GetPool(ctx, poolID)
		if err != nil {
			return fmt.Errorf("looking up resource pool %s: %w", poolID, err)
		}
		if pool == nil {
			return d.invalidPool(fmt.Sprintf("Could not find resource pool with ID '%s'", raw))
		}
		filter.PoolID = pool.ID
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return nil
	}
	if d.sub != nil && d.filter != filter {
		d.removeSubscription()
	}
	d.filter = filter
	d.pool = pool
	d.logger.Infof("Preparing paging for resources with filter '%s'", filter)
	d.subscribe()
	return nil
}

func (d *DataSource) invalidPool(msg string) error {
	d.logger.Error(msg)
	return fmt.Errorf("%w: %s", ErrInvalidPool, msg)
}

// Columns returns the column layout of the rows.
func (d *DataSource) Columns() []rows.Column {
	return rows.Columns
}

// NextPage returns the rows of the next page of resources. Rows registered
// here are returned directly and never pushed to the updater.
func (d *DataSource) NextPage(ctx context.Context) Page {
	d.paging.Lock()
	defer d.paging.Unlock()

	d.mu.Lock()
	if d.destroyed || d.exhausted {
		d.mu.Unlock()
		return Page{Rows: []rows.Row{}}
	}
	d.subscribe()
	first := !d.started
	filter, cursor := d.filter, d.cursor
	d.mu.Unlock()

	var page source.Page
	if first {
		page = d.deps.Pager.StartPaging(ctx, filter, source.OrderByName)
	} else {
		page = d.deps.Pager.NextPage(ctx, cursor)
	}

	d.mu.Lock()
	if d.destroyed {
		d.mu.Unlock()
		return Page{Rows: []rows.Row{}}
	}
	d.started = true
	d.cursor = page.Next
	d.exhausted = !page.HasMore
	d.mu.Unlock()

	out := make([]rows.Row, 0, len(page.Resources))
	for _, r := range page.Resources {
		registered := d.collection.Register(r, false)
		d.deps.Metrics.ObserveRegistration("bulk", registered)
		out = append(out, registered...)
	}
	return Page{Rows: out, HasNextPage: page.HasMore}
}

// StartUpdates attaches u as the consumer of live row operations until
// StopUpdates or Destroy. Operations queued since the session subscribed are
// replayed to u first. Only one consumer can be attached at a time.
func (d *DataSource) StartUpdates(u rows.Updater) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if u == nil {
		return errors.New("updater must not be nil")
	}
	if d.destroyed {
		return ErrSessionClosed
	}
	d.subscribe()
	if !d.relay.attach(d.deps.Metrics.WrapUpdater(u)) {
		return ErrUpdatesActive
	}
	d.logger.Info("Update consumer attached")
	return nil
}

// subscribe registers the session on the change feed once. Callers hold d.mu.
func (d *DataSource) subscribe() {
	if d.sub != nil {
		return
	}
	d.logger.Infof("Subscribing on resource updates with filter %s", d.filter)
	d.sub = d.deps.Hub.Subscribe(d.filter, d.handleEvent)
}

func (d *DataSource) handleEvent(ev feed.Event) {
	for _, id := range ev.Deleted {
		d.collection.Remove(id)
	}
	for _, r := range ev.Updated {
		d.deps.Metrics.ObserveRegistration("live", d.collection.Register(r, true))
	}
}

// StopUpdates detaches the current consumer. The session stays subscribed and
// queues operations for the next StartUpdates. Calling it twice is harmless.
func (d *DataSource) StopUpdates() {
	d.relay.detach()
}

// Destroy releases the session. Calling it twice is harmless.
func (d *DataSource) Destroy() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.destroyed {
		return
	}
	d.removeSubscription()
	d.relay.close()
	d.destroyed = true
}

func (d *DataSource) removeSubscription() {
	if d.sub == nil {
		return
	}
	d.deps.Hub.Unsubscribe(d.sub)
	d.sub = nil
	d.logger.Info("Removed subscription on resource updates")
}
