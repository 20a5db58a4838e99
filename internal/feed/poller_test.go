package feed

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resource-availability-backend/internal/metrics"
	"resource-availability-backend/internal/resource"
	"resource-availability-backend/internal/source"
)

func nullLogger() logrus.FieldLogger {
	l, _ := test.NewNullLogger()
	return l
}

type mockFetcher struct {
	FetchAllFunc func(ctx context.Context, filter source.Filter) ([]resource.Resource, error)
}

func (m *mockFetcher) FetchAll(ctx context.Context, filter source.Filter) ([]resource.Resource, error) {
	return m.FetchAllFunc(ctx, filter)
}

type mockCatalog struct {
	upserted []resource.Resource
	deleted  []uuid.UUID
}

func (m *mockCatalog) UpsertResources(_ context.Context, resources []resource.Resource) error {
	m.upserted = append(m.upserted, resources...)
	return nil
}

func (m *mockCatalog) DeleteResources(_ context.Context, ids []uuid.UUID) error {
	m.deleted = append(m.deleted, ids...)
	return nil
}

type mockDispatcher struct {
	mu  sync.Mutex
	ids []uuid.UUID
}

func (m *mockDispatcher) Dispatch(id uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ids = append(m.ids, id)
}

func TestPoller_PollOnce(t *testing.T) {
	now := time.Date(2025, 1, 13, 10, 0, 0, 0, time.UTC)
	a := resource.Resource{ID: uuid.New(), Name: "A", Mode: resource.ModeMaintenance, LastModified: now}
	b := resource.Resource{ID: uuid.New(), Name: "B", Mode: resource.ModeAvailable, LastModified: now}

	listing := []resource.Resource{a, b}
	fetcher := &mockFetcher{FetchAllFunc: func(context.Context, source.Filter) ([]resource.Resource, error) {
		return listing, nil
	}}
	catalog := &mockCatalog{}
	dispatcher := &mockDispatcher{}
	hub := NewHub()
	var published []Event
	hub.Subscribe(source.Filter{}, func(ev Event) { published = append(published, ev) })

	m := metrics.New(prometheus.NewRegistry())
	poller := NewPoller(time.Minute, fetcher, catalog, hub, dispatcher, m, nullLogger())
	poller.now = func() time.Time { return now }
	flushes := 0
	poller.OnCatalogChange(func() { flushes++ })

	t.Run("first cycle publishes everything", func(t *testing.T) {
		ev := poller.PollOnce(context.Background())
		assert.Len(t, ev.Updated, 2)
		assert.Empty(t, ev.Deleted)
		assert.Len(t, catalog.upserted, 2)
		require.Len(t, published, 1)
		assert.Empty(t, dispatcher.ids, "first sighting is not a transition")
		assert.Equal(t, 1, flushes)
	})

	t.Run("unchanged cycle publishes nothing", func(t *testing.T) {
		ev := poller.PollOnce(context.Background())
		assert.True(t, ev.Empty())
		assert.Len(t, published, 1)
		assert.Equal(t, 1, flushes, "an unchanged catalog keeps cached responses")
	})

	t.Run("resource leaving maintenance is dispatched", func(t *testing.T) {
		a.Mode = resource.ModeAvailable
		a.LastModified = now.Add(time.Second)
		listing = []resource.Resource{a, b}

		ev := poller.PollOnce(context.Background())
		require.Len(t, ev.Updated, 1)
		assert.Equal(t, a.ID, ev.Updated[0].ID)
		assert.Equal(t, []uuid.UUID{a.ID}, dispatcher.ids)
	})

	t.Run("missing resource is deleted", func(t *testing.T) {
		listing = []resource.Resource{a}

		ev := poller.PollOnce(context.Background())
		assert.Empty(t, ev.Updated)
		assert.Equal(t, []uuid.UUID{b.ID}, ev.Deleted)
		assert.Equal(t, []uuid.UUID{b.ID}, catalog.deleted)
		require.Len(t, published, 3)
	})

	assert.Equal(t, 3, flushes)

	assert.Equal(t, 4.0, testutil.ToFloat64(m.PollCycles.WithLabelValues("ok")))
}

func TestPoller_FetchErrorPublishesNothing(t *testing.T) {
	fetcher := &mockFetcher{FetchAllFunc: func(context.Context, source.Filter) ([]resource.Resource, error) {
		return nil, errors.New("connection refused")
	}}
	hub := NewHub()
	delivered := false
	hub.Subscribe(source.Filter{}, func(Event) { delivered = true })

	m := metrics.New(prometheus.NewRegistry())
	poller := NewPoller(time.Minute, fetcher, nil, hub, nil, m, nullLogger())
	poller.lastModified[uuid.New()] = time.Now()

	ev := poller.PollOnce(context.Background())

	assert.True(t, ev.Empty())
	assert.False(t, delivered)
	assert.Len(t, poller.lastModified, 1, "known resources survive a failed cycle")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollCycles.WithLabelValues("failed")))
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	var mu sync.Mutex
	calls := 0
	fetcher := &mockFetcher{FetchAllFunc: func(context.Context, source.Filter) ([]resource.Resource, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil, nil
	}}
	poller := NewPoller(10*time.Millisecond, fetcher, nil, NewHub(), nil, metrics.New(prometheus.NewRegistry()), nullLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return calls >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancellation")
	}
}
