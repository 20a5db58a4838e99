package notification

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"

	"resource-availability-backend/internal/model"
	"resource-availability-backend/internal/store"
)

// mockSender is a mock implementation of the NotificationSender interface.
type mockSender struct {
	SendFunc func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

func (m *mockSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return m.SendFunc(payload, sub, options)
}

// mockStore serves canned subscriptions and names.
type mockStore struct {
	mu            sync.Mutex
	subscriptions map[uuid.UUID][]model.PushSubscription
	names         map[uuid.UUID]string
	nameErr       error
	deleted       []string
}

func (m *mockStore) SubscriptionsForResource(_ context.Context, id uuid.UUID) ([]model.PushSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subscriptions[id], nil
}

func (m *mockStore) ResourceName(_ context.Context, id uuid.UUID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.nameErr != nil {
		return "", m.nameErr
	}
	name, ok := m.names[id]
	if !ok {
		return "", store.ErrNotFound
	}
	return name, nil
}

func (m *mockStore) DeleteSubscription(_ context.Context, endpoint string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, endpoint)
	return nil
}

func (m *mockStore) deletedEndpoints() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.deleted...)
}

func response(status int) *http.Response {
	return &http.Response{StatusCode: status, Body: io.NopCloser(bytes.NewBufferString(""))}
}

func newTestPool(s *mockStore) *WorkerPool {
	logger, _ := test.NewNullLogger()
	return NewWorkerPool(1, s, &webpush.Options{}, logger)
}

func TestWorkerPool_Dispatch(t *testing.T) {
	wp := newTestPool(&mockStore{})
	id := uuid.New()

	wp.Dispatch(id)

	select {
	case job := <-wp.jobs:
		assert.Equal(t, id, job)
	case <-time.After(1 * time.Second):
		t.Fatal("timed out waiting for job to be dispatched")
	}
}

func TestWorkerPool_WorkerLogic(t *testing.T) {
	s := &mockStore{
		subscriptions: map[uuid.UUID][]model.PushSubscription{},
		names:         map[uuid.UUID]string{},
	}
	wp := newTestPool(s)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	t.Run("sends notification for one subscription", func(t *testing.T) {
		id := uuid.New()
		s.subscriptions[id] = []model.PushSubscription{{Endpoint: "https://example.com/push", P256DH: "p256dh", Auth: "auth"}}
		s.names[id] = "Encoder 7"

		sent := make(chan string, 1)
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
				assert.Equal(t, "https://example.com/push", sub.Endpoint)
				assert.Equal(t, "p256dh", sub.Keys.P256dh)
				sent <- string(payload)
				return response(http.StatusCreated), nil
			},
		}

		wp.sendNotificationsForResource(ctx, id)

		assert.Equal(t, "Resource Encoder 7 is available again", <-sent)
		assert.Empty(t, s.deletedEndpoints())
	})

	t.Run("deletes expired subscription", func(t *testing.T) {
		id := uuid.New()
		s.subscriptions[id] = []model.PushSubscription{{Endpoint: "https://example.com/expired"}}

		wp.sender = &mockSender{
			SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
				return response(http.StatusGone), nil
			},
		}

		wp.sendNotificationsForResource(ctx, id)

		assert.Equal(t, []string{"https://example.com/expired"}, s.deletedEndpoints())
	})

	t.Run("falls back to resource ID when lookup fails", func(t *testing.T) {
		id := uuid.New()
		s.subscriptions[id] = []model.PushSubscription{{Endpoint: "https://example.com/fallback"}}
		s.nameErr = errors.New("connection reset")
		defer func() { s.nameErr = nil }()

		var payloads []string
		wp.sender = &mockSender{
			SendFunc: func(payload []byte, _ *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
				payloads = append(payloads, string(payload))
				return response(http.StatusCreated), nil
			},
		}

		wp.sendNotificationsForResource(ctx, id)

		assert.Equal(t, []string{"Resource " + id.String() + " is available again"}, payloads)
	})

	t.Run("no subscriptions sends nothing", func(t *testing.T) {
		wp.sender = &mockSender{
			SendFunc: func([]byte, *webpush.Subscription, *webpush.Options) (*http.Response, error) {
				t.Error("unexpected send")
				return response(http.StatusCreated), nil
			},
		}

		wp.sendNotificationsForResource(ctx, uuid.New())
	})
}

func TestWorkerPool_StartProcessesJobs(t *testing.T) {
	id := uuid.New()
	s := &mockStore{
		subscriptions: map[uuid.UUID][]model.PushSubscription{id: {{Endpoint: "https://example.com/push"}}},
		names:         map[uuid.UUID]string{id: "Encoder"},
	}
	wp := newTestPool(s)

	var wg sync.WaitGroup
	wg.Add(1)
	wp.sender = &mockSender{
		SendFunc: func(payload []byte, _ *webpush.Subscription, _ *webpush.Options) (*http.Response, error) {
			defer wg.Done()
			assert.Equal(t, "Resource Encoder is available again", string(payload))
			return response(http.StatusCreated), nil
		},
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	wp.Start(ctx)

	wp.Dispatch(id)
	wg.Wait()
}
