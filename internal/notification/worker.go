package notification

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"resource-availability-backend/internal/model"
	"resource-availability-backend/internal/store"
)

// NotificationSender defines the interface for sending a web push notification.
type NotificationSender interface {
	Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error)
}

// WebPushSender is a real implementation of NotificationSender using the webpush library.
type WebPushSender struct{}

// Send sends a notification using the webpush library.
func (s *WebPushSender) Send(payload []byte, sub *webpush.Subscription, options *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, options)
}

// SubscriptionStore is the part of the store the workers need.
type SubscriptionStore interface {
	SubscriptionsForResource(ctx context.Context, id uuid.UUID) ([]model.PushSubscription, error)
	ResourceName(ctx context.Context, id uuid.UUID) (string, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// WorkerPool manages a pool of workers for sending notifications.
type WorkerPool struct {
	size    int
	jobs    chan uuid.UUID
	store   SubscriptionStore
	webpush *webpush.Options
	sender  NotificationSender
	logger  logrus.FieldLogger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(size int, s SubscriptionStore, webpushOptions *webpush.Options, logger logrus.FieldLogger) *WorkerPool {
	return &WorkerPool{
		size:    size,
		jobs:    make(chan uuid.UUID, size), // Buffered channel
		store:   s,
		webpush: webpushOptions,
		sender:  &WebPushSender{}, // Use the real sender by default
		logger:  logger,
	}
}

// Start launches the worker goroutines.
func (wp *WorkerPool) Start(ctx context.Context) {
	for i := 0; i < wp.size; i++ {
		go wp.worker(ctx, i)
	}
}

func (wp *WorkerPool) worker(ctx context.Context, id int) {
	log := wp.logger.WithField("worker", id)
	log.Debug("Worker started")
	for {
		select {
		case resourceID := <-wp.jobs:
			log.Debugf("Processing resource %s", resourceID)
			wp.sendNotificationsForResource(ctx, resourceID)
		case <-ctx.Done():
			log.Debug("Worker shutting down")
			return
		}
	}
}

// Dispatch queues a notification job for a resource that became available.
// It blocks while the queue is full.
func (wp *WorkerPool) Dispatch(resourceID uuid.UUID) {
	wp.jobs <- resourceID
}

func (wp *WorkerPool) sendNotificationsForResource(ctx context.Context, resourceID uuid.UUID) {
	subscriptions, err := wp.store.SubscriptionsForResource(ctx, resourceID)
	if err != nil {
		wp.logger.WithError(err).Errorf("Error fetching subscriptions for resource %s", resourceID)
		return
	}
	if len(subscriptions) == 0 {
		return
	}

	wp.logger.Infof("Sending %d notifications for resource %s", len(subscriptions), resourceID)

	label := resourceID.String()
	name, err := wp.store.ResourceName(ctx, resourceID)
	switch {
	case err == nil && name != "":
		label = name
	case err != nil && !errors.Is(err, store.ErrNotFound):
		wp.logger.WithError(err).Warnf("Error fetching name of resource %s", resourceID)
	}

	message := fmt.Sprintf("Resource %s is available again", label)
	for _, sub := range subscriptions {
		wp.sendNotification(ctx, sub, []byte(message))
	}
}

func (wp *WorkerPool) sendNotification(ctx context.Context, sub model.PushSubscription, payload []byte) {
	wpSub := &webpush.Subscription{
		Endpoint: sub.Endpoint,
		Keys: webpush.Keys{
			P256dh: sub.P256DH,
			Auth:   sub.Auth,
		},
	}

	resp, err := wp.sender.Send(payload, wpSub, wp.webpush)
	if err != nil {
		wp.logger.WithError(err).Errorf("Error sending notification to %s", sub.Endpoint)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusGone {
		wp.logger.Infof("Subscription for endpoint %s is expired. Deleting.", sub.Endpoint)
		if err := wp.store.DeleteSubscription(ctx, sub.Endpoint); err != nil {
			wp.logger.WithError(err).Errorf("Failed to delete expired subscription %s", sub.Endpoint)
		}
	}
}
