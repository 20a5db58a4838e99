package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"resource-availability-backend/internal/model"
	"resource-availability-backend/internal/resource"
	"resource-availability-backend/internal/rows"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store defines the interface for all database operations.
type Store interface {
	UpsertResources(ctx context.Context, resources []resource.Resource) error
	DeleteResources(ctx context.Context, ids []uuid.UUID) error
	ListResources(ctx context.Context) ([]model.Resource, error)
	ResourceName(ctx context.Context, id uuid.UUID) (string, error)

	SubscriptionsForResource(ctx context.Context, id uuid.UUID) ([]model.PushSubscription, error)
	PutSubscription(ctx context.Context, sub model.PushSubscription, resourceIDs []uuid.UUID) error
	GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error)
	DeleteSubscription(ctx context.Context, endpoint string) error
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db     *gorm.DB
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB, logger logrus.FieldLogger) Store {
	return &gormStore{db: db, logger: logger, now: time.Now}
}

// UpsertResources mirrors the metadata of the given resources.
func (s *gormStore) UpsertResources(ctx context.Context, resources []resource.Resource) error {
	if len(resources) == 0 {
		return nil
	}

	// Availability is judged against the time of mirroring.
	factory := rows.NewFactory(resource.Context{Now: s.now()})
	records := make([]model.Resource, 0, len(resources))
	for _, r := range resources {
		records = append(records, model.Resource{
			ID:             r.ID.String(),
			Name:           r.Name,
			Mode:           string(r.Mode),
			FullyAvailable: rows.FullyAvailable(factory.ResourceToRows(r)),
			LastModified:   r.LastModified,
		})
	}

	s.logger.Debugf("Batch upserting %d resources...", len(records))
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "mode", "fully_available", "last_modified", "updated_at"}),
		}).Create(&records).Error
	})
}

// DeleteResources removes the given resources and their subscription mappings.
func (s *gormStore) DeleteResources(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = id.String()
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Exec("DELETE FROM subscription_resource_mapping WHERE resource_id IN ?", keys).Error; err != nil {
			return fmt.Errorf("failed to delete subscription mappings: %w", err)
		}
		if err := tx.Delete(&model.Resource{}, "id IN ?", keys).Error; err != nil {
			return fmt.Errorf("failed to delete resources: %w", err)
		}
		return nil
	})
}

// ListResources returns every mirrored resource ordered by name.
func (s *gormStore) ListResources(ctx context.Context) ([]model.Resource, error) {
	var resources []model.Resource
	if err := s.db.WithContext(ctx).Order("name").Find(&resources).Error; err != nil {
		return nil, fmt.Errorf("failed to list resources: %w", err)
	}
	return resources, nil
}

// ResourceName returns the display name of a mirrored resource.
func (s *gormStore) ResourceName(ctx context.Context, id uuid.UUID) (string, error) {
	var r model.Resource
	err := s.db.WithContext(ctx).Select("name").First(&r, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to fetch resource %s: %w", id, err)
	}
	return r.Name, nil
}

// SubscriptionsForResource returns the subscriptions interested in a resource.
func (s *gormStore) SubscriptionsForResource(ctx context.Context, id uuid.UUID) ([]model.PushSubscription, error) {
	var subscriptions []model.PushSubscription
	err := s.db.WithContext(ctx).
		Joins("JOIN subscription_resource_mapping srm ON srm.push_subscription_endpoint = push_subscriptions.endpoint").
		Where("srm.resource_id = ?", id.String()).
		Find(&subscriptions).Error
	if err != nil {
		return nil, fmt.Errorf("failed to fetch subscriptions for resource %s: %w", id, err)
	}
	return subscriptions, nil
}

// PutSubscription creates or replaces a subscription and the resources it follows.
// Unknown resource ids are ignored.
func (s *gormStore) PutSubscription(ctx context.Context, sub model.PushSubscription, resourceIDs []uuid.UUID) error {
	sub.Resources = nil
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).Create(&sub).Error; err != nil {
			return err
		}

		resources := []*model.Resource{}
		if len(resourceIDs) > 0 {
			keys := make([]string, len(resourceIDs))
			for i, id := range resourceIDs {
				keys[i] = id.String()
			}
			if err := tx.Find(&resources, "id IN ?", keys).Error; err != nil {
				return err
			}
		}

		return tx.Model(&sub).Association("Resources").Replace(resources)
	})
}

// GetSubscription returns a subscription with its resources.
func (s *gormStore) GetSubscription(ctx context.Context, endpoint string) (*model.PushSubscription, error) {
	var sub model.PushSubscription
	err := s.db.WithContext(ctx).Preload("Resources").First(&sub, "endpoint = ?", endpoint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// DeleteSubscription removes a subscription and its resource mappings.
func (s *gormStore) DeleteSubscription(ctx context.Context, endpoint string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		if err := tx.Model(&sub).Association("Resources").Clear(); err != nil {
			return err
		}
		return tx.Delete(&sub).Error
	})
}
