// Package handlers implements the built-in TAXII message handlers. Each
// handler works against narrow store interfaces; persistence, caching and
// event delivery are wired in at startup.
package handlers

import (
	"context"
	"time"

	"github.com/google/uuid"

	"taxiihub/internal/domain/models"
)

// ServiceDirectory resolves service configuration
type ServiceDirectory interface {
	GetServiceByPath(ctx context.Context, path string) (*models.Service, error)
	ListEnabledServices(ctx context.Context) ([]models.Service, error)
}

// CollectionStore resolves data collection configuration
type CollectionStore interface {
	GetCollectionByName(ctx context.Context, name string) (*models.DataCollection, error)
	ListEnabledCollections(ctx context.Context) ([]models.DataCollection, error)
}

// BlockStore reads and writes content blocks. QueryBlocks returns blocks in
// non-decreasing timestamp-label order; pagination depends on that.
type BlockStore interface {
	QueryBlocks(ctx context.Context, collectionName string, filter models.BlockFilter) ([]models.ContentBlock, error)
	GetBlocksByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ContentBlock, error)
	// CreateWithAssociations persists a block and its collection
	// memberships atomically; a failure leaves neither behind.
	CreateWithAssociations(ctx context.Context, block *models.ContentBlock, collectionNames []string) error
}

// InboxStore persists inbox exchange audit records
type InboxStore interface {
	RecordInbox(ctx context.Context, rec *models.InboxRecord) error
}

// SubscriptionStore persists subscriptions and their state transitions
type SubscriptionStore interface {
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	ListSubscriptionsByCollection(ctx context.Context, collectionName string) ([]models.Subscription, error)
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	SetSubscriptionStatus(ctx context.Context, id string, status models.SubscriptionStatus) error
}

// ResultStore holds materialized result sets between a poll response and
// the fulfillment requests that page through it
type ResultStore interface {
	SaveResultSet(ctx context.Context, rs *models.ResultSet) error
	GetResultSet(ctx context.Context, id string) (*models.ResultSet, error)
	SetLastPartReturned(ctx context.Context, id string, part int) error
}

// ContentEvent announces a persisted content block to downstream consumers
type ContentEvent struct {
	BlockID     string    `json:"block_id"`
	BindingID   string    `json:"binding_id"`
	Collections []string  `json:"collections,omitempty"`
	ServicePath string    `json:"service_path"`
	ReceivedAt  time.Time `json:"received_at"`
}

// EventPublisher emits content events. Publishing is best effort; inbox
// processing never fails on a publish error.
type EventPublisher interface {
	PublishContentReceived(ctx context.Context, ev ContentEvent) error
}
