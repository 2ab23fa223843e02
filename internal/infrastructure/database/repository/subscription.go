package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
)

// SubscriptionRepository handles subscription persistence
type SubscriptionRepository struct {
	pool *pgxpool.Pool
}

// NewSubscriptionRepository creates a new subscription repository
func NewSubscriptionRepository(pool *pgxpool.Pool) *SubscriptionRepository {
	return &SubscriptionRepository{pool: pool}
}

const subscriptionColumns = `
	id, collection_name, response_type, accept_all_content,
	supported_content, query, status, created_at, updated_at`

// GetSubscription retrieves a subscription by id
func (r *SubscriptionRepository) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM subscriptions
		WHERE id = $1`

	s, err := scanSubscription(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taxii.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return s, nil
}

// ListSubscriptionsByCollection retrieves a collection's subscriptions
func (r *SubscriptionRepository) ListSubscriptionsByCollection(ctx context.Context, collectionName string) ([]models.Subscription, error) {
	query := `SELECT` + subscriptionColumns + `
		FROM subscriptions
		WHERE collection_name = $1
		ORDER BY created_at`

	rows, err := r.pool.Query(ctx, query, collectionName)
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	defer rows.Close()

	var subs []models.Subscription
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *s)
	}
	return subs, rows.Err()
}

// CreateSubscription inserts a new subscription
func (r *SubscriptionRepository) CreateSubscription(ctx context.Context, s *models.Subscription) error {
	supported, err := json.Marshal(s.SupportedContent)
	if err != nil {
		return fmt.Errorf("failed to encode supported content: %w", err)
	}

	query := `
		INSERT INTO subscriptions (
			id, collection_name, response_type, accept_all_content,
			supported_content, query, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err = r.pool.Exec(ctx, query,
		s.ID, s.CollectionName, s.ResponseType, s.AcceptAllContent,
		supported, s.Query, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

// SetSubscriptionStatus transitions a subscription's lifecycle state
func (r *SubscriptionRepository) SetSubscriptionStatus(ctx context.Context, id string, status models.SubscriptionStatus) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE subscriptions SET status = $2, updated_at = now() WHERE id = $1`,
		id, status,
	)
	if err != nil {
		return fmt.Errorf("failed to set subscription status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return taxii.ErrNotFound
	}
	return nil
}

func scanSubscription(row pgx.Row) (*models.Subscription, error) {
	var s models.Subscription
	var supported []byte
	err := row.Scan(
		&s.ID, &s.CollectionName, &s.ResponseType, &s.AcceptAllContent,
		&supported, &s.Query, &s.Status, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(supported) > 0 {
		if err := json.Unmarshal(supported, &s.SupportedContent); err != nil {
			return nil, fmt.Errorf("failed to decode supported content: %w", err)
		}
	}
	return &s, nil
}
