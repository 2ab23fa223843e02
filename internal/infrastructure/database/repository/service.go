// Package repository implements the TAXII stores on PostgreSQL.
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

// ServiceRepository handles service configuration persistence
type ServiceRepository struct {
	pool *pgxpool.Pool
}

// NewServiceRepository creates a new service repository
func NewServiceRepository(pool *pgxpool.Pool) *ServiceRepository {
	return &ServiceRepository{pool: pool}
}

const serviceColumns = `
	id, path, type, enabled, description,
	message_bindings, protocol_bindings, message_handler_id, query_handler_ids,
	destination_policy, accept_all_content, supported_content, collection_names,
	created_at, updated_at`

// GetServiceByPath retrieves the service bound to a path
func (r *ServiceRepository) GetServiceByPath(ctx context.Context, path string) (*models.Service, error) {
	query := `SELECT` + serviceColumns + `
		FROM services
		WHERE path = $1`

	s, err := scanService(r.pool.QueryRow(ctx, query, path))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taxii.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get service by path: %w", err)
	}
	return s, nil
}

// ListEnabledServices retrieves all enabled services
func (r *ServiceRepository) ListEnabledServices(ctx context.Context) ([]models.Service, error) {
	query := `SELECT` + serviceColumns + `
		FROM services
		WHERE enabled
		ORDER BY path`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list services: %w", err)
	}
	defer rows.Close()

	var services []models.Service
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *s)
	}
	return services, rows.Err()
}

// Upsert creates or replaces a service configuration record
func (r *ServiceRepository) Upsert(ctx context.Context, s *models.Service) error {
	supported, err := json.Marshal(s.SupportedContent)
	if err != nil {
		return fmt.Errorf("failed to encode supported content: %w", err)
	}

	query := `
		INSERT INTO services (
			id, path, type, enabled, description,
			message_bindings, protocol_bindings, message_handler_id, query_handler_ids,
			destination_policy, accept_all_content, supported_content, collection_names,
			created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, now(), now())
		ON CONFLICT (path) DO UPDATE SET
			type = EXCLUDED.type,
			enabled = EXCLUDED.enabled,
			description = EXCLUDED.description,
			message_bindings = EXCLUDED.message_bindings,
			protocol_bindings = EXCLUDED.protocol_bindings,
			message_handler_id = EXCLUDED.message_handler_id,
			query_handler_ids = EXCLUDED.query_handler_ids,
			destination_policy = EXCLUDED.destination_policy,
			accept_all_content = EXCLUDED.accept_all_content,
			supported_content = EXCLUDED.supported_content,
			collection_names = EXCLUDED.collection_names,
			updated_at = now()`

	_, err = r.pool.Exec(ctx, query,
		s.ID, s.Path, s.Type, s.Enabled, s.Description,
		s.MessageBindings, s.ProtocolBindings, s.MessageHandlerID, s.QueryHandlerIDs,
		s.DestinationPolicy, s.AcceptAllContent, supported, s.CollectionNames,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert service: %w", err)
	}
	return nil
}

func scanService(row pgx.Row) (*models.Service, error) {
	var s models.Service
	var supported []byte
	err := row.Scan(
		&s.ID, &s.Path, &s.Type, &s.Enabled, &s.Description,
		&s.MessageBindings, &s.ProtocolBindings, &s.MessageHandlerID, &s.QueryHandlerIDs,
		&s.DestinationPolicy, &s.AcceptAllContent, &supported, &s.CollectionNames,
		&s.CreatedAt, &s.UpdatedAt,
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
