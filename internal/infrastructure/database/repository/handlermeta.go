package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"taxiihub/internal/domain/models"
)

// HandlerMetaRepository persists handler registration metadata
type HandlerMetaRepository struct {
	pool *pgxpool.Pool
}

// NewHandlerMetaRepository creates a new handler metadata repository
func NewHandlerMetaRepository(pool *pgxpool.Pool) *HandlerMetaRepository {
	return &HandlerMetaRepository{pool: pool}
}

// UpsertHandlerMeta creates or replaces a handler metadata record.
// Re-registering an id overwrites, never duplicates.
func (r *HandlerMetaRepository) UpsertHandlerMeta(ctx context.Context, meta models.HandlerMeta) error {
	query := `
		INSERT INTO handler_metadata (
			id, kind, description, supported_types, versions, registered_at
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			kind = EXCLUDED.kind,
			description = EXCLUDED.description,
			supported_types = EXCLUDED.supported_types,
			versions = EXCLUDED.versions,
			registered_at = EXCLUDED.registered_at`

	_, err := r.pool.Exec(ctx, query,
		meta.ID, meta.Kind, meta.Description, meta.SupportedTypes, meta.Versions, meta.RegisteredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert handler metadata: %w", err)
	}
	return nil
}
