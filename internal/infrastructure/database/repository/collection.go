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

// CollectionRepository handles data collection persistence
type CollectionRepository struct {
	pool *pgxpool.Pool
}

// NewCollectionRepository creates a new collection repository
func NewCollectionRepository(pool *pgxpool.Pool) *CollectionRepository {
	return &CollectionRepository{pool: pool}
}

const collectionColumns = `
	id, name, type, description, enabled,
	accept_all_content, supported_content, block_count, created_at, updated_at`

// GetCollectionByName retrieves a collection by its unique name
func (r *CollectionRepository) GetCollectionByName(ctx context.Context, name string) (*models.DataCollection, error) {
	query := `SELECT` + collectionColumns + `
		FROM collections
		WHERE name = $1`

	c, err := scanCollection(r.pool.QueryRow(ctx, query, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, taxii.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get collection by name: %w", err)
	}
	return c, nil
}

// ListEnabledCollections retrieves all enabled collections
func (r *CollectionRepository) ListEnabledCollections(ctx context.Context) ([]models.DataCollection, error) {
	query := `SELECT` + collectionColumns + `
		FROM collections
		WHERE enabled
		ORDER BY name`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list collections: %w", err)
	}
	defer rows.Close()

	var collections []models.DataCollection
	for rows.Next() {
		c, err := scanCollection(rows)
		if err != nil {
			return nil, err
		}
		collections = append(collections, *c)
	}
	return collections, rows.Err()
}

// Upsert creates or replaces a collection configuration record
func (r *CollectionRepository) Upsert(ctx context.Context, c *models.DataCollection) error {
	supported, err := json.Marshal(c.SupportedContent)
	if err != nil {
		return fmt.Errorf("failed to encode supported content: %w", err)
	}

	query := `
		INSERT INTO collections (
			id, name, type, description, enabled,
			accept_all_content, supported_content, block_count, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, 0, now(), now())
		ON CONFLICT (name) DO UPDATE SET
			type = EXCLUDED.type,
			description = EXCLUDED.description,
			enabled = EXCLUDED.enabled,
			accept_all_content = EXCLUDED.accept_all_content,
			supported_content = EXCLUDED.supported_content,
			updated_at = now()`

	_, err = r.pool.Exec(ctx, query,
		c.ID, c.Name, c.Type, c.Description, c.Enabled,
		c.AcceptAllContent, supported,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert collection: %w", err)
	}
	return nil
}

func scanCollection(row pgx.Row) (*models.DataCollection, error) {
	var c models.DataCollection
	var supported []byte
	err := row.Scan(
		&c.ID, &c.Name, &c.Type, &c.Description, &c.Enabled,
		&c.AcceptAllContent, &supported, &c.BlockCount, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(supported) > 0 {
		if err := json.Unmarshal(supported, &c.SupportedContent); err != nil {
			return nil, fmt.Errorf("failed to decode supported content: %w", err)
		}
	}
	return &c, nil
}
