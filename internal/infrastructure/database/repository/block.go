package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/infrastructure/database"
)

// BlockRepository handles content block persistence
type BlockRepository struct {
	db *database.PostgresDB
}

// NewBlockRepository creates a new content block repository
func NewBlockRepository(db *database.PostgresDB) *BlockRepository {
	return &BlockRepository{db: db}
}

const blockColumns = `
	b.id, b.binding_id, b.subtype_id, b.content, b.timestamp_label,
	b.message, b.padding, b.created_at`

// QueryBlocks retrieves a collection's blocks inside the given label window
// in non-decreasing timestamp-label order. Binding filtering happens here in
// process because subtype matching semantics live on the model.
func (r *BlockRepository) QueryBlocks(ctx context.Context, collectionName string, filter models.BlockFilter) ([]models.ContentBlock, error) {
	query := `SELECT` + blockColumns + `
		FROM content_blocks b
		JOIN collection_blocks cb ON cb.block_id = b.id
		JOIN collections c ON c.id = cb.collection_id
		WHERE c.name = $1
		  AND ($2::timestamptz IS NULL OR b.timestamp_label > $2)
		  AND ($3::timestamptz IS NULL OR b.timestamp_label <= $3)
		ORDER BY b.timestamp_label, b.created_at`

	rows, err := r.db.Query(ctx, query, collectionName, filter.BeginExclusive, filter.EndInclusive)
	if err != nil {
		return nil, fmt.Errorf("failed to query content blocks: %w", err)
	}
	defer rows.Close()

	blocks, err := scanBlocks(rows)
	if err != nil {
		return nil, err
	}
	if len(filter.Bindings) == 0 {
		return blocks, nil
	}

	matched := blocks[:0]
	for _, b := range blocks {
		for _, pair := range filter.Bindings {
			if b.Binding.Matches(pair) {
				matched = append(matched, b)
				break
			}
		}
	}
	return matched, nil
}

// GetBlocksByIDs retrieves blocks by id in timestamp-label order
func (r *BlockRepository) GetBlocksByIDs(ctx context.Context, ids []uuid.UUID) ([]models.ContentBlock, error) {
	query := `SELECT` + blockColumns + `
		FROM content_blocks b
		WHERE b.id = ANY($1)
		ORDER BY b.timestamp_label, b.created_at`

	rows, err := r.db.Query(ctx, query, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get content blocks: %w", err)
	}
	defer rows.Close()

	return scanBlocks(rows)
}

// CreateWithAssociations persists a block and its collection memberships in
// one transaction; a failure anywhere leaves no partial state behind
func (r *BlockRepository) CreateWithAssociations(ctx context.Context, block *models.ContentBlock, collectionNames []string) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO content_blocks (
				id, binding_id, subtype_id, content, timestamp_label,
				message, padding, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			block.ID, block.Binding.BindingID, block.Binding.SubtypeID, block.Content,
			block.TimestampLabel, block.Message, block.Padding, block.CreatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to insert content block: %w", err)
		}

		for _, name := range collectionNames {
			tag, err := tx.Exec(ctx, `
				INSERT INTO collection_blocks (collection_id, block_id)
				SELECT c.id, $2 FROM collections c WHERE c.name = $1`,
				name, block.ID,
			)
			if err != nil {
				return fmt.Errorf("failed to associate block with %s: %w", name, err)
			}
			if tag.RowsAffected() == 0 {
				return fmt.Errorf("collection %s vanished during inbox processing", name)
			}
			_, err = tx.Exec(ctx,
				`UPDATE collections SET block_count = block_count + 1, updated_at = now() WHERE name = $1`, name)
			if err != nil {
				return fmt.Errorf("failed to update block count for %s: %w", name, err)
			}
		}
		return nil
	})
}

func scanBlocks(rows pgx.Rows) ([]models.ContentBlock, error) {
	var blocks []models.ContentBlock
	for rows.Next() {
		var b models.ContentBlock
		err := rows.Scan(
			&b.ID, &b.Binding.BindingID, &b.Binding.SubtypeID, &b.Content, &b.TimestampLabel,
			&b.Message, &b.Padding, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan content block: %w", err)
		}
		blocks = append(blocks, b)
	}
	return blocks, rows.Err()
}
