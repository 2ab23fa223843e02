package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"taxiihub/internal/domain/models"
)

// InboxRepository persists inbox exchange audit records
type InboxRepository struct {
	pool *pgxpool.Pool
}

// NewInboxRepository creates a new inbox audit repository
func NewInboxRepository(pool *pgxpool.Pool) *InboxRepository {
	return &InboxRepository{pool: pool}
}

// RecordInbox inserts a write-once audit record for one inbox exchange
func (r *InboxRepository) RecordInbox(ctx context.Context, rec *models.InboxRecord) error {
	query := `
		INSERT INTO inbox_records (
			id, message_id, service_path, result_id, collection_names,
			record_count, blocks_received, blocks_saved, received_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.pool.Exec(ctx, query,
		rec.ID, rec.MessageID, rec.ServicePath, rec.ResultID, rec.CollectionNames,
		rec.RecordCount, rec.BlocksReceived, rec.BlocksSaved, rec.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to record inbox exchange: %w", err)
	}
	return nil
}
