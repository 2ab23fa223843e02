// Package results partitions poll results into bounded parts and
// materializes the result sets that poll fulfillment later reads back.
package results

import (
	"time"

	"github.com/google/uuid"

	"taxiihub/internal/domain/models"
)

// Paginate splits ordered content blocks into consecutive parts of at most
// pageSize blocks, numbered from 1. For feed collections each part carries
// timestamp labels bounding exactly its blocks: a part's exclusive begin is
// the previous part's last block label (part 1 takes the overall begin) and
// its inclusive end is its own last block's label, except the final part,
// which takes the overall end. Exactly the final part has More=false.
//
// The blocks must already be in non-decreasing timestamp-label order; that
// ordering is what makes the label bookkeeping correct.
func Paginate(blocks []models.ContentBlock, collectionType models.CollectionType, begin, end *time.Time, pageSize int) []models.ResultSetPart {
	if pageSize < 1 {
		pageSize = 1
	}

	var parts []models.ResultSetPart
	isFeed := collectionType == models.CollectionDataFeed
	partBegin := begin

	for offset := 0; offset < len(blocks); offset += pageSize {
		limit := offset + pageSize
		if limit > len(blocks) {
			limit = len(blocks)
		}
		chunk := blocks[offset:limit]
		final := limit == len(blocks)

		part := models.ResultSetPart{
			Number:   len(parts) + 1,
			BlockIDs: blockIDs(chunk),
			More:     !final,
		}
		if isFeed {
			part.BeginLabel = partBegin
			lastLabel := chunk[len(chunk)-1].TimestampLabel
			if final {
				part.EndLabel = end
			} else {
				label := lastLabel
				part.EndLabel = &label
			}
			nextBegin := lastLabel
			partBegin = &nextBegin
		}
		parts = append(parts, part)
	}
	return parts
}

// NewResultSet materializes a result set around the paginated parts
func NewResultSet(collection *models.DataCollection, blocks []models.ContentBlock, responseType models.ResponseType, subscriptionID string, begin, end *time.Time, pageSize int, retention time.Duration) *models.ResultSet {
	now := time.Now().UTC()
	return &models.ResultSet{
		ID:             uuid.NewString(),
		CollectionName: collection.Name,
		CollectionType: collection.Type,
		ResponseType:   responseType,
		SubscriptionID: subscriptionID,
		TotalBlocks:    len(blocks),
		BeginLabel:     begin,
		EndLabel:       end,
		Parts:          Paginate(blocks, collection.Type, begin, end, pageSize),
		CreatedAt:      now,
		ExpiresAt:      now.Add(retention),
	}
}

func blockIDs(blocks []models.ContentBlock) []uuid.UUID {
	ids := make([]uuid.UUID, len(blocks))
	for i, b := range blocks {
		ids[i] = b.ID
	}
	return ids
}
