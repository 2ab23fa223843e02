package models

import (
	"time"

	"github.com/google/uuid"
)

// ResultSet groups the matching content blocks of a poll that cannot be
// returned in one response. Parts are numbered contiguously from 1 and
// exactly the last part has More=false.
type ResultSet struct {
	ID               string          `json:"id"`
	CollectionName   string          `json:"collection_name"`
	CollectionType   CollectionType  `json:"collection_type"`
	ResponseType     ResponseType    `json:"response_type"`
	SubscriptionID   string          `json:"subscription_id,omitempty"`
	TotalBlocks      int             `json:"total_blocks"`
	LastPartReturned int             `json:"last_part_returned"`
	BeginLabel       *time.Time      `json:"begin_label,omitempty"`
	EndLabel         *time.Time      `json:"end_label,omitempty"`
	Parts            []ResultSetPart `json:"parts"`
	CreatedAt        time.Time       `json:"created_at"`
	ExpiresAt        time.Time       `json:"expires_at"`
}

// ResultSetPart is one bounded, ordered slice of a result set. For feed
// collections the labels bound exactly the blocks in this part, so a client
// resuming from part N+1 can re-query correctly using only part N's labels.
type ResultSetPart struct {
	Number     int         `json:"number"`
	BlockIDs   []uuid.UUID `json:"block_ids"`
	More       bool        `json:"more"`
	BeginLabel *time.Time  `json:"begin_label,omitempty"` // exclusive
	EndLabel   *time.Time  `json:"end_label,omitempty"`   // inclusive
}

// Part returns the part with the given number, or nil
func (rs *ResultSet) Part(number int) *ResultSetPart {
	if number < 1 || number > len(rs.Parts) {
		return nil
	}
	return &rs.Parts[number-1]
}
