package models

import (
	"time"

	"github.com/google/uuid"
)

// CollectionType distinguishes temporally ordered feeds from unordered sets
type CollectionType string

const (
	CollectionDataFeed CollectionType = "data_feed"
	CollectionDataSet  CollectionType = "data_set"
)

// DataCollection is a named grouping of content blocks. DataFeed collections
// are ordered by timestamp label; DataSet collections are not.
type DataCollection struct {
	ID               uuid.UUID               `json:"id"`
	Name             string                  `json:"name"`
	Type             CollectionType          `json:"type"`
	Description      string                  `json:"description,omitempty"`
	Enabled          bool                    `json:"enabled"`
	AcceptAllContent bool                    `json:"accept_all_content"`
	SupportedContent []ContentBindingSubtype `json:"supported_content,omitempty"`
	BlockCount       int64                   `json:"block_count"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// Accepts reports whether the collection takes content with the given
// binding/subtype pairing
func (c *DataCollection) Accepts(pair ContentBindingSubtype) bool {
	if c.AcceptAllContent {
		return true
	}
	return pairSupported(c.SupportedContent, pair)
}

// SupportsContent reports explicit (non accept-all) pairing support
func (c *DataCollection) SupportsContent(pair ContentBindingSubtype) bool {
	return pairSupported(c.SupportedContent, pair)
}
