package models

import (
	"time"

	"github.com/google/uuid"
)

// ContentBlock is one unit of shared content plus its binding and timestamp
// label. Blocks are immutable once created.
type ContentBlock struct {
	ID             uuid.UUID             `json:"id"`
	Binding        ContentBindingSubtype `json:"binding"`
	Content        []byte                `json:"content"`
	TimestampLabel time.Time             `json:"timestamp_label"`
	Message        string                `json:"message,omitempty"`
	Padding        string                `json:"padding,omitempty"`
	CreatedAt      time.Time             `json:"created_at"`
}

// BlockFilter narrows a content-block query. Results are always returned in
// non-decreasing timestamp-label order; pagination correctness depends on it.
type BlockFilter struct {
	// When non-empty, only blocks whose pairing matches one of these
	Bindings []ContentBindingSubtype
	// Feed windows: exclusive begin, inclusive end
	BeginExclusive *time.Time
	EndInclusive   *time.Time
}

// InboxRecord is a write-once audit record of a received inbox exchange
type InboxRecord struct {
	ID              uuid.UUID `json:"id"`
	MessageID       string    `json:"message_id"`
	ServicePath     string    `json:"service_path"`
	ResultID        string    `json:"result_id,omitempty"`
	CollectionNames []string  `json:"collection_names,omitempty"`
	RecordCount     int       `json:"record_count"`
	BlocksReceived  int       `json:"blocks_received"`
	BlocksSaved     int       `json:"blocks_saved"`
	ReceivedAt      time.Time `json:"received_at"`
}
