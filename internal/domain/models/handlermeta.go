package models

import "time"

// HandlerKind separates message handlers from query handlers in the
// registry's persisted metadata
type HandlerKind string

const (
	HandlerKindMessage HandlerKind = "message"
	HandlerKindQuery   HandlerKind = "query"
)

// HandlerMeta is the persisted description of a registered handler. The
// in-memory registry is authoritative at runtime; these records exist so
// service configuration can reference handler ids that are known to be
// valid.
type HandlerMeta struct {
	ID             string      `json:"id"`
	Kind           HandlerKind `json:"kind"`
	Description    string      `json:"description,omitempty"`
	SupportedTypes []string    `json:"supported_types,omitempty"`
	Versions       []string    `json:"versions,omitempty"`
	RegisteredAt   time.Time   `json:"registered_at"`
}
