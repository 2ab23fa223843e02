package models

import (
	"time"

	"github.com/google/uuid"
)

// ServiceType identifies the kind of TAXII service bound to a path
type ServiceType string

const (
	ServiceDiscovery            ServiceType = "discovery"
	ServiceInbox                ServiceType = "inbox"
	ServicePoll                 ServiceType = "poll"
	ServiceCollectionManagement ServiceType = "collection_management"
)

// DestinationPolicy controls how an inbox service treats destination
// collection names on incoming messages
type DestinationPolicy string

const (
	DestinationRequired   DestinationPolicy = "required"
	DestinationOptional   DestinationPolicy = "optional"
	DestinationProhibited DestinationPolicy = "prohibited"
)

// Service is one TAXII service endpoint. Path uniquely resolves to at most
// one enabled service.
type Service struct {
	ID          uuid.UUID   `json:"id"`
	Path        string      `json:"path"`
	Type        ServiceType `json:"type"`
	Enabled     bool        `json:"enabled"`
	Description string      `json:"description,omitempty"`

	// Version URNs accepted as message bindings, and protocol URNs the
	// service is reachable over
	MessageBindings  []string `json:"message_bindings"`
	ProtocolBindings []string `json:"protocol_bindings"`

	// Identifier of the registered message handler serving this endpoint
	MessageHandlerID string `json:"message_handler_id"`
	// Targeting expression vocabulary ids advertised for structured queries
	// (poll services only)
	QueryHandlerIDs []string `json:"query_handler_ids,omitempty"`

	// Inbox-specific policy
	DestinationPolicy DestinationPolicy       `json:"destination_policy,omitempty"`
	AcceptAllContent  bool                    `json:"accept_all_content"`
	SupportedContent  []ContentBindingSubtype `json:"supported_content,omitempty"`

	// Names of the data collections this service advertises or feeds
	CollectionNames []string `json:"collection_names,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SupportsMessageBinding reports whether the service accepts the given
// message binding URN
func (s *Service) SupportsMessageBinding(urn string) bool {
	for _, b := range s.MessageBindings {
		if b == urn {
			return true
		}
	}
	return false
}

// AdvertisesCollection reports whether the service references the named
// collection
func (s *Service) AdvertisesCollection(name string) bool {
	for _, n := range s.CollectionNames {
		if n == name {
			return true
		}
	}
	return false
}

// SupportsContent reports whether the service explicitly supports the
// binding/subtype pairing. AcceptAllContent short-circuits this check at the
// call sites.
func (s *Service) SupportsContent(pair ContentBindingSubtype) bool {
	return pairSupported(s.SupportedContent, pair)
}
