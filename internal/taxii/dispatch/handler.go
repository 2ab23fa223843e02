// Package dispatch routes parsed TAXII messages to registered handlers and
// turns every failure into a protocol status response.
package dispatch

import (
	"context"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/messages"
	"taxiihub/internal/taxii/query"
)

// Request is everything a message handler needs to serve one exchange
type Request struct {
	Service *models.Service
	Message messages.Message

	// Version the request arrived in and version the response must use
	ContentVersion  taxii.Version
	ResponseVersion taxii.Version

	// Transport facts used when building advertised addresses
	Host  string
	HTTPS bool
}

// MessageHandler serves one or more TAXII message types for a service.
// Handlers return either a response message or an error; *taxii.StatusError
// values become protocol status responses, anything else a generic FAILURE.
type MessageHandler interface {
	// SupportedTypes lists the message types the handler accepts
	SupportedTypes() []messages.Type
	// SupportedVersions lists the protocol versions the handler accepts
	SupportedVersions() []taxii.Version
	Handle(ctx context.Context, req *Request) (messages.Message, error)
}

// QueryHandler evaluates structured queries for one targeting expression
// vocabulary
type QueryHandler interface {
	ID() string
	TargetingExpressionID() string
	SupportsScope(target string) bool
	FilterContent(blocks []models.ContentBlock, q *query.DefaultQuery) ([]models.ContentBlock, error)
}
