package query

import (
	"bytes"

	"github.com/antchfx/xmlquery"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/pkg/logger"
)

// Handler evaluates default-format queries over one targeting expression
// vocabulary. Poll handlers resolve it through the dispatch registry by id.
type Handler struct {
	id           string
	expressionID string
	schema       *SchemaNode
	log          *logger.Logger
}

// NewHandler builds a query handler over the given schema tree
func NewHandler(id, expressionID string, schema *SchemaNode, log *logger.Logger) *Handler {
	return &Handler{
		id:           id,
		expressionID: expressionID,
		schema:       schema,
		log:          log.WithComponent("query_handler"),
	}
}

// ID returns the registry identifier of this handler
func (h *Handler) ID() string { return h.id }

// TargetingExpressionID returns the vocabulary this handler evaluates
func (h *Handler) TargetingExpressionID() string { return h.expressionID }

// SupportsScope reports whether a targeting expression compiles against
// the handler's schema. Services advertise supported scopes this way.
func (h *Handler) SupportsScope(target string) bool {
	_, err := Compile(h.schema, target)
	return err == nil
}

// FilterContent evaluates the query's criteria tree against each block's
// content and returns the matches in input order. A vocabulary mismatch or
// an uncompilable criterion surfaces as a protocol status error; content
// that does not parse as XML simply never matches.
func (h *Handler) FilterContent(blocks []models.ContentBlock, q *DefaultQuery) ([]models.ContentBlock, error) {
	if q.TargetingExpressionID != h.expressionID {
		return nil, taxii.NewStatusError(taxii.StatusUnsupportedTargetingExpressionID,
			"targeting expression vocabulary %s is not supported", q.TargetingExpressionID).
			WithDetail(taxii.DetailTargetingExpressionID, h.expressionID)
	}

	var matches []models.ContentBlock
	for _, block := range blocks {
		doc, err := xmlquery.Parse(bytes.NewReader(block.Content))
		if err != nil {
			h.log.Warn().Err(err).Str("block_id", block.ID.String()).Msg("Content block is not well-formed XML, excluded from query result")
			continue
		}
		matched, err := Evaluate(h.schema, q.Criteria, doc)
		if err != nil {
			if _, ok := taxii.AsStatusError(err); ok {
				return nil, err
			}
			return nil, taxii.NewStatusError(taxii.StatusUnsupportedQuery,
				"query could not be evaluated: %v", err).
				WithDetail(taxii.DetailSupportedQuery, FormatID)
		}
		if matched {
			matches = append(matches, block)
		}
	}
	return matches, nil
}
