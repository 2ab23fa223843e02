package dispatch

import (
	"context"
	"sync"
	"time"

	"taxiihub/internal/domain/models"
	"taxiihub/pkg/logger"
)

// HandlerMetaStore persists handler registration metadata
type HandlerMetaStore interface {
	UpsertHandlerMeta(ctx context.Context, meta models.HandlerMeta) error
}

// Registry maps handler identifiers to their implementations. Registration
// happens at process start into the in-memory tables and is immediately
// effective; persisting the metadata records is a second phase that can be
// retried until the backing store is reachable. Registering an id twice
// overwrites the earlier entry.
type Registry struct {
	mu       sync.Mutex
	messages map[string]MessageHandler
	queries  map[string]QueryHandler
	pending  []models.HandlerMeta
	log      *logger.Logger
}

// NewRegistry builds an empty registry
func NewRegistry(log *logger.Logger) *Registry {
	return &Registry{
		messages: make(map[string]MessageHandler),
		queries:  make(map[string]QueryHandler),
		log:      log.WithComponent("registry"),
	}
}

// RegisterMessageHandler installs a message handler under the given id
func (r *Registry) RegisterMessageHandler(id string, h MessageHandler, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages[id] = h
	types := make([]string, len(h.SupportedTypes()))
	for i, t := range h.SupportedTypes() {
		types[i] = string(t)
	}
	versions := make([]string, len(h.SupportedVersions()))
	for i, v := range h.SupportedVersions() {
		versions[i] = v.String()
	}
	r.queueMeta(models.HandlerMeta{
		ID:             id,
		Kind:           models.HandlerKindMessage,
		Description:    description,
		SupportedTypes: types,
		Versions:       versions,
		RegisteredAt:   time.Now().UTC(),
	})
	r.log.Info().Str("handler_id", id).Msg("Registered message handler")
}

// RegisterQueryHandler installs a query handler under its own id
func (r *Registry) RegisterQueryHandler(h QueryHandler, description string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.queries[h.ID()] = h
	r.queueMeta(models.HandlerMeta{
		ID:             h.ID(),
		Kind:           models.HandlerKindQuery,
		Description:    description,
		SupportedTypes: []string{h.TargetingExpressionID()},
		RegisteredAt:   time.Now().UTC(),
	})
	r.log.Info().Str("handler_id", h.ID()).Str("targeting_expression_id", h.TargetingExpressionID()).Msg("Registered query handler")
}

// queueMeta replaces any pending record with the same id, then appends
func (r *Registry) queueMeta(meta models.HandlerMeta) {
	for i, p := range r.pending {
		if p.ID == meta.ID {
			r.pending[i] = meta
			return
		}
	}
	r.pending = append(r.pending, meta)
}

// MessageHandler resolves a message handler id
func (r *Registry) MessageHandler(id string) (MessageHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.messages[id]
	return h, ok
}

// QueryHandler resolves a query handler id
func (r *Registry) QueryHandler(id string) (QueryHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	h, ok := r.queries[id]
	return h, ok
}

// QueryHandlerByExpression resolves the handler serving a targeting
// expression vocabulary among the given handler ids
func (r *Registry) QueryHandlerByExpression(ids []string, expressionID string) (QueryHandler, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, id := range ids {
		if h, ok := r.queries[id]; ok && h.TargetingExpressionID() == expressionID {
			return h, true
		}
	}
	return nil, false
}

// TargetingExpressionIDs lists the vocabularies served by the given
// handler ids
func (r *Registry) TargetingExpressionIDs(ids []string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, id := range ids {
		if h, ok := r.queries[id]; ok {
			out = append(out, h.TargetingExpressionID())
		}
	}
	return out
}

// SyncMetadata drains the pending metadata queue into the store. Records
// that fail to persist stay queued for the next call; registration remains
// effective either way.
func (r *Registry) SyncMetadata(ctx context.Context, store HandlerMetaStore) error {
	r.mu.Lock()
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()

	var failed []models.HandlerMeta
	var lastErr error
	for _, meta := range pending {
		if err := store.UpsertHandlerMeta(ctx, meta); err != nil {
			r.log.Warn().Err(err).Str("handler_id", meta.ID).Msg("Handler metadata not persisted yet, will retry")
			failed = append(failed, meta)
			lastErr = err
			continue
		}
	}

	if len(failed) > 0 {
		r.mu.Lock()
		r.pending = append(failed, r.pending...)
		r.mu.Unlock()
	}
	return lastErr
}
