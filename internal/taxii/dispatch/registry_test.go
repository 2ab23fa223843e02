package dispatch

import (
	"context"
	"errors"
	"testing"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/messages"
	"taxiihub/internal/taxii/query"
)

type stubQueryHandler struct {
	id           string
	expressionID string
}

func (h *stubQueryHandler) ID() string                    { return h.id }
func (h *stubQueryHandler) TargetingExpressionID() string { return h.expressionID }
func (h *stubQueryHandler) SupportsScope(string) bool     { return true }
func (h *stubQueryHandler) FilterContent(blocks []models.ContentBlock, _ *query.DefaultQuery) ([]models.ContentBlock, error) {
	return blocks, nil
}

type fakeMetaStore struct {
	upserts []models.HandlerMeta
	fail    bool
}

func (s *fakeMetaStore) UpsertHandlerMeta(_ context.Context, meta models.HandlerMeta) error {
	if s.fail {
		return errors.New("store down")
	}
	s.upserts = append(s.upserts, meta)
	return nil
}

func newStubMessageHandler() *stubMessageHandler {
	return &stubMessageHandler{
		types:    []messages.Type{messages.TypeDiscoveryRequest},
		versions: []taxii.Version{taxii.TAXII11},
		handle: func(ctx context.Context, req *Request) (messages.Message, error) {
			return nil, nil
		},
	}
}

func TestRegistryLookup(t *testing.T) {
	reg := NewRegistry(testLogger())
	h := newStubMessageHandler()
	reg.RegisterMessageHandler("discovery", h, "d")

	got, ok := reg.MessageHandler("discovery")
	if !ok || got != MessageHandler(h) {
		t.Fatal("registered handler not resolvable")
	}
	if _, ok := reg.MessageHandler("other"); ok {
		t.Fatal("unknown id must miss")
	}
}

func TestRegistryOverwrite(t *testing.T) {
	reg := NewRegistry(testLogger())
	first := newStubMessageHandler()
	second := newStubMessageHandler()
	reg.RegisterMessageHandler("discovery", first, "one")
	reg.RegisterMessageHandler("discovery", second, "two")

	got, _ := reg.MessageHandler("discovery")
	if got != MessageHandler(second) {
		t.Fatal("re-registration must overwrite")
	}

	// the pending queue deduplicates by id as well
	store := &fakeMetaStore{}
	if err := reg.SyncMetadata(context.Background(), store); err != nil {
		t.Fatalf("sync failed: %v", err)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected one metadata record, got %d", len(store.upserts))
	}
	if store.upserts[0].Description != "two" {
		t.Fatalf("stale metadata persisted: %+v", store.upserts[0])
	}
}

func TestRegistryQueryHandlerByExpression(t *testing.T) {
	reg := NewRegistry(testLogger())
	stix := &stubQueryHandler{id: "stix", expressionID: "urn:stix.mitre.org:xml:1.1.1"}
	other := &stubQueryHandler{id: "other", expressionID: "urn:example:xml:1"}
	reg.RegisterQueryHandler(stix, "")
	reg.RegisterQueryHandler(other, "")

	h, ok := reg.QueryHandlerByExpression([]string{"stix", "other"}, "urn:stix.mitre.org:xml:1.1.1")
	if !ok || h.ID() != "stix" {
		t.Fatal("expression lookup failed")
	}

	// only ids the service references participate
	if _, ok := reg.QueryHandlerByExpression([]string{"other"}, "urn:stix.mitre.org:xml:1.1.1"); ok {
		t.Fatal("lookup must be scoped to the given handler ids")
	}

	ids := reg.TargetingExpressionIDs([]string{"stix", "other", "missing"})
	if len(ids) != 2 {
		t.Fatalf("expression ids = %v", ids)
	}
}

func TestRegistrySyncMetadataRetries(t *testing.T) {
	reg := NewRegistry(testLogger())
	reg.RegisterMessageHandler("discovery", newStubMessageHandler(), "d")

	store := &fakeMetaStore{fail: true}
	if err := reg.SyncMetadata(context.Background(), store); err == nil {
		t.Fatal("expected sync to report the failure")
	}

	// failed records stay queued and drain on the next call
	store.fail = false
	if err := reg.SyncMetadata(context.Background(), store); err != nil {
		t.Fatalf("second sync failed: %v", err)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("expected one metadata record, got %d", len(store.upserts))
	}

	// nothing left pending
	if err := reg.SyncMetadata(context.Background(), store); err != nil {
		t.Fatalf("empty sync failed: %v", err)
	}
	if len(store.upserts) != 1 {
		t.Fatalf("drained queue must not re-upsert, got %d", len(store.upserts))
	}
}
