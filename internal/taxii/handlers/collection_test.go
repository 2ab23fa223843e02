package handlers

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/dispatch"
	"taxiihub/internal/taxii/messages"
)

func newCollectionFixture(t *testing.T) (*CollectionInformationHandler, *fakeCollections, *fakeServices) {
	t.Helper()
	feed := feedCollection()
	feed.Description = "shared indicators"
	feed.BlockCount = 42

	set := models.DataCollection{
		ID:               uuid.New(),
		Name:             "observables",
		Type:             models.CollectionDataSet,
		Enabled:          true,
		SupportedContent: []models.ContentBindingSubtype{{BindingID: bindingSTIX111}},
	}

	collections := &fakeCollections{collections: []models.DataCollection{feed, set}}
	services := &fakeServices{services: []models.Service{
		{
			Path:             "/services/poll",
			Type:             models.ServicePoll,
			Enabled:          true,
			ProtocolBindings: []string{taxii.ProtocolHTTP10},
			MessageBindings:  []string{taxii.BindingXML11},
			CollectionNames:  []string{"indicators"},
		},
		{
			Path:             "/services/inbox",
			Type:             models.ServiceInbox,
			Enabled:          true,
			ProtocolBindings: []string{taxii.ProtocolHTTP10},
			MessageBindings:  []string{taxii.BindingXML11},
			CollectionNames:  []string{"indicators", "observables"},
		},
	}}
	return NewCollectionInformationHandler(collections, services, testLogger()), collections, services
}

func collectionExchange(svc *models.Service, msg *messages.CollectionInformationRequest) *dispatch.Request {
	return &dispatch.Request{
		Service:         svc,
		Message:         msg,
		ContentVersion:  taxii.TAXII11,
		ResponseVersion: taxii.TAXII11,
		Host:            "hub.example.com",
	}
}

func TestCollectionInformation(t *testing.T) {
	h, _, _ := newCollectionFixture(t)
	svc := managementService()
	svc.CollectionNames = nil // advertise everything

	msg, err := h.Handle(context.Background(), collectionExchange(svc, &messages.CollectionInformationRequest{MessageID: "c-1"}))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	resp := msg.(*messages.CollectionInformationResponse)
	if len(resp.Collections) != 2 {
		t.Fatalf("collections = %d", len(resp.Collections))
	}

	byName := make(map[string]messages.CollectionRecord)
	for _, rec := range resp.Collections {
		byName[rec.Name] = rec
	}

	feed := byName["indicators"]
	if feed.CollectionType != messages.CollectionTypeDataFeed || !feed.Available {
		t.Fatalf("feed record = %+v", feed)
	}
	if feed.Volume == nil || *feed.Volume != 42 {
		t.Fatalf("feed volume = %v", feed.Volume)
	}
	if len(feed.ContentBindings) != 0 {
		t.Fatal("accept-all collections advertise no explicit bindings")
	}
	if len(feed.PollingServices) != 1 || feed.PollingServices[0].Address != "http://hub.example.com/services/poll" {
		t.Fatalf("polling services = %+v", feed.PollingServices)
	}
	if len(feed.ReceivingInboxServices) != 1 {
		t.Fatalf("receiving inbox services = %+v", feed.ReceivingInboxServices)
	}

	set := byName["observables"]
	if set.CollectionType != messages.CollectionTypeDataSet {
		t.Fatalf("set record = %+v", set)
	}
	if len(set.ContentBindings) != 1 || set.ContentBindings[0].BindingID != bindingSTIX111 {
		t.Fatalf("set bindings = %+v", set.ContentBindings)
	}
	if len(set.PollingServices) != 0 {
		t.Fatal("no poll service advertises the set")
	}
}

func TestCollectionInformationScopedToService(t *testing.T) {
	h, _, _ := newCollectionFixture(t)
	svc := managementService() // advertises indicators only

	msg, err := h.Handle(context.Background(), collectionExchange(svc, &messages.CollectionInformationRequest{MessageID: "c-2"}))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	resp := msg.(*messages.CollectionInformationResponse)
	if len(resp.Collections) != 1 || resp.Collections[0].Name != "indicators" {
		t.Fatalf("scoped collections = %+v", resp.Collections)
	}
}

func TestCollectionInformationSkipsDisabled(t *testing.T) {
	h, collections, _ := newCollectionFixture(t)
	collections.collections[1].Enabled = false
	svc := managementService()
	svc.CollectionNames = nil

	msg, err := h.Handle(context.Background(), collectionExchange(svc, &messages.CollectionInformationRequest{MessageID: "c-3"}))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	resp := msg.(*messages.CollectionInformationResponse)
	if len(resp.Collections) != 1 || resp.Collections[0].Name != "indicators" {
		t.Fatalf("collections = %+v", resp.Collections)
	}
}
