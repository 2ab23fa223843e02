package handlers

import (
	"context"
	"testing"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/dispatch"
	"taxiihub/internal/taxii/messages"
	"taxiihub/internal/taxii/query"
)

func newDiscoveryFixture(t *testing.T, services []models.Service) (*DiscoveryHandler, *fakeServices) {
	t.Helper()
	log := testLogger()
	reg := dispatch.NewRegistry(log)
	reg.RegisterQueryHandler(query.NewHandler("stix-1.1.1", query.TargetingExpressionSTIX111, query.STIX111Schema(), log), "stix 1.1.1 queries")

	dir := &fakeServices{services: services}
	return NewDiscoveryHandler(dir, reg, log), dir
}

func discoveryExchange(msg *messages.DiscoveryRequest) *dispatch.Request {
	return &dispatch.Request{
		Service:         &models.Service{Path: "/services/discovery", Type: models.ServiceDiscovery, Enabled: true},
		Message:         msg,
		ContentVersion:  taxii.TAXII11,
		ResponseVersion: taxii.TAXII11,
		Host:            "hub.example.com",
	}
}

func TestDiscoveryListsServiceInstances(t *testing.T) {
	h, _ := newDiscoveryFixture(t, []models.Service{
		{
			Path:             "/services/poll",
			Type:             models.ServicePoll,
			Enabled:          true,
			ProtocolBindings: []string{taxii.ProtocolHTTP10, taxii.ProtocolHTTPS10},
			MessageBindings:  []string{taxii.BindingXML10, taxii.BindingXML11},
			QueryHandlerIDs:  []string{"stix-1.1.1"},
		},
		{
			Path:             "/services/inbox",
			Type:             models.ServiceInbox,
			Enabled:          true,
			ProtocolBindings: []string{taxii.ProtocolHTTP10},
			MessageBindings:  []string{taxii.BindingXML11},
			SupportedContent: []models.ContentBindingSubtype{{BindingID: bindingSTIX111}},
		},
	})

	msg, err := h.Handle(context.Background(), discoveryExchange(&messages.DiscoveryRequest{MessageID: "d-1"}))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	resp := msg.(*messages.DiscoveryResponse)
	if resp.InResponseTo != "d-1" {
		t.Fatalf("in_response_to = %q", resp.InResponseTo)
	}
	// one instance per protocol binding
	if len(resp.Instances) != 3 {
		t.Fatalf("instances = %d, want 3", len(resp.Instances))
	}

	byAddress := make(map[string]messages.ServiceInstance)
	for _, inst := range resp.Instances {
		byAddress[inst.Address] = inst
	}
	poll, ok := byAddress["https://hub.example.com/services/poll"]
	if !ok {
		t.Fatalf("https poll instance missing: %v", byAddress)
	}
	if poll.ServiceType != messages.ServiceTypePoll || poll.ServiceVersion != taxii.ServicesVersion11 {
		t.Fatalf("poll instance = %+v", poll)
	}
	if len(poll.SupportedQuery) != 1 || poll.SupportedQuery[0] != query.TargetingExpressionSTIX111 {
		t.Fatalf("supported query = %v", poll.SupportedQuery)
	}

	inbox := byAddress["http://hub.example.com/services/inbox"]
	if inbox.ServiceType != messages.ServiceTypeInbox {
		t.Fatalf("inbox instance = %+v", inbox)
	}
	if len(inbox.AcceptedContent) != 1 || inbox.AcceptedContent[0].BindingID != bindingSTIX111 {
		t.Fatalf("accepted content = %+v", inbox.AcceptedContent)
	}
}

func TestDiscoveryEmptyDirectory(t *testing.T) {
	h, _ := newDiscoveryFixture(t, nil)

	msg, err := h.Handle(context.Background(), discoveryExchange(&messages.DiscoveryRequest{MessageID: "d-2"}))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	if n := len(msg.(*messages.DiscoveryResponse).Instances); n != 0 {
		t.Fatalf("instances = %d", n)
	}
}

func TestDiscoveryStoreError(t *testing.T) {
	h, dir := newDiscoveryFixture(t, nil)
	dir.err = errStoreDown

	_, err := h.Handle(context.Background(), discoveryExchange(&messages.DiscoveryRequest{MessageID: "d-3"}))
	if err == nil {
		t.Fatal("expected the store error to surface")
	}
	if _, ok := taxii.AsStatusError(err); ok {
		t.Fatal("an infrastructure error must not be a protocol status")
	}
}
