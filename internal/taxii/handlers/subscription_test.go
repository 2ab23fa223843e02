package handlers

import (
	"context"
	"testing"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/dispatch"
	"taxiihub/internal/taxii/messages"
)

func managementService() *models.Service {
	return &models.Service{
		Path:            "/services/collection-management",
		Type:            models.ServiceCollectionManagement,
		Enabled:         true,
		CollectionNames: []string{"indicators"},
	}
}

type subscriptionFixture struct {
	handler     *SubscriptionHandler
	collections *fakeCollections
	subs        *fakeSubscriptions
	services    *fakeServices
}

func newSubscriptionFixture(t *testing.T) *subscriptionFixture {
	t.Helper()
	f := &subscriptionFixture{
		collections: &fakeCollections{collections: []models.DataCollection{feedCollection()}},
		subs:        &fakeSubscriptions{},
		services: &fakeServices{services: []models.Service{{
			Path:             "/services/poll",
			Type:             models.ServicePoll,
			Enabled:          true,
			ProtocolBindings: []string{taxii.ProtocolHTTP10},
			MessageBindings:  []string{taxii.BindingXML11},
			CollectionNames:  []string{"indicators"},
		}}},
	}
	f.handler = NewSubscriptionHandler(f.collections, f.subs, f.services, testLogger())
	return f
}

func subscriptionRequest(msg *messages.ManageSubscriptionRequest) *dispatch.Request {
	return &dispatch.Request{
		Service:         managementService(),
		Message:         msg,
		ContentVersion:  taxii.TAXII11,
		ResponseVersion: taxii.TAXII11,
		Host:            "hub.example.com",
	}
}

func manage(action, collection, subscriptionID string) *messages.ManageSubscriptionRequest {
	return &messages.ManageSubscriptionRequest{
		MessageID:      messages.NewID(),
		CollectionName: collection,
		Action:         action,
		SubscriptionID: subscriptionID,
	}
}

func TestSubscribeCreatesSubscription(t *testing.T) {
	f := newSubscriptionFixture(t)

	msg, err := f.handler.Handle(context.Background(), subscriptionRequest(manage(messages.ActionSubscribe, "indicators", "")))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	resp := msg.(*messages.ManageSubscriptionResponse)
	if len(resp.Subscriptions) != 1 {
		t.Fatalf("subscriptions = %d", len(resp.Subscriptions))
	}
	inst := resp.Subscriptions[0]
	if inst.Status != subscriptionStatusActive || inst.SubscriptionID == "" {
		t.Fatalf("instance = %+v", inst)
	}
	if len(inst.PollInstances) != 1 || inst.PollInstances[0].Address != "http://hub.example.com/services/poll" {
		t.Fatalf("poll instances = %+v", inst.PollInstances)
	}
	if len(f.subs.created) != 1 || !f.subs.created[0].AcceptAllContent {
		t.Fatalf("created = %+v", f.subs.created)
	}
}

func TestSubscribeReusesEquivalentSubscription(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.subs.subs = []models.Subscription{{
		ID:               "s-1",
		CollectionName:   "indicators",
		ResponseType:     models.ResponseFull,
		AcceptAllContent: true,
		Status:           models.SubscriptionActive,
	}}

	msg, err := f.handler.Handle(context.Background(), subscriptionRequest(manage(messages.ActionSubscribe, "indicators", "")))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	resp := msg.(*messages.ManageSubscriptionResponse)
	if resp.Subscriptions[0].SubscriptionID != "s-1" {
		t.Fatalf("expected the existing subscription, got %q", resp.Subscriptions[0].SubscriptionID)
	}
	if len(f.subs.created) != 0 {
		t.Fatal("an equivalent subscription must not be duplicated")
	}
}

func TestSubscribeDoesNotReuseNarrowerSubscription(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.subs.subs = []models.Subscription{{
		ID:               "s-1",
		CollectionName:   "indicators",
		ResponseType:     models.ResponseFull,
		SupportedContent: []models.ContentBindingSubtype{{BindingID: bindingSTIX111, SubtypeID: "indicator"}},
		Status:           models.SubscriptionActive,
	}}

	in := manage(messages.ActionSubscribe, "indicators", "")
	in.SubscriptionParameters = &messages.SubscriptionParameters{
		ContentBindings: []messages.ContentBinding{{BindingID: bindingSTIX111}},
	}

	msg, err := f.handler.Handle(context.Background(), subscriptionRequest(in))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	resp := msg.(*messages.ManageSubscriptionResponse)
	if resp.Subscriptions[0].SubscriptionID == "s-1" {
		t.Fatal("a subtype-limited subscription must not stand in for a whole-binding one")
	}
	if len(f.subs.created) != 1 {
		t.Fatalf("created = %d, want a new subscription", len(f.subs.created))
	}
}

func TestSubscribeRejectsUnsupportedBinding(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.collections.collections[0].AcceptAllContent = false
	f.collections.collections[0].SupportedContent = []models.ContentBindingSubtype{{BindingID: bindingSTIX111}}

	in := manage(messages.ActionSubscribe, "indicators", "")
	in.SubscriptionParameters = &messages.SubscriptionParameters{
		ContentBindings: []messages.ContentBinding{{BindingID: "urn:example:other"}},
	}

	_, err := f.handler.Handle(context.Background(), subscriptionRequest(in))
	se := wantStatus(t, err, taxii.StatusUnsupportedContentBinding)
	if se.Details[taxii.DetailSupportedContent] != bindingSTIX111 {
		t.Fatalf("SUPPORTED_CONTENT detail = %q", se.Details[taxii.DetailSupportedContent])
	}
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	f := newSubscriptionFixture(t)

	msg, err := f.handler.Handle(context.Background(), subscriptionRequest(manage(messages.ActionUnsubscribe, "indicators", "never-existed")))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	resp := msg.(*messages.ManageSubscriptionResponse)
	if resp.Subscriptions[0].Status != subscriptionStatusUnsubscribed {
		t.Fatalf("status = %q", resp.Subscriptions[0].Status)
	}
}

func TestUnsubscribeExisting(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.subs.subs = []models.Subscription{{
		ID:             "s-1",
		CollectionName: "indicators",
		Status:         models.SubscriptionActive,
	}}

	msg, err := f.handler.Handle(context.Background(), subscriptionRequest(manage(messages.ActionUnsubscribe, "indicators", "s-1")))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	resp := msg.(*messages.ManageSubscriptionResponse)
	if resp.Subscriptions[0].Status != subscriptionStatusUnsubscribed {
		t.Fatalf("status = %q", resp.Subscriptions[0].Status)
	}
	if f.subs.statuses["s-1"] != models.SubscriptionUnsubscribed {
		t.Fatal("store status not updated")
	}
}

func TestPauseAndResume(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.subs.subs = []models.Subscription{{
		ID:             "s-1",
		CollectionName: "indicators",
		Status:         models.SubscriptionActive,
	}}

	msg, err := f.handler.Handle(context.Background(), subscriptionRequest(manage(messages.ActionPause, "indicators", "s-1")))
	if err != nil {
		t.Fatalf("pause failed: %v", err)
	}
	if msg.(*messages.ManageSubscriptionResponse).Subscriptions[0].Status != subscriptionStatusPaused {
		t.Fatal("pause not reflected")
	}

	msg, err = f.handler.Handle(context.Background(), subscriptionRequest(manage(messages.ActionResume, "indicators", "s-1")))
	if err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	if msg.(*messages.ManageSubscriptionResponse).Subscriptions[0].Status != subscriptionStatusActive {
		t.Fatal("resume not reflected")
	}
}

func TestPauseRequiresSubscriptionID(t *testing.T) {
	f := newSubscriptionFixture(t)

	_, err := f.handler.Handle(context.Background(), subscriptionRequest(manage(messages.ActionPause, "indicators", "")))
	wantStatus(t, err, taxii.StatusBadMessage)
}

func TestPauseForeignSubscriptionLooksAbsent(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.subs.subs = []models.Subscription{{
		ID:             "s-1",
		CollectionName: "observables",
		Status:         models.SubscriptionActive,
	}}

	_, err := f.handler.Handle(context.Background(), subscriptionRequest(manage(messages.ActionPause, "indicators", "s-1")))
	se := wantStatus(t, err, taxii.StatusNotFound)
	if se.Details[taxii.DetailItem] != "s-1" {
		t.Fatalf("ITEM detail = %q", se.Details[taxii.DetailItem])
	}
}

func TestStatusListsAllSubscriptions(t *testing.T) {
	f := newSubscriptionFixture(t)
	f.subs.subs = []models.Subscription{
		{ID: "s-1", CollectionName: "indicators", Status: models.SubscriptionActive},
		{ID: "s-2", CollectionName: "indicators", Status: models.SubscriptionPaused},
		{ID: "s-3", CollectionName: "observables", Status: models.SubscriptionActive},
	}

	msg, err := f.handler.Handle(context.Background(), subscriptionRequest(manage(messages.ActionStatus, "indicators", "")))
	if err != nil {
		t.Fatalf("handle failed: %v", err)
	}
	resp := msg.(*messages.ManageSubscriptionResponse)
	if len(resp.Subscriptions) != 2 {
		t.Fatalf("listed %d subscriptions, want the collection's 2", len(resp.Subscriptions))
	}
}

func TestUnknownSubscriptionAction(t *testing.T) {
	f := newSubscriptionFixture(t)

	_, err := f.handler.Handle(context.Background(), subscriptionRequest(manage("DESTROY", "indicators", "")))
	wantStatus(t, err, taxii.StatusBadMessage)
}

func TestSubscriptionUnknownCollection(t *testing.T) {
	f := newSubscriptionFixture(t)

	_, err := f.handler.Handle(context.Background(), subscriptionRequest(manage(messages.ActionSubscribe, "missing", "")))
	se := wantStatus(t, err, taxii.StatusNotFound)
	if se.Details[taxii.DetailItem] != "missing" {
		t.Fatalf("ITEM detail = %q", se.Details[taxii.DetailItem])
	}
}
