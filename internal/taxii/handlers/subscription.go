package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/dispatch"
	"taxiihub/internal/taxii/messages"
	"taxiihub/internal/taxii/query"
	"taxiihub/pkg/logger"
)

// Subscription status attribute values on the wire
const (
	subscriptionStatusActive       = "ACTIVE"
	subscriptionStatusPaused       = "PAUSED"
	subscriptionStatusUnsubscribed = "UNSUBSCRIBED"
)

// SubscriptionHandler drives the subscription lifecycle for a collection
type SubscriptionHandler struct {
	collections   CollectionStore
	subscriptions SubscriptionStore
	services      ServiceDirectory
	log           *logger.Logger
}

// NewSubscriptionHandler builds the subscription management handler
func NewSubscriptionHandler(collections CollectionStore, subscriptions SubscriptionStore, services ServiceDirectory, log *logger.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		collections:   collections,
		subscriptions: subscriptions,
		services:      services,
		log:           log.WithComponent("subscription_handler"),
	}
}

func (h *SubscriptionHandler) SupportedTypes() []messages.Type {
	return []messages.Type{messages.TypeManageSubscriptionRequest}
}

func (h *SubscriptionHandler) SupportedVersions() []taxii.Version {
	return []taxii.Version{taxii.TAXII10, taxii.TAXII11}
}

func (h *SubscriptionHandler) Handle(ctx context.Context, req *dispatch.Request) (messages.Message, error) {
	in, ok := req.Message.(*messages.ManageSubscriptionRequest)
	if !ok {
		return nil, taxii.NewStatusError(taxii.StatusBadMessage, "expected a manage subscription request")
	}
	log := h.log.WithService(req.Service.Path).WithMessageID(in.MessageID)

	collection, err := h.collections.GetCollectionByName(ctx, in.CollectionName)
	if err != nil {
		if errors.Is(err, taxii.ErrNotFound) {
			return nil, taxii.NewStatusError(taxii.StatusNotFound,
				"collection %s does not exist", in.CollectionName).
				WithDetail(taxii.DetailItem, in.CollectionName)
		}
		return nil, fmt.Errorf("resolve collection %s: %w", in.CollectionName, err)
	}

	var subs []models.Subscription
	switch in.Action {
	case messages.ActionSubscribe:
		subs, err = h.subscribe(ctx, collection, in)
	case messages.ActionUnsubscribe:
		subs, err = h.unsubscribe(ctx, in)
	case messages.ActionPause:
		subs, err = h.setStatus(ctx, collection, in, models.SubscriptionPaused)
	case messages.ActionResume:
		subs, err = h.setStatus(ctx, collection, in, models.SubscriptionActive)
	case messages.ActionStatus:
		subs, err = h.status(ctx, collection, in)
	default:
		err = taxii.NewStatusError(taxii.StatusBadMessage, "unknown subscription action %q", in.Action)
	}
	if err != nil {
		return nil, err
	}

	resp := &messages.ManageSubscriptionResponse{
		MessageID:      messages.NewID(),
		InResponseTo:   in.MessageID,
		CollectionName: collection.Name,
	}
	pollInstances := h.pollInstances(ctx, collection.Name, req)
	for i := range subs {
		resp.Subscriptions = append(resp.Subscriptions, wireSubscription(&subs[i], pollInstances))
	}

	log.Info().Str("action", in.Action).Int("subscriptions", len(resp.Subscriptions)).Msg("Subscription action served")
	return resp, nil
}

// subscribe validates the requested content filter, reuses an equivalent
// existing subscription if one exists and creates a new one otherwise
func (h *SubscriptionHandler) subscribe(ctx context.Context, collection *models.DataCollection, in *messages.ManageSubscriptionRequest) ([]models.Subscription, error) {
	requested := &models.Subscription{
		ID:             uuid.NewString(),
		CollectionName: collection.Name,
		ResponseType:   models.ResponseFull,
		Status:         models.SubscriptionActive,
	}
	if p := in.SubscriptionParameters; p != nil {
		if p.ResponseType == string(models.ResponseCountOnly) {
			requested.ResponseType = models.ResponseCountOnly
		}
		requested.SupportedContent = pairsFromWire(p.ContentBindings)
		if p.Query != nil {
			requested.Query = p.Query.Raw
		}
	}
	if len(requested.SupportedContent) == 0 {
		requested.AcceptAllContent = true
	}

	for _, pair := range requested.SupportedContent {
		if !collection.Accepts(pair) {
			return nil, taxii.NewStatusError(taxii.StatusUnsupportedContentBinding,
				"content binding %s is not supported by collection %s", pairLabel(pair), collection.Name).
				WithDetail(taxii.DetailSupportedContent, supportedContentDetail(collection))
		}
	}

	existing, err := h.subscriptions.ListSubscriptionsByCollection(ctx, collection.Name)
	if err != nil {
		return nil, fmt.Errorf("list subscriptions: %w", err)
	}
	for i := range existing {
		s := &existing[i]
		if s.Status == models.SubscriptionActive && s.EquivalentTo(requested) {
			return []models.Subscription{*s}, nil
		}
	}

	now := time.Now().UTC()
	requested.CreatedAt = now
	requested.UpdatedAt = now
	if err := h.subscriptions.CreateSubscription(ctx, requested); err != nil {
		return nil, fmt.Errorf("create subscription: %w", err)
	}
	return []models.Subscription{*requested}, nil
}

// unsubscribe always succeeds, whether or not the subscription exists
func (h *SubscriptionHandler) unsubscribe(ctx context.Context, in *messages.ManageSubscriptionRequest) ([]models.Subscription, error) {
	placeholder := models.Subscription{
		ID:             in.SubscriptionID,
		CollectionName: in.CollectionName,
		Status:         models.SubscriptionUnsubscribed,
	}
	if in.SubscriptionID == "" {
		return []models.Subscription{placeholder}, nil
	}

	sub, err := h.subscriptions.GetSubscription(ctx, in.SubscriptionID)
	if err != nil {
		if errors.Is(err, taxii.ErrNotFound) {
			return []models.Subscription{placeholder}, nil
		}
		return nil, fmt.Errorf("resolve subscription %s: %w", in.SubscriptionID, err)
	}
	if sub.Status != models.SubscriptionUnsubscribed {
		if err := h.subscriptions.SetSubscriptionStatus(ctx, sub.ID, models.SubscriptionUnsubscribed); err != nil {
			return nil, fmt.Errorf("unsubscribe %s: %w", sub.ID, err)
		}
	}
	sub.Status = models.SubscriptionUnsubscribed
	return []models.Subscription{*sub}, nil
}

// setStatus backs the idempotent PAUSE and RESUME actions
func (h *SubscriptionHandler) setStatus(ctx context.Context, collection *models.DataCollection, in *messages.ManageSubscriptionRequest, status models.SubscriptionStatus) ([]models.Subscription, error) {
	sub, err := h.resolveForCollection(ctx, collection, in.SubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub.Status != status {
		if err := h.subscriptions.SetSubscriptionStatus(ctx, sub.ID, status); err != nil {
			return nil, fmt.Errorf("set subscription %s status: %w", sub.ID, err)
		}
		sub.Status = status
	}
	return []models.Subscription{*sub}, nil
}

func (h *SubscriptionHandler) status(ctx context.Context, collection *models.DataCollection, in *messages.ManageSubscriptionRequest) ([]models.Subscription, error) {
	if in.SubscriptionID == "" {
		subs, err := h.subscriptions.ListSubscriptionsByCollection(ctx, collection.Name)
		if err != nil {
			return nil, fmt.Errorf("list subscriptions: %w", err)
		}
		return subs, nil
	}
	sub, err := h.resolveForCollection(ctx, collection, in.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return []models.Subscription{*sub}, nil
}

func (h *SubscriptionHandler) resolveForCollection(ctx context.Context, collection *models.DataCollection, id string) (*models.Subscription, error) {
	if id == "" {
		return nil, taxii.NewStatusError(taxii.StatusBadMessage, "a subscription id is required")
	}
	sub, err := h.subscriptions.GetSubscription(ctx, id)
	if err != nil {
		if errors.Is(err, taxii.ErrNotFound) {
			return nil, taxii.NewStatusError(taxii.StatusNotFound,
				"subscription %s does not exist", id).WithDetail(taxii.DetailItem, id)
		}
		return nil, fmt.Errorf("resolve subscription %s: %w", id, err)
	}
	if sub.CollectionName != collection.Name {
		return nil, taxii.NewStatusError(taxii.StatusNotFound,
			"subscription %s does not exist", id).WithDetail(taxii.DetailItem, id)
	}
	return sub, nil
}

// pollInstances lists the poll services a subscriber can collect from
func (h *SubscriptionHandler) pollInstances(ctx context.Context, collectionName string, req *dispatch.Request) []messages.ServiceContact {
	services, err := h.services.ListEnabledServices(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("Poll instances not resolved")
		return nil
	}
	var out []messages.ServiceContact
	for i := range services {
		svc := &services[i]
		if svc.Type != models.ServicePoll || !svc.AdvertisesCollection(collectionName) {
			continue
		}
		for _, protocol := range svc.ProtocolBindings {
			out = append(out, messages.ServiceContact{
				ProtocolBinding: protocol,
				Address:         serviceAddress(protocol, req.Host, svc.Path),
				MessageBindings: svc.MessageBindings,
			})
		}
	}
	return out
}

func wireSubscription(sub *models.Subscription, pollInstances []messages.ServiceContact) messages.SubscriptionInstance {
	inst := messages.SubscriptionInstance{
		Status:         wireSubscriptionStatus(sub.Status),
		SubscriptionID: sub.ID,
		PollInstances:  pollInstances,
	}
	params := &messages.SubscriptionParameters{
		ResponseType: string(sub.ResponseType),
	}
	if !sub.AcceptAllContent {
		params.ContentBindings = wireBindings(sub.SupportedContent)
	}
	if len(sub.Query) > 0 {
		params.Query = &messages.Query{FormatID: query.FormatID, Raw: sub.Query}
	}
	inst.SubscriptionParameters = params
	return inst
}

func wireSubscriptionStatus(s models.SubscriptionStatus) string {
	switch s {
	case models.SubscriptionPaused:
		return subscriptionStatusPaused
	case models.SubscriptionUnsubscribed:
		return subscriptionStatusUnsubscribed
	default:
		return subscriptionStatusActive
	}
}
