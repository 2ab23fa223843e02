package handlers

import (
	"context"
	"fmt"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/dispatch"
	"taxiihub/internal/taxii/messages"
	"taxiihub/pkg/logger"
)

// CollectionInformationHandler enumerates the enabled collections the
// service advertises, cross-referencing the other services that poll,
// subscribe to or receive content for each one
type CollectionInformationHandler struct {
	collections CollectionStore
	services    ServiceDirectory
	log         *logger.Logger
}

// NewCollectionInformationHandler builds the collection information handler
func NewCollectionInformationHandler(collections CollectionStore, services ServiceDirectory, log *logger.Logger) *CollectionInformationHandler {
	return &CollectionInformationHandler{
		collections: collections,
		services:    services,
		log:         log.WithComponent("collection_information_handler"),
	}
}

func (h *CollectionInformationHandler) SupportedTypes() []messages.Type {
	return []messages.Type{messages.TypeCollectionInformationRequest}
}

func (h *CollectionInformationHandler) SupportedVersions() []taxii.Version {
	return []taxii.Version{taxii.TAXII10, taxii.TAXII11}
}

func (h *CollectionInformationHandler) Handle(ctx context.Context, req *dispatch.Request) (messages.Message, error) {
	in, ok := req.Message.(*messages.CollectionInformationRequest)
	if !ok {
		return nil, taxii.NewStatusError(taxii.StatusBadMessage, "expected a collection information request")
	}

	collections, err := h.collections.ListEnabledCollections(ctx)
	if err != nil {
		return nil, fmt.Errorf("list collections: %w", err)
	}
	services, err := h.services.ListEnabledServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	resp := &messages.CollectionInformationResponse{
		MessageID:    messages.NewID(),
		InResponseTo: in.MessageID,
	}
	for i := range collections {
		c := &collections[i]
		if len(req.Service.CollectionNames) > 0 && !req.Service.AdvertisesCollection(c.Name) {
			continue
		}
		resp.Collections = append(resp.Collections, h.record(c, services, req))
	}

	h.log.Debug().Int("collections", len(resp.Collections)).Msg("Collection information assembled")
	return resp, nil
}

// record expands one collection into its wire descriptor
func (h *CollectionInformationHandler) record(c *models.DataCollection, services []models.Service, req *dispatch.Request) messages.CollectionRecord {
	volume := c.BlockCount
	rec := messages.CollectionRecord{
		Name:           c.Name,
		CollectionType: collectionTypeAttr(c.Type),
		Available:      true,
		Description:    c.Description,
		Volume:         &volume,
	}
	if !c.AcceptAllContent {
		rec.ContentBindings = wireBindings(c.SupportedContent)
	}

	for i := range services {
		svc := &services[i]
		if !svc.AdvertisesCollection(c.Name) {
			continue
		}
		for _, protocol := range svc.ProtocolBindings {
			contact := messages.ServiceContact{
				ProtocolBinding: protocol,
				Address:         serviceAddress(protocol, req.Host, svc.Path),
				MessageBindings: svc.MessageBindings,
			}
			switch svc.Type {
			case models.ServicePoll:
				rec.PollingServices = append(rec.PollingServices, contact)
			case models.ServiceInbox:
				rec.ReceivingInboxServices = append(rec.ReceivingInboxServices, contact)
			case models.ServiceCollectionManagement:
				rec.SubscriptionServices = append(rec.SubscriptionServices, contact)
			}
		}
	}
	return rec
}

func collectionTypeAttr(t models.CollectionType) string {
	if t == models.CollectionDataSet {
		return messages.CollectionTypeDataSet
	}
	return messages.CollectionTypeDataFeed
}
