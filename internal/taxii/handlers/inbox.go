package handlers

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/dispatch"
	"taxiihub/internal/taxii/messages"
	"taxiihub/pkg/logger"
)

// InboxHandler accepts pushed content blocks, persists the acceptable ones
// and records an audit trail of the exchange
type InboxHandler struct {
	collections CollectionStore
	blocks      BlockStore
	inbox       InboxStore
	events      EventPublisher
	log         *logger.Logger
}

// NewInboxHandler builds the inbox handler. events may be nil when event
// delivery is disabled.
func NewInboxHandler(collections CollectionStore, blocks BlockStore, inbox InboxStore, events EventPublisher, log *logger.Logger) *InboxHandler {
	return &InboxHandler{
		collections: collections,
		blocks:      blocks,
		inbox:       inbox,
		events:      events,
		log:         log.WithComponent("inbox_handler"),
	}
}

func (h *InboxHandler) SupportedTypes() []messages.Type {
	return []messages.Type{messages.TypeInboxMessage}
}

func (h *InboxHandler) SupportedVersions() []taxii.Version {
	return []taxii.Version{taxii.TAXII10, taxii.TAXII11}
}

func (h *InboxHandler) Handle(ctx context.Context, req *dispatch.Request) (messages.Message, error) {
	in, ok := req.Message.(*messages.InboxMessage)
	if !ok {
		return nil, taxii.NewStatusError(taxii.StatusBadMessage, "expected an inbox message")
	}
	svc := req.Service
	log := h.log.WithService(svc.Path).WithMessageID(in.MessageID)

	destinations, err := h.resolveDestinations(ctx, svc, in)
	if err != nil {
		return nil, err
	}

	saved := 0
	for i := range in.ContentBlocks {
		wire := &in.ContentBlocks[i]
		pair := models.ContentBindingSubtype{BindingID: wire.Binding.BindingID}
		if len(wire.Binding.Subtypes) > 0 {
			pair.SubtypeID = wire.Binding.Subtypes[0].SubtypeID
		}
		if pair.BindingID == "" {
			log.Debug().Msg("Content block without a binding id, skipped")
			continue
		}

		// collections that independently accept this pairing
		var accepting []string
		for _, c := range destinations {
			if c.Accepts(pair) {
				accepting = append(accepting, c.Name)
			}
		}
		if len(destinations) > 0 && len(accepting) == 0 {
			log.Debug().Str("binding_id", pair.BindingID).Msg("No destination collection accepts the block, skipped")
			continue
		}
		if len(destinations) == 0 && !svc.AcceptAllContent && !svc.SupportsContent(pair) {
			log.Debug().Str("binding_id", pair.BindingID).Msg("Service does not accept the unaddressed block, skipped")
			continue
		}

		block := blockFromWire(wire, pair)
		if err := h.blocks.CreateWithAssociations(ctx, block, accepting); err != nil {
			return nil, fmt.Errorf("persist content block: %w", err)
		}
		saved++

		if h.events != nil {
			ev := ContentEvent{
				BlockID:     block.ID.String(),
				BindingID:   pair.BindingID,
				Collections: accepting,
				ServicePath: svc.Path,
				ReceivedAt:  block.CreatedAt,
			}
			if err := h.events.PublishContentReceived(ctx, ev); err != nil {
				log.Warn().Err(err).Msg("Content event not published")
			}
		}
	}

	record := &models.InboxRecord{
		ID:              uuid.New(),
		MessageID:       in.MessageID,
		ServicePath:     svc.Path,
		ResultID:        in.ResultID,
		CollectionNames: in.DestinationCollectionNames,
		BlocksReceived:  len(in.ContentBlocks),
		BlocksSaved:     saved,
		ReceivedAt:      time.Now().UTC(),
	}
	if in.RecordCount != nil {
		record.RecordCount = in.RecordCount.Value
	}
	if err := h.inbox.RecordInbox(ctx, record); err != nil {
		return nil, fmt.Errorf("record inbox exchange: %w", err)
	}

	log.Info().Int("received", record.BlocksReceived).Int("saved", saved).Msg("Inbox message processed")
	return &messages.StatusMessage{
		MessageID:    messages.NewID(),
		InResponseTo: in.MessageID,
		StatusType:   string(taxii.StatusSuccess),
	}, nil
}

// resolveDestinations validates the destination names against the service
// policy and resolves them to collections
func (h *InboxHandler) resolveDestinations(ctx context.Context, svc *models.Service, in *messages.InboxMessage) ([]*models.DataCollection, error) {
	names := in.DestinationCollectionNames

	switch svc.DestinationPolicy {
	case models.DestinationRequired:
		if len(names) == 0 {
			return nil, taxii.NewStatusError(taxii.StatusDestinationCollectionError,
				"this service requires at least one destination collection name").
				WithDetail(taxii.DetailAcceptableDestination, strings.Join(svc.CollectionNames, ","))
		}
	case models.DestinationProhibited:
		if len(names) > 0 {
			return nil, taxii.NewStatusError(taxii.StatusDestinationCollectionError,
				"this service does not accept destination collection names")
		}
	}

	out := make([]*models.DataCollection, 0, len(names))
	for _, name := range names {
		c, err := h.collections.GetCollectionByName(ctx, name)
		if err != nil {
			if errors.Is(err, taxii.ErrNotFound) {
				return nil, taxii.NewStatusError(taxii.StatusNotFound,
					"destination collection %s does not exist", name).
					WithDetail(taxii.DetailItem, name)
			}
			return nil, fmt.Errorf("resolve collection %s: %w", name, err)
		}
		if !c.Enabled {
			return nil, taxii.NewStatusError(taxii.StatusNotFound,
				"destination collection %s does not exist", name).
				WithDetail(taxii.DetailItem, name)
		}
		out = append(out, c)
	}
	return out, nil
}

func blockFromWire(wire *messages.ContentBlock, pair models.ContentBindingSubtype) *models.ContentBlock {
	now := time.Now().UTC()
	label := now
	if wire.TimestampLabel != nil {
		label = wire.TimestampLabel.Time
	}
	return &models.ContentBlock{
		ID:             uuid.New(),
		Binding:        pair,
		Content:        wire.Content.Raw,
		TimestampLabel: label,
		Message:        wire.Message,
		Padding:        wire.Padding,
		CreatedAt:      now,
	}
}
