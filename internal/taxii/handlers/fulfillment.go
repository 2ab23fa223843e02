package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/dispatch"
	"taxiihub/internal/taxii/messages"
	"taxiihub/pkg/logger"
)

// FulfillmentHandler serves poll fulfillment requests by reading parts back
// out of a materialized result set. The exchange exists in TAXII 1.1 only.
type FulfillmentHandler struct {
	blocks      BlockStore
	resultStore ResultStore
	log         *logger.Logger
}

// NewFulfillmentHandler builds the fulfillment handler
func NewFulfillmentHandler(blocks BlockStore, resultStore ResultStore, log *logger.Logger) *FulfillmentHandler {
	return &FulfillmentHandler{
		blocks:      blocks,
		resultStore: resultStore,
		log:         log.WithComponent("fulfillment_handler"),
	}
}

func (h *FulfillmentHandler) SupportedTypes() []messages.Type {
	return []messages.Type{messages.TypePollFulfillmentRequest}
}

func (h *FulfillmentHandler) SupportedVersions() []taxii.Version {
	return []taxii.Version{taxii.TAXII11}
}

func (h *FulfillmentHandler) Handle(ctx context.Context, req *dispatch.Request) (messages.Message, error) {
	in, ok := req.Message.(*messages.PollFulfillmentRequest)
	if !ok {
		return nil, taxii.NewStatusError(taxii.StatusBadMessage, "expected a poll fulfillment request")
	}
	log := h.log.WithService(req.Service.Path).WithMessageID(in.MessageID)

	rs, err := h.resultStore.GetResultSet(ctx, in.ResultID)
	if err != nil {
		if errors.Is(err, taxii.ErrNotFound) {
			return nil, taxii.NewStatusError(taxii.StatusNotFound,
				"result set %s does not exist", in.ResultID).
				WithDetail(taxii.DetailItem, in.ResultID)
		}
		return nil, fmt.Errorf("resolve result set %s: %w", in.ResultID, err)
	}
	if in.CollectionName != "" && in.CollectionName != rs.CollectionName {
		return nil, taxii.NewStatusError(taxii.StatusNotFound,
			"result set %s does not belong to collection %s", in.ResultID, in.CollectionName).
			WithDetail(taxii.DetailItem, in.CollectionName)
	}

	part := rs.Part(in.ResultPartNumber)
	if part == nil {
		return nil, taxii.NewStatusError(taxii.StatusNotFound,
			"result set %s has no part %d", in.ResultID, in.ResultPartNumber).
			WithDetail(taxii.DetailItem, strconv.Itoa(in.ResultPartNumber)).
			WithDetail(taxii.DetailMaxPartNumber, strconv.Itoa(len(rs.Parts)))
	}

	blocks, err := h.blocks.GetBlocksByIDs(ctx, part.BlockIDs)
	if err != nil {
		return nil, fmt.Errorf("load part %d of result set %s: %w", part.Number, rs.ID, err)
	}

	resp := &messages.PollResponse{
		MessageID:        messages.NewID(),
		InResponseTo:     in.MessageID,
		CollectionName:   rs.CollectionName,
		SubscriptionID:   rs.SubscriptionID,
		More:             part.More,
		ResultID:         rs.ID,
		ResultPartNumber: part.Number,
		RecordCount:      &messages.RecordCount{Value: rs.TotalBlocks},
		ContentBlocks:    wireBlocks(blocks),
	}
	if part.BeginLabel != nil {
		resp.ExclusiveBegin = messages.NewTimestamp(*part.BeginLabel)
	}
	if part.EndLabel != nil {
		resp.InclusiveEnd = messages.NewTimestamp(*part.EndLabel)
	}

	if err := h.resultStore.SetLastPartReturned(ctx, rs.ID, part.Number); err != nil {
		log.Warn().Err(err).Str("result_id", rs.ID).Msg("Last part pointer not updated")
	}
	log.Info().Str("result_id", rs.ID).Int("part", part.Number).Bool("more", part.More).Msg("Fulfillment served")
	return resp, nil
}
