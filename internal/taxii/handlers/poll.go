package handlers

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"taxiihub/internal/config"
	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/dispatch"
	"taxiihub/internal/taxii/messages"
	"taxiihub/internal/taxii/query"
	"taxiihub/internal/taxii/results"
	"taxiihub/pkg/logger"
)

// PollHandler serves poll requests: it resolves the request parameters,
// queries and filters the collection's content, and either returns the
// matches directly or materializes a result set and returns its first part
type PollHandler struct {
	collections   CollectionStore
	blocks        BlockStore
	subscriptions SubscriptionStore
	resultStore   ResultStore
	registry      *dispatch.Registry
	cfg           config.TAXIIConfig
	log           *logger.Logger
	now           func() time.Time
}

// NewPollHandler builds the poll handler
func NewPollHandler(collections CollectionStore, blocks BlockStore, subscriptions SubscriptionStore, resultStore ResultStore, registry *dispatch.Registry, cfg config.TAXIIConfig, log *logger.Logger) *PollHandler {
	return &PollHandler{
		collections:   collections,
		blocks:        blocks,
		subscriptions: subscriptions,
		resultStore:   resultStore,
		registry:      registry,
		cfg:           cfg,
		log:           log.WithComponent("poll_handler"),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (h *PollHandler) SupportedTypes() []messages.Type {
	return []messages.Type{messages.TypePollRequest}
}

func (h *PollHandler) SupportedVersions() []taxii.Version {
	return []taxii.Version{taxii.TAXII10, taxii.TAXII11}
}

// pollParams is the resolved parameter set, whichever source it came from
type pollParams struct {
	responseType   models.ResponseType
	acceptAll      bool
	pairs          []models.ContentBindingSubtype
	rawQuery       []byte
	queryFormat    string
	subscriptionID string
	allowAsynch    bool
	hasDelivery    bool
}

func (h *PollHandler) Handle(ctx context.Context, req *dispatch.Request) (messages.Message, error) {
	in, ok := req.Message.(*messages.PollRequest)
	if !ok {
		return nil, taxii.NewStatusError(taxii.StatusBadMessage, "expected a poll request")
	}
	log := h.log.WithService(req.Service.Path).WithMessageID(in.MessageID)

	collection, err := h.resolveCollection(ctx, in.CollectionName)
	if err != nil {
		return nil, err
	}

	params, err := h.resolveParams(ctx, in)
	if err != nil {
		return nil, err
	}

	begin, end, err := h.effectiveWindow(collection, in)
	if err != nil {
		return nil, err
	}

	filter := models.BlockFilter{BeginExclusive: begin, EndInclusive: end}
	if !params.acceptAll && len(params.pairs) > 0 {
		for _, pair := range params.pairs {
			if !collection.Accepts(pair) {
				return nil, taxii.NewStatusError(taxii.StatusUnsupportedContentBinding,
					"content binding %s is not supported by collection %s", pairLabel(pair), collection.Name).
					WithDetail(taxii.DetailSupportedContent, supportedContentDetail(collection))
			}
		}
		filter.Bindings = params.pairs
	}

	blocks, err := h.blocks.QueryBlocks(ctx, collection.Name, filter)
	if err != nil {
		return nil, fmt.Errorf("query content blocks: %w", err)
	}

	if len(params.rawQuery) > 0 {
		blocks, err = h.applyQuery(req.Service, params, blocks)
		if err != nil {
			return nil, err
		}
	}

	resp := &messages.PollResponse{
		MessageID:      messages.NewID(),
		InResponseTo:   in.MessageID,
		CollectionName: collection.Name,
		SubscriptionID: params.subscriptionID,
		RecordCount:    &messages.RecordCount{Value: len(blocks)},
	}
	if collection.Type == models.CollectionDataFeed {
		if begin != nil {
			resp.ExclusiveBegin = messages.NewTimestamp(*begin)
		}
		if end != nil {
			resp.InclusiveEnd = messages.NewTimestamp(*end)
		}
	}

	if params.responseType == models.ResponseCountOnly {
		log.Info().Int("matches", len(blocks)).Msg("Poll served as count only")
		return resp, nil
	}

	// result sets exist in the 1.1 binding only; 1.0 clients get
	// everything in one response
	if req.ContentVersion == taxii.TAXII11 && len(blocks) > h.cfg.PageSize {
		return h.partitioned(ctx, in, params, collection, blocks, begin, end, log)
	}

	resp.ContentBlocks = wireBlocks(blocks)
	log.Info().Int("matches", len(blocks)).Msg("Poll served")
	return resp, nil
}

// partitioned materializes a result set and answers with its first part,
// or with a PENDING acknowledgment when results are not delivered
// synchronously
func (h *PollHandler) partitioned(ctx context.Context, in *messages.PollRequest, params *pollParams, collection *models.DataCollection, blocks []models.ContentBlock, begin, end *time.Time, log *logger.Logger) (messages.Message, error) {
	rs := results.NewResultSet(collection, blocks, params.responseType, params.subscriptionID, begin, end, h.cfg.PageSize, h.cfg.ResultRetention)

	if !h.cfg.SyncResultsReady {
		if !params.allowAsynch {
			if params.hasDelivery {
				return nil, taxii.NewStatusError(taxii.StatusFailure,
					"push delivery is not available and the request does not allow asynchronous polling")
			}
			return nil, taxii.NewStatusError(taxii.StatusFailure,
				"results are not available synchronously and the request does not allow asynchronous polling")
		}
		if err := h.resultStore.SaveResultSet(ctx, rs); err != nil {
			return nil, fmt.Errorf("save result set: %w", err)
		}
		log.Info().Str("result_id", rs.ID).Msg("Poll acknowledged as pending")
		return &messages.StatusMessage{
			MessageID:    messages.NewID(),
			InResponseTo: in.MessageID,
			StatusType:   string(taxii.StatusPending),
			Details: []messages.StatusDetail{
				{Name: taxii.DetailEstimatedWait, Value: strconv.Itoa(h.cfg.EstimatedWait)},
				{Name: taxii.DetailResultID, Value: rs.ID},
				{Name: taxii.DetailWillPush, Value: "false"},
			},
		}, nil
	}

	if err := h.resultStore.SaveResultSet(ctx, rs); err != nil {
		return nil, fmt.Errorf("save result set: %w", err)
	}

	part := rs.Part(1)
	partBlocks := blocks[:len(part.BlockIDs)]
	resp := &messages.PollResponse{
		MessageID:        messages.NewID(),
		InResponseTo:     in.MessageID,
		CollectionName:   collection.Name,
		SubscriptionID:   params.subscriptionID,
		More:             part.More,
		ResultID:         rs.ID,
		ResultPartNumber: part.Number,
		RecordCount:      &messages.RecordCount{Value: rs.TotalBlocks},
		ContentBlocks:    wireBlocks(partBlocks),
	}
	if collection.Type == models.CollectionDataFeed {
		if part.BeginLabel != nil {
			resp.ExclusiveBegin = messages.NewTimestamp(*part.BeginLabel)
		}
		if part.EndLabel != nil {
			resp.InclusiveEnd = messages.NewTimestamp(*part.EndLabel)
		}
	}

	if err := h.resultStore.SetLastPartReturned(ctx, rs.ID, 1); err != nil {
		log.Warn().Err(err).Str("result_id", rs.ID).Msg("Last part pointer not updated")
	}
	log.Info().Str("result_id", rs.ID).Int("total", rs.TotalBlocks).Int("parts", len(rs.Parts)).Msg("Poll served as result set")
	return resp, nil
}

func (h *PollHandler) resolveCollection(ctx context.Context, name string) (*models.DataCollection, error) {
	c, err := h.collections.GetCollectionByName(ctx, name)
	if err != nil {
		if errors.Is(err, taxii.ErrNotFound) {
			return nil, taxii.NewStatusError(taxii.StatusNotFound,
				"collection %s does not exist", name).WithDetail(taxii.DetailItem, name)
		}
		return nil, fmt.Errorf("resolve collection %s: %w", name, err)
	}
	if !c.Enabled {
		return nil, taxii.NewStatusError(taxii.StatusNotFound,
			"collection %s does not exist", name).WithDetail(taxii.DetailItem, name)
	}
	return c, nil
}

// resolveParams takes the parameter set from the referenced subscription or
// from the inline poll parameters; the two sources are mutually exclusive
func (h *PollHandler) resolveParams(ctx context.Context, in *messages.PollRequest) (*pollParams, error) {
	if in.SubscriptionID != "" {
		if in.PollParameters != nil {
			return nil, taxii.NewStatusError(taxii.StatusBadMessage,
				"a poll request carries either a subscription id or poll parameters, not both")
		}
		sub, err := h.subscriptions.GetSubscription(ctx, in.SubscriptionID)
		if err != nil {
			if errors.Is(err, taxii.ErrNotFound) {
				return nil, taxii.NewStatusError(taxii.StatusNotFound,
					"subscription %s does not exist", in.SubscriptionID).
					WithDetail(taxii.DetailItem, in.SubscriptionID)
			}
			return nil, fmt.Errorf("resolve subscription %s: %w", in.SubscriptionID, err)
		}
		if sub.Status != models.SubscriptionActive {
			return nil, taxii.NewStatusError(taxii.StatusFailure,
				"subscription %s is not active", in.SubscriptionID)
		}
		return &pollParams{
			responseType:   sub.ResponseType,
			acceptAll:      sub.AcceptAllContent,
			pairs:          sub.SupportedContent,
			rawQuery:       sub.Query,
			subscriptionID: sub.ID,
		}, nil
	}

	p := in.PollParameters
	if p == nil {
		return nil, taxii.NewStatusError(taxii.StatusBadMessage,
			"a poll request requires a subscription id or poll parameters")
	}
	params := &pollParams{
		responseType: models.ResponseFull,
		pairs:        pairsFromWire(p.ContentBindings),
		allowAsynch:  p.AllowAsynch,
		hasDelivery:  p.DeliveryParameters != nil,
	}
	if p.ResponseType == string(models.ResponseCountOnly) {
		params.responseType = models.ResponseCountOnly
	}
	if len(params.pairs) == 0 {
		params.acceptAll = true
	}
	if p.Query != nil {
		params.rawQuery = p.Query.Raw
		params.queryFormat = p.Query.FormatID
	}
	return params, nil
}

// effectiveWindow computes the [exclusive begin, inclusive end] label
// window for feed collections. Bounds in the future are ignored; an absent
// end defaults to now.
func (h *PollHandler) effectiveWindow(collection *models.DataCollection, in *messages.PollRequest) (*time.Time, *time.Time, error) {
	if collection.Type != models.CollectionDataFeed {
		return nil, nil, nil
	}
	now := h.now()

	var begin *time.Time
	if in.ExclusiveBegin != nil && !in.ExclusiveBegin.Time.After(now) {
		t := in.ExclusiveBegin.Time
		begin = &t
	}
	end := now
	if in.InclusiveEnd != nil && !in.InclusiveEnd.Time.After(now) {
		end = in.InclusiveEnd.Time
	}
	if begin != nil && end.Before(*begin) {
		return nil, nil, taxii.NewStatusError(taxii.StatusFailure,
			"the requested end timestamp precedes the begin timestamp")
	}
	return begin, &end, nil
}

// applyQuery parses the structured query, resolves its vocabulary to one of
// the service's query handlers and filters the candidate blocks
func (h *PollHandler) applyQuery(svc *models.Service, params *pollParams, blocks []models.ContentBlock) ([]models.ContentBlock, error) {
	if params.queryFormat != "" && params.queryFormat != query.FormatID {
		return nil, taxii.NewStatusError(taxii.StatusUnsupportedQuery,
			"query format %s is not supported", params.queryFormat).
			WithDetail(taxii.DetailSupportedQuery, query.FormatID)
	}

	dq, err := query.ParseDefaultQuery(params.rawQuery)
	if err != nil {
		return nil, taxii.NewStatusError(taxii.StatusUnsupportedQuery,
			"query could not be parsed: %v", err).
			WithDetail(taxii.DetailSupportedQuery, query.FormatID)
	}

	qh, ok := h.registry.QueryHandlerByExpression(svc.QueryHandlerIDs, dq.TargetingExpressionID)
	if !ok {
		supported := h.registry.TargetingExpressionIDs(svc.QueryHandlerIDs)
		return nil, taxii.NewStatusError(taxii.StatusUnsupportedTargetingExpressionID,
			"targeting expression vocabulary %s is not supported", dq.TargetingExpressionID).
			WithDetail(taxii.DetailTargetingExpressionID, strings.Join(supported, ","))
	}

	return qh.FilterContent(blocks, dq)
}

func pairsFromWire(bindings []messages.ContentBinding) []models.ContentBindingSubtype {
	var pairs []models.ContentBindingSubtype
	for _, cb := range bindings {
		if len(cb.Subtypes) == 0 {
			pairs = append(pairs, models.ContentBindingSubtype{BindingID: cb.BindingID})
			continue
		}
		for _, st := range cb.Subtypes {
			pairs = append(pairs, models.ContentBindingSubtype{BindingID: cb.BindingID, SubtypeID: st.SubtypeID})
		}
	}
	return pairs
}

func pairLabel(p models.ContentBindingSubtype) string {
	if p.SubtypeID != "" {
		return p.BindingID + ">" + p.SubtypeID
	}
	return p.BindingID
}

func supportedContentDetail(c *models.DataCollection) string {
	if c.AcceptAllContent {
		return "ALL"
	}
	labels := make([]string, len(c.SupportedContent))
	for i, p := range c.SupportedContent {
		labels[i] = pairLabel(p)
	}
	return strings.Join(labels, ",")
}

func wireBlocks(blocks []models.ContentBlock) []messages.ContentBlock {
	out := make([]messages.ContentBlock, len(blocks))
	for i, b := range blocks {
		wire := messages.ContentBlock{
			Binding: messages.ContentBinding{BindingID: b.Binding.BindingID},
			Content: messages.Content{Raw: b.Content},
			Message: b.Message,
			Padding: b.Padding,
		}
		if b.Binding.SubtypeID != "" {
			wire.Binding.Subtypes = []messages.Subtype{{SubtypeID: b.Binding.SubtypeID}}
		}
		label := b.TimestampLabel
		wire.TimestampLabel = messages.NewTimestamp(label)
		out[i] = wire
	}
	return out
}
