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

// DiscoveryHandler serves Discovery requests by enumerating the enabled
// services, one instance per advertised protocol binding
type DiscoveryHandler struct {
	services ServiceDirectory
	registry *dispatch.Registry
	log      *logger.Logger
}

// NewDiscoveryHandler builds the discovery handler
func NewDiscoveryHandler(services ServiceDirectory, registry *dispatch.Registry, log *logger.Logger) *DiscoveryHandler {
	return &DiscoveryHandler{
		services: services,
		registry: registry,
		log:      log.WithComponent("discovery_handler"),
	}
}

func (h *DiscoveryHandler) SupportedTypes() []messages.Type {
	return []messages.Type{messages.TypeDiscoveryRequest}
}

func (h *DiscoveryHandler) SupportedVersions() []taxii.Version {
	return []taxii.Version{taxii.TAXII10, taxii.TAXII11}
}

func (h *DiscoveryHandler) Handle(ctx context.Context, req *dispatch.Request) (messages.Message, error) {
	in, ok := req.Message.(*messages.DiscoveryRequest)
	if !ok {
		return nil, taxii.NewStatusError(taxii.StatusBadMessage, "expected a discovery request")
	}

	services, err := h.services.ListEnabledServices(ctx)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}

	resp := &messages.DiscoveryResponse{
		MessageID:    messages.NewID(),
		InResponseTo: in.MessageID,
	}
	for i := range services {
		resp.Instances = append(resp.Instances, h.instances(&services[i], req)...)
	}

	h.log.Debug().Int("instances", len(resp.Instances)).Msg("Discovery response assembled")
	return resp, nil
}

// instances expands one service into a ServiceInstance per protocol binding
func (h *DiscoveryHandler) instances(svc *models.Service, req *dispatch.Request) []messages.ServiceInstance {
	var out []messages.ServiceInstance
	for _, protocol := range svc.ProtocolBindings {
		inst := messages.ServiceInstance{
			ServiceType:     serviceTypeAttr(svc.Type),
			ServiceVersion:  req.ResponseVersion.ServicesVersion(),
			Available:       true,
			ProtocolBinding: protocol,
			Address:         serviceAddress(protocol, req.Host, svc.Path),
			MessageBindings: svc.MessageBindings,
			Message:         svc.Description,
		}
		if svc.Type == models.ServicePoll {
			inst.SupportedQuery = h.registry.TargetingExpressionIDs(svc.QueryHandlerIDs)
		}
		if svc.Type == models.ServiceInbox && !svc.AcceptAllContent {
			inst.AcceptedContent = wireBindings(svc.SupportedContent)
		}
		out = append(out, inst)
	}
	return out
}

func serviceTypeAttr(t models.ServiceType) string {
	switch t {
	case models.ServiceInbox:
		return messages.ServiceTypeInbox
	case models.ServicePoll:
		return messages.ServiceTypePoll
	case models.ServiceCollectionManagement:
		return messages.ServiceTypeCollectionManagement
	default:
		return messages.ServiceTypeDiscovery
	}
}

func serviceAddress(protocolBinding, host, path string) string {
	scheme := "http"
	if protocolBinding == taxii.ProtocolHTTPS10 {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s%s", scheme, host, path)
}

// wireBindings groups binding/subtype pairs into wire content bindings
func wireBindings(pairs []models.ContentBindingSubtype) []messages.ContentBinding {
	byBinding := make(map[string]*messages.ContentBinding)
	var order []string
	for _, p := range pairs {
		cb, ok := byBinding[p.BindingID]
		if !ok {
			cb = &messages.ContentBinding{BindingID: p.BindingID}
			byBinding[p.BindingID] = cb
			order = append(order, p.BindingID)
		}
		if p.SubtypeID != "" {
			cb.Subtypes = append(cb.Subtypes, messages.Subtype{SubtypeID: p.SubtypeID})
		}
	}
	out := make([]messages.ContentBinding, 0, len(order))
	for _, id := range order {
		out = append(out, *byBinding[id])
	}
	return out
}
