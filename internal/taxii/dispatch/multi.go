package dispatch

import (
	"context"

	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/messages"
)

// MultiHandler composes several message handlers behind one handler id,
// delegating by message type. A poll service registers one id that serves
// both poll requests and fulfillment requests this way.
type MultiHandler struct {
	delegates []MessageHandler
}

// NewMultiHandler composes the given handlers. Earlier handlers win when two
// claim the same message type.
func NewMultiHandler(delegates ...MessageHandler) *MultiHandler {
	return &MultiHandler{delegates: delegates}
}

// SupportedTypes is the union of the delegates' supported types
func (m *MultiHandler) SupportedTypes() []messages.Type {
	var out []messages.Type
	seen := make(map[messages.Type]bool)
	for _, d := range m.delegates {
		for _, t := range d.SupportedTypes() {
			if !seen[t] {
				seen[t] = true
				out = append(out, t)
			}
		}
	}
	return out
}

// SupportedVersions is the union of the delegates' supported versions
func (m *MultiHandler) SupportedVersions() []taxii.Version {
	var out []taxii.Version
	for _, d := range m.delegates {
		for _, v := range d.SupportedVersions() {
			if !taxii.VersionIn(v, out) {
				out = append(out, v)
			}
		}
	}
	return out
}

// Handle routes the message to the delegate claiming its type
func (m *MultiHandler) Handle(ctx context.Context, req *Request) (messages.Message, error) {
	t := req.Message.MsgType()
	for _, d := range m.delegates {
		for _, s := range d.SupportedTypes() {
			if s == t {
				if !taxii.VersionIn(req.ContentVersion, d.SupportedVersions()) {
					return nil, taxii.NewStatusError(taxii.StatusUnsupportedMessageBinding,
						"message type %s is not available in binding %s", t, req.ContentVersion.MessageBinding()).
						WithDetail(taxii.DetailSupportedBinding, taxii.TAXII11.MessageBinding())
				}
				return d.Handle(ctx, req)
			}
		}
	}
	return nil, taxii.NewStatusError(taxii.StatusFailure, "message type %s is not supported by this service", t)
}
