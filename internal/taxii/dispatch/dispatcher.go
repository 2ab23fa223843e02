package dispatch

import (
	"context"
	"errors"
	"net/http"
	"sort"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/messages"
	"taxiihub/pkg/logger"
)

// Response is a fully serialized TAXII response ready for transmission
type Response struct {
	Body    []byte
	Headers map[string]string
}

// Dispatcher runs the full exchange pipeline for a resolved service:
// header negotiation, message parsing, handler resolution, execution and
// serialization. Every failure path ends in a status message response; the
// transport layer never sees an error.
type Dispatcher struct {
	registry *Registry
	verbose  bool
	log      *logger.Logger
}

// NewDispatcher builds a dispatcher over the registry. When verbose is set,
// negotiation failures carry extra diagnostic detail.
func NewDispatcher(registry *Registry, verbose bool, log *logger.Logger) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		verbose:  verbose,
		log:      log.WithComponent("dispatcher"),
	}
}

// Dispatch serves one exchange against the resolved service. It always
// returns a response; panics and errors become FAILURE status messages.
func (d *Dispatcher) Dispatch(ctx context.Context, svc *models.Service, host string, https bool, header http.Header, body []byte) (resp *Response) {
	log := d.log.WithService(svc.Path)

	responseVersion := acceptedVersion(header)
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Interface("panic", rec).Msg("Handler panicked")
			se := taxii.NewStatusError(taxii.StatusFailure, "an internal error occurred")
			resp = d.statusResponse(se, "0", responseVersion, https)
		}
	}()

	supported := supportedVersions(svc)

	negotiated, se := taxii.NegotiateHeaders(header, supported, d.verbose)
	if se != nil {
		log.Warn().Str("status_type", string(se.Type)).Msg(se.Message)
		return d.statusResponse(se, "0", responseVersion, https)
	}
	responseVersion = negotiated.ResponseVersion

	msg, msgVersion, err := messages.Parse(body)
	if err != nil {
		inResponseTo := "0"
		var pe *messages.ParseError
		if errors.As(err, &pe) && pe.MessageID != "" {
			inResponseTo = pe.MessageID
		}
		log.Warn().Err(err).Msg("Request body did not parse")
		se := taxii.NewStatusError(taxii.StatusBadMessage, "message could not be parsed: %v", err)
		return d.statusResponse(se, inResponseTo, responseVersion, https)
	}
	log = log.WithMessageID(msg.MsgID())

	if msgVersion != negotiated.ContentVersion {
		se := taxii.NewStatusError(taxii.StatusBadMessage,
			"message binding of the body (%s) does not match %s", msgVersion.MessageBinding(), taxii.HeaderXTAXIIContentType)
		return d.statusResponse(se, msg.MsgID(), responseVersion, https)
	}

	handler, ok := d.registry.MessageHandler(svc.MessageHandlerID)
	if !ok {
		log.Error().Str("handler_id", svc.MessageHandlerID).Msg("Service references an unregistered message handler")
		se := taxii.NewStatusError(taxii.StatusFailure, "this service is misconfigured")
		return d.statusResponse(se, msg.MsgID(), responseVersion, https)
	}

	if !typeSupported(handler, msg.MsgType()) {
		se := taxii.NewStatusError(taxii.StatusFailure,
			"message type %s is not supported by this service", msg.MsgType())
		return d.statusResponse(se, msg.MsgID(), responseVersion, https)
	}
	if !taxii.VersionIn(msgVersion, handler.SupportedVersions()) {
		se := taxii.NewStatusError(taxii.StatusUnsupportedMessageBinding,
			"message binding %s is not supported by this service", msgVersion.MessageBinding()).
			WithDetail(taxii.DetailSupportedBinding, taxii.TAXII11.MessageBinding())
		return d.statusResponse(se, msg.MsgID(), responseVersion, https)
	}

	req := &Request{
		Service:         svc,
		Message:         msg,
		ContentVersion:  negotiated.ContentVersion,
		ResponseVersion: responseVersion,
		Host:            host,
		HTTPS:           https,
	}

	out, err := handler.Handle(ctx, req)
	if err != nil {
		se, ok := taxii.AsStatusError(err)
		if !ok {
			log.Error().Err(err).Msg("Handler failed")
			se = taxii.NewStatusError(taxii.StatusFailure, "an internal error occurred")
		}
		inResponseTo := msg.MsgID()
		if se.InResponseTo != "" {
			inResponseTo = se.InResponseTo
		}
		return d.statusResponse(se, inResponseTo, responseVersion, https)
	}

	bodyOut, err := messages.Marshal(out, responseVersion)
	if err != nil {
		log.Error().Err(err).Msg("Response could not be serialized")
		se := taxii.NewStatusError(taxii.StatusFailure,
			"the response could not be expressed in the requested message binding")
		return d.statusResponse(se, msg.MsgID(), responseVersion, https)
	}

	log.Info().Str("message_type", string(msg.MsgType())).Str("response_type", string(out.MsgType())).Msg("Exchange served")
	return &Response{Body: bodyOut, Headers: taxii.ResponseHeaders(responseVersion, https)}
}

// statusResponse serializes a status error as a protocol status message
func (d *Dispatcher) statusResponse(se *taxii.StatusError, inResponseTo string, v taxii.Version, https bool) *Response {
	if se.InResponseTo != "" {
		inResponseTo = se.InResponseTo
	}
	sm := &messages.StatusMessage{
		MessageID:    messages.NewID(),
		InResponseTo: inResponseTo,
		StatusType:   string(se.Type),
		Message:      se.Message,
		Details:      sortedDetails(se.Details),
	}
	body, err := messages.Marshal(sm, v)
	if err != nil {
		// status messages exist in both bindings; this is unreachable
		// short of an encoder bug
		d.log.Error().Err(err).Msg("Status message could not be serialized")
		body = []byte{}
	}
	return &Response{Body: body, Headers: taxii.ResponseHeaders(v, https)}
}

func sortedDetails(details map[string]string) []messages.StatusDetail {
	if len(details) == 0 {
		return nil
	}
	names := make([]string, 0, len(details))
	for name := range details {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]messages.StatusDetail, len(names))
	for i, name := range names {
		out[i] = messages.StatusDetail{Name: name, Value: details[name]}
	}
	return out
}

// acceptedVersion is the best-effort response version before negotiation
// has succeeded
func acceptedVersion(header http.Header) taxii.Version {
	if v, ok := taxii.VersionFromBinding(header.Get(taxii.HeaderXTAXIIAccept)); ok {
		return v
	}
	return taxii.TAXII11
}

func supportedVersions(svc *models.Service) []taxii.Version {
	var out []taxii.Version
	for _, urn := range svc.MessageBindings {
		if v, ok := taxii.VersionFromBinding(urn); ok && !taxii.VersionIn(v, out) {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		out = []taxii.Version{taxii.TAXII10, taxii.TAXII11}
	}
	return out
}

func typeSupported(h MessageHandler, t messages.Type) bool {
	for _, s := range h.SupportedTypes() {
		if s == t {
			return true
		}
	}
	return false
}
