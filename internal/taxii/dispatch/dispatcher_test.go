package dispatch

import (
	"context"
	"encoding/xml"
	"net/http"
	"strings"
	"testing"

	"taxiihub/internal/domain/models"
	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/messages"
	"taxiihub/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Format: "json"})
}

type stubMessageHandler struct {
	types    []messages.Type
	versions []taxii.Version
	handle   func(ctx context.Context, req *Request) (messages.Message, error)
}

func (h *stubMessageHandler) SupportedTypes() []messages.Type      { return h.types }
func (h *stubMessageHandler) SupportedVersions() []taxii.Version   { return h.versions }
func (h *stubMessageHandler) Handle(ctx context.Context, req *Request) (messages.Message, error) {
	return h.handle(ctx, req)
}

func discoveryService() *models.Service {
	return &models.Service{
		Path:             "/services/discovery",
		Type:             models.ServiceDiscovery,
		Enabled:          true,
		MessageBindings:  []string{taxii.BindingXML10, taxii.BindingXML11},
		MessageHandlerID: "discovery",
	}
}

func taxiiHeaders() http.Header {
	h := http.Header{}
	h.Set(taxii.HeaderContentType, taxii.MediaTypeXML)
	h.Set(taxii.HeaderXTAXIIContentType, taxii.BindingXML11)
	h.Set(taxii.HeaderXTAXIIProtocol, taxii.ProtocolHTTP10)
	h.Set(taxii.HeaderXTAXIIServices, taxii.ServicesVersion11)
	return h
}

func discoveryBody(t *testing.T, id string) []byte {
	t.Helper()
	body, err := messages.Marshal(&messages.DiscoveryRequest{MessageID: id}, taxii.TAXII11)
	if err != nil {
		t.Fatalf("build request body: %v", err)
	}
	return body
}

func decodeStatus(t *testing.T, body []byte) *messages.StatusMessage {
	t.Helper()
	var sm messages.StatusMessage
	if err := xml.Unmarshal(body, &sm); err != nil {
		t.Fatalf("response is not a status message: %v\n%s", err, body)
	}
	return &sm
}

func newTestDispatcher(t *testing.T, handle func(ctx context.Context, req *Request) (messages.Message, error)) *Dispatcher {
	t.Helper()
	reg := NewRegistry(testLogger())
	reg.RegisterMessageHandler("discovery", &stubMessageHandler{
		types:    []messages.Type{messages.TypeDiscoveryRequest},
		versions: []taxii.Version{taxii.TAXII10, taxii.TAXII11},
		handle:   handle,
	}, "test discovery")
	return NewDispatcher(reg, false, testLogger())
}

func TestDispatchSuccess(t *testing.T) {
	d := newTestDispatcher(t, func(ctx context.Context, req *Request) (messages.Message, error) {
		return &messages.DiscoveryResponse{
			MessageID:    messages.NewID(),
			InResponseTo: req.Message.MsgID(),
		}, nil
	})

	resp := d.Dispatch(context.Background(), discoveryService(), "hub.example.com", false, taxiiHeaders(), discoveryBody(t, "d-1"))

	if resp.Headers[taxii.HeaderXTAXIIContentType] != taxii.BindingXML11 {
		t.Fatalf("response binding header = %q", resp.Headers[taxii.HeaderXTAXIIContentType])
	}
	if !strings.Contains(string(resp.Body), "Discovery_Response") {
		t.Fatalf("expected a discovery response:\n%s", resp.Body)
	}
	if !strings.Contains(string(resp.Body), `in_response_to="d-1"`) {
		t.Fatalf("in_response_to not threaded:\n%s", resp.Body)
	}
}

func TestDispatchHeaderFailure(t *testing.T) {
	d := newTestDispatcher(t, func(ctx context.Context, req *Request) (messages.Message, error) {
		t.Fatal("handler must not run when negotiation fails")
		return nil, nil
	})

	h := taxiiHeaders()
	h.Del(taxii.HeaderXTAXIIContentType)

	resp := d.Dispatch(context.Background(), discoveryService(), "h", false, h, discoveryBody(t, "d-2"))
	sm := decodeStatus(t, resp.Body)
	if sm.StatusType != string(taxii.StatusFailure) {
		t.Fatalf("status = %s, want FAILURE", sm.StatusType)
	}
	if sm.InResponseTo != "0" {
		t.Fatalf("in_response_to = %q, want 0", sm.InResponseTo)
	}
}

func TestDispatchParseFailureKeepsSniffedID(t *testing.T) {
	d := newTestDispatcher(t, func(ctx context.Context, req *Request) (messages.Message, error) {
		t.Fatal("handler must not run on a parse failure")
		return nil, nil
	})

	// right namespace, unknown root, message_id visible to the sniffer
	body := []byte(`<Bogus_Message xmlns="http://taxii.mitre.org/messages/taxii_xml_binding-1.1" message_id="m-7"/>`)

	resp := d.Dispatch(context.Background(), discoveryService(), "h", false, taxiiHeaders(), body)
	sm := decodeStatus(t, resp.Body)
	if sm.StatusType != string(taxii.StatusBadMessage) {
		t.Fatalf("status = %s, want BAD_MESSAGE", sm.StatusType)
	}
	if sm.InResponseTo != "m-7" {
		t.Fatalf("in_response_to = %q, want sniffed id m-7", sm.InResponseTo)
	}
}

func TestDispatchBodyHeaderVersionMismatch(t *testing.T) {
	d := newTestDispatcher(t, func(ctx context.Context, req *Request) (messages.Message, error) {
		t.Fatal("handler must not run on a version mismatch")
		return nil, nil
	})

	// headers claim 1.0, body is 1.1
	h := taxiiHeaders()
	h.Set(taxii.HeaderXTAXIIContentType, taxii.BindingXML10)
	h.Set(taxii.HeaderXTAXIIServices, taxii.ServicesVersion10)

	resp := d.Dispatch(context.Background(), discoveryService(), "h", false, h, discoveryBody(t, "d-3"))
	sm := decodeStatus(t, resp.Body)
	if sm.StatusType != string(taxii.StatusBadMessage) {
		t.Fatalf("status = %s, want BAD_MESSAGE", sm.StatusType)
	}
}

func TestDispatchUnregisteredHandler(t *testing.T) {
	d := NewDispatcher(NewRegistry(testLogger()), false, testLogger())

	resp := d.Dispatch(context.Background(), discoveryService(), "h", false, taxiiHeaders(), discoveryBody(t, "d-4"))
	sm := decodeStatus(t, resp.Body)
	if sm.StatusType != string(taxii.StatusFailure) {
		t.Fatalf("status = %s, want FAILURE", sm.StatusType)
	}
}

func TestDispatchStatusErrorWithDetails(t *testing.T) {
	d := newTestDispatcher(t, func(ctx context.Context, req *Request) (messages.Message, error) {
		return nil, taxii.NewStatusError(taxii.StatusNotFound, "no such item").
			WithDetail(taxii.DetailItem, "indicators")
	})

	resp := d.Dispatch(context.Background(), discoveryService(), "h", false, taxiiHeaders(), discoveryBody(t, "d-5"))
	sm := decodeStatus(t, resp.Body)
	if sm.StatusType != string(taxii.StatusNotFound) {
		t.Fatalf("status = %s, want NOT_FOUND", sm.StatusType)
	}
	if sm.InResponseTo != "d-5" {
		t.Fatalf("in_response_to = %q", sm.InResponseTo)
	}
	if v, ok := sm.Detail(taxii.DetailItem); !ok || v != "indicators" {
		t.Fatalf("ITEM detail = %q (present %v)", v, ok)
	}
}

func TestDispatchRecoversPanic(t *testing.T) {
	d := newTestDispatcher(t, func(ctx context.Context, req *Request) (messages.Message, error) {
		panic("boom")
	})

	resp := d.Dispatch(context.Background(), discoveryService(), "h", false, taxiiHeaders(), discoveryBody(t, "d-6"))
	sm := decodeStatus(t, resp.Body)
	if sm.StatusType != string(taxii.StatusFailure) {
		t.Fatalf("status = %s, want FAILURE", sm.StatusType)
	}
}

func TestDispatchResponseIn10Binding(t *testing.T) {
	d := newTestDispatcher(t, func(ctx context.Context, req *Request) (messages.Message, error) {
		return &messages.DiscoveryResponse{
			MessageID:    messages.NewID(),
			InResponseTo: req.Message.MsgID(),
		}, nil
	})

	h := taxiiHeaders()
	h.Set(taxii.HeaderXTAXIIAccept, taxii.BindingXML10)

	resp := d.Dispatch(context.Background(), discoveryService(), "h", false, h, discoveryBody(t, "d-7"))
	if resp.Headers[taxii.HeaderXTAXIIContentType] != taxii.BindingXML10 {
		t.Fatalf("response binding header = %q, want 1.0", resp.Headers[taxii.HeaderXTAXIIContentType])
	}
	if !strings.Contains(string(resp.Body), "taxii_xml_binding-1\"") {
		t.Fatalf("body not down-converted:\n%s", resp.Body)
	}
}
