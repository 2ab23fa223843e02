package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"taxiihub/internal/taxii"
	"taxiihub/internal/taxii/dispatch"
	taxiihandlers "taxiihub/internal/taxii/handlers"
	"taxiihub/pkg/logger"
)

// maxRequestBody caps inbound message size. Inbox messages carry content
// blocks inline, so the cap is generous.
const maxRequestBody = 10 << 20

// TAXIIHandler is the HTTP transport in front of the dispatcher. It resolves
// the service endpoint from the request path and leaves everything
// protocol-level to the dispatcher.
type TAXIIHandler struct {
	services   taxiihandlers.ServiceDirectory
	dispatcher *dispatch.Dispatcher
	logger     *logger.Logger
}

// NewTAXIIHandler creates a new TAXIIHandler
func NewTAXIIHandler(services taxiihandlers.ServiceDirectory, d *dispatch.Dispatcher, log *logger.Logger) *TAXIIHandler {
	return &TAXIIHandler{
		services:   services,
		dispatcher: d,
		logger:     log.WithComponent("transport"),
	}
}

// Exchange handles POST on any service path. Transport-level failures (no
// such service, unacceptable Accept header, unreadable body) are plain HTTP
// errors; everything past that point answers with a TAXII status message.
func (h *TAXIIHandler) Exchange(w http.ResponseWriter, r *http.Request) {
	svc, err := h.services.GetServiceByPath(r.Context(), r.URL.Path)
	if err != nil {
		if errors.Is(err, taxii.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Service lookup failed")
		http.Error(w, "service lookup failed", http.StatusInternalServerError)
		return
	}
	if !svc.Enabled {
		http.NotFound(w, r)
		return
	}

	if !acceptsXML(r.Header.Get(taxii.HeaderAccept)) {
		http.Error(w, "only "+taxii.MediaTypeXML+" responses are produced", http.StatusNotAcceptable)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	resp := h.dispatcher.Dispatch(r.Context(), svc, r.Host, r.TLS != nil, r.Header, body)

	for name, value := range resp.Headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(resp.Body); err != nil {
		h.logger.Warn().Err(err).Str("path", r.URL.Path).Msg("Failed to write response body")
	}
}

// acceptsXML accepts an absent header, a wildcard, or an XML media range
func acceptsXML(accept string) bool {
	if accept == "" {
		return true
	}
	for _, part := range strings.Split(accept, ",") {
		mt := part
		if i := strings.IndexByte(mt, ';'); i >= 0 {
			mt = mt[:i]
		}
		switch strings.TrimSpace(strings.ToLower(mt)) {
		case taxii.MediaTypeXML, "application/*", "*/*":
			return true
		}
	}
	return false
}
