package taxii

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// HTTP header names used by the protocol. Header name matching is
// case-insensitive; http.Header canonicalization covers that.
const (
	HeaderContentType       = "Content-Type"
	HeaderAccept            = "Accept"
	HeaderXTAXIIContentType = "X-TAXII-Content-Type"
	HeaderXTAXIIProtocol    = "X-TAXII-Protocol"
	HeaderXTAXIIAccept      = "X-TAXII-Accept"
	HeaderXTAXIIServices    = "X-TAXII-Services"
)

// MediaTypeXML is the only media type produced or consumed
const MediaTypeXML = "application/xml"

// Negotiated is the outcome of header validation: the version the request
// message is encoded in and the version the response must be encoded in.
type Negotiated struct {
	ContentVersion  Version
	ResponseVersion Version
}

var requiredHeaders = []string{
	HeaderXTAXIIServices,
	HeaderContentType,
	HeaderXTAXIIContentType,
	HeaderXTAXIIProtocol,
}

// NegotiateHeaders validates the TAXII request headers against the resolved
// handler's supported versions and determines the response content version.
// Pure validation: no side effects. When verbose is set, failure messages
// include a diagnostic listing of the headers that were present.
func NegotiateHeaders(h http.Header, supported []Version, verbose bool) (*Negotiated, *StatusError) {
	var missing []string
	for _, name := range requiredHeaders {
		if h.Get(name) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		msg := fmt.Sprintf("required headers not present: %s", strings.Join(missing, ", "))
		if verbose {
			msg += fmt.Sprintf(" (present headers: %s)", strings.Join(presentHeaders(h), ", "))
		}
		return nil, NewStatusError(StatusFailure, "%s", msg)
	}

	switch h.Get(HeaderXTAXIIServices) {
	case ServicesVersion10, ServicesVersion11:
	default:
		return nil, NewStatusError(StatusFailure,
			"the value of %s (%s) is not supported", HeaderXTAXIIServices, h.Get(HeaderXTAXIIServices))
	}

	if ct := mediaType(h.Get(HeaderContentType)); ct != MediaTypeXML {
		return nil, NewStatusError(StatusFailure,
			"the value of %s (%s) is not supported", HeaderContentType, h.Get(HeaderContentType))
	}

	contentVersion, ok := VersionFromBinding(h.Get(HeaderXTAXIIContentType))
	if !ok {
		return nil, NewStatusError(StatusFailure,
			"the value of %s (%s) is not supported", HeaderXTAXIIContentType, h.Get(HeaderXTAXIIContentType))
	}
	if !VersionIn(contentVersion, supported) {
		return nil, NewStatusError(StatusFailure,
			"the message binding %s is not supported by this service", contentVersion.MessageBinding())
	}

	switch h.Get(HeaderXTAXIIProtocol) {
	case ProtocolHTTP10, ProtocolHTTPS10:
	default:
		return nil, NewStatusError(StatusFailure,
			"the value of %s (%s) is not supported", HeaderXTAXIIProtocol, h.Get(HeaderXTAXIIProtocol))
	}

	// Absent X-TAXII-Accept defaults to the 1.1 XML binding
	responseVersion := TAXII11
	if accept := h.Get(HeaderXTAXIIAccept); accept != "" {
		v, ok := VersionFromBinding(accept)
		if !ok {
			return nil, NewStatusError(StatusFailure,
				"the value of %s (%s) is not supported", HeaderXTAXIIAccept, accept)
		}
		if !VersionIn(v, supported) {
			return nil, NewStatusError(StatusFailure,
				"the response binding %s is not supported by this service", accept)
		}
		responseVersion = v
	}

	return &Negotiated{ContentVersion: contentVersion, ResponseVersion: responseVersion}, nil
}

// ResponseHeaders returns the exact header set every TAXII response carries.
// A response missing any of these is a contract violation; the dispatcher
// asserts the full set before transmission.
func ResponseHeaders(v Version, https bool) map[string]string {
	protocol := ProtocolHTTP10
	if https {
		protocol = ProtocolHTTPS10
	}
	return map[string]string{
		HeaderContentType:       MediaTypeXML,
		HeaderXTAXIIContentType: v.MessageBinding(),
		HeaderXTAXIIProtocol:    protocol,
		HeaderXTAXIIServices:    v.ServicesVersion(),
		HeaderXTAXIIAccept:      v.MessageBinding(),
	}
}

func mediaType(v string) string {
	if i := strings.IndexByte(v, ';'); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(strings.ToLower(v))
}

func presentHeaders(h http.Header) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
