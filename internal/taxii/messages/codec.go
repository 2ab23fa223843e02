package messages

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/google/uuid"

	"taxiihub/internal/taxii"
)

// NewID mints a message id for an outgoing message
func NewID() string {
	return uuid.NewString()
}

// ParseError reports a body that could not be decoded into a known message.
// MessageID carries the root element's message_id attribute when the sniffer
// got far enough to see it, so a status response can still reference it.
type ParseError struct {
	MessageID string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse message: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var roots11 = map[string]func() Message{
	"Discovery_Request":                       func() Message { return &DiscoveryRequest{} },
	"Discovery_Response":                      func() Message { return &DiscoveryResponse{} },
	"Collection_Information_Request":          func() Message { return &CollectionInformationRequest{} },
	"Collection_Information_Response":         func() Message { return &CollectionInformationResponse{} },
	"Poll_Request":                            func() Message { return &PollRequest{} },
	"Poll_Response":                           func() Message { return &PollResponse{} },
	"Poll_Fulfillment":                        func() Message { return &PollFulfillmentRequest{} },
	"Inbox_Message":                           func() Message { return &InboxMessage{} },
	"Manage_Collection_Subscription_Request":  func() Message { return &ManageSubscriptionRequest{} },
	"Manage_Collection_Subscription_Response": func() Message { return &ManageSubscriptionResponse{} },
	"Status_Message":                          func() Message { return &StatusMessage{} },
}

type upconverter interface {
	upconvert() Message
}

var roots10 = map[string]func() upconverter{
	"Discovery_Request":                func() upconverter { return &discoveryRequest10{} },
	"Feed_Information_Request":         func() upconverter { return &feedInformationRequest10{} },
	"Poll_Request":                     func() upconverter { return &pollRequest10{} },
	"Inbox_Message":                    func() upconverter { return &inboxMessage10{} },
	"Manage_Feed_Subscription_Request": func() upconverter { return &manageFeedSubscriptionRequest10{} },
}

// Parse decodes a TAXII XML document into its canonical message form. The
// root element's namespace selects the binding; 1.0 documents are
// up-converted. The returned version is the binding the document arrived in.
func Parse(body []byte) (Message, taxii.Version, error) {
	root, msgID, err := sniffRoot(body)
	if err != nil {
		return nil, 0, &ParseError{Err: err}
	}

	version, ok := taxii.VersionFromNamespace(root.Space)
	if !ok {
		return nil, 0, &ParseError{
			MessageID: msgID,
			Err:       fmt.Errorf("unrecognized message namespace %q", root.Space),
		}
	}

	switch version {
	case taxii.TAXII10:
		mk, ok := roots10[root.Local]
		if !ok {
			return nil, 0, &ParseError{
				MessageID: msgID,
				Err:       fmt.Errorf("unrecognized TAXII 1.0 message %q", root.Local),
			}
		}
		wire := mk()
		if err := xml.Unmarshal(body, wire); err != nil {
			return nil, 0, &ParseError{MessageID: msgID, Err: err}
		}
		return wire.upconvert(), version, nil

	default:
		mk, ok := roots11[root.Local]
		if !ok {
			return nil, 0, &ParseError{
				MessageID: msgID,
				Err:       fmt.Errorf("unrecognized TAXII 1.1 message %q", root.Local),
			}
		}
		msg := mk()
		if err := xml.Unmarshal(body, msg); err != nil {
			return nil, 0, &ParseError{MessageID: msgID, Err: err}
		}
		return msg, version, nil
	}
}

// sniffRoot returns the document's root element name and its message_id
// attribute without decoding the whole body.
func sniffRoot(body []byte) (xml.Name, string, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	for {
		tok, err := dec.Token()
		if err != nil {
			if err == io.EOF {
				return xml.Name{}, "", fmt.Errorf("empty document")
			}
			return xml.Name{}, "", err
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		var msgID string
		for _, attr := range start.Attr {
			if attr.Name.Local == "message_id" {
				msgID = attr.Value
				break
			}
		}
		return start.Name, msgID, nil
	}
}

type downconverter interface {
	downconvert() any
}

// Marshal serializes a canonical message in the requested binding. 1.0
// output goes through down-conversion; messages with no 1.0 form return an
// error.
func Marshal(msg Message, v taxii.Version) ([]byte, error) {
	var doc any = msg
	if v == taxii.TAXII10 {
		dc, ok := msg.(downconverter)
		if !ok {
			return nil, fmt.Errorf("message %s has no TAXII 1.0 form", msg.MsgType())
		}
		doc = dc.downconvert()
	}

	out, err := xml.MarshalIndent(doc, "", "    ")
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", msg.MsgType(), err)
	}
	return append([]byte(xml.Header), out...), nil
}
