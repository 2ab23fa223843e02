// Package messages implements the TAXII 1.0 and 1.1 XML message bindings.
//
// The 1.1 structs are the canonical in-memory form; 1.0 documents are
// up-converted on parse and responses are down-converted on serialization.
package messages

import (
	"encoding/xml"
	"fmt"
	"time"
)

// Type names a TAXII message exchange type
type Type string

const (
	TypeDiscoveryRequest              Type = "Discovery_Request"
	TypeDiscoveryResponse             Type = "Discovery_Response"
	TypeCollectionInformationRequest  Type = "Collection_Information_Request"
	TypeCollectionInformationResponse Type = "Collection_Information_Response"
	TypePollRequest                   Type = "Poll_Request"
	TypePollResponse                  Type = "Poll_Response"
	TypePollFulfillmentRequest        Type = "Poll_Fulfillment"
	TypeInboxMessage                  Type = "Inbox_Message"
	TypeManageSubscriptionRequest     Type = "Manage_Collection_Subscription_Request"
	TypeManageSubscriptionResponse    Type = "Manage_Collection_Subscription_Response"
	TypeStatusMessage                 Type = "Status_Message"
)

// Subscription management actions
const (
	ActionSubscribe   = "SUBSCRIBE"
	ActionUnsubscribe = "UNSUBSCRIBE"
	ActionPause       = "PAUSE"
	ActionResume      = "RESUME"
	ActionStatus      = "STATUS"
)

// Collection type attribute values
const (
	CollectionTypeDataFeed = "DATA_FEED"
	CollectionTypeDataSet  = "DATA_SET"
)

// Service type attribute values used in discovery responses
const (
	ServiceTypeDiscovery            = "DISCOVERY"
	ServiceTypeInbox                = "INBOX"
	ServiceTypePoll                 = "POLL"
	ServiceTypeCollectionManagement = "COLLECTION_MANAGEMENT"
)

// Message is any parsed TAXII message. The protocol version a request
// arrived in is reported by Parse, not carried on the message itself.
type Message interface {
	MsgType() Type
	MsgID() string
}

// Timestamp marshals a timestamp label as RFC 3339 with nanoseconds
type Timestamp struct {
	time.Time
}

// NewTimestamp wraps t
func NewTimestamp(t time.Time) *Timestamp {
	return &Timestamp{Time: t}
}

// TimePtr returns the wrapped time, or nil
func (t *Timestamp) TimePtr() *time.Time {
	if t == nil {
		return nil
	}
	tt := t.Time
	return &tt
}

func (t Timestamp) MarshalXML(e *xml.Encoder, start xml.StartElement) error {
	return e.EncodeElement(t.Format(time.RFC3339Nano), start)
}

func (t *Timestamp) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	var raw string
	if err := d.DecodeElement(&raw, &start); err != nil {
		return err
	}
	parsed, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return fmt.Errorf("invalid timestamp label %q: %w", raw, err)
	}
	t.Time = parsed
	return nil
}

// ContentBinding is the wire form of a binding id with optional subtypes
type ContentBinding struct {
	BindingID string    `xml:"binding_id,attr"`
	Subtypes  []Subtype `xml:"Subtype"`
}

// Subtype refines a content binding
type Subtype struct {
	SubtypeID string `xml:"subtype_id,attr"`
}

// ContentBlock is one unit of content on the wire
type ContentBlock struct {
	XMLName        xml.Name       `xml:"Content_Block"`
	Binding        ContentBinding `xml:"Content_Binding"`
	Content        Content        `xml:"Content"`
	TimestampLabel *Timestamp     `xml:"Timestamp_Label"`
	Message        string         `xml:"Message,omitempty"`
	Padding        string         `xml:"Padding,omitempty"`
}

// Content wraps raw payload XML verbatim
type Content struct {
	Raw []byte `xml:",innerxml"`
}

// RecordCount reports a result size, possibly partial
type RecordCount struct {
	Value   int  `xml:",chardata"`
	Partial bool `xml:"partial_count,attr"`
}

// Query carries a structured query verbatim for the selected format
type Query struct {
	FormatID string `xml:"format_id,attr"`
	Raw      []byte `xml:",innerxml"`
}

// ServiceContact locates a cooperating service instance
type ServiceContact struct {
	ProtocolBinding string   `xml:"Protocol_Binding"`
	Address         string   `xml:"Address"`
	MessageBindings []string `xml:"Message_Binding"`
}

// PushMethod describes a supported push delivery mechanism
type PushMethod struct {
	ProtocolBinding string   `xml:"Protocol_Binding"`
	MessageBindings []string `xml:"Message_Binding"`
}

// DeliveryParameters requests pushed delivery of poll results
type DeliveryParameters struct {
	ProtocolBinding string   `xml:"Protocol_Binding"`
	Address         string   `xml:"Address"`
	MessageBindings []string `xml:"Message_Binding"`
}

// SubscriptionParameters select what a subscription delivers
type SubscriptionParameters struct {
	ResponseType    string           `xml:"Response_Type,omitempty"`
	ContentBindings []ContentBinding `xml:"Content_Binding"`
	Query           *Query           `xml:"Query"`
}

