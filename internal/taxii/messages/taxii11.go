package messages

import "encoding/xml"

// TAXII 1.1 XML binding structs. The root XMLName pins the 1.1 namespace;
// child elements inherit it lexically on marshal and match by local name on
// unmarshal.

// DiscoveryRequest asks a discovery service for its advertised services
type DiscoveryRequest struct {
	XMLName   xml.Name `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Discovery_Request"`
	MessageID string   `xml:"message_id,attr"`
}

func (m *DiscoveryRequest) MsgType() Type { return TypeDiscoveryRequest }
func (m *DiscoveryRequest) MsgID() string { return m.MessageID }

// ServiceInstance is one advertised service endpoint, one per protocol
// binding of the underlying service
type ServiceInstance struct {
	ServiceType     string           `xml:"service_type,attr"`
	ServiceVersion  string           `xml:"service_version,attr"`
	Available       bool             `xml:"available,attr"`
	ProtocolBinding string           `xml:"Protocol_Binding"`
	Address         string           `xml:"Address"`
	MessageBindings []string         `xml:"Message_Binding"`
	SupportedQuery  []string         `xml:"Supported_Query>Query_Info,omitempty"`
	AcceptedContent []ContentBinding `xml:"Inbox_Service_Accepted_Content,omitempty"`
	Message         string           `xml:"Message,omitempty"`
}

// DiscoveryResponse lists the advertised service instances
type DiscoveryResponse struct {
	XMLName      xml.Name          `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Discovery_Response"`
	MessageID    string            `xml:"message_id,attr"`
	InResponseTo string            `xml:"in_response_to,attr"`
	Instances    []ServiceInstance `xml:"Service_Instance"`
}

func (m *DiscoveryResponse) MsgType() Type { return TypeDiscoveryResponse }
func (m *DiscoveryResponse) MsgID() string { return m.MessageID }

// CollectionInformationRequest asks for the advertised data collections
type CollectionInformationRequest struct {
	XMLName   xml.Name `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Collection_Information_Request"`
	MessageID string   `xml:"message_id,attr"`
}

func (m *CollectionInformationRequest) MsgType() Type { return TypeCollectionInformationRequest }
func (m *CollectionInformationRequest) MsgID() string { return m.MessageID }

// CollectionRecord describes one advertised collection
type CollectionRecord struct {
	Name                   string           `xml:"collection_name,attr"`
	CollectionType         string           `xml:"collection_type,attr"`
	Available              bool             `xml:"available,attr"`
	Description            string           `xml:"Description"`
	Volume                 *int64           `xml:"Collection_Volume,omitempty"`
	ContentBindings        []ContentBinding `xml:"Content_Binding"`
	PushMethods            []PushMethod     `xml:"Push_Method"`
	PollingServices        []ServiceContact `xml:"Polling_Service"`
	SubscriptionServices   []ServiceContact `xml:"Subscription_Service"`
	ReceivingInboxServices []ServiceContact `xml:"Receiving_Inbox_Service"`
}

// CollectionInformationResponse lists the advertised collections
type CollectionInformationResponse struct {
	XMLName      xml.Name           `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Collection_Information_Response"`
	MessageID    string             `xml:"message_id,attr"`
	InResponseTo string             `xml:"in_response_to,attr"`
	Collections  []CollectionRecord `xml:"Collection"`
}

func (m *CollectionInformationResponse) MsgType() Type { return TypeCollectionInformationResponse }
func (m *CollectionInformationResponse) MsgID() string { return m.MessageID }

// PollParameters carry the inline parameters of a poll request; mutually
// exclusive with a subscription id
type PollParameters struct {
	AllowAsynch        bool                `xml:"allow_asynch,attr"`
	ResponseType       string              `xml:"Response_Type,omitempty"`
	ContentBindings    []ContentBinding    `xml:"Content_Binding"`
	Query              *Query              `xml:"Query"`
	DeliveryParameters *DeliveryParameters `xml:"Delivery_Parameters"`
}

// PollRequest asks for content from a collection
type PollRequest struct {
	XMLName        xml.Name        `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Poll_Request"`
	MessageID      string          `xml:"message_id,attr"`
	CollectionName string          `xml:"collection_name,attr"`
	ExclusiveBegin *Timestamp      `xml:"Exclusive_Begin_Timestamp"`
	InclusiveEnd   *Timestamp      `xml:"Inclusive_End_Timestamp"`
	SubscriptionID string          `xml:"Subscription_ID,omitempty"`
	PollParameters *PollParameters `xml:"Poll_Parameters"`
}

func (m *PollRequest) MsgType() Type { return TypePollRequest }
func (m *PollRequest) MsgID() string { return m.MessageID }

// PollResponse returns content blocks, or one part of a partitioned result
type PollResponse struct {
	XMLName          xml.Name       `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Poll_Response"`
	MessageID        string         `xml:"message_id,attr"`
	InResponseTo     string         `xml:"in_response_to,attr"`
	CollectionName   string         `xml:"collection_name,attr"`
	More             bool           `xml:"more,attr"`
	ResultID         string         `xml:"result_id,attr,omitempty"`
	ResultPartNumber int            `xml:"result_part_number,attr,omitempty"`
	ExclusiveBegin   *Timestamp     `xml:"Exclusive_Begin_Timestamp"`
	InclusiveEnd     *Timestamp     `xml:"Inclusive_End_Timestamp"`
	SubscriptionID   string         `xml:"Subscription_ID,omitempty"`
	RecordCount      *RecordCount   `xml:"Record_Count"`
	Message          string         `xml:"Message,omitempty"`
	ContentBlocks    []ContentBlock `xml:"Content_Block"`
}

func (m *PollResponse) MsgType() Type { return TypePollResponse }
func (m *PollResponse) MsgID() string { return m.MessageID }

// PollFulfillmentRequest asks for one part of a previously materialized
// result set. TAXII 1.1 only.
type PollFulfillmentRequest struct {
	XMLName          xml.Name `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Poll_Fulfillment"`
	MessageID        string   `xml:"message_id,attr"`
	CollectionName   string   `xml:"collection_name,attr"`
	ResultID         string   `xml:"result_id,attr"`
	ResultPartNumber int      `xml:"result_part_number,attr"`
}

func (m *PollFulfillmentRequest) MsgType() Type { return TypePollFulfillmentRequest }
func (m *PollFulfillmentRequest) MsgID() string { return m.MessageID }

// SourceSubscription ties inboxed content to the subscription that
// produced it
type SourceSubscription struct {
	CollectionName string     `xml:"collection_name,attr"`
	SubscriptionID string     `xml:"Subscription_ID,omitempty"`
	ExclusiveBegin *Timestamp `xml:"Exclusive_Begin_Timestamp"`
	InclusiveEnd   *Timestamp `xml:"Inclusive_End_Timestamp"`
}

// InboxMessage pushes content blocks at an inbox service
type InboxMessage struct {
	XMLName                    xml.Name            `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Inbox_Message"`
	MessageID                  string              `xml:"message_id,attr"`
	ResultID                   string              `xml:"result_id,attr,omitempty"`
	DestinationCollectionNames []string            `xml:"Destination_Collection_Name"`
	Message                    string              `xml:"Message,omitempty"`
	SourceSubscription         *SourceSubscription `xml:"Source_Subscription"`
	RecordCount                *RecordCount        `xml:"Record_Count"`
	ContentBlocks              []ContentBlock      `xml:"Content_Block"`
}

func (m *InboxMessage) MsgType() Type { return TypeInboxMessage }
func (m *InboxMessage) MsgID() string { return m.MessageID }

// PushParameters request pushed delivery for a subscription
type PushParameters struct {
	ProtocolBinding string   `xml:"Protocol_Binding"`
	Address         string   `xml:"Address"`
	MessageBindings []string `xml:"Message_Binding"`
}

// ManageSubscriptionRequest drives the subscription state machine
type ManageSubscriptionRequest struct {
	XMLName                xml.Name                `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Manage_Collection_Subscription_Request"`
	MessageID              string                  `xml:"message_id,attr"`
	CollectionName         string                  `xml:"collection_name,attr"`
	Action                 string                  `xml:"action,attr"`
	SubscriptionID         string                  `xml:"Subscription_ID,omitempty"`
	SubscriptionParameters *SubscriptionParameters `xml:"Subscription_Parameters"`
	PushParameters         *PushParameters         `xml:"Push_Parameters"`
}

func (m *ManageSubscriptionRequest) MsgType() Type { return TypeManageSubscriptionRequest }
func (m *ManageSubscriptionRequest) MsgID() string { return m.MessageID }

// SubscriptionInstance reports one subscription's state
type SubscriptionInstance struct {
	Status                 string                  `xml:"status,attr"`
	SubscriptionID         string                  `xml:"Subscription_ID"`
	SubscriptionParameters *SubscriptionParameters `xml:"Subscription_Parameters"`
	PushParameters         *PushParameters         `xml:"Push_Parameters"`
	PollInstances          []ServiceContact        `xml:"Poll_Instance"`
}

// ManageSubscriptionResponse reports subscription state after an action
type ManageSubscriptionResponse struct {
	XMLName        xml.Name               `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Manage_Collection_Subscription_Response"`
	MessageID      string                 `xml:"message_id,attr"`
	InResponseTo   string                 `xml:"in_response_to,attr"`
	CollectionName string                 `xml:"collection_name,attr"`
	Message        string                 `xml:"Message,omitempty"`
	Subscriptions  []SubscriptionInstance `xml:"Subscription"`
}

func (m *ManageSubscriptionResponse) MsgType() Type { return TypeManageSubscriptionResponse }
func (m *ManageSubscriptionResponse) MsgID() string { return m.MessageID }

// StatusDetail is one named status detail value
type StatusDetail struct {
	Name  string `xml:"name,attr"`
	Value string `xml:",chardata"`
}

// StatusMessage is the protocol's structured error/acknowledgment response
type StatusMessage struct {
	XMLName      xml.Name       `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1.1 Status_Message"`
	MessageID    string         `xml:"message_id,attr"`
	InResponseTo string         `xml:"in_response_to,attr"`
	StatusType   string         `xml:"status_type,attr"`
	Details      []StatusDetail `xml:"Status_Detail>Detail"`
	Message      string         `xml:"Message,omitempty"`
}

func (m *StatusMessage) MsgType() Type { return TypeStatusMessage }
func (m *StatusMessage) MsgID() string { return m.MessageID }

// Detail returns the named status detail value, if present
func (m *StatusMessage) Detail(name string) (string, bool) {
	for _, d := range m.Details {
		if d.Name == name {
			return d.Value, true
		}
	}
	return "", false
}
