package messages

import (
	"encoding/xml"

	"taxiihub/internal/taxii"
)

// TAXII 1.0 XML binding structs plus the converters between them and the
// canonical 1.1 form. 1.0 predates data sets, result sets and subtyped
// content bindings; its Content_Binding and Status_Detail are plain text
// elements and collections are called feeds.

type discoveryRequest10 struct {
	XMLName   xml.Name `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1 Discovery_Request"`
	MessageID string   `xml:"message_id,attr"`
}

type serviceInstance10 struct {
	ServiceType     string   `xml:"service_type,attr"`
	ServiceVersion  string   `xml:"service_version,attr"`
	Available       bool     `xml:"available,attr"`
	ProtocolBinding string   `xml:"Protocol_Binding"`
	Address         string   `xml:"Address"`
	MessageBindings []string `xml:"Message_Binding"`
	AcceptedContent []string `xml:"Inbox_Service_Accepted_Content,omitempty"`
	Message         string   `xml:"Message,omitempty"`
}

type discoveryResponse10 struct {
	XMLName      xml.Name            `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1 Discovery_Response"`
	MessageID    string              `xml:"message_id,attr"`
	InResponseTo string              `xml:"in_response_to,attr"`
	Instances    []serviceInstance10 `xml:"Service_Instance"`
}

type feedInformationRequest10 struct {
	XMLName   xml.Name `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1 Feed_Information_Request"`
	MessageID string   `xml:"message_id,attr"`
}

type feedRecord10 struct {
	Name                   string           `xml:"feed_name,attr"`
	Available              bool             `xml:"available,attr"`
	Description            string           `xml:"Description"`
	ContentBindings        []string         `xml:"Content_Binding"`
	PushMethods            []PushMethod     `xml:"Push_Method"`
	PollingServices        []ServiceContact `xml:"Polling_Service"`
	SubscriptionServices   []ServiceContact `xml:"Subscription_Service"`
}

type feedInformationResponse10 struct {
	XMLName      xml.Name       `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1 Feed_Information_Response"`
	MessageID    string         `xml:"message_id,attr"`
	InResponseTo string         `xml:"in_response_to,attr"`
	Feeds        []feedRecord10 `xml:"Feed"`
}

type contentBlock10 struct {
	XMLName        xml.Name   `xml:"Content_Block"`
	Binding        string     `xml:"Content_Binding"`
	Content        Content    `xml:"Content"`
	TimestampLabel *Timestamp `xml:"Timestamp_Label"`
	Padding        string     `xml:"Padding,omitempty"`
}

type pollRequest10 struct {
	XMLName         xml.Name   `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1 Poll_Request"`
	MessageID       string     `xml:"message_id,attr"`
	FeedName        string     `xml:"feed_name,attr"`
	SubscriptionID  string     `xml:"subscription_id,attr,omitempty"`
	ExclusiveBegin  *Timestamp `xml:"Exclusive_Begin_Timestamp"`
	InclusiveEnd    *Timestamp `xml:"Inclusive_End_Timestamp"`
	ContentBindings []string   `xml:"Content_Binding"`
}

type pollResponse10 struct {
	XMLName        xml.Name         `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1 Poll_Response"`
	MessageID      string           `xml:"message_id,attr"`
	InResponseTo   string           `xml:"in_response_to,attr"`
	FeedName       string           `xml:"feed_name,attr"`
	SubscriptionID string           `xml:"subscription_id,attr,omitempty"`
	InclusiveBegin *Timestamp       `xml:"Inclusive_Begin_Timestamp"`
	InclusiveEnd   *Timestamp       `xml:"Inclusive_End_Timestamp"`
	Message        string           `xml:"Message,omitempty"`
	ContentBlocks  []contentBlock10 `xml:"Content_Block"`
}

type subscriptionInformation10 struct {
	FeedName       string     `xml:"feed_name,attr"`
	SubscriptionID string     `xml:"Subscription_ID,omitempty"`
	ExclusiveBegin *Timestamp `xml:"Exclusive_Begin_Timestamp"`
	InclusiveEnd   *Timestamp `xml:"Inclusive_End_Timestamp"`
}

type inboxMessage10 struct {
	XMLName                 xml.Name                   `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1 Inbox_Message"`
	MessageID               string                     `xml:"message_id,attr"`
	Message                 string                     `xml:"Message,omitempty"`
	SubscriptionInformation *subscriptionInformation10 `xml:"Subscription_Information"`
	ContentBlocks           []contentBlock10           `xml:"Content_Block"`
}

type manageFeedSubscriptionRequest10 struct {
	XMLName            xml.Name            `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1 Manage_Feed_Subscription_Request"`
	MessageID          string              `xml:"message_id,attr"`
	FeedName           string              `xml:"feed_name,attr"`
	Action             string              `xml:"action,attr"`
	SubscriptionID     string              `xml:"subscription_id,attr,omitempty"`
	DeliveryParameters *DeliveryParameters `xml:"Delivery_Parameters"`
}

type subscriptionInstance10 struct {
	SubscriptionID     string              `xml:"Subscription_ID"`
	DeliveryParameters *DeliveryParameters `xml:"Delivery_Parameters"`
	PollInstances      []ServiceContact    `xml:"Poll_Instance"`
}

type manageFeedSubscriptionResponse10 struct {
	XMLName       xml.Name                 `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1 Manage_Feed_Subscription_Response"`
	MessageID     string                   `xml:"message_id,attr"`
	InResponseTo  string                   `xml:"in_response_to,attr"`
	FeedName      string                   `xml:"feed_name,attr"`
	Message       string                   `xml:"Message,omitempty"`
	Subscriptions []subscriptionInstance10 `xml:"Subscription"`
}

type statusMessage10 struct {
	XMLName      xml.Name `xml:"http://taxii.mitre.org/messages/taxii_xml_binding-1 Status_Message"`
	MessageID    string   `xml:"message_id,attr"`
	InResponseTo string   `xml:"in_response_to,attr"`
	StatusType   string   `xml:"status_type,attr"`
	StatusDetail string   `xml:"Status_Detail,omitempty"`
	Message      string   `xml:"Message,omitempty"`
}

// up-conversion: 1.0 requests to the canonical 1.1 form

func bindingsFrom10(ids []string) []ContentBinding {
	if len(ids) == 0 {
		return nil
	}
	out := make([]ContentBinding, len(ids))
	for i, id := range ids {
		out[i] = ContentBinding{BindingID: id}
	}
	return out
}

func blocksFrom10(blocks []contentBlock10) []ContentBlock {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]ContentBlock, len(blocks))
	for i, b := range blocks {
		out[i] = ContentBlock{
			Binding:        ContentBinding{BindingID: b.Binding},
			Content:        b.Content,
			TimestampLabel: b.TimestampLabel,
			Padding:        b.Padding,
		}
	}
	return out
}

func (m *discoveryRequest10) upconvert() Message {
	return &DiscoveryRequest{MessageID: m.MessageID}
}

func (m *feedInformationRequest10) upconvert() Message {
	return &CollectionInformationRequest{MessageID: m.MessageID}
}

func (m *pollRequest10) upconvert() Message {
	req := &PollRequest{
		MessageID:      m.MessageID,
		CollectionName: m.FeedName,
		ExclusiveBegin: m.ExclusiveBegin,
		InclusiveEnd:   m.InclusiveEnd,
		SubscriptionID: m.SubscriptionID,
	}
	// 1.0 carries content bindings directly on the request body. A
	// subscription id and inline parameters stay mutually exclusive in
	// the canonical form.
	if m.SubscriptionID == "" {
		req.PollParameters = &PollParameters{
			ContentBindings: bindingsFrom10(m.ContentBindings),
		}
	}
	return req
}

func (m *inboxMessage10) upconvert() Message {
	inbox := &InboxMessage{
		MessageID:     m.MessageID,
		Message:       m.Message,
		ContentBlocks: blocksFrom10(m.ContentBlocks),
	}
	if si := m.SubscriptionInformation; si != nil {
		inbox.SourceSubscription = &SourceSubscription{
			CollectionName: si.FeedName,
			SubscriptionID: si.SubscriptionID,
			ExclusiveBegin: si.ExclusiveBegin,
			InclusiveEnd:   si.InclusiveEnd,
		}
	}
	return inbox
}

func (m *manageFeedSubscriptionRequest10) upconvert() Message {
	req := &ManageSubscriptionRequest{
		MessageID:      m.MessageID,
		CollectionName: m.FeedName,
		Action:         m.Action,
		SubscriptionID: m.SubscriptionID,
	}
	if dp := m.DeliveryParameters; dp != nil {
		req.PushParameters = &PushParameters{
			ProtocolBinding: dp.ProtocolBinding,
			Address:         dp.Address,
			MessageBindings: dp.MessageBindings,
		}
	}
	return req
}

// down-conversion: canonical 1.1 responses to 1.0 wire structs. Fields 1.0
// cannot express (subtypes, result ids, record counts, data set records)
// are dropped.

func bindingsTo10(bindings []ContentBinding) []string {
	if len(bindings) == 0 {
		return nil
	}
	out := make([]string, len(bindings))
	for i, b := range bindings {
		out[i] = b.BindingID
	}
	return out
}

func blocksTo10(blocks []ContentBlock) []contentBlock10 {
	if len(blocks) == 0 {
		return nil
	}
	out := make([]contentBlock10, len(blocks))
	for i, b := range blocks {
		out[i] = contentBlock10{
			Binding:        b.Binding.BindingID,
			Content:        b.Content,
			TimestampLabel: b.TimestampLabel,
			Padding:        b.Padding,
		}
	}
	return out
}

func (m *DiscoveryResponse) downconvert() any {
	out := &discoveryResponse10{
		MessageID:    m.MessageID,
		InResponseTo: m.InResponseTo,
	}
	for _, si := range m.Instances {
		out.Instances = append(out.Instances, serviceInstance10{
			ServiceType:     si.ServiceType,
			ServiceVersion:  taxii.ServicesVersion10,
			Available:       si.Available,
			ProtocolBinding: si.ProtocolBinding,
			Address:         si.Address,
			MessageBindings: []string{taxii.BindingXML10},
			AcceptedContent: bindingsTo10(si.AcceptedContent),
			Message:         si.Message,
		})
	}
	return out
}

func (m *CollectionInformationResponse) downconvert() any {
	out := &feedInformationResponse10{
		MessageID:    m.MessageID,
		InResponseTo: m.InResponseTo,
	}
	for _, c := range m.Collections {
		// data sets have no 1.0 equivalent
		if c.CollectionType == CollectionTypeDataSet {
			continue
		}
		out.Feeds = append(out.Feeds, feedRecord10{
			Name:                 c.Name,
			Available:            c.Available,
			Description:          c.Description,
			ContentBindings:      bindingsTo10(c.ContentBindings),
			PushMethods:          c.PushMethods,
			PollingServices:      c.PollingServices,
			SubscriptionServices: c.SubscriptionServices,
		})
	}
	return out
}

func (m *PollResponse) downconvert() any {
	return &pollResponse10{
		MessageID:      m.MessageID,
		InResponseTo:   m.InResponseTo,
		FeedName:       m.CollectionName,
		SubscriptionID: m.SubscriptionID,
		InclusiveBegin: m.ExclusiveBegin,
		InclusiveEnd:   m.InclusiveEnd,
		Message:        m.Message,
		ContentBlocks:  blocksTo10(m.ContentBlocks),
	}
}

func (m *ManageSubscriptionResponse) downconvert() any {
	out := &manageFeedSubscriptionResponse10{
		MessageID:    m.MessageID,
		InResponseTo: m.InResponseTo,
		FeedName:     m.CollectionName,
		Message:      m.Message,
	}
	for _, s := range m.Subscriptions {
		inst := subscriptionInstance10{
			SubscriptionID: s.SubscriptionID,
			PollInstances:  s.PollInstances,
		}
		if pp := s.PushParameters; pp != nil {
			inst.DeliveryParameters = &DeliveryParameters{
				ProtocolBinding: pp.ProtocolBinding,
				Address:         pp.Address,
				MessageBindings: pp.MessageBindings,
			}
		}
		out.Subscriptions = append(out.Subscriptions, inst)
	}
	return out
}

func (m *StatusMessage) downconvert() any {
	out := &statusMessage10{
		MessageID:    m.MessageID,
		InResponseTo: m.InResponseTo,
		StatusType:   m.StatusType,
		Message:      m.Message,
	}
	// 1.0 has a single unstructured detail; keep the first value
	if len(m.Details) > 0 {
		out.StatusDetail = m.Details[0].Value
	}
	return out
}
