package models

import "time"

// SubscriptionStatus is the lifecycle state of a subscription
type SubscriptionStatus string

const (
	SubscriptionActive       SubscriptionStatus = "active"
	SubscriptionPaused       SubscriptionStatus = "paused"
	SubscriptionUnsubscribed SubscriptionStatus = "unsubscribed"
)

// ResponseType selects whether poll responses carry content or only counts
type ResponseType string

const (
	ResponseFull      ResponseType = "FULL"
	ResponseCountOnly ResponseType = "COUNT_ONLY"
)

// Subscription binds a client to a data collection with a content filter and
// an optional serialized structured query
type Subscription struct {
	ID               string                  `json:"id"`
	CollectionName   string                  `json:"collection_name"`
	ResponseType     ResponseType            `json:"response_type"`
	AcceptAllContent bool                    `json:"accept_all_content"`
	SupportedContent []ContentBindingSubtype `json:"supported_content,omitempty"`
	Query            []byte                  `json:"query,omitempty"`
	Status           SubscriptionStatus      `json:"status"`
	CreatedAt        time.Time               `json:"created_at"`
	UpdatedAt        time.Time               `json:"updated_at"`
}

// EquivalentTo reports whether two subscriptions would deliver the same
// content: same response type, same accept-all flag, the same
// supported-content set pair for pair, and neither carrying a query. A pair
// without a subtype is a different filter than any subtyped pair of the same
// binding, so containment is not enough here. Used to dedupe SUBSCRIBE
// requests.
func (s *Subscription) EquivalentTo(o *Subscription) bool {
	if s.ResponseType != o.ResponseType || s.AcceptAllContent != o.AcceptAllContent {
		return false
	}
	if len(s.Query) > 0 || len(o.Query) > 0 {
		return false
	}
	return samePairSet(s.SupportedContent, o.SupportedContent) &&
		samePairSet(o.SupportedContent, s.SupportedContent)
}

// samePairSet reports whether every pair in a appears exactly in b
func samePairSet(a, b []ContentBindingSubtype) bool {
	if len(a) != len(b) {
		return false
	}
	for _, p := range a {
		found := false
		for _, q := range b {
			if p == q {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
