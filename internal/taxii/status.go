package taxii

import (
	"errors"
	"fmt"
)

// StatusType names a TAXII status message kind
type StatusType string

const (
	StatusBadMessage                       StatusType = "BAD_MESSAGE"
	StatusDenied                           StatusType = "DENIED"
	StatusDestinationCollectionError       StatusType = "DESTINATION_COLLECTION_ERROR"
	StatusFailure                          StatusType = "FAILURE"
	StatusInvalidResponsePart              StatusType = "INVALID_RESPONSE_PART"
	StatusNotFound                         StatusType = "NOT_FOUND"
	StatusPending                          StatusType = "PENDING"
	StatusPollingUnsupported               StatusType = "POLLING_UNSUPPORTED"
	StatusRetry                            StatusType = "RETRY"
	StatusSuccess                          StatusType = "SUCCESS"
	StatusUnauthorized                     StatusType = "UNAUTHORIZED"
	StatusUnsupportedMessageBinding        StatusType = "UNSUPPORTED_MESSAGE_BINDING"
	StatusUnsupportedContentBinding        StatusType = "UNSUPPORTED_CONTENT_BINDING"
	StatusUnsupportedProtocol              StatusType = "UNSUPPORTED_PROTOCOL"
	StatusUnsupportedQuery                 StatusType = "UNSUPPORTED_QUERY"
	StatusUnsupportedTargetingExpressionID StatusType = "UNSUPPORTED_TARGETING_EXPRESSION_ID"
)

// Fixed status-detail names. Keys of a status message's detail map are bound
// to the status type.
const (
	DetailItem                  = "ITEM"
	DetailAcceptableDestination = "ACCEPTABLE_DESTINATION"
	DetailMaxPartNumber         = "MAX_PART_NUMBER"
	DetailEstimatedWait         = "ESTIMATED_WAIT"
	DetailResultID              = "RESULT_ID"
	DetailWillPush              = "WILL_PUSH"
	DetailSupportedBinding      = "SUPPORTED_BINDING"
	DetailSupportedContent      = "SUPPORTED_CONTENT"
	DetailSupportedProtocol     = "SUPPORTED_PROTOCOL"
	DetailSupportedQuery        = "SUPPORTED_QUERY"
	DetailTargetingExpressionID = "TARGETING_EXPRESSION_ID"
)

// StatusError carries everything needed to build a protocol status response.
// It is the single failure channel from header negotiation, message-support
// checks and handler logic up to the dispatch boundary, which converts it to
// a serialized status message.
type StatusError struct {
	Type         StatusType
	Message      string
	InResponseTo string
	Details      map[string]string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("taxii status %s: %s", e.Type, e.Message)
}

// NewStatusError builds a StatusError with a formatted message
func NewStatusError(t StatusType, format string, args ...any) *StatusError {
	return &StatusError{Type: t, Message: fmt.Sprintf(format, args...)}
}

// WithDetail attaches a named status detail and returns the receiver
func (e *StatusError) WithDetail(name, value string) *StatusError {
	if e.Details == nil {
		e.Details = make(map[string]string)
	}
	e.Details[name] = value
	return e
}

// AsStatusError unwraps err into a *StatusError if it is one
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// ErrNotFound is the sentinel returned by stores when a lookup misses. The
// transport layer maps unknown service paths to HTTP 404; handlers map store
// misses to NOT_FOUND statuses.
var ErrNotFound = errors.New("not found")
