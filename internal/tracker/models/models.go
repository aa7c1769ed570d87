package models

import (
	"time"

	id "filer/pkg/domain"
)

// ServiceName identifies the external system a request is sent to.
type ServiceName string

const ServiceBNHub ServiceName = "BN_HUB"

// RequestType identifies the kind of synchronization request.
type RequestType string

const (
	RequestInformCRA             RequestType = "INFORM_CRA"
	RequestGetBN                 RequestType = "GET_BN"
	RequestChangeDeliveryAddress RequestType = "CHANGE_DELIVERY_ADDRESS"
	RequestChangeMailingAddress  RequestType = "CHANGE_MAILING_ADDRESS"
	RequestChangeName            RequestType = "CHANGE_NAME"
	RequestChangeStatus          RequestType = "CHANGE_STATUS"
	RequestChangeParty           RequestType = "CHANGE_PARTY"
)

// Key uniquely identifies a tracked request. At most one row exists per key.
type Key struct {
	BusinessID  id.BusinessID
	Service     ServiceName
	RequestType RequestType
	FilingID    id.FilingID
}

// Request is the durable record of one synchronization with an external
// system. Processed rows are terminal.
type Request struct {
	ID             int64
	Key            Key
	RetryNumber    int
	IsProcessed    bool
	RequestObject  string
	ResponseObject string
	CreatedAt      time.Time
	LastModified   time.Time
}

// ClaimResult is the outcome of atomically claiming a tracked request.
type ClaimResult string

const (
	// ClaimCreated: first attempt, row inserted with retry number 0.
	ClaimCreated ClaimResult = "created"
	// ClaimIncremented: an earlier attempt failed; retry number advanced.
	ClaimIncremented ClaimResult = "incremented"
	// ClaimAlreadyProcessed: a previous attempt succeeded; nothing to send.
	ClaimAlreadyProcessed ClaimResult = "already_processed"
	// ClaimExhausted: the retry budget is spent; the row is left unchanged.
	ClaimExhausted ClaimResult = "exhausted"
)
