package queue

import (
	"context"
	"encoding/json"
	"strings"

	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"
)

// PaymentCompleted is the payment status that releases a filing.
const PaymentCompleted = "COMPLETED"

// FilingMessage asks for a filing to be dispatched.
type FilingMessage struct {
	FilingIdentifier id.FilingID `json:"filingIdentifier"`
}

// PaymentMessage reports the outcome of a payment.
type PaymentMessage struct {
	PaymentToken PaymentToken `json:"paymentToken"`
}

// PaymentToken is the payment system's view of one filing payment.
type PaymentToken struct {
	ID               string      `json:"id"`
	StatusCode       string      `json:"statusCode"`
	FilingIdentifier id.FilingID `json:"filingIdentifier"`
}

// Completed reports whether the payment went through.
func (t PaymentToken) Completed() bool {
	return strings.EqualFold(t.StatusCode, PaymentCompleted)
}

// EncodeFilingMessage renders the dispatch request for a filing.
func EncodeFilingMessage(filingID id.FilingID) ([]byte, error) {
	return json.Marshal(FilingMessage{FilingIdentifier: filingID})
}

// EnqueueFiling publishes a dispatch request for filingID, keyed by the id so
// that requests for one filing stay on one partition.
func EnqueueFiling(ctx context.Context, publisher Publisher, topic string, filingID id.FilingID) error {
	value, err := EncodeFilingMessage(filingID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.KindFatal, "encode filing message")
	}
	if err := publisher.Publish(ctx, topic, []byte(filingID.String()), value, nil); err != nil {
		return dErrors.Wrap(err, dErrors.KindRetryable, "enqueue filing")
	}
	return nil
}

// DecodeFilingMessage parses a filing message. Malformed messages are Fatal:
// redelivering them cannot help.
func DecodeFilingMessage(data []byte) (FilingMessage, error) {
	var msg FilingMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return FilingMessage{}, dErrors.Wrap(err, dErrors.KindFatal, "decode filing message")
	}
	if msg.FilingIdentifier.IsNil() {
		return FilingMessage{}, dErrors.New(dErrors.KindFatal, "filing message has no filing identifier")
	}
	return msg, nil
}

// DecodePaymentMessage parses a payment message.
func DecodePaymentMessage(data []byte) (PaymentMessage, error) {
	var msg PaymentMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return PaymentMessage{}, dErrors.Wrap(err, dErrors.KindFatal, "decode payment message")
	}
	if msg.PaymentToken.FilingIdentifier.IsNil() {
		return PaymentMessage{}, dErrors.New(dErrors.KindFatal, "payment message has no filing identifier")
	}
	return msg, nil
}
