package queue

import (
	"context"
	"log/slog"

	"filer/internal/platform/kafka/consumer"
	id "filer/pkg/domain"
	dErrors "filer/pkg/domain-errors"
)

//go:generate mockgen -source=payment.go -destination=mocks/payment_mocks.go -package=mocks

// Completer marks a filing as paid.
type Completer interface {
	Complete(ctx context.Context, filingID id.FilingID) (bool, error)
}

// Publisher writes a record to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// PaymentHandler consumes payment messages and enqueues paid filings for
// dispatch.
type PaymentHandler struct {
	payments   Completer
	publisher  Publisher
	filerTopic string
	logger     *slog.Logger
}

// NewPaymentHandler creates a payment message handler that re-publishes
// paid filings to filerTopic.
func NewPaymentHandler(payments Completer, publisher Publisher, filerTopic string, logger *slog.Logger) *PaymentHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentHandler{
		payments:   payments,
		publisher:  publisher,
		filerTopic: filerTopic,
		logger:     logger,
	}
}

// Handle applies a payment confirmation.
func (h *PaymentHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	pm, err := DecodePaymentMessage(msg.Value)
	if err != nil {
		h.logger.Error("dropping payment message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	token := pm.PaymentToken
	log := h.logger.With("filing_id", token.FilingIdentifier, "payment_id", token.ID)
	if !token.Completed() {
		log.Info("ignoring payment", "status", token.StatusCode)
		return nil
	}

	ready, err := h.payments.Complete(ctx, token.FilingIdentifier)
	if err != nil {
		if dErrors.IsRetryable(err) {
			return err
		}
		log.Error("payment could not be applied", "error", err)
		return nil
	}
	if !ready {
		return nil
	}

	if err := EnqueueFiling(ctx, h.publisher, h.filerTopic, token.FilingIdentifier); err != nil {
		return err
	}
	log.Info("paid filing enqueued", "topic", h.filerTopic)
	return nil
}
