package queue

import (
	"context"
	"fmt"
	"log/slog"

	"filer/internal/platform/kafka/consumer"
	"filer/internal/processing"
	id "filer/pkg/domain"
)

//go:generate mockgen -source=filing.go -destination=mocks/filing_mocks.go -package=mocks

// Processor dispatches one filing.
type Processor interface {
	ProcessFiling(ctx context.Context, filingID id.FilingID) (processing.Outcome, error)
}

// DueLister finds PAID filings whose effective date has passed.
type DueLister interface {
	DueFilings(ctx context.Context, limit int) ([]id.FilingID, error)
}

// EnqueueDue publishes a filing message for up to limit due filings and
// reports how many were enqueued. Filings that are still not dispatchable
// when the message arrives are skipped by the dispatcher, so a sweep is
// safe to repeat.
func EnqueueDue(ctx context.Context, lister DueLister, publisher Publisher, topic string, limit int) (int, error) {
	ids, err := lister.DueFilings(ctx, limit)
	if err != nil {
		return 0, err
	}
	for i, fid := range ids {
		if err := EnqueueFiling(ctx, publisher, topic, fid); err != nil {
			return i, fmt.Errorf("filing %s: %w", fid, err)
		}
	}
	return len(ids), nil
}

// FilingHandler consumes filing messages from the filer topic.
type FilingHandler struct {
	processor Processor
	logger    *slog.Logger
}

// NewFilingHandler creates a filing message handler.
func NewFilingHandler(processor Processor, logger *slog.Logger) *FilingHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FilingHandler{processor: processor, logger: logger}
}

// Handle dispatches the referenced filing. Only retryable failures are
// returned; everything else has already been recorded on the filing.
func (h *FilingHandler) Handle(ctx context.Context, msg *consumer.Message) error {
	fm, err := DecodeFilingMessage(msg.Value)
	if err != nil {
		h.logger.Error("dropping filing message", "topic", msg.Topic, "offset", msg.Offset, "error", err)
		return nil
	}
	outcome, err := h.processor.ProcessFiling(ctx, fm.FilingIdentifier)
	if err != nil {
		return err
	}
	h.logger.Debug("filing message handled", "filing_id", fm.FilingIdentifier, "outcome", outcome)
	return nil
}
