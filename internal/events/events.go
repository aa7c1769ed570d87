// Package events announces filing outcomes to downstream consumers such as
// the ledger and email services.
package events

//go:generate mockgen -source=events.go -destination=mocks/mocks.go -package=mocks Publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"filer/internal/filing/models"
	id "filer/pkg/domain"
)

// Type names an event.
type Type string

const (
	TypeFilingCompleted Type = "filing.completed"
	TypeFilingFailed    Type = "filing.failed"
)

// HeaderEventType carries the event type on every published record.
const HeaderEventType = "event-type"

// Event is the JSON body published for a filing outcome.
type Event struct {
	ID            uuid.UUID   `json:"id"`
	Type          Type        `json:"type"`
	FilingID      id.FilingID `json:"filingId"`
	FilingTypes   []string    `json:"filingTypes"`
	EffectiveDate time.Time   `json:"effectiveDate"`
	Identifier    string      `json:"identifier,omitempty"`
	Status        string      `json:"status"`
	Reason        string      `json:"reason,omitempty"`
	OccurredAt    time.Time   `json:"occurredAt"`
}

// NewFilingEvent describes a filing after dispatch.
func NewFilingEvent(t Type, f *models.Filing, identifier string, now time.Time) Event {
	var types []string
	for _, ft := range f.Meta.LegalFilings() {
		types = append(types, string(ft))
	}
	if len(types) == 0 && f.Type != "" {
		types = []string{string(f.Type)}
	}
	return Event{
		ID:            uuid.New(),
		Type:          t,
		FilingID:      f.ID,
		FilingTypes:   types,
		EffectiveDate: f.EffectiveDate,
		Identifier:    identifier,
		Status:        string(f.Status),
		Reason:        f.Comment,
		OccurredAt:    now,
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// Producer is the record sink the Kafka publisher writes to.
type Producer interface {
	Publish(ctx context.Context, topic string, key, value []byte, headers map[string]string) error
}

// KafkaPublisher writes events to the events topic and completions to the
// email topic as well.
type KafkaPublisher struct {
	producer    Producer
	eventsTopic string
	emailTopic  string
}

// NewKafkaPublisher creates a publisher. An empty email topic disables
// email notifications.
func NewKafkaPublisher(producer Producer, eventsTopic, emailTopic string) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, eventsTopic: eventsTopic, emailTopic: emailTopic}
}

func (p *KafkaPublisher) Publish(ctx context.Context, e Event) error {
	body, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal event %s: %w", e.ID, err)
	}
	key := []byte(e.FilingID.String())
	headers := map[string]string{HeaderEventType: string(e.Type)}
	if err := p.producer.Publish(ctx, p.eventsTopic, key, body, headers); err != nil {
		return err
	}
	if e.Type == TypeFilingCompleted && p.emailTopic != "" {
		if err := p.producer.Publish(ctx, p.emailTopic, key, body, headers); err != nil {
			return err
		}
	}
	return nil
}

// MemoryPublisher keeps events in memory for tests and local runs.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher {
	return &MemoryPublisher{}
}

func (p *MemoryPublisher) Publish(_ context.Context, e Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

// Events returns a copy of everything published so far.
func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}
