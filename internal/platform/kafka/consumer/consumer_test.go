package consumer

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/twmb/franz-go/pkg/kgo"
)

func TestToMessage(t *testing.T) {
	ts := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	msg := toMessage(&kgo.Record{
		Topic:     "filer",
		Partition: 2,
		Offset:    41,
		Key:       []byte("7"),
		Value:     []byte(`{"filingIdentifier":7}`),
		Headers:   []kgo.RecordHeader{{Key: "delivery-attempt", Value: []byte("3")}},
		Timestamp: ts,
	})
	assert.Equal(t, "filer", msg.Topic)
	assert.Equal(t, int32(2), msg.Partition)
	assert.Equal(t, int64(41), msg.Offset)
	assert.Equal(t, "3", msg.Headers["delivery-attempt"])
	assert.Equal(t, ts, msg.Timestamp)
}
