package kafka

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/mahrfyi/internal/events"
)

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2025, 4, 26, 15, 10, 0, 0, time.UTC)
	ev := events.SubmissionCreated{
		EventType: events.TypeSubmissionCreated,
		ID:        "sub-1",
		AssetType: "cash",
		Amount:    "50000",
		Currency:  "USD",
		Location:  "Pakistan",
		CreatedAt: now,
	}

	msg, err := serializeToMessage(ev)
	require.NoError(t, err)

	assert.Equal(t, []byte("sub-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"location":"Pakistan"`)
	assert.NotContains(t, string(msg.Value), "story")
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte("submission.created"), msg.Headers[0].Value)
	assert.Equal(t, "created_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)
}

func TestNewWriter(t *testing.T) {
	w := NewWriter([]string{"localhost:9092"}, "mahr-submissions", slog.Default())
	assert.Equal(t, "mahr-submissions", w.writer.Topic)
	assert.NoError(t, w.Close())
}
