package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"exposure-server/shared/models"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeChannel struct {
	mu        sync.Mutex
	failures  int
	published []amqp.Publishing
	keys      []string
	closed    bool
}

func (c *fakeChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures > 0 {
		c.failures--
		return amqp.ErrClosed
	}
	c.published = append(c.published, msg)
	c.keys = append(c.keys, key)
	return nil
}

func (c *fakeChannel) Close() error {
	c.closed = true
	return nil
}

func TestPublisher_SessionExit(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "session_events", zap.NewNop())
	distress := models.DistressRating(70)
	started := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)

	err := p.PublishSessionExit(context.Background(), models.SessionExitRecord{
		Type:              models.MessageSessionExit,
		PatientID:         "patient-9",
		ExitTime:          started.Add(5 * time.Minute),
		StartedAt:         &started,
		DurationSeconds:   300,
		ChaptersCompleted: 2,
		CurrentStage:      3,
		FinalDistress:     &distress,
	})
	require.NoError(t, err)

	require.Len(t, ch.published, 1)
	msg := ch.published[0]
	assert.Equal(t, "session_events", ch.keys[0])
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "session_exit", msg.Type)

	var body map[string]any
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "session_exit", body["type"])
	assert.Equal(t, "patient-9", body["patient_id"])
	assert.EqualValues(t, 300, body["duration_seconds"])
	assert.EqualValues(t, 2, body["chapters_completed"])
	assert.EqualValues(t, 3, body["current_stage"])
	assert.EqualValues(t, 70, body["final_sud"])
}

func TestPublisher_RetriesTransientFailures(t *testing.T) {
	ch := &fakeChannel{failures: 2}
	p := newPublisher(ch, "session_events", zap.NewNop())

	err := p.PublishSessionFeedback(context.Background(), models.SessionFeedback{
		Type:      models.MessageSessionFeedback,
		PatientID: "p",
		Comfort:   4,
	})
	require.NoError(t, err)
	assert.Len(t, ch.published, 1)
}

func TestPublisher_GivesUp(t *testing.T) {
	ch := &fakeChannel{failures: publishAttempts}
	p := newPublisher(ch, "session_events", zap.NewNop())

	err := p.PublishSessionCompleted(context.Background(), models.SessionCompletedRecord{
		Type:      models.MessageSessionCompleted,
		PatientID: "p",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, amqp.ErrClosed))
	assert.Empty(t, ch.published)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}
