package service_test

import (
	"testing"
	"time"

	"exposure-server/internal/service"
	"exposure-server/shared/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestEventBus_FanOut(t *testing.T) {
	bus := service.NewEventBus(zap.NewNop())
	first, cancelFirst := bus.Subscribe(4)
	second, cancelSecond := bus.Subscribe(4)
	defer cancelSecond()

	evt := models.NewSessionEvent(models.EventStageChanged, "p", 2, time.Now())
	bus.Publish(evt)

	assert.Equal(t, evt.ID, (<-first).ID)
	assert.Equal(t, evt.ID, (<-second).ID)

	cancelFirst()
	cancelFirst()
	_, open := <-first
	assert.False(t, open)
	assert.Equal(t, 1, bus.SubscriberCount())
}

func TestEventBus_DropsWhenFull(t *testing.T) {
	bus := service.NewEventBus(zap.NewNop())
	events, cancel := bus.Subscribe(1)
	defer cancel()

	bus.Publish(models.NewSessionEvent(models.EventStageChanged, "p", 1, time.Now()))
	bus.Publish(models.NewSessionEvent(models.EventStageChanged, "p", 2, time.Now()))

	got := <-events
	assert.Equal(t, 1, got.Stage)
	select {
	case evt := <-events:
		t.Fatalf("unexpected event %v", evt)
	default:
	}
}

func TestEventBus_Close(t *testing.T) {
	bus := service.NewEventBus(zap.NewNop())
	events, _ := bus.Subscribe(1)
	bus.Close()
	bus.Close()

	_, open := <-events
	assert.False(t, open)

	late, _ := bus.Subscribe(1)
	_, open = <-late
	require.False(t, open)
	assert.Equal(t, 0, bus.SubscriberCount())
}
