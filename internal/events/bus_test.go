package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestBusDeliversInOrder(t *testing.T) {
	bus := NewBus(zap.NewNop(), 4)

	var (
		mu  sync.Mutex
		got []EventType
	)
	record := func(_ context.Context, e Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e.Type())
		return nil
	}
	bus.SubscribeFunc(TradeExecuted, record)
	bus.SubscribeFunc(CurveCompleted, record)

	ctx := context.Background()
	for i := 0; i < 10; i++ {
		require.NoError(t, bus.Publish(ctx, TradeEvent{BaseEvent: NewBase(TradeExecuted)}))
	}
	require.NoError(t, bus.Publish(ctx, CurveCompleteEvent{BaseEvent: NewBase(CurveCompleted)}))

	shutdownCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, bus.Shutdown(shutdownCtx))

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, got, 11)
	assert.Equal(t, CurveCompleted, got[10])
}

func TestPublishAfterShutdown(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	require.NoError(t, bus.Shutdown(context.Background()))

	err := bus.Publish(context.Background(), TradeEvent{BaseEvent: NewBase(TradeExecuted)})
	assert.ErrorIs(t, err, ErrBusClosed)
}

func TestPublishSyncCollectsHandlerErrors(t *testing.T) {
	bus := NewBus(zap.NewNop(), 1)
	defer bus.Shutdown(context.Background())

	boom := errors.New("boom")
	bus.SubscribeFunc(AssetCreated, func(context.Context, Event) error { return boom })
	sub := bus.SubscribeFunc(AssetCreated, func(context.Context, Event) error { return nil })

	err := bus.PublishSync(context.Background(), AssetCreatedEvent{BaseEvent: NewBase(AssetCreated)})
	assert.ErrorIs(t, err, boom)

	sub.Unsubscribe()
	sub.Unsubscribe()
	stats := bus.Stats()
	assert.Equal(t, map[EventType]int{AssetCreated: 1}, stats.HandlersPerType)
	assert.Equal(t, uint64(1), stats.Delivered)
	assert.Equal(t, uint64(1), stats.Failed)
}

func TestNewBaseStampsEvent(t *testing.T) {
	a := NewBase(TradeExecuted)
	b := NewBase(TradeExecuted)
	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, TradeExecuted, a.Type())
	assert.False(t, a.Timestamp().IsZero())
}
