package bot

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

func TestShutdownClosesInReverseOrder(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)

	var mu sync.Mutex
	var order []string
	for _, name := range []string{"store", "bus", "api"} {
		name := name
		sh.AddFunc(name, func() error {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, name)
			return nil
		})
	}

	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Equal(t, []string{"api", "bus", "store"}, order)

	// повторный вызов ничего не закрывает
	require.NoError(t, sh.Shutdown(context.Background()))
	assert.Len(t, order, 3)
}

func TestShutdownCollectsErrors(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)
	boom := errors.New("boom")
	closed := false
	sh.AddFunc("first", func() error { closed = true; return nil })
	sh.AddFunc("second", func() error { return boom })

	err := sh.Shutdown(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.True(t, closed, "a failing service does not stop the rest")
}

func TestShutdownTimeout(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)
	release := make(chan struct{})
	defer close(release)
	sh.AddFunc("stuck", func() error { <-release; return nil })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := sh.Shutdown(ctx)
	assert.ErrorContains(t, err, "stuck: shutdown timeout")
}

func TestHandleShutdownOnContext(t *testing.T) {
	sh := NewShutdownHandler(zap.NewNop(), time.Second)
	closed := make(chan struct{})
	sh.AddFunc("svc", func() error { close(closed); return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, sh.HandleShutdown(ctx))

	select {
	case <-closed:
	default:
		t.Fatal("service was not closed")
	}
}
