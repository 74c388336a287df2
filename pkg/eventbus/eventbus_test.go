package eventbus

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

type testEvent struct{ name string }

func (e testEvent) Name() string { return e.name }

func TestBus_PublishCallsOnlySubscribers(t *testing.T) {
	bus := New(zap.NewNop())
	var a, b int32

	bus.Subscribe("a", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&a, 1)
		return nil
	})
	bus.Subscribe("a", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&a, 1)
		return errors.New("fail")
	})
	bus.Subscribe("b", func(ctx context.Context, event Event) error {
		atomic.AddInt32(&b, 1)
		return nil
	})

	bus.Publish(context.Background(), testEvent{name: "a"})
	bus.Wait()

	assert.Equal(t, int32(2), atomic.LoadInt32(&a))
	assert.Equal(t, int32(0), atomic.LoadInt32(&b))
}

func TestBus_ListenerPanicDoesNotCrash(t *testing.T) {
	bus := New(zap.NewNop())
	bus.Subscribe("x", func(ctx context.Context, event Event) error {
		panic("boom")
	})

	assert.NotPanics(t, func() {
		bus.Publish(context.Background(), testEvent{name: "x"})
		bus.Wait()
	})
}
