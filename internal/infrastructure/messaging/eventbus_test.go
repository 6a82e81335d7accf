package messaging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hacklabs/hacklabs-platform/internal/domain/shared"
)

func TestInMemoryEventBus_DeliversToMatchingHandlers(t *testing.T) {
	bus := NewInMemoryEventBus(nil)

	var created, all int
	require.NoError(t, bus.Subscribe(shared.EventProfileCreated, func(shared.Event) error {
		created++
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		all++
		return nil
	}))

	require.NoError(t, bus.Publish(shared.NewProfileCreatedEvent("p1", "user_1", "a@x.com")))
	require.NoError(t, bus.Publish(shared.NewUnitCompletedEvent("p1", "u1")))

	assert.Equal(t, 1, created)
	assert.Equal(t, 2, all)
}

func TestInMemoryEventBus_HandlerErrorDoesNotFailPublish(t *testing.T) {
	bus := NewInMemoryEventBus(nil)

	require.NoError(t, bus.Subscribe(shared.EventProfileCreated, func(shared.Event) error {
		return errors.New("subscriber broke")
	}))

	assert.NoError(t, bus.Publish(shared.NewProfileCreatedEvent("p1", "user_1", "a@x.com")))
}

func TestInMemoryEventBus_HandlerPanicIsContained(t *testing.T) {
	bus := NewInMemoryEventBus(nil)

	require.NoError(t, bus.Subscribe(shared.EventProfileCreated, func(shared.Event) error {
		panic("boom")
	}))

	var after int
	require.NoError(t, bus.Subscribe(shared.EventProfileCreated, func(shared.Event) error {
		after++
		return nil
	}))

	assert.NoError(t, bus.Publish(shared.NewProfileCreatedEvent("p1", "user_1", "a@x.com")))
	assert.Equal(t, 1, after)
}

func TestInMemoryEventBus_ClosedBusRejectsPublish(t *testing.T) {
	bus := NewInMemoryEventBus(nil)
	require.NoError(t, bus.Close())

	err := bus.Publish(shared.NewProfileCreatedEvent("p1", "user_1", "a@x.com"))
	assert.ErrorIs(t, err, ErrEventBusClosed)

	err = bus.Subscribe(shared.EventProfileCreated, func(shared.Event) error { return nil })
	assert.ErrorIs(t, err, ErrEventBusClosed)
}
