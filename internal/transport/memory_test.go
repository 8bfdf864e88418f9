package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bbengfort/raftkv/internal/message"
)

func TestMemoryUnicastDelivery(t *testing.T) {
	board := NewSwitchboard()
	a := board.Register("A")
	b := board.Register("B")

	require.NoError(t, a.Send(context.Background(), message.Message{Src: "A", Dst: "B", Type: message.TypeHello}))

	got, err := b.Recv(context.Background(), time.Now().Add(time.Second))
	require.NoError(t, err)
	assert.Equal(t, "A", got.Src)
}

func TestMemoryBroadcastReachesEveryoneButSelf(t *testing.T) {
	board := NewSwitchboard()
	a := board.Register("A")
	b := board.Register("B")
	c := board.Register("C")

	require.NoError(t, a.Send(context.Background(), message.Message{Src: "A", Dst: message.Broadcast, Type: message.TypeHello}))

	_, err := b.Recv(context.Background(), time.Now().Add(time.Second))
	require.NoError(t, err)
	_, err = c.Recv(context.Background(), time.Now().Add(time.Second))
	require.NoError(t, err)

	_, err = a.Recv(context.Background(), time.Now().Add(20*time.Millisecond))
	assert.ErrorIs(t, err, ErrTimeout, "a broadcast must not loop back to its sender")
}

func TestMemorySetDropSilentlyDiscards(t *testing.T) {
	board := NewSwitchboard()
	a := board.Register("A")
	b := board.Register("B")
	board.SetDrop("A", "B", true)

	require.NoError(t, a.Send(context.Background(), message.Message{Src: "A", Dst: "B", Type: message.TypeHello}))

	_, err := b.Recv(context.Background(), time.Now().Add(20*time.Millisecond))
	assert.ErrorIs(t, err, ErrTimeout)
}

func TestMemoryRecvTimesOutWithoutDelivery(t *testing.T) {
	board := NewSwitchboard()
	a := board.Register("A")

	_, err := a.Recv(context.Background(), time.Now().Add(20*time.Millisecond))
	assert.ErrorIs(t, err, ErrTimeout)
}
