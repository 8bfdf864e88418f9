package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/bbengfort/raftkv/internal/message"
)

func TestUDPSendRecvRoundTrip(t *testing.T) {
	a, err := NewUDP("A", "127.0.0.1:0", nil)
	require.NoError(t, err)
	defer a.Close()

	b, err := NewUDP("B", "127.0.0.1:0", map[string]string{
		"A": a.conn.LocalAddr().String(),
	})
	require.NoError(t, err)
	defer b.Close()

	ctx := context.Background()
	require.NoError(t, b.Send(ctx, message.Message{Src: "B", Dst: "A", Type: message.TypeHello}))

	got, err := a.Recv(ctx, time.Now().Add(2*time.Second))
	require.NoError(t, err)
	require.Equal(t, message.TypeHello, got.Type)
	require.Equal(t, "B", got.Src)
}

func TestUDPRecvTimesOutWithoutData(t *testing.T) {
	a, err := NewUDP("A", "127.0.0.1:0", nil)
	require.NoError(t, err)
	defer a.Close()

	_, err = a.Recv(context.Background(), time.Now().Add(20*time.Millisecond))
	require.ErrorIs(t, err, ErrTimeout)
}

func TestUDPSendToUnknownDestinationDoesNotError(t *testing.T) {
	a, err := NewUDP("A", "127.0.0.1:0", nil)
	require.NoError(t, err)
	defer a.Close()

	require.NoError(t, a.Send(context.Background(), message.Message{Dst: "nobody", Type: message.TypeHello}))
}

func TestUDPRepliesToLearnedClientAddress(t *testing.T) {
	a, err := NewUDP("A", "127.0.0.1:0", nil)
	require.NoError(t, err)
	defer a.Close()

	client, err := NewUDP("client-1", "127.0.0.1:0", nil)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()
	require.NoError(t, client.Send(ctx, message.Message{
		Src: "client-1", Dst: "A", Type: message.TypePut, MID: "1", Key: "x", Value: "7",
	}))

	// client-1 never appears in A's peer manifest, so A can only learn
	// where to send the reply by remembering the put's source address.
	put, err := a.Recv(ctx, time.Now().Add(2*time.Second))
	require.NoError(t, err)
	require.Equal(t, "client-1", put.Src)

	require.NoError(t, a.Send(ctx, message.Message{Dst: "client-1", Type: message.TypeOK, MID: "1"}))

	reply, err := client.Recv(ctx, time.Now().Add(2*time.Second))
	require.NoError(t, err)
	require.Equal(t, message.TypeOK, reply.Type)
	require.Equal(t, "1", reply.MID)
}
