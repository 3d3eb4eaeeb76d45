package messagebroker

import (
	"context"
	"testing"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
)

func TestNatsClient_NotConnected(t *testing.T) {
	ctx := context.Background()

	var nilClient *NatsClient
	assert.ErrorIs(t, nilClient.Publish(ctx, "a", nil), ErrNotConnected)

	empty := &NatsClient{}
	_, err := empty.Request(ctx, "a", nil)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = empty.Subscribe(ctx, "a", "", func(*nats.Msg) {})
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.NotPanics(t, func() { empty.Close() })
	assert.NotPanics(t, func() { nilClient.Close() })
}
