package bus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeMsg implements the parts of jetstream.Msg the delivery path uses.
type fakeMsg struct {
	jetstream.Msg
	data     []byte
	acked    bool
	nakked   bool
	nakDelay time.Duration
}

func (m *fakeMsg) Data() []byte { return m.data }

func (m *fakeMsg) Subject() string { return "radares.ccr" }

func (m *fakeMsg) Metadata() (*jetstream.MsgMetadata, error) {
	return &jetstream.MsgMetadata{NumDelivered: 2}, nil
}

func (m *fakeMsg) Ack() error {
	m.acked = true
	return nil
}

func (m *fakeMsg) NakWithDelay(d time.Duration) error {
	m.nakked = true
	m.nakDelay = d
	return nil
}

func TestDeliver_AcksOnSuccess(t *testing.T) {
	c := &Client{cfg: Config{NakDelay: time.Second}, log: zerolog.Nop()}
	msg := &fakeMsg{data: []byte("CCR|2025-03-14|08:15:30|ABC1D23")}

	var got string
	c.deliver(context.Background(), msg, func(_ context.Context, data []byte) error {
		got = string(data)
		return nil
	})

	assert.Equal(t, "CCR|2025-03-14|08:15:30|ABC1D23", got)
	assert.True(t, msg.acked)
	assert.False(t, msg.nakked)
}

func TestDeliver_NaksOnError(t *testing.T) {
	c := &Client{cfg: Config{NakDelay: 5 * time.Second}, log: zerolog.Nop()}
	msg := &fakeMsg{data: []byte("x")}

	c.deliver(context.Background(), msg, func(context.Context, []byte) error {
		return errors.New("database unavailable")
	})

	assert.False(t, msg.acked)
	assert.True(t, msg.nakked)
	assert.Equal(t, 5*time.Second, msg.nakDelay)
}

func TestClient_IsConnectedWithoutConnection(t *testing.T) {
	c := &Client{log: zerolog.Nop()}
	assert.False(t, c.IsConnected())
	assert.NoError(t, c.Close())
}

// fakeConsumeContext closes as soon as it is drained.
type fakeConsumeContext struct {
	jetstream.ConsumeContext
	drained chan struct{}
}

func newFakeConsumeContext() *fakeConsumeContext {
	return &fakeConsumeContext{drained: make(chan struct{})}
}

func (f *fakeConsumeContext) Drain() { close(f.drained) }

func (f *fakeConsumeContext) Stop() {}

func (f *fakeConsumeContext) Closed() <-chan struct{} { return f.drained }

func TestClose_WaitsForRunningHandler(t *testing.T) {
	cc := newFakeConsumeContext()
	c := &Client{cfg: Config{NakDelay: time.Second}, log: zerolog.Nop(), consumers: []jetstream.ConsumeContext{cc}}

	started := make(chan struct{})
	release := make(chan struct{})
	msg := &fakeMsg{data: []byte("CCR|2025-03-14|08:15:30|ABC1D23")}
	handled := make(chan struct{})
	go func() {
		defer close(handled)
		c.deliver(context.Background(), msg, func(context.Context, []byte) error {
			close(started)
			<-release
			return nil
		})
	}()
	<-started

	closed := make(chan error, 1)
	go func() { closed <- c.Close() }()

	select {
	case <-closed:
		t.Fatal("Close returned while a handler was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case err := <-closed:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close did not return after the handler finished")
	}
	<-handled

	assert.True(t, msg.acked)
	select {
	case <-cc.drained:
	default:
		t.Fatal("consumer was not drained")
	}
}

func TestDeliver_SkipsAfterClose(t *testing.T) {
	c := &Client{cfg: Config{NakDelay: time.Second}, log: zerolog.Nop()}
	require.NoError(t, c.Close())

	called := false
	msg := &fakeMsg{data: []byte("x")}
	c.deliver(context.Background(), msg, func(context.Context, []byte) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.False(t, msg.acked)
	assert.False(t, msg.nakked)
}
