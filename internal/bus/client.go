// Package bus connects the service to NATS JetStream: it consumes detection
// records and publishes alert confirmations on the same stream.
package bus

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"
)

type Config struct {
	URL            string
	Name           string
	ConnectTimeout time.Duration
	ReconnectWait  time.Duration
	MaxReconnects  int

	Stream        string
	Subjects      []string
	Durable       string
	FilterSubject string
	AckWait       time.Duration
	MaxDeliver    int
	NakDelay      time.Duration
}

// Handler processes one message body. A nil error acknowledges the message,
// an error asks JetStream to redeliver it.
type Handler func(ctx context.Context, data []byte) error

type Client struct {
	conn *nats.Conn
	js   jetstream.JetStream
	cfg  Config
	log  zerolog.Logger

	// closed is signalled by the connection's ClosedHandler.
	closed chan struct{}

	mu        sync.Mutex
	consumers []jetstream.ConsumeContext
	closing   bool
	inflight  sync.WaitGroup
}

// drainWait bounds each wait for a consumer or the connection to finish draining.
const drainWait = 30 * time.Second

func Connect(cfg Config, log zerolog.Logger) (*Client, error) {
	closed := make(chan struct{})
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.Timeout(cfg.ConnectTimeout),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			log.Warn().Err(err).Msg("NATS disconnected")
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info().Str("url", nc.ConnectedUrlRedacted()).Msg("NATS reconnected")
		}),
		nats.ClosedHandler(func(*nats.Conn) {
			close(closed)
		}),
	}

	conn, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	log.Info().Str("url", conn.ConnectedUrlRedacted()).Msg("NATS connection established")

	return &Client{
		conn:   conn,
		js:     js,
		cfg:    cfg,
		log:    log,
		closed: closed,
	}, nil
}

// EnsureStream creates the stream or updates its subjects.
func (c *Client) EnsureStream(ctx context.Context) error {
	_, err := c.js.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      c.cfg.Stream,
		Subjects:  c.cfg.Subjects,
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
	})
	if err != nil {
		return fmt.Errorf("failed to ensure stream %s: %w", c.cfg.Stream, err)
	}
	c.log.Info().
		Str("stream", c.cfg.Stream).
		Strs("subjects", c.cfg.Subjects).
		Msg("JetStream stream ready")
	return nil
}

// Consume attaches the durable consumer and delivers its messages to h until
// Close. ctx is handed to h for every message.
func (c *Client) Consume(ctx context.Context, h Handler) error {
	consumer, err := c.js.CreateOrUpdateConsumer(ctx, c.cfg.Stream, jetstream.ConsumerConfig{
		Durable:       c.cfg.Durable,
		FilterSubject: c.cfg.FilterSubject,
		AckPolicy:     jetstream.AckExplicitPolicy,
		AckWait:       c.cfg.AckWait,
		MaxDeliver:    c.cfg.MaxDeliver,
	})
	if err != nil {
		return fmt.Errorf("failed to create consumer %s: %w", c.cfg.Durable, err)
	}

	cc, err := consumer.Consume(func(msg jetstream.Msg) {
		c.deliver(ctx, msg, h)
	}, jetstream.ConsumeErrHandler(func(_ jetstream.ConsumeContext, err error) {
		c.log.Warn().Err(err).Str("consumer", c.cfg.Durable).Msg("JetStream consume error")
	}))
	if err != nil {
		return fmt.Errorf("failed to start consumer %s: %w", c.cfg.Durable, err)
	}

	c.mu.Lock()
	c.consumers = append(c.consumers, cc)
	c.mu.Unlock()

	c.log.Info().
		Str("stream", c.cfg.Stream).
		Str("consumer", c.cfg.Durable).
		Str("filter", c.cfg.FilterSubject).
		Msg("consuming detection records")
	return nil
}

func (c *Client) deliver(ctx context.Context, msg jetstream.Msg, h Handler) {
	c.mu.Lock()
	if c.closing {
		c.mu.Unlock()
		c.log.Debug().Str("subject", msg.Subject()).Msg("client closing, leaving message for redelivery")
		return
	}
	c.inflight.Add(1)
	c.mu.Unlock()
	defer c.inflight.Done()

	if err := h(ctx, msg.Data()); err != nil {
		var delivered uint64
		if md, mdErr := msg.Metadata(); mdErr == nil {
			delivered = md.NumDelivered
		}
		c.log.Error().
			Err(err).
			Str("subject", msg.Subject()).
			Uint64("delivered", delivered).
			Msg("message handling failed, requesting redelivery")
		if nakErr := msg.NakWithDelay(c.cfg.NakDelay); nakErr != nil {
			c.log.Warn().Err(nakErr).Msg("failed to nak message")
		}
		return
	}
	if err := msg.Ack(); err != nil {
		c.log.Warn().Err(err).Str("subject", msg.Subject()).Msg("failed to ack message")
	}
}

func (c *Client) Publish(ctx context.Context, subject string, data []byte) error {
	_, err := c.js.Publish(ctx, subject, data)
	return err
}

func (c *Client) IsConnected() bool {
	return c.conn != nil && c.conn.IsConnected()
}

// Close drains the consumers, waits for running handlers to return and then
// drains the connection. Once it returns no handler is running or will run.
func (c *Client) Close() error {
	c.mu.Lock()
	consumers := c.consumers
	c.consumers = nil
	c.mu.Unlock()

	for _, cc := range consumers {
		cc.Drain()
		if !waitClosed(cc.Closed()) {
			c.log.Warn().Str("consumer", c.cfg.Durable).Msg("timed out draining consumer")
			cc.Stop()
		}
	}

	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
	c.inflight.Wait()

	if c.conn == nil {
		return nil
	}
	if err := c.conn.Drain(); err != nil && !errors.Is(err, nats.ErrConnectionClosed) {
		c.log.Warn().Err(err).Msg("failed to drain NATS connection, closing")
		c.conn.Close()
		return err
	}
	if !waitClosed(c.closed) {
		c.log.Warn().Msg("timed out draining NATS connection, closing")
		c.conn.Close()
	}
	return nil
}

func waitClosed(ch <-chan struct{}) bool {
	if ch == nil {
		return true
	}
	t := time.NewTimer(drainWait)
	defer t.Stop()
	select {
	case <-ch:
		return true
	case <-t.C:
		return false
	}
}
