// Package natsrelay implements a settlement node that relays liquidation
// payloads to a NATS JetStream stream. A downstream broadcaster consumes
// the stream and performs the actual on-chain settlement; the ledger only
// needs the publish acknowledgement.
package natsrelay

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const (
	// DefaultStream is the JetStream stream liquidation payloads land in.
	DefaultStream = "CDP_SETTLEMENTS"

	// DefaultSubject is the subject payloads are published on.
	DefaultSubject = "cdp.settlement.liquidations"

	// DefaultMaxAge bounds how long unconsumed payloads are retained.
	DefaultMaxAge = 72 * time.Hour
)

// Publisher is the subset of jetstream.JetStream the node publishes with.
type Publisher interface {
	Publish(ctx context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamManager is the subset of jetstream.JetStream used by EnsureStream.
type StreamManager interface {
	CreateOrUpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
}

// Node publishes payloads to JetStream. Every publish carries a fresh
// Nats-Msg-Id so the server drops duplicates of a retried publish.
type Node struct {
	pub     Publisher
	subject string
	logger  *slog.Logger
	conn    *nats.Conn
}

// Option configures a Node.
type Option func(*Node)

// WithSubject sets the subject payloads are published on.
func WithSubject(subject string) Option {
	return func(n *Node) {
		n.subject = subject
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Node) {
		n.logger = logger
	}
}

// New returns a Node that publishes through pub.
func New(pub Publisher, opts ...Option) *Node {
	n := &Node{
		pub:     pub,
		subject: DefaultSubject,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Dial connects to the NATS server at url, makes sure the settlement
// stream exists and returns a Node that owns the connection.
func Dial(ctx context.Context, url, stream string, opts ...Option) (*Node, error) {
	nc, err := nats.Connect(url, nats.Name("cdp-settlement"))
	if err != nil {
		return nil, fmt.Errorf("natsrelay: connect %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("natsrelay: jetstream: %w", err)
	}

	n := New(js, opts...)
	n.conn = nc

	if err := EnsureStream(ctx, js, stream, n.subject); err != nil {
		nc.Close()
		return nil, err
	}

	return n, nil
}

// Submit publishes payload and returns "<stream>:<sequence>" of the
// stored message as the transaction id.
func (n *Node) Submit(ctx context.Context, payload []byte) (string, error) {
	if len(payload) == 0 {
		return "", errors.New("natsrelay: empty payload")
	}

	msgID := uuid.NewString()
	ack, err := n.pub.Publish(ctx, n.subject, payload, jetstream.WithMsgID(msgID))
	if err != nil {
		return "", fmt.Errorf("natsrelay: publish %s: %w", n.subject, err)
	}

	txID := fmt.Sprintf("%s:%d", ack.Stream, ack.Sequence)
	n.logger.Debug("settlement payload published",
		"subject", n.subject,
		"msg_id", msgID,
		"tx_id", txID,
		"duplicate", ack.Duplicate,
	)

	return txID, nil
}

// Ping reports whether the underlying connection is usable. Nodes built
// with New around a caller-owned publisher are always considered healthy.
func (n *Node) Ping(_ context.Context) error {
	if n.conn == nil {
		return nil
	}
	if !n.conn.IsConnected() {
		return fmt.Errorf("natsrelay: connection status %s", n.conn.Status())
	}
	return nil
}

// Close drains the connection opened by Dial. It is a no-op for nodes
// built with New.
func (n *Node) Close() error {
	if n.conn == nil {
		return nil
	}
	return n.conn.Drain()
}

// EnsureStream creates or updates the stream that holds settlement
// payloads published on subject.
func EnsureStream(ctx context.Context, sm StreamManager, stream, subject string) error {
	if stream == "" {
		stream = DefaultStream
	}
	_, err := sm.CreateOrUpdateStream(ctx, jetstream.StreamConfig{
		Name:      stream,
		Subjects:  []string{subject},
		Storage:   jetstream.FileStorage,
		Retention: jetstream.LimitsPolicy,
		MaxAge:    DefaultMaxAge,
		Replicas:  1,
	})
	if err != nil {
		return fmt.Errorf("natsrelay: create stream %s: %w", stream, err)
	}
	return nil
}
