package natsrelay_test

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/xraph/cdp/natsrelay"
)

type fakePublisher struct {
	subject string
	payload []byte
	opts    int
	err     error
	seq     uint64
}

func (f *fakePublisher) Publish(_ context.Context, subject string, payload []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.seq++
	f.subject = subject
	f.payload = payload
	f.opts = len(opts)
	return &jetstream.PubAck{Stream: natsrelay.DefaultStream, Sequence: f.seq}, nil
}

type fakeStreams struct {
	cfg jetstream.StreamConfig
	err error
}

func (f *fakeStreams) CreateOrUpdateStream(_ context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error) {
	f.cfg = cfg
	return nil, f.err
}

func TestSubmitPublishesPayload(t *testing.T) {
	pub := &fakePublisher{}
	node := natsrelay.New(pub, natsrelay.WithSubject("cdp.test"))

	txID, err := node.Submit(context.Background(), []byte(`{"id":"CDP-1"}`))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if txID != "CDP_SETTLEMENTS:1" {
		t.Errorf("txID = %q", txID)
	}
	if pub.subject != "cdp.test" || string(pub.payload) != `{"id":"CDP-1"}` {
		t.Errorf("published %q on %q", pub.payload, pub.subject)
	}
	if pub.opts != 1 {
		t.Errorf("publish options = %d, want a message id", pub.opts)
	}
}

func TestSubmitErrors(t *testing.T) {
	node := natsrelay.New(&fakePublisher{err: errors.New("no responders")})

	if _, err := node.Submit(context.Background(), nil); err == nil {
		t.Error("expected error for empty payload")
	}
	if _, err := node.Submit(context.Background(), []byte("x")); err == nil {
		t.Error("expected publish error")
	}
	if err := node.Ping(context.Background()); err != nil {
		t.Errorf("Ping without connection: %v", err)
	}
	if err := node.Close(); err != nil {
		t.Errorf("Close without connection: %v", err)
	}
}

func TestEnsureStream(t *testing.T) {
	sm := &fakeStreams{}
	if err := natsrelay.EnsureStream(context.Background(), sm, "", natsrelay.DefaultSubject); err != nil {
		t.Fatalf("EnsureStream: %v", err)
	}
	if sm.cfg.Name != natsrelay.DefaultStream || sm.cfg.Subjects[0] != natsrelay.DefaultSubject {
		t.Errorf("stream config = %+v", sm.cfg)
	}
	if sm.cfg.Storage != jetstream.FileStorage || sm.cfg.MaxAge != natsrelay.DefaultMaxAge {
		t.Errorf("stream limits = %+v", sm.cfg)
	}

	sm.err = errors.New("jetstream not enabled")
	if err := natsrelay.EnsureStream(context.Background(), sm, "X", "x"); err == nil {
		t.Error("expected error")
	}
}
