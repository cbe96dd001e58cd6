package extension

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"

	"github.com/xraph/cdp"
	"github.com/xraph/cdp/clock"
	"github.com/xraph/cdp/inscription"
	"github.com/xraph/cdp/store/memory"
)

func quietLedger() Option {
	return WithLedgerOption(cdp.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
}

func built(t *testing.T, opts ...Option) *Extension {
	t.Helper()
	e := New(append([]Option{quietLedger()}, opts...)...)
	e.config = mergeWithDefaults(e.config)
	if err := e.build(context.Background()); err != nil {
		t.Fatalf("build: %v", err)
	}
	t.Cleanup(func() { _ = e.shutdown() })
	return e
}

func TestBuildDefaults(t *testing.T) {
	clk := clock.NewManual(1_700_000_000_000)
	e := built(t, WithLedgerOption(cdp.WithClock(clk)))

	if _, ok := e.store.(*memory.Store); !ok {
		t.Errorf("store = %T, want *memory.Store", e.store)
	}
	if _, ok := e.inscriber.(*inscription.JSON); !ok {
		t.Errorf("inscriber = %T, want *inscription.JSON", e.inscriber)
	}
	if e.node != nil || e.relay != nil {
		t.Errorf("unexpected settlement node %T / relay %T", e.node, e.relay)
	}
	if e.Engine() == nil {
		t.Fatal("engine not built")
	}
	if err := e.Health(context.Background()); err != nil {
		t.Errorf("Health: %v", err)
	}

	ctx := context.Background()
	cdpID, err := e.Engine().Open(ctx, "alice", decimal.NewFromInt(10))
	if err != nil {
		t.Fatal(err)
	}
	clk.Advance(5_000)
	liq, err := e.Engine().Liquidate(ctx, cdpID)
	if err != nil {
		t.Fatal(err)
	}
	env, err := inscription.Decode(liq.Payload)
	if err != nil {
		t.Fatal(err)
	}
	if env.Timestamp != clk.Now() {
		t.Errorf("envelope ts = %d, want ledger clock %d", env.Timestamp, clk.Now())
	}
}

func TestBuildWiresPlugins(t *testing.T) {
	e := built(t, WithMetrics(prometheus.NewRegistry()), WithAudit())

	plugins := e.Engine().Plugins()
	if plugins.Count() != 2 {
		t.Fatalf("registered plugins = %d, want 2", plugins.Count())
	}
	for _, name := range []string{"observability-metrics", "audit-hook"} {
		if plugins.Get(name) == nil {
			t.Errorf("plugin %q not registered", name)
		}
	}

	plain := built(t)
	if n := plain.Engine().Plugins().Count(); n != 0 {
		t.Errorf("plugins without config = %d, want 0", n)
	}
}

func TestBuildRejectsInvalidParams(t *testing.T) {
	e := New(WithConfig(Config{InterestRate: "-0.1"}))
	e.config = mergeWithDefaults(e.config)
	if err := e.build(context.Background()); !errors.Is(err, cdp.ErrInvalidInput) {
		t.Fatalf("got %v, want ErrInvalidInput", err)
	}
	if e.Engine() != nil {
		t.Error("engine built despite invalid params")
	}
}

// orderLog records settlement submissions and relay shutdown in order.
type orderLog struct {
	mu     sync.Mutex
	events []string
}

func (o *orderLog) add(ev string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.events = append(o.events, ev)
}

func (o *orderLog) list() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

type loggingRelay struct{ log *orderLog }

func (r loggingRelay) Ping(context.Context) error { return nil }

func (r loggingRelay) Close() error {
	r.log.add("close")
	return nil
}

func TestShutdownDrainsBeforeRelayCloses(t *testing.T) {
	log := &orderLog{}
	node := cdp.SettlementNodeFunc(func(context.Context, []byte) (string, error) {
		log.add("submit")
		return "tx-1", nil
	})
	e := built(t, WithSettlementNode(node))
	e.relay = loggingRelay{log: log}

	ctx := context.Background()
	cdpID, err := e.Engine().Open(ctx, "alice", decimal.NewFromInt(10))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := e.Engine().Liquidate(ctx, cdpID); err != nil {
		t.Fatal(err)
	}

	if err := e.shutdown(); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	got := log.list()
	if len(got) != 2 || got[0] != "submit" || got[1] != "close" {
		t.Fatalf("shutdown order = %v, want [submit close]", got)
	}
	if err := e.Health(ctx); !errors.Is(err, cdp.ErrStoreClosed) {
		t.Errorf("Health after shutdown: got %v, want ErrStoreClosed", err)
	}
}
