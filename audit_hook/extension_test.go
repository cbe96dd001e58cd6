package audithook_test

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	audithook "github.com/xraph/cdp/audit_hook"
	"github.com/xraph/cdp/liquidation"
	"github.com/xraph/cdp/position"
)

type memoryRecorder struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (m *memoryRecorder) Record(_ context.Context, evt *audithook.AuditEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, evt)
	return nil
}

func (m *memoryRecorder) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.events))
	for i, e := range m.events {
		out[i] = e.Action
	}
	return out
}

func TestExtensionRecordsEvents(t *testing.T) {
	rec := &memoryRecorder{}
	ext := audithook.New(rec)
	ctx := context.Background()

	p := &position.Position{ID: "CDP-3", Owner: "A", Collateral: decimal.NewFromInt(10), Debt: decimal.NewFromInt(2)}
	_ = ext.OnPositionOpened(ctx, p)
	_ = ext.OnCollateralChanged(ctx, p, decimal.NewFromInt(-4))
	_ = ext.OnDebtChanged(ctx, p, decimal.NewFromInt(2))
	_ = ext.OnSettlementFailed(ctx, &liquidation.Liquidation{Snapshot: liquidation.Snapshot{CDPID: "CDP-3"}}, errors.New("node down"))

	want := []string{
		audithook.ActionPositionOpened,
		audithook.ActionCollateralWithdrawn,
		audithook.ActionDebtDrawn,
		audithook.ActionSettlementFailed,
	}
	got := rec.actions()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("actions = %v, want %v", got, want)
	}

	withdrawn := rec.events[1]
	if withdrawn.ResourceID != "CDP-3" || withdrawn.Metadata["amount"] != "4" {
		t.Errorf("withdraw event = %+v", withdrawn)
	}
	failed := rec.events[3]
	if failed.Outcome != audithook.OutcomeFailure || failed.Severity != audithook.SeverityCritical || failed.Reason != "node down" {
		t.Errorf("failure event = %+v", failed)
	}
}

func TestActionFiltering(t *testing.T) {
	ctx := context.Background()
	p := &position.Position{ID: "CDP-1"}

	tests := []struct {
		name string
		opts []audithook.Option
		want int
	}{
		{"all enabled", nil, 2},
		{"only opened", []audithook.Option{audithook.WithEnabledActions(audithook.ActionPositionOpened)}, 1},
		{"closed disabled", []audithook.Option{audithook.WithDisabledActions(audithook.ActionPositionClosed)}, 1},
		{"lending category", []audithook.Option{audithook.WithCategories(audithook.CategoryLending)}, 2},
		{"settlement category", []audithook.Option{audithook.WithCategories(audithook.CategorySettlement)}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &memoryRecorder{}
			ext := audithook.New(rec, tt.opts...)
			_ = ext.OnPositionOpened(ctx, p)
			_ = ext.OnPositionClosed(ctx, p, decimal.Zero)
			if got := len(rec.actions()); got != tt.want {
				t.Errorf("recorded %d events, want %d", got, tt.want)
			}
		})
	}
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	failing := audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		return errors.New("backend down")
	})
	ext := audithook.New(failing, audithook.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))

	if err := ext.OnPositionOpened(context.Background(), &position.Position{ID: "CDP-1"}); err != nil {
		t.Errorf("hook returned %v", err)
	}
}

func TestLogRecorder(t *testing.T) {
	var buf bytes.Buffer
	ext := audithook.New(audithook.LogRecorder(slog.New(slog.NewJSONHandler(&buf, nil))))

	_ = ext.OnLiquidated(context.Background(), &liquidation.Liquidation{
		Snapshot: liquidation.Snapshot{CDPID: "CDP-9", Debt: decimal.NewFromInt(6)},
	})

	out := buf.String()
	for _, want := range []string{`"action":"position.liquidated"`, `"level":"WARN"`, `"cdp_id":"CDP-9"`} {
		if !strings.Contains(out, want) {
			t.Errorf("log output %s missing %s", out, want)
		}
	}
}
