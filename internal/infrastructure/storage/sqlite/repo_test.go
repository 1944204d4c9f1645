package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"perpexec/internal/domain/model"
)

func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	repo, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = repo.Close() })
	return repo
}

func TestSaveAndListOrderResults(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	results := []model.OrderResult{
		{Symbol: "BTCUSDT", Action: model.ActionOpenLong, Success: true,
			OrderID: 101, ExecutedPrice: 50000, ExecutedAmount: 0.002,
			MarginUsed: 25, Leverage: 4, StopLossOrderID: 102, Ts: 1000},
		{Symbol: "ETHUSDT", Action: model.ActionClose, Success: false,
			Error: "position not found: ETHUSDT", Ts: 2000},
	}
	for _, r := range results {
		if err := repo.SaveOrderResult(ctx, 42, r); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	listed, err := repo.ListRecentResults(ctx, 10)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("got %d results, want 2", len(listed))
	}

	// 按时间倒序
	if listed[0].Symbol != "ETHUSDT" {
		t.Errorf("newest first, got %s", listed[0].Symbol)
	}
	if listed[0].Success || listed[0].Error == "" {
		t.Errorf("failure row round-trip broken: %+v", listed[0])
	}

	got := listed[1]
	if !got.Success || got.OrderID != 101 || got.ExecutedAmount != 0.002 {
		t.Errorf("success row round-trip broken: %+v", got)
	}
	if got.StopLossOrderID != 102 {
		t.Errorf("stop loss id = %d, want 102", got.StopLossOrderID)
	}
	if got.Action != model.ActionOpenLong {
		t.Errorf("action = %s, want OPEN_LONG", got.Action)
	}
}

func TestListRespectsLimit(t *testing.T) {
	repo := newTestRepo(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		r := model.OrderResult{Symbol: "BTCUSDT", Action: model.ActionHold, Success: true, Ts: int64(i)}
		if err := repo.SaveOrderResult(ctx, 1, r); err != nil {
			t.Fatalf("save failed: %v", err)
		}
	}

	listed, err := repo.ListRecentResults(ctx, 3)
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(listed) != 3 {
		t.Fatalf("got %d results, want 3", len(listed))
	}
}
