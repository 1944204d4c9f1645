package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"perpexec/internal/domain/model"
)

type stubSource struct {
	name  string
	snaps []model.PositionSnapshot
	err   error
	calls int
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Fetch(ctx context.Context) ([]model.PositionSnapshot, error) {
	s.calls++
	return s.snaps, s.err
}

func TestPositionQueryFirstSourceWins(t *testing.T) {
	primary := &stubSource{name: "v3", snaps: []model.PositionSnapshot{
		{Symbol: "BTCUSDT", Side: model.PositionSideLong, Contracts: 0.002},
	}}
	fallback := &stubSource{name: "v2"}
	q := NewPositionQuery(primary, fallback)

	snaps, err := q.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Symbol != "BTCUSDT" {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
	if fallback.calls != 0 {
		t.Fatal("fallback should not be queried when primary succeeds")
	}
}

func TestPositionQueryRotatesWithoutPerSourceRetry(t *testing.T) {
	primary := &stubSource{name: "v3", err: errors.New("410 gone")}
	fallback := &stubSource{name: "v2", snaps: []model.PositionSnapshot{
		{Symbol: "ETHUSDT", Side: model.PositionSideShort, Contracts: 1.5},
	}}
	q := NewPositionQuery(primary, fallback)

	snaps, err := q.Fetch(context.Background())
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if len(snaps) != 1 || snaps[0].Symbol != "ETHUSDT" {
		t.Fatalf("unexpected snapshots: %+v", snaps)
	}
	if primary.calls != 1 {
		t.Fatalf("primary called %d times, want exactly 1", primary.calls)
	}
}

func TestPositionQueryAggregatesAllFailures(t *testing.T) {
	q := NewPositionQuery(
		&stubSource{name: "v3", err: errors.New("timeout")},
		&stubSource{name: "v2", err: errors.New("500")},
		&stubSource{name: "account", err: errors.New("403")},
	)

	_, err := q.Fetch(context.Background())
	if err == nil {
		t.Fatal("expected aggregate error")
	}
	for _, name := range []string{"v3", "v2", "account"} {
		if !strings.Contains(err.Error(), name) {
			t.Errorf("aggregate error missing source %q: %v", name, err)
		}
	}
}

func TestPositionQueryNoSources(t *testing.T) {
	q := NewPositionQuery()
	if _, err := q.Fetch(context.Background()); err == nil {
		t.Fatal("expected error with no sources")
	}
}

func TestFindPosition(t *testing.T) {
	snaps := []model.PositionSnapshot{
		{Symbol: "BTCUSDT", Side: model.PositionSideLong, Contracts: 0},
		{Symbol: "ETHUSDT", Side: model.PositionSideShort, Contracts: 2},
	}

	if _, ok := FindPosition(snaps, "BTCUSDT"); ok {
		t.Error("zero-contract snapshot must not count as a position")
	}
	pos, ok := FindPosition(snaps, "ETHUSDT")
	if !ok || pos.Side != model.PositionSideShort {
		t.Fatalf("FindPosition(ETHUSDT) = %+v, %v", pos, ok)
	}
	if _, ok := FindPosition(snaps, "SOLUSDT"); ok {
		t.Error("unknown symbol must not be found")
	}
}
