package decision

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"perpexec/internal/domain/model"
)

func TestNextReadsAndConsumes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intents.json")
	body := `[
		{"symbol": "btcusdt", "action": "open_long", "amount": 0.002, "leverage": 10},
		{"symbol": "ETHUSDT", "action": "CLOSE", "close_percent": 50}
	]`
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write intents: %v", err)
	}

	src := NewFileSource(path)
	intents, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if len(intents) != 2 {
		t.Fatalf("got %d intents, want 2", len(intents))
	}

	if intents[0].Symbol != "BTCUSDT" || intents[0].Action != model.ActionOpenLong {
		t.Errorf("intent 0 = %+v", intents[0])
	}
	if intents[1].Action != model.ActionClose || intents[1].ClosePercent != 50 {
		t.Errorf("intent 1 = %+v", intents[1])
	}

	// 消费后文件被改名，重复读取得到空批次
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatal("intents file should be renamed after consumption")
	}
	if _, err := os.Stat(path + ".consumed"); err != nil {
		t.Fatalf("consumed marker missing: %v", err)
	}

	again, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("second Next failed: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("expected empty batch, got %d intents", len(again))
	}
}

func TestNextMissingFileIsEmptyBatch(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "absent.json"))
	intents, err := src.Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if intents != nil {
		t.Fatalf("expected nil, got %+v", intents)
	}
}

func TestNextMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intents.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write intents: %v", err)
	}

	if _, err := NewFileSource(path).Next(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestNextKeepsUnknownActionForValidation(t *testing.T) {
	path := filepath.Join(t.TempDir(), "intents.json")
	if err := os.WriteFile(path, []byte(`[{"symbol": "BTCUSDT", "action": "yolo"}]`), 0o644); err != nil {
		t.Fatalf("write intents: %v", err)
	}

	intents, err := NewFileSource(path).Next(context.Background())
	if err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	if intents[0].Action != model.Action("YOLO") {
		t.Fatalf("action = %q, want preserved YOLO", intents[0].Action)
	}
}
