package binance

import (
	"context"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestBuildMarkPriceURL(t *testing.T) {
	got, err := buildMarkPriceURL("wss://fstream.binance.com", []string{"BTCUSDT", " ethusdt "})
	if err != nil {
		t.Fatalf("buildMarkPriceURL failed: %v", err)
	}
	want := "wss://fstream.binance.com/stream?streams=btcusdt@markPrice/ethusdt@markPrice"
	if got != want {
		t.Fatalf("url = %q, want %q", got, want)
	}

	if _, err := buildMarkPriceURL("", []string{"BTCUSDT"}); err == nil {
		t.Error("empty base url must fail")
	}
	if _, err := buildMarkPriceURL("wss://fstream.binance.com", nil); err == nil {
		t.Error("no symbols must fail")
	}
}

// 重连场景下每条连接的看护 goroutine 必须随连接退出，不得累积到进程关闭
func TestReadLoopDoesNotLeakWatcherGoroutines(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		_ = conn.WriteJSON(markPriceCombined{
			Stream: "btcusdt@markPrice",
			Data:   markPriceMsg{Symbol: "BTCUSDT", Price: "50000.1"},
		})
		_ = conn.Close()
	}))
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	feed := NewMarkPriceFeed("", nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	before := runtime.NumGoroutine()
	for i := 0; i < 5; i++ {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		feed.readLoop(ctx, conn)
		_ = conn.Close()
	}

	// 推送的价格应已进入缓存
	price, err := feed.MarkPrice(ctx, "BTCUSDT")
	if err != nil {
		t.Fatalf("MarkPrice failed: %v", err)
	}
	if price != 50000.1 {
		t.Errorf("cached price = %v, want 50000.1", price)
	}

	// 等待看护 goroutine 和服务端 handler 退出
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+2 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("goroutines grew from %d to %d after 5 read cycles", before, runtime.NumGoroutine())
}
