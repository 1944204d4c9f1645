package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// MarkPriceFeed 标记价格缓存：websocket 流实时更新，
// 缓存过期或流断开时退回 REST premiumIndex 查询。
type MarkPriceFeed struct {
	wsURL      string // e.g. wss://fstream.binance.com
	rest       *FuturesClient
	staleAfter time.Duration

	mu     sync.RWMutex
	prices map[string]pricePoint
}

type pricePoint struct {
	price float64
	at    time.Time
}

// NewMarkPriceFeed 创建价格源。wsURL 为空时只走 REST。
func NewMarkPriceFeed(wsURL string, rest *FuturesClient) *MarkPriceFeed {
	return &MarkPriceFeed{
		wsURL:      strings.TrimSpace(wsURL),
		rest:       rest,
		staleAfter: 30 * time.Second,
		prices:     make(map[string]pricePoint),
	}
}

type markPriceCombined struct {
	Stream string       `json:"stream"`
	Data   markPriceMsg `json:"data"`
}
type markPriceMsg struct {
	Symbol string `json:"s"`
	Price  string `json:"p"`
}

func buildMarkPriceURL(base string, symbols []string) (string, error) {
	if base == "" {
		return "", errors.New("binance ws_url empty")
	}
	streams := make([]string, 0, len(symbols))
	for _, s := range symbols {
		s = strings.ToLower(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		streams = append(streams, fmt.Sprintf("%s@markPrice", s))
	}
	if len(streams) == 0 {
		return "", errors.New("no valid symbols")
	}

	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	u.Path = "/stream"
	u.RawQuery = "streams=" + strings.Join(streams, "/")
	return u.String(), nil
}

// Run 维持 websocket 连接直至 ctx 取消，断线指数退避重连
func (f *MarkPriceFeed) Run(ctx context.Context, symbols []string) error {
	wsURL, err := buildMarkPriceURL(f.wsURL, symbols)
	if err != nil {
		return err
	}

	backoff := 500 * time.Millisecond
	maxBackoff := 10 * time.Second

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
		if err != nil {
			log.Warn().Err(err).Dur("backoff", backoff).Msg("markprice ws dial failed")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff *= 2; backoff > maxBackoff {
				backoff = maxBackoff
			}
			continue
		}

		log.Info().Int("symbols", len(symbols)).Msg("markprice ws connected")
		backoff = 500 * time.Millisecond

		f.readLoop(ctx, conn)
		_ = conn.Close()
	}
}

func (f *MarkPriceFeed) readLoop(ctx context.Context, conn *websocket.Conn) {
	// 看护 goroutine 随本条连接退出，重连不累积
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				log.Warn().Err(err).Msg("markprice ws read failed, reconnecting")
			}
			return
		}

		var msg markPriceCombined
		if err := json.Unmarshal(raw, &msg); err != nil {
			continue
		}
		price, err := strconv.ParseFloat(msg.Data.Price, 64)
		if err != nil || price <= 0 {
			continue
		}

		f.mu.Lock()
		f.prices[msg.Data.Symbol] = pricePoint{price: price, at: time.Now()}
		f.mu.Unlock()
	}
}

// MarkPrice 实现 service.PriceSource：缓存新鲜时直接返回，否则 REST 查询
func (f *MarkPriceFeed) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))

	f.mu.RLock()
	p, ok := f.prices[symbol]
	f.mu.RUnlock()
	if ok && time.Since(p.at) < f.staleAfter {
		return p.price, nil
	}

	price, err := f.rest.MarkPrice(ctx, symbol)
	if err != nil {
		return 0, err
	}

	f.mu.Lock()
	f.prices[symbol] = pricePoint{price: price, at: time.Now()}
	f.mu.Unlock()
	return price, nil
}
