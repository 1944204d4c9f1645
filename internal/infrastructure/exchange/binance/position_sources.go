package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"perpexec/internal/domain/model"
)

// 持仓查询端点：按顺序轮换，单端点失败即切换（service.PositionQuery）。
// v3 是当前版本，v2 和 account 作为降级兜底。

// PositionRiskSource positionRisk 端点（v2/v3 通用）
type PositionRiskSource struct {
	client *FuturesClient
	path   string
	name   string
}

// NewPositionRiskV3Source GET /fapi/v3/positionRisk
func NewPositionRiskV3Source(client *FuturesClient) *PositionRiskSource {
	return &PositionRiskSource{client: client, path: "/fapi/v3/positionRisk", name: "positionRisk.v3"}
}

// NewPositionRiskV2Source GET /fapi/v2/positionRisk
func NewPositionRiskV2Source(client *FuturesClient) *PositionRiskSource {
	return &PositionRiskSource{client: client, path: "/fapi/v2/positionRisk", name: "positionRisk.v2"}
}

func (s *PositionRiskSource) Name() string { return s.name }

func (s *PositionRiskSource) Fetch(ctx context.Context) ([]model.PositionSnapshot, error) {
	body, err := s.client.signedRequest(ctx, http.MethodGet, s.path, url.Values{})
	if err != nil {
		return nil, err
	}

	var entries []positionRiskEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.name, err)
	}

	snaps := make([]model.PositionSnapshot, 0, len(entries))
	for _, e := range entries {
		amt, _ := strconv.ParseFloat(e.PositionAmt, 64)
		if amt == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(e.EntryPrice, 64)
		mark, _ := strconv.ParseFloat(e.MarkPrice, 64)
		pnl, _ := strconv.ParseFloat(e.UnRealizedProfit, 64)
		liq, _ := strconv.ParseFloat(e.LiquidationPrice, 64)
		lev, _ := strconv.Atoi(e.Leverage)

		snaps = append(snaps, model.PositionSnapshot{
			Symbol:           e.Symbol,
			Side:             sideOf(e.PositionSide, amt),
			Contracts:        math.Abs(amt),
			EntryPrice:       entry,
			MarkPrice:        mark,
			Leverage:         lev,
			UnrealizedPnl:    pnl,
			LiquidationPrice: liq,
		})
	}
	return snaps, nil
}

// AccountPositionSource /fapi/v2/account 内嵌持仓列表（最后兜底）
type AccountPositionSource struct {
	client *FuturesClient
}

// NewAccountPositionSource 创建账户端点持仓源
func NewAccountPositionSource(client *FuturesClient) *AccountPositionSource {
	return &AccountPositionSource{client: client}
}

func (s *AccountPositionSource) Name() string { return "account.v2" }

func (s *AccountPositionSource) Fetch(ctx context.Context) ([]model.PositionSnapshot, error) {
	body, err := s.client.signedRequest(ctx, http.MethodGet, "/fapi/v2/account", url.Values{})
	if err != nil {
		return nil, err
	}

	var resp accountResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse account: %w", err)
	}

	snaps := make([]model.PositionSnapshot, 0, len(resp.Positions))
	for _, p := range resp.Positions {
		amt, _ := strconv.ParseFloat(p.PositionAmt, 64)
		if amt == 0 {
			continue
		}
		entry, _ := strconv.ParseFloat(p.EntryPrice, 64)
		pnl, _ := strconv.ParseFloat(p.UnrealizedProfit, 64)
		lev, _ := strconv.Atoi(p.Leverage)

		snaps = append(snaps, model.PositionSnapshot{
			Symbol:        p.Symbol,
			Side:          sideOf(p.PositionSide, amt),
			Contracts:     math.Abs(amt),
			EntryPrice:    entry,
			Leverage:      lev,
			UnrealizedPnl: pnl,
		})
	}
	return snaps, nil
}

// sideOf 双向模式按 positionSide 判向，单向模式按持仓量符号判向
func sideOf(positionSide string, amt float64) model.PositionSide {
	switch positionSide {
	case "LONG":
		return model.PositionSideLong
	case "SHORT":
		return model.PositionSideShort
	}
	if amt < 0 {
		return model.PositionSideShort
	}
	return model.PositionSideLong
}
