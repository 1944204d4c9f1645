package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/rs/zerolog/log"

	"perpexec/internal/domain/model"
)

// FuturesClient Binance USDT-M 合约签名 REST 客户端
type FuturesClient struct {
	*APIClient
}

// NewFuturesClient 创建合约客户端
func NewFuturesClient(client *APIClient) *FuturesClient {
	return &FuturesClient{APIClient: client}
}

func formatQty(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// PlaceOrder 下单 POST /fapi/v1/order
func (c *FuturesClient) PlaceOrder(ctx context.Context, req model.OrderRequest) (*model.OrderAck, error) {
	params := url.Values{}
	params.Set("symbol", req.Symbol)
	params.Set("side", string(req.Side))
	params.Set("type", string(req.Type))
	params.Set("newOrderRespType", "RESULT")

	if req.ClosePosition {
		params.Set("closePosition", "true")
	} else {
		params.Set("quantity", formatQty(req.Quantity))
	}
	if req.Type == model.TypeLimit {
		params.Set("price", formatQty(req.Price))
		tif := req.TimeInForce
		if tif == "" {
			tif = "GTC"
		}
		params.Set("timeInForce", tif)
	}
	if req.StopPrice > 0 {
		params.Set("stopPrice", formatQty(req.StopPrice))
	}
	if req.PositionSide != "" {
		params.Set("positionSide", string(req.PositionSide))
	}
	if req.ReduceOnly {
		params.Set("reduceOnly", "true")
	}

	body, err := c.signedRequest(ctx, http.MethodPost, "/fapi/v1/order", params)
	if err != nil {
		return nil, fmt.Errorf("place order: %w", err)
	}

	var resp orderResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parse order response: %w", err)
	}
	if resp.OrderID == 0 {
		return nil, fmt.Errorf("order rejected: %s", string(body))
	}

	avgPrice, _ := strconv.ParseFloat(resp.AvgPrice, 64)
	price, _ := strconv.ParseFloat(resp.Price, 64)
	executedQty, _ := strconv.ParseFloat(resp.ExecutedQty, 64)
	origQty, _ := strconv.ParseFloat(resp.OrigQty, 64)

	log.Info().
		Str("exchange", "BINANCE").
		Str("symbol", req.Symbol).
		Str("side", string(req.Side)).
		Str("type", string(req.Type)).
		Int64("orderID", resp.OrderID).
		Str("status", resp.Status).
		Msg("order placed")

	return &model.OrderAck{
		OrderID:     resp.OrderID,
		Status:      resp.Status,
		AvgPrice:    avgPrice,
		Price:       price,
		ExecutedQty: executedQty,
		OrigQty:     origQty,
	}, nil
}

// SetLeverage 设置符号杠杆 POST /fapi/v1/leverage
func (c *FuturesClient) SetLeverage(ctx context.Context, symbol string, leverage int) error {
	params := url.Values{}
	params.Set("symbol", symbol)
	params.Set("leverage", strconv.Itoa(leverage))

	if _, err := c.signedRequest(ctx, http.MethodPost, "/fapi/v1/leverage", params); err != nil {
		return fmt.Errorf("set leverage: %w", err)
	}
	return nil
}

// GetPositionMode 查询账户持仓模式 GET /fapi/v1/positionSide/dual
func (c *FuturesClient) GetPositionMode(ctx context.Context) (model.PositionMode, error) {
	body, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v1/positionSide/dual", url.Values{})
	if err != nil {
		return model.ModeOneWay, fmt.Errorf("get position mode: %w", err)
	}

	var resp struct {
		DualSidePosition bool `json:"dualSidePosition"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return model.ModeOneWay, fmt.Errorf("parse position mode: %w", err)
	}
	if resp.DualSidePosition {
		return model.ModeDualSide, nil
	}
	return model.ModeOneWay, nil
}

// MarkPrice 查询标记价格 GET /fapi/v1/premiumIndex
func (c *FuturesClient) MarkPrice(ctx context.Context, symbol string) (float64, error) {
	params := url.Values{}
	params.Set("symbol", symbol)

	body, err := c.publicRequest(ctx, "/fapi/v1/premiumIndex", params)
	if err != nil {
		return 0, fmt.Errorf("mark price: %w", err)
	}

	var resp premiumIndexResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parse mark price: %w", err)
	}
	price, err := strconv.ParseFloat(resp.MarkPrice, 64)
	if err != nil || price <= 0 {
		return 0, fmt.Errorf("invalid mark price %q for %s", resp.MarkPrice, symbol)
	}
	return price, nil
}

// AvailableBalance 查询 USDT 可用余额 GET /fapi/v2/balance
func (c *FuturesClient) AvailableBalance(ctx context.Context) (float64, error) {
	body, err := c.signedRequest(ctx, http.MethodGet, "/fapi/v2/balance", url.Values{})
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}

	var resp []balanceEntry
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("parse balance: %w", err)
	}
	for _, b := range resp {
		if b.Asset == "USDT" {
			avail, _ := strconv.ParseFloat(b.AvailableBalance, 64)
			return avail, nil
		}
	}
	return 0, fmt.Errorf("no USDT balance entry")
}
