package model

// OrderSide 下单方向
type OrderSide string

const (
	SideBuy  OrderSide = "BUY"
	SideSell OrderSide = "SELL"
)

// OrderType 订单类型（Binance fapi）
type OrderType string

const (
	TypeMarket     OrderType = "MARKET"
	TypeLimit      OrderType = "LIMIT"
	TypeStopMarket OrderType = "STOP_MARKET"
	TypeTakeProfit OrderType = "TAKE_PROFIT_MARKET"
)

// OrderRequest 一次下单的完整参数
type OrderRequest struct {
	Symbol   string
	Side     OrderSide
	Type     OrderType
	Quantity float64
	Price    float64 // LIMIT 单价格
	// StopPrice 触发价（STOP_MARKET / TAKE_PROFIT_MARKET）
	StopPrice float64
	// PositionSide 双向模式必填，单向模式留空
	PositionSide PositionSide
	// ReduceOnly 单向模式的平仓/减仓标记
	ReduceOnly bool
	// ClosePosition 市价全平（保护单使用），与 Quantity 互斥
	ClosePosition bool
	TimeInForce   string // LIMIT 单默认 GTC
}

// OrderAck 交易所对下单的确认
type OrderAck struct {
	OrderID     int64
	Status      string
	AvgPrice    float64
	Price       float64
	ExecutedQty float64
	OrigQty     float64
}

// FilledPrice 返回成交均价，未成交时退回委托价
func (a *OrderAck) FilledPrice() float64 {
	if a.AvgPrice > 0 {
		return a.AvgPrice
	}
	return a.Price
}

// FilledQty 返回成交数量，市价单未回报时退回委托数量
func (a *OrderAck) FilledQty() float64 {
	if a.ExecutedQty > 0 {
		return a.ExecutedQty
	}
	return a.OrigQty
}

// ExitResult 止损/止盈挂单结果
type ExitResult struct {
	Success           bool
	StopLossOrderID   int64
	TakeProfitOrderID int64
	Error             string
}

// OrderResult 单条意图的终态结果，交给持久化协作方
type OrderResult struct {
	Symbol         string  `json:"symbol"`
	Action         Action  `json:"action"`
	Success        bool    `json:"success"`
	OrderID        int64   `json:"order_id,omitempty"`
	ExecutedPrice  float64 `json:"executed_price,omitempty"`
	ExecutedAmount float64 `json:"executed_amount,omitempty"`
	MarginUsed     float64 `json:"margin_used,omitempty"`
	Leverage       int     `json:"leverage,omitempty"`
	Error          string  `json:"error,omitempty"`

	StopLossOrderID   int64 `json:"stop_loss_order_id,omitempty"`
	TakeProfitOrderID int64 `json:"take_profit_order_id,omitempty"`

	Ts int64 `json:"ts_ms"`
}
