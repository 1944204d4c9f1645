package model

import "strings"

// Action 交易意图动作
type Action string

const (
	ActionOpenLong  Action = "OPEN_LONG"
	ActionOpenShort Action = "OPEN_SHORT"
	ActionClose     Action = "CLOSE"
	ActionHold      Action = "HOLD"
)

// ParseAction 解析动作字符串（大小写不敏感）
func ParseAction(s string) (Action, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "OPEN_LONG", "BUY", "LONG":
		return ActionOpenLong, true
	case "OPEN_SHORT", "SELL", "SHORT":
		return ActionOpenShort, true
	case "CLOSE":
		return ActionClose, true
	case "HOLD":
		return ActionHold, true
	}
	return "", false
}

// IsOpen 是否为开仓动作
func (a Action) IsOpen() bool {
	return a == ActionOpenLong || a == ActionOpenShort
}

// TradeIntent 一条待执行的交易意图，由外部决策源产生，执行后不再修改
type TradeIntent struct {
	Symbol string `json:"symbol"`
	Action Action `json:"action"`

	// Amount 请求的合约数量（开仓必填；平仓可选，缺省按百分比计算）
	Amount float64 `json:"amount,omitempty"`

	// Price 限价；0 表示市价单
	Price float64 `json:"price,omitempty"`

	// Leverage 杠杆倍数；0 使用配置默认值
	Leverage int `json:"leverage,omitempty"`

	// ClosePercent 平仓比例（0 视为 100）
	ClosePercent float64 `json:"close_percent,omitempty"`

	// 止损/止盈百分比（相对入场价），0 表示不挂
	StopLossPercent   float64 `json:"stop_loss_percent,omitempty"`
	TakeProfitPercent float64 `json:"take_profit_percent,omitempty"`
}
