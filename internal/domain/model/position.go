package model

// PositionMode 账户级持仓模式
type PositionMode int

const (
	// ModeOneWay 单向持仓：多空合并为一个净头寸
	ModeOneWay PositionMode = iota
	// ModeDualSide 双向持仓：多空各自独立
	ModeDualSide
)

func (m PositionMode) String() string {
	if m == ModeDualSide {
		return "DUAL_SIDE"
	}
	return "ONE_WAY"
}

// PositionSide 持仓方向标记（双向模式下单时使用）
type PositionSide string

const (
	PositionSideLong  PositionSide = "LONG"
	PositionSideShort PositionSide = "SHORT"
	PositionSideBoth  PositionSide = "BOTH"
)

// PositionSnapshot 一次查询得到的持仓快照，只读，不跨批次缓存
type PositionSnapshot struct {
	Symbol           string
	Side             PositionSide // LONG / SHORT
	Contracts        float64      // 持仓数量，恒为正
	EntryPrice       float64
	MarkPrice        float64
	Leverage         int
	UnrealizedPnl    float64
	LiquidationPrice float64
}
