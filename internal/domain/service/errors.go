package service

import (
	"context"
	"errors"
	"strings"
)

// 每条意图的终态错误类别
var (
	// ErrValidation 意图字段缺失或非法，未发起任何网络调用
	ErrValidation = errors.New("intent validation failed")

	// ErrQuantizationFloor 数量经升档后仍不可达（超出倍数/杠杆上限）
	ErrQuantizationFloor = errors.New("amount below tradable floor")

	// ErrMarginInsufficient 账本余额不足
	ErrMarginInsufficient = errors.New("insufficient margin")

	// ErrPositionNotFound 请求平仓但无对应持仓
	ErrPositionNotFound = errors.New("position not found")

	// ErrUnachievableMin 加一个最小单位后仍达不到 minNotional（规则表异常）
	ErrUnachievableMin = errors.New("min notional unachievable")
)

// ExchangeError 交易所结构化错误：HTTP 状态 + 业务码 + 消息。
// infrastructure 层的 APIError 实现该接口。
type ExchangeError interface {
	error
	HTTPStatus() int
	ErrCode() int
	ErrMessage() string
}

// RepairAction 重试前的参数修复动作
type RepairAction int

const (
	// RepairNone 瞬时故障：参数不变，标准退避后重试
	RepairNone RepairAction = iota
	// RepairPositionMode 持仓模式不匹配：失效缓存并按新模式重建参数
	RepairPositionMode
	// RepairPrecision 精度被拒：数量加一个最小单位后重试
	RepairPrecision
)

// Binance fapi 业务错误码
const (
	codePositionSideMismatch = -4061
	codePrecisionOver        = -1111
	codeFilterFailure        = -1013
	codeMinNotional          = -4164
	codeMarginInsufficient   = -2019
)

// Classify 将交易所错误映射到修复动作。
// 优先使用结构化错误码，无码时退回消息子串匹配。
func Classify(err error) RepairAction {
	if err == nil {
		return RepairNone
	}

	var xe ExchangeError
	if errors.As(err, &xe) {
		switch xe.ErrCode() {
		case codePositionSideMismatch:
			return RepairPositionMode
		case codePrecisionOver, codeFilterFailure:
			return RepairPrecision
		}
		if xe.ErrCode() != 0 {
			return RepairNone
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "position side does not match"):
		return RepairPositionMode
	case strings.Contains(msg, "precision is over"),
		strings.Contains(msg, "lot_size"):
		return RepairPrecision
	}
	return RepairNone
}

// IsTransient 是否应按瞬时故障重试（超时、网络、5xx）
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var xe ExchangeError
	if errors.As(err, &xe) {
		return xe.HTTPStatus() >= 500 || xe.HTTPStatus() == 0
	}
	return true
}
