package service

import (
	"errors"
	"testing"

	"perpexec/internal/domain/model"
)

var btcRule = model.InstrumentRule{
	Symbol:           "BTCUSDT",
	QuantityDecimals: 3,
	PriceDecimals:    1,
	MinNotional:      100,
}

func TestQuantizeAmountTruncates(t *testing.T) {
	cases := []struct {
		raw  float64
		want float64
	}{
		{0.0025, 0.002},
		{0.002, 0.002},
		{1.23456, 1.234},
		{0, 0},
		{-1, 0},
	}
	for _, tc := range cases {
		if got := QuantizeAmount(tc.raw, btcRule); got != tc.want {
			t.Errorf("QuantizeAmount(%v) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestQuantizeAmountFloorsToMinStep(t *testing.T) {
	// 正数请求截断归零时回填最小单位
	if got := QuantizeAmount(0.0004, btcRule); got != 0.001 {
		t.Fatalf("QuantizeAmount(0.0004) = %v, want 0.001", got)
	}
}

func TestQuantizeAmountIdempotent(t *testing.T) {
	once := QuantizeAmount(0.1239, btcRule)
	twice := QuantizeAmount(once, btcRule)
	if once != twice {
		t.Fatalf("quantization not idempotent: %v != %v", once, twice)
	}
}

func TestQuantizePrice(t *testing.T) {
	if got := QuantizePrice(50000.19, btcRule); got != 50000.1 {
		t.Errorf("QuantizePrice(50000.19) = %v, want 50000.1", got)
	}
	if got := QuantizePrice(0, btcRule); got != 0 {
		t.Errorf("QuantizePrice(0) = %v, want 0", got)
	}
}

func TestRequiredAmountForMinNotional(t *testing.T) {
	got, err := RequiredAmountForMinNotional(50000, btcRule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.002 {
		t.Fatalf("required = %v, want 0.002", got)
	}
	if !MinNotionalOK(got, 50000, btcRule) {
		t.Fatalf("required amount %v fails min notional", got)
	}
}

func TestRequiredAmountBumpsOnTruncationShortfall(t *testing.T) {
	// 100/61111.1 = 0.0016363... 截断到 0.001 后名义价值不足，需补一个单位
	got, err := RequiredAmountForMinNotional(61111.1, btcRule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != 0.002 {
		t.Fatalf("required = %v, want 0.002", got)
	}
}

func TestAddMinStep(t *testing.T) {
	if got := AddMinStep(0.002, btcRule); got != 0.003 {
		t.Fatalf("AddMinStep(0.002) = %v, want 0.003", got)
	}
}

func TestSmallAmountEscalation(t *testing.T) {
	// 0.0001 BTC @ 50000：最小可成交 0.002，倍数恰为上限 20
	prop, err := ProposeSmallAmountEscalation(0.0001, 50000, 10, btcRule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prop.Amount != 0.002 {
		t.Errorf("amount = %v, want 0.002", prop.Amount)
	}
	if prop.Multiplier != 20 {
		t.Errorf("multiplier = %v, want 20", prop.Multiplier)
	}
	if prop.Leverage != 30 {
		t.Errorf("leverage = %v, want capped at 30", prop.Leverage)
	}
}

func TestSmallAmountEscalationRejectsExcessiveMultiplier(t *testing.T) {
	_, err := ProposeSmallAmountEscalation(0.00009, 50000, 10, btcRule)
	if !errors.Is(err, ErrQuantizationFloor) {
		t.Fatalf("expected ErrQuantizationFloor, got %v", err)
	}
}

func TestSmallAmountEscalationKeepsLeverageMonotonic(t *testing.T) {
	// 倍数很小时杠杆不得低于原值
	prop, err := ProposeSmallAmountEscalation(0.0015, 50000, 25, btcRule)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if prop.Leverage < 25 {
		t.Fatalf("leverage dropped below original: %d", prop.Leverage)
	}
}
