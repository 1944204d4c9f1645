package model

import "testing"

func TestParseAction(t *testing.T) {
	cases := []struct {
		in   string
		want Action
		ok   bool
	}{
		{"open_long", ActionOpenLong, true},
		{"BUY", ActionOpenLong, true},
		{"short", ActionOpenShort, true},
		{" close ", ActionClose, true},
		{"HOLD", ActionHold, true},
		{"liquidate", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, ok := ParseAction(tc.in)
		if got != tc.want || ok != tc.ok {
			t.Errorf("ParseAction(%q) = %q, %v; want %q, %v", tc.in, got, ok, tc.want, tc.ok)
		}
	}
}

func TestMinStep(t *testing.T) {
	r := InstrumentRule{Symbol: "BTCUSDT", QuantityDecimals: 3}
	if got := r.MinStep(); got != 0.001 {
		t.Errorf("MinStep = %v, want 0.001", got)
	}
	whole := InstrumentRule{Symbol: "DOGEUSDT", QuantityDecimals: 0}
	if got := whole.MinStep(); got != 1 {
		t.Errorf("MinStep = %v, want 1", got)
	}
}

func TestRuleTableNormalizesSymbols(t *testing.T) {
	table, err := NewRuleTable([]InstrumentRule{{Symbol: " btcusdt "}})
	if err != nil {
		t.Fatalf("NewRuleTable failed: %v", err)
	}
	if _, ok := table.Lookup("BTCUSDT"); !ok {
		t.Error("normalized symbol not found")
	}
	if _, ok := table.Lookup("btcusdt"); !ok {
		t.Error("lookup should be case-insensitive")
	}
}

func TestOrderAckFallbacks(t *testing.T) {
	ack := OrderAck{OrderID: 1, Price: 50000, OrigQty: 0.002}
	if ack.FilledPrice() != 50000 {
		t.Errorf("FilledPrice = %v, want order price fallback", ack.FilledPrice())
	}
	if ack.FilledQty() != 0.002 {
		t.Errorf("FilledQty = %v, want orig qty fallback", ack.FilledQty())
	}

	filled := OrderAck{OrderID: 2, AvgPrice: 49999.5, Price: 50000, ExecutedQty: 0.001, OrigQty: 0.002}
	if filled.FilledPrice() != 49999.5 {
		t.Errorf("FilledPrice = %v, want avg price", filled.FilledPrice())
	}
	if filled.FilledQty() != 0.001 {
		t.Errorf("FilledQty = %v, want executed qty", filled.FilledQty())
	}
}
