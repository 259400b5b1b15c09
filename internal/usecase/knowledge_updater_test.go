package usecase

import "testing"

func TestBaseCurrency(t *testing.T) {
	cases := []struct {
		symbol string
		want   string
	}{
		{"BTCUSDT", "BTC"},
		{"ethusdt", "ETH"},
		{"SOLBUSD", "SOL"},
		{"ADAEUR", "ADA"},
		{"ETHBTC", "ETH"},
		{"USDT", "USDT"}, // bare quote asset passes through
		{"DOGE", "DOGE"},
	}
	for _, tc := range cases {
		if got := BaseCurrency(tc.symbol); got != tc.want {
			t.Errorf("BaseCurrency(%q) = %q, want %q", tc.symbol, got, tc.want)
		}
	}
}
