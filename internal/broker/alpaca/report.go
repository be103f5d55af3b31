package alpaca

import (
	"fmt"
	"math"
	"strings"

	"deepstock/internal/ta"
)

const recentBars = 15

// buildReport renders the market report the decision model consumes:
// headline price and trend, latest indicator values, then a table of
// recent price action so the model can read patterns.
func buildReport(symbol string, bars []bar) string {
	closes := make([]float64, len(bars))
	for i, b := range bars {
		closes[i] = b.Close
	}
	price := closes[len(closes)-1]

	sma20 := ta.SMA(closes, 20)
	rsi := ta.RSI(closes, 14)
	macd, _ := ta.MACD(closes, 12, 26, 9)
	_, bbUp, bbLow := ta.Bollinger(closes, 20, 2)

	trend := "BEARISH"
	if !math.IsNaN(sma20) && price > sma20 {
		trend = "BULLISH"
	}

	var sb strings.Builder
	sb.WriteString("*** MARKET DATA ***\n")
	fmt.Fprintf(&sb, "Symbol: %s\n", symbol)
	fmt.Fprintf(&sb, "Current Price: %.2f\n", price)
	fmt.Fprintf(&sb, "Trend (vs SMA20): %s\n\n", trend)

	sb.WriteString("*** TECHNICAL INDICATORS (Latest) ***\n")
	fmt.Fprintf(&sb, "RSI(14): %.2f\n", orDefault(rsi, 50))
	fmt.Fprintf(&sb, "MACD: %.2f\n", orDefault(macd, 0))
	fmt.Fprintf(&sb, "Bollinger: %.2f (Low) / %.2f (High)\n\n", orDefault(bbLow, 0), orDefault(bbUp, 0))

	sb.WriteString("*** RECENT 15 MIN PRICE ACTION (Must Analyze Patterns) ***\n")
	sb.WriteString("Time (UTC)        | Open   | High   | Low    | Close  | Vol\n")
	sb.WriteString(strings.Repeat("-", 60) + "\n")
	start := len(bars) - recentBars
	if start < 0 {
		start = 0
	}
	for _, b := range bars[start:] {
		fmt.Fprintf(&sb, "%s | %.2f | %.2f | %.2f | %.2f | %d\n",
			b.Time.UTC().Format("15:04"), b.Open, b.High, b.Low, b.Close, int64(b.Volume))
	}
	return sb.String()
}

func orDefault(v, def float64) float64 {
	if math.IsNaN(v) {
		return def
	}
	return v
}
