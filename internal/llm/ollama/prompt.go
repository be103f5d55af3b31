package ollama

import (
	"fmt"
	"strings"
	"time"

	"deepstock/internal/types"
)

// BuildPrompt assembles the decision prompt: role framing, market
// block (price + report), position block, last-action memory, goal and
// the strict output-format instructions.
func BuildPrompt(pc types.PromptContext, now time.Time) string {
	positionStatus := "NO POSITION"
	if pc.Position.Qty > 0 && pc.Position.AvgCost > 0 {
		profitPct := (pc.Price - pc.Position.AvgCost) / pc.Position.AvgCost * 100
		positionStatus = fmt.Sprintf("HOLDING %.4f units. Avg Cost: $%.2f. PnL: %.2f%%",
			pc.Position.Qty, pc.Position.AvgCost, profitPct)
	}

	memoryBlock := "[LAST ACTION] None (First run)."
	if pc.Memory != nil {
		memoryBlock = fmt.Sprintf("[LAST ACTION] %s ago, you did: %s at $%.2f.\nReason: %q",
			humanAgo(now.Sub(pc.Memory.Time)), pc.Memory.Action, pc.Memory.Price, pc.Memory.Reason)
	}

	var sb strings.Builder
	sb.WriteString("Role: Aggressive Crypto Day Trader.\n\n")
	fmt.Fprintf(&sb, "[Market] %s | Price: $%.2f\n", pc.Symbol, pc.Price)
	sb.WriteString(pc.Report)
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "[Account] Cash: $%.2f | Equity: $%.2f\n", pc.Account.Cash, pc.Account.Equity)
	fmt.Fprintf(&sb, "[Position] %s\n", positionStatus)
	sb.WriteString(memoryBlock)
	sb.WriteString("\n\n")
	sb.WriteString(`[Goal]
Capture trends aggressively. Do NOT be passive.

[Logic]
1. IF NO POSITION:
   - Trend is UP (Price > SMA20) -> BUY IMMEDIATELY.
   - Trend is DOWN -> HOLD.

2. IF HOLDING:
   - Profit > 2% -> SELL 50% (Lock profit).
   - Trend reversal -> SELL 100% (Stop loss).
   - Trend continues -> HOLD or BUY more.

[Strict Output Format]
RETURN JSON ONLY. MUST INCLUDE "amount_pct".
{
    "action": "BUY",
    "amount_pct": 100,
    "reason": "Price broke above SMA20, valid entry"
}

- amount_pct:
  * BUY: 100 = Full entry, 50 = Half entry.
  * SELL: 100 = Close all, 50 = Sell half.
  * HOLD: 0.
`)
	return sb.String()
}

func humanAgo(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	default:
		return fmt.Sprintf("%.1fh", d.Hours())
	}
}
