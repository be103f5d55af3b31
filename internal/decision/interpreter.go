// Package decision extracts a structured trading decision from the raw,
// untrusted text a decision model returns. Interpretation is total: any
// input, including garbage, yields a well-formed Decision, and the tier
// that produced it is reported so confidence is never silently lost.
package decision

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"deepstock/internal/types"
)

// Tier identifies which stage of the interpreter produced the decision.
type Tier string

const (
	// TierStructured means a JSON object was located and parsed.
	TierStructured Tier = "structured"
	// TierSalvaged means the decision was scraped out of free text.
	TierSalvaged Tier = "salvaged"
	// TierDefaulted means nothing usable was found; the decision is a
	// safe HOLD.
	TierDefaulted Tier = "defaulted"
)

// Result pairs the decision with the tier that produced it.
type Result struct {
	Tier     Tier
	Decision types.Decision
}

const (
	structuredReason = "JSON parsed"
	salvagedReason   = "salvage-parsed"
	defaultedReason  = "parse failure: salvage"

	// rationalePrefixLen bounds the best-effort rationale taken from
	// responses without an explicit reasoning segment.
	rationalePrefixLen = 100
)

var (
	thinkRe = regexp.MustCompile(`(?s)<think>(.*?)</think>`)
	fenceRe = regexp.MustCompile("(?i)```json")
	spanRe  = regexp.MustCompile(`(?s)\{.*\}`)

	actionRe = regexp.MustCompile(`\b(BUY|SELL|HOLD)\b`)
	pctRe    = regexp.MustCompile(`(\d[\d,]*(?:\.\d+)?)\s*%`)
	amountRe = regexp.MustCompile(`(?i)amount_?usd[^0-9]*(\d[\d,]*(?:\.\d+)?)`)
	usdRe    = regexp.MustCompile(`(?i)(\d[\d,]*(?:\.\d+)?)\s*(?:USD|DOLLARS?)`)
)

// Interpret turns raw model output into a Decision. It never fails:
// tiers are tried strictly in order (reasoning-segment extraction,
// fence stripping, structured JSON parse, salvage scan) and the lowest
// tier still returns a zero-size HOLD.
func Interpret(raw string) Result {
	working, rationale := extractRationale(raw)
	working = stripFences(working)

	if d, ok := parseStructured(working); ok {
		d.Rationale = rationale
		return Result{Tier: TierStructured, Decision: d}
	}
	return salvage(working, rationale)
}

// extractRationale pulls the <think>…</think> interior out as the
// rationale and removes it from the working text. Without the marker
// pair, a bounded prefix of the response stands in.
func extractRationale(raw string) (working, rationale string) {
	if m := thinkRe.FindStringSubmatch(raw); m != nil {
		return thinkRe.ReplaceAllString(raw, ""), strings.TrimSpace(m[1])
	}
	r := []rune(strings.TrimSpace(raw))
	if len(r) > rationalePrefixLen {
		return raw, string(r[:rationalePrefixLen]) + "..."
	}
	return raw, string(r)
}

func stripFences(s string) string {
	s = fenceRe.ReplaceAllString(s, "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}

// parseStructured finds the first greedy {...} span and parses it.
// Field mapping is defensive: a missing or malformed field takes its
// default instead of failing the whole tier.
func parseStructured(working string) (types.Decision, bool) {
	span := spanRe.FindString(working)
	if span == "" {
		return types.Decision{}, false
	}

	// Some models emit single-quoted pseudo-JSON. Only rewrite when no
	// double quotes exist at all, so quoted apostrophes survive.
	if strings.Contains(span, "'") && !strings.Contains(span, `"`) {
		span = strings.ReplaceAll(span, "'", `"`)
	}

	var fields map[string]any
	if err := json.Unmarshal([]byte(span), &fields); err != nil {
		return types.Decision{}, false
	}

	d := types.Decision{
		Action:   normalizeAction(stringField(fields, "action", types.ActionHold)),
		Reason:   stringField(fields, "reason", structuredReason),
		SizeMode: types.SizePercent,
	}
	if v, ok := numberField(fields, "amount_pct"); ok {
		d.Size = v
	} else if v, ok := numberField(fields, "amount_usd"); ok {
		d.Size = v
		d.SizeMode = types.SizeUSD
	}
	if d.Size < 0 {
		d.Size = 0
	}
	return d, true
}

// salvage scans free text for the last whole-word action token and a
// size signal. The action defaults to HOLD; size signals are tried in
// priority order (percent, labeled amount, dollar suffix) and fall back
// to conservative per-action defaults.
func salvage(working, rationale string) Result {
	acts := actionRe.FindAllString(strings.ToUpper(working), -1)
	if len(acts) == 0 {
		return Result{
			Tier: TierDefaulted,
			Decision: types.Decision{
				Action:    types.ActionHold,
				SizeMode:  types.SizePercent,
				Reason:    defaultedReason,
				Rationale: rationale,
			},
		}
	}
	action := acts[len(acts)-1]

	size := 0.0
	mode := types.SizePercent
	switch {
	case matchNumber(pctRe, working, &size):
		mode = types.SizePercent
	case matchNumber(amountRe, working, &size):
		mode = types.SizeUSD
	case matchNumber(usdRe, working, &size):
		mode = types.SizeUSD
	default:
		// No size signal at all: a BUY takes a small slice of the base
		// order, a SELL trims half the position, HOLD stays zero.
		switch action {
		case types.ActionBuy:
			size = 10
		case types.ActionSell:
			size = 50
		}
	}

	return Result{
		Tier: TierSalvaged,
		Decision: types.Decision{
			Action:    action,
			Size:      size,
			SizeMode:  mode,
			Reason:    salvagedReason,
			Rationale: rationale,
		},
	}
}

func normalizeAction(a string) string {
	a = strings.ToUpper(strings.TrimSpace(a))
	switch a {
	case types.ActionBuy, types.ActionSell, types.ActionHold:
		return a
	}
	return types.ActionHold
}

func stringField(m map[string]any, key, def string) string {
	if v, ok := m[key].(string); ok && strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

// numberField accepts JSON numbers and numeric strings, stripping
// thousands separators before conversion.
func numberField(m map[string]any, key string) (float64, bool) {
	switch v := m[key].(type) {
	case float64:
		return v, true
	case string:
		f, err := strconv.ParseFloat(strings.ReplaceAll(strings.TrimSpace(v), ",", ""), 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

func matchNumber(re *regexp.Regexp, s string, out *float64) bool {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return false
	}
	f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
	if err != nil {
		return false
	}
	*out = f
	return true
}
