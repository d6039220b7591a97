package formulas

// MaxDrawdownFromReturns computes the largest peak-to-trough decline of
// the running cumulative-return curve built from per-trade returns.
//
// Both the curve and the result are expressed in percentage points: a
// curve that peaks at +30 and later falls to +18 has a 12-point drawdown.
func MaxDrawdownFromReturns(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	cumulative := 0.0
	peak := 0.0
	maxDrawdown := 0.0

	for _, r := range returns {
		cumulative += r
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDrawdown {
			maxDrawdown = dd
		}
	}

	return maxDrawdown
}

// MaxDrawdownFromPrices calculates the maximum drawdown of a price series
// as a positive fraction (0.25 = 25% loss from peak), or nil for series
// shorter than two points.
func MaxDrawdownFromPrices(prices []float64) *float64 {
	if len(prices) < 2 {
		return nil
	}

	maxDrawdown := 0.0
	peak := prices[0]

	for _, price := range prices {
		if price > peak {
			peak = price
		}
		if peak > 0 {
			if dd := (peak - price) / peak; dd > maxDrawdown {
				maxDrawdown = dd
			}
		}
	}

	return &maxDrawdown
}
