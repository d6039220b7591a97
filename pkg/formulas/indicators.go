package formulas

import (
	"github.com/markcheno/go-talib"
)

// CalculateSMA returns the latest simple moving average over the given
// period, or nil if there is not enough data.
func CalculateSMA(closes []float64, period int) *float64 {
	if len(closes) < period {
		return nil
	}
	sma := talib.Sma(closes, period)
	return lastValid(sma)
}

// CalculateRSI returns the latest Relative Strength Index value (0-100)
// over the given period, or nil if there is not enough data.
//
// RSI = 100 - (100 / (1 + RS)) where RS = avg gain / avg loss over N periods
func CalculateRSI(closes []float64, period int) *float64 {
	if len(closes) < period+1 {
		return nil
	}
	rsi := talib.Rsi(closes, period)
	return lastValid(rsi)
}

// CalculateATR returns the latest Average True Range over the given
// period, or nil if there is not enough data.
func CalculateATR(highs, lows, closes []float64, period int) *float64 {
	if len(closes) < period+1 || len(highs) != len(closes) || len(lows) != len(closes) {
		return nil
	}
	atr := talib.Atr(highs, lows, closes, period)
	return lastValid(atr)
}

// lastValid returns a pointer to the last non-NaN value of a talib output
// series, or nil when the series is empty or ends in NaN.
func lastValid(series []float64) *float64 {
	if len(series) == 0 {
		return nil
	}
	v := series[len(series)-1]
	if isNaN(v) {
		return nil
	}
	return &v
}

// isNaN checks if a float64 is NaN
func isNaN(f float64) bool {
	return f != f
}
