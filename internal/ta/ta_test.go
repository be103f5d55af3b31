package ta

import (
	"math"
	"testing"
)

func TestSMA(t *testing.T) {
	closes := []float64{1, 2, 3, 4, 5}
	if got := SMA(closes, 5); got != 3 {
		t.Errorf("SMA(5) = %f, want 3", got)
	}
	if got := SMA(closes, 2); got != 4.5 {
		t.Errorf("SMA(2) = %f, want 4.5", got)
	}
	if got := SMA(closes, 6); !math.IsNaN(got) {
		t.Errorf("short input should be NaN, got %f", got)
	}
}

func TestRSIBounds(t *testing.T) {
	rising := make([]float64, 20)
	for i := range rising {
		rising[i] = float64(i)
	}
	if got := RSI(rising, 14); got != 100 {
		t.Errorf("monotone rise should be RSI 100, got %f", got)
	}

	falling := make([]float64, 20)
	for i := range falling {
		falling[i] = float64(20 - i)
	}
	if got := RSI(falling, 14); got != 0 {
		t.Errorf("monotone fall should be RSI 0, got %f", got)
	}
}

func TestBollingerSymmetry(t *testing.T) {
	closes := []float64{10, 11, 9, 10, 12, 8, 10, 11, 9, 10, 12, 8, 10, 11, 9, 10, 12, 8, 10, 11}
	mid, up, low := Bollinger(closes, 20, 2)
	if math.IsNaN(mid) {
		t.Fatal("unexpected NaN")
	}
	if math.Abs((up-mid)-(mid-low)) > 1e-9 {
		t.Errorf("bands not symmetric: mid=%f up=%f low=%f", mid, up, low)
	}
}

func TestMACDFlatSeriesIsZero(t *testing.T) {
	flat := make([]float64, 60)
	for i := range flat {
		flat[i] = 42
	}
	macd, sig := MACD(flat, 12, 26, 9)
	if math.Abs(macd) > 1e-9 || math.Abs(sig) > 1e-9 {
		t.Errorf("flat series: macd=%f sig=%f", macd, sig)
	}
}

func TestMACDShortInput(t *testing.T) {
	macd, sig := MACD([]float64{1, 2, 3}, 12, 26, 9)
	if !math.IsNaN(macd) || !math.IsNaN(sig) {
		t.Errorf("short input should be NaN, got %f %f", macd, sig)
	}
}
