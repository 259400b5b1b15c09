package features

import (
	"math"
	"sort"
	"time"

	"CoinSage/internal/domain/models"
)

// Config holds the rolling-window sizes used by price feature extraction.
// All windows are look-back counts, not wall-clock durations: with the
// default one-observation-per-minute polling, a "24h change" is a 1440-sample
// look-back. A deployment that changes the sampling granularity must
// recalibrate these counts or the hourly/daily columns silently change
// meaning.
type Config struct {
	Change1h  int // samples per hour
	Change24h int // samples per day

	MA5   int
	MA20  int
	MA50  int
	MA200 int

	BollingerK float64 // band width in standard deviations around MA20

	RSIPeriod int

	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultConfig returns the windows for 1-minute sampling.
func DefaultConfig() Config {
	return Config{
		Change1h:   60,
		Change24h:  1440,
		MA5:        5,
		MA20:       20,
		MA50:       50,
		MA200:      200,
		BollingerK: 2,
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
	}
}

// ExtractPriceFeatures turns raw price observations for one symbol into the
// price feature table. The input is de-duplicated by timestamp (the
// last-seen value for a timestamp wins) and sorted before any rolling
// computation. Rows missing history for any window are dropped entirely;
// every returned row has all columns defined. The function is pure.
func ExtractPriceFeatures(obs []models.PriceObservation, cfg Config) []models.PriceFeatureRow {
	clean := dedupeSort(obs)
	if len(clean) == 0 {
		return nil
	}

	n := len(clean)
	prices := make([]float64, n)
	volumes := make([]float64, n)
	for i, o := range clean {
		prices[i] = o.Price
		volumes[i] = o.Volume
	}

	priceChg1h := pctChange(prices, cfg.Change1h)
	priceChg24h := pctChange(prices, cfg.Change24h)
	volChg1h := pctChange(volumes, cfg.Change1h)
	volChg24h := pctChange(volumes, cfg.Change24h)

	ma5 := rollingMean(prices, cfg.MA5)
	ma20 := rollingMean(prices, cfg.MA20)
	ma50 := rollingMean(prices, cfg.MA50)
	ma200 := rollingMean(prices, cfg.MA200)

	ma20Std := rollingStd(prices, cfg.MA20)

	rsi := relativeStrength(prices, cfg.RSIPeriod)

	emaFast := ema(prices, cfg.MACDFast)
	emaSlow := ema(prices, cfg.MACDSlow)
	macd := make([]float64, n)
	for i := range macd {
		macd[i] = emaFast[i] - emaSlow[i]
	}
	macdSignal := ema(macd, cfg.MACDSignal)

	rows := make([]models.PriceFeatureRow, 0, n)
	for i := 0; i < n; i++ {
		cols := []float64{
			priceChg1h[i], priceChg24h[i], volChg1h[i], volChg24h[i],
			ma5[i], ma20[i], ma50[i], ma200[i], ma20Std[i],
			rsi[i], macd[i], macdSignal[i],
		}
		if anyNaN(cols) {
			continue
		}
		rows = append(rows, models.PriceFeatureRow{
			Timestamp:       clean[i].Timestamp,
			Price:           prices[i],
			Volume:          volumes[i],
			PriceChange1h:   priceChg1h[i],
			PriceChange24h:  priceChg24h[i],
			VolumeChange1h:  volChg1h[i],
			VolumeChange24h: volChg24h[i],
			MA5:             ma5[i],
			MA20:            ma20[i],
			MA50:            ma50[i],
			MA200:           ma200[i],
			MA20Std:         ma20Std[i],
			UpperBand:       ma20[i] + cfg.BollingerK*ma20Std[i],
			LowerBand:       ma20[i] - cfg.BollingerK*ma20Std[i],
			RSI14:           rsi[i],
			MACD:            macd[i],
			MACDSignal:      macdSignal[i],
			MACDHist:        macd[i] - macdSignal[i],
		})
	}
	return rows
}

// dedupeSort returns the observations sorted by timestamp with duplicate
// timestamps collapsed to the last occurrence in input order.
func dedupeSort(obs []models.PriceObservation) []models.PriceObservation {
	if len(obs) == 0 {
		return nil
	}
	byTS := make(map[int64]models.PriceObservation, len(obs))
	for _, o := range obs {
		byTS[o.Timestamp.UnixNano()] = o
	}
	out := make([]models.PriceObservation, 0, len(byTS))
	for _, o := range byTS {
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Timestamp.Before(out[j].Timestamp)
	})
	return out
}

// pctChange computes arr[i]/arr[i-k] - 1 with NaN for the first k slots.
func pctChange(arr []float64, k int) []float64 {
	out := nanSlice(len(arr))
	if k <= 0 {
		return out
	}
	for i := k; i < len(arr); i++ {
		prev := arr[i-k]
		if prev == 0 {
			continue // leave NaN, row gets dropped
		}
		out[i] = arr[i]/prev - 1
	}
	return out
}

func rollingMean(arr []float64, w int) []float64 {
	out := nanSlice(len(arr))
	if w <= 0 || len(arr) < w {
		return out
	}
	sum := 0.0
	for i, v := range arr {
		sum += v
		if i >= w {
			sum -= arr[i-w]
		}
		if i >= w-1 {
			out[i] = sum / float64(w)
		}
	}
	return out
}

// rollingStd is the population form (divide by w, not w-1).
func rollingStd(arr []float64, w int) []float64 {
	out := nanSlice(len(arr))
	if w <= 0 || len(arr) < w {
		return out
	}
	for i := w - 1; i < len(arr); i++ {
		mean := 0.0
		for j := i - w + 1; j <= i; j++ {
			mean += arr[j]
		}
		mean /= float64(w)
		sum2 := 0.0
		for j := i - w + 1; j <= i; j++ {
			d := arr[j] - mean
			sum2 += d * d
		}
		v := sum2 / float64(w)
		if v < 0 {
			v = 0
		}
		out[i] = math.Sqrt(v)
	}
	return out
}

// relativeStrength computes RSI from the rolling mean of gains and losses
// over period samples. A zero average loss clamps the value to 100 instead
// of producing the classic formula's division by zero.
func relativeStrength(prices []float64, period int) []float64 {
	n := len(prices)
	out := nanSlice(n)
	if period <= 0 || n <= period {
		return out
	}
	gains := nanSlice(n)
	losses := nanSlice(n)
	for i := 1; i < n; i++ {
		d := prices[i] - prices[i-1]
		if d > 0 {
			gains[i], losses[i] = d, 0
		} else {
			gains[i], losses[i] = 0, -d
		}
	}
	// rolling means start one slot late because the first delta is undefined
	for i := period; i < n; i++ {
		avgGain := 0.0
		avgLoss := 0.0
		for j := i - period + 1; j <= i; j++ {
			avgGain += gains[j]
			avgLoss += losses[j]
		}
		avgGain /= float64(period)
		avgLoss /= float64(period)
		if avgLoss == 0 {
			out[i] = 100
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100 - 100/(1+rs)
	}
	return out
}

// ema computes the recursive exponential moving average with smoothing
// alpha = 2/(span+1), seeded with the first value.
func ema(arr []float64, span int) []float64 {
	out := make([]float64, len(arr))
	if len(arr) == 0 {
		return out
	}
	alpha := 2.0 / (float64(span) + 1)
	out[0] = arr[0]
	for i := 1; i < len(arr); i++ {
		out[i] = alpha*arr[i] + (1-alpha)*out[i-1]
	}
	return out
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}
	return out
}

func anyNaN(vals []float64) bool {
	for _, v := range vals {
		if math.IsNaN(v) {
			return true
		}
	}
	return false
}

// MinObservations returns the number of samples needed before the first row
// can materialize under cfg. Callers use it to tell "still warming up" apart
// from "collector is stuck".
func MinObservations(cfg Config) int {
	m := cfg.Change1h
	for _, w := range []int{cfg.Change24h, cfg.MA5, cfg.MA20, cfg.MA50, cfg.MA200, cfg.RSIPeriod} {
		if w > m {
			m = w
		}
	}
	return m
}

// BucketTime truncates ts to the news bucket boundary in UTC.
func BucketTime(ts time.Time, bucket time.Duration) time.Time {
	return ts.UTC().Truncate(bucket)
}
