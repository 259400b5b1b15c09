package features

import (
	"math"
	"sort"
	"strconv"
	"time"

	"CoinSage/internal/domain/models"
)

// NormMethod selects the column rescaling strategy.
type NormMethod string

const (
	NormMinMax NormMethod = "minmax"
	NormZScore NormMethod = "zscore"
)

// columnOrigin tags a merged column with the side it came from, because the
// gap-fill policy is decided per column origin, not per merge argument.
type columnOrigin int

const (
	originPrice columnOrigin = iota
	originNews
)

// column is one numeric column of the merged table, with typed accessors so
// normalization and lagging never touch fields by string key.
type column struct {
	name   string
	origin columnOrigin
	get    func(*models.MergedFeatureRow) float64
	set    func(*models.MergedFeatureRow, float64)
}

// defined returns false when the column has no value in this row, which only
// happens for price-origin columns at the head of a series with no prior
// price to forward-fill from.
func (c column) defined(r *models.MergedFeatureRow) bool {
	return c.origin == originNews || r.HasPrice
}

func numericColumns() []column {
	price := func(name string, get func(*models.PriceFeatureRow) *float64) column {
		return column{
			name:   name,
			origin: originPrice,
			get:    func(r *models.MergedFeatureRow) float64 { return *get(&r.Price) },
			set:    func(r *models.MergedFeatureRow, v float64) { *get(&r.Price) = v },
		}
	}
	news := func(name string, get func(*models.NewsFeatureRow) *float64) column {
		return column{
			name:   name,
			origin: originNews,
			get:    func(r *models.MergedFeatureRow) float64 { return *get(&r.News) },
			set:    func(r *models.MergedFeatureRow, v float64) { *get(&r.News) = v },
		}
	}
	return []column{
		price("price", func(p *models.PriceFeatureRow) *float64 { return &p.Price }),
		price("volume", func(p *models.PriceFeatureRow) *float64 { return &p.Volume }),
		price("price_change_1h", func(p *models.PriceFeatureRow) *float64 { return &p.PriceChange1h }),
		price("price_change_24h", func(p *models.PriceFeatureRow) *float64 { return &p.PriceChange24h }),
		price("volume_change_1h", func(p *models.PriceFeatureRow) *float64 { return &p.VolumeChange1h }),
		price("volume_change_24h", func(p *models.PriceFeatureRow) *float64 { return &p.VolumeChange24h }),
		price("ma_5", func(p *models.PriceFeatureRow) *float64 { return &p.MA5 }),
		price("ma_20", func(p *models.PriceFeatureRow) *float64 { return &p.MA20 }),
		price("ma_50", func(p *models.PriceFeatureRow) *float64 { return &p.MA50 }),
		price("ma_200", func(p *models.PriceFeatureRow) *float64 { return &p.MA200 }),
		price("ma_20_std", func(p *models.PriceFeatureRow) *float64 { return &p.MA20Std }),
		price("upper_band", func(p *models.PriceFeatureRow) *float64 { return &p.UpperBand }),
		price("lower_band", func(p *models.PriceFeatureRow) *float64 { return &p.LowerBand }),
		price("rsi_14", func(p *models.PriceFeatureRow) *float64 { return &p.RSI14 }),
		price("macd", func(p *models.PriceFeatureRow) *float64 { return &p.MACD }),
		price("macd_signal", func(p *models.PriceFeatureRow) *float64 { return &p.MACDSignal }),
		price("macd_hist", func(p *models.PriceFeatureRow) *float64 { return &p.MACDHist }),
		news("avg_sentiment", func(n *models.NewsFeatureRow) *float64 { return &n.AvgSentiment }),
		news("weighted_sentiment", func(n *models.NewsFeatureRow) *float64 { return &n.WeightedSentiment }),
		news("positive_ratio", func(n *models.NewsFeatureRow) *float64 { return &n.PositiveRatio }),
		news("negative_ratio", func(n *models.NewsFeatureRow) *float64 { return &n.NegativeRatio }),
		news("importance_avg", func(n *models.NewsFeatureRow) *float64 { return &n.ImportanceAvg }),
	}
}

func columnByName(name string) (column, bool) {
	for _, c := range numericColumns() {
		if c.name == name {
			return c, true
		}
	}
	return column{}, false
}

// Merge outer-joins the two feature tables on timestamp. If either side is
// empty the other is returned unchanged (wrapped into merged rows). Gaps are
// filled per column origin: news columns become zero because the absence of
// news is itself informative, price columns carry the last observed value
// forward. Rows before the first price observation stay without price data;
// that is the only place a merged row may be incomplete.
func Merge(price []models.PriceFeatureRow, news []models.NewsFeatureRow) []models.MergedFeatureRow {
	if len(price) == 0 && len(news) == 0 {
		return nil
	}

	priceAt := make(map[int64]models.PriceFeatureRow, len(price))
	newsAt := make(map[int64]models.NewsFeatureRow, len(news))
	keys := make(map[int64]struct{}, len(price)+len(news))
	for _, p := range price {
		k := p.Timestamp.UnixNano()
		priceAt[k] = p
		keys[k] = struct{}{}
	}
	for _, n := range news {
		k := n.Bucket.UnixNano()
		newsAt[k] = n
		keys[k] = struct{}{}
	}

	order := make([]int64, 0, len(keys))
	for k := range keys {
		order = append(order, k)
	}
	sort.Slice(order, func(i, j int) bool { return order[i] < order[j] })

	out := make([]models.MergedFeatureRow, 0, len(order))
	var lastPrice models.PriceFeatureRow
	havePrice := false
	for _, k := range order {
		row := models.MergedFeatureRow{}
		if p, ok := priceAt[k]; ok {
			lastPrice = p
			havePrice = true
		}
		if havePrice {
			row.HasPrice = true
			row.Price = lastPrice
		}
		if n, ok := newsAt[k]; ok {
			row.News = n
		}
		ts := time.Unix(0, k).UTC()
		row.Timestamp = ts
		row.Price.Timestamp = ts
		row.News.Bucket = ts
		out = append(out, row)
	}
	return out
}

// Normalize rescales every numeric column with the given method and returns
// a new slice; the input rows are never mutated. Constant columns are left
// untouched instead of degenerating to NaN. Rows without price data are
// skipped both when computing and when applying price-column statistics.
func Normalize(rows []models.MergedFeatureRow, method NormMethod) []models.MergedFeatureRow {
	if len(rows) == 0 {
		return nil
	}
	out := copyRows(rows)
	if method != NormMinMax && method != NormZScore {
		return out
	}

	for _, c := range numericColumns() {
		normalizeColumn(out, c.get, c.set, func(r *models.MergedFeatureRow) bool { return c.defined(r) }, method)
	}
	// lag columns are numeric too
	for _, name := range lagColumnNames(out) {
		n := name
		normalizeColumn(out,
			func(r *models.MergedFeatureRow) float64 { return r.Lags[n] },
			func(r *models.MergedFeatureRow, v float64) { r.Lags[n] = v },
			func(r *models.MergedFeatureRow) bool { _, ok := r.Lags[n]; return ok },
			method,
		)
	}
	return out
}

func normalizeColumn(
	rows []models.MergedFeatureRow,
	get func(*models.MergedFeatureRow) float64,
	set func(*models.MergedFeatureRow, float64),
	defined func(*models.MergedFeatureRow) bool,
	method NormMethod,
) {
	var vals []float64
	for i := range rows {
		if defined(&rows[i]) {
			vals = append(vals, get(&rows[i]))
		}
	}
	if len(vals) == 0 {
		return
	}

	switch method {
	case NormMinMax:
		lo, hi := vals[0], vals[0]
		for _, v := range vals {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
		if hi <= lo {
			return // constant column stays as-is
		}
		for i := range rows {
			if defined(&rows[i]) {
				set(&rows[i], (get(&rows[i])-lo)/(hi-lo))
			}
		}
	case NormZScore:
		mean := 0.0
		for _, v := range vals {
			mean += v
		}
		mean /= float64(len(vals))
		variance := 0.0
		for _, v := range vals {
			d := v - mean
			variance += d * d
		}
		std := math.Sqrt(variance / float64(len(vals)))
		if std == 0 {
			return
		}
		for i := range rows {
			if defined(&rows[i]) {
				set(&rows[i], (get(&rows[i])-mean)/std)
			}
		}
	}
}

// CreateLaggedFeatures appends "<col>_lag_<k>" columns for every requested
// column and lag. cols nil means all numeric columns. Rows without enough
// history for the largest lag are dropped, as are rows whose lag source (or
// own price data) is undefined; the no-partial-rows policy of extraction
// carries through. Returns a new slice, input untouched.
func CreateLaggedFeatures(rows []models.MergedFeatureRow, lagPeriods []int, cols []string) []models.MergedFeatureRow {
	if len(rows) == 0 {
		return nil
	}
	if len(lagPeriods) == 0 {
		return copyRows(rows)
	}

	var selected []column
	if cols == nil {
		selected = numericColumns()
	} else {
		for _, name := range cols {
			if c, ok := columnByName(name); ok {
				selected = append(selected, c)
			}
		}
	}

	maxLag := 0
	for _, l := range lagPeriods {
		if l > maxLag {
			maxLag = l
		}
	}

	src := copyRows(rows)
	out := make([]models.MergedFeatureRow, 0, len(src))
	for i := maxLag; i < len(src); i++ {
		row := src[i]
		if !row.HasPrice {
			continue
		}
		ok := true
		lags := make(map[string]float64, len(selected)*len(lagPeriods))
		for k, v := range row.Lags {
			lags[k] = v
		}
		for _, c := range selected {
			for _, l := range lagPeriods {
				srcRow := &src[i-l]
				if !c.defined(srcRow) {
					ok = false
					break
				}
				lags[lagName(c.name, l)] = c.get(srcRow)
			}
			if !ok {
				break
			}
		}
		if !ok {
			continue
		}
		row.Lags = lags
		out = append(out, row)
	}
	return out
}

func lagName(col string, lag int) string {
	return col + "_lag_" + strconv.Itoa(lag)
}

func lagColumnNames(rows []models.MergedFeatureRow) []string {
	seen := make(map[string]struct{})
	var names []string
	for i := range rows {
		for k := range rows[i].Lags {
			if _, ok := seen[k]; !ok {
				seen[k] = struct{}{}
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}

func copyRows(rows []models.MergedFeatureRow) []models.MergedFeatureRow {
	out := make([]models.MergedFeatureRow, len(rows))
	copy(out, rows)
	for i := range out {
		if out[i].Lags != nil {
			m := make(map[string]float64, len(out[i].Lags))
			for k, v := range out[i].Lags {
				m[k] = v
			}
			out[i].Lags = m
		}
	}
	return out
}
