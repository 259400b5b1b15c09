package features

import "CoinSage/internal/domain/models"

// value resolves a column by name on one row. Lag columns take precedence
// over registry columns because lagging can only add names, never shadow.
func value(r *models.MergedFeatureRow, name string) (float64, bool) {
	if v, ok := r.Lags[name]; ok {
		return v, true
	}
	c, ok := columnByName(name)
	if !ok {
		return 0, false
	}
	if !c.defined(r) {
		return 0, false
	}
	return c.get(r), true
}

// AvailableColumns filters names down to the columns actually carried by the
// table: a column counts as available only when it is defined on every row.
// News columns additionally require that the table saw news at all, so a
// price-only merge does not offer all-zero sentiment as a training feature.
func AvailableColumns(rows []models.MergedFeatureRow, names []string) []string {
	if len(rows) == 0 {
		return nil
	}
	sawNews := false
	for i := range rows {
		if rows[i].News.NewsCount > 0 {
			sawNews = true
			break
		}
	}

	var out []string
	for _, name := range names {
		if c, ok := columnByName(name); ok && c.origin == originNews && !sawNews {
			continue
		}
		defined := true
		for i := range rows {
			if _, ok := value(&rows[i], name); !ok {
				defined = false
				break
			}
		}
		if defined {
			out = append(out, name)
		}
	}
	return out
}

// Matrix extracts the named columns into a dense row-major matrix. Columns
// must all be available on every row; callers filter with AvailableColumns
// first.
func Matrix(rows []models.MergedFeatureRow, names []string) [][]float64 {
	out := make([][]float64, len(rows))
	for i := range rows {
		vec := make([]float64, len(names))
		for j, name := range names {
			v, _ := value(&rows[i], name)
			vec[j] = v
		}
		out[i] = vec
	}
	return out
}

// ColumnVector extracts one named column.
func ColumnVector(rows []models.MergedFeatureRow, name string) []float64 {
	out := make([]float64, len(rows))
	for i := range rows {
		v, _ := value(&rows[i], name)
		out[i] = v
	}
	return out
}
