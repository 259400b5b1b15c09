package features

import (
	"time"

	"CoinSage/internal/domain/models"
)

// DefaultNewsBucket is the resampling interval for sentiment aggregation.
const DefaultNewsBucket = time.Hour

// ExtractNewsSentimentFeatures aggregates news observations for one currency
// into fixed time buckets. Every bucket inside the observed span is
// materialized: buckets with no news get an all-zero row, so downstream
// consumers can tell "no news" from "no data". Items with a missing
// importance score count as importance 0 rather than poisoning the batch.
// The function is pure.
func ExtractNewsSentimentFeatures(obs []models.NewsObservation, bucket time.Duration) []models.NewsFeatureRow {
	if len(obs) == 0 {
		return nil
	}
	if bucket <= 0 {
		bucket = DefaultNewsBucket
	}

	type agg struct {
		count         int
		sentimentSum  float64
		weightedSum   float64
		positives     int
		negatives     int
		importanceSum float64
	}
	buckets := make(map[int64]*agg)
	var minB, maxB int64
	first := true
	for _, o := range obs {
		b := BucketTime(o.PublishedAt, bucket).UnixNano()
		a := buckets[b]
		if a == nil {
			a = &agg{}
			buckets[b] = a
		}
		score := o.Sentiment.Score()
		imp := o.ImportanceOrZero()
		a.count++
		a.sentimentSum += score
		a.weightedSum += score * imp
		a.importanceSum += imp
		if score > 0 {
			a.positives++
		} else if score < 0 {
			a.negatives++
		}
		if first || b < minB {
			minB = b
		}
		if first || b > maxB {
			maxB = b
		}
		first = false
	}

	step := bucket.Nanoseconds()
	rows := make([]models.NewsFeatureRow, 0, (maxB-minB)/step+1)
	for b := minB; b <= maxB; b += step {
		ts := time.Unix(0, b).UTC()
		a := buckets[b]
		if a == nil {
			// reindexed gap: zero row
			rows = append(rows, models.NewsFeatureRow{Bucket: ts})
			continue
		}
		n := float64(a.count)
		rows = append(rows, models.NewsFeatureRow{
			Bucket:            ts,
			NewsCount:         a.count,
			AvgSentiment:      a.sentimentSum / n,
			WeightedSentiment: a.weightedSum / n,
			PositiveRatio:     float64(a.positives) / n,
			NegativeRatio:     float64(a.negatives) / n,
			ImportanceAvg:     a.importanceSum / n,
		})
	}
	return rows
}
