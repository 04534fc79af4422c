package aggregate

import (
	"errors"
	"fmt"
	"sort"

	"adsinsight/internal/domain"
)

var (
	ErrUnknownMetric        = errors.New("unknown ranking metric")
	ErrNoQualifyingSegments = errors.New("no qualifying segments")
)

const DefaultTopN = 5

// Rank orders buckets by metric. Buckets whose ratio denominator is zero
// are excluded rather than ranked as zero; plain counts keep every bucket.
// Ties fall back to key order so the result is deterministic.
func Rank(b domain.Breakdown, metric domain.Metric, dir domain.Direction, topN int) (domain.Ranking, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}
	if dir == "" {
		dir = domain.Highest
	}
	ranking := domain.Ranking{Spec: domain.RankingSpec{Direction: dir, Metric: metric, TopN: topN}}

	if !metric.Known() {
		return ranking, fmt.Errorf("%w: %q", ErrUnknownMetric, metric)
	}

	segments := make([]domain.RankedSegment, 0, len(b))
	for key, m := range b {
		if !metric.Qualifies(m) {
			ranking.Excluded++
			continue
		}
		segments = append(segments, domain.RankedSegment{Key: key, Value: metric.Value(m), Metrics: m})
	}

	if len(segments) == 0 {
		return ranking, fmt.Errorf("%w for %s", ErrNoQualifyingSegments, metric.Label())
	}

	sort.SliceStable(segments, func(i, j int) bool {
		a, c := segments[i], segments[j]
		if a.Value != c.Value {
			if dir == domain.Lowest {
				return a.Value < c.Value
			}
			return a.Value > c.Value
		}
		return a.Key.String() < c.Key.String()
	})

	if len(segments) > topN {
		segments = segments[:topN]
	}
	ranking.Segments = segments
	return ranking, nil
}

// SortByMetric returns keys ordered by descending metric value, ties by key.
func SortByMetric(b domain.Breakdown, metric domain.Metric) []domain.AggregationKey {
	keys := make([]domain.AggregationKey, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		vi, vj := metric.Value(b[keys[i]]), metric.Value(b[keys[j]])
		if vi != vj {
			return vi > vj
		}
		return keys[i].String() < keys[j].String()
	})
	return keys
}

// SortedKeys returns keys in lexical order.
func SortedKeys(b domain.Breakdown) []domain.AggregationKey {
	keys := make([]domain.AggregationKey, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
