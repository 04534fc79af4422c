package aggregate

const DefaultGranularThreshold = 5000

// Granularity decides whether per-row detail such as daily periods is worth
// computing for a data set.
type Granularity struct {
	Threshold int
}

// Allow is true for small data sets, or for large ones when the question
// explicitly asked for detail.
func (g Granularity) Allow(rows int, requested bool) bool {
	threshold := g.Threshold
	if threshold <= 0 {
		threshold = DefaultGranularThreshold
	}
	return requested || rows <= threshold
}
