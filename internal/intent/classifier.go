package intent

import (
	"regexp"
	"strconv"
	"strings"

	"adsinsight/internal/domain"
	"adsinsight/internal/normalize"
)

// Rule pairs a predicate with the extractor run when it fires. Rules are
// evaluated in slice order and the first match decides the intent kind.
type Rule struct {
	Kind    domain.IntentKind
	Match   func(q string) bool
	Extract func(q string, in *domain.Intent)
}

type Classifier struct {
	rules       []Rule
	defaultTopN int
}

const DefaultTopN = 5

// New builds a classifier with the standard rule table.
func New(defaultTopN int) *Classifier {
	if defaultTopN <= 0 {
		defaultTopN = DefaultTopN
	}
	c := &Classifier{defaultTopN: defaultTopN}
	c.rules = []Rule{
		{Kind: domain.IntentTrend, Match: trendPattern.MatchString, Extract: extractTrend},
		{Kind: domain.IntentRanking, Match: isRanking, Extract: c.extractRanking},
		{Kind: domain.IntentAdvice, Match: matchesAny(advicePatterns)},
		{Kind: domain.IntentPerformance, Match: matchesAny(performancePatterns)},
		{Kind: domain.IntentMonthListing, Match: matchesAny(monthListingPatterns)},
	}
	return c
}

// Rules exposes the ordered rule table.
func (c *Classifier) Rules() []Rule {
	out := make([]Rule, len(c.rules))
	copy(out, c.rules)
	return out
}

// Classify reads a question into an intent. It never fails: unmatched
// questions, including empty ones, are general.
func (c *Classifier) Classify(question string) domain.Intent {
	in := domain.Intent{Kind: domain.IntentGeneral, Question: question}
	q := strings.ToLower(strings.TrimSpace(question))
	if q == "" {
		return in
	}

	for _, rule := range c.rules {
		if !rule.Match(q) {
			continue
		}
		in.Kind = rule.Kind
		if rule.Extract != nil {
			rule.Extract(q, &in)
		}
		break
	}

	in.Temporal = extractTemporal(q)
	in.Segment = extractSegment(question, q)
	in.Metric, _ = DetectMetric(q)
	in.Topic = detectTopic(q)
	in.Granular = matchesAny(granularPatterns)(q)
	return in
}

func matchesAny(patterns []*regexp.Regexp) func(string) bool {
	return func(q string) bool {
		for _, p := range patterns {
			if p.MatchString(q) {
				return true
			}
		}
		return false
	}
}

func extractTrend(q string, in *domain.Intent) {
	m := trendPattern.FindStringSubmatch(q)
	if m == nil {
		return
	}
	n := m[1]
	if n == "" {
		n = m[2]
	}
	in.TrendMonths, _ = strconv.Atoi(n)
}

func isSuperlative(q string) bool {
	return highestPattern.MatchString(q) || lowestPattern.MatchString(q)
}

func isRanking(q string) bool {
	if !isSuperlative(q) {
		return false
	}
	if _, ok := DetectDimension(q); ok {
		return true
	}
	_, ok := DetectMetric(q)
	return ok
}

func (c *Classifier) extractRanking(q string, in *domain.Intent) {
	spec := domain.RankingSpec{Direction: domain.Highest, TopN: c.defaultTopN}
	if lowestPattern.MatchString(q) {
		spec.Direction = domain.Lowest
	}
	if dim, ok := DetectDimension(q); ok {
		spec.Dimension = dim
	} else {
		spec.Dimension = domain.DimensionAdset
	}
	if metric, ok := DetectMetric(q); ok {
		spec.Metric = metric
	} else {
		spec.Metric = domain.MetricCost
	}
	if m := topNPattern.FindStringSubmatch(q); m != nil {
		n := m[1]
		if n == "" {
			n = m[2]
		}
		if v, err := strconv.Atoi(n); err == nil && v > 0 {
			spec.TopN = v
		}
	}
	in.Ranking = &spec
}

// DetectDimension returns the first dimension keyword in q. A question
// naming both age and gender groups by their combination.
func DetectDimension(q string) (domain.Dimension, bool) {
	q = strings.ToLower(q)
	for _, w := range dimensionWords {
		if !w.pattern.MatchString(q) {
			continue
		}
		if w.dimension == domain.DimensionAge || w.dimension == domain.DimensionGender {
			if dimensionMatches(q, domain.DimensionAge) && dimensionMatches(q, domain.DimensionGender) {
				return domain.DimensionAgeGender, true
			}
		}
		return w.dimension, true
	}
	return "", false
}

func dimensionMatches(q string, dim domain.Dimension) bool {
	for _, w := range dimensionWords {
		if w.dimension == dim {
			return w.pattern.MatchString(q)
		}
	}
	return false
}

// DetectMetric returns the first metric in q using the ordered metric table.
func DetectMetric(q string) (domain.Metric, bool) {
	q = strings.ToLower(q)
	for _, w := range metricWords {
		if w.pattern.MatchString(q) {
			return w.metric, true
		}
	}
	return "", false
}

func detectTopic(q string) domain.Topic {
	for _, t := range topicPatterns {
		if matchesAny(t.patterns)(q) {
			return t.topic
		}
	}
	return ""
}

func extractTemporal(q string) domain.Temporal {
	var t domain.Temporal

	if m := weekPattern.FindStringSubmatch(q); m != nil {
		n := m[1]
		if n == "" {
			n = m[2]
		}
		if w, err := strconv.Atoi(n); err == nil && w >= 1 && w <= 5 {
			t.WeekOfMonth = w
		}
	}

	tokens := tokenPattern.FindAllString(q, -1)
	for i, tok := range tokens {
		month, ok := normalize.MonthNames[tok]
		if !ok || !monthWord(tok, tokens, i) {
			continue
		}
		t.Month = int(month)
		if i+1 < len(tokens) && yearPattern.MatchString(tokens[i+1]) {
			t.Year, _ = strconv.Atoi(tokens[i+1])
		}
		break
	}

	if t.Year == 0 {
		if m := yearPattern.FindStringSubmatch(q); m != nil {
			t.Year, _ = strconv.Atoi(m[1])
		}
	}
	return t
}

// Short or ambiguous month words only count next to a year or after "bulan".
var ambiguousMonthWords = map[string]bool{
	"may": true, "mar": true, "jan": true, "jun": true, "jul": true, "sep": true,
	"des": true, "dec": true, "nov": true, "oct": true, "okt": true, "apr": true,
	"aug": true, "agu": true, "agt": true, "feb": true, "nop": true, "sept": true,
}

func monthWord(tok string, tokens []string, i int) bool {
	if !ambiguousMonthWords[tok] {
		return true
	}
	if i > 0 && tokens[i-1] == "bulan" {
		return true
	}
	return i+1 < len(tokens) && yearPattern.MatchString(tokens[i+1])
}

func extractSegment(original, q string) domain.SegmentFilter {
	var s domain.SegmentFilter

	if m := agePattern.FindStringSubmatch(q); m != nil {
		s.AgeRange = m[1]
	}

	switch {
	case femaleWords.MatchString(q):
		s.Gender = "female"
	case maleWords.MatchString(q):
		s.Gender = "male"
	}

	for _, m := range adsetPattern.FindAllStringSubmatch(original, -1) {
		if name := adsetName(m); name != "" {
			s.AdsetName = name
			break
		}
	}
	return s
}

func adsetName(m []string) string {
	if m[1] != "" {
		return strings.TrimSpace(m[1])
	}
	if m[2] != "" {
		return strings.TrimSpace(m[2])
	}
	tok := m[3]
	lower := strings.ToLower(tok)
	if adsetStopwords[lower] || isSuperlative(lower) {
		return ""
	}
	if _, ok := normalize.MonthNames[lower]; ok {
		return ""
	}
	if _, ok := DetectMetric(lower); ok {
		return ""
	}
	if _, ok := DetectDimension(lower); ok {
		return ""
	}
	return tok
}
