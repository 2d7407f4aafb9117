package chartmatch

import (
	"strings"

	"query-insight-workers/internal/models"
)

// Token sets are matched as literal lower-cased substrings. The rule table was
// authored against these exact semantics, so no tokenization is applied.
var (
	yearTokens     = []string{"年", "year", "annual", "ytd"}
	quarterTokens  = []string{"季度", "quarter", "q1", "q2", "q3", "q4"}
	monthTokens    = []string{"月", "month"}
	dayTokens      = []string{"日", "天", "day", "daily"}
	categoryTokens = []string{"各", "每个", "按", "分别", "each", "by ", "per ", "breakdown"}
)

// granularityOrder is the fixed check order for InferGranularity.
var granularityOrder = []struct {
	granularity models.TimeGranularity
	tokens      []string
}{
	{models.GranularityYear, yearTokens},
	{models.GranularityQuarter, quarterTokens},
	{models.GranularityMonth, monthTokens},
	{models.GranularityDay, dayTokens},
}

// Features is the per-call feature vector the rules are evaluated against.
type Features struct {
	Question             string
	Labels               []string
	HasTimeDimension     bool
	HasCategoryDimension bool
	Granularity          models.TimeGranularity
	HasTrend             bool
}

// ExtractFeatures computes every feature of the question and results once.
func ExtractFeatures(question string, results []models.MetricResult) Features {
	f := Features{
		Question: strings.ToLower(question),
		Labels:   lowerLabels(results),
	}
	f.HasTimeDimension = hasTimeToken(f.Question, f.Labels)
	f.HasCategoryDimension = containsAny(f.Question, categoryTokens) || anyContainsAny(f.Labels, categoryTokens)
	f.Granularity = inferGranularity(f.Question)
	f.HasTrend = HasTrend(results)
	return f
}

// HasTimeDimension reports whether the question or any result label mentions a
// year, quarter, month or day.
func HasTimeDimension(question string, results []models.MetricResult) bool {
	return hasTimeToken(strings.ToLower(question), lowerLabels(results))
}

// HasCategoryDimension reports whether the question or any result label carries
// an each/by/breakdown qualifier.
func HasCategoryDimension(question string, results []models.MetricResult) bool {
	return containsAny(strings.ToLower(question), categoryTokens) ||
		anyContainsAny(lowerLabels(results), categoryTokens)
}

// InferGranularity returns the first granularity whose tokens appear in the
// question, checking year, quarter, month and day in that order.
func InferGranularity(question string) models.TimeGranularity {
	return inferGranularity(strings.ToLower(question))
}

// HasTrend reports whether any result carries a non-empty trend descriptor.
func HasTrend(results []models.MetricResult) bool {
	for _, r := range results {
		if r.HasTrend() {
			return true
		}
	}
	return false
}

func inferGranularity(lowered string) models.TimeGranularity {
	for _, g := range granularityOrder {
		if containsAny(lowered, g.tokens) {
			return g.granularity
		}
	}
	return models.GranularityNone
}

func hasTimeToken(question string, labels []string) bool {
	for _, g := range granularityOrder {
		if containsAny(question, g.tokens) || anyContainsAny(labels, g.tokens) {
			return true
		}
	}
	return false
}

func lowerLabels(results []models.MetricResult) []string {
	labels := make([]string, 0, len(results))
	for _, r := range results {
		labels = append(labels, strings.ToLower(r.Label))
	}
	return labels
}

func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if strings.Contains(s, t) {
			return true
		}
	}
	return false
}

func anyContainsAny(values []string, tokens []string) bool {
	for _, v := range values {
		if containsAny(v, tokens) {
			return true
		}
	}
	return false
}
