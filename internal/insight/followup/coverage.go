package followup

import (
	"strings"

	"query-insight-workers/internal/models"
)

var (
	quarterTokens = []string{"季度", "quarter", "q1", "q2", "q3", "q4"}
	regionTokens  = []string{"地区", "区域", "省份", "城市", "华东", "华南", "华北", "region", "province", "city", "country"}
	channelTokens = []string{"渠道", "线上", "线下", "门店", "电商", "channel", "online", "offline", "retail", "store"}
)

const (
	variantQuarterly      = "quarterly"
	variantYearComparison = "year-comparison"
)

// DeriveCoverage tags what an answer already shows from its results and the
// chart attached to it, if any.
func DeriveCoverage(results []models.MetricResult, attached *models.VisualizationDescriptor) models.AnswerCoverage {
	var cov models.AnswerCoverage

	quarterLabels := 0
	for _, r := range results {
		label := strings.ToLower(r.Label)

		if containsAny(label, quarterTokens) {
			quarterLabels++
		}
		if IsPeriodComparison(label) {
			cov.HasPeriodComparison = true
		}
		if r.HasTrend() {
			cov.HasTrendSeries = true
			if IsPeriodComparison(r.Trend.Qualifier) {
				cov.HasPeriodComparison = true
			}
		}
		if containsAny(label, regionTokens) {
			cov.HasGeographicBreakdown = true
		}
		if containsAny(label, channelTokens) {
			cov.HasChannelBreakdown = true
		}
	}
	cov.HasQuarterlyBreakdown = quarterLabels >= 2

	if attached != nil {
		switch attached.ChartVariant {
		case variantQuarterly:
			cov.HasQuarterlyBreakdown = true
		case variantYearComparison:
			cov.HasPeriodComparison = true
		}
		if attached.ChartFamily == models.ChartFamilyLine {
			cov.HasTrendSeries = true
		}
	}

	return cov
}

// containsAny reports whether s holds any of tokens. ASCII tokens must not be
// flanked by ASCII letters, so "city" does not match "capacity". Digits and
// CJK text count as boundaries ("2024q1", "q3销售额").
func containsAny(s string, tokens []string) bool {
	for _, t := range tokens {
		if containsToken(s, t) {
			return true
		}
	}
	return false
}

func containsToken(s, token string) bool {
	if token == "" {
		return false
	}
	if !isASCIIWord(token) {
		return strings.Contains(s, token)
	}
	for from := 0; from+len(token) <= len(s); {
		i := strings.Index(s[from:], token)
		if i < 0 {
			return false
		}
		start, end := from+i, from+i+len(token)
		if (start == 0 || !isASCIILetter(s[start-1])) && (end == len(s) || !isASCIILetter(s[end])) {
			return true
		}
		from = start + 1
	}
	return false
}

func isASCIIWord(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

func isASCIILetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
