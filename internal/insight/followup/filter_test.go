package followup

import (
	"errors"
	"fmt"
	"testing"

	"query-insight-workers/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func suggestionLabels(list []models.SuggestionCandidate) []string {
	out := make([]string, 0, len(list))
	for _, c := range list {
		out = append(out, c.Label)
	}
	return out
}

func TestRecommend_QuarterlyAndPeriodCovered(t *testing.T) {
	coverage := models.AnswerCoverage{HasQuarterlyBreakdown: true, HasPeriodComparison: true}

	got := Recommend(coverage, DefaultCatalogue())

	assert.Equal(t, []string{"增长原因分析", "未来趋势预测", "按地区分布", "按渠道分析"}, suggestionLabels(got))
	assert.NotContains(t, suggestionLabels(got), "按季度拆分")
	assert.NotContains(t, suggestionLabels(got), "同比/环比对比")
}

func TestRecommend_NothingCovered(t *testing.T) {
	got := Recommend(models.AnswerCoverage{}, DefaultCatalogue())

	require.Len(t, got, MaxSuggestions)
	// 9, 8 (first declared), 8, 7
	assert.Equal(t, []string{"增长原因分析", "同比/环比对比", "未来趋势预测", "按季度拆分"}, suggestionLabels(got))
}

func TestRecommend_Suppression(t *testing.T) {
	tests := []struct {
		name       string
		coverage   models.AnswerCoverage
		candidate  models.SuggestionCandidate
		suppressed bool
	}{
		{
			name:       "coarse time under quarterly breakdown",
			coverage:   models.AnswerCoverage{HasQuarterlyBreakdown: true},
			candidate:  models.SuggestionCandidate{Label: "按季度拆分", Dimension: models.DimensionTime, Priority: 7, Granularity: models.GranularityQuarter},
			suppressed: true,
		},
		{
			name:       "time without granularity under quarterly breakdown",
			coverage:   models.AnswerCoverage{HasQuarterlyBreakdown: true},
			candidate:  models.SuggestionCandidate{Label: "按年汇总", Dimension: models.DimensionTime, Priority: 3},
			suppressed: true,
		},
		{
			name:       "finer month survives quarterly breakdown",
			coverage:   models.AnswerCoverage{HasQuarterlyBreakdown: true},
			candidate:  models.SuggestionCandidate{Label: "按月查看趋势", Dimension: models.DimensionTime, Priority: 4, Granularity: models.GranularityMonth},
			suppressed: false,
		},
		{
			name:       "finer day survives quarterly breakdown",
			coverage:   models.AnswerCoverage{HasQuarterlyBreakdown: true},
			candidate:  models.SuggestionCandidate{Label: "按日查看", Dimension: models.DimensionTime, Priority: 2, Granularity: models.GranularityDay},
			suppressed: false,
		},
		{
			name:       "time kept without quarterly breakdown",
			coverage:   models.AnswerCoverage{HasGeographicBreakdown: true},
			candidate:  models.SuggestionCandidate{Label: "按季度拆分", Dimension: models.DimensionTime, Priority: 7, Granularity: models.GranularityQuarter},
			suppressed: false,
		},
		{
			name:       "period label under period comparison",
			coverage:   models.AnswerCoverage{HasPeriodComparison: true},
			candidate:  models.SuggestionCandidate{Label: "Year-over-Year view", Dimension: models.DimensionTime, Priority: 8},
			suppressed: true,
		},
		{
			name:       "finer period label still suppressed by period comparison",
			coverage:   models.AnswerCoverage{HasQuarterlyBreakdown: true, HasPeriodComparison: true},
			candidate:  models.SuggestionCandidate{Label: "月度环比", Dimension: models.DimensionTime, Priority: 5, Granularity: models.GranularityMonth},
			suppressed: true,
		},
		{
			name:       "period label kept without period comparison",
			coverage:   models.AnswerCoverage{HasQuarterlyBreakdown: false},
			candidate:  models.SuggestionCandidate{Label: "同比/环比对比", Dimension: models.DimensionTime, Priority: 8},
			suppressed: false,
		},
		{
			name:       "geography covered",
			coverage:   models.AnswerCoverage{HasGeographicBreakdown: true},
			candidate:  models.SuggestionCandidate{Label: "按地区分布", Dimension: models.DimensionGeography, Priority: 6},
			suppressed: true,
		},
		{
			name:       "channel covered",
			coverage:   models.AnswerCoverage{HasChannelBreakdown: true},
			candidate:  models.SuggestionCandidate{Label: "按渠道分析", Dimension: models.DimensionChannel, Priority: 5},
			suppressed: true,
		},
		{
			name:       "geography kept when only channel covered",
			coverage:   models.AnswerCoverage{HasChannelBreakdown: true},
			candidate:  models.SuggestionCandidate{Label: "按地区分布", Dimension: models.DimensionGeography, Priority: 6},
			suppressed: false,
		},
		{
			name: "causal never suppressed",
			coverage: models.AnswerCoverage{
				HasQuarterlyBreakdown: true, HasPeriodComparison: true,
				HasGeographicBreakdown: true, HasChannelBreakdown: true, HasTrendSeries: true,
			},
			candidate:  models.SuggestionCandidate{Label: "同比增长原因", Dimension: models.DimensionCausal, Priority: 9},
			suppressed: false,
		},
		{
			name:       "predictive never suppressed",
			coverage:   models.AnswerCoverage{HasPeriodComparison: true, HasTrendSeries: true},
			candidate:  models.SuggestionCandidate{Label: "未来趋势预测", Dimension: models.DimensionPredictive, Priority: 8},
			suppressed: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.suppressed, Suppressed(tt.coverage, tt.candidate))

			got := Recommend(tt.coverage, []models.SuggestionCandidate{tt.candidate})
			if tt.suppressed {
				assert.Empty(t, got)
			} else {
				assert.Equal(t, []models.SuggestionCandidate{tt.candidate}, got)
			}
		})
	}
}

func TestRecommend_AlwaysOffersCausalAndPredictive(t *testing.T) {
	all := models.AnswerCoverage{
		HasQuarterlyBreakdown:  true,
		HasPeriodComparison:    true,
		HasGeographicBreakdown: true,
		HasChannelBreakdown:    true,
		HasTrendSeries:         true,
	}

	got := Recommend(all, DefaultCatalogue())

	assert.Equal(t, []string{"增长原因分析", "未来趋势预测", "按月查看趋势"}, suggestionLabels(got))
	for _, c := range got {
		if c.Dimension == models.DimensionTime {
			assert.True(t, c.Granularity.Finer(models.GranularityQuarter))
		}
	}
}

func TestRecommend_CapInvariant(t *testing.T) {
	catalogue := make([]models.SuggestionCandidate, 0, 50)
	for i := 0; i < 50; i++ {
		catalogue = append(catalogue, models.SuggestionCandidate{
			Label:     fmt.Sprintf("原因 %d", i),
			Dimension: models.DimensionCausal,
			Priority:  i%10 + 1,
		})
	}

	got := Recommend(models.AnswerCoverage{}, catalogue)
	require.Len(t, got, MaxSuggestions)
	for _, c := range got {
		assert.Equal(t, 10, c.Priority)
	}
	// Stable: the first four priority-10 candidates in declaration order.
	assert.Equal(t, []string{"原因 9", "原因 19", "原因 29", "原因 39"}, suggestionLabels(got))
}

func TestRecommend_Empty(t *testing.T) {
	got := Recommend(models.AnswerCoverage{}, nil)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	onlyGeo := []models.SuggestionCandidate{{Label: "按地区分布", Dimension: models.DimensionGeography, Priority: 6}}
	got = Recommend(models.AnswerCoverage{HasGeographicBreakdown: true}, onlyGeo)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestRecommend_DoesNotModifyCatalogue(t *testing.T) {
	catalogue := DefaultCatalogue()
	before := append([]models.SuggestionCandidate(nil), catalogue...)

	Recommend(models.AnswerCoverage{HasQuarterlyBreakdown: true}, catalogue)

	assert.Equal(t, before, catalogue)
}

func TestFilter(t *testing.T) {
	f := Default()

	coverage := models.AnswerCoverage{HasQuarterlyBreakdown: true, HasPeriodComparison: true}
	assert.Equal(t, Recommend(coverage, DefaultCatalogue()), f.Recommend(coverage))

	cat := f.Catalogue()
	cat[0].Label = "mutated"
	assert.Equal(t, "按季度拆分", f.Catalogue()[0].Label)
}

func TestNewFilter_Validation(t *testing.T) {
	tests := []struct {
		name      string
		candidate models.SuggestionCandidate
	}{
		{"missing label", models.SuggestionCandidate{Dimension: models.DimensionTime, Priority: 5}},
		{"unknown dimension", models.SuggestionCandidate{Label: "x", Dimension: "product", Priority: 5}},
		{"priority too low", models.SuggestionCandidate{Label: "x", Dimension: models.DimensionTime, Priority: 0}},
		{"priority too high", models.SuggestionCandidate{Label: "x", Dimension: models.DimensionTime, Priority: 11}},
		{"unknown granularity", models.SuggestionCandidate{Label: "x", Dimension: models.DimensionTime, Priority: 5, Granularity: "week"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewFilter([]models.SuggestionCandidate{tt.candidate})
			assert.Nil(t, f)
			assert.True(t, errors.Is(err, ErrInvalidCatalogue))
		})
	}

	f, err := NewFilter(nil)
	require.NoError(t, err)
	assert.Empty(t, f.Recommend(models.AnswerCoverage{}))
}

func TestIsPeriodComparison(t *testing.T) {
	assert.True(t, IsPeriodComparison("同比/环比对比"))
	assert.True(t, IsPeriodComparison("YoY growth"))
	assert.True(t, IsPeriodComparison("period-over-period"))
	assert.True(t, IsPeriodComparison("MoM change"))
	assert.True(t, IsPeriodComparison("month-over-month"))
	assert.False(t, IsPeriodComparison("Momentum index"))
	assert.False(t, IsPeriodComparison("按地区分布"))
	assert.False(t, IsPeriodComparison(""))
}

func BenchmarkRecommend(b *testing.B) {
	f := Default()
	coverage := models.AnswerCoverage{HasQuarterlyBreakdown: true, HasPeriodComparison: true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		f.Recommend(coverage)
	}
}
