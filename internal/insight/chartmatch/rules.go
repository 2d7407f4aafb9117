package chartmatch

import (
	"encoding/json"
	"fmt"
	"os"

	"query-insight-workers/internal/models"
)

func flag(v bool) *bool { return &v }

// DefaultRules returns a fresh copy of the built-in rule table. Declaration
// order is the tie-break when two rules score the same.
func DefaultRules() []models.MatchRule {
	return []models.MatchRule{
		{
			ID:               "yearly-kpi-comparison",
			QuestionKeywords: []string{"今年", "本年", "年度", "this year", "year"},
			QuestionIntents:  []models.Intent{models.IntentSingleMetric, models.IntentPeriodComparison},
			RequiresTrend:    flag(true),
			TimeGranularity:  models.GranularityYear,
			Recommendation: models.VisualizationDescriptor{
				ChartFamily:  models.ChartFamilyLine,
				ChartVariant: "year-comparison",
				Rationale:    "yearly metric with a trend; plot it against prior years",
			},
			Priority: 5,
		},
		{
			ID:              "single-kpi",
			QuestionIntents: []models.Intent{models.IntentSingleMetric},
			RequiresTrend:   flag(false),
			Recommendation: models.VisualizationDescriptor{
				ChartFamily:  models.ChartFamilyBar,
				ChartVariant: "kpi",
				Rationale:    "single value without history; show it as a headline bar",
			},
			Priority: 2,
		},
		{
			ID:               "quarterly-breakdown",
			QuestionKeywords: []string{"季度", "quarter", "q1", "q2", "q3", "q4"},
			QuestionIntents:  []models.Intent{models.IntentMultiMetric, models.IntentComparison, models.IntentSingleMetric},
			TimeGranularity:  models.GranularityQuarter,
			Recommendation: models.VisualizationDescriptor{
				ChartFamily: models.ChartFamilyBar,
				Rationale:   "quarterly values compared side by side",
			},
			Priority: 4,
		},
		{
			ID:               "monthly-trend",
			QuestionKeywords: []string{"每月", "各月", "月度", "month", "趋势", "trend"},
			QuestionIntents:  []models.Intent{models.IntentTrend, models.IntentMultiMetric},
			TimeGranularity:  models.GranularityMonth,
			Recommendation: models.VisualizationDescriptor{
				ChartFamily:  models.ChartFamilyLine,
				ChartVariant: "monthly",
				Rationale:    "month-by-month series reads best as a line",
			},
			Priority: 4,
		},
		{
			ID:               "trend-over-time",
			QuestionKeywords: []string{"趋势", "走势", "变化", "trend", "over time"},
			QuestionIntents:  []models.Intent{models.IntentTrend},
			Recommendation: models.VisualizationDescriptor{
				ChartFamily: models.ChartFamilyLine,
				Rationale:   "change over time",
			},
			Priority: 3,
		},
		{
			ID:               "composition-share",
			QuestionKeywords: []string{"占比", "构成", "比例", "份额", "share", "proportion", "composition"},
			QuestionIntents:  []models.Intent{models.IntentComposition},
			Recommendation: models.VisualizationDescriptor{
				ChartFamily: models.ChartFamilyPie,
				Rationale:   "parts of a whole",
			},
			Priority: 4,
		},
		{
			ID:                        "channel-share",
			QuestionKeywords:          []string{"渠道", "channel"},
			QuestionIntents:           []models.Intent{models.IntentComposition, models.IntentMultiMetric, models.IntentComparison},
			RequiresCategoryDimension: flag(true),
			Recommendation: models.VisualizationDescriptor{
				ChartFamily:  models.ChartFamilyPie,
				ChartVariant: "donut",
				Rationale:    "channel mix as a share of the total",
			},
			Priority: 3,
		},
		{
			ID:               "ranking",
			QuestionKeywords: []string{"排名", "排行", "前", "top", "最高", "最低", "rank"},
			QuestionIntents:  []models.Intent{models.IntentRanking},
			Recommendation: models.VisualizationDescriptor{
				ChartFamily:  models.ChartFamilyBar,
				ChartVariant: "horizontal",
				Rationale:    "ordered ranking reads best as sorted horizontal bars",
			},
			Priority: 4,
		},
		{
			ID:                        "dimension-comparison",
			QuestionKeywords:          []string{"对比", "比较", "各", "vs", "compare", "versus"},
			QuestionIntents:           []models.Intent{models.IntentComparison, models.IntentMultiMetric},
			RequiresCategoryDimension: flag(true),
			Recommendation: models.VisualizationDescriptor{
				ChartFamily:  models.ChartFamilyBar,
				ChartVariant: "grouped",
				Rationale:    "categories compared against each other",
			},
			Priority: 3,
		},
		{
			ID:               "period-over-period",
			QuestionKeywords: []string{"同比", "环比", "去年", "上月", "上季度", "yoy", "year-over-year", "mom"},
			QuestionIntents:  []models.Intent{models.IntentPeriodComparison},
			Recommendation: models.VisualizationDescriptor{
				ChartFamily:  models.ChartFamilyLine,
				ChartVariant: "year-comparison",
				Rationale:    "current period overlaid on the comparison period",
			},
			Priority: 5,
		},
		{
			ID:               "regional-breakdown",
			QuestionKeywords: []string{"地区", "区域", "省", "城市", "region", "geography"},
			QuestionIntents:  []models.Intent{models.IntentMultiMetric, models.IntentComparison, models.IntentComposition, models.IntentRanking},
			Recommendation: models.VisualizationDescriptor{
				ChartFamily: models.ChartFamilyBar,
				Rationale:   "values per region",
			},
			Priority: 3,
		},
		{
			ID:              "anomaly-highlight",
			QuestionIntents: []models.Intent{models.IntentAnomaly},
			Recommendation: models.VisualizationDescriptor{
				ChartFamily:  models.ChartFamilyLine,
				ChartVariant: "anomaly-highlight",
				Rationale:    "series with the anomalous points highlighted",
			},
			Priority: 4,
		},
		{
			ID:              "attribution-waterfall",
			QuestionIntents: []models.Intent{models.IntentAttribution},
			Recommendation: models.VisualizationDescriptor{
				ChartFamily:  models.ChartFamilyBar,
				ChartVariant: "waterfall",
				Rationale:    "contribution of each driver to the total change",
			},
			Priority: 4,
		},
		{
			ID:              "forecast",
			QuestionIntents: []models.Intent{models.IntentPrediction},
			Recommendation: models.VisualizationDescriptor{
				ChartFamily:  models.ChartFamilyLine,
				ChartVariant: "forecast",
				Rationale:    "history followed by the projected range",
			},
			Priority: 4,
		},
		{
			ID:              "multi-metric-default",
			QuestionIntents: []models.Intent{models.IntentMultiMetric},
			Recommendation: models.VisualizationDescriptor{
				ChartFamily: models.ChartFamilyBar,
				Rationale:   "several metrics side by side",
			},
			Priority: 1,
		},
	}
}

type rulesFile struct {
	Rules []models.MatchRule `json:"rules"`
}

// LoadRulesFile reads a rule table from a JSON file of the form {"rules": [...]}.
func LoadRulesFile(path string) ([]models.MatchRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var f rulesFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("%w: %s declares no rules", ErrInvalidRuleTable, path)
	}
	return f.Rules, nil
}
