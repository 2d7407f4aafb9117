// internal/models/insight.go
package models

// Intent is the classified shape of an analytics question. It is produced
// upstream; values outside the constants below are valid and match no rule.
type Intent string

const (
	IntentSingleMetric     Intent = "single_metric"
	IntentMultiMetric      Intent = "multi_metric"
	IntentTrend            Intent = "trend"
	IntentComposition      Intent = "composition"
	IntentComparison       Intent = "comparison"
	IntentRanking          Intent = "ranking"
	IntentPeriodComparison Intent = "period_comparison"
	IntentAnomaly          Intent = "anomaly"
	IntentAttribution      Intent = "attribution"
	IntentPrediction       Intent = "prediction"
)

// KnownIntents lists the intents the classifier can emit.
var KnownIntents = []Intent{
	IntentSingleMetric,
	IntentMultiMetric,
	IntentTrend,
	IntentComposition,
	IntentComparison,
	IntentRanking,
	IntentPeriodComparison,
	IntentAnomaly,
	IntentAttribution,
	IntentPrediction,
}

type TrendDirection string

const (
	TrendUp   TrendDirection = "up"
	TrendDown TrendDirection = "down"
	TrendFlat TrendDirection = "flat"
)

// Trend describes the movement attached to a metric, e.g. "up 12.5% year-over-year".
type Trend struct {
	Direction TrendDirection `json:"direction,omitempty"`
	Magnitude float64        `json:"magnitude,omitempty"`
	Qualifier string         `json:"qualifier,omitempty"`
}

// IsEmpty reports whether the trend carries no information at all.
func (t Trend) IsEmpty() bool {
	return t.Direction == "" && t.Magnitude == 0 && t.Qualifier == ""
}

// MetricResult is one computed indicator of an answer. Value is a number or a
// preformatted string.
type MetricResult struct {
	Label string      `json:"label"`
	Value interface{} `json:"value"`
	Trend *Trend      `json:"trend,omitempty"`
}

// HasTrend reports whether the result carries a non-empty trend descriptor.
func (m MetricResult) HasTrend() bool {
	return m.Trend != nil && !m.Trend.IsEmpty()
}

type TimeGranularity string

const (
	GranularityNone    TimeGranularity = ""
	GranularityYear    TimeGranularity = "year"
	GranularityQuarter TimeGranularity = "quarter"
	GranularityMonth   TimeGranularity = "month"
	GranularityDay     TimeGranularity = "day"
)

var granularityRank = map[TimeGranularity]int{
	GranularityYear:    1,
	GranularityQuarter: 2,
	GranularityMonth:   3,
	GranularityDay:     4,
}

// Valid reports whether g is empty or one of the known granularities.
func (g TimeGranularity) Valid() bool {
	if g == GranularityNone {
		return true
	}
	_, ok := granularityRank[g]
	return ok
}

// Finer reports whether g resolves time more finely than other.
// An unset granularity is never finer than anything.
func (g TimeGranularity) Finer(other TimeGranularity) bool {
	rank, ok := granularityRank[g]
	if !ok {
		return false
	}
	return rank > granularityRank[other]
}

// Chart families emitted by the default rule table.
const (
	ChartFamilyLine = "line"
	ChartFamilyBar  = "bar"
	ChartFamilyPie  = "pie"
)

// VisualizationDescriptor is the chart the engine recommends.
type VisualizationDescriptor struct {
	ChartFamily  string `json:"chartFamily"`
	ChartVariant string `json:"chartVariant,omitempty"`
	Rationale    string `json:"rationale"`
}

// Same reports whether both descriptors name the same family and variant.
func (v VisualizationDescriptor) Same(family, variant string) bool {
	return v.ChartFamily == family && v.ChartVariant == variant
}

// MatchRule is one declarative entry of the chart rule table. Nil flags and an
// empty granularity mean "not constrained".
type MatchRule struct {
	ID                        string                  `json:"id"`
	QuestionKeywords          []string                `json:"questionKeywords,omitempty"`
	QuestionIntents           []Intent                `json:"questionIntents,omitempty"`
	MetricLabelHints          []string                `json:"metricLabelHints,omitempty"`
	RequiresTrend             *bool                   `json:"requiresTrend,omitempty"`
	RequiresTimeDimension     *bool                   `json:"requiresTimeDimension,omitempty"`
	RequiresCategoryDimension *bool                   `json:"requiresCategoryDimension,omitempty"`
	TimeGranularity           TimeGranularity         `json:"timeGranularity,omitempty"`
	Recommendation            VisualizationDescriptor `json:"recommendation"`
	Priority                  int                     `json:"priority"`
}

// ValidationResult is the verdict on an externally chosen chart.
type ValidationResult struct {
	IsValid     bool                     `json:"isValid"`
	Confidence  float64                  `json:"confidence"`
	Rationale   string                   `json:"rationale"`
	Alternative *VisualizationDescriptor `json:"alternative,omitempty"`
}

// Dimension is the topical axis of a follow-up suggestion.
type Dimension string

const (
	DimensionTime       Dimension = "time"
	DimensionGeography  Dimension = "geography"
	DimensionChannel    Dimension = "channel"
	DimensionCausal     Dimension = "causal"
	DimensionPredictive Dimension = "predictive"
)

// Valid reports whether d is one of the closed set of dimensions.
func (d Dimension) Valid() bool {
	switch d {
	case DimensionTime, DimensionGeography, DimensionChannel, DimensionCausal, DimensionPredictive:
		return true
	}
	return false
}

// SuggestionCandidate is a follow-up question from the catalogue. Priority
// (1-10) is used for ranking only. Granularity is set on time candidates that
// break the answer down to a specific resolution.
type SuggestionCandidate struct {
	Label       string          `json:"label"`
	Query       string          `json:"query"`
	Dimension   Dimension       `json:"dimension"`
	Priority    int             `json:"priority"`
	Granularity TimeGranularity `json:"granularity,omitempty"`
}

// AnswerCoverage summarizes what the current answer already shows.
type AnswerCoverage struct {
	HasQuarterlyBreakdown  bool `json:"hasQuarterlyBreakdown"`
	HasPeriodComparison    bool `json:"hasPeriodComparison"`
	HasGeographicBreakdown bool `json:"hasGeographicBreakdown"`
	HasChannelBreakdown    bool `json:"hasChannelBreakdown"`
	HasTrendSeries         bool `json:"hasTrendSeries"`
}
