package recommendfollowups

import "query-insight-workers/internal/models"

type Input struct {
	AnswerID string                `json:"answerId"`
	Results  []models.MetricResult `json:"results"`
	// AttachedChart wins over the chart remembered for AnswerID.
	AttachedChart *models.VisualizationDescriptor `json:"attachedChart,omitempty"`
	// Coverage, when present, is used as-is instead of being derived.
	Coverage *models.AnswerCoverage `json:"coverage,omitempty"`
}

type Output struct {
	SuggestionSetID string                       `json:"suggestionSetId"`
	Coverage        models.AnswerCoverage        `json:"coverage"`
	Suggestions     []models.SuggestionCandidate `json:"suggestions"`
}
