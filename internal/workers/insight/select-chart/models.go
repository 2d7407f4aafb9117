package selectchart

import "query-insight-workers/internal/models"

type Input struct {
	AnswerID string                `json:"answerId"`
	Question string                `json:"question"`
	Intent   models.Intent         `json:"intent"`
	Results  []models.MetricResult `json:"results"`
}

type Output struct {
	Visualization models.VisualizationDescriptor `json:"visualization"`
}
