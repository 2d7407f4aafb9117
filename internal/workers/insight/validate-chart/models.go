package validatechart

import "query-insight-workers/internal/models"

type Input struct {
	Question      string                `json:"question"`
	Intent        models.Intent         `json:"intent"`
	Results       []models.MetricResult `json:"results"`
	ChosenFamily  string                `json:"chosenFamily"`
	ChosenVariant string                `json:"chosenVariant"`
}

type Output struct {
	Validation models.ValidationResult `json:"validation"`
}
