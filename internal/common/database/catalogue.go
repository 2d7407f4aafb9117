package database

import (
	"context"
	"database/sql"
	"fmt"

	"query-insight-workers/internal/models"
)

const catalogueQuery = `
		SELECT label, query, dimension, priority, COALESCE(granularity, '')
		FROM followup_catalogue
		WHERE enabled = TRUE
		ORDER BY position, id`

// LoadSuggestionCatalogue reads the enabled follow-up candidates in catalogue
// order. Validation is left to followup.NewFilter.
func LoadSuggestionCatalogue(ctx context.Context, db *sql.DB) ([]models.SuggestionCandidate, error) {
	rows, err := db.QueryContext(ctx, catalogueQuery)
	if err != nil {
		return nil, fmt.Errorf("query followup_catalogue: %w", err)
	}
	defer rows.Close()

	catalogue := []models.SuggestionCandidate{}
	for rows.Next() {
		var (
			c           models.SuggestionCandidate
			dimension   string
			granularity string
		)
		if err := rows.Scan(&c.Label, &c.Query, &dimension, &c.Priority, &granularity); err != nil {
			return nil, fmt.Errorf("scan followup_catalogue row: %w", err)
		}
		c.Dimension = models.Dimension(dimension)
		c.Granularity = models.TimeGranularity(granularity)
		catalogue = append(catalogue, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate followup_catalogue: %w", err)
	}

	return catalogue, nil
}
