package followup

import (
	"errors"
	"fmt"
	"strings"

	"query-insight-workers/internal/models"
)

const (
	MinPriority = 1
	MaxPriority = 10
)

var ErrInvalidCatalogue = errors.New("invalid suggestion catalogue")

// DefaultCatalogue returns a fresh copy of the built-in follow-up catalogue.
func DefaultCatalogue() []models.SuggestionCandidate {
	return []models.SuggestionCandidate{
		{
			Label:       "按季度拆分",
			Query:       "按季度拆分销售额",
			Dimension:   models.DimensionTime,
			Priority:    7,
			Granularity: models.GranularityQuarter,
		},
		{
			Label:     "同比/环比对比",
			Query:     "销售额同比和环比变化如何",
			Dimension: models.DimensionTime,
			Priority:  8,
		},
		{
			Label:       "按月查看趋势",
			Query:       "按月查看销售额趋势",
			Dimension:   models.DimensionTime,
			Priority:    4,
			Granularity: models.GranularityMonth,
		},
		{
			Label:     "按地区分布",
			Query:     "各地区销售额分布如何",
			Dimension: models.DimensionGeography,
			Priority:  6,
		},
		{
			Label:     "按渠道分析",
			Query:     "各渠道销售额表现如何",
			Dimension: models.DimensionChannel,
			Priority:  5,
		},
		{
			Label:     "增长原因分析",
			Query:     "销售额增长的主要原因是什么",
			Dimension: models.DimensionCausal,
			Priority:  9,
		},
		{
			Label:     "未来趋势预测",
			Query:     "预测下个季度的销售额",
			Dimension: models.DimensionPredictive,
			Priority:  8,
		},
	}
}

// ValidateCatalogue checks that every candidate is usable by the filter.
func ValidateCatalogue(catalogue []models.SuggestionCandidate) error {
	for i, c := range catalogue {
		if strings.TrimSpace(c.Label) == "" {
			return fmt.Errorf("%w: candidate %d has no label", ErrInvalidCatalogue, i)
		}
		if !c.Dimension.Valid() {
			return fmt.Errorf("%w: candidate %q has unknown dimension %q", ErrInvalidCatalogue, c.Label, c.Dimension)
		}
		if c.Priority < MinPriority || c.Priority > MaxPriority {
			return fmt.Errorf("%w: candidate %q priority %d outside %d-%d", ErrInvalidCatalogue, c.Label, c.Priority, MinPriority, MaxPriority)
		}
		if !c.Granularity.Valid() {
			return fmt.Errorf("%w: candidate %q has unknown granularity %q", ErrInvalidCatalogue, c.Label, c.Granularity)
		}
	}
	return nil
}
