package followup

import (
	"sort"
	"strings"

	"query-insight-workers/internal/models"
)

// MaxSuggestions caps every suggestion list.
const MaxSuggestions = 4

// periodTokens mark a label as a period-over-period comparison.
var periodTokens = []string{"同比", "环比", "period-over-period", "year-over-year", "month-over-month", "yoy", "mom"}

// Filter ranks a fixed catalogue against answer coverage. It is immutable
// after construction and safe for concurrent use.
type Filter struct {
	catalogue []models.SuggestionCandidate
}

// NewFilter validates the catalogue and takes a private copy of it.
func NewFilter(catalogue []models.SuggestionCandidate) (*Filter, error) {
	if err := ValidateCatalogue(catalogue); err != nil {
		return nil, err
	}
	return &Filter{catalogue: append([]models.SuggestionCandidate(nil), catalogue...)}, nil
}

// Default returns a filter over the built-in catalogue.
func Default() *Filter {
	f, err := NewFilter(DefaultCatalogue())
	if err != nil {
		panic("built-in follow-up catalogue: " + err.Error())
	}
	return f
}

// Catalogue returns a copy of the catalogue in declaration order.
func (f *Filter) Catalogue() []models.SuggestionCandidate {
	return append([]models.SuggestionCandidate(nil), f.catalogue...)
}

// Recommend returns at most MaxSuggestions candidates not already covered by
// the answer, highest priority first.
func (f *Filter) Recommend(coverage models.AnswerCoverage) []models.SuggestionCandidate {
	return Recommend(coverage, f.catalogue)
}

// Recommend is the stateless form of Filter.Recommend. The catalogue is not
// modified. The result is never nil.
func Recommend(coverage models.AnswerCoverage, catalogue []models.SuggestionCandidate) []models.SuggestionCandidate {
	survivors := make([]models.SuggestionCandidate, 0, len(catalogue))
	for _, c := range catalogue {
		if Suppressed(coverage, c) {
			continue
		}
		survivors = append(survivors, c)
	}

	sort.SliceStable(survivors, func(i, j int) bool {
		return survivors[i].Priority > survivors[j].Priority
	})

	if len(survivors) > MaxSuggestions {
		survivors = survivors[:MaxSuggestions]
	}
	return survivors
}

// Suppressed reports whether the answer already covers what the candidate
// would show. Causal and predictive candidates are never suppressed.
func Suppressed(coverage models.AnswerCoverage, c models.SuggestionCandidate) bool {
	switch c.Dimension {
	case models.DimensionCausal, models.DimensionPredictive:
		return false
	case models.DimensionGeography:
		if coverage.HasGeographicBreakdown {
			return true
		}
	case models.DimensionChannel:
		if coverage.HasChannelBreakdown {
			return true
		}
	case models.DimensionTime:
		if coverage.HasQuarterlyBreakdown && !c.Granularity.Finer(models.GranularityQuarter) {
			return true
		}
	}

	return coverage.HasPeriodComparison && IsPeriodComparison(c.Label)
}

// IsPeriodComparison reports whether a label denotes a period-over-period
// comparison.
func IsPeriodComparison(label string) bool {
	return containsAny(strings.ToLower(label), periodTokens)
}
