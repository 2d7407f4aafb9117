package chartmatch

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"query-insight-workers/internal/models"
)

const (
	keywordWeight     = 2
	intentWeight      = 3
	labelHintWeight   = 2
	flagWeight        = 1
	granularityWeight = 2

	confidenceAgree    = 0.9
	confidenceDisagree = 0.3
)

var ErrInvalidRuleTable = errors.New("invalid chart rule table")

// DefaultDescriptor is returned when no rule survives filtering.
var DefaultDescriptor = models.VisualizationDescriptor{
	ChartFamily: models.ChartFamilyLine,
	Rationale:   "no rule matched; defaulting to trend line",
}

// RuleScore is one surviving rule and how it scored.
type RuleScore struct {
	RuleID          string                         `json:"ruleId"`
	Index           int                            `json:"index"`
	Score           int                            `json:"score"`
	MatchedKeywords []string                       `json:"matchedKeywords,omitempty"`
	Recommendation  models.VisualizationDescriptor `json:"recommendation"`
}

// Matcher scores a fixed rule table. It is immutable after construction and
// safe for concurrent use.
type Matcher struct {
	rules []compiledRule
}

type compiledRule struct {
	rule     models.MatchRule
	keywords []string
	hints    []string
	intents  map[models.Intent]struct{}
}

// NewMatcher validates the rule table and takes a private copy of it.
func NewMatcher(rules []models.MatchRule) (*Matcher, error) {
	if len(rules) == 0 {
		return nil, fmt.Errorf("%w: no rules", ErrInvalidRuleTable)
	}

	seen := make(map[string]struct{}, len(rules))
	compiled := make([]compiledRule, 0, len(rules))
	for i, r := range rules {
		if r.ID == "" {
			return nil, fmt.Errorf("%w: rule %d has no id", ErrInvalidRuleTable, i)
		}
		if _, dup := seen[r.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate rule id %q", ErrInvalidRuleTable, r.ID)
		}
		seen[r.ID] = struct{}{}

		if strings.TrimSpace(r.Recommendation.ChartFamily) == "" {
			return nil, fmt.Errorf("%w: rule %q has no chart family", ErrInvalidRuleTable, r.ID)
		}
		if !r.TimeGranularity.Valid() {
			return nil, fmt.Errorf("%w: rule %q has unknown granularity %q", ErrInvalidRuleTable, r.ID, r.TimeGranularity)
		}

		compiled = append(compiled, compile(r))
	}

	return &Matcher{rules: compiled}, nil
}

// Default returns a matcher over the built-in rule table.
func Default() *Matcher {
	m, err := NewMatcher(DefaultRules())
	if err != nil {
		panic(fmt.Sprintf("built-in chart rules: %v", err))
	}
	return m
}

func compile(r models.MatchRule) compiledRule {
	c := compiledRule{
		rule:     cloneRule(r),
		keywords: lowerAll(r.QuestionKeywords),
		hints:    lowerAll(r.MetricLabelHints),
	}
	if len(r.QuestionIntents) > 0 {
		c.intents = make(map[models.Intent]struct{}, len(r.QuestionIntents))
		for _, in := range r.QuestionIntents {
			c.intents[in] = struct{}{}
		}
	}
	return c
}

func cloneRule(r models.MatchRule) models.MatchRule {
	out := r
	out.QuestionKeywords = append([]string(nil), r.QuestionKeywords...)
	out.QuestionIntents = append([]models.Intent(nil), r.QuestionIntents...)
	out.MetricLabelHints = append([]string(nil), r.MetricLabelHints...)
	out.RequiresTrend = cloneFlag(r.RequiresTrend)
	out.RequiresTimeDimension = cloneFlag(r.RequiresTimeDimension)
	out.RequiresCategoryDimension = cloneFlag(r.RequiresCategoryDimension)
	return out
}

func cloneFlag(b *bool) *bool {
	if b == nil {
		return nil
	}
	return flag(*b)
}

func lowerAll(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, strings.ToLower(v))
	}
	return out
}

// Rules returns a copy of the rule table in declaration order.
func (m *Matcher) Rules() []models.MatchRule {
	out := make([]models.MatchRule, 0, len(m.rules))
	for _, c := range m.rules {
		out = append(out, cloneRule(c.rule))
	}
	return out
}

// Match returns the best visualization for the question, results and intent.
func (m *Matcher) Match(question string, results []models.MetricResult, intent models.Intent) models.VisualizationDescriptor {
	f := ExtractFeatures(question, results)

	best := -1
	bestScore := 0
	for i := range m.rules {
		score, ok, _ := m.rules[i].score(f, intent)
		if !ok {
			continue
		}
		if best < 0 || score > bestScore {
			best, bestScore = i, score
		}
	}

	if best < 0 {
		return DefaultDescriptor
	}
	return m.rules[best].rule.Recommendation
}

// Explain returns every surviving rule ranked by score, ties in declaration
// order. The head of the ranking is what Match returns.
func (m *Matcher) Explain(question string, results []models.MetricResult, intent models.Intent) []RuleScore {
	f := ExtractFeatures(question, results)

	out := make([]RuleScore, 0, len(m.rules))
	for i := range m.rules {
		score, ok, matched := m.rules[i].score(f, intent)
		if !ok {
			continue
		}
		out = append(out, RuleScore{
			RuleID:          m.rules[i].rule.ID,
			Index:           i,
			Score:           score,
			MatchedKeywords: matched,
			Recommendation:  m.rules[i].rule.Recommendation,
		})
	}

	sort.SliceStable(out, func(a, b int) bool {
		return out[a].Score > out[b].Score
	})
	return out
}

// Validate checks an externally chosen chart against the recommendation for
// the same inputs. Disagreement is a normal result, not an error.
func (m *Matcher) Validate(question string, results []models.MetricResult, intent models.Intent, chosenFamily, chosenVariant string) models.ValidationResult {
	rec := m.Match(question, results, intent)

	if rec.Same(chosenFamily, chosenVariant) {
		return models.ValidationResult{
			IsValid:    true,
			Confidence: confidenceAgree,
			Rationale:  rec.Rationale,
		}
	}

	alt := rec
	return models.ValidationResult{
		IsValid:    false,
		Confidence: confidenceDisagree,
		Rationale: fmt.Sprintf("chosen %s does not match recommended %s: %s",
			describe(chosenFamily, chosenVariant), describe(rec.ChartFamily, rec.ChartVariant), rec.Rationale),
		Alternative: &alt,
	}
}

func describe(family, variant string) string {
	if variant == "" {
		return family
	}
	return family + "/" + variant
}

// score applies the hard filters in order and accumulates the rule score.
// ok is false when any filter rejects the rule.
func (c *compiledRule) score(f Features, intent models.Intent) (score int, ok bool, matched []string) {
	r := &c.rule

	if len(c.keywords) > 0 {
		for i, kw := range c.keywords {
			if strings.Contains(f.Question, kw) {
				matched = append(matched, r.QuestionKeywords[i])
			}
		}
		if len(matched) == 0 {
			return 0, false, nil
		}
		score += keywordWeight * len(matched)
	}

	if c.intents != nil {
		if _, found := c.intents[intent]; !found {
			return 0, false, nil
		}
		score += intentWeight
	}

	if len(c.hints) > 0 {
		if !anyContainsAny(f.Labels, c.hints) {
			return 0, false, nil
		}
		score += labelHintWeight
	}

	if r.RequiresTrend != nil {
		if *r.RequiresTrend != f.HasTrend {
			return 0, false, nil
		}
		score += flagWeight
	}

	if r.RequiresTimeDimension != nil {
		if *r.RequiresTimeDimension != f.HasTimeDimension {
			return 0, false, nil
		}
		score += flagWeight
	}

	if r.RequiresCategoryDimension != nil {
		if *r.RequiresCategoryDimension != f.HasCategoryDimension {
			return 0, false, nil
		}
		score += flagWeight
	}

	if r.TimeGranularity != models.GranularityNone {
		if r.TimeGranularity != f.Granularity {
			return 0, false, nil
		}
		score += granularityWeight
	}

	return score + r.Priority, true, matched
}
