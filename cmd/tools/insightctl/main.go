// cmd/tools/insightctl/main.go
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"query-insight-workers/internal/insight/chartmatch"
	"query-insight-workers/internal/insight/followup"
	"query-insight-workers/internal/models"
)

var errUsage = errors.New("usage")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if !errors.Is(err, errUsage) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		help(out)
		return errUsage
	}

	switch args[0] {
	case "match":
		return runMatch(args[1:], out, false)
	case "explain":
		return runMatch(args[1:], out, true)
	case "validate":
		return runValidate(args[1:], out)
	case "recommend":
		return runRecommend(args[1:], out)
	case "registry":
		return runRegistry(args[1:], out)
	case "help", "-h", "--help":
		help(out)
		return nil
	default:
		help(out)
		return errUsage
	}
}

// chartFlags are shared by match, explain and validate.
type chartFlags struct {
	question *string
	intent   *string
	results  *string
	rules    *string
}

func addChartFlags(fs *flag.FlagSet) chartFlags {
	return chartFlags{
		question: fs.String("question", "", "Question text"),
		intent:   fs.String("intent", "", "Classified intent (e.g. single_metric, trend)"),
		results:  fs.String("results", "", "Metric results as JSON, or @file"),
		rules:    fs.String("rules", "", "Rule table file replacing the built-in rules"),
	}
}

func (c chartFlags) matcher() (*chartmatch.Matcher, error) {
	if *c.rules == "" {
		return chartmatch.Default(), nil
	}
	rules, err := chartmatch.LoadRulesFile(*c.rules)
	if err != nil {
		return nil, err
	}
	return chartmatch.NewMatcher(rules)
}

func runMatch(args []string, out io.Writer, explain bool) error {
	fs := flag.NewFlagSet("match", flag.ContinueOnError)
	fs.SetOutput(out)
	cf := addChartFlags(fs)
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	m, err := cf.matcher()
	if err != nil {
		return err
	}
	results, err := parseResults(*cf.results)
	if err != nil {
		return err
	}

	if explain {
		return writeJSON(out, m.Explain(*cf.question, results, models.Intent(*cf.intent)))
	}
	return writeJSON(out, m.Match(*cf.question, results, models.Intent(*cf.intent)))
}

func runValidate(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("validate", flag.ContinueOnError)
	fs.SetOutput(out)
	cf := addChartFlags(fs)
	family := fs.String("family", "", "Chosen chart family")
	variant := fs.String("variant", "", "Chosen chart variant")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}
	if *family == "" {
		fmt.Fprintln(out, "Error: -family is required for validate.")
		fs.Usage()
		return errUsage
	}

	m, err := cf.matcher()
	if err != nil {
		return err
	}
	results, err := parseResults(*cf.results)
	if err != nil {
		return err
	}
	return writeJSON(out, m.Validate(*cf.question, results, models.Intent(*cf.intent), *family, *variant))
}

func runRecommend(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("recommend", flag.ContinueOnError)
	fs.SetOutput(out)
	results := fs.String("results", "", "Metric results as JSON, or @file")
	family := fs.String("family", "", "Family of the chart attached to the answer")
	variant := fs.String("variant", "", "Variant of the chart attached to the answer")
	catalogue := fs.String("catalogue", "", "Catalogue file (JSON array) replacing the built-in one")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	filter := followup.Default()
	if *catalogue != "" {
		var candidates []models.SuggestionCandidate
		if err := readJSON(*catalogue, &candidates); err != nil {
			return err
		}
		var err error
		if filter, err = followup.NewFilter(candidates); err != nil {
			return err
		}
	}

	parsed, err := parseResults(*results)
	if err != nil {
		return err
	}
	var attached *models.VisualizationDescriptor
	if *family != "" {
		attached = &models.VisualizationDescriptor{ChartFamily: *family, ChartVariant: *variant}
	}

	coverage := followup.DeriveCoverage(parsed, attached)
	return writeJSON(out, map[string]interface{}{
		"coverage":    coverage,
		"suggestions": filter.Recommend(coverage),
	})
}

// parseResults accepts inline JSON or @path.
func parseResults(value string) ([]models.MetricResult, error) {
	if value == "" {
		return nil, nil
	}
	var results []models.MetricResult
	if strings.HasPrefix(value, "@") {
		if err := readJSON(strings.TrimPrefix(value, "@"), &results); err != nil {
			return nil, err
		}
		return results, nil
	}
	if err := json.Unmarshal([]byte(value), &results); err != nil {
		return nil, fmt.Errorf("parse results: %w", err)
	}
	return results, nil
}

func readJSON(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func help(out io.Writer) {
	fmt.Fprint(out, `
Usage: insightctl <command> [flags]

Commands:
  match      Recommend a chart for a question
  explain    Show every rule that fired, best first
  validate   Check a chosen chart against the recommendation
  recommend  Suggest follow-up questions for an answer
  registry   Manage the activity registry (add, update, validate)
  help       Show this help message

Examples:
  insightctl match -question "今年销售额是多少" -intent single_metric -results '[{"label":"2024年度销售额","value":12800000,"trend":{"direction":"up","magnitude":12.5,"qualifier":"同比"}}]'
  insightctl validate -question "各渠道销售额占比" -intent composition -family bar
  insightctl recommend -results @answer.json -family line -variant year-comparison
  insightctl registry validate -path configs/activity-registry.json

Use 'insightctl <command> -h' for more information about a command.
`)
}
