package main

import (
	"context"
	"fmt"
	"time"

	"query-insight-workers/internal/common/camunda"
	"query-insight-workers/internal/common/config"
	"query-insight-workers/internal/common/database"
	apperrors "query-insight-workers/internal/common/errors"
	"query-insight-workers/internal/common/logger"
	"query-insight-workers/internal/common/observability"
	"query-insight-workers/internal/insight/chartmatch"
	"query-insight-workers/internal/insight/followup"
	"query-insight-workers/pkg/registry"

	rf "query-insight-workers/internal/workers/insight/recommend-followups"
	sc "query-insight-workers/internal/workers/insight/select-chart"
	vc "query-insight-workers/internal/workers/insight/validate-chart"

	"github.com/google/uuid"
)

// dependencies is everything the insight handlers share.
type dependencies struct {
	registry *registry.ActivityRegistry
	matcher  *chartmatch.Matcher
	filter   *followup.Filter
	answers  *database.AnswerStore
	obs      *observability.Observability
	log      logger.Logger
}

func buildDependencies(ctx context.Context, cfg *config.Config, pg *database.PostgresClient, redis *database.RedisClient, obs *observability.Observability, log logger.Logger) (*dependencies, error) {
	reg, err := registry.LoadRegistry(cfg.Insight.RegistryPath)
	if err != nil {
		return nil, fmt.Errorf("load activity registry: %w", err)
	}
	if err := reg.Validate(); err != nil {
		return nil, fmt.Errorf("activity registry: %w", err)
	}

	matcher, err := loadMatcher(cfg.Insight.RulesPath)
	if err != nil {
		return nil, err
	}

	filter, err := loadFilter(ctx, cfg.Insight.CatalogueSource, pg)
	if err != nil {
		return nil, err
	}

	log.Info("insight engine ready", map[string]interface{}{
		"rules":           len(matcher.Rules()),
		"catalogue":       len(filter.Catalogue()),
		"catalogueSource": cfg.Insight.CatalogueSource,
	})

	return &dependencies{
		registry: reg,
		matcher:  matcher,
		filter:   filter,
		answers:  database.NewAnswerStore(redis.GetClient(), config.GetDuration(cfg.Insight.AnswerCacheTTL)),
		obs:      obs,
		log:      log,
	}, nil
}

// loadMatcher uses the rule file when one is configured, the built-in table
// otherwise.
func loadMatcher(rulesPath string) (*chartmatch.Matcher, error) {
	if rulesPath == "" {
		return chartmatch.Default(), nil
	}
	rules, err := chartmatch.LoadRulesFile(rulesPath)
	if err != nil {
		return nil, apperrors.NewRuleTableInvalidError(err)
	}
	matcher, err := chartmatch.NewMatcher(rules)
	if err != nil {
		return nil, apperrors.NewRuleTableInvalidError(err)
	}
	return matcher, nil
}

func loadFilter(ctx context.Context, source string, pg *database.PostgresClient) (*followup.Filter, error) {
	if source != config.CatalogueSourcePostgres {
		return followup.Default(), nil
	}
	if pg == nil {
		return nil, apperrors.NewCatalogueLoadFailedError(fmt.Errorf("postgres catalogue configured without a connection"))
	}

	catalogue, err := database.LoadSuggestionCatalogue(ctx, pg.GetDB())
	if err != nil {
		return nil, apperrors.NewCatalogueLoadFailedError(err)
	}
	filter, err := followup.NewFilter(catalogue)
	if err != nil {
		return nil, apperrors.NewCatalogueLoadFailedError(err)
	}
	return filter, nil
}

// buildHandlers creates one handler per insight task type. The registry
// supplies each input schema, handler timeout and retry cap; the worker
// config is the fallback. Job commands go through send.
func buildHandlers(cfg *config.Config, deps *dependencies, send apperrors.CommandSender) (map[string]camunda.JobHandler, error) {
	activity := func(taskType string) (*registry.Activity, error) {
		a, err := deps.registry.Find(taskType)
		if err != nil {
			return nil, fmt.Errorf("activity registry: %w", err)
		}
		return a, nil
	}
	timeout := func(a *registry.Activity) time.Duration {
		return a.TimeoutDuration(config.GetDuration(config.GetWorkerConfig(cfg, a.TaskType).Timeout))
	}
	maxRetries := func(a *registry.Activity) int {
		return a.RetryLimit(config.GetWorkerConfig(cfg, a.TaskType).MaxRetries)
	}

	handlers := make(map[string]camunda.JobHandler)

	a, err := activity(sc.TaskType)
	if err != nil {
		return nil, err
	}
	selectChart, err := sc.NewHandler(sc.HandlerOptions{
		Config:        &sc.Config{Timeout: timeout(a), InputSchema: a.InputSchema},
		Matcher:       deps.matcher,
		Store:         deps.answers,
		Observability: deps.obs,
		Logger:        deps.log,
		Sender:        send,
		MaxRetries:    maxRetries(a),
	})
	if err != nil {
		return nil, err
	}
	handlers[sc.TaskType] = selectChart

	a, err = activity(vc.TaskType)
	if err != nil {
		return nil, err
	}
	validateChart, err := vc.NewHandler(vc.HandlerOptions{
		Config:        &vc.Config{Timeout: timeout(a), InputSchema: a.InputSchema},
		Matcher:       deps.matcher,
		Observability: deps.obs,
		Logger:        deps.log,
		Sender:        send,
		MaxRetries:    maxRetries(a),
	})
	if err != nil {
		return nil, err
	}
	handlers[vc.TaskType] = validateChart

	a, err = activity(rf.TaskType)
	if err != nil {
		return nil, err
	}
	recommend, err := rf.NewHandler(rf.HandlerOptions{
		Config:        &rf.Config{Timeout: timeout(a), InputSchema: a.InputSchema},
		Filter:        deps.filter,
		Charts:        deps.answers,
		Observability: deps.obs,
		Logger:        deps.log,
		Sender:        send,
		MaxRetries:    maxRetries(a),
	})
	if err != nil {
		return nil, err
	}
	handlers[rf.TaskType] = recommend

	return handlers, nil
}

func startWorkers(zeebe *camunda.Client, cfg *config.Config, deps *dependencies, log logger.Logger) ([]*camunda.CamundaWorker, error) {
	handlers, err := buildHandlers(cfg, deps, zeebe.CommandSender())
	if err != nil {
		return nil, err
	}

	instance := fmt.Sprintf("%s-%s", cfg.App.Name, uuid.NewString()[:8])

	var workers []*camunda.CamundaWorker
	for _, taskType := range []string{sc.TaskType, vc.TaskType, rf.TaskType} {
		if !config.IsWorkerEnabled(cfg, taskType) {
			log.Info("worker disabled", map[string]interface{}{"taskType": taskType})
			continue
		}
		wcfg := config.GetWorkerConfig(cfg, taskType)
		workers = append(workers, camunda.NewWorker(zeebe.GetClient(), camunda.WorkerOptions{
			TaskType:      taskType,
			WorkerName:    instance,
			MaxJobsActive: wcfg.MaxJobsActive,
			Timeout:       config.GetDuration(cfg.Camunda.Timeout),
		}, handlers[taskType], log))
	}
	return workers, nil
}
