package selectchart

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"query-insight-workers/internal/common/errors"
	"query-insight-workers/internal/common/logger"
	"query-insight-workers/internal/common/metrics"
	"query-insight-workers/internal/common/observability"
	"query-insight-workers/internal/common/validation"
	"query-insight-workers/internal/insight/chartmatch"
	"query-insight-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "select-chart"

// ChartStore remembers the chart chosen for an answer.
type ChartStore interface {
	SaveChart(ctx context.Context, answerID string, chart models.VisualizationDescriptor) error
}

type Handler struct {
	config       *Config
	matcher      *chartmatch.Matcher
	store        ChartStore
	schema       *validation.Schema
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	send         errors.CommandSender
	logger       logger.Logger
}

type HandlerOptions struct {
	Config  *Config
	Matcher *chartmatch.Matcher
	// Store is optional; without it charts are not remembered per answer.
	Store         ChartStore
	Observability *observability.Observability
	Logger        logger.Logger
	// Sender delivers job commands. Nil sends each command once.
	Sender errors.CommandSender
	// MaxRetries caps the retries of a failed job. Zero keeps the per-code
	// budget.
	MaxRetries int
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = LoadConfig()
	}
	matcher := opts.Matcher
	if matcher == nil {
		matcher = chartmatch.Default()
	}
	log := opts.Logger
	if log == nil {
		log = logger.NewNoOpLogger()
	}
	send := opts.Sender
	if send == nil {
		send = errors.SendOnce
	}

	schema, err := validation.Compile(cfg.InputSchema)
	if err != nil {
		return nil, fmt.Errorf("invalid input schema for %s: %w", TaskType, err)
	}

	scoped := log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		matcher:      matcher,
		store:        opts.Store,
		schema:       schema,
		obs:          opts.Observability,
		errorHandler: errors.NewErrorHandler(scoped, errors.WithCommandSender(send), errors.WithMaxRetries(opts.MaxRetries)),
		send:         send,
		logger:       scoped,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	done := metrics.JobStarted(TaskType)

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int64("job.key", job.Key))
	defer span.End()

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
	})

	output, err := h.run(ctx, job.Variables)
	if err != nil {
		stdErr := errors.Normalize(err)
		span.RecordError(stdErr)
		done(string(stdErr.Code))
		h.obs.RecordJobProcessed(ctx, TaskType, "failed")
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "failed")
		// The job context may already be expired; report on a fresh one.
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	if err := h.completeJob(client, job, output); err != nil {
		span.RecordError(err)
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err})
		done(metrics.CompleteFailed)
		h.obs.RecordJobProcessed(ctx, TaskType, "failed")
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "failed")
		return
	}

	h.logger.Info("job completed", map[string]interface{}{
		"jobKey":      job.Key,
		"chartFamily": output.Visualization.ChartFamily,
	})
	done("")
	h.obs.RecordJobProcessed(ctx, TaskType, "success")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "success")
}

func (h *Handler) run(ctx context.Context, variables string) (*Output, error) {
	input, err := h.parseInput(variables)
	if err != nil {
		return nil, err
	}
	return h.Execute(ctx, input)
}

func (h *Handler) parseInput(variables string) (*Input, error) {
	result, err := h.schema.ValidateJSON(variables)
	if err != nil {
		return nil, errors.NewInputParseFailedError(err)
	}
	if !result.Valid {
		return nil, errors.NewInputValidationFailedError(result.Summary())
	}

	var input Input
	if err := json.Unmarshal([]byte(variables), &input); err != nil {
		return nil, errors.NewInputParseFailedError(err)
	}
	return &input, nil
}

// Execute picks the chart for the answer and remembers it when an answer id
// is given. A failed save is logged and does not fail the job.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTimeoutError(TaskType, err)
	}

	chart := h.matcher.Match(input.Question, input.Results, input.Intent)
	metrics.RecordChartRecommendation(chart.ChartFamily, chart.ChartVariant)

	h.logger.Debug("chart selected", map[string]interface{}{
		"answerId":     input.AnswerID,
		"intent":       string(input.Intent),
		"chartFamily":  chart.ChartFamily,
		"chartVariant": chart.ChartVariant,
	})

	if input.AnswerID != "" && h.store != nil {
		if err := h.store.SaveChart(ctx, input.AnswerID, chart); err != nil {
			h.logger.Warn("failed to remember chart for answer", map[string]interface{}{
				"answerId": input.AnswerID,
				"error":    err,
			})
		}
	}

	return &Output{Visualization: chart}, nil
}

func (h *Handler) completeJob(client worker.JobClient, job entities.Job, output *Output) error {
	cmd, err := client.NewCompleteJobCommand().
		JobKey(job.Key).
		VariablesFromObject(output)
	if err != nil {
		return fmt.Errorf("create complete job command: %w", err)
	}
	return h.send(context.Background(), "complete job", func(ctx context.Context) error {
		_, err := cmd.Send(ctx)
		return err
	})
}
