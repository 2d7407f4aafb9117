package recommendfollowups

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"time"

	"query-insight-workers/internal/common/database"
	"query-insight-workers/internal/common/errors"
	"query-insight-workers/internal/common/logger"
	"query-insight-workers/internal/common/metrics"
	"query-insight-workers/internal/common/observability"
	"query-insight-workers/internal/common/validation"
	"query-insight-workers/internal/insight/followup"
	"query-insight-workers/internal/models"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "recommend-followups"

// ChartLoader returns the chart remembered for an answer, or an error
// wrapping database.ErrAnswerNotFound.
type ChartLoader interface {
	LoadChart(ctx context.Context, answerID string) (*models.VisualizationDescriptor, error)
}

type Handler struct {
	config       *Config
	filter       *followup.Filter
	charts       ChartLoader
	schema       *validation.Schema
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	send         errors.CommandSender
	logger       logger.Logger
}

type HandlerOptions struct {
	Config *Config
	Filter *followup.Filter
	// Charts is optional; without it only the chart passed in the job counts.
	Charts        ChartLoader
	Observability *observability.Observability
	Logger        logger.Logger
	Sender        errors.CommandSender
	MaxRetries    int
}

func NewHandler(opts HandlerOptions) (*Handler, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = LoadConfig()
	}
	filter := opts.Filter
	if filter == nil {
		filter = followup.Default()
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

	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		filter:       filter,
		charts:       opts.Charts,
		schema:       schema,
		obs:          opts.Observability,
		errorHandler: errors.NewErrorHandler(log, errors.WithCommandSender(send), errors.WithMaxRetries(opts.MaxRetries)),
		send:         send,
		logger:       log,
	}, nil
}

func (h *Handler) Handle(client worker.JobClient, job entities.Job) {
	startTime := time.Now()
	done := metrics.JobStarted(TaskType)

	h.logger.Info("processing job", map[string]interface{}{
		"jobKey":      job.Key,
		"workflowKey": job.ProcessInstanceKey,
		"retries":     job.Retries,
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int64("job.key", job.Key))
	defer span.End()

	output, err := h.process(ctx, job.Variables)
	if err != nil {
		stdErr := errors.Normalize(err)
		span.RecordError(stdErr)
		done(string(stdErr.Code))
		h.obs.RecordJobProcessed(ctx, TaskType, "failed")
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "failed")
		h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
		return
	}

	span.SetAttributes(
		attribute.String("suggestion_set.id", output.SuggestionSetID),
		attribute.Int("suggestion_set.size", len(output.Suggestions)),
	)
	if err := h.completeJob(client, job, output); err != nil {
		span.RecordError(err)
		h.logger.Error("failed to complete job", map[string]interface{}{"jobKey": job.Key, "error": err})
		done(metrics.CompleteFailed)
		h.obs.RecordJobProcessed(ctx, TaskType, "failed")
		h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "failed")
		return
	}
	done("")
	h.obs.RecordJobProcessed(ctx, TaskType, "success")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "success")
}

func (h *Handler) process(ctx context.Context, variables string) (*Output, error) {
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
	return h.Execute(ctx, &input)
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTimeoutError(TaskType, err)
	}

	var coverage models.AnswerCoverage
	if input.Coverage != nil {
		coverage = *input.Coverage
	} else {
		attached, err := h.attachedChart(ctx, input)
		if err != nil {
			return nil, err
		}
		coverage = followup.DeriveCoverage(input.Results, attached)
	}

	suggestions := h.filter.Recommend(coverage)
	h.recordMetrics(coverage, suggestions)

	output := &Output{
		SuggestionSetID: uuid.NewString(),
		Coverage:        coverage,
		Suggestions:     suggestions,
	}

	h.logger.Info("follow-ups recommended", map[string]interface{}{
		"answerId":        input.AnswerID,
		"suggestionSetId": output.SuggestionSetID,
		"count":           len(suggestions),
	})
	return output, nil
}

// attachedChart prefers the chart passed in the job, then the one remembered
// for the answer. A forgotten answer is not an error.
func (h *Handler) attachedChart(ctx context.Context, input *Input) (*models.VisualizationDescriptor, error) {
	if input.AttachedChart != nil {
		return input.AttachedChart, nil
	}
	if input.AnswerID == "" || h.charts == nil {
		return nil, nil
	}

	chart, err := h.charts.LoadChart(ctx, input.AnswerID)
	switch {
	case err == nil:
		return chart, nil
	case stderrors.Is(err, database.ErrAnswerNotFound):
		h.logger.Debug("no chart remembered for answer", map[string]interface{}{"answerId": input.AnswerID})
		return nil, nil
	default:
		return nil, errors.NewAnswerCacheFailedError(input.AnswerID, err)
	}
}

func (h *Handler) recordMetrics(coverage models.AnswerCoverage, suggestions []models.SuggestionCandidate) {
	metrics.FollowupSuggestions.Observe(float64(len(suggestions)))
	for _, c := range h.filter.Catalogue() {
		if followup.Suppressed(coverage, c) {
			metrics.FollowupSuppressed.WithLabelValues(string(c.Dimension)).Inc()
		}
	}
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
