package validatechart

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"query-insight-workers/internal/common/errors"
	"query-insight-workers/internal/common/logger"
	"query-insight-workers/internal/common/metrics"
	"query-insight-workers/internal/common/observability"
	"query-insight-workers/internal/common/validation"
	"query-insight-workers/internal/insight/chartmatch"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"go.opentelemetry.io/otel/attribute"
)

const TaskType = "validate-chart"

type Handler struct {
	config       *Config
	matcher      *chartmatch.Matcher
	schema       *validation.Schema
	obs          *observability.Observability
	errorHandler *errors.ErrorHandler
	send         errors.CommandSender
	logger       logger.Logger
}

type HandlerOptions struct {
	Config        *Config
	Matcher       *chartmatch.Matcher
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

	log = log.WithFields(map[string]interface{}{"taskType": TaskType})
	return &Handler{
		config:       cfg,
		matcher:      matcher,
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
	})

	ctx, cancel := context.WithTimeout(context.Background(), h.config.Timeout)
	defer cancel()
	ctx, span := h.obs.StartSpan(ctx, TaskType, attribute.Int64("job.key", job.Key))
	defer span.End()

	input, err := h.parseInput(job.Variables)
	if err == nil {
		var output *Output
		output, err = h.Execute(ctx, input)
		if err == nil {
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
			return
		}
	}

	stdErr := errors.Normalize(err)
	span.RecordError(stdErr)
	done(string(stdErr.Code))
	h.obs.RecordJobProcessed(ctx, TaskType, "failed")
	h.obs.RecordJobDuration(ctx, TaskType, time.Since(startTime), "failed")
	h.errorHandler.HandleJobError(context.Background(), client, job, stdErr)
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

// Execute judges the chosen chart. Disagreement is a normal outcome, not an
// error; only a missing chart family is rejected.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewTimeoutError(TaskType, err)
	}
	if strings.TrimSpace(input.ChosenFamily) == "" {
		return nil, errors.NewInputValidationFailedError("chosenFamily is required")
	}

	result := h.matcher.Validate(input.Question, input.Results, input.Intent, input.ChosenFamily, input.ChosenVariant)
	metrics.RecordChartValidation(result.IsValid)

	if !result.IsValid {
		h.logger.Info("chosen chart disagrees with recommendation", map[string]interface{}{
			"chosenFamily":  input.ChosenFamily,
			"chosenVariant": input.ChosenVariant,
			"alternative":   result.Alternative.ChartFamily,
		})
	}

	return &Output{Validation: result}, nil
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
