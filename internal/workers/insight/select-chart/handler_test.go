package selectchart

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"query-insight-workers/internal/common/camunda/camundatest"
	"query-insight-workers/internal/common/database"
	apperrors "query-insight-workers/internal/common/errors"
	"query-insight-workers/internal/common/logger"
	"query-insight-workers/internal/common/metrics"
	"query-insight-workers/internal/models"
	"query-insight-workers/pkg/registry"

	"github.com/alicebob/miniredis/v2"
	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/pb"
	"github.com/go-redis/redismock/v9"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Test Helper Functions
// ==========================

func createTestConfig(t *testing.T) *Config {
	reg, err := registry.LoadRegistry(filepath.Join("..", "..", "..", "..", "configs", "activity-registry.json"))
	require.NoError(t, err)
	activity, err := reg.Find(TaskType)
	require.NoError(t, err)

	return &Config{
		Timeout:     activity.TimeoutDuration(time.Second),
		InputSchema: activity.InputSchema,
	}
}

func setupMiniredis(t *testing.T) (*miniredis.Miniredis, *database.AnswerStore) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return mr, database.NewAnswerStore(client, time.Hour)
}

func newTestHandler(t *testing.T, store ChartStore) *Handler {
	h, err := NewHandler(HandlerOptions{
		Config: createTestConfig(t),
		Store:  store,
		Logger: logger.NewTestLogger(t),
	})
	require.NoError(t, err)
	return h
}

func yearlyKPIInput() *Input {
	return &Input{
		AnswerID: "answer-1",
		Question: "今年销售额是多少",
		Intent:   models.IntentSingleMetric,
		Results: []models.MetricResult{
			{Label: "2024年度销售额", Value: 12800000, Trend: &models.Trend{Direction: models.TrendUp, Magnitude: 12.5, Qualifier: "同比"}},
		},
	}
}

// ==========================
// Execute
// ==========================

func TestExecute_SelectsAndStoresChart(t *testing.T) {
	mr, store := setupMiniredis(t)
	h := newTestHandler(t, store)

	out, err := h.Execute(context.Background(), yearlyKPIInput())
	require.NoError(t, err)

	assert.Equal(t, models.ChartFamilyLine, out.Visualization.ChartFamily)
	assert.Equal(t, "year-comparison", out.Visualization.ChartVariant)
	assert.NotEmpty(t, out.Visualization.Rationale)

	raw, err := mr.Get(database.AnswerChartKey("answer-1"))
	require.NoError(t, err)
	var stored models.VisualizationDescriptor
	require.NoError(t, json.Unmarshal([]byte(raw), &stored))
	assert.Equal(t, out.Visualization, stored)
	assert.True(t, mr.TTL(database.AnswerChartKey("answer-1")) > 0)
}

func TestExecute_ScenarioCharts(t *testing.T) {
	tests := []struct {
		name        string
		input       *Input
		wantFamily  string
		wantVariant string
	}{
		{
			name: "quarterly breakdown",
			input: &Input{
				Question: "今年各季度销售额",
				Intent:   models.IntentMultiMetric,
				Results: []models.MetricResult{
					{Label: "Q1", Value: 300}, {Label: "Q2", Value: 320},
					{Label: "Q3", Value: 310}, {Label: "Q4", Value: 400},
				},
			},
			wantFamily:  models.ChartFamilyBar,
			wantVariant: "grouped",
		},
		{
			name: "ranking",
			input: &Input{
				Question: "销售额排名前十的城市",
				Intent:   models.IntentRanking,
				Results:  []models.MetricResult{{Label: "上海", Value: 10}, {Label: "北京", Value: 8}},
			},
			wantFamily:  models.ChartFamilyBar,
			wantVariant: "horizontal",
		},
		{
			name:        "nothing matches",
			input:       &Input{Question: "hello", Intent: "chit_chat"},
			wantFamily:  models.ChartFamilyLine,
			wantVariant: "",
		},
	}

	h := newTestHandler(t, nil)
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := h.Execute(context.Background(), tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFamily, out.Visualization.ChartFamily)
			assert.Equal(t, tt.wantVariant, out.Visualization.ChartVariant)
		})
	}
}

func TestExecute_WithoutAnswerIDSkipsStore(t *testing.T) {
	mr, store := setupMiniredis(t)
	h := newTestHandler(t, store)

	input := yearlyKPIInput()
	input.AnswerID = ""
	_, err := h.Execute(context.Background(), input)
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())
}

func TestExecute_StoreFailureDoesNotFailJob(t *testing.T) {
	client, mock := redismock.NewClientMock()
	mock.Regexp().ExpectSet(database.AnswerChartKey("answer-1"), `.*`, time.Hour).SetErr(errors.New("connection refused"))

	h := newTestHandler(t, database.NewAnswerStore(client, time.Hour))

	out, err := h.Execute(context.Background(), yearlyKPIInput())
	require.NoError(t, err)
	assert.Equal(t, models.ChartFamilyLine, out.Visualization.ChartFamily)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_ContextExpired(t *testing.T) {
	h := newTestHandler(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.Execute(ctx, yearlyKPIInput())
	require.Error(t, err)
	stdErr, ok := apperrors.AsStandardError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeTimeout, stdErr.Code)
}

// ==========================
// Input parsing
// ==========================

func TestParseInput(t *testing.T) {
	h := newTestHandler(t, nil)

	tests := []struct {
		name      string
		variables string
		wantCode  apperrors.ErrorCode
	}{
		{"malformed json", `{"question":`, apperrors.ErrCodeInputParseFailed},
		{"missing intent", `{"question":"今年销售额"}`, apperrors.ErrCodeInputValidationFailed},
		{"wrong results type", `{"question":"q","intent":"trend","results":"none"}`, apperrors.ErrCodeInputValidationFailed},
		{"bad trend direction", `{"question":"q","intent":"trend","results":[{"label":"x","trend":{"direction":"sideways"}}]}`, apperrors.ErrCodeInputValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.parseInput(tt.variables)
			require.Error(t, err)
			stdErr, ok := apperrors.AsStandardError(err)
			require.True(t, ok)
			assert.Equal(t, tt.wantCode, stdErr.Code)
			assert.False(t, stdErr.Retryable)
		})
	}

	t.Run("valid with extra process variables", func(t *testing.T) {
		input, err := h.parseInput(`{"answerId":"a1","question":"q","intent":"trend","results":null,"requestId":"r-9"}`)
		require.NoError(t, err)
		assert.Equal(t, "a1", input.AnswerID)
		assert.Equal(t, models.IntentTrend, input.Intent)
		assert.Nil(t, input.Results)
	})
}

func TestRun(t *testing.T) {
	_, store := setupMiniredis(t)
	h := newTestHandler(t, store)

	out, err := h.run(context.Background(), `{"answerId":"a2","question":"近三个月销售额走势","intent":"trend","results":[{"label":"1月","value":10},{"label":"2月","value":12},{"label":"3月","value":15}]}`)
	require.NoError(t, err)
	assert.Equal(t, models.ChartFamilyLine, out.Visualization.ChartFamily)
}

func TestNewHandler(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		h, err := NewHandler(HandlerOptions{})
		require.NoError(t, err)
		assert.Equal(t, 5*time.Second, h.config.Timeout)
		assert.NotNil(t, h.matcher)
		assert.NotNil(t, h.send)
		assert.Nil(t, h.schema)
	})

	t.Run("invalid schema", func(t *testing.T) {
		_, err := NewHandler(HandlerOptions{Config: &Config{Timeout: time.Second, InputSchema: json.RawMessage(`{"type": 5}`)}})
		require.Error(t, err)
		assert.Contains(t, err.Error(), TaskType)
	})
}

// ==========================
// Job reporting
// ==========================

func testJob(variables string) entities.Job {
	return entities.Job{ActivatedJob: &pb.ActivatedJob{Key: 5, Type: TaskType, Retries: 3, Variables: variables}}
}

const yearlyKPIVariables = `{"answerId": "answer-1", "question": "今年销售额是多少", "intent": "single_metric",
	"results": [{"label": "2024年度销售额", "value": 12800000, "trend": {"direction": "up", "magnitude": 12.5, "qualifier": "同比"}}]}`

func TestHandle_CompletesAndRemembersChart(t *testing.T) {
	mr, store := setupMiniredis(t)
	client := camundatest.NewJobClient()

	newTestHandler(t, store).Handle(client, testJob(yearlyKPIVariables))

	require.Len(t, client.Completes(), 1)
	assert.Contains(t, client.Completes()[0].Variables, `"visualization"`)
	assert.True(t, mr.Exists(database.AnswerChartKey("answer-1")))
}

func TestHandle_CompletionRetriedThroughSender(t *testing.T) {
	var operations []string
	retryOnce := func(ctx context.Context, operation string, send func(context.Context) error) error {
		operations = append(operations, operation)
		if err := send(ctx); err != nil {
			return send(ctx)
		}
		return nil
	}
	h, err := NewHandler(HandlerOptions{Config: createTestConfig(t), Sender: retryOnce})
	require.NoError(t, err)

	client := camundatest.NewJobClient()
	client.FailCompletes(errors.New("unavailable"))
	completed := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType))

	h.Handle(client, testJob(yearlyKPIVariables))

	assert.Equal(t, []string{"complete job"}, operations)
	assert.Len(t, client.Completes(), 2)
	assert.Equal(t, completed+1, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType)))
}

func TestHandle_UndeliveredCompletionIsAFailure(t *testing.T) {
	client := camundatest.NewJobClient()
	client.FailCompletes(errors.New("unavailable"))
	completed := testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType))
	failed := testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, metrics.CompleteFailed))

	newTestHandler(t, nil).Handle(client, testJob(yearlyKPIVariables))

	assert.Equal(t, completed, testutil.ToFloat64(metrics.WorkerJobsCompleted.WithLabelValues(TaskType)))
	assert.Equal(t, failed+1, testutil.ToFloat64(metrics.WorkerJobsFailed.WithLabelValues(TaskType, metrics.CompleteFailed)))
}

func TestHandle_TimeoutRetriesAreCapped(t *testing.T) {
	cfg := createTestConfig(t)
	cfg.Timeout = time.Nanosecond
	h, err := NewHandler(HandlerOptions{Config: cfg, MaxRetries: 1})
	require.NoError(t, err)

	client := camundatest.NewJobClient()
	h.Handle(client, testJob(yearlyKPIVariables))

	assert.Empty(t, client.Completes())
	require.Len(t, client.Fails(), 1)
	assert.Equal(t, int32(1), client.Fails()[0].Retries)
	assert.Contains(t, client.Fails()[0].Variables, "TIMEOUT_ERROR")
}

func BenchmarkExecute(b *testing.B) {
	h, err := NewHandler(HandlerOptions{})
	require.NoError(b, err)
	input := yearlyKPIInput()
	input.AnswerID = ""

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = h.Execute(context.Background(), input)
	}
}
