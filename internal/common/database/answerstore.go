package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"query-insight-workers/internal/models"

	"github.com/redis/go-redis/v9"
)

// ErrAnswerNotFound is returned when no chart is stored for an answer.
var ErrAnswerNotFound = errors.New("answer chart not found")

const answerKeyPrefix = "insight:answer:"

func AnswerChartKey(answerID string) string {
	return answerKeyPrefix + answerID + ":chart"
}

// AnswerStore keeps the chart chosen for each answer so later process steps
// can derive coverage from it.
type AnswerStore struct {
	client redis.Cmdable
	ttl    time.Duration
}

func NewAnswerStore(client redis.Cmdable, ttl time.Duration) *AnswerStore {
	return &AnswerStore{client: client, ttl: ttl}
}

func (s *AnswerStore) SaveChart(ctx context.Context, answerID string, chart models.VisualizationDescriptor) error {
	if answerID == "" {
		return fmt.Errorf("answer id is required")
	}

	data, err := json.Marshal(chart)
	if err != nil {
		return fmt.Errorf("marshal chart: %w", err)
	}

	if err := s.client.Set(ctx, AnswerChartKey(answerID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("store chart for answer %s: %w", answerID, err)
	}
	return nil
}

// LoadChart returns ErrAnswerNotFound when the key is missing or expired.
func (s *AnswerStore) LoadChart(ctx context.Context, answerID string) (*models.VisualizationDescriptor, error) {
	val, err := s.client.Get(ctx, AnswerChartKey(answerID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %s", ErrAnswerNotFound, answerID)
	}
	if err != nil {
		return nil, fmt.Errorf("load chart for answer %s: %w", answerID, err)
	}

	var chart models.VisualizationDescriptor
	if err := json.Unmarshal([]byte(val), &chart); err != nil {
		return nil, fmt.Errorf("decode chart for answer %s: %w", answerID, err)
	}
	return &chart, nil
}

func (s *AnswerStore) DeleteChart(ctx context.Context, answerID string) error {
	return s.client.Del(ctx, AnswerChartKey(answerID)).Err()
}
