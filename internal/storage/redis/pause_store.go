package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/testigo/testigo/internal/storage"
)

type pauseStore struct {
	client *redis.Client
}

func (s *pauseStore) Create(ctx context.Context, np storage.NewPause) (*storage.PauseInterval, error) {
	pause := storage.PauseInterval{
		ID:                       uuid.NewString(),
		SessionID:                np.SessionID,
		PausedAt:                 np.PausedAt,
		ElapsedSecondsWhenPaused: np.ElapsedSecondsWhenPaused,
	}
	if err := setJSON(ctx, s.client, pauseKey(pause.ID), pause); err != nil {
		return nil, err
	}
	if err := s.client.RPush(ctx, sessionPausesKey(np.SessionID), pause.ID).Err(); err != nil {
		return nil, err
	}
	return &pause, nil
}

func (s *pauseStore) Finish(ctx context.Context, pauseID string, resumedAt time.Time, pauseDurationSeconds int64) error {
	pause, err := getJSON[storage.PauseInterval](ctx, s.client, pauseKey(pauseID))
	if err != nil {
		return err
	}
	resumed := resumedAt
	pause.ResumedAt = &resumed
	pause.PauseDurationSeconds = pauseDurationSeconds
	return setJSON(ctx, s.client, pauseKey(pauseID), pause)
}

func (s *pauseStore) ListBySession(ctx context.Context, sessionID string) ([]storage.PauseInterval, error) {
	ids, err := s.client.LRange(ctx, sessionPausesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return getManyJSON[storage.PauseInterval](ctx, s.client, pauseKey, ids)
}
