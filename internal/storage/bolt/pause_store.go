package bolt

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/testigo/testigo/internal/storage"
	"go.etcd.io/bbolt"
)

type pauseStore struct {
	db *bbolt.DB
}

func (s *pauseStore) Create(ctx context.Context, np storage.NewPause) (*storage.PauseInterval, error) {
	pause := storage.PauseInterval{
		ID:                       uuid.NewString(),
		SessionID:                np.SessionID,
		PausedAt:                 np.PausedAt,
		ElapsedSecondsWhenPaused: np.ElapsedSecondsWhenPaused,
	}
	if err := putBucketValue(ctx, s.db, bucketPauses, pause.ID, pause); err != nil {
		return nil, err
	}
	return &pause, nil
}

func (s *pauseStore) Finish(ctx context.Context, pauseID string, resumedAt time.Time, pauseDurationSeconds int64) error {
	return updateBucketValue(ctx, s.db, bucketPauses, pauseID, func(pause *storage.PauseInterval) error {
		resumed := resumedAt
		pause.ResumedAt = &resumed
		pause.PauseDurationSeconds = pauseDurationSeconds
		return nil
	})
}

func (s *pauseStore) ListBySession(ctx context.Context, sessionID string) ([]storage.PauseInterval, error) {
	pauses, err := listBucketWhere(ctx, s.db, bucketPauses, func(pause *storage.PauseInterval) bool {
		return pause.SessionID == sessionID
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(pauses, func(i, j int) bool {
		if !pauses[i].PausedAt.Equal(pauses[j].PausedAt) {
			return pauses[i].PausedAt.Before(pauses[j].PausedAt)
		}
		return pauses[i].ID < pauses[j].ID
	})
	return pauses, nil
}
