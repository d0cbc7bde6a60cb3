package bolt

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/testigo/testigo/internal/storage"
	"go.etcd.io/bbolt"
)

type sessionStore struct {
	db *bbolt.DB
}

func (s *sessionStore) Create(ctx context.Context, ns storage.NewSession) (*storage.Session, error) {
	session := storage.Session{
		ID:           uuid.NewString(),
		Name:         ns.Name,
		InitialURL:   ns.InitialURL,
		DocumentPath: ns.DocumentPath,
		EvidenceDir:  ns.EvidenceDir,
		Username:     ns.Username,
		StartedAt:    ns.StartedAt,
		CreatedAt:    ns.StartedAt,
		UpdatedAt:    ns.StartedAt,
	}
	if err := putBucketValue(ctx, s.db, bucketSessions, session.ID, session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *sessionStore) UpdateOutputs(ctx context.Context, id string, documentPath, evidenceDir string, updatedAt time.Time) error {
	return updateBucketValue(ctx, s.db, bucketSessions, id, func(session *storage.Session) error {
		session.DocumentPath = documentPath
		session.EvidenceDir = evidenceDir
		session.UpdatedAt = updatedAt
		return nil
	})
}

func (s *sessionStore) Finish(ctx context.Context, id string, endedAt time.Time, durationSeconds int64) error {
	return updateBucketValue(ctx, s.db, bucketSessions, id, func(session *storage.Session) error {
		ended := endedAt
		session.EndedAt = &ended
		session.DurationSeconds = durationSeconds
		session.UpdatedAt = endedAt
		return nil
	})
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.Session, error) {
	return getBucketValue[storage.Session](ctx, s.db, bucketSessions, id)
}

func (s *sessionStore) List(ctx context.Context, limit int, username string) ([]storage.Session, error) {
	sessions, err := listBucketWhere(ctx, s.db, bucketSessions, func(session *storage.Session) bool {
		return username == "" || session.Username == username
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(sessions, func(i, j int) bool {
		if !sessions[i].StartedAt.Equal(sessions[j].StartedAt) {
			return sessions[i].StartedAt.After(sessions[j].StartedAt)
		}
		return sessions[i].ID > sessions[j].ID
	})
	if limit > 0 && len(sessions) > limit {
		sessions = sessions[:limit]
	}
	return sessions, nil
}
