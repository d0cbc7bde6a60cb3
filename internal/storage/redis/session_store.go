package redis

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/testigo/testigo/internal/storage"
)

type sessionStore struct {
	client *redis.Client
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
	if err := setJSON(ctx, s.client, sessionKey(session.ID), session); err != nil {
		return nil, err
	}
	if err := s.client.SAdd(ctx, sessionSetKey(), session.ID).Err(); err != nil {
		return nil, err
	}
	return &session, nil
}

func (s *sessionStore) UpdateOutputs(ctx context.Context, id string, documentPath, evidenceDir string, updatedAt time.Time) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	session.DocumentPath = documentPath
	session.EvidenceDir = evidenceDir
	session.UpdatedAt = updatedAt
	return setJSON(ctx, s.client, sessionKey(id), session)
}

func (s *sessionStore) Finish(ctx context.Context, id string, endedAt time.Time, durationSeconds int64) error {
	session, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	ended := endedAt
	session.EndedAt = &ended
	session.DurationSeconds = durationSeconds
	session.UpdatedAt = endedAt
	return setJSON(ctx, s.client, sessionKey(id), session)
}

func (s *sessionStore) Get(ctx context.Context, id string) (*storage.Session, error) {
	return getJSON[storage.Session](ctx, s.client, sessionKey(id))
}

func (s *sessionStore) List(ctx context.Context, limit int, username string) ([]storage.Session, error) {
	ids, err := s.client.SMembers(ctx, sessionSetKey()).Result()
	if err != nil {
		return nil, err
	}
	sessions, err := getManyJSON[storage.Session](ctx, s.client, sessionKey, ids)
	if err != nil {
		return nil, err
	}
	if username != "" {
		filtered := sessions[:0]
		for _, session := range sessions {
			if session.Username == username {
				filtered = append(filtered, session)
			}
		}
		sessions = filtered
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
