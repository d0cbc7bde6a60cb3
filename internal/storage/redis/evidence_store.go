package redis

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/testigo/testigo/internal/storage"
)

type evidenceStore struct {
	client *redis.Client
}

func (s *evidenceStore) Create(ctx context.Context, ne storage.NewEvidence) (*storage.Evidence, error) {
	seq, err := s.client.Incr(ctx, evidenceSeqKey()).Result()
	if err != nil {
		return nil, err
	}
	evidence := storage.Evidence{
		ID:                          uuid.NewString(),
		SessionID:                   ne.SessionID,
		FileName:                    ne.FileName,
		FilePath:                    ne.FilePath,
		Description:                 ne.Description,
		Considerations:              ne.Considerations,
		Observations:                ne.Observations,
		CreatedAt:                   ne.CreatedAt,
		UpdatedAt:                   ne.CreatedAt,
		ElapsedSinceStartSeconds:    ne.ElapsedSinceStartSeconds,
		ElapsedSincePreviousSeconds: ne.ElapsedSincePreviousSeconds,
		Seq:                         uint64(seq),
	}
	if err := setJSON(ctx, s.client, evidenceKey(evidence.ID), evidence); err != nil {
		return nil, err
	}
	if err := s.client.RPush(ctx, sessionEvidencesKey(ne.SessionID), evidence.ID).Err(); err != nil {
		return nil, err
	}
	return &evidence, nil
}

func (s *evidenceStore) Update(ctx context.Context, id string, fileName, filePath, description, considerations, observations string, updatedAt time.Time) error {
	evidence, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	evidence.FileName = fileName
	evidence.FilePath = filePath
	evidence.Description = description
	evidence.Considerations = considerations
	evidence.Observations = observations
	evidence.UpdatedAt = updatedAt
	return setJSON(ctx, s.client, evidenceKey(id), evidence)
}

func (s *evidenceStore) Get(ctx context.Context, id string) (*storage.Evidence, error) {
	return getJSON[storage.Evidence](ctx, s.client, evidenceKey(id))
}

func (s *evidenceStore) ListBySession(ctx context.Context, sessionID string) ([]storage.Evidence, error) {
	ids, err := s.client.LRange(ctx, sessionEvidencesKey(sessionID), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	evidences, err := getManyJSON[storage.Evidence](ctx, s.client, evidenceKey, ids)
	if err != nil {
		return nil, err
	}
	sort.Slice(evidences, func(i, j int) bool {
		if !evidences[i].CreatedAt.Equal(evidences[j].CreatedAt) {
			return evidences[i].CreatedAt.Before(evidences[j].CreatedAt)
		}
		return evidences[i].Seq < evidences[j].Seq
	})
	return evidences, nil
}

func (s *evidenceStore) CreateAsset(ctx context.Context, na storage.NewAsset) (*storage.EvidenceAsset, error) {
	evidence, err := s.Get(ctx, na.EvidenceID)
	if err != nil {
		return nil, err
	}
	asset := storage.EvidenceAsset{
		ID:         uuid.NewString(),
		EvidenceID: na.EvidenceID,
		SessionID:  evidence.SessionID,
		FileName:   na.FileName,
		FilePath:   na.FilePath,
		Position:   na.Position,
		CreatedAt:  na.CreatedAt,
		UpdatedAt:  na.CreatedAt,
	}
	if err := setJSON(ctx, s.client, assetKey(asset.ID), asset); err != nil {
		return nil, err
	}
	field := strconv.Itoa(na.Position)
	if err := s.client.HSet(ctx, evidenceAssetsKey(na.EvidenceID), field, asset.ID).Err(); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *evidenceStore) UpsertAsset(ctx context.Context, evidenceID string, position int, fileName, filePath string, now time.Time) (*storage.EvidenceAsset, error) {
	field := strconv.Itoa(position)
	existingID, err := s.client.HGet(ctx, evidenceAssetsKey(evidenceID), field).Result()
	if err == redis.Nil {
		return s.CreateAsset(ctx, storage.NewAsset{
			EvidenceID: evidenceID,
			FileName:   fileName,
			FilePath:   filePath,
			Position:   position,
			CreatedAt:  now,
		})
	}
	if err != nil {
		return nil, err
	}
	asset, err := getJSON[storage.EvidenceAsset](ctx, s.client, assetKey(existingID))
	if err != nil {
		return nil, err
	}
	asset.FileName = fileName
	asset.FilePath = filePath
	asset.UpdatedAt = now
	if err := setJSON(ctx, s.client, assetKey(existingID), asset); err != nil {
		return nil, err
	}
	return asset, nil
}

func (s *evidenceStore) ListAssetsByEvidence(ctx context.Context, evidenceID string) ([]storage.EvidenceAsset, error) {
	ids, err := s.client.HVals(ctx, evidenceAssetsKey(evidenceID)).Result()
	if err != nil {
		return nil, err
	}
	assets, err := getManyJSON[storage.EvidenceAsset](ctx, s.client, assetKey, ids)
	if err != nil {
		return nil, err
	}
	sortAssetsByPosition(assets)
	return assets, nil
}

func (s *evidenceStore) ListAssetsBySession(ctx context.Context, sessionID string) (map[string][]storage.EvidenceAsset, error) {
	evidences, err := s.ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]storage.EvidenceAsset)
	for _, evidence := range evidences {
		assets, err := s.ListAssetsByEvidence(ctx, evidence.ID)
		if err != nil {
			return nil, err
		}
		if len(assets) > 0 {
			grouped[evidence.ID] = assets
		}
	}
	return grouped, nil
}

func (s *evidenceStore) NextPosition(ctx context.Context, evidenceID string) (int, error) {
	count, err := s.client.HLen(ctx, evidenceAssetsKey(evidenceID)).Result()
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

func sortAssetsByPosition(assets []storage.EvidenceAsset) {
	sort.Slice(assets, func(i, j int) bool {
		if assets[i].Position != assets[j].Position {
			return assets[i].Position < assets[j].Position
		}
		return assets[i].CreatedAt.Before(assets[j].CreatedAt)
	})
}
