package bolt

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/testigo/testigo/internal/storage"
	"go.etcd.io/bbolt"
)

type evidenceStore struct {
	db *bbolt.DB
}

func (s *evidenceStore) Create(ctx context.Context, ne storage.NewEvidence) (*storage.Evidence, error) {
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
	}
	err := s.db.Update(func(tx *bbolt.Tx) error {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b := tx.Bucket([]byte(bucketEvidence))
		if b == nil {
			return storage.ErrNotFound
		}
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		evidence.Seq = seq
		data, err := marshal(evidence)
		if err != nil {
			return err
		}
		return b.Put([]byte(evidence.ID), data)
	})
	if err != nil {
		return nil, err
	}
	return &evidence, nil
}

func (s *evidenceStore) Update(ctx context.Context, id string, fileName, filePath, description, considerations, observations string, updatedAt time.Time) error {
	return updateBucketValue(ctx, s.db, bucketEvidence, id, func(evidence *storage.Evidence) error {
		evidence.FileName = fileName
		evidence.FilePath = filePath
		evidence.Description = description
		evidence.Considerations = considerations
		evidence.Observations = observations
		evidence.UpdatedAt = updatedAt
		return nil
	})
}

func (s *evidenceStore) Get(ctx context.Context, id string) (*storage.Evidence, error) {
	return getBucketValue[storage.Evidence](ctx, s.db, bucketEvidence, id)
}

func (s *evidenceStore) ListBySession(ctx context.Context, sessionID string) ([]storage.Evidence, error) {
	evidences, err := listBucketWhere(ctx, s.db, bucketEvidence, func(evidence *storage.Evidence) bool {
		return evidence.SessionID == sessionID
	})
	if err != nil {
		return nil, err
	}
	sortEvidences(evidences)
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
	if err := putBucketValue(ctx, s.db, bucketAssets, asset.ID, asset); err != nil {
		return nil, err
	}
	return &asset, nil
}

func (s *evidenceStore) UpsertAsset(ctx context.Context, evidenceID string, position int, fileName, filePath string, now time.Time) (*storage.EvidenceAsset, error) {
	existing, err := s.assetAtPosition(ctx, evidenceID, position)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return s.CreateAsset(ctx, storage.NewAsset{
			EvidenceID: evidenceID,
			FileName:   fileName,
			FilePath:   filePath,
			Position:   position,
			CreatedAt:  now,
		})
	}
	err = updateBucketValue(ctx, s.db, bucketAssets, existing.ID, func(asset *storage.EvidenceAsset) error {
		asset.FileName = fileName
		asset.FilePath = filePath
		asset.UpdatedAt = now
		existing = asset
		return nil
	})
	if err != nil {
		return nil, err
	}
	return existing, nil
}

func (s *evidenceStore) assetAtPosition(ctx context.Context, evidenceID string, position int) (*storage.EvidenceAsset, error) {
	assets, err := listBucketWhere(ctx, s.db, bucketAssets, func(asset *storage.EvidenceAsset) bool {
		return asset.EvidenceID == evidenceID && asset.Position == position
	})
	if err != nil {
		return nil, err
	}
	if len(assets) == 0 {
		return nil, nil
	}
	return &assets[0], nil
}

func (s *evidenceStore) ListAssetsByEvidence(ctx context.Context, evidenceID string) ([]storage.EvidenceAsset, error) {
	assets, err := listBucketWhere(ctx, s.db, bucketAssets, func(asset *storage.EvidenceAsset) bool {
		return asset.EvidenceID == evidenceID
	})
	if err != nil {
		return nil, err
	}
	sortAssets(assets)
	return assets, nil
}

func (s *evidenceStore) ListAssetsBySession(ctx context.Context, sessionID string) (map[string][]storage.EvidenceAsset, error) {
	assets, err := listBucketWhere(ctx, s.db, bucketAssets, func(asset *storage.EvidenceAsset) bool {
		return asset.SessionID == sessionID
	})
	if err != nil {
		return nil, err
	}
	sortAssets(assets)
	grouped := make(map[string][]storage.EvidenceAsset)
	for _, asset := range assets {
		grouped[asset.EvidenceID] = append(grouped[asset.EvidenceID], asset)
	}
	return grouped, nil
}

func (s *evidenceStore) NextPosition(ctx context.Context, evidenceID string) (int, error) {
	assets, err := s.ListAssetsByEvidence(ctx, evidenceID)
	if err != nil {
		return 0, err
	}
	return len(assets), nil
}
