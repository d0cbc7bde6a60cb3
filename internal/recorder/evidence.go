package recorder

import (
	"context"
	"path/filepath"
	"time"

	"github.com/testigo/testigo/internal/metrics"
	"github.com/testigo/testigo/internal/storage"
)

// Capture carries the fields of one evidence capture.
type Capture struct {
	FilePath       string
	Description    string
	Considerations string
	Observations   string
}

// RecordEvidence persists a captured evidence with its two elapsed markers
// and its first asset at position 0, then advances the capture checkpoint.
// Capture is disallowed while paused: the markers must stay monotonic and
// meaningful, and a frozen clock would make "elapsed since previous"
// ambiguous.
func (m *Manager) RecordEvidence(ctx context.Context, c Capture) (*storage.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	if m.active.activePause != nil {
		return nil, ErrSessionPaused
	}

	now := m.clock.Now()
	elapsedSinceStart := m.elapsedLocked()

	// The first evidence of a session carries the session age instead of
	// a gap to a previous capture.
	elapsedSincePrevious := elapsedSinceStart
	if !m.active.lastEvidenceAt.IsZero() {
		elapsedSincePrevious = 0
		if d := now.Sub(m.active.lastEvidenceAt); d > 0 {
			elapsedSincePrevious = int64(d / time.Second)
		}
	}

	fileName := filepath.Base(c.FilePath)
	evidence, err := m.store.Evidences().Create(ctx, storage.NewEvidence{
		SessionID:                   m.active.session.ID,
		FileName:                    fileName,
		FilePath:                    c.FilePath,
		Description:                 c.Description,
		Considerations:              c.Considerations,
		Observations:                c.Observations,
		CreatedAt:                   now,
		ElapsedSinceStartSeconds:    elapsedSinceStart,
		ElapsedSincePreviousSeconds: elapsedSincePrevious,
	})
	if err != nil {
		return nil, persistErr("record evidence", err)
	}

	if _, err := m.store.Evidences().CreateAsset(ctx, storage.NewAsset{
		EvidenceID: evidence.ID,
		FileName:   fileName,
		FilePath:   c.FilePath,
		Position:   0,
		CreatedAt:  now,
	}); err != nil {
		return nil, persistErr("record evidence", err)
	}

	m.active.lastEvidenceAt = now

	metrics.EvidencesCaptured.Inc()
	m.logger.Info().
		Str("session_id", m.active.session.ID).
		Str("evidence_id", evidence.ID).
		Str("file", fileName).
		Int64("elapsed_seconds", elapsedSinceStart).
		Int64("since_previous_seconds", elapsedSincePrevious).
		Msg("Evidence recorded")

	return evidence, nil
}

// AttachEvidenceAsset appends a supplementary capture to an existing
// evidence at the next free position. Elapsed markers are untouched.
func (m *Manager) AttachEvidenceAsset(ctx context.Context, evidenceID, filePath string) (*storage.EvidenceAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	position, err := m.store.Evidences().NextPosition(ctx, evidenceID)
	if err != nil {
		return nil, persistErr("attach asset", err)
	}

	asset, err := m.store.Evidences().CreateAsset(ctx, storage.NewAsset{
		EvidenceID: evidenceID,
		FileName:   filepath.Base(filePath),
		FilePath:   filePath,
		Position:   position,
		CreatedAt:  m.clock.Now(),
	})
	if err != nil {
		return nil, persistErr("attach asset", err)
	}

	metrics.AssetsAttached.Inc()
	m.logger.Info().
		Str("evidence_id", evidenceID).
		Int("position", position).
		Str("file", asset.FileName).
		Msg("Evidence asset attached")

	return asset, nil
}

// ReplaceEvidenceAsset swaps the capture stored at a given position of an
// evidence without disturbing the order of the other assets.
func (m *Manager) ReplaceEvidenceAsset(ctx context.Context, evidenceID string, position int, filePath string) (*storage.EvidenceAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	asset, err := m.store.Evidences().UpsertAsset(ctx, evidenceID, position, filepath.Base(filePath), filePath, m.clock.Now())
	if err != nil {
		return nil, persistErr("replace asset", err)
	}
	return asset, nil
}

// UpdateEvidence overwrites the mutable metadata of an evidence entry. It
// needs no active session: editing history is allowed any time. Elapsed
// markers are capture-time facts and are never recomputed.
func (m *Manager) UpdateEvidence(ctx context.Context, evidenceID string, c Capture) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.clock.Now()
	fileName := filepath.Base(c.FilePath)
	err := m.store.Evidences().Update(ctx, evidenceID, fileName, c.FilePath,
		c.Description, c.Considerations, c.Observations, now)
	if err != nil {
		return persistErr("update evidence", err)
	}

	// Keep the capture checkpoint honest if the edited entry belongs to
	// the active session.
	if m.active != nil {
		if err := m.refreshLastEvidenceLocked(ctx); err != nil {
			return err
		}
	}
	return nil
}

// ListEvidences returns all evidence of the active session ordered by
// capture time, and refreshes the capture checkpoint from the newest entry
// in case the in-memory state drifted.
func (m *Manager) ListEvidences(ctx context.Context) ([]storage.Evidence, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	evidences, err := m.store.Evidences().ListBySession(ctx, m.active.session.ID)
	if err != nil {
		return nil, persistErr("list evidences", err)
	}
	if len(evidences) > 0 {
		m.active.lastEvidenceAt = evidences[len(evidences)-1].CreatedAt
	}
	return evidences, nil
}

// ListSessionAssets returns every capture of the active session grouped by
// evidence, each group in position order.
func (m *Manager) ListSessionAssets(ctx context.Context) (map[string][]storage.EvidenceAsset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	assets, err := m.store.Evidences().ListAssetsBySession(ctx, m.active.session.ID)
	if err != nil {
		return nil, persistErr("list assets", err)
	}
	return assets, nil
}

// ListEvidenceAssets returns the supplementary captures of an evidence in
// position order.
func (m *Manager) ListEvidenceAssets(ctx context.Context, evidenceID string) ([]storage.EvidenceAsset, error) {
	assets, err := m.store.Evidences().ListAssetsByEvidence(ctx, evidenceID)
	if err != nil {
		return nil, persistErr("list assets", err)
	}
	return assets, nil
}

func (m *Manager) refreshLastEvidenceLocked(ctx context.Context) error {
	evidences, err := m.store.Evidences().ListBySession(ctx, m.active.session.ID)
	if err != nil {
		return persistErr("refresh evidences", err)
	}
	if len(evidences) > 0 {
		m.active.lastEvidenceAt = evidences[len(evidences)-1].CreatedAt
	}
	return nil
}
