package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record is missing from storage.
var ErrNotFound = errors.New("storage: record not found")

// Store represents the root storage interface.
type Store interface {
	Close() error
	Sessions() SessionStore
	Evidences() EvidenceStore
	Pauses() PauseStore
}

// SessionStore manages evidence-session records.
type SessionStore interface {
	// Create persists a new session and assigns its identifier.
	Create(ctx context.Context, session NewSession) (*Session, error)
	// UpdateOutputs persists new output locations for a session.
	UpdateOutputs(ctx context.Context, id string, documentPath, evidenceDir string, updatedAt time.Time) error
	// Finish closes a session, recording its end time and total duration.
	Finish(ctx context.Context, id string, endedAt time.Time, durationSeconds int64) error
	Get(ctx context.Context, id string) (*Session, error)
	// List returns sessions ordered newest first, optionally filtered by
	// username. A limit of 0 means no limit.
	List(ctx context.Context, limit int, username string) ([]Session, error)
}

// EvidenceStore manages evidence entries and their capture assets.
type EvidenceStore interface {
	Create(ctx context.Context, evidence NewEvidence) (*Evidence, error)
	// Update overwrites the mutable metadata of an evidence entry. Elapsed
	// markers are capture-time facts and are never rewritten.
	Update(ctx context.Context, id string, fileName, filePath, description, considerations, observations string, updatedAt time.Time) error
	Get(ctx context.Context, id string) (*Evidence, error)
	// ListBySession returns evidences ordered by creation time ascending,
	// ties broken by insertion order.
	ListBySession(ctx context.Context, sessionID string) ([]Evidence, error)

	// CreateAsset attaches an additional capture to an existing evidence.
	CreateAsset(ctx context.Context, asset NewAsset) (*EvidenceAsset, error)
	// UpsertAsset replaces the capture at a given position, or creates it
	// when the position is vacant.
	UpsertAsset(ctx context.Context, evidenceID string, position int, fileName, filePath string, now time.Time) (*EvidenceAsset, error)
	ListAssetsByEvidence(ctx context.Context, evidenceID string) ([]EvidenceAsset, error)
	ListAssetsBySession(ctx context.Context, sessionID string) (map[string][]EvidenceAsset, error)
	// NextPosition returns the next free 0-based asset position.
	NextPosition(ctx context.Context, evidenceID string) (int, error)
}

// PauseStore manages pause intervals within a session.
type PauseStore interface {
	Create(ctx context.Context, pause NewPause) (*PauseInterval, error)
	// Finish completes an open pause with its resume time and duration.
	Finish(ctx context.Context, pauseID string, resumedAt time.Time, pauseDurationSeconds int64) error
	// ListBySession returns pause intervals in creation order.
	ListBySession(ctx context.Context, sessionID string) ([]PauseInterval, error)
}
