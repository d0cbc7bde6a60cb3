// Package recorder implements the evidence-session lifecycle and timing
// engine: a state machine that owns the single active session, freezes and
// resumes the elapsed-time accounting across pauses, and timestamps captured
// evidence relative to the session start and the previous capture.
package recorder

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/testigo/testigo/internal/clock"
	"github.com/testigo/testigo/internal/metrics"
	"github.com/testigo/testigo/internal/storage"
)

// State describes the lifecycle position of a Manager.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// activeState tracks runtime information for the session timer. It exists
// only in memory; on a crash it is rebuilt from storage by Reattach.
type activeState struct {
	session *storage.Session
	// resumeReference marks the instant elapsed time accrues from while
	// running. While paused it records the pause instant and is not part
	// of the elapsed computation.
	resumeReference    time.Time
	accumulatedSeconds int64
	lastEvidenceAt     time.Time // zero until the first capture
	activePause        *storage.PauseInterval
}

// Manager coordinates the session lifecycle, evidence capture and pause
// bookkeeping. All state-mutating operations run under a single lock so the
// read-now/compute/persist sequence can never interleave. It is the only
// writer of elapsed-time fields.
type Manager struct {
	store  storage.Store
	clock  clock.Clock
	logger zerolog.Logger

	mu     sync.Mutex
	active *activeState
}

// NewManager creates a manager with the given store and clock.
func NewManager(store storage.Store, clk clock.Clock, logger zerolog.Logger) *Manager {
	return &Manager{
		store:  store,
		clock:  clk,
		logger: logger.With().Str("component", "recorder").Logger(),
	}
}

// BeginParams carries the fields needed to start a session.
type BeginParams struct {
	Name         string
	InitialURL   string
	DocumentPath string
	EvidenceDir  string
	Username     string
}

// Begin creates a new session and makes it the active one. It fails with
// ErrSessionActive when a session is already running or paused.
func (m *Manager) Begin(ctx context.Context, p BeginParams) (*storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrSessionActive
	}

	now := m.clock.Now()
	session, err := m.store.Sessions().Create(ctx, storage.NewSession{
		Name:         p.Name,
		InitialURL:   p.InitialURL,
		DocumentPath: p.DocumentPath,
		EvidenceDir:  p.EvidenceDir,
		Username:     p.Username,
		StartedAt:    now,
	})
	if err != nil {
		return nil, persistErr("begin", err)
	}

	m.active = &activeState{
		session:         session,
		resumeReference: now,
	}

	metrics.SessionsStarted.Inc()
	m.logger.Info().
		Str("session_id", session.ID).
		Str("name", session.Name).
		Str("username", session.Username).
		Msg("Session started")

	return session, nil
}

// State returns the manager's lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stateLocked()
}

func (m *Manager) stateLocked() State {
	switch {
	case m.active == nil:
		return StateIdle
	case m.active.activePause != nil:
		return StatePaused
	default:
		return StateRunning
	}
}

// ElapsedSeconds returns the total running time of the active session,
// excluding every paused interval. It returns 0 when no session is active
// and a frozen value while a pause is open.
func (m *Manager) ElapsedSeconds() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.elapsedLocked()
}

func (m *Manager) elapsedLocked() int64 {
	if m.active == nil {
		return 0
	}
	elapsed := m.active.accumulatedSeconds
	if m.active.activePause == nil {
		if d := m.clock.Now().Sub(m.active.resumeReference); d > 0 {
			elapsed += int64(d / time.Second)
		}
	}
	return elapsed
}

// Pause freezes the session timer and opens a pause interval.
func (m *Manager) Pause(ctx context.Context) (*storage.PauseInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	if m.active.activePause != nil {
		return nil, ErrAlreadyPaused
	}

	now := m.clock.Now()
	banked := m.active.accumulatedSeconds
	if d := now.Sub(m.active.resumeReference); d > 0 {
		banked += int64(d / time.Second)
	}

	pause, err := m.store.Pauses().Create(ctx, storage.NewPause{
		SessionID:                m.active.session.ID,
		PausedAt:                 now,
		ElapsedSecondsWhenPaused: banked,
	})
	if err != nil {
		return nil, persistErr("pause", err)
	}

	m.active.accumulatedSeconds = banked
	m.active.activePause = pause
	m.active.resumeReference = now

	metrics.PausesTotal.Inc()
	m.logger.Info().
		Str("session_id", m.active.session.ID).
		Str("pause_id", pause.ID).
		Int64("elapsed_seconds", banked).
		Msg("Session paused")

	return pause, nil
}

// Resume completes the open pause and restarts the timer from this instant.
func (m *Manager) Resume(ctx context.Context) (*storage.PauseInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	pause := m.active.activePause
	if pause == nil {
		return nil, ErrNotPaused
	}

	now := m.clock.Now()
	var pauseDuration int64
	if d := now.Sub(pause.PausedAt); d > 0 {
		pauseDuration = int64(d / time.Second)
	}

	if err := m.store.Pauses().Finish(ctx, pause.ID, now, pauseDuration); err != nil {
		return nil, persistErr("resume", err)
	}

	resumed := now
	completed := *pause
	completed.ResumedAt = &resumed
	completed.PauseDurationSeconds = pauseDuration

	m.active.activePause = nil
	m.active.resumeReference = now

	metrics.PauseDuration.Observe(float64(pauseDuration))
	m.logger.Info().
		Str("session_id", m.active.session.ID).
		Str("pause_id", pause.ID).
		Int64("pause_seconds", pauseDuration).
		Msg("Session resumed")

	return &completed, nil
}

// UpdateOutputs persists new output locations for the active session and
// refreshes the cached snapshot. It is a no-op when no session is active.
func (m *Manager) UpdateOutputs(ctx context.Context, documentPath, evidenceDir string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil
	}

	now := m.clock.Now()
	id := m.active.session.ID
	if err := m.store.Sessions().UpdateOutputs(ctx, id, documentPath, evidenceDir, now); err != nil {
		return persistErr("update outputs", err)
	}
	refreshed, err := m.store.Sessions().Get(ctx, id)
	if err != nil {
		return persistErr("update outputs", err)
	}
	m.active.session = refreshed
	return nil
}

// Finalize closes the active session, persisting its end time and total
// elapsed duration, and returns the manager to the idle state. A paused
// session must be resumed first.
func (m *Manager) Finalize(ctx context.Context) (*storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	if m.active.activePause != nil {
		return nil, ErrSessionPaused
	}

	now := m.clock.Now()
	totalElapsed := m.elapsedLocked()
	id := m.active.session.ID

	if err := m.store.Sessions().Finish(ctx, id, now, totalElapsed); err != nil {
		return nil, persistErr("finalize", err)
	}

	metrics.SessionsFinalized.Inc()
	metrics.SessionDuration.Observe(float64(totalElapsed))
	m.logger.Info().
		Str("session_id", id).
		Int64("duration_seconds", totalElapsed).
		Msg("Session finalized")

	// The session is closed either way; drop the active state before
	// surfacing a refresh failure.
	m.active = nil

	refreshed, err := m.store.Sessions().Get(ctx, id)
	if err != nil {
		return nil, persistErr("finalize", err)
	}
	return refreshed, nil
}

// ActiveSession returns a snapshot of the active session, or nil.
func (m *Manager) ActiveSession() *storage.Session {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil
	}
	session := *m.active.session
	return &session
}

// ClearActiveSession discards the in-memory state without touching the
// persisted rows. Used when an operator abandons a session deliberately.
func (m *Manager) ClearActiveSession() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return
	}
	m.logger.Warn().
		Str("session_id", m.active.session.ID).
		Msg("Active session abandoned without finalizing")
	m.active = nil
}

// Reattach adopts a still-open session persisted by an earlier process,
// rebuilding the timer state from the session row, its pause history and
// its newest evidence.
func (m *Manager) Reattach(ctx context.Context, sessionID string) (*storage.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active != nil {
		return nil, ErrSessionActive
	}

	session, err := m.store.Sessions().Get(ctx, sessionID)
	if err != nil {
		return nil, persistErr("reattach", err)
	}
	if !session.Open() {
		return nil, ErrSessionFinalized
	}

	pauses, err := m.store.Pauses().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, persistErr("reattach", err)
	}

	state := &activeState{
		session:         session,
		resumeReference: session.StartedAt,
	}
	if len(pauses) > 0 {
		last := pauses[len(pauses)-1]
		state.accumulatedSeconds = last.ElapsedSecondsWhenPaused
		if last.Open() {
			state.activePause = &last
			state.resumeReference = last.PausedAt
		} else {
			state.resumeReference = *last.ResumedAt
		}
	}

	evidences, err := m.store.Evidences().ListBySession(ctx, sessionID)
	if err != nil {
		return nil, persistErr("reattach", err)
	}
	if len(evidences) > 0 {
		state.lastEvidenceAt = evidences[len(evidences)-1].CreatedAt
	}

	m.active = state
	m.logger.Info().
		Str("session_id", session.ID).
		Str("state", string(m.stateLocked())).
		Int64("elapsed_seconds", m.elapsedLocked()).
		Msg("Reattached to open session")

	return session, nil
}

// FindOpenSession returns the newest session that was begun but never
// finalized, optionally restricted to a username. It returns
// storage.ErrNotFound when every session is closed.
func (m *Manager) FindOpenSession(ctx context.Context, username string) (*storage.Session, error) {
	sessions, err := m.store.Sessions().List(ctx, 0, username)
	if err != nil {
		return nil, persistErr("find open session", err)
	}
	for i := range sessions {
		if sessions[i].Open() {
			return &sessions[i], nil
		}
	}
	return nil, storage.ErrNotFound
}

// ListPauses returns the pause history of the active session.
func (m *Manager) ListPauses(ctx context.Context) ([]storage.PauseInterval, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.active == nil {
		return nil, ErrNoActiveSession
	}
	pauses, err := m.store.Pauses().ListBySession(ctx, m.active.session.ID)
	if err != nil {
		return nil, persistErr("list pauses", err)
	}
	return pauses, nil
}
