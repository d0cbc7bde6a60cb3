package storage

import "time"

// Session represents one timed evidence-gathering run.
type Session struct {
	ID              string     `json:"id"`
	Name            string     `json:"name"`
	InitialURL      string     `json:"initial_url"`
	DocumentPath    string     `json:"document_path"`
	EvidenceDir     string     `json:"evidence_dir"`
	Username        string     `json:"username"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Open reports whether the session has not been finalized yet.
func (s *Session) Open() bool {
	return s.EndedAt == nil
}

// NewSession carries the fields needed to create a session.
type NewSession struct {
	Name         string
	InitialURL   string
	DocumentPath string
	EvidenceDir  string
	Username     string
	StartedAt    time.Time
}

// Evidence represents one captured artifact tied to a session.
// ElapsedSinceStartSeconds is the session's elapsed time at the moment of
// capture; ElapsedSincePreviousSeconds is the wall-clock gap to the previous
// capture, or the session age for the first evidence of a session.
type Evidence struct {
	ID                          string    `json:"id"`
	SessionID                   string    `json:"session_id"`
	FileName                    string    `json:"file_name"`
	FilePath                    string    `json:"file_path"`
	Description                 string    `json:"description"`
	Considerations              string    `json:"considerations"`
	Observations                string    `json:"observations"`
	CreatedAt                   time.Time `json:"created_at"`
	UpdatedAt                   time.Time `json:"updated_at"`
	ElapsedSinceStartSeconds    int64     `json:"elapsed_since_start_seconds"`
	ElapsedSincePreviousSeconds int64     `json:"elapsed_since_previous_seconds"`
	// Seq is assigned by the store on create and breaks ordering ties
	// between evidences captured within the same second.
	Seq uint64 `json:"seq"`
}

// NewEvidence carries the fields needed to create an evidence entry.
type NewEvidence struct {
	SessionID                   string
	FileName                    string
	FilePath                    string
	Description                 string
	Considerations              string
	Observations                string
	CreatedAt                   time.Time
	ElapsedSinceStartSeconds    int64
	ElapsedSincePreviousSeconds int64
}

// EvidenceAsset is an additional capture attached to an evidence entry,
// ordered by its 0-based position.
type EvidenceAsset struct {
	ID         string    `json:"id"`
	EvidenceID string    `json:"evidence_id"`
	SessionID  string    `json:"session_id"`
	FileName   string    `json:"file_name"`
	FilePath   string    `json:"file_path"`
	Position   int       `json:"position"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// NewAsset carries the fields needed to attach a capture to an evidence.
// The store resolves the owning session from the evidence record.
type NewAsset struct {
	EvidenceID string
	FileName   string
	FilePath   string
	Position   int
	CreatedAt  time.Time
}

// PauseInterval is one pause/resume bracket within a session. ResumedAt is
// nil while the pause is open; PauseDurationSeconds is meaningful only once
// the pause has been resumed.
type PauseInterval struct {
	ID                       string     `json:"id"`
	SessionID                string     `json:"session_id"`
	PausedAt                 time.Time  `json:"paused_at"`
	ResumedAt                *time.Time `json:"resumed_at,omitempty"`
	ElapsedSecondsWhenPaused int64      `json:"elapsed_seconds_when_paused"`
	PauseDurationSeconds     int64      `json:"pause_duration_seconds"`
}

// Open reports whether the pause has not been resumed yet.
func (p *PauseInterval) Open() bool {
	return p.ResumedAt == nil
}

// NewPause carries the fields needed to open a pause interval.
type NewPause struct {
	SessionID                string
	PausedAt                 time.Time
	ElapsedSecondsWhenPaused int64
}
