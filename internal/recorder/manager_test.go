package recorder

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"pgregory.net/rapid"

	"github.com/testigo/testigo/internal/clock"
	"github.com/testigo/testigo/internal/storage"
	"github.com/testigo/testigo/internal/storage/bolt"
)

func newTestManager(t *testing.T) (*Manager, *clock.TestClock) {
	t.Helper()

	store, err := bolt.Open(t.TempDir() + "/testigo.db")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	clk := &clock.TestClock{CurrentTime: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
	return NewManager(store, clk, zerolog.Nop()), clk
}

func beginTestSession(t *testing.T, m *Manager) *storage.Session {
	t.Helper()

	session, err := m.Begin(context.Background(), BeginParams{
		Name:     "checkout flow regression",
		Username: "tester",
	})
	if err != nil {
		t.Fatalf("begin session: %v", err)
	}
	return session
}

func TestSessionTimeline(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	beginTestSession(t, m)

	clk.Advance(2 * time.Second)
	first, err := m.RecordEvidence(ctx, Capture{FilePath: "/tmp/one.png", Description: "login page"})
	if err != nil {
		t.Fatalf("record first evidence: %v", err)
	}
	if first.ElapsedSinceStartSeconds != 2 || first.ElapsedSincePreviousSeconds != 2 {
		t.Fatalf("expected first evidence markers (2, 2), got (%d, %d)",
			first.ElapsedSinceStartSeconds, first.ElapsedSincePreviousSeconds)
	}

	clk.Advance(1 * time.Second)
	pause, err := m.Pause(ctx)
	if err != nil {
		t.Fatalf("pause: %v", err)
	}
	if pause.ElapsedSecondsWhenPaused != 3 {
		t.Fatalf("expected 3 banked seconds at pause, got %d", pause.ElapsedSecondsWhenPaused)
	}
	if got := m.ElapsedSeconds(); got != 3 {
		t.Fatalf("expected frozen elapsed 3 while paused, got %d", got)
	}

	clk.Advance(7 * time.Second)
	if got := m.ElapsedSeconds(); got != 3 {
		t.Fatalf("expected elapsed still 3 during pause, got %d", got)
	}

	resumed, err := m.Resume(ctx)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.PauseDurationSeconds != 7 {
		t.Fatalf("expected pause duration 7, got %d", resumed.PauseDurationSeconds)
	}

	clk.Advance(2 * time.Second)
	second, err := m.RecordEvidence(ctx, Capture{FilePath: "/tmp/two.png", Description: "cart page"})
	if err != nil {
		t.Fatalf("record second evidence: %v", err)
	}
	if second.ElapsedSinceStartSeconds != 5 {
		t.Fatalf("expected elapsed since start 5, got %d", second.ElapsedSinceStartSeconds)
	}
	// Wall-clock gap to the first capture includes the 7 paused seconds.
	if second.ElapsedSincePreviousSeconds != 10 {
		t.Fatalf("expected elapsed since previous 10, got %d", second.ElapsedSincePreviousSeconds)
	}

	final, err := m.Finalize(ctx)
	if err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if final.DurationSeconds != 5 {
		t.Fatalf("expected session duration 5, got %d", final.DurationSeconds)
	}
	if final.Open() {
		t.Fatal("expected finalized session to be closed")
	}
	if m.State() != StateIdle {
		t.Fatalf("expected idle state after finalize, got %s", m.State())
	}
}

func TestFinalizeWhilePaused(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	session := beginTestSession(t, m)

	clk.Advance(4 * time.Second)
	if _, err := m.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if _, err := m.Finalize(ctx); !errors.Is(err, ErrSessionPaused) {
		t.Fatalf("expected ErrSessionPaused, got %v", err)
	}
	if m.State() != StatePaused {
		t.Fatalf("expected state paused after refused finalize, got %s", m.State())
	}

	stored, err := m.store.Sessions().Get(ctx, session.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if !stored.Open() {
		t.Fatal("refused finalize must not close the stored session")
	}
}

func TestRecordEvidenceWhilePaused(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	session := beginTestSession(t, m)

	clk.Advance(2 * time.Second)
	if _, err := m.RecordEvidence(ctx, Capture{FilePath: "/tmp/one.png"}); err != nil {
		t.Fatalf("record evidence: %v", err)
	}
	if _, err := m.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}

	if _, err := m.RecordEvidence(ctx, Capture{FilePath: "/tmp/two.png"}); !errors.Is(err, ErrSessionPaused) {
		t.Fatalf("expected ErrSessionPaused, got %v", err)
	}

	evidences, err := m.store.Evidences().ListBySession(ctx, session.ID)
	if err != nil {
		t.Fatalf("list evidences: %v", err)
	}
	if len(evidences) != 1 {
		t.Fatalf("refused capture must not persist, found %d evidences", len(evidences))
	}
}

func TestLifecycleGuards(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if _, err := m.Pause(ctx); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("pause without session: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := m.Resume(ctx); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("resume without session: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := m.Finalize(ctx); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("finalize without session: expected ErrNoActiveSession, got %v", err)
	}
	if _, err := m.RecordEvidence(ctx, Capture{FilePath: "/tmp/x.png"}); !errors.Is(err, ErrNoActiveSession) {
		t.Fatalf("record without session: expected ErrNoActiveSession, got %v", err)
	}

	beginTestSession(t, m)

	if _, err := m.Begin(ctx, BeginParams{Name: "second"}); !errors.Is(err, ErrSessionActive) {
		t.Fatalf("double begin: expected ErrSessionActive, got %v", err)
	}
	if _, err := m.Resume(ctx); !errors.Is(err, ErrNotPaused) {
		t.Fatalf("resume while running: expected ErrNotPaused, got %v", err)
	}
	if _, err := m.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if _, err := m.Pause(ctx); !errors.Is(err, ErrAlreadyPaused) {
		t.Fatalf("double pause: expected ErrAlreadyPaused, got %v", err)
	}
}

func TestMultiplePauseCycles(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	beginTestSession(t, m)

	// Three run/pause cycles of 5s running and 30s paused each.
	for i := 0; i < 3; i++ {
		clk.Advance(5 * time.Second)
		if _, err := m.Pause(ctx); err != nil {
			t.Fatalf("pause cycle %d: %v", i, err)
		}
		clk.Advance(30 * time.Second)
		if _, err := m.Resume(ctx); err != nil {
			t.Fatalf("resume cycle %d: %v", i, err)
		}
	}
	clk.Advance(5 * time.Second)

	if got := m.ElapsedSeconds(); got != 20 {
		t.Fatalf("expected elapsed 20 across pause cycles, got %d", got)
	}

	pauses, err := m.ListPauses(ctx)
	if err != nil {
		t.Fatalf("list pauses: %v", err)
	}
	if len(pauses) != 3 {
		t.Fatalf("expected 3 pause intervals, got %d", len(pauses))
	}
	for i, p := range pauses {
		if p.Open() {
			t.Fatalf("pause %d still open", i)
		}
		if p.PauseDurationSeconds != 30 {
			t.Fatalf("pause %d: expected duration 30, got %d", i, p.PauseDurationSeconds)
		}
		if want := int64(5 * (i + 1)); p.ElapsedSecondsWhenPaused != want {
			t.Fatalf("pause %d: expected banked %d, got %d", i, want, p.ElapsedSecondsWhenPaused)
		}
	}
}

func TestAttachAndReplaceAssets(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	beginTestSession(t, m)

	clk.Advance(2 * time.Second)
	evidence, err := m.RecordEvidence(ctx, Capture{FilePath: "/tmp/shots/main.png"})
	if err != nil {
		t.Fatalf("record evidence: %v", err)
	}

	clk.Advance(3 * time.Second)
	attached, err := m.AttachEvidenceAsset(ctx, evidence.ID, "/tmp/shots/detail.png")
	if err != nil {
		t.Fatalf("attach asset: %v", err)
	}
	if attached.Position != 1 {
		t.Fatalf("expected attached asset at position 1, got %d", attached.Position)
	}

	// Attaching must not rewrite the evidence's elapsed markers.
	stored, err := m.store.Evidences().Get(ctx, evidence.ID)
	if err != nil {
		t.Fatalf("get evidence: %v", err)
	}
	if stored.ElapsedSinceStartSeconds != evidence.ElapsedSinceStartSeconds ||
		stored.ElapsedSincePreviousSeconds != evidence.ElapsedSincePreviousSeconds {
		t.Fatal("attach must not change elapsed markers")
	}

	replaced, err := m.ReplaceEvidenceAsset(ctx, evidence.ID, 1, "/tmp/shots/detail-v2.png")
	if err != nil {
		t.Fatalf("replace asset: %v", err)
	}
	if replaced.Position != 1 || replaced.FileName != "detail-v2.png" {
		t.Fatalf("unexpected replaced asset: position %d file %s", replaced.Position, replaced.FileName)
	}

	assets, err := m.ListEvidenceAssets(ctx, evidence.ID)
	if err != nil {
		t.Fatalf("list assets: %v", err)
	}
	if len(assets) != 2 {
		t.Fatalf("expected 2 assets after replace, got %d", len(assets))
	}
	if assets[0].FileName != "main.png" || assets[1].FileName != "detail-v2.png" {
		t.Fatalf("unexpected asset order: %s, %s", assets[0].FileName, assets[1].FileName)
	}
}

func TestUpdateEvidenceKeepsMarkers(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	beginTestSession(t, m)

	clk.Advance(3 * time.Second)
	evidence, err := m.RecordEvidence(ctx, Capture{FilePath: "/tmp/a.png", Description: "before"})
	if err != nil {
		t.Fatalf("record evidence: %v", err)
	}

	clk.Advance(10 * time.Second)
	err = m.UpdateEvidence(ctx, evidence.ID, Capture{
		FilePath:     "/tmp/a.png",
		Description:  "after",
		Observations: "flaky banner",
	})
	if err != nil {
		t.Fatalf("update evidence: %v", err)
	}

	stored, err := m.store.Evidences().Get(ctx, evidence.ID)
	if err != nil {
		t.Fatalf("get evidence: %v", err)
	}
	if stored.Description != "after" || stored.Observations != "flaky banner" {
		t.Fatalf("unexpected metadata after update: %+v", stored)
	}
	if stored.ElapsedSinceStartSeconds != 3 || stored.ElapsedSincePreviousSeconds != 3 {
		t.Fatalf("update must not recompute markers, got (%d, %d)",
			stored.ElapsedSinceStartSeconds, stored.ElapsedSincePreviousSeconds)
	}
}

func TestUpdateOutputs(t *testing.T) {
	m, _ := newTestManager(t)
	ctx := context.Background()

	if err := m.UpdateOutputs(ctx, "/report.md", "/evidence"); err != nil {
		t.Fatalf("update outputs without session should be a no-op, got %v", err)
	}

	beginTestSession(t, m)
	if err := m.UpdateOutputs(ctx, "/report.md", "/evidence"); err != nil {
		t.Fatalf("update outputs: %v", err)
	}

	active := m.ActiveSession()
	if active.DocumentPath != "/report.md" || active.EvidenceDir != "/evidence" {
		t.Fatalf("snapshot not refreshed: %+v", active)
	}
}

func TestReattachRunningSession(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	session := beginTestSession(t, m)

	clk.Advance(5 * time.Second)
	if _, err := m.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}
	clk.Advance(60 * time.Second)
	if _, err := m.Resume(ctx); err != nil {
		t.Fatalf("resume: %v", err)
	}
	clk.Advance(2 * time.Second)
	if _, err := m.RecordEvidence(ctx, Capture{FilePath: "/tmp/one.png"}); err != nil {
		t.Fatalf("record evidence: %v", err)
	}

	// Simulate a fresh process against the same store.
	other := NewManager(m.store, clk, zerolog.Nop())
	found, err := other.FindOpenSession(ctx, "tester")
	if err != nil {
		t.Fatalf("find open session: %v", err)
	}
	if found.ID != session.ID {
		t.Fatalf("expected open session %s, got %s", session.ID, found.ID)
	}
	if _, err := other.Reattach(ctx, found.ID); err != nil {
		t.Fatalf("reattach: %v", err)
	}
	if other.State() != StateRunning {
		t.Fatalf("expected running state after reattach, got %s", other.State())
	}
	if got, want := other.ElapsedSeconds(), m.ElapsedSeconds(); got != want {
		t.Fatalf("reattached elapsed %d differs from original %d", got, want)
	}

	clk.Advance(3 * time.Second)
	evidence, err := other.RecordEvidence(ctx, Capture{FilePath: "/tmp/two.png"})
	if err != nil {
		t.Fatalf("record after reattach: %v", err)
	}
	if evidence.ElapsedSincePreviousSeconds != 3 {
		t.Fatalf("expected gap 3 after reattach, got %d", evidence.ElapsedSincePreviousSeconds)
	}
}

func TestReattachPausedSession(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	session := beginTestSession(t, m)

	clk.Advance(8 * time.Second)
	if _, err := m.Pause(ctx); err != nil {
		t.Fatalf("pause: %v", err)
	}
	clk.Advance(120 * time.Second)

	other := NewManager(m.store, clk, zerolog.Nop())
	if _, err := other.Reattach(ctx, session.ID); err != nil {
		t.Fatalf("reattach: %v", err)
	}
	if other.State() != StatePaused {
		t.Fatalf("expected paused state after reattach, got %s", other.State())
	}
	if got := other.ElapsedSeconds(); got != 8 {
		t.Fatalf("expected frozen elapsed 8 after reattach, got %d", got)
	}

	resumed, err := other.Resume(ctx)
	if err != nil {
		t.Fatalf("resume after reattach: %v", err)
	}
	if resumed.PauseDurationSeconds != 120 {
		t.Fatalf("expected pause duration 120, got %d", resumed.PauseDurationSeconds)
	}
}

func TestReattachFinalizedSession(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	session := beginTestSession(t, m)
	clk.Advance(time.Second)
	if _, err := m.Finalize(ctx); err != nil {
		t.Fatalf("finalize: %v", err)
	}

	other := NewManager(m.store, clk, zerolog.Nop())
	if _, err := other.Reattach(ctx, session.ID); !errors.Is(err, ErrSessionFinalized) {
		t.Fatalf("expected ErrSessionFinalized, got %v", err)
	}
	if _, err := other.FindOpenSession(ctx, ""); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound with no open sessions, got %v", err)
	}
}

func TestListEvidencesOrder(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	beginTestSession(t, m)

	// Two captures within the same second must keep insertion order.
	files := []string{"/tmp/a.png", "/tmp/b.png", "/tmp/c.png"}
	for i, f := range files {
		if i == 2 {
			clk.Advance(time.Second)
		}
		if _, err := m.RecordEvidence(ctx, Capture{FilePath: f}); err != nil {
			t.Fatalf("record %s: %v", f, err)
		}
	}

	evidences, err := m.ListEvidences(ctx)
	if err != nil {
		t.Fatalf("list evidences: %v", err)
	}
	if len(evidences) != 3 {
		t.Fatalf("expected 3 evidences, got %d", len(evidences))
	}
	for i, want := range []string{"a.png", "b.png", "c.png"} {
		if evidences[i].FileName != want {
			t.Fatalf("position %d: expected %s, got %s", i, want, evidences[i].FileName)
		}
	}
}

// failingPauseStore refuses pause creation to exercise the
// persist-before-commit guarantee.
type failingPauseStore struct {
	storage.PauseStore
}

var errPauseStore = errors.New("pause bucket unavailable")

func (failingPauseStore) Create(ctx context.Context, pause storage.NewPause) (*storage.PauseInterval, error) {
	return nil, errPauseStore
}

type failingStore struct {
	storage.Store
}

func (s failingStore) Pauses() storage.PauseStore {
	return failingPauseStore{PauseStore: s.Store.Pauses()}
}

func TestPausePersistFailureLeavesStateUntouched(t *testing.T) {
	m, clk := newTestManager(t)
	ctx := context.Background()

	beginTestSession(t, m)
	m.store = failingStore{Store: m.store}

	clk.Advance(4 * time.Second)
	_, err := m.Pause(ctx)
	var perr *PersistenceError
	if !errors.As(err, &perr) {
		t.Fatalf("expected PersistenceError, got %v", err)
	}
	if !errors.Is(err, errPauseStore) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}

	if m.State() != StateRunning {
		t.Fatalf("failed pause must leave the session running, got %s", m.State())
	}
	clk.Advance(2 * time.Second)
	if got := m.ElapsedSeconds(); got != 6 {
		t.Fatalf("timer must keep running after failed pause, expected 6, got %d", got)
	}
}

func TestElapsedExcludesPausesProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store, err := bolt.Open(t.TempDir() + "/testigo.db")
		if err != nil {
			rt.Fatalf("open store: %v", err)
		}
		defer func() { _ = store.Close() }()

		clk := &clock.TestClock{CurrentTime: time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)}
		m := NewManager(store, clk, zerolog.Nop())
		ctx := context.Background()

		if _, err := m.Begin(ctx, BeginParams{Name: "prop"}); err != nil {
			rt.Fatalf("begin: %v", err)
		}

		var running int64
		steps := rapid.IntRange(1, 12).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			runFor := int64(rapid.IntRange(0, 300).Draw(rt, "run"))
			clk.Advance(time.Duration(runFor) * time.Second)
			running += runFor

			if rapid.Bool().Draw(rt, "pause") {
				if _, err := m.Pause(ctx); err != nil {
					rt.Fatalf("pause: %v", err)
				}
				clk.Advance(time.Duration(rapid.IntRange(0, 3600).Draw(rt, "idle")) * time.Second)
				if _, err := m.Resume(ctx); err != nil {
					rt.Fatalf("resume: %v", err)
				}
			}
		}

		if got := m.ElapsedSeconds(); got != running {
			rt.Fatalf("elapsed %d, want running total %d", got, running)
		}

		final, err := m.Finalize(ctx)
		if err != nil {
			rt.Fatalf("finalize: %v", err)
		}
		if final.DurationSeconds != running {
			rt.Fatalf("final duration %d, want %d", final.DurationSeconds, running)
		}
	})
}
