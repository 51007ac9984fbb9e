package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mnemosyneos/mnemo/memory"
	"github.com/mnemosyneos/mnemo/memory/embedder/mock"
	"github.com/mnemosyneos/mnemo/memory/index/chromem"
)

func newEpisodic(t *testing.T) *memory.EpisodicStore {
	t.Helper()
	backend, err := chromem.New()
	if err != nil {
		t.Fatalf("create backend: %v", err)
	}
	return memory.NewEpisodicStore(backend, mock.New(), nil)
}

func TestStoreEventDefaultsEventTime(t *testing.T) {
	ctx := context.Background()
	store := newEpisodic(t)

	rec, err := store.StoreEvent(ctx, "deployed v2", time.Time{}, nil, nil, "test")
	if err != nil {
		t.Fatalf("store event: %v", err)
	}
	et := memory.EventTime(rec)
	if et.IsZero() {
		t.Fatal("event_time should default to now")
	}
	if time.Since(et) > time.Minute {
		t.Errorf("defaulted event_time too far in the past: %v", et)
	}
}

func TestStoreEventHonorsMetadataEventTime(t *testing.T) {
	ctx := context.Background()
	store := newEpisodic(t)

	want := time.Date(2026, 2, 14, 8, 30, 0, 0, time.UTC)
	rec, err := store.StoreEvent(ctx, "backfilled entry", time.Time{}, nil,
		map[string]string{memory.MetaEventTime: memory.FormatTime(want)}, "import")
	if err != nil {
		t.Fatalf("store event: %v", err)
	}
	if got := memory.EventTime(rec); !got.Equal(want) {
		t.Errorf("caller event_time metadata clobbered: %v", got)
	}

	// An explicit argument wins over metadata.
	explicit := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	rec, err = store.StoreEvent(ctx, "corrected entry", explicit, nil,
		map[string]string{memory.MetaEventTime: memory.FormatTime(want)}, "import")
	if err != nil {
		t.Fatalf("store event: %v", err)
	}
	if got := memory.EventTime(rec); !got.Equal(explicit) {
		t.Errorf("explicit event time should win, got %v", got)
	}

	// Garbage metadata still falls back to now.
	rec, err = store.StoreEvent(ctx, "sloppy entry", time.Time{}, nil,
		map[string]string{memory.MetaEventTime: "yesterday-ish"}, "import")
	if err != nil {
		t.Fatalf("store event: %v", err)
	}
	if time.Since(memory.EventTime(rec)) > time.Minute {
		t.Errorf("unparseable event_time should default to now, got %v", memory.EventTime(rec))
	}
}

func TestRetrieveByTimeframe(t *testing.T) {
	ctx := context.Background()
	store := newEpisodic(t)
	now := time.Now().UTC()

	old := now.Add(-10 * 24 * time.Hour)
	recent := now.Add(-2 * 24 * time.Hour)
	if _, err := store.StoreEvent(ctx, "old incident", old, nil, nil, "test"); err != nil {
		t.Fatalf("store: %v", err)
	}
	if _, err := store.StoreEvent(ctx, "recent incident", recent, nil, nil, "test"); err != nil {
		t.Fatalf("store: %v", err)
	}

	week, err := store.RetrieveByTimeframe(ctx, now.Add(-7*24*time.Hour), now, 0)
	if err != nil {
		t.Fatalf("retrieve 7d: %v", err)
	}
	if len(week) != 1 || week[0].Content != "recent incident" {
		t.Fatalf("7d window should hold only the recent event, got %d", len(week))
	}

	month, err := store.RetrieveByTimeframe(ctx, now.Add(-30*24*time.Hour), now, 0)
	if err != nil {
		t.Fatalf("retrieve 30d: %v", err)
	}
	if len(month) != 2 {
		t.Fatalf("30d window should hold both events, got %d", len(month))
	}
	if !memory.EventTime(month[0]).After(memory.EventTime(month[1])) {
		t.Error("timeframe results should be newest first")
	}

	if _, err := store.RetrieveByTimeframe(ctx, now, now.Add(-time.Hour), 0); !errors.Is(err, memory.ErrValidation) {
		t.Errorf("inverted timeframe should be a validation error, got %v", err)
	}
}

func TestSessionLifecycle(t *testing.T) {
	ctx := context.Background()
	store := newEpisodic(t)

	session, err := store.CreateSession(ctx, "debugging", "chasing the deadlock")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	sessionID := session.Metadata[memory.MetaSessionID]
	if sessionID == "" {
		t.Fatal("session marker missing session_id")
	}
	if session.Metadata[memory.MetaIsSession] != "true" {
		t.Error("session marker missing is_session")
	}

	for _, content := range []string{"found the stuck goroutine", "fixed the lock ordering"} {
		if _, err := store.AddToSession(ctx, sessionID, content, nil, nil, "test"); err != nil {
			t.Fatalf("add to session: %v", err)
		}
	}

	members, err := store.SessionMemories(ctx, sessionID)
	if err != nil {
		t.Fatalf("session memories: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %d", len(members))
	}
	for _, m := range members {
		if m.Metadata[memory.MetaIsSession] == "true" {
			t.Error("marker record leaked into members")
		}
		if m.Metadata[memory.MetaSessionName] != "debugging" {
			t.Errorf("session name not copied: %v", m.Metadata)
		}
	}

	if n, err := store.SessionCount(ctx); err != nil || n != 1 {
		t.Errorf("session count = %d, %v", n, err)
	}

	if _, err := store.AddToSession(ctx, "missing-session", "orphan", nil, nil, "test"); !errors.Is(err, memory.ErrValidation) {
		t.Errorf("adding to unknown session should fail validation, got %v", err)
	}

	n, err := store.DeleteSession(ctx, sessionID, true)
	if err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if n != 3 {
		t.Errorf("expected marker plus 2 members deleted, got %d", n)
	}
	if count, _ := store.Count(ctx); count != 0 {
		t.Errorf("records remain after session delete: %d", count)
	}

	if n, err := store.DeleteSession(ctx, sessionID, true); err != nil || n != 0 {
		t.Errorf("deleting a missing session should be a no-op, got %d, %v", n, err)
	}
}

func TestDeleteSessionKeepsMemories(t *testing.T) {
	ctx := context.Background()
	store := newEpisodic(t)

	session, err := store.CreateSession(ctx, "research", "")
	if err != nil {
		t.Fatalf("create session: %v", err)
	}
	sessionID := session.Metadata[memory.MetaSessionID]
	if _, err := store.AddToSession(ctx, sessionID, "a finding", nil, nil, "test"); err != nil {
		t.Fatalf("add to session: %v", err)
	}

	n, err := store.DeleteSession(ctx, sessionID, false)
	if err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if n != 1 {
		t.Errorf("only the marker should be deleted, got %d", n)
	}
	if count, _ := store.Count(ctx); count != 1 {
		t.Errorf("member record should survive, count = %d", count)
	}
}
