package memory

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// EpisodicStore holds time-anchored events and interaction sessions.
// Every record carries an event_time, defaulting to its creation time
// when the caller does not supply one.
type EpisodicStore struct {
	*LayerStore
}

// NewEpisodicStore creates the episodic layer store.
func NewEpisodicStore(backend Backend, embedder Embedder, config *StoreConfig) *EpisodicStore {
	return &EpisodicStore{LayerStore: NewLayerStore(LayerEpisodic, backend, embedder, config)}
}

// StoreEvent persists an episodic record. A zero eventTime falls back
// to a parseable event_time in the caller's metadata, then to the
// record's creation time. A non-zero eventTime always wins.
func (s *EpisodicStore) StoreEvent(ctx context.Context, content string, eventTime time.Time, tags []string, metadata map[string]string, source string) (*Record, error) {
	meta := copyMeta(metadata)
	if eventTime.IsZero() {
		if t, ok := ParseTime(meta[MetaEventTime]); ok {
			eventTime = t
		} else {
			eventTime = time.Now().UTC()
		}
	}
	meta[MetaEventTime] = FormatTime(eventTime)
	return s.Store(ctx, content, tags, meta, source)
}

// EventTime reads a record's event_time, falling back to created_at
// when the field is missing or unparseable.
func EventTime(rec *Record) time.Time {
	if v, ok := rec.Metadata[MetaEventTime]; ok {
		if t, ok := ParseTime(v); ok {
			return t
		}
	}
	return rec.CreatedAt
}

// RetrieveByTimeframe returns records whose event_time falls in
// [start, end], newest first. Ordering is stable for equal times.
func (s *EpisodicStore) RetrieveByTimeframe(ctx context.Context, start, end time.Time, limit int) ([]*Record, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: timeframe end before start", ErrValidation)
	}
	filter := &Filter{
		After:  map[string]string{MetaEventTime: FormatTime(start)},
		Before: map[string]string{MetaEventTime: FormatTime(end)},
	}
	recs, err := s.Find(ctx, filter, 0, 0)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(recs, func(i, j int) bool {
		return EventTime(recs[i]).After(EventTime(recs[j]))
	})
	if limit > 0 && len(recs) > limit {
		recs = recs[:limit]
	}
	return recs, nil
}

// CreateSession stores a session marker record and returns it. The
// session id doubles as the grouping key for member records.
func (s *EpisodicStore) CreateSession(ctx context.Context, name, description string) (*Record, error) {
	if strings.TrimSpace(name) == "" {
		return nil, fmt.Errorf("%w: empty session name", ErrValidation)
	}
	content := fmt.Sprintf("Session: %s", name)
	if description != "" {
		content += "\n" + description
	}
	id := NewID()
	meta := map[string]string{
		MetaIsSession:   "true",
		MetaSessionID:   id,
		MetaSessionName: name,
		MetaEventTime:   FormatTime(time.Now().UTC()),
	}
	rec, err := s.Store(ctx, content, []string{"session"}, meta, "session")
	if err != nil {
		return nil, err
	}
	log.Printf("[EPISODIC] created session %s (%q)", meta[MetaSessionID], name)
	return rec, nil
}

// AddToSession stores an event attached to an existing session.
// The session must exist; its name is copied onto the member record.
func (s *EpisodicStore) AddToSession(ctx context.Context, sessionID, content string, tags []string, metadata map[string]string, source string) (*Record, error) {
	session, ok, err := s.findSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: unknown session %s", ErrValidation, sessionID)
	}
	meta := copyMeta(metadata)
	meta[MetaSessionID] = sessionID
	if name, ok := session.Metadata[MetaSessionName]; ok {
		meta[MetaSessionName] = name
	}
	return s.StoreEvent(ctx, content, time.Time{}, append(tags, "session"), meta, source)
}

// SessionMemories returns a session's member records in event order,
// oldest first. The marker record itself is excluded.
func (s *EpisodicStore) SessionMemories(ctx context.Context, sessionID string) ([]*Record, error) {
	filter := &Filter{Equals: map[string]string{MetaSessionID: sessionID}}
	recs, err := s.Find(ctx, filter, 0, 0)
	if err != nil {
		return nil, err
	}
	members := recs[:0]
	for _, rec := range recs {
		if rec.Metadata[MetaIsSession] == "true" {
			continue
		}
		members = append(members, rec)
	}
	sort.SliceStable(members, func(i, j int) bool {
		return EventTime(members[i]).Before(EventTime(members[j]))
	})
	return members, nil
}

// DeleteSession removes a session marker and, when deleteMemories is
// set, all of its member records. Returns how many records were
// removed in total; a missing session yields (0, nil).
func (s *EpisodicStore) DeleteSession(ctx context.Context, sessionID string, deleteMemories bool) (int, error) {
	session, ok, err := s.findSession(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	ids := []string{session.ID}
	if deleteMemories {
		members, err := s.SessionMemories(ctx, sessionID)
		if err != nil {
			return 0, err
		}
		for _, rec := range members {
			ids = append(ids, rec.ID)
		}
	}
	n, err := s.backend.Delete(ctx, s.Collection(), ids...)
	if err != nil {
		return 0, fmt.Errorf("delete session: %w", err)
	}
	log.Printf("[EPISODIC] deleted session %s (%d records)", sessionID, n)
	return n, nil
}

// SessionCount counts session marker records.
func (s *EpisodicStore) SessionCount(ctx context.Context) (int, error) {
	n := 0
	filter := &Filter{Equals: map[string]string{MetaIsSession: "true"}}
	err := s.Scan(ctx, filter, func(*Record) bool {
		n++
		return true
	})
	return n, err
}

func (s *EpisodicStore) findSession(ctx context.Context, sessionID string) (*Record, bool, error) {
	filter := &Filter{Equals: map[string]string{
		MetaSessionID: sessionID,
		MetaIsSession: "true",
	}}
	recs, err := s.Find(ctx, filter, 0, 1)
	if err != nil {
		return nil, false, err
	}
	if len(recs) == 0 {
		return nil, false, nil
	}
	return recs[0], true, nil
}
