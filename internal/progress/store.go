package progress

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"slices"
	"time"

	"github.com/victornm/tweetle/internal/dayindex"
	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/score"
	"github.com/victornm/tweetle/internal/telemetry"
)

const (
	KeyStats     = "tweetle-stats"
	KeyHistory   = "tweetle-history"
	KeySnapshot  = "tweetle-state"
	KeyCompleted = "tweetle-played-ids"
)

// Store is the typed view over a device's KV. Its methods never fail: a value
// that cannot be read or decoded is replaced by its default, and a write that
// fails is logged and dropped.
type Store struct {
	kv KV
}

func NewStore(kv KV) *Store {
	return &Store{kv: kv}
}

// Stats returns the aggregate stats, zero valued if none were saved yet.
func (s *Store) Stats(ctx context.Context) domain.DailyStats {
	st, _ := load[domain.DailyStats](ctx, s.kv, KeyStats)
	return st
}

// History returns the daily records in the order they were written.
func (s *Store) History(ctx context.Context) []domain.DailyRecord {
	h, _ := load[[]domain.DailyRecord](ctx, s.kv, KeyHistory)
	return h
}

// CompletedIDs returns the ids of every puzzle finished in any mode, in completion order.
func (s *Store) CompletedIDs(ctx context.Context) []int {
	ids, _ := load[[]int](ctx, s.kv, KeyCompleted)
	return ids
}

// Completed returns CompletedIDs as a set.
func (s *Store) Completed(ctx context.Context) map[int]struct{} {
	ids := s.CompletedIDs(ctx)
	set := make(map[int]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}

	return set
}

// RecordFor returns the daily record written on date (YYYY-MM-DD).
func (s *Store) RecordFor(ctx context.Context, date string) (domain.DailyRecord, bool) {
	for _, r := range s.History(ctx) {
		if r.Date == date {
			return r, true
		}
	}

	return domain.DailyRecord{}, false
}

// TodayRecord returns the daily record of now's calendar date.
func (s *Store) TodayRecord(ctx context.Context, now time.Time) (domain.DailyRecord, bool) {
	return s.RecordFor(ctx, dayindex.DateString(now))
}

// SaveDailyResult archives today's daily result and updates the stats. The first
// write of a date wins: if today already has a record nothing is changed and
// false is returned.
func (s *Store) SaveDailyResult(ctx context.Context, now time.Time, puzzleID int, results [domain.RoundsPerPuzzle]domain.RoundResult) bool {
	var (
		today     = dayindex.DateString(now)
		yesterday = dayindex.DateString(dayindex.DateForOffset(now, -1))
		history   = s.History(ctx)
	)

	if slices.ContainsFunc(history, func(r domain.DailyRecord) bool { return r.Date == today }) {
		return false
	}

	sc := score.Score(results[:])
	history = append(history, domain.DailyRecord{
		Date:     today,
		PuzzleID: puzzleID,
		Results:  results,
		Score:    sc,
	})
	s.set(ctx, KeyHistory, history)

	s.markCompleted(ctx, puzzleID)

	st := s.Stats(ctx)
	countGame(&st, sc)
	if slices.ContainsFunc(history, func(r domain.DailyRecord) bool { return r.Date == yesterday }) {
		st.CurrentStreak++
	} else {
		st.CurrentStreak = 1
	}
	st.MaxStreak = max(st.MaxStreak, st.CurrentStreak)
	s.set(ctx, KeyStats, st)

	return true
}

// SavePastResult records a catch-up game. Only the first completion of a puzzle
// counts; history and streak are reserved for the daily game and never change here.
func (s *Store) SavePastResult(ctx context.Context, puzzleID int, results [domain.RoundsPerPuzzle]domain.RoundResult) bool {
	if slices.Contains(s.CompletedIDs(ctx), puzzleID) {
		return false
	}

	s.markCompleted(ctx, puzzleID)

	st := s.Stats(ctx)
	countGame(&st, score.Score(results[:]))
	s.set(ctx, KeyStats, st)

	return true
}

// SaveSnapshot stores the in-progress daily game stamped with now's date.
func (s *Store) SaveSnapshot(ctx context.Context, now time.Time, state domain.GameState) {
	s.set(ctx, KeySnapshot, domain.Snapshot{
		GameState: state,
		Date:      dayindex.DateString(now),
	})
}

// Snapshot returns the in-progress daily game saved today. A snapshot from
// another day is deleted and reported as absent.
func (s *Store) Snapshot(ctx context.Context, now time.Time) (domain.GameState, bool) {
	snap, ok := load[domain.Snapshot](ctx, s.kv, KeySnapshot)
	if !ok {
		return domain.GameState{}, false
	}

	if snap.Date != dayindex.DateString(now) {
		slog.DebugContext(ctx, "progress: discarding stale snapshot", "date", snap.Date)
		s.ClearSnapshot(ctx)
		return domain.GameState{}, false
	}

	return snap.GameState, true
}

func (s *Store) ClearSnapshot(ctx context.Context) {
	if err := s.kv.Delete(ctx, KeySnapshot); err != nil {
		slog.WarnContext(ctx, "progress: delete failed", "key", KeySnapshot, "error", err)
		telemetry.StorageFallback("delete", KeySnapshot)
	}
}

func (s *Store) markCompleted(ctx context.Context, puzzleID int) {
	ids := s.CompletedIDs(ctx)
	if slices.Contains(ids, puzzleID) {
		return
	}

	s.set(ctx, KeyCompleted, append(ids, puzzleID))
}

func countGame(st *domain.DailyStats, sc int) {
	st.GamesPlayed++
	if sc >= 0 && sc < len(st.Distribution) {
		st.Distribution[sc]++
	}
}

// load decodes key into a T. The zero T is returned, with false, when the value
// is missing or cannot be read or decoded.
func load[T any](ctx context.Context, kv KV, key string) (T, bool) {
	var v T

	b, err := kv.Get(ctx, key)
	if stderrors.Is(err, ErrNotFound) {
		return v, false
	}
	if err != nil {
		slog.WarnContext(ctx, "progress: read failed, using default", "key", key, "error", err)
		telemetry.StorageFallback("read", key)
		return v, false
	}

	if err := json.Unmarshal(b, &v); err != nil {
		slog.WarnContext(ctx, "progress: corrupted value, using default", "key", key, "error", err)
		telemetry.StorageFallback("decode", key)
		var zero T
		return zero, false
	}

	return v, true
}

func (s *Store) set(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err == nil {
		err = s.kv.Set(ctx, key, b)
	}

	if err != nil {
		slog.WarnContext(ctx, "progress: write failed", "key", key, "error", err)
		telemetry.StorageFallback("write", key)
	}
}
