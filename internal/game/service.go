// Package game runs Tweetle sessions: it resolves the puzzle to play, resumes
// the day's progress and records finished games in the device's progress store.
package game

import (
	"context"
	"log/slog"
	"time"

	"github.com/victornm/tweetle/internal/catalog"
	"github.com/victornm/tweetle/internal/dayindex"
	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/errors"
	"github.com/victornm/tweetle/internal/event"
	"github.com/victornm/tweetle/internal/progress"
	"github.com/victornm/tweetle/internal/score"
	"github.com/victornm/tweetle/internal/selector"
)

type Config struct {
	Catalog  *catalog.Catalog
	EventBus *event.Bus
	// Picker chooses wrong-answer messages. Defaults to score.RandomIndex.
	Picker score.Picker
	// Lookback is how many past days MissedPuzzles scans. Defaults to selector.DefaultLookback.
	Lookback int
}

type Service struct {
	catalog  *catalog.Catalog
	eb       *event.Bus
	pick     score.Picker
	lookback int
}

func NewService(c Config) *Service {
	s := &Service{
		catalog:  c.Catalog,
		eb:       c.EventBus,
		pick:     c.Picker,
		lookback: c.Lookback,
	}

	if s.pick == nil {
		s.pick = score.RandomIndex
	}
	if s.lookback <= 0 {
		s.lookback = selector.DefaultLookback
	}

	return s
}

// Today is the daily puzzle of a calendar date.
type Today struct {
	Puzzle       domain.Puzzle
	PuzzleNumber int
	Date         time.Time
}

func (s *Service) Today(now time.Time) (Today, error) {
	p, err := selector.TodaysPuzzle(s.catalog, now)
	if err != nil {
		return Today{}, err
	}

	return Today{
		Puzzle:       p,
		PuzzleNumber: dayindex.PuzzleNumber(dayindex.Index(now), 0),
		Date:         dayindex.DateForOffset(now, 0),
	}, nil
}

// StartSessionRequest represents a request to play a puzzle.
type StartSessionRequest struct {
	Device string
	Mode   domain.Mode
	// PuzzleID is required in past mode. In daily mode it may be left empty and
	// otherwise must be today's puzzle.
	PuzzleID int
}

// StartSession starts a session for the device owning store.
//
// A daily session resumes today's progress: a finished game is shown as
// finished, and a snapshot saved today for the same puzzle continues where it
// stopped. Past sessions always start fresh.
func (s *Service) StartSession(ctx context.Context, store *progress.Store, now time.Time, req StartSessionRequest) (*Session, error) {
	switch req.Mode {
	case domain.ModeDaily:
		return s.startDaily(ctx, store, now, req)
	case domain.ModePast:
		return s.startPast(store, now, req)
	default:
		return nil, errors.InvalidArgument("unknown mode %q", req.Mode)
	}
}

func (s *Service) startDaily(ctx context.Context, store *progress.Store, now time.Time, req StartSessionRequest) (*Session, error) {
	today, err := s.Today(now)
	if err != nil {
		return nil, err
	}

	if req.PuzzleID != 0 && req.PuzzleID != today.Puzzle.ID {
		return nil, errors.InvalidArgument("puzzle %d is not today's puzzle", req.PuzzleID)
	}

	ss := s.newSession(store, req.Device, domain.ModeDaily, today.Puzzle, today.PuzzleNumber)

	if rec, ok := store.TodayRecord(ctx, now); ok {
		ss.state.CurrentRound = domain.RoundsPerPuzzle
		ss.state.Results = rec.Results
		ss.state.Phase = domain.PhaseFinished
		return ss, nil
	}

	if snap, ok := store.Snapshot(ctx, now); ok {
		if snap.PuzzleID == today.Puzzle.ID && validSnapshot(snap) {
			ss.state = snap
			if ss.state.Phase == domain.PhaseReveal {
				ss.feedback = ss.revealFeedback()
			}
			return ss, nil
		}

		slog.DebugContext(ctx, "game: ignoring snapshot of another puzzle",
			"device", req.Device,
			"snapshot", snap.PuzzleID,
			"puzzle", today.Puzzle.ID,
		)
	}

	return ss, nil
}

func (s *Service) startPast(store *progress.Store, now time.Time, req StartSessionRequest) (*Session, error) {
	if req.PuzzleID == 0 {
		return nil, errors.InvalidArgument("puzzle id is required in past mode")
	}

	p, ok := s.catalog.ByID(req.PuzzleID)
	if !ok {
		return nil, errors.NotFound("puzzle not found: id=%d", req.PuzzleID)
	}

	return s.newSession(store, req.Device, domain.ModePast, p, s.lastScheduled(now, p.ID)), nil
}

// lastScheduled returns the puzzle number of the most recent day before today
// that was scheduled to play puzzle id.
func (s *Service) lastScheduled(now time.Time, id int) int {
	idx := dayindex.Index(now)
	for offset := -1; offset >= -s.catalog.Len(); offset-- {
		if s.catalog.At(selector.Slot(idx+offset, s.catalog.Len())).ID == id {
			return dayindex.PuzzleNumber(idx, offset)
		}
	}

	return dayindex.PuzzleNumber(idx, 0)
}

func (s *Service) newSession(store *progress.Store, device string, mode domain.Mode, p domain.Puzzle, number int) *Session {
	return &Session{
		device: device,
		mode:   mode,
		puzzle: p,
		number: number,
		state: domain.GameState{
			PuzzleID: p.ID,
			Phase:    domain.PhasePlaying,
		},
		store: store,
		eb:    s.eb,
		pick:  s.pick,
	}
}

// MissedPuzzles lists recent daily puzzles the device has not completed.
func (s *Service) MissedPuzzles(ctx context.Context, store *progress.Store, now time.Time) []selector.MissedPuzzle {
	return selector.RecentMissed(s.catalog, now, store.Completed(ctx), s.lookback)
}

func (s *Service) Stats(ctx context.Context, store *progress.Store) domain.DailyStats {
	return store.Stats(ctx)
}

// validSnapshot rejects snapshots whose round and phase cannot be resumed.
func validSnapshot(st domain.GameState) bool {
	switch st.Phase {
	case domain.PhasePlaying, domain.PhaseReveal:
		return st.CurrentRound >= 0 && st.CurrentRound < domain.RoundsPerPuzzle
	default:
		return false
	}
}
