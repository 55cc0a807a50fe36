package game

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/errors"
	"github.com/victornm/tweetle/internal/event"
	"github.com/victornm/tweetle/internal/progress"
	"github.com/victornm/tweetle/internal/score"
	"github.com/victornm/tweetle/internal/telemetry"
)

// Feedback is shown after an answer until the player advances.
type Feedback struct {
	Correct bool             `json:"correct"`
	Message string           `json:"message"`
	Author  domain.Candidate `json:"author"`
}

// State is a consistent copy of a session.
type State struct {
	domain.GameState
	Device       string
	Mode         domain.Mode
	Puzzle       domain.Puzzle
	PuzzleNumber int
	Feedback     *Feedback
}

func (st State) Score() int {
	return score.Score(st.Results[:])
}

// ShareText returns the shareable summary of a finished game.
func (st State) ShareText(url string) (string, error) {
	if st.Phase != domain.PhaseFinished {
		return "", errors.New(errors.CodeFailedPrecondition, errors.WithMessagef("game is not finished"))
	}

	return score.ShareText(st.PuzzleNumber, st.Results[:], url), nil
}

// Session is one play-through of a puzzle. It moves Playing(i) -> Reveal(i) ->
// Playing(i+1) and ends in Finished after the last round. Calls that do not fit
// the current phase return errors.ErrInvalidTransition and leave it untouched.
type Session struct {
	mu sync.Mutex

	device string
	mode   domain.Mode
	puzzle domain.Puzzle
	number int

	state    domain.GameState
	feedback *Feedback

	store *progress.Store
	eb    *event.Bus
	pick  score.Picker
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		GameState:    s.state,
		Device:       s.device,
		Mode:         s.mode,
		Puzzle:       s.puzzle,
		PuzzleNumber: s.number,
	}

	if s.feedback != nil {
		f := *s.feedback
		st.Feedback = &f
	}

	return st
}

// SubmitAnswer records name as the answer of the current round and reveals it.
func (s *Session) SubmitAnswer(ctx context.Context, now time.Time, name string) (Feedback, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != domain.PhasePlaying {
		return Feedback{}, errors.ErrInvalidTransition
	}

	if _, ok := s.puzzle.Candidate(name); !ok {
		return Feedback{}, errors.InvalidArgument("unknown candidate %q", name)
	}

	i := s.state.CurrentRound
	result := domain.ResultWrong
	if name == s.puzzle.Rounds[i].Author {
		result = domain.ResultCorrect
	}

	s.state.Results[i] = result
	s.state.SelectedAnswers[i] = name
	s.state.Phase = domain.PhaseReveal
	s.feedback = s.revealFeedback()

	if s.mode == domain.ModeDaily {
		s.store.SaveSnapshot(ctx, now, s.state)
	}

	telemetry.AnswerSubmitted(string(s.mode), string(result))
	return *s.feedback, nil
}

// Advance leaves the reveal of the current round. After the last round the game
// is finished and its result recorded.
func (s *Session) Advance(ctx context.Context, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Phase != domain.PhaseReveal {
		return errors.ErrInvalidTransition
	}

	s.feedback = nil

	if s.state.CurrentRound < domain.RoundsPerPuzzle-1 {
		s.state.CurrentRound++
		s.state.Phase = domain.PhasePlaying
		if s.mode == domain.ModeDaily {
			s.store.SaveSnapshot(ctx, now, s.state)
		}
		return nil
	}

	s.state.CurrentRound = domain.RoundsPerPuzzle
	s.state.Phase = domain.PhaseFinished

	var recorded bool
	switch s.mode {
	case domain.ModeDaily:
		recorded = s.store.SaveDailyResult(ctx, now, s.puzzle.ID, s.state.Results)
		s.store.ClearSnapshot(ctx)
	case domain.ModePast:
		recorded = s.store.SavePastResult(ctx, s.puzzle.ID, s.state.Results)
	}

	sc := score.Score(s.state.Results[:])
	slog.InfoContext(ctx, "game: finished",
		"device", s.device,
		"mode", s.mode,
		"puzzle", s.puzzle.ID,
		"score", sc,
		"recorded", recorded,
	)

	if s.eb != nil {
		s.eb.Publish(ctx, domain.EventGameFinished{
			Device:       s.device,
			Mode:         s.mode,
			PuzzleID:     s.puzzle.ID,
			PuzzleNumber: s.number,
			Results:      s.state.Results,
			Score:        sc,
			Recorded:     recorded,
		})
	}

	return nil
}

// revealFeedback builds the feedback of the round being revealed.
func (s *Session) revealFeedback() *Feedback {
	round := s.puzzle.Rounds[s.state.CurrentRound]
	author, _ := s.puzzle.Candidate(round.Author)

	f := &Feedback{Author: author}
	if s.state.Results[s.state.CurrentRound] == domain.ResultCorrect {
		f.Correct = true
		f.Message = score.CorrectMessage
	} else {
		f.Message = score.WrongMessage(s.pick)
	}

	return f
}
