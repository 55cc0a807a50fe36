package api

import (
	stderrors "errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/victornm/tweetle/internal/dayindex"
	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/errors"
	"github.com/victornm/tweetle/internal/game"
	"github.com/victornm/tweetle/internal/score"
)

type (
	TodayResponse struct {
		PuzzleID     int                `json:"puzzleId"`
		PuzzleNumber int                `json:"puzzleNumber"`
		Date         string             `json:"date"`
		Candidates   []domain.Candidate `json:"candidates"`
	}

	StartSessionRequest struct {
		Mode     domain.Mode `json:"mode"`
		PuzzleID int         `json:"puzzleId"`
	}

	SubmitAnswerRequest struct {
		Candidate string `json:"candidate" binding:"required"`
	}

	Session struct {
		Mode            domain.Mode                                `json:"mode"`
		PuzzleID        int                                        `json:"puzzleId"`
		PuzzleNumber    int                                        `json:"puzzleNumber"`
		Phase           domain.Phase                               `json:"phase"`
		CurrentRound    int                                        `json:"currentRound"`
		Results         [domain.RoundsPerPuzzle]domain.RoundResult `json:"results"`
		SelectedAnswers [domain.RoundsPerPuzzle]string             `json:"selectedAnswers"`
		Candidates      []domain.Candidate                         `json:"candidates"`
		Rounds          []Round                                    `json:"rounds"`
		Feedback        *game.Feedback                             `json:"feedback,omitempty"`
		Score           int                                        `json:"score"`
		Result          *score.Message                             `json:"result,omitempty"`
	}

	Round struct {
		Text      string            `json:"text"`
		Author    *domain.Candidate `json:"author,omitempty"`
		SourceURL string            `json:"sourceUrl,omitempty"`
	}

	MissedPuzzle struct {
		PuzzleID     int    `json:"puzzleId"`
		PuzzleNumber int    `json:"puzzleNumber"`
		Offset       int    `json:"offset"`
		Date         string `json:"date"`
		Label        string `json:"label"`
	}

	ShareResponse struct {
		Text string `json:"text"`
	}

	Stats struct {
		GamesPlayed   int                             `json:"gamesPlayed"`
		CurrentStreak int                             `json:"currentStreak"`
		MaxStreak     int                             `json:"maxStreak"`
		Distribution  [domain.RoundsPerPuzzle + 1]int `json:"distribution"`
		AverageScore  decimal.Decimal                 `json:"averageScore"`
	}
)

func (a *API) GetTodaysPuzzle(c *gin.Context) {
	today, err := a.gs.Today(a.now())
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, TodayResponse{
		PuzzleID:     today.Puzzle.ID,
		PuzzleNumber: today.PuzzleNumber,
		Date:         dayindex.DateString(today.Date),
		Candidates:   today.Puzzle.Candidates,
	})
}

func (a *API) StartSession(c *gin.Context) {
	var req StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
		a.abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid request body"), errors.WithCause(err)))
		return
	}

	if req.Mode == "" {
		req.Mode = domain.ModeDaily
	}

	now := a.now()
	ss, err := a.gs.StartSession(c.Request.Context(), a.store(c), now, game.StartSessionRequest{
		Device:   a.device(c),
		Mode:     req.Mode,
		PuzzleID: req.PuzzleID,
	})
	if err != nil {
		a.abort(c, err)
		return
	}

	a.sessions.put(a.device(c), now, ss)
	c.JSON(http.StatusOK, toSession(ss.State()))
}

func (a *API) GetCurrentSession(c *gin.Context) {
	ss, ok := a.current(c)
	if !ok {
		return
	}

	c.JSON(http.StatusOK, toSession(ss.State()))
}

func (a *API) SubmitAnswer(c *gin.Context) {
	var req SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		a.abort(c, errors.New(errors.CodeInvalidArgument, errors.WithMessagef("candidate is required"), errors.WithCause(err)))
		return
	}

	ss, ok := a.current(c)
	if !ok {
		return
	}

	_, err := ss.SubmitAnswer(c.Request.Context(), a.now(), req.Candidate)
	if !a.ignoreTransition(c, err) {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(ss.State()))
}

func (a *API) Advance(c *gin.Context) {
	ss, ok := a.current(c)
	if !ok {
		return
	}

	err := ss.Advance(c.Request.Context(), a.now())
	if !a.ignoreTransition(c, err) {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, toSession(ss.State()))
}

func (a *API) Share(c *gin.Context) {
	ss, ok := a.current(c)
	if !ok {
		return
	}

	text, err := ss.State().ShareText(a.shareURL)
	if err != nil {
		a.abort(c, err)
		return
	}

	c.JSON(http.StatusOK, ShareResponse{Text: text})
}

func (a *API) ListMissedPuzzles(c *gin.Context) {
	missed := a.gs.MissedPuzzles(c.Request.Context(), a.store(c), a.now())

	resp := make([]MissedPuzzle, 0, len(missed))
	for _, m := range missed {
		resp = append(resp, MissedPuzzle{
			PuzzleID:     m.Puzzle.ID,
			PuzzleNumber: m.PuzzleNumber,
			Offset:       m.Offset,
			Date:         dayindex.DateString(m.Date),
			Label:        dayindex.ShortDate(m.Date),
		})
	}

	c.JSON(http.StatusOK, resp)
}

func (a *API) GetStats(c *gin.Context) {
	st := a.gs.Stats(c.Request.Context(), a.store(c))

	c.JSON(http.StatusOK, Stats{
		GamesPlayed:   st.GamesPlayed,
		CurrentStreak: st.CurrentStreak,
		MaxStreak:     st.MaxStreak,
		Distribution:  st.Distribution,
		AverageScore:  st.AverageScore(),
	})
}

// current returns the device's session, or aborts with not found.
func (a *API) current(c *gin.Context) (*game.Session, bool) {
	ss, ok := a.sessions.current(a.device(c), a.now())
	if !ok {
		a.abort(c, errors.NotFound("no session in progress"))
		return nil, false
	}

	return ss, true
}

// ignoreTransition reports whether err can be ignored. Actions that do not fit
// the session's phase are no-ops and answered with the unchanged session.
func (a *API) ignoreTransition(c *gin.Context, err error) bool {
	if err == nil {
		return true
	}

	if stderrors.Is(err, errors.ErrInvalidTransition) {
		slog.DebugContext(c.Request.Context(), "api: ignoring action",
			"device", a.device(c),
			"path", c.FullPath(),
		)
		return true
	}

	return false
}

func toSession(st game.State) Session {
	s := Session{
		Mode:            st.Mode,
		PuzzleID:        st.Puzzle.ID,
		PuzzleNumber:    st.PuzzleNumber,
		Phase:           st.Phase,
		CurrentRound:    st.CurrentRound,
		Results:         st.Results,
		SelectedAnswers: st.SelectedAnswers,
		Candidates:      st.Puzzle.Candidates,
		Feedback:        st.Feedback,
		Score:           st.Score(),
	}

	// Rounds are shown up to the current one; authors only once revealed.
	for i, r := range st.Puzzle.Rounds {
		if i > st.CurrentRound {
			break
		}

		round := Round{Text: r.Text, SourceURL: r.SourceURL}
		if i < st.CurrentRound || st.Phase != domain.PhasePlaying {
			if author, ok := st.Puzzle.Candidate(r.Author); ok {
				round.Author = &author
			}
		}
		s.Rounds = append(s.Rounds, round)
	}

	if st.Phase == domain.PhaseFinished {
		m := score.ResultMessage(s.Score)
		s.Result = &m
	}

	return s
}
