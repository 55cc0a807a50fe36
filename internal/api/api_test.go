package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/victornm/tweetle/internal/api"
	"github.com/victornm/tweetle/internal/catalog"
	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/event"
	"github.com/victornm/tweetle/internal/game"
	"github.com/victornm/tweetle/internal/progress"
)

// launchDay has day index 417; with five puzzles today's puzzle is id 3.
var launchDay = time.Date(2026, 2, 22, 9, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestAPI_DailyGame(t *testing.T) {
	srv := makeServer(t)
	device := uuid.NewString()

	var today api.TodayResponse
	srv.do(t, device, http.MethodGet, "/api/v1/puzzles/today", "", http.StatusOK, &today)
	assert.Equal(t, 3, today.PuzzleID)
	assert.Equal(t, 1, today.PuzzleNumber)
	assert.Equal(t, "2026-02-22", today.Date)
	assert.Len(t, today.Candidates, 3)

	var s api.Session
	srv.do(t, device, http.MethodPost, "/api/v1/sessions", `{"mode":"daily"}`, http.StatusOK, &s)
	assert.Equal(t, domain.PhasePlaying, s.Phase)
	require.Len(t, s.Rounds, 1, "only the current round is shown")
	assert.Nil(t, s.Rounds[0].Author, "author hidden while playing")

	srv.do(t, device, http.MethodPost, "/api/v1/sessions/current/answers", `{"candidate":"Alice"}`, http.StatusOK, &s)
	assert.Equal(t, domain.PhaseReveal, s.Phase)
	require.NotNil(t, s.Feedback)
	assert.True(t, s.Feedback.Correct)
	require.NotNil(t, s.Rounds[0].Author)
	assert.Equal(t, "Alice", s.Rounds[0].Author.Name)

	// Answering again while revealing changes nothing.
	srv.do(t, device, http.MethodPost, "/api/v1/sessions/current/answers", `{"candidate":"Bob"}`, http.StatusOK, &s)
	assert.Equal(t, "Alice", s.SelectedAnswers[0])

	for i := 0; i < 2; i++ {
		srv.do(t, device, http.MethodPost, "/api/v1/sessions/current/advance", "", http.StatusOK, &s)
		srv.do(t, device, http.MethodPost, "/api/v1/sessions/current/answers", `{"candidate":"Carol"}`, http.StatusOK, &s)
	}
	srv.do(t, device, http.MethodPost, "/api/v1/sessions/current/advance", "", http.StatusOK, &s)

	assert.Equal(t, domain.PhaseFinished, s.Phase)
	assert.Equal(t, 1, s.Score)
	assert.Len(t, s.Rounds, 3)
	require.NotNil(t, s.Result)
	assert.Equal(t, "Barely Survived 😬", s.Result.Title)

	var share api.ShareResponse
	srv.do(t, device, http.MethodGet, "/api/v1/sessions/current/share", "", http.StatusOK, &share)
	assert.Equal(t, "I got 1/3 on Tweetle #1. Think you can beat me?\n\n✅❌❌\n\nhttps://tweetle.example", share.Text)

	var stats map[string]any
	srv.do(t, device, http.MethodGet, "/api/v1/stats", "", http.StatusOK, &stats)
	assert.EqualValues(t, 1, stats["gamesPlayed"])
	assert.EqualValues(t, 1, stats["currentStreak"])
	assert.Equal(t, "1", stats["averageScore"])

	// A new session of the same day shows the finished game.
	srv.do(t, device, http.MethodPost, "/api/v1/sessions", `{}`, http.StatusOK, &s)
	assert.Equal(t, domain.PhaseFinished, s.Phase)
	assert.Equal(t, 1, s.Score)
}

func TestAPI_MissedAndPast(t *testing.T) {
	srv := makeServer(t)
	device := uuid.NewString()

	var missed []api.MissedPuzzle
	srv.do(t, device, http.MethodGet, "/api/v1/puzzles/missed", "", http.StatusOK, &missed)
	require.Len(t, missed, 3)
	assert.Equal(t, api.MissedPuzzle{PuzzleID: 2, PuzzleNumber: 0, Offset: -1, Date: "2026-02-21", Label: "Feb 21"}, missed[0])

	var s api.Session
	srv.do(t, device, http.MethodPost, "/api/v1/sessions", `{"mode":"past","puzzleId":2}`, http.StatusOK, &s)
	assert.Equal(t, domain.ModePast, s.Mode)
	for i := 0; i < domain.RoundsPerPuzzle; i++ {
		srv.do(t, device, http.MethodPost, "/api/v1/sessions/current/answers", `{"candidate":"Bob"}`, http.StatusOK, &s)
		srv.do(t, device, http.MethodPost, "/api/v1/sessions/current/advance", "", http.StatusOK, &s)
	}
	assert.Equal(t, domain.PhaseFinished, s.Phase)

	srv.do(t, device, http.MethodGet, "/api/v1/puzzles/missed", "", http.StatusOK, &missed)
	assert.Equal(t, []int{1, 5}, []int{missed[0].PuzzleID, missed[1].PuzzleID})

	var stats api.Stats
	srv.do(t, device, http.MethodGet, "/api/v1/stats", "", http.StatusOK, &stats)
	assert.Equal(t, 1, stats.GamesPlayed)
	assert.Equal(t, 0, stats.CurrentStreak)
}

func TestAPI_Errors(t *testing.T) {
	tests := map[string]struct {
		method, path, body string
		wantStatus         int
		wantCode           string
	}{
		"no session yet": {
			method: http.MethodGet, path: "/api/v1/sessions/current",
			wantStatus: http.StatusNotFound, wantCode: "NotFound",
		},
		"answer without session": {
			method: http.MethodPost, path: "/api/v1/sessions/current/answers", body: `{"candidate":"Alice"}`,
			wantStatus: http.StatusNotFound, wantCode: "NotFound",
		},
		"missing candidate": {
			method: http.MethodPost, path: "/api/v1/sessions/current/answers", body: `{}`,
			wantStatus: http.StatusBadRequest, wantCode: "InvalidArgument",
		},
		"unknown past puzzle": {
			method: http.MethodPost, path: "/api/v1/sessions", body: `{"mode":"past","puzzleId":99}`,
			wantStatus: http.StatusNotFound, wantCode: "NotFound",
		},
		"unknown mode": {
			method: http.MethodPost, path: "/api/v1/sessions", body: `{"mode":"weekly"}`,
			wantStatus: http.StatusBadRequest, wantCode: "InvalidArgument",
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			srv := makeServer(t)
			var resp map[string]string
			srv.do(t, uuid.NewString(), tt.method, tt.path, tt.body, tt.wantStatus, &resp)
			assert.Equal(t, tt.wantCode, resp["code"])
			assert.NotEmpty(t, resp["message"])
		})
	}
}

func TestAPI_ShareBeforeFinished(t *testing.T) {
	srv := makeServer(t)
	device := uuid.NewString()

	srv.do(t, device, http.MethodPost, "/api/v1/sessions", `{"mode":"daily"}`, http.StatusOK, nil)

	var resp map[string]string
	srv.do(t, device, http.MethodGet, "/api/v1/sessions/current/share", "", http.StatusConflict, &resp)
	assert.Equal(t, "FailedPrecondition", resp["code"])
}

func TestAPI_DeviceIdentity(t *testing.T) {
	srv := makeServer(t)

	t.Run("issues a cookie to new devices", func(t *testing.T) {
		w := httptest.NewRecorder()
		srv.engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/stats", nil))
		require.Equal(t, http.StatusOK, w.Code)

		cookies := w.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, api.DeviceCookie, cookies[0].Name)
		_, err := uuid.Parse(cookies[0].Value)
		assert.NoError(t, err)
	})

	t.Run("keeps progress per cookie", func(t *testing.T) {
		device := uuid.NewString()
		cookie := &http.Cookie{Name: api.DeviceCookie, Value: device}

		req := httptest.NewRequest(http.MethodPost, "/api/v1/sessions", strings.NewReader(`{"mode":"daily"}`))
		req.AddCookie(cookie)
		w := httptest.NewRecorder()
		srv.engine.ServeHTTP(w, req)
		require.Equal(t, http.StatusOK, w.Code)

		req = httptest.NewRequest(http.MethodGet, "/api/v1/sessions/current", nil)
		req.AddCookie(cookie)
		w = httptest.NewRecorder()
		srv.engine.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, w.Result().Cookies(), "known device gets no new cookie")
	})

	t.Run("rejects a malformed device header", func(t *testing.T) {
		var resp map[string]string
		srv.do(t, "not-a-uuid", http.MethodGet, "/api/v1/stats", "", http.StatusBadRequest, &resp)
		assert.Equal(t, "InvalidArgument", resp["code"])
	})
}

func TestAPI_DailySessionExpiresAtMidnight(t *testing.T) {
	srv := makeServer(t)
	device := uuid.NewString()

	srv.do(t, device, http.MethodPost, "/api/v1/sessions", `{"mode":"daily"}`, http.StatusOK, nil)
	srv.do(t, device, http.MethodGet, "/api/v1/sessions/current", "", http.StatusOK, nil)

	srv.now = launchDay.AddDate(0, 0, 1)
	srv.do(t, device, http.MethodGet, "/api/v1/sessions/current", "", http.StatusNotFound, nil)
}

func TestAPI_PublishGameFinished(t *testing.T) {
	type (
		inputs struct {
			event domain.EventGameFinished
		}

		outputs struct {
			channels []string
		}
	)

	tests := map[string]struct {
		arrange func() inputs
		assert  func(t *testing.T, out outputs)
	}{
		"should notify the device and the games channel for a recorded game": {
			arrange: func() inputs {
				return inputs{event: domain.EventGameFinished{Device: "d1", Mode: domain.ModeDaily, PuzzleID: 3, Score: 2, Recorded: true}}
			},
			assert: func(t *testing.T, out outputs) {
				assert.ElementsMatch(t, []string{"tweetle:device:d1", "tweetle:games"}, out.channels)
			},
		},
		"should only notify the device for a replay": {
			arrange: func() inputs {
				return inputs{event: domain.EventGameFinished{Device: "d1", Mode: domain.ModePast, PuzzleID: 2}}
			},
			assert: func(t *testing.T, out outputs) {
				assert.Equal(t, []string{"tweetle:device:d1"}, out.channels)
			},
		},
	}

	for name, tt := range tests {
		tt := tt
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			in, out := tt.arrange(), outputs{}

			rs := miniredis.RunT(t)
			rc := redis.NewUniversalClient(&redis.UniversalOptions{
				Addrs: []string{rs.Addr()},
			})

			ps := rc.PSubscribe(ctx, "tweetle:*")
			defer ps.Close()
			_, err := ps.Receive(ctx)
			require.NoError(t, err, "should subscribe")

			a := api.New(api.Config{
				Router:       gin.New(),
				Redis:        rc,
				PubsubPrefix: "tweetle",
			})
			require.NoError(t, a.PublishGameFinished(ctx, in.event))

			want := 1
			if in.event.Recorded {
				want = 2
			}
			for len(out.channels) < want {
				select {
				case msg := <-ps.Channel():
					var n api.Notification
					require.NoError(t, json.Unmarshal([]byte(msg.Payload), &n))
					assert.Equal(t, domain.EventNameGameFinished, n.Event)
					out.channels = append(out.channels, msg.Channel)
				case <-ctx.Done():
					t.Fatal("timed out waiting for notifications")
				}
			}

			tt.assert(t, out)
		})
	}
}

type testServer struct {
	engine *gin.Engine
	now    time.Time
}

func makeServer(t *testing.T) *testServer {
	t.Helper()

	c, err := catalog.New(testPuzzles())
	require.NoError(t, err)

	eb := event.NewBus()
	t.Cleanup(eb.Stop)

	srv := &testServer{engine: gin.New(), now: launchDay}
	api.New(api.Config{
		Router:   srv.engine,
		EventBus: eb,
		Game: game.NewService(game.Config{
			Catalog:  c,
			EventBus: eb,
			Picker:   func(int) int { return 0 },
		}),
		Progress: progress.NewMemoryBackend(),
		Now:      func() time.Time { return srv.now },
		ShareURL: "https://tweetle.example",
	})

	return srv
}

func (s *testServer) do(t *testing.T, device, method, path, body string, wantStatus int, dest any) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(api.DeviceHeader, device)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	require.Equal(t, wantStatus, w.Code, "%s %s: %s", method, path, w.Body.String())

	if dest != nil {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), dest))
	}
}

func testPuzzles() []domain.Puzzle {
	var puzzles []domain.Puzzle
	for id := 1; id <= 5; id++ {
		puzzles = append(puzzles, domain.Puzzle{
			ID: id,
			Candidates: []domain.Candidate{
				{Name: "Alice", Handle: "alice"},
				{Name: "Bob", Handle: "bob"},
				{Name: "Carol", Handle: "carol"},
			},
			Rounds: []domain.Round{
				{Text: "first", Author: "Alice"},
				{Text: "second", Author: "Bob"},
				{Text: "third", Author: "Alice"},
			},
		})
	}

	return puzzles
}
