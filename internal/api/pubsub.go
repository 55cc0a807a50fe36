package api

import (
	"context"
	"encoding/json"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/victornm/tweetle/internal/domain"
)

type (
	Notification struct {
		Event string `json:"event"`
		Data  any    `json:"data"`
	}

	GameFinished struct {
		Mode         domain.Mode                                `json:"mode"`
		PuzzleID     int                                        `json:"puzzleId"`
		PuzzleNumber int                                        `json:"puzzleNumber"`
		Results      [domain.RoundsPerPuzzle]domain.RoundResult `json:"results"`
		Score        int                                        `json:"score"`
		Recorded     bool                                       `json:"recorded"`
	}
)

// PublishGameFinished notifies the device's other clients so they can refresh
// their stats, and announces recorded games on the shared games channel.
func (a *API) PublishGameFinished(ctx context.Context, e domain.EventGameFinished) error {
	data := GameFinished{
		Mode:         e.Mode,
		PuzzleID:     e.PuzzleID,
		PuzzleNumber: e.PuzzleNumber,
		Results:      e.Results,
		Score:        e.Score,
		Recorded:     e.Recorded,
	}

	var eg errgroup.Group

	eg.Go(func() error {
		return a.publishNotification(ctx, a.deviceChannel(e.Device), e.Name(), data)
	})

	if e.Recorded {
		eg.Go(func() error {
			return a.publishNotification(ctx, a.gamesChannel(), e.Name(), data)
		})
	}

	return eg.Wait()
}

func (a *API) publishNotification(ctx context.Context, channel, event string, data any) error {
	n := Notification{
		Event: event,
		Data:  data,
	}

	b, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("pubsub: marshal %s: %v", event, err)
	}

	return a.redis.Publish(ctx, channel, b).Err()
}

func (a *API) deviceChannel(device string) string {
	return fmt.Sprintf("%s:device:%s", a.prefix, device)
}

func (a *API) gamesChannel() string {
	return fmt.Sprintf("%s:games", a.prefix)
}
