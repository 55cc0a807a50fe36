package telemetry

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/event"
)

const namespace = "tweetle"

var (
	answersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "answers_submitted_total",
		Help:      "Answers submitted, by game mode and result.",
	}, []string{"mode", "result"})

	gamesFinished = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "games_finished_total",
		Help:      "Games reaching the finished phase, by game mode and score.",
	}, []string{"mode", "score"})

	storageFallbacks = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "storage_fallbacks_total",
		Help:      "Progress store reads or writes that failed and fell back to defaults.",
	}, []string{"op", "key"})
)

func AnswerSubmitted(mode, result string) {
	answersSubmitted.WithLabelValues(mode, result).Inc()
}

// CountGameFinished is an event handler for domain.EventNameGameFinished.
func CountGameFinished(_ context.Context, e event.Event) error {
	if f, ok := e.(domain.EventGameFinished); ok {
		gamesFinished.WithLabelValues(string(f.Mode), strconv.Itoa(f.Score)).Inc()
	}

	return nil
}

func StorageFallback(op, key string) {
	storageFallbacks.WithLabelValues(op, key).Inc()
}
