package score

import (
	"math/rand/v2"

	"github.com/victornm/tweetle/internal/domain"
)

// Score counts the correct results. It accepts any number of rounds.
func Score(results []domain.RoundResult) int {
	n := 0
	for _, r := range results {
		if r == domain.ResultCorrect {
			n++
		}
	}

	return n
}

// Picker returns an index in [0, n). Tests substitute a deterministic one.
type Picker func(n int) int

// RandomIndex is the uniform Picker used in production.
func RandomIndex(n int) int {
	return rand.IntN(n)
}

// WrongMessage picks a wrong-answer reaction from WrongMessages.
func WrongMessage(pick Picker) string {
	if pick == nil {
		pick = RandomIndex
	}

	i := pick(len(WrongMessages))
	if i < 0 || i >= len(WrongMessages) {
		i = 0
	}

	return WrongMessages[i]
}

type Message struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// ResultMessage returns the end-of-game message for score. Unknown scores get the score-0 message.
func ResultMessage(score int) Message {
	if m, ok := resultMessages[score]; ok {
		return m
	}

	return resultMessages[0]
}
