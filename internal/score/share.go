package score

import (
	"fmt"
	"strings"

	"github.com/victornm/tweetle/internal/domain"
)

// ShareText builds the text a player posts after finishing a puzzle: a taunt,
// one square per round, and the game URL.
func ShareText(puzzleNumber int, results []domain.RoundResult, url string) string {
	score := Score(results)

	var taunt string
	switch score {
	case len(results):
		taunt = fmt.Sprintf("I got a perfect score on Tweetle #%d. Beat that.", puzzleNumber)
	case 0:
		taunt = fmt.Sprintf("I got 0/%d on Tweetle #%d. Surely you can do better...", len(results), puzzleNumber)
	default:
		taunt = fmt.Sprintf("I got %d/%d on Tweetle #%d. Think you can beat me?", score, len(results), puzzleNumber)
	}

	var grid strings.Builder
	for _, r := range results {
		if r == domain.ResultCorrect {
			grid.WriteString("✅")
		} else {
			grid.WriteString("❌")
		}
	}

	return taunt + "\n\n" + grid.String() + "\n\n" + url
}
