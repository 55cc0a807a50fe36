// Package selector picks the puzzle of a day by rotating through the catalog,
// and lists recent daily puzzles the player has not completed yet.
package selector

import (
	"time"

	"github.com/victornm/tweetle/internal/catalog"
	"github.com/victornm/tweetle/internal/dayindex"
	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/errors"
)

// DefaultLookback is how many past days are offered for catch-up.
const DefaultLookback = 3

// MissedPuzzle is a past daily puzzle the player can still catch up on.
type MissedPuzzle struct {
	Puzzle       domain.Puzzle
	Offset       int
	PuzzleNumber int
	Date         time.Time
}

// Slot returns the rotation slot of dayIndex in a catalog of n puzzles.
// The result is always in [0, n), including for negative day indices. n must be positive.
func Slot(dayIndex, n int) int {
	return ((dayIndex % n) + n) % n
}

// PuzzleForDayOffset returns the puzzle scheduled offset days away from now.
func PuzzleForDayOffset(c *catalog.Catalog, now time.Time, offset int) (domain.Puzzle, error) {
	n := c.Len()
	if n == 0 {
		return domain.Puzzle{}, errors.ErrEmptyCatalog
	}

	return c.At(Slot(dayindex.Index(now)+offset, n)), nil
}

// TodaysPuzzle returns the puzzle scheduled for now's calendar date.
func TodaysPuzzle(c *catalog.Catalog, now time.Time) (domain.Puzzle, error) {
	return PuzzleForDayOffset(c, now, 0)
}

// RecentMissed scans the lookback days before today, most recent first, and
// returns each distinct puzzle that is neither completed nor today's puzzle.
// Small catalogs repeat puzzles across days, so fewer than lookback entries may
// come back; an empty catalog has nothing to catch up on.
func RecentMissed(c *catalog.Catalog, now time.Time, completed map[int]struct{}, lookback int) []MissedPuzzle {
	if c.Len() == 0 {
		return nil
	}

	today, _ := TodaysPuzzle(c, now)

	var (
		idx    = dayindex.Index(now)
		seen   = map[int]struct{}{today.ID: {}}
		missed []MissedPuzzle
	)

	for offset := -1; offset >= -lookback; offset-- {
		p := c.At(Slot(idx+offset, c.Len()))
		if _, ok := seen[p.ID]; ok {
			continue
		}
		if _, ok := completed[p.ID]; ok {
			continue
		}

		seen[p.ID] = struct{}{}
		missed = append(missed, MissedPuzzle{
			Puzzle:       p,
			Offset:       offset,
			PuzzleNumber: dayindex.PuzzleNumber(idx, offset),
			Date:         dayindex.DateForOffset(now, offset),
		})
	}

	return missed
}
