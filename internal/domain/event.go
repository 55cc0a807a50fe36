package domain

const (
	EventNameGameFinished = "game.finished"
)

// EventGameFinished is published once a session reaches the finished phase.
// Recorded reports whether the result changed the device's stats; replays of an
// already completed puzzle are not recorded.
type EventGameFinished struct {
	Device       string
	Mode         Mode
	PuzzleID     int
	PuzzleNumber int
	Results      [RoundsPerPuzzle]RoundResult
	Score        int
	Recorded     bool
}

func (EventGameFinished) Name() string { return EventNameGameFinished }
