package domain

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// RoundsPerPuzzle is the number of tweets a player guesses in one puzzle.
const RoundsPerPuzzle = 3

// Candidate is one of the possible authors offered for every round of a puzzle.
type Candidate struct {
	Name   string `json:"name"`
	Handle string `json:"handle"`
}

// Round is a single tweet to attribute. Author must match a candidate name.
type Round struct {
	Text      string `json:"text"`
	Author    string `json:"author"`
	SourceURL string `json:"sourceUrl,omitempty"`
}

// Puzzle represents the set of rounds played on one day.
type Puzzle struct {
	ID         int         `json:"id"`
	Candidates []Candidate `json:"candidates"`
	Rounds     []Round     `json:"rounds"`
}

// Candidate looks up a candidate of the puzzle by name.
func (p Puzzle) Candidate(name string) (Candidate, bool) {
	for _, c := range p.Candidates {
		if c.Name == name {
			return c, true
		}
	}

	return Candidate{}, false
}

// RoundResult is the outcome of a single round. The zero value means the round
// has not been answered yet.
type RoundResult string

const (
	ResultUnanswered RoundResult = ""
	ResultCorrect    RoundResult = "correct"
	ResultWrong      RoundResult = "wrong"
)

func (r RoundResult) MarshalJSON() ([]byte, error) {
	if r == ResultUnanswered {
		return []byte("null"), nil
	}

	return json.Marshal(string(r))
}

func (r *RoundResult) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*r = ResultUnanswered
		return nil
	}

	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	switch v := RoundResult(s); v {
	case ResultUnanswered, ResultCorrect, ResultWrong:
		*r = v
		return nil
	default:
		return fmt.Errorf("unknown round result %q", s)
	}
}

type Phase string

const (
	PhasePlaying  Phase = "playing"
	PhaseReveal   Phase = "reveal"
	PhaseFinished Phase = "finished"
)

type Mode string

const (
	ModeDaily Mode = "daily"
	ModePast  Mode = "past"
)

// GameState is the progress of one play-through of a puzzle.
// CurrentRound equals RoundsPerPuzzle once the game is finished.
type GameState struct {
	PuzzleID        int                          `json:"puzzleId"`
	CurrentRound    int                          `json:"currentRound"`
	Results         [RoundsPerPuzzle]RoundResult `json:"results"`
	SelectedAnswers [RoundsPerPuzzle]string      `json:"selectedAnswers"`
	Phase           Phase                        `json:"phase"`
}

// Snapshot is an in-progress daily game stamped with the calendar date it was saved on.
type Snapshot struct {
	GameState
	Date string `json:"date"`
}

// DailyRecord is the archived result of a daily puzzle. There is at most one per date.
type DailyRecord struct {
	Date     string                       `json:"date"`
	PuzzleID int                          `json:"puzzleId"`
	Results  [RoundsPerPuzzle]RoundResult `json:"results"`
	Score    int                          `json:"score"`
}

// DailyStats aggregates every completed game of a device.
// Distribution is indexed by score.
type DailyStats struct {
	GamesPlayed   int                      `json:"gamesPlayed"`
	CurrentStreak int                      `json:"currentStreak"`
	MaxStreak     int                      `json:"maxStreak"`
	Distribution  [RoundsPerPuzzle + 1]int `json:"distribution"`
}

// AverageScore returns the mean score over the distribution, rounded to 2 places.
func (s DailyStats) AverageScore() decimal.Decimal {
	var total, games int64
	for score, n := range s.Distribution {
		total += int64(score * n)
		games += int64(n)
	}

	if games == 0 {
		return decimal.Zero
	}

	return decimal.NewFromInt(total).Div(decimal.NewFromInt(games)).Round(2)
}
