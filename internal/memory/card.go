package memory

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// Card is a single tile on the board.
type Card struct {
	ID      int    `json:"id"`
	PairKey string `json:"pairKey"`
	FaceUp  bool   `json:"faceUp"`
	Matched bool   `json:"matched"`
}

// Mode selects how the round clock behaves.
type Mode int

const (
	Classic Mode = iota
	TimeAttack
)

func (m Mode) String() string {
	switch m {
	case Classic:
		return "classic"
	case TimeAttack:
		return "timeAttack"
	default:
		return "unknown"
	}
}

// ParseMode accepts the names produced by Mode.String, case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "classic":
		return Classic, nil
	case "timeattack", "time-attack", "time_attack":
		return TimeAttack, nil
	}
	return Classic, configErrorf("mode", "unknown mode %q", s)
}

// Phase is the state of the turn-resolution machine.
type Phase int

const (
	Idle Phase = iota
	Previewing
	Playing
	Resolving
	GameOver
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Previewing:
		return "previewing"
	case Playing:
		return "playing"
	case Resolving:
		return "resolving"
	case GameOver:
		return "gameOver"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Outcome records how a finished round ended.
type Outcome int

const (
	NoOutcome Outcome = iota
	Win
	Loss
)

func (o Outcome) String() string {
	switch o {
	case Win:
		return "win"
	case Loss:
		return "loss"
	default:
		return "none"
	}
}

// RoundState is a point-in-time copy of a round. TimeRemaining is nil in
// Classic mode; Elapsed counts seconds since the first flip in both modes.
type RoundState struct {
	RoundID       string  `json:"roundId"`
	Cards         []Card  `json:"cards"`
	MoveCount     int     `json:"moveCount"`
	Score         int     `json:"score"`
	TimeRemaining *int    `json:"timeRemaining,omitempty"`
	Elapsed       int     `json:"elapsed"`
	Mode          Mode    `json:"mode"`
	Phase         Phase   `json:"phase"`
	Outcome       Outcome `json:"outcome"`
	Over          bool    `json:"over"`
	Pending       []int   `json:"pending"`
}

// Matched reports how many cards have been matched.
func (s RoundState) Matched() int {
	return lo.CountBy(s.Cards, func(c Card) bool { return c.Matched })
}
