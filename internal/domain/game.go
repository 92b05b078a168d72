package domain

import (
    "fmt"
    "time"
)

// Game identifies one match. Its turns and result refer to it by ID.
type Game struct {
    ID        string
    StartedAt time.Time
}

// NewGame returns a game started at startedAt.
func NewGame(id string, startedAt time.Time) Game {
    return Game{ID: id, StartedAt: startedAt}
}

// WinnerDisc is the outcome of a finished game.
type WinnerDisc uint8

const (
    Draw WinnerDisc = iota
    DarkWins
    LightWins
)

// ParseWinnerDisc decodes a stored or received winner value.
func ParseWinnerDisc(v int) (WinnerDisc, error) {
    if v < int(Draw) || v > int(LightWins) {
        return Draw, fmt.Errorf("%w: %d", ErrInvalidWinnerValue, v)
    }
    return WinnerDisc(v), nil
}

func (w WinnerDisc) String() string {
    switch w {
    case Draw:
        return "draw"
    case DarkWins:
        return "dark"
    case LightWins:
        return "light"
    default:
        return fmt.Sprintf("WinnerDisc(%d)", uint8(w))
    }
}

// GameResult records how a game ended.
type GameResult struct {
    GameID     string
    WinnerDisc WinnerDisc
    EndAt      time.Time
}

// ResultOf builds the result of a terminal turn. ok is false while the game
// is still in progress.
func ResultOf(t Turn) (res GameResult, ok bool) {
    if !t.GameEnded() {
        return GameResult{}, false
    }
    return GameResult{GameID: t.GameID, WinnerDisc: t.WinnerDisc(), EndAt: t.EndAt}, true
}
