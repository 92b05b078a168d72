package domain

import (
    "errors"
    "testing"
    "time"
)

func TestNewGame(t *testing.T) {
    at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
    g := NewGame("g1", at)
    if g.ID != "g1" || !g.StartedAt.Equal(at) {
        t.Fatalf("unexpected game %+v", g)
    }
}

func TestParseWinnerDisc(t *testing.T) {
    for v, want := range []WinnerDisc{Draw, DarkWins, LightWins} {
        got, err := ParseWinnerDisc(v)
        if err != nil || got != want {
            t.Fatalf("ParseWinnerDisc(%d) = %v, %v", v, got, err)
        }
    }
    for _, v := range []int{-1, 3, 256} {
        if _, err := ParseWinnerDisc(v); !errors.Is(err, ErrInvalidWinnerValue) {
            t.Fatalf("expected ErrInvalidWinnerValue for %d, got %v", v, err)
        }
    }
}

func TestResultOfInProgressTurn(t *testing.T) {
    if _, ok := ResultOf(FirstTurn("g1", time.Now())); ok {
        t.Fatalf("expected no result while the game is in progress")
    }
}

func TestResultOfTerminalTurn(t *testing.T) {
    end := time.Date(2024, 5, 1, 13, 0, 0, 0, time.UTC)
    var discs [Size][Size]Disc
    discs[0][0] = Light
    turn := Turn{GameID: "g9", TurnCount: 12, NextDisc: Empty, Board: NewBoard(discs), EndAt: end}
    res, ok := ResultOf(turn)
    if !ok {
        t.Fatalf("expected a result")
    }
    want := GameResult{GameID: "g9", WinnerDisc: LightWins, EndAt: end}
    if res != want {
        t.Fatalf("expected %+v, got %+v", want, res)
    }
}
