package domain

import "time"

// Turn is one ply of a game together with the resulting board.
// NextDisc is Empty once the game has ended. Move is nil only for turn 0.
type Turn struct {
    GameID    string
    TurnCount int
    NextDisc  Disc
    Move      *Move
    Board     Board
    EndAt     time.Time
}

// FirstTurn returns turn 0 of a game: dark to move on the starting board.
func FirstTurn(gameID string, at time.Time) Turn {
    return Turn{
        GameID:    gameID,
        TurnCount: 0,
        NextDisc:  Dark,
        Board:     InitialBoard(),
        EndAt:     at,
    }
}

// PlaceNext plays disc on p and returns the following turn stamped with at.
func (t Turn) PlaceNext(disc Disc, p Point, at time.Time) (Turn, error) {
    if t.NextDisc == Empty || disc != t.NextDisc {
        return t, ErrWrongDisc
    }

    move := Move{Disc: disc, Point: p}
    board, err := t.Board.Place(move)
    if err != nil {
        return t, err
    }

    return Turn{
        GameID:    t.GameID,
        TurnCount: t.TurnCount + 1,
        NextDisc:  decideNextDisc(board, disc),
        Move:      &move,
        Board:     board,
        EndAt:     at,
    }, nil
}

// GameEnded reports whether neither player can move any more.
func (t Turn) GameEnded() bool {
    return t.NextDisc == Empty
}

// WinnerDisc compares the final disc counts. Only meaningful once GameEnded.
func (t Turn) WinnerDisc() WinnerDisc {
    dark := t.Board.Count(Dark)
    light := t.Board.Count(Light)
    switch {
    case dark == light:
        return Draw
    case dark > light:
        return DarkWins
    default:
        return LightWins
    }
}

// decideNextDisc alternates while both sides can move, skips a side
// without a legal move, and returns Empty when nobody can move.
func decideNextDisc(board Board, previous Disc) Disc {
    darkCanMove := board.ExistValidMove(Dark)
    lightCanMove := board.ExistValidMove(Light)

    switch {
    case darkCanMove && lightCanMove:
        return previous.Opposite()
    case darkCanMove:
        return Dark
    case lightCanMove:
        return Light
    default:
        return Empty
    }
}
