package app

import (
    "context"
    "errors"
    "time"

    "github.com/jaminalder/reversi/internal/domain"
)

// Errors returned by stores and surfaced by the service layer.
var (
    ErrLatestGameNotFound = errors.New("latest game not found")
    ErrTurnNotFound       = errors.New("specified turn not found")
    ErrGameResultNotFound = errors.New("game result not found")
    ErrTurnConflict       = errors.New("turn already registered")
)

// GameSummary is one row of the game history listing.
type GameSummary struct {
    GameID         string
    DarkMoveCount  int
    LightMoveCount int
    WinnerDisc     *domain.WinnerDisc
    StartedAt      time.Time
    EndAt          *time.Time
}

// Repositories gives access to stored games, turns and results within one
// transaction.
type Repositories interface {
    SaveGame(ctx context.Context, g domain.Game) error
    // FindLatestGame returns ErrLatestGameNotFound when no game was started yet.
    FindLatestGame(ctx context.Context) (domain.Game, error)
    // FindTurn returns ErrTurnNotFound when (gameID, turnCount) is unknown.
    FindTurn(ctx context.Context, gameID string, turnCount int) (domain.Turn, error)
    // SaveTurn returns ErrTurnConflict when the turn count is already taken.
    SaveTurn(ctx context.Context, t domain.Turn) error
    SaveGameResult(ctx context.Context, r domain.GameResult) error
    FindGameResult(ctx context.Context, gameID string) (domain.GameResult, error)
    // FindLastGames lists at most limit games, most recent first.
    FindLastGames(ctx context.Context, limit int) ([]GameSummary, error)
}

// Store runs fn atomically: either every write made through the given
// Repositories is committed or none is.
type Store interface {
    Atomic(ctx context.Context, fn func(r Repositories) error) error
}
