package store

import (
    "context"
    "fmt"
    "sync"

    "github.com/jaminalder/reversi/internal/app"
    "github.com/jaminalder/reversi/internal/domain"
)

// Memory is an in-process store. Transactions are serialized by a single
// mutex and their writes are buffered until the callback succeeds.
type Memory struct {
    mu      sync.Mutex
    games   []domain.Game // in start order
    turns   map[string]map[int]domain.Turn
    results map[string]domain.GameResult
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
    return &Memory{
        turns:   make(map[string]map[int]domain.Turn),
        results: make(map[string]domain.GameResult),
    }
}

// Atomic runs fn with exclusive access and commits its writes when fn returns nil.
func (m *Memory) Atomic(ctx context.Context, fn func(r app.Repositories) error) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    m.mu.Lock()
    defer m.mu.Unlock()

    tx := &memTx{
        m:       m,
        turns:   make(map[string]map[int]domain.Turn),
        results: make(map[string]domain.GameResult),
    }
    if err := fn(tx); err != nil {
        return err
    }
    tx.commit()
    return nil
}

type memTx struct {
    m       *Memory
    games   []domain.Game
    turns   map[string]map[int]domain.Turn
    results map[string]domain.GameResult
}

func (tx *memTx) commit() {
    m := tx.m
    m.games = append(m.games, tx.games...)
    for id, byCount := range tx.turns {
        if m.turns[id] == nil {
            m.turns[id] = make(map[int]domain.Turn)
        }
        for n, t := range byCount {
            m.turns[id][n] = t
        }
    }
    for id, r := range tx.results {
        m.results[id] = r
    }
}

func (tx *memTx) allGames() []domain.Game {
    out := make([]domain.Game, 0, len(tx.m.games)+len(tx.games))
    out = append(out, tx.m.games...)
    return append(out, tx.games...)
}

func (tx *memTx) hasGame(id string) bool {
    for _, g := range tx.allGames() {
        if g.ID == id {
            return true
        }
    }
    return false
}

func (tx *memTx) turn(gameID string, n int) (domain.Turn, bool) {
    if t, ok := tx.turns[gameID][n]; ok {
        return t, true
    }
    t, ok := tx.m.turns[gameID][n]
    return t, ok
}

func (tx *memTx) result(gameID string) (domain.GameResult, bool) {
    if r, ok := tx.results[gameID]; ok {
        return r, true
    }
    r, ok := tx.m.results[gameID]
    return r, ok
}

func (tx *memTx) SaveGame(_ context.Context, g domain.Game) error {
    if tx.hasGame(g.ID) {
        return fmt.Errorf("game %s already exists", g.ID)
    }
    tx.games = append(tx.games, g)
    return nil
}

func (tx *memTx) FindLatestGame(_ context.Context) (domain.Game, error) {
    games := tx.allGames()
    if len(games) == 0 {
        return domain.Game{}, app.ErrLatestGameNotFound
    }
    return games[len(games)-1], nil
}

func (tx *memTx) FindTurn(_ context.Context, gameID string, turnCount int) (domain.Turn, error) {
    t, ok := tx.turn(gameID, turnCount)
    if !ok {
        return domain.Turn{}, fmt.Errorf("%w: game %s turn %d", app.ErrTurnNotFound, gameID, turnCount)
    }
    return cloneTurn(t), nil
}

func (tx *memTx) SaveTurn(_ context.Context, t domain.Turn) error {
    if !tx.hasGame(t.GameID) {
        return fmt.Errorf("save turn: unknown game %s", t.GameID)
    }
    if _, ok := tx.turn(t.GameID, t.TurnCount); ok {
        return fmt.Errorf("%w: game %s turn %d", app.ErrTurnConflict, t.GameID, t.TurnCount)
    }
    if tx.turns[t.GameID] == nil {
        tx.turns[t.GameID] = make(map[int]domain.Turn)
    }
    tx.turns[t.GameID][t.TurnCount] = cloneTurn(t)
    return nil
}

func (tx *memTx) SaveGameResult(_ context.Context, r domain.GameResult) error {
    if _, ok := tx.result(r.GameID); ok {
        return fmt.Errorf("game result for %s already exists", r.GameID)
    }
    tx.results[r.GameID] = r
    return nil
}

func (tx *memTx) FindGameResult(_ context.Context, gameID string) (domain.GameResult, error) {
    r, ok := tx.result(gameID)
    if !ok {
        return domain.GameResult{}, fmt.Errorf("%w: game %s", app.ErrGameResultNotFound, gameID)
    }
    return r, nil
}

func (tx *memTx) FindLastGames(_ context.Context, limit int) ([]app.GameSummary, error) {
    games := tx.allGames()
    var out []app.GameSummary
    for i := len(games) - 1; i >= 0 && len(out) < limit; i-- {
        g := games[i]
        sum := app.GameSummary{GameID: g.ID, StartedAt: g.StartedAt}
        for n := 1; ; n++ {
            t, ok := tx.turn(g.ID, n)
            if !ok {
                break
            }
            if t.Move == nil {
                continue
            }
            switch t.Move.Disc {
            case domain.Dark:
                sum.DarkMoveCount++
            case domain.Light:
                sum.LightMoveCount++
            }
        }
        if r, ok := tx.result(g.ID); ok {
            winner, end := r.WinnerDisc, r.EndAt
            sum.WinnerDisc = &winner
            sum.EndAt = &end
        }
        out = append(out, sum)
    }
    return out, nil
}

func cloneTurn(t domain.Turn) domain.Turn {
    if t.Move != nil {
        mv := *t.Move
        t.Move = &mv
    }
    return t
}
