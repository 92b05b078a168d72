package app

import (
    "context"
    "errors"
    "fmt"
    "sync"
    "time"

    "go.uber.org/zap"

    "github.com/jaminalder/reversi/internal/domain"
)

const maxHistoryLimit = 100

// TurnState is the read model of one turn of the latest game.
type TurnState struct {
    GameID     string
    TurnCount  int
    Board      [domain.Size][domain.Size]domain.Disc
    NextDisc   domain.Disc // Empty once the game ended
    WinnerDisc *domain.WinnerDisc
    ValidMoves []domain.Point
    EndAt      time.Time
}

func newTurnState(t domain.Turn, winner *domain.WinnerDisc) TurnState {
    st := TurnState{
        GameID:     t.GameID,
        TurnCount:  t.TurnCount,
        Board:      t.Board.Discs(),
        NextDisc:   t.NextDisc,
        WinnerDisc: winner,
        EndAt:      t.EndAt,
    }
    if !t.GameEnded() {
        st.ValidMoves = t.Board.ValidMoves(t.NextDisc)
    }
    return st
}

type subscriber struct {
    ch        chan []byte
    closeOnce sync.Once
    gameID    string // guarded by Service.subMu; moves when a new game starts
}

func (s *subscriber) close() { s.closeOnce.Do(func() { close(s.ch) }) }

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
    return func(s *Service) {
        if l != nil {
            s.log = l
        }
    }
}

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) Option {
    return func(s *Service) {
        if now != nil {
            s.now = now
        }
    }
}

// WithIDGenerator replaces the UUID game id generator.
func WithIDGenerator(gen func() string) Option {
    return func(s *Service) {
        if gen != nil {
            s.newID = gen
        }
    }
}

// Service runs the use cases of the latest game and fans out turn updates.
type Service struct {
    store Store
    log   *zap.Logger
    now   func() time.Time
    newID func() string

    // mu serializes the read-compute-write of turns within this process.
    mu sync.Mutex

    subMu  sync.Mutex
    subs   map[string]map[*subscriber]struct{}
    render func(TurnState) []byte
}

// NewService creates a service backed by store.
func NewService(store Store, opts ...Option) *Service {
    s := &Service{
        store:  store,
        log:    zap.NewNop(),
        now:    time.Now,
        newID:  newGameID,
        subs:   make(map[string]map[*subscriber]struct{}),
        render: func(TurnState) []byte { return nil },
    }
    for _, opt := range opts {
        opt(s)
    }
    return s
}

// SetRenderer replaces the broadcast renderer function.
func (s *Service) SetRenderer(renderer func(TurnState) []byte) {
    s.subMu.Lock()
    defer s.subMu.Unlock()
    if renderer == nil {
        s.render = func(TurnState) []byte { return nil }
        return
    }
    s.render = renderer
}

// StartNewGame stores a new game together with its first turn.
func (s *Service) StartNewGame(ctx context.Context) (domain.Game, error) {
    now := s.now()
    game := domain.NewGame(s.newID(), now)
    err := s.store.Atomic(ctx, func(r Repositories) error {
        if err := r.SaveGame(ctx, game); err != nil {
            return err
        }
        return r.SaveTurn(ctx, domain.FirstTurn(game.ID, now))
    })
    if err != nil {
        return domain.Game{}, fmt.Errorf("start game: %w", err)
    }
    s.log.Info("game started", zap.String("game_id", game.ID))
    s.broadcastGameStarted(newTurnState(domain.FirstTurn(game.ID, now), nil))
    return game, nil
}

// LatestGame returns the most recently started game.
func (s *Service) LatestGame(ctx context.Context) (domain.Game, error) {
    var game domain.Game
    err := s.store.Atomic(ctx, func(r Repositories) error {
        var err error
        game, err = r.FindLatestGame(ctx)
        return err
    })
    return game, err
}

// FindLatestTurn returns turn turnCount of the latest game. The winner is
// read from the stored result once the game has ended.
func (s *Service) FindLatestTurn(ctx context.Context, turnCount int) (*TurnState, error) {
    var st TurnState
    err := s.store.Atomic(ctx, func(r Repositories) error {
        game, err := r.FindLatestGame(ctx)
        if err != nil {
            return err
        }
        turn, err := r.FindTurn(ctx, game.ID, turnCount)
        if err != nil {
            return err
        }
        var winner *domain.WinnerDisc
        if turn.GameEnded() {
            res, err := r.FindGameResult(ctx, game.ID)
            if err != nil {
                return err
            }
            winner = &res.WinnerDisc
        }
        st = newTurnState(turn, winner)
        return nil
    })
    if err != nil {
        return nil, err
    }
    return &st, nil
}

// RegisterTurn plays disc on p as turn turnCount of the latest game, stores
// the new turn and, when the game just ended, its result.
func (s *Service) RegisterTurn(ctx context.Context, turnCount int, disc domain.Disc, p domain.Point) (*TurnState, error) {
    st, err := s.registerTurn(ctx, turnCount, disc, p)
    if err != nil {
        if !isRuleViolation(err) {
            s.log.Error("register turn failed", zap.Int("turn_count", turnCount), zap.Error(err))
        }
        return nil, err
    }

    s.log.Info("turn registered",
        zap.String("game_id", st.GameID),
        zap.Int("turn_count", st.TurnCount),
        zap.Stringer("disc", disc),
        zap.Int("x", p.X),
        zap.Int("y", p.Y),
        zap.Stringer("next_disc", st.NextDisc),
    )
    if st.WinnerDisc != nil {
        s.log.Info("game ended", zap.String("game_id", st.GameID), zap.Stringer("winner", *st.WinnerDisc))
    }
    s.broadcast(st)
    return &st, nil
}

func (s *Service) registerTurn(ctx context.Context, turnCount int, disc domain.Disc, p domain.Point) (TurnState, error) {
    var st TurnState

    s.mu.Lock()
    defer s.mu.Unlock()
    err := s.store.Atomic(ctx, func(r Repositories) error {
        game, err := r.FindLatestGame(ctx)
        if err != nil {
            return err
        }
        prev, err := r.FindTurn(ctx, game.ID, turnCount-1)
        if err != nil {
            return err
        }
        turn, err := prev.PlaceNext(disc, p, s.now())
        if err != nil {
            return err
        }
        if err := r.SaveTurn(ctx, turn); err != nil {
            return err
        }
        var winner *domain.WinnerDisc
        if res, ok := domain.ResultOf(turn); ok {
            if err := r.SaveGameResult(ctx, res); err != nil {
                return err
            }
            winner = &res.WinnerDisc
        }
        st = newTurnState(turn, winner)
        return nil
    })
    return st, err
}

// FindLastGames lists recent games, newest first. limit is clamped to [1, 100].
func (s *Service) FindLastGames(ctx context.Context, limit int) ([]GameSummary, error) {
    if limit < 1 {
        limit = 1
    }
    if limit > maxHistoryLimit {
        limit = maxHistoryLimit
    }
    var out []GameSummary
    err := s.store.Atomic(ctx, func(r Repositories) error {
        var err error
        out, err = r.FindLastGames(ctx, limit)
        return err
    })
    return out, err
}

// Subscribe registers a subscriber for a game. Returns a channel and an unsubscribe func.
func (s *Service) Subscribe(ctx context.Context, gameID string) (<-chan []byte, func()) {
    s.subMu.Lock()
    defer s.subMu.Unlock()
    set := s.subs[gameID]
    if set == nil {
        set = make(map[*subscriber]struct{})
        s.subs[gameID] = set
    }
    sub := &subscriber{ch: make(chan []byte, 1), gameID: gameID}
    set[sub] = struct{}{}

    unsubOnce := &sync.Once{}
    unsub := func() {
        unsubOnce.Do(func() {
            s.subMu.Lock()
            s.removeLocked(sub)
            sub.close()
            s.subMu.Unlock()
        })
    }
    go func() {
        <-ctx.Done()
        unsub()
    }()
    return sub.ch, unsub
}

func (s *Service) broadcast(st TurnState) {
    s.subMu.Lock()
    defer s.subMu.Unlock()
    s.fanOutLocked(st)
}

// broadcastGameStarted moves every live subscriber over to the new game and
// sends them its first turn.
func (s *Service) broadcastGameStarted(st TurnState) {
    s.subMu.Lock()
    defer s.subMu.Unlock()
    set := s.subs[st.GameID]
    if set == nil {
        set = make(map[*subscriber]struct{})
    }
    for id, old := range s.subs {
        for sub := range old {
            sub.gameID = st.GameID
            set[sub] = struct{}{}
        }
        delete(s.subs, id)
    }
    if len(set) == 0 {
        return
    }
    s.subs[st.GameID] = set
    s.fanOutLocked(st)
}

func (s *Service) fanOutLocked(st TurnState) {
    payload := s.render(st)

    // Fan-out; drop slow subscribers instead of blocking the writer
    dropped := 0
    for sub := range s.subs[st.GameID] {
        select {
        case sub.ch <- payload:
        default:
            s.removeLocked(sub)
            sub.close()
            dropped++
        }
    }
    if dropped > 0 {
        s.log.Debug("dropped slow subscribers", zap.String("game_id", st.GameID), zap.Int("count", dropped))
    }
}

func (s *Service) removeLocked(sub *subscriber) {
    set, ok := s.subs[sub.gameID]
    if !ok {
        return
    }
    delete(set, sub)
    if len(set) == 0 {
        delete(s.subs, sub.gameID)
    }
}

func isRuleViolation(err error) bool {
    return errors.Is(err, domain.ErrWrongDisc) ||
        errors.Is(err, domain.ErrOccupiedSquare) ||
        errors.Is(err, domain.ErrNoCaptures) ||
        errors.Is(err, ErrTurnNotFound) ||
        errors.Is(err, ErrLatestGameNotFound) ||
        errors.Is(err, ErrTurnConflict)
}
