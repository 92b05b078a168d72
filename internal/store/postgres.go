package store

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "github.com/lib/pq"
    "gorm.io/driver/postgres"
    "gorm.io/gorm"
    "gorm.io/gorm/clause"
    "gorm.io/gorm/logger"

    "github.com/jaminalder/reversi/internal/app"
    "github.com/jaminalder/reversi/internal/domain"
)

// uniqueViolation is the Postgres SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

type gameRecord struct {
    ID        string    `gorm:"primaryKey;type:varchar(36)"`
    StartedAt time.Time `gorm:"not null;index"`
}

func (gameRecord) TableName() string { return "games" }

type turnRecord struct {
    ID        int64          `gorm:"primaryKey;autoIncrement"`
    GameID    string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_turns_game_turn_count"`
    TurnCount int            `gorm:"not null;uniqueIndex:idx_turns_game_turn_count"`
    NextDisc  *int           // null once the game ended
    EndAt     time.Time      `gorm:"not null"`
    Squares   []squareRecord `gorm:"foreignKey:TurnID;constraint:OnDelete:CASCADE"`
    Move      *moveRecord    `gorm:"foreignKey:TurnID;constraint:OnDelete:CASCADE"`
}

func (turnRecord) TableName() string { return "turns" }

type squareRecord struct {
    ID     int64 `gorm:"primaryKey;autoIncrement"`
    TurnID int64 `gorm:"not null;uniqueIndex:idx_squares_turn_xy"`
    X      int   `gorm:"not null;uniqueIndex:idx_squares_turn_xy"`
    Y      int   `gorm:"not null;uniqueIndex:idx_squares_turn_xy"`
    Disc   int   `gorm:"not null"`
}

func (squareRecord) TableName() string { return "squares" }

type moveRecord struct {
    ID     int64 `gorm:"primaryKey;autoIncrement"`
    TurnID int64 `gorm:"not null;uniqueIndex"`
    Disc   int   `gorm:"not null"`
    X      int   `gorm:"not null"`
    Y      int   `gorm:"not null"`
}

func (moveRecord) TableName() string { return "moves" }

type gameResultRecord struct {
    ID         int64     `gorm:"primaryKey;autoIncrement"`
    GameID     string    `gorm:"type:varchar(36);not null;uniqueIndex"`
    WinnerDisc int       `gorm:"not null"`
    EndAt      time.Time `gorm:"not null"`
}

func (gameResultRecord) TableName() string { return "game_results" }

// PostgresOptions tunes the connection pool.
type PostgresOptions struct {
    MaxOpenConns    int
    ConnMaxLifetime time.Duration
}

// Postgres stores games in PostgreSQL through gorm on a lib/pq pool.
type Postgres struct {
    db *gorm.DB
}

// OpenPostgres connects, pings and migrates the schema.
func OpenPostgres(ctx context.Context, dsn string, opts PostgresOptions) (*Postgres, error) {
    sqlDB, err := sql.Open("postgres", dsn)
    if err != nil {
        return nil, fmt.Errorf("error opening database: %w", err)
    }
    if opts.MaxOpenConns > 0 {
        sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
    }
    if opts.ConnMaxLifetime > 0 {
        sqlDB.SetConnMaxLifetime(opts.ConnMaxLifetime)
    }
    if err := sqlDB.PingContext(ctx); err != nil {
        _ = sqlDB.Close()
        return nil, fmt.Errorf("error connecting to the database: %w", err)
    }

    db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
        Logger:         logger.Default.LogMode(logger.Warn),
        TranslateError: true,
    })
    if err != nil {
        _ = sqlDB.Close()
        return nil, err
    }
    p := &Postgres{db: db}
    if err := p.migrate(ctx); err != nil {
        _ = sqlDB.Close()
        return nil, err
    }
    return p, nil
}

func (p *Postgres) migrate(ctx context.Context) error {
    err := p.db.WithContext(ctx).AutoMigrate(
        &gameRecord{},
        &turnRecord{},
        &squareRecord{},
        &moveRecord{},
        &gameResultRecord{},
    )
    if err != nil {
        return fmt.Errorf("migrate: %w", err)
    }
    return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() error {
    sqlDB, err := p.db.DB()
    if err != nil {
        return err
    }
    return sqlDB.Close()
}

// Atomic runs fn inside a database transaction.
func (p *Postgres) Atomic(ctx context.Context, fn func(r app.Repositories) error) error {
    return p.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
        return fn(&pgTx{db: tx})
    })
}

type pgTx struct {
    db *gorm.DB
}

func (tx *pgTx) SaveGame(_ context.Context, g domain.Game) error {
    return tx.db.Create(&gameRecord{ID: g.ID, StartedAt: g.StartedAt}).Error
}

// FindLatestGame locks the game row so concurrent turn registrations for the
// same game queue up behind each other.
func (tx *pgTx) FindLatestGame(_ context.Context) (domain.Game, error) {
    var rec gameRecord
    err := tx.db.Clauses(clause.Locking{Strength: "UPDATE"}).
        Order("started_at desc, id desc").
        First(&rec).Error
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return domain.Game{}, app.ErrLatestGameNotFound
    }
    if err != nil {
        return domain.Game{}, err
    }
    return domain.NewGame(rec.ID, rec.StartedAt), nil
}

func (tx *pgTx) FindTurn(_ context.Context, gameID string, turnCount int) (domain.Turn, error) {
    var rec turnRecord
    err := tx.db.Preload("Squares").Preload("Move").
        Where("game_id = ? AND turn_count = ?", gameID, turnCount).
        First(&rec).Error
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return domain.Turn{}, fmt.Errorf("%w: game %s turn %d", app.ErrTurnNotFound, gameID, turnCount)
    }
    if err != nil {
        return domain.Turn{}, err
    }
    return rec.toDomain()
}

func (tx *pgTx) SaveTurn(_ context.Context, t domain.Turn) error {
    rec := newTurnRecord(t)
    if err := tx.db.Create(&rec).Error; err != nil {
        if isUniqueViolation(err) {
            return fmt.Errorf("%w: game %s turn %d", app.ErrTurnConflict, t.GameID, t.TurnCount)
        }
        return err
    }
    return nil
}

func (tx *pgTx) SaveGameResult(_ context.Context, r domain.GameResult) error {
    return tx.db.Create(&gameResultRecord{
        GameID:     r.GameID,
        WinnerDisc: int(r.WinnerDisc),
        EndAt:      r.EndAt,
    }).Error
}

func (tx *pgTx) FindGameResult(_ context.Context, gameID string) (domain.GameResult, error) {
    var rec gameResultRecord
    err := tx.db.Where("game_id = ?", gameID).First(&rec).Error
    if errors.Is(err, gorm.ErrRecordNotFound) {
        return domain.GameResult{}, fmt.Errorf("%w: game %s", app.ErrGameResultNotFound, gameID)
    }
    if err != nil {
        return domain.GameResult{}, err
    }
    winner, err := domain.ParseWinnerDisc(rec.WinnerDisc)
    if err != nil {
        return domain.GameResult{}, err
    }
    return domain.GameResult{GameID: rec.GameID, WinnerDisc: winner, EndAt: rec.EndAt}, nil
}

const lastGamesQuery = `
select
  g.id as game_id,
  coalesce(sum(case when m.disc = 1 then 1 else 0 end), 0) as dark_move_count,
  coalesce(sum(case when m.disc = 2 then 1 else 0 end), 0) as light_move_count,
  max(gr.winner_disc) as winner_disc,
  g.started_at as started_at,
  max(gr.end_at) as end_at
from games g
left join game_results gr on gr.game_id = g.id
left join turns t on t.game_id = g.id
left join moves m on m.turn_id = t.id
group by g.id, g.started_at
order by g.started_at desc, g.id desc
limit ?`

type lastGameRow struct {
    GameID         string
    DarkMoveCount  int
    LightMoveCount int
    WinnerDisc     *int
    StartedAt      time.Time
    EndAt          *time.Time
}

func (tx *pgTx) FindLastGames(_ context.Context, limit int) ([]app.GameSummary, error) {
    var rows []lastGameRow
    if err := tx.db.Raw(lastGamesQuery, limit).Scan(&rows).Error; err != nil {
        return nil, err
    }
    out := make([]app.GameSummary, 0, len(rows))
    for _, r := range rows {
        sum := app.GameSummary{
            GameID:         r.GameID,
            DarkMoveCount:  r.DarkMoveCount,
            LightMoveCount: r.LightMoveCount,
            StartedAt:      r.StartedAt,
            EndAt:          r.EndAt,
        }
        if r.WinnerDisc != nil {
            w, err := domain.ParseWinnerDisc(*r.WinnerDisc)
            if err != nil {
                return nil, err
            }
            sum.WinnerDisc = &w
        }
        out = append(out, sum)
    }
    return out, nil
}

func newTurnRecord(t domain.Turn) turnRecord {
    rec := turnRecord{
        GameID:    t.GameID,
        TurnCount: t.TurnCount,
        EndAt:     t.EndAt,
        Squares:   make([]squareRecord, 0, domain.Size*domain.Size),
    }
    if !t.GameEnded() {
        next := int(t.NextDisc)
        rec.NextDisc = &next
    }
    for y, row := range t.Board.Discs() {
        for x, d := range row {
            rec.Squares = append(rec.Squares, squareRecord{X: x, Y: y, Disc: int(d)})
        }
    }
    if t.Move != nil {
        rec.Move = &moveRecord{Disc: int(t.Move.Disc), X: t.Move.Point.X, Y: t.Move.Point.Y}
    }
    return rec
}

func (rec turnRecord) toDomain() (domain.Turn, error) {
    var discs [domain.Size][domain.Size]domain.Disc
    for _, s := range rec.Squares {
        p := domain.Point{X: s.X, Y: s.Y}
        if !p.InBounds() {
            return domain.Turn{}, fmt.Errorf("turn %d: square (%d,%d) off the board", rec.ID, s.X, s.Y)
        }
        d, err := domain.ParseDisc(s.Disc)
        if err != nil {
            return domain.Turn{}, err
        }
        discs[s.Y][s.X] = d
    }

    t := domain.Turn{
        GameID:    rec.GameID,
        TurnCount: rec.TurnCount,
        Board:     domain.NewBoard(discs),
        EndAt:     rec.EndAt,
    }
    if rec.NextDisc != nil {
        d, err := domain.ParseDisc(*rec.NextDisc)
        if err != nil {
            return domain.Turn{}, err
        }
        t.NextDisc = d
    }
    if rec.Move != nil {
        d, err := domain.ParseDisc(rec.Move.Disc)
        if err != nil {
            return domain.Turn{}, err
        }
        t.Move = &domain.Move{Disc: d, Point: domain.Point{X: rec.Move.X, Y: rec.Move.Y}}
    }
    return t, nil
}

func isUniqueViolation(err error) bool {
    if errors.Is(err, gorm.ErrDuplicatedKey) {
        return true
    }
    var pqErr *pq.Error
    return errors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
