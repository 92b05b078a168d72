package main

import (
    "context"
    "errors"
    "flag"
    "fmt"
    "net/http"
    "os"
    "os/signal"
    "syscall"

    "go.uber.org/zap"

    "github.com/jaminalder/reversi/internal/app"
    "github.com/jaminalder/reversi/internal/config"
    "github.com/jaminalder/reversi/internal/store"
    "github.com/jaminalder/reversi/internal/web"
)

func main() {
    configPath := flag.String("config", "", "path to a YAML config file")
    flag.Parse()

    if err := run(*configPath); err != nil {
        fmt.Fprintln(os.Stderr, err)
        os.Exit(1)
    }
}

func run(configPath string) error {
    cfg, err := config.Load(configPath)
    if err != nil {
        return err
    }
    log, err := cfg.Log.NewLogger()
    if err != nil {
        return err
    }
    defer func() { _ = log.Sync() }()

    ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
    defer stop()

    st, closeStore, err := openStore(ctx, cfg.Store)
    if err != nil {
        return err
    }
    defer closeStore()

    svc := app.NewService(st, app.WithLogger(log))
    srv := web.NewHTTPServer(cfg.HTTP.Addr, web.NewServer(svc, web.Options{
        Logger:       log,
        Heartbeat:    cfg.HTTP.Heartbeat,
        HistoryLimit: cfg.Games.HistoryLimit,
    }))

    errCh := make(chan error, 1)
    go func() {
        log.Info("server started", zap.String("addr", cfg.HTTP.Addr), zap.String("store", cfg.Store.Driver))
        if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
            errCh <- err
        }
        close(errCh)
    }()

    select {
    case err := <-errCh:
        return err
    case <-ctx.Done():
    }

    log.Info("shutting down")
    shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.HTTP.ShutdownTimeout)
    defer cancel()
    if err := srv.Shutdown(shutdownCtx); err != nil {
        return fmt.Errorf("shutdown: %w", err)
    }
    return nil
}

func openStore(ctx context.Context, cfg config.Store) (app.Store, func(), error) {
    switch cfg.Driver {
    case config.DriverPostgres:
        pg, err := store.OpenPostgres(ctx, cfg.DSN, store.PostgresOptions{
            MaxOpenConns:    cfg.MaxOpenConns,
            ConnMaxLifetime: cfg.ConnMaxLifetime,
        })
        if err != nil {
            return nil, nil, err
        }
        return pg, func() { _ = pg.Close() }, nil
    default:
        return store.NewMemory(), func() {}, nil
    }
}
