package web

import (
    "context"
    "net"
    "net/http"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/gorilla/websocket"
    "go.uber.org/zap"

    "github.com/jaminalder/reversi/internal/app"
)

// Options tunes the HTTP layer. Zero values fall back to defaults.
type Options struct {
    Logger       *zap.Logger
    Heartbeat    time.Duration
    HistoryLimit int
}

// NewServer wires routes and returns an http.Handler.
func NewServer(s *app.Service, opts Options) http.Handler {
    if opts.Logger == nil {
        opts.Logger = zap.NewNop()
    }
    if opts.Heartbeat <= 0 {
        opts.Heartbeat = 15 * time.Second
    }
    if opts.HistoryLimit <= 0 {
        opts.HistoryLimit = 10
    }
    h := &handlers{
        svc:          s,
        log:          opts.Logger,
        heartbeat:    opts.Heartbeat,
        historyLimit: opts.HistoryLimit,
        upgrader:     websocket.Upgrader{ReadBufferSize: 1024, WriteBufferSize: 1024},
    }
    s.SetRenderer(renderTurn)

    r := chi.NewRouter()
    r.Use(middleware.RequestID)
    r.Use(middleware.RealIP)
    r.Use(requestLogger(opts.Logger))
    r.Use(middleware.Recoverer)

    r.Get("/healthz", h.health)
    r.Route("/api/games", func(r chi.Router) {
        r.Get("/", h.listGames)
        r.Post("/", h.startGame)
        r.Route("/latest", func(r chi.Router) {
            r.Get("/turns/{turnCount}", h.findTurn)
            r.Post("/turns", h.registerTurn)
            r.Get("/events", h.events)
            r.Get("/ws", h.socket)
        })
    })
    return r
}

// NewHTTPServer returns an http.Server for handler whose request contexts are
// canceled as soon as Shutdown starts, so open event streams end with it.
func NewHTTPServer(addr string, handler http.Handler) *http.Server {
    base, cancel := context.WithCancel(context.Background())
    srv := &http.Server{
        Addr:              addr,
        Handler:           handler,
        ReadHeaderTimeout: 5 * time.Second,
        BaseContext:       func(net.Listener) context.Context { return base },
    }
    srv.RegisterOnShutdown(cancel)
    return srv
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
    return func(next http.Handler) http.Handler {
        return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
            ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
            start := time.Now()
            next.ServeHTTP(ww, r)

            fields := []zap.Field{
                zap.String("method", r.Method),
                zap.String("path", r.URL.Path),
                zap.Int("status", ww.Status()),
                zap.Duration("duration", time.Since(start)),
                zap.String("request_id", middleware.GetReqID(r.Context())),
            }
            if ww.Status() >= http.StatusInternalServerError {
                log.Error("request failed", fields...)
                return
            }
            log.Info("request", fields...)
        })
    }
}
