package web

import (
    "context"
    "encoding/json"
    "errors"
    "fmt"
    "io"
    "net/http"
    "strconv"
    "time"

    "github.com/go-chi/chi/v5"
    "github.com/go-chi/chi/v5/middleware"
    "github.com/gorilla/websocket"
    "go.uber.org/zap"

    "github.com/jaminalder/reversi/internal/app"
    "github.com/jaminalder/reversi/internal/domain"
)

const maxBodyBytes = 1 << 16

// errBadRequest marks malformed input that never reached the domain.
var errBadRequest = errors.New("invalid request")

type handlers struct {
    svc          *app.Service
    log          *zap.Logger
    heartbeat    time.Duration
    historyLimit int
    upgrader     websocket.Upgrader
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
    writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handlers) listGames(w http.ResponseWriter, r *http.Request) {
    limit := h.historyLimit
    if v := r.URL.Query().Get("limit"); v != "" {
        n, err := strconv.Atoi(v)
        if err != nil {
            h.writeError(w, r, fmt.Errorf("%w: limit %q", errBadRequest, v))
            return
        }
        limit = n
    }
    games, err := h.svc.FindLastGames(r.Context(), limit)
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, newGamesResponse(games))
}

func (h *handlers) startGame(w http.ResponseWriter, r *http.Request) {
    g, err := h.svc.StartNewGame(r.Context())
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusCreated, startedGameResponse{ID: g.ID, StartedAt: g.StartedAt})
}

func (h *handlers) findTurn(w http.ResponseWriter, r *http.Request) {
    raw := chi.URLParam(r, "turnCount")
    turnCount, err := strconv.Atoi(raw)
    if err != nil || turnCount < 0 {
        h.writeError(w, r, fmt.Errorf("%w: turn count %q", errBadRequest, raw))
        return
    }
    st, err := h.svc.FindLatestTurn(r.Context(), turnCount)
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusOK, newTurnResponse(*st))
}

func (h *handlers) registerTurn(w http.ResponseWriter, r *http.Request) {
    var req registerTurnRequest
    if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
        h.writeError(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
        return
    }
    disc, err := domain.ParseDisc(req.Move.Disc)
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    p := domain.Point{X: req.Move.X, Y: req.Move.Y}
    if !p.InBounds() {
        h.writeError(w, r, fmt.Errorf("%w: point (%d,%d) is off the board", errBadRequest, p.X, p.Y))
        return
    }
    st, err := h.svc.RegisterTurn(r.Context(), req.TurnCount, disc, p)
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    writeJSON(w, http.StatusCreated, newTurnResponse(*st))
}

func (h *handlers) events(w http.ResponseWriter, r *http.Request) {
    game, err := h.svc.LatestGame(r.Context())
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    w.Header().Set("Content-Type", "text/event-stream")
    w.Header().Set("Cache-Control", "no-cache")
    w.Header().Set("X-Accel-Buffering", "no")
    // In tests or non-EventSource requests, just acknowledge headers and return
    if r.Header.Get("Accept") != "text/event-stream" {
        w.WriteHeader(http.StatusOK)
        return
    }
    flusher, ok := w.(http.Flusher)
    if !ok {
        w.WriteHeader(http.StatusOK)
        return
    }
    ctx := r.Context()
    ch, unsub := h.svc.Subscribe(ctx, game.ID)
    defer unsub()
    ticker := time.NewTicker(h.heartbeat)
    defer ticker.Stop()
    flusher.Flush()
    for {
        select {
        case <-ctx.Done():
            return
        case <-ticker.C:
            _, _ = io.WriteString(w, ": ping\n\n")
            flusher.Flush()
        case b, ok := <-ch:
            if !ok {
                return
            }
            _, _ = fmt.Fprintf(w, "event: turn\n")
            _, _ = fmt.Fprintf(w, "data: %s\n\n", b)
            flusher.Flush()
        }
    }
}

func (h *handlers) socket(w http.ResponseWriter, r *http.Request) {
    game, err := h.svc.LatestGame(r.Context())
    if err != nil {
        h.writeError(w, r, err)
        return
    }
    // subscribe before the handshake completes so no turn is missed in between.
    // The request context stays live after the hijack and ends on server shutdown.
    ctx, cancel := context.WithCancel(r.Context())
    defer cancel()
    ch, unsub := h.svc.Subscribe(ctx, game.ID)
    defer unsub()

    conn, err := h.upgrader.Upgrade(w, r, nil)
    if err != nil {
        // Upgrade already replied to the client
        h.log.Debug("websocket upgrade failed", zap.Error(err))
        return
    }
    defer conn.Close()

    // read pump: only used to notice the client going away
    go func() {
        defer cancel()
        for {
            if _, _, err := conn.ReadMessage(); err != nil {
                return
            }
        }
    }()

    ticker := time.NewTicker(h.heartbeat)
    defer ticker.Stop()
    for {
        select {
        case <-ctx.Done():
            _ = conn.WriteControl(websocket.CloseMessage,
                websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
                time.Now().Add(time.Second))
            return
        case <-ticker.C:
            deadline := time.Now().Add(h.heartbeat)
            if err := conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
                return
            }
        case b, ok := <-ch:
            if !ok {
                _ = conn.WriteMessage(websocket.CloseMessage,
                    websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscriber dropped"))
                return
            }
            if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
                return
            }
        }
    }
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
    status, typ := http.StatusInternalServerError, "InternalServerError"
    switch {
    case errors.Is(err, errBadRequest):
        status, typ = http.StatusBadRequest, "InvalidRequest"
    case errors.Is(err, domain.ErrInvalidDisc):
        status, typ = http.StatusBadRequest, "InvalidDiscValue"
    case errors.Is(err, domain.ErrWrongDisc):
        status, typ = http.StatusBadRequest, "SelectedDiscIsNotNextDisc"
    case errors.Is(err, domain.ErrOccupiedSquare):
        status, typ = http.StatusBadRequest, "SelectedPointIsNotEmpty"
    case errors.Is(err, domain.ErrNoCaptures):
        status, typ = http.StatusBadRequest, "FlipPointsIsEmpty"
    case errors.Is(err, app.ErrLatestGameNotFound):
        status, typ = http.StatusNotFound, "LatestGameNotFound"
    case errors.Is(err, app.ErrTurnNotFound):
        status, typ = http.StatusNotFound, "SpecifiedTurnNotFound"
    case errors.Is(err, app.ErrTurnConflict):
        status, typ = http.StatusConflict, "TurnConflict"
    }
    msg := err.Error()
    if status == http.StatusInternalServerError {
        h.log.Error("unexpected error",
            zap.String("path", r.URL.Path),
            zap.String("request_id", middleware.GetReqID(r.Context())),
            zap.Error(err))
        msg = "an unexpected error has occurred"
    }
    writeJSON(w, status, errorResponse{Type: typ, Message: msg})
}
