package web

import (
    "encoding/json"
    "net/http"
    "time"

    "github.com/jaminalder/reversi/internal/app"
    "github.com/jaminalder/reversi/internal/domain"
)

type pointJSON struct {
    X int `json:"x"`
    Y int `json:"y"`
}

type turnResponse struct {
    GameID     string                        `json:"gameId"`
    TurnCount  int                           `json:"turnCount"`
    Board      [domain.Size][domain.Size]int `json:"board"`
    NextDisc   *int                          `json:"nextDisc"`
    WinnerDisc *int                          `json:"winnerDisc"`
    ValidMoves []pointJSON                   `json:"validMoves"`
}

func newTurnResponse(st app.TurnState) turnResponse {
    res := turnResponse{GameID: st.GameID, TurnCount: st.TurnCount, ValidMoves: make([]pointJSON, 0, len(st.ValidMoves))}
    for y, row := range st.Board {
        for x, d := range row {
            res.Board[y][x] = int(d)
        }
    }
    if st.NextDisc != domain.Empty {
        n := int(st.NextDisc)
        res.NextDisc = &n
    }
    if st.WinnerDisc != nil {
        w := int(*st.WinnerDisc)
        res.WinnerDisc = &w
    }
    for _, p := range st.ValidMoves {
        res.ValidMoves = append(res.ValidMoves, pointJSON{X: p.X, Y: p.Y})
    }
    return res
}

// renderTurn is the broadcast payload of SSE and WebSocket subscribers.
func renderTurn(st app.TurnState) []byte {
    b, err := json.Marshal(newTurnResponse(st))
    if err != nil {
        return nil
    }
    return b
}

type registerTurnRequest struct {
    TurnCount int `json:"turnCount"`
    Move      struct {
        Disc int `json:"disc"`
        X    int `json:"x"`
        Y    int `json:"y"`
    } `json:"move"`
}

type gameJSON struct {
    ID             string     `json:"id"`
    DarkMoveCount  int        `json:"darkMoveCount"`
    LightMoveCount int        `json:"lightMoveCount"`
    WinnerDisc     *int       `json:"winnerDisc"`
    StartedAt      time.Time  `json:"startedAt"`
    EndAt          *time.Time `json:"endAt"`
}

type gamesResponse struct {
    Games []gameJSON `json:"games"`
}

func newGamesResponse(games []app.GameSummary) gamesResponse {
    res := gamesResponse{Games: make([]gameJSON, 0, len(games))}
    for _, g := range games {
        gj := gameJSON{
            ID:             g.GameID,
            DarkMoveCount:  g.DarkMoveCount,
            LightMoveCount: g.LightMoveCount,
            StartedAt:      g.StartedAt,
            EndAt:          g.EndAt,
        }
        if g.WinnerDisc != nil {
            w := int(*g.WinnerDisc)
            gj.WinnerDisc = &w
        }
        res.Games = append(res.Games, gj)
    }
    return res
}

type startedGameResponse struct {
    ID        string    `json:"id"`
    StartedAt time.Time `json:"startedAt"`
}

type errorResponse struct {
    Type    string `json:"type"`
    Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
    w.Header().Set("Content-Type", "application/json; charset=utf-8")
    w.WriteHeader(status)
    _ = json.NewEncoder(w).Encode(v)
}
