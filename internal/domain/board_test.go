package domain

import (
    "errors"
    "testing"
)

// helper to build a board from rows of 'D', 'L' and '.'
func boardFrom(t *testing.T, rows [Size]string) Board {
    t.Helper()
    var discs [Size][Size]Disc
    for y, row := range rows {
        if len(row) != Size {
            t.Fatalf("row %d has %d squares", y, len(row))
        }
        for x, ch := range row {
            switch ch {
            case 'D':
                discs[y][x] = Dark
            case 'L':
                discs[y][x] = Light
            case '.':
            default:
                t.Fatalf("unexpected square %q at (%d,%d)", ch, x, y)
            }
        }
    }
    return NewBoard(discs)
}

func TestInitialBoard(t *testing.T) {
    b := InitialBoard()
    want := map[Point]Disc{
        {X: 3, Y: 3}: Dark,
        {X: 4, Y: 4}: Dark,
        {X: 3, Y: 4}: Light,
        {X: 4, Y: 3}: Light,
    }
    for p, d := range want {
        if got := b.At(p); got != d {
            t.Fatalf("expected %v at %v, got %v", d, p, got)
        }
    }
    if b.Count(Dark) != 2 || b.Count(Light) != 2 || b.Count(Empty) != 60 {
        t.Fatalf("unexpected counts dark=%d light=%d empty=%d", b.Count(Dark), b.Count(Light), b.Count(Empty))
    }
}

func TestDiscsNeverExposeWall(t *testing.T) {
    discs := InitialBoard().Discs()
    for y := range discs {
        for x, d := range discs[y] {
            if d != Empty && d != Dark && d != Light {
                t.Fatalf("square (%d,%d) exposes %v", x, y, d)
            }
        }
    }
}

func TestPlaceCapturesAndLeavesReceiverUntouched(t *testing.T) {
    b := InitialBoard()
    next, err := b.Place(Move{Disc: Dark, Point: Point{X: 4, Y: 2}})
    if err != nil {
        t.Fatalf("place failed: %v", err)
    }
    if next.Count(Dark) != 4 || next.Count(Light) != 1 {
        t.Fatalf("expected dark=4 light=1, got dark=%d light=%d", next.Count(Dark), next.Count(Light))
    }
    if next.At(Point{X: 4, Y: 3}) != Dark {
        t.Fatalf("expected (4,3) flipped to dark")
    }
    if b.Count(Dark) != 2 || b.Count(Light) != 2 || b.At(Point{X: 4, Y: 2}) != Empty {
        t.Fatalf("receiver board was modified")
    }
}

func TestPlaceOccupied(t *testing.T) {
    b := InitialBoard()
    for y := 0; y < Size; y++ {
        for x := 0; x < Size; x++ {
            p := Point{X: x, Y: y}
            if b.At(p) == Empty {
                continue
            }
            for _, d := range []Disc{Dark, Light} {
                if _, err := b.Place(Move{Disc: d, Point: p}); !errors.Is(err, ErrOccupiedSquare) {
                    t.Fatalf("expected ErrOccupiedSquare for %v on %v, got %v", d, p, err)
                }
            }
        }
    }
}

func TestPlaceWithoutCaptures(t *testing.T) {
    b := InitialBoard()
    cases := []Point{{X: 0, Y: 0}, {X: 7, Y: 7}, {X: 2, Y: 2}, {X: 5, Y: 5}, {X: 3, Y: 2}}
    for _, p := range cases {
        if _, err := b.Place(Move{Disc: Dark, Point: p}); !errors.Is(err, ErrNoCaptures) {
            t.Fatalf("expected ErrNoCaptures for %v, got %v", p, err)
        }
    }
}

func TestPlaceFlipsEveryDirection(t *testing.T) {
    b := boardFrom(t, [Size]string{
        "D..D..D.",
        ".L.L.L..",
        "..LLL...",
        "DLL.LLD.",
        "..LLL...",
        ".L.L.L..",
        "D..D..D.",
        "........",
    })
    next, err := b.Place(Move{Disc: Dark, Point: Point{X: 3, Y: 3}})
    if err != nil {
        t.Fatalf("place failed: %v", err)
    }
    if next.Count(Light) != 0 {
        t.Fatalf("expected all 16 light discs flipped, %d remain", next.Count(Light))
    }
    if next.Count(Dark) != 8+16+1 {
        t.Fatalf("expected 25 dark discs, got %d", next.Count(Dark))
    }
}

func TestPlaceIgnoresRunsClosedByEmptyOrWall(t *testing.T) {
    b := boardFrom(t, [Size]string{
        ".LLD....",
        "L.......",
        "L.......",
        "........",
        "........",
        "........",
        "........",
        "........",
    })
    next, err := b.Place(Move{Disc: Dark, Point: Point{X: 0, Y: 0}})
    if err != nil {
        t.Fatalf("place failed: %v", err)
    }
    // east run closed by dark flips, south run closed by empty does not
    if next.At(Point{X: 1, Y: 0}) != Dark || next.At(Point{X: 2, Y: 0}) != Dark {
        t.Fatalf("expected east run flipped")
    }
    if next.At(Point{X: 0, Y: 1}) != Light || next.At(Point{X: 0, Y: 2}) != Light {
        t.Fatalf("expected south run untouched")
    }

    edge := boardFrom(t, [Size]string{
        "........",
        "........",
        "........",
        "........",
        "........",
        "........",
        "........",
        ".....LLL",
    })
    if _, err := edge.Place(Move{Disc: Dark, Point: Point{X: 4, Y: 7}}); !errors.Is(err, ErrNoCaptures) {
        t.Fatalf("expected run ending at the wall to capture nothing, got %v", err)
    }
}

func TestPlaceOffBoardPanics(t *testing.T) {
    defer func() {
        if recover() == nil {
            t.Fatalf("expected panic for off-board point")
        }
    }()
    _, _ = InitialBoard().Place(Move{Disc: Dark, Point: Point{X: 8, Y: 0}})
}

func TestNewBoardRejectsNonPlayerDiscs(t *testing.T) {
    var discs [Size][Size]Disc
    discs[2][5] = wall
    defer func() {
        if recover() == nil {
            t.Fatalf("expected panic for a wall disc inside the grid")
        }
    }()
    _ = NewBoard(discs)
}

func TestExistValidMoveAndValidMoves(t *testing.T) {
    b := InitialBoard()
    if !b.ExistValidMove(Dark) || !b.ExistValidMove(Light) {
        t.Fatalf("expected both sides to have moves on the initial board")
    }
    want := []Point{{X: 4, Y: 2}, {X: 5, Y: 3}, {X: 2, Y: 4}, {X: 3, Y: 5}}
    got := b.ValidMoves(Dark)
    if len(got) != len(want) {
        t.Fatalf("expected %v, got %v", want, got)
    }
    for i := range want {
        if got[i] != want[i] {
            t.Fatalf("expected %v, got %v", want, got)
        }
    }

    lonely := boardFrom(t, [Size]string{
        "DL......",
        "........",
        "........",
        "........",
        "........",
        "........",
        "........",
        "........",
    })
    if !lonely.ExistValidMove(Dark) {
        t.Fatalf("expected dark to have a move")
    }
    if lonely.ExistValidMove(Light) {
        t.Fatalf("expected light to have no move")
    }
}

func TestLegalMovesChangeCounts(t *testing.T) {
    b := InitialBoard()
    for _, mover := range []Disc{Dark, Light} {
        for _, p := range b.ValidMoves(mover) {
            next, err := b.Place(Move{Disc: mover, Point: p})
            if err != nil {
                t.Fatalf("valid move %v for %v failed: %v", p, mover, err)
            }
            gained := next.Count(mover) - b.Count(mover)
            lost := b.Count(mover.Opposite()) - next.Count(mover.Opposite())
            if gained < 2 {
                t.Fatalf("mover gained %d discs on %v", gained, p)
            }
            if lost != gained-1 {
                t.Fatalf("opponent lost %d discs, expected %d", lost, gained-1)
            }
        }
    }
}

func TestParseDisc(t *testing.T) {
    for v, want := range []Disc{Empty, Dark, Light} {
        got, err := ParseDisc(v)
        if err != nil || got != want {
            t.Fatalf("ParseDisc(%d) = %v, %v", v, got, err)
        }
    }
    for _, v := range []int{-1, 3, 257} {
        if _, err := ParseDisc(v); !errors.Is(err, ErrInvalidDisc) {
            t.Fatalf("expected ErrInvalidDisc for %d, got %v", v, err)
        }
    }
}
