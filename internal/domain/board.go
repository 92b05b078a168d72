package domain

import "fmt"

// Size is the number of rows and columns of the playing area.
const Size = 8

const walledSize = Size + 2

// Board is an immutable 8x8 Reversi board.
//
// Squares are stored in a 10x10 array padded with a ring of wall so that
// directional scans stop on the border without bounds checks. Logical
// (x, y) lives at index (y+1)*10 + (x+1).
type Board struct {
    cells [walledSize * walledSize]Disc
}

// directions holds index offsets for N, NE, E, SE, S, SW, W, NW.
var directions = [8]int{
    -walledSize,
    -walledSize + 1,
    1,
    walledSize + 1,
    walledSize,
    walledSize - 1,
    -1,
    -walledSize - 1,
}

// NewBoard builds a board from an unpadded row-major (y then x) grid.
// Every square must hold Empty, Dark or Light; NewBoard panics otherwise.
// Decode untrusted values with ParseDisc first.
func NewBoard(discs [Size][Size]Disc) Board {
    var b Board
    for i := range b.cells {
        b.cells[i] = wall
    }
    for y := 0; y < Size; y++ {
        for x := 0; x < Size; x++ {
            d := discs[y][x]
            if d > Light {
                panic(fmt.Sprintf("domain: invalid disc %d at (%d,%d)", uint8(d), x, y))
            }
            b.cells[index(Point{X: x, Y: y})] = d
        }
    }
    return b
}

// InitialBoard returns the standard starting position.
func InitialBoard() Board {
    var discs [Size][Size]Disc
    discs[3][3] = Dark
    discs[4][4] = Dark
    discs[3][4] = Light
    discs[4][3] = Light
    return NewBoard(discs)
}

func index(p Point) int {
    return (p.Y+1)*walledSize + (p.X + 1)
}

func pointAt(i int) Point {
    return Point{X: i%walledSize - 1, Y: i/walledSize - 1}
}

// Discs returns the unpadded grid, row-major (y then x).
func (b Board) Discs() [Size][Size]Disc {
    var out [Size][Size]Disc
    for y := 0; y < Size; y++ {
        for x := 0; x < Size; x++ {
            out[y][x] = b.cells[index(Point{X: x, Y: y})]
        }
    }
    return out
}

// At returns the disc on p. p must be in bounds.
func (b Board) At(p Point) Disc {
    mustInBounds(p)
    return b.cells[index(p)]
}

// Place returns the board after move is played. The receiver is unchanged.
func (b Board) Place(move Move) (Board, error) {
    mustInBounds(move.Point)
    if b.cells[index(move.Point)] != Empty {
        return b, ErrOccupiedSquare
    }

    flips := b.flipPoints(move)
    if len(flips) == 0 {
        return b, ErrNoCaptures
    }

    next := b
    next.cells[index(move.Point)] = move.Disc
    for _, i := range flips {
        next.cells[i] = move.Disc
    }
    return next, nil
}

// flipPoints returns the padded indexes captured by move.
func (b Board) flipPoints(move Move) []int {
    var flips []int
    origin := index(move.Point)
    for _, step := range directions {
        var run []int
        cursor := origin + step
        for isOpposite(move.Disc, b.cells[cursor]) {
            run = append(run, cursor)
            cursor += step
        }
        // the run only counts when closed by the mover's colour
        if len(run) > 0 && b.cells[cursor] == move.Disc {
            flips = append(flips, run...)
        }
    }
    return flips
}

// ExistValidMove reports whether disc can be placed anywhere.
func (b Board) ExistValidMove(disc Disc) bool {
    for y := 0; y < Size; y++ {
        for x := 0; x < Size; x++ {
            p := Point{X: x, Y: y}
            if b.cells[index(p)] != Empty {
                continue
            }
            if len(b.flipPoints(Move{Disc: disc, Point: p})) > 0 {
                return true
            }
        }
    }
    return false
}

// ValidMoves lists every legal square for disc in row-major order.
func (b Board) ValidMoves(disc Disc) []Point {
    var out []Point
    for i, c := range b.cells {
        if c != Empty {
            continue
        }
        p := pointAt(i)
        if len(b.flipPoints(Move{Disc: disc, Point: p})) > 0 {
            out = append(out, p)
        }
    }
    return out
}

// Count returns the number of squares holding disc.
func (b Board) Count(disc Disc) int {
    n := 0
    for _, c := range b.cells {
        if c == disc {
            n++
        }
    }
    return n
}

func mustInBounds(p Point) {
    if !p.InBounds() {
        panic(fmt.Sprintf("domain: point (%d,%d) is off the board", p.X, p.Y))
    }
}
