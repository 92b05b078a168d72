package domain

import (
    "errors"
    "fmt"
)

// Disc represents the content of a board square.
type Disc uint8

const (
    Empty Disc = iota
    Dark
    Light
)

// wall surrounds the playable squares of the padded board. It never leaves Board.
const wall Disc = 3

// Errors returned by domain operations.
var (
    ErrOccupiedSquare     = errors.New("selected point is not empty")
    ErrNoCaptures         = errors.New("move flips no discs")
    ErrWrongDisc          = errors.New("selected disc is not the next disc")
    ErrInvalidDisc        = errors.New("invalid disc value")
    ErrInvalidWinnerValue = errors.New("invalid winner disc value")
)

// ParseDisc decodes a wire value (0 empty, 1 dark, 2 light).
func ParseDisc(v int) (Disc, error) {
    if v < int(Empty) || v > int(Light) {
        return Empty, fmt.Errorf("%w: %d", ErrInvalidDisc, v)
    }
    return Disc(v), nil
}

// Opposite returns the other player's colour. Empty stays Empty.
func (d Disc) Opposite() Disc {
    switch d {
    case Dark:
        return Light
    case Light:
        return Dark
    default:
        return Empty
    }
}

func (d Disc) String() string {
    switch d {
    case Empty:
        return "empty"
    case Dark:
        return "dark"
    case Light:
        return "light"
    case wall:
        return "wall"
    default:
        return fmt.Sprintf("Disc(%d)", uint8(d))
    }
}

// isOpposite reports whether other holds a disc of the colour opposing d.
func isOpposite(d, other Disc) bool {
    return (d == Dark && other == Light) || (d == Light && other == Dark)
}

// Point is a board coordinate, x is the column and y the row.
type Point struct {
    X int
    Y int
}

// InBounds reports whether p lies on the 8x8 playing area.
func (p Point) InBounds() bool {
    return p.X >= 0 && p.X < Size && p.Y >= 0 && p.Y < Size
}

// Move is a placement intent by one player.
type Move struct {
    Disc  Disc
    Point Point
}
