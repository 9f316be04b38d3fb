package bp

import "fmt"

// Direction names one of the four grid neighbours of a pixel.
type Direction int

const (
	Up Direction = iota
	Down
	Left
	Right
)

// Directions lists every direction in table order
var Directions = [4]Direction{Up, Down, Left, Right}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	default:
		return fmt.Sprintf("Direction(%d)", int(d))
	}
}

// Opposite returns the direction pointing back the other way
func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	default:
		return Left
	}
}

// MessageStore owns the four directional message grids.
//
// The grid for direction D at pixel (x, y) holds the message that (x, y)
// received from its neighbour in direction D: msgUp at (x, y) was sent by
// (x, y-1), msgLeft by (x-1, y) and so on. Each grid is one flat buffer laid
// out [y][x][label].
//
// Coordinates are not validated; an out-of-range access panics.
type MessageStore struct {
	width  int
	height int
	levels int
	grids  [4][]int32
}

// NewMessageStore allocates four zeroed message grids
func NewMessageStore(width, height, levels int) *MessageStore {
	m := &MessageStore{
		width:  width,
		height: height,
		levels: levels,
	}
	for _, d := range Directions {
		m.grids[d] = make([]int32, width*height*levels)
	}
	return m
}

// Reset zeroes every message in all four grids
func (m *MessageStore) Reset() {
	for _, d := range Directions {
		clear(m.grids[d])
	}
}

// Get returns one entry of the message stored for direction d at (x, y)
func (m *MessageStore) Get(d Direction, x, y, label int) int {
	return int(m.grids[d][m.offset(x, y)+label])
}

// Set overwrites one entry of the message stored for direction d at (x, y)
func (m *MessageStore) Set(d Direction, x, y, label, v int) {
	m.grids[d][m.offset(x, y)+label] = int32(v)
}

// Message returns a copy of the full message vector for direction d at (x, y)
func (m *MessageStore) Message(d Direction, x, y int) []int {
	v := m.vector(d, x, y)
	out := make([]int, len(v))
	for i, c := range v {
		out[i] = int(c)
	}
	return out
}

func (m *MessageStore) offset(x, y int) int {
	return (y*m.width + x) * m.levels
}

// vector returns the live message cell for direction d at (x, y)
func (m *MessageStore) vector(d Direction, x, y int) []int32 {
	off := m.offset(x, y)
	return m.grids[d][off : off+m.levels : off+m.levels]
}
