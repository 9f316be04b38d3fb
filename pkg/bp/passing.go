package bp

import (
	"iter"
	"math"
	"sync"
)

// route describes how a message travelling in one direction is built:
// where it lands relative to the sender and which three incoming messages
// at the sender feed it. The incoming message from the receiver itself is
// never among the inputs.
type route struct {
	dx, dy int
	in     [3]Direction
}

var routes = [4]route{
	Up:    {dx: 0, dy: -1, in: [3]Direction{Down, Right, Left}},
	Down:  {dx: 0, dy: 1, in: [3]Direction{Up, Right, Left}},
	Left:  {dx: -1, dy: 0, in: [3]Direction{Up, Down, Right}},
	Right: {dx: 1, dy: 0, in: [3]Direction{Up, Down, Left}},
}

// sweepOrder is the order of the four directional passes in one round
var sweepOrder = [4]Direction{Right, Left, Down, Up}

// Propagator computes and writes outgoing messages. It reads the cost model
// and updates the message store in place.
type Propagator struct {
	costs   *CostModel
	msgs    *MessageStore
	workers int

	// scratch holds one partial-sum vector per worker
	scratch [][]int32
}

// NewPropagator wires a cost model to a message store. With workers > 1 the
// lanes of each sweep are spread across goroutines.
func NewPropagator(costs *CostModel, msgs *MessageStore, workers int) *Propagator {
	if workers < 1 {
		workers = 1
	}
	p := &Propagator{
		costs:   costs,
		msgs:    msgs,
		workers: workers,
		scratch: make([][]int32, workers),
	}
	for i := range p.scratch {
		p.scratch[i] = make([]int32, costs.levels)
	}
	return p
}

// createMessage writes the min-sum message
//
//	out[i] = min_j data[j] + smooth[i][j] + in1[j] + in2[j] + in3[j]
//
// and then subtracts min(out) so every entry is >= 0 and the smallest is 0.
// h is scratch space of length levels.
func (c *CostModel) createMessage(data, in1, in2, in3, out, h []int32) {
	levels := c.levels
	h = h[:levels]
	for j := range h {
		h[j] = data[j] + in1[j] + in2[j] + in3[j]
	}

	lowest := int32(math.MaxInt32)
	for i := 0; i < levels; i++ {
		row := c.smoothRow(i)
		best := int32(math.MaxInt32)
		for j, v := range h {
			if cost := v + row[j]; cost < best {
				best = cost
			}
		}
		out[i] = best
		if best < lowest {
			lowest = best
		}
	}

	// Normalize message
	for i := range out {
		out[i] -= lowest
	}
}

// Send computes the message pixel (x, y) sends in direction d and stores it
// at the receiving neighbour. The caller guarantees the neighbour exists.
func (p *Propagator) Send(d Direction, x, y int) {
	p.send(d, x, y, p.scratch[0])
}

// SendUp writes into the Down message of (x, y-1)
func (p *Propagator) SendUp(x, y int) { p.Send(Up, x, y) }

// SendDown writes into the Up message of (x, y+1)
func (p *Propagator) SendDown(x, y int) { p.Send(Down, x, y) }

// SendRight writes into the Left message of (x+1, y)
func (p *Propagator) SendRight(x, y int) { p.Send(Right, x, y) }

// SendLeft writes into the Right message of (x-1, y)
func (p *Propagator) SendLeft(x, y int) { p.Send(Left, x, y) }

func (p *Propagator) send(d Direction, x, y int, h []int32) {
	r := routes[d]
	m := p.msgs
	p.costs.createMessage(
		p.costs.dataVector(x, y),
		m.vector(r.in[0], x, y),
		m.vector(r.in[1], x, y),
		m.vector(r.in[2], x, y),
		m.vector(d.Opposite(), x+r.dx, y+r.dy),
		h,
	)
}

// Round runs the four directional sweeps of one iteration: right, left,
// down, up. Later sweeps see the messages written by earlier ones.
func (p *Propagator) Round() {
	for _, d := range sweepOrder {
		p.Sweep(d)
	}
}

// Sweep sends a message in direction d from every pixel that has a
// neighbour that way. A sweep in direction d only writes grid d.Opposite()
// and never reads it, and each row (left/right) or column (up/down) only
// touches its own cells, so lanes may run concurrently as long as each lane
// keeps its own order.
func (p *Propagator) Sweep(d Direction) {
	s := sweep{dir: d, width: p.costs.width, height: p.costs.height}
	lanes := s.lanes()

	if p.workers == 1 || lanes == 1 {
		h := p.scratch[0]
		for lane := 0; lane < lanes; lane++ {
			for x, y := range s.senders(lane) {
				p.send(d, x, y, h)
			}
		}
		return
	}

	laneChan := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < p.workers; w++ {
		wg.Add(1)
		go func(h []int32) {
			defer wg.Done()
			for lane := range laneChan {
				for x, y := range s.senders(lane) {
					p.send(d, x, y, h)
				}
			}
		}(p.scratch[w])
	}
	for lane := 0; lane < lanes; lane++ {
		laneChan <- lane
	}
	close(laneChan)
	wg.Wait()
}

// sweep is one directional pass over the grid. Lanes are rows for left and
// right sweeps and columns for up and down sweeps. The last pixel of each
// lane in the direction of travel has no receiver and is never yielded.
type sweep struct {
	dir    Direction
	width  int
	height int
}

func (s sweep) lanes() int {
	if s.dir == Left || s.dir == Right {
		return s.height
	}
	return s.width
}

// senders yields the (x, y) of every sender in lane, in processing order
func (s sweep) senders(lane int) iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		switch s.dir {
		case Right:
			for x := 0; x < s.width-1; x++ {
				if !yield(x, lane) {
					return
				}
			}
		case Left:
			for x := s.width - 1; x >= 1; x-- {
				if !yield(x, lane) {
					return
				}
			}
		case Down:
			for y := 0; y < s.height-1; y++ {
				if !yield(lane, y) {
					return
				}
			}
		case Up:
			for y := s.height - 1; y >= 1; y-- {
				if !yield(lane, y) {
					return
				}
			}
		}
	}
}
