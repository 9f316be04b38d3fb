package bp

import (
	"math"
	"math/rand/v2"
	"slices"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lbpdenoise/internal/models"
)

// naiveMessage is the textbook min-sum update without scratch reuse
func naiveMessage(c *CostModel, data, in1, in2, in3 []int32) []int32 {
	out := make([]int32, c.levels)
	for i := range out {
		best := int32(1 << 30)
		for j := range data {
			cost := data[j] + c.smooth[i*c.levels+j] + in1[j] + in2[j] + in3[j]
			if cost < best {
				best = cost
			}
		}
		out[i] = best
	}
	lowest := slices.Min(out)
	for i := range out {
		out[i] -= lowest
	}
	return out
}

func randomVector(r *rand.Rand, n, max int) []int32 {
	v := make([]int32, n)
	for i := range v {
		v[i] = int32(r.IntN(max))
	}
	return v
}

func TestCreateMessageMatchesNaive(t *testing.T) {
	r := rand.New(rand.NewPCG(1, 2))
	levels := 24
	costs := NewCostModel(rampGrid(2, 2, levels), levels, 2)
	h := make([]int32, levels)

	for trial := 0; trial < 50; trial++ {
		data := randomVector(r, levels, levels)
		in1 := randomVector(r, levels, 40)
		in2 := randomVector(r, levels, 40)
		in3 := randomVector(r, levels, 40)

		out := make([]int32, levels)
		costs.createMessage(data, in1, in2, in3, out, h)

		if diff := cmp.Diff(naiveMessage(costs, data, in1, in2, in3), out); diff != "" {
			t.Fatalf("trial %d: message mismatch (-want +got):\n%s", trial, diff)
		}
	}
}

func TestCreateMessageIsNormalized(t *testing.T) {
	r := rand.New(rand.NewPCG(7, 11))
	levels := 16
	costs := NewCostModel(rampGrid(2, 2, levels), levels, 1)
	h := make([]int32, levels)

	for trial := 0; trial < 50; trial++ {
		out := make([]int32, levels)
		costs.createMessage(
			randomVector(r, levels, 100),
			randomVector(r, levels, 100),
			randomVector(r, levels, 100),
			randomVector(r, levels, 100),
			out, h,
		)
		assert.Equal(t, int32(0), slices.Min(out))
		for _, v := range out {
			assert.GreaterOrEqual(t, v, int32(0))
		}
	}
}

func TestSendWritesOppositeGridOfNeighbour(t *testing.T) {
	// 3x3 with a single bright pixel in the middle
	grid := models.GridFromRows([][]int{
		{0, 0, 0},
		{0, 5, 0},
		{0, 0, 0},
	})
	levels := 8

	tests := []struct {
		name   string
		send   func(p *Propagator)
		grid   Direction
		tx, ty int
	}{
		{"up", func(p *Propagator) { p.SendUp(1, 1) }, Down, 1, 0},
		{"down", func(p *Propagator) { p.SendDown(1, 1) }, Up, 1, 2},
		{"right", func(p *Propagator) { p.SendRight(1, 1) }, Left, 2, 1},
		{"left", func(p *Propagator) { p.SendLeft(1, 1) }, Right, 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			costs := NewCostModel(grid, levels, 1)
			msgs := NewMessageStore(3, 3, levels)
			p := NewPropagator(costs, msgs, 1)

			tt.send(p)

			// With zero incoming messages and lambda 1 the message is |i - pixel|
			want := []int{5, 4, 3, 2, 1, 0, 1, 2}
			assert.Equal(t, want, msgs.Message(tt.grid, tt.tx, tt.ty))

			// Nothing else was touched
			for _, d := range Directions {
				for y := 0; y < 3; y++ {
					for x := 0; x < 3; x++ {
						if d == tt.grid && x == tt.tx && y == tt.ty {
							continue
						}
						require.Equal(t, make([]int, levels), msgs.Message(d, x, y), "%s grid at (%d,%d)", d, x, y)
					}
				}
			}
		})
	}
}

func TestSendIgnoresMessageFromReceiver(t *testing.T) {
	levels := 12
	grid := rampGrid(3, 3, levels)
	r := rand.New(rand.NewPCG(3, 5))

	targets := map[Direction][2]int{
		Up:    {1, 0},
		Down:  {1, 2},
		Left:  {0, 1},
		Right: {2, 1},
	}

	for _, d := range Directions {
		t.Run(d.String(), func(t *testing.T) {
			costs := NewCostModel(grid, levels, 2)
			msgs := NewMessageStore(3, 3, levels)
			for _, in := range Directions {
				for label := 0; label < levels; label++ {
					msgs.Set(in, 1, 1, label, r.IntN(30))
				}
			}
			p := NewPropagator(costs, msgs, 1)

			p.Send(d, 1, 1)
			target := targets[d]
			before := msgs.Message(d.Opposite(), target[0], target[1])

			// Poison the message the receiver sent us and send again
			for label := 0; label < levels; label++ {
				msgs.Set(d, 1, 1, label, 1000+r.IntN(1000))
			}
			p.Send(d, 1, 1)
			after := msgs.Message(d.Opposite(), target[0], target[1])

			assert.Equal(t, before, after)
		})
	}
}

func TestSweepSendersSkipFarEdge(t *testing.T) {
	collect := func(s sweep, lane int) [][2]int {
		var got [][2]int
		for x, y := range s.senders(lane) {
			got = append(got, [2]int{x, y})
		}
		return got
	}

	assert.Equal(t, [][2]int{{0, 2}, {1, 2}, {2, 2}}, collect(sweep{dir: Right, width: 4, height: 3}, 2))
	assert.Equal(t, [][2]int{{3, 0}, {2, 0}, {1, 0}}, collect(sweep{dir: Left, width: 4, height: 3}, 0))
	assert.Equal(t, [][2]int{{1, 0}, {1, 1}}, collect(sweep{dir: Down, width: 4, height: 3}, 1))
	assert.Equal(t, [][2]int{{3, 2}, {3, 1}}, collect(sweep{dir: Up, width: 4, height: 3}, 3))

	// A single column has no left/right receivers
	assert.Empty(t, collect(sweep{dir: Right, width: 1, height: 3}, 0))
	assert.Empty(t, collect(sweep{dir: Up, width: 3, height: 1}, 0))

	assert.Equal(t, 3, sweep{dir: Left, width: 4, height: 3}.lanes())
	assert.Equal(t, 4, sweep{dir: Down, width: 4, height: 3}.lanes())
}

func TestParallelSweepsMatchSequential(t *testing.T) {
	levels := 16
	r := rand.New(rand.NewPCG(42, 42))
	grid := models.NewGrid(9, 7)
	for i := range grid.Pix {
		grid.Pix[i] = r.IntN(levels)
	}

	run := func(workers int) (*Solver, []models.IterationResult) {
		s, err := NewSolver(grid, Params{Levels: levels, Lambda: 2, Iterations: 3, Workers: workers})
		require.NoError(t, err)
		_, results, err := s.Run(t.Context(), nil)
		require.NoError(t, err)
		return s, results
	}

	seq, seqResults := run(1)
	for _, workers := range []int{2, 3, 8} {
		par, parResults := run(workers)
		assert.Equal(t, seqResults, parResults, "workers=%d", workers)
		assert.Equal(t, seq.Labels().Labels, par.Labels().Labels, "workers=%d", workers)
		for _, d := range Directions {
			assert.Equal(t, seq.msgs.grids[d], par.msgs.grids[d], "workers=%d %s grid", workers, d)
		}
	}
}

// referenceLBP runs loopy BP over nested slices with plain loops in the
// canonical sweep order. It returns the energy of every iteration and the
// final message tables indexed [direction][y][x][label].
func referenceLBP(pix [][]int, levels, lambda, iterations int) ([]int, [4][][][]int) {
	height, width := len(pix), len(pix[0])
	abs := func(v int) int {
		if v < 0 {
			return -v
		}
		return v
	}

	var msg [4][][][]int
	for d := range msg {
		msg[d] = make([][][]int, height)
		for y := range msg[d] {
			msg[d][y] = make([][]int, width)
			for x := range msg[d][y] {
				msg[d][y][x] = make([]int, levels)
			}
		}
	}

	create := func(x, y int, in1, in2, in3 Direction, out []int) {
		for i := 0; i < levels; i++ {
			best := math.MaxInt
			for j := 0; j < levels; j++ {
				cost := abs(pix[y][x]-j) + lambda*abs(i-j) +
					msg[in1][y][x][j] + msg[in2][y][x][j] + msg[in3][y][x][j]
				if cost < best {
					best = cost
				}
			}
			out[i] = best
		}
		lowest := slices.Min(out)
		for i := range out {
			out[i] -= lowest
		}
	}

	var energies []int
	labels := make([][]int, height)
	for y := range labels {
		labels[y] = make([]int, width)
	}
	for iter := 0; iter <= iterations; iter++ {
		if iter > 0 {
			for y := 0; y < height; y++ {
				for x := 0; x < width-1; x++ {
					create(x, y, Up, Down, Left, msg[Left][y][x+1])
				}
			}
			for y := 0; y < height; y++ {
				for x := width - 1; x >= 1; x-- {
					create(x, y, Up, Down, Right, msg[Right][y][x-1])
				}
			}
			for x := 0; x < width; x++ {
				for y := 0; y < height-1; y++ {
					create(x, y, Up, Right, Left, msg[Up][y+1][x])
				}
			}
			for x := 0; x < width; x++ {
				for y := height - 1; y >= 1; y-- {
					create(x, y, Down, Right, Left, msg[Down][y-1][x])
				}
			}
		}

		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				best, bestLabel := math.MaxInt, 0
				for l := 0; l < levels; l++ {
					b := abs(pix[y][x] - l)
					for d := range msg {
						b += msg[d][y][x][l]
					}
					if b < best {
						best, bestLabel = b, l
					}
				}
				labels[y][x] = bestLabel
			}
		}

		energy := 0
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				energy += abs(pix[y][x] - labels[y][x])
				if x+1 < width {
					energy += lambda * abs(labels[y][x]-labels[y][x+1])
				}
				if y+1 < height {
					energy += lambda * abs(labels[y][x]-labels[y+1][x])
				}
			}
		}
		energies = append(energies, energy)
	}
	return energies, msg
}

func TestRoundMatchesReferenceTrajectory(t *testing.T) {
	tests := []struct {
		name          string
		width, height int
		levels        int
		lambda        int
		iterations    int
		seed          uint64
	}{
		{"square", 5, 5, 12, 2, 3, 1},
		{"wide", 7, 4, 16, 3, 2, 2},
		{"tall", 3, 6, 10, 1, 4, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := rand.New(rand.NewPCG(tt.seed, 99))
			rows := make([][]int, tt.height)
			for y := range rows {
				rows[y] = make([]int, tt.width)
				for x := range rows[y] {
					rows[y][x] = r.IntN(tt.levels)
				}
			}

			wantEnergies, wantMsgs := referenceLBP(rows, tt.levels, tt.lambda, tt.iterations)

			for _, workers := range []int{1, 3} {
				s, err := NewSolver(models.GridFromRows(rows), Params{
					Levels:     tt.levels,
					Lambda:     tt.lambda,
					Iterations: tt.iterations,
					Workers:    workers,
				})
				require.NoError(t, err)
				_, results, err := s.Run(t.Context(), nil)
				require.NoError(t, err)

				gotEnergies := make([]int, len(results))
				for i, res := range results {
					gotEnergies[i] = res.Energy
				}
				require.Equal(t, wantEnergies, gotEnergies, "workers=%d", workers)

				for _, d := range Directions {
					for y := 0; y < tt.height; y++ {
						for x := 0; x < tt.width; x++ {
							require.Equal(t, wantMsgs[d][y][x], s.Messages().Message(d, x, y),
								"workers=%d %s message at (%d,%d)", workers, d, x, y)
						}
					}
				}
			}
		})
	}
}
