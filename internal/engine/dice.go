package engine

import (
	"math/rand"
	"time"
)

// Dice is the only source of randomness the resolvers see. Implementations
// are consumed strictly in call order.
type Dice interface {
	RollD6() int
	RollD3() int
	RollNd6(n int) []int
}

// Real rolls from a math/rand source. It is not safe for concurrent use;
// give every engine its own.
type Real struct {
	r *rand.Rand
}

func NewReal(r *rand.Rand) *Real { return &Real{r: r} }

// Seeded returns real dice for seed, or time-seeded dice when seed is 0.
func Seeded(seed int64) *Real {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return NewReal(rand.New(rand.NewSource(seed)))
}

func (d *Real) RollD6() int { return 1 + d.r.Intn(6) }

func (d *Real) RollD3() int { return 1 + d.r.Intn(3) }

func (d *Real) RollNd6(n int) []int { return rollN(d, n) }

// Replay feeds a fixed sequence of d6 results. Running dry panics with
// ErrDiceExhausted; the engine turns that into an InvariantError.
type Replay struct {
	seq []int
	pos int
}

func NewReplay(seq ...int) *Replay { return &Replay{seq: seq} }

func (d *Replay) RollD6() int {
	if d.pos >= len(d.seq) {
		panic(ErrDiceExhausted)
	}
	v := d.seq[d.pos]
	d.pos++
	return v
}

// RollD3 maps the next raw value r to min(3, ceil(r/2)), so one vector can
// drive both kinds of roll.
func (d *Replay) RollD3() int { return min(3, (d.RollD6()+1)/2) }

func (d *Replay) RollNd6(n int) []int { return rollN(d, n) }

// Remaining is the number of unread values.
func (d *Replay) Remaining() int { return len(d.seq) - d.pos }

func rollN(d Dice, n int) []int {
	out := make([]int, max(n, 0))
	for i := range out {
		out[i] = d.RollD6()
	}
	return out
}

// willpowerCheck rolls 2d6; the check passes on a total at or under wp.
func willpowerCheck(d Dice, wp int) (total int, passed bool) {
	rolls := d.RollNd6(2)
	total = rolls[0] + rolls[1]
	return total, total <= wp
}
