package markov

import (
	"fmt"
	"math/rand/v2"
)

// Rand is the random source used for sampling. *rand.Rand satisfies it.
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// Generator performs a weighted random walk over a Table.
//
// A Generator is not safe for concurrent use because its Rand is not; the
// Table it reads may be shared by any number of Generators.
type Generator struct {
	table *Table
	rng   Rand
}

// NewGenerator creates a generator over table drawing from rng
func NewGenerator(table *Table, rng Rand) *Generator {
	return &Generator{table: table, rng: rng}
}

// NewSeededGenerator creates a generator with a PCG source seeded by seed
func NewSeededGenerator(table *Table, seed uint64) *Generator {
	return NewGenerator(table, NewRand(seed))
}

// NewRand returns a deterministic source for seed
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Generate returns exactly n pitches. When start is nil the first pitch is
// drawn uniformly from the table's source pitches.
func (g *Generator) Generate(n int, start *Pitch) (Sequence, error) {
	if n < 1 {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidLength, n)
	}
	if g.table.Len() == 0 {
		return nil, ErrInvalidModel
	}

	var current Pitch
	if start != nil {
		if !start.Valid() {
			return nil, fmt.Errorf("%w: start %d", ErrInvalidPitch, *start)
		}
		current = *start
	} else {
		current = g.randomKey()
	}

	seq := make(Sequence, 0, n)
	seq = append(seq, current)
	for len(seq) < n {
		current, _ = g.Step(current)
		seq = append(seq, current)
	}
	return seq, nil
}

// Step picks the pitch that follows current.
//
// If current is a source pitch the next pitch is sampled from its row,
// weighted by probability. Otherwise current is a dead end (only ever seen as
// a destination) and Step applies the dead-end fallback: the next pitch is
// drawn uniformly from all source pitches so the walk can continue. deadEnd
// reports whether the fallback was taken. The table must not be empty.
func (g *Generator) Step(current Pitch) (next Pitch, deadEnd bool) {
	row, ok := g.table.rows[current]
	if !ok {
		return g.randomKey(), true
	}
	return sample(row, g.rng.Float64()), false
}

func (g *Generator) randomKey() Pitch {
	return g.table.keys[g.rng.IntN(len(g.table.keys))]
}

// sample walks the cumulative distribution of row with r in [0, 1)
func sample(row []Transition, r float64) Pitch {
	cumulative := 0.0
	for _, tr := range row {
		cumulative += tr.Probability
		if r < cumulative {
			return tr.To
		}
	}
	// rounding can leave the total a hair under 1
	return row[len(row)-1].To
}
