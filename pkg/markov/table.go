package markov

import (
	"encoding/json"
	"errors"
	"math"
	"sort"
	"strconv"
)

// Errors returned by the model and generator
var (
	ErrInvalidModel  = errors.New("invalid model: transition table is empty")
	ErrInvalidLength = errors.New("sequence length must be at least 1")
	ErrInvalidPitch  = errors.New("invalid pitch")
)

// Counts accumulates observed transitions. A missing row or cell reads as zero.
type Counts map[Pitch]map[Pitch]int

// NewCounts creates an empty count matrix
func NewCounts() Counts {
	return make(Counts)
}

// Inc increments the count for from -> to, creating the row on first use
func (c Counts) Inc(from, to Pitch, n int) {
	row, ok := c[from]
	if !ok {
		row = make(map[Pitch]int)
		c[from] = row
	}
	row[to] += n
}

// Add counts every adjacent pair in seq. Sequences shorter than two
// pitches contribute nothing.
func (c Counts) Add(seq Sequence) {
	for i := 0; i+1 < len(seq); i++ {
		c.Inc(seq[i], seq[i+1], 1)
	}
}

// Merge adds other's counts into c
func (c Counts) Merge(other Counts) {
	for from, row := range other {
		for to, n := range row {
			c.Inc(from, to, n)
		}
	}
}

// Transitions returns the total number of observed pairs
func (c Counts) Transitions() int {
	total := 0
	for _, row := range c {
		for _, n := range row {
			total += n
		}
	}
	return total
}

// Normalize converts the counts into a transition table
func (c Counts) Normalize() *Table {
	t := &Table{rows: make(map[Pitch][]Transition, len(c))}
	for from, row := range c {
		total := 0
		for _, n := range row {
			total += n
		}
		if total == 0 {
			continue
		}

		transitions := make([]Transition, 0, len(row))
		for to, n := range row {
			if n == 0 {
				continue
			}
			transitions = append(transitions, Transition{
				To:          to,
				Probability: float64(n) / float64(total),
			})
		}
		sort.Slice(transitions, func(i, j int) bool { return transitions[i].To < transitions[j].To })

		t.rows[from] = transitions
		t.keys = append(t.keys, from)
	}
	sort.Slice(t.keys, func(i, j int) bool { return t.keys[i] < t.keys[j] })
	return t
}

// Build counts the transitions of every sequence and normalizes once at the
// end, so a multi-file corpus is modeled as a whole.
func Build(seqs ...Sequence) *Table {
	c := NewCounts()
	for _, seq := range seqs {
		c.Add(seq)
	}
	return c.Normalize()
}

// Transition is one outgoing edge of a table row
type Transition struct {
	To          Pitch   `json:"to"`
	Probability float64 `json:"p"`
}

// Table maps a source pitch to a probability distribution over the pitches
// observed to follow it. It is never mutated after construction.
type Table struct {
	rows map[Pitch][]Transition
	keys []Pitch
}

// Len returns the number of source pitches
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.keys)
}

// Keys returns the source pitches in ascending order
func (t *Table) Keys() []Pitch {
	if t == nil {
		return nil
	}
	return append([]Pitch(nil), t.keys...)
}

// Has reports whether p is a source pitch
func (t *Table) Has(p Pitch) bool {
	if t == nil {
		return false
	}
	_, ok := t.rows[p]
	return ok
}

// Row returns the outgoing transitions of from, ordered by destination
func (t *Table) Row(from Pitch) []Transition {
	if t == nil {
		return nil
	}
	return append([]Transition(nil), t.rows[from]...)
}

// Probability returns P(to | from), zero when never observed
func (t *Table) Probability(from, to Pitch) float64 {
	if t == nil {
		return 0
	}
	for _, tr := range t.rows[from] {
		if tr.To == to {
			return tr.Probability
		}
	}
	return 0
}

// Equal reports whether both tables hold the same rows
func (t *Table) Equal(other *Table) bool {
	if t.Len() != other.Len() {
		return false
	}
	for _, from := range t.Keys() {
		a, b := t.rows[from], other.rows[from]
		if len(a) != len(b) {
			return false
		}
		for i := range a {
			if a[i].To != b[i].To || math.Abs(a[i].Probability-b[i].Probability) > 1e-12 {
				return false
			}
		}
	}
	return true
}

// MarshalJSON encodes the table as {"60": {"62": 0.5, ...}, ...}
func (t *Table) MarshalJSON() ([]byte, error) {
	out := make(map[string]map[string]float64, t.Len())
	for _, from := range t.Keys() {
		row := make(map[string]float64, len(t.rows[from]))
		for _, tr := range t.rows[from] {
			row[strconv.Itoa(int(tr.To))] = tr.Probability
		}
		out[strconv.Itoa(int(from))] = row
	}
	return json.Marshal(out)
}
