package markov

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

// stubRand returns scripted values so sampling decisions are predictable
type stubRand struct {
	ints   []int
	floats []float64
	intN   []int
	draws  int
}

func (s *stubRand) IntN(n int) int {
	s.intN = append(s.intN, n)
	if len(s.ints) == 0 {
		return 0
	}
	v := s.ints[0]
	s.ints = s.ints[1:]
	return v % n
}

func (s *stubRand) Float64() float64 {
	s.draws++
	if len(s.floats) == 0 {
		return 0
	}
	v := s.floats[0]
	s.floats = s.floats[1:]
	return v
}

func pitchPtr(p Pitch) *Pitch { return &p }

func TestBuildScenario(t *testing.T) {
	table := Build(Sequence{60, 62, 60, 64})

	if table.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", table.Len())
	}

	tests := []struct {
		from, to Pitch
		want     float64
	}{
		{60, 62, 0.5},
		{60, 64, 0.5},
		{62, 60, 1.0},
		{62, 64, 0},
		{64, 60, 0},
	}
	for _, tt := range tests {
		if got := table.Probability(tt.from, tt.to); got != tt.want {
			t.Errorf("Probability(%d, %d) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}

	if table.Has(64) {
		t.Error("64 is only a destination and should not be a key")
	}
}

func TestCountsAdd(t *testing.T) {
	c := NewCounts()
	c.Add(Sequence{60, 62, 60, 64})

	if c[60][62] != 1 || c[60][64] != 1 || c[62][60] != 1 {
		t.Errorf("unexpected counts: %v", c)
	}
	if c.Transitions() != 3 {
		t.Errorf("Transitions() = %d, want 3", c.Transitions())
	}
}

func TestBuildShortSequences(t *testing.T) {
	tests := []struct {
		name string
		seqs []Sequence
	}{
		{"no sequences", nil},
		{"empty sequence", []Sequence{{}}},
		{"single pitch", []Sequence{{60}}},
		{"several singles", []Sequence{{60}, {62}, {}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if table := Build(tt.seqs...); table.Len() != 0 {
				t.Errorf("Build() produced %d keys, want 0", table.Len())
			}
		})
	}
}

func TestBuildAccumulatesAcrossSequences(t *testing.T) {
	table := Build(Sequence{60, 62}, Sequence{60, 64}, Sequence{60, 64})

	if got := table.Probability(60, 62); math.Abs(got-1.0/3) > 1e-12 {
		t.Errorf("Probability(60, 62) = %v, want 1/3", got)
	}
	if got := table.Probability(60, 64); math.Abs(got-2.0/3) > 1e-12 {
		t.Errorf("Probability(60, 64) = %v, want 2/3", got)
	}
	// no transition bridges the end of one sequence and the start of the next
	if table.Has(62) {
		t.Error("62 ends a sequence and should not be a key")
	}
}

func TestCountsMergeIsOrderIndependent(t *testing.T) {
	seqs := []Sequence{{60, 62, 64}, {64, 62, 60, 62}, {48, 50}}

	forward := NewCounts()
	for _, s := range seqs {
		part := NewCounts()
		part.Add(s)
		forward.Merge(part)
	}

	backward := NewCounts()
	for i := len(seqs) - 1; i >= 0; i-- {
		part := NewCounts()
		part.Add(seqs[i])
		backward.Merge(part)
	}

	if !forward.Normalize().Equal(backward.Normalize()) {
		t.Error("merge order changed the table")
	}
	if !forward.Normalize().Equal(Build(seqs...)) {
		t.Error("merged counts differ from Build")
	}
}

func randomSequences(seed uint64, n int) []Sequence {
	rng := NewRand(seed)
	seqs := make([]Sequence, n)
	for i := range seqs {
		seq := make(Sequence, 2+rng.IntN(48))
		for j := range seq {
			seq[j] = Pitch(36 + rng.IntN(24))
		}
		seqs[i] = seq
	}
	return seqs
}

func TestRowsSumToOne(t *testing.T) {
	for seed := uint64(1); seed <= 20; seed++ {
		table := Build(randomSequences(seed, 5)...)
		for _, from := range table.Keys() {
			sum := 0.0
			for _, tr := range table.Row(from) {
				sum += tr.Probability
			}
			if math.Abs(sum-1) > 1e-9 {
				t.Errorf("seed %d: row %d sums to %v", seed, from, sum)
			}
		}
	}
}

func TestDestinationsMatchObserved(t *testing.T) {
	seqs := randomSequences(7, 8)
	observed := make(map[Pitch]map[Pitch]bool)
	for _, s := range seqs {
		for i := 0; i+1 < len(s); i++ {
			if observed[s[i]] == nil {
				observed[s[i]] = make(map[Pitch]bool)
			}
			observed[s[i]][s[i+1]] = true
		}
	}

	table := Build(seqs...)
	if table.Len() != len(observed) {
		t.Fatalf("Len() = %d, want %d", table.Len(), len(observed))
	}
	for from, want := range observed {
		row := table.Row(from)
		if len(row) != len(want) {
			t.Errorf("row %d has %d destinations, want %d", from, len(row), len(want))
		}
		for _, tr := range row {
			if !want[tr.To] || tr.Probability <= 0 {
				t.Errorf("row %d has unexpected destination %d (p=%v)", from, tr.To, tr.Probability)
			}
		}
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	seqs := randomSequences(3, 6)
	if !Build(seqs...).Equal(Build(seqs...)) {
		t.Error("building twice produced different tables")
	}
}

func TestTableJSON(t *testing.T) {
	data, err := json.Marshal(Build(Sequence{60, 62, 60, 64}))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got map[string]map[string]float64
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["60"]["62"] != 0.5 || got["60"]["64"] != 0.5 || got["62"]["60"] != 1 {
		t.Errorf("unexpected JSON table: %s", data)
	}
}

func TestGenerateScenario(t *testing.T) {
	table := Build(Sequence{60, 62, 60, 64})
	// 0.99 lands in the last bucket of 60's row
	gen := NewGenerator(table, &stubRand{floats: []float64{0.0, 0.99}})

	seq, err := gen.Generate(3, pitchPtr(62))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	want := Sequence{62, 60, 64}
	for i := range want {
		if seq[i] != want[i] {
			t.Fatalf("Generate() = %v, want %v", seq, want)
		}
	}
}

func TestGenerateLengthOne(t *testing.T) {
	table := Build(Sequence{60, 62, 60, 64})
	rng := &stubRand{}
	gen := NewGenerator(table, rng)

	seq, err := gen.Generate(1, pitchPtr(62))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if len(seq) != 1 || seq[0] != 62 {
		t.Errorf("Generate(1) = %v, want [62]", seq)
	}
	if len(rng.intN) != 0 || rng.draws != 0 {
		t.Errorf("Generate(1) with a start pitch sampled: %d IntN, %d Float64 calls", len(rng.intN), rng.draws)
	}
}

func TestGenerateRandomStart(t *testing.T) {
	table := Build(Sequence{60, 62, 60, 64})
	rng := &stubRand{ints: []int{1}}
	seq, err := NewGenerator(table, rng).Generate(1, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	// keys are sorted: [60 62]
	if seq[0] != 62 {
		t.Errorf("start = %d, want 62", seq[0])
	}
	if len(rng.intN) != 1 || rng.intN[0] != 2 {
		t.Errorf("start should be drawn over 2 keys, got IntN calls %v", rng.intN)
	}
}

func TestGenerateErrors(t *testing.T) {
	table := Build(Sequence{60, 62})

	tests := []struct {
		name  string
		table *Table
		n     int
		start *Pitch
		want  error
	}{
		{"empty table", Build(), 10, nil, ErrInvalidModel},
		{"empty table with start", Build(), 10, pitchPtr(60), ErrInvalidModel},
		{"nil table", nil, 10, nil, ErrInvalidModel},
		{"zero length", table, 0, nil, ErrInvalidLength},
		{"negative length", table, -3, nil, ErrInvalidLength},
		{"start out of range", table, 3, pitchPtr(200), ErrInvalidPitch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewSeededGenerator(tt.table, 1).Generate(tt.n, tt.start)
			if !errors.Is(err, tt.want) {
				t.Errorf("Generate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestStepDeadEndFallback(t *testing.T) {
	table := Build(Sequence{60, 62, 60, 64})
	rng := &stubRand{ints: []int{1}}
	gen := NewGenerator(table, rng)

	next, deadEnd := gen.Step(64)
	if !deadEnd {
		t.Error("Step(64) should report a dead end")
	}
	if next != 62 {
		t.Errorf("Step(64) = %d, want 62", next)
	}
	if len(rng.intN) != 1 || rng.intN[0] != table.Len() {
		t.Errorf("fallback should draw over all %d keys, got %v", table.Len(), rng.intN)
	}
}

func TestStepFollowsRow(t *testing.T) {
	table := Build(Sequence{60, 62, 60, 64})
	gen := NewGenerator(table, &stubRand{floats: []float64{0.25, 0.75}})

	if next, deadEnd := gen.Step(60); next != 62 || deadEnd {
		t.Errorf("Step(60) = %d, %v, want 62, false", next, deadEnd)
	}
	if next, deadEnd := gen.Step(60); next != 64 || deadEnd {
		t.Errorf("Step(60) = %d, %v, want 64, false", next, deadEnd)
	}
}

func TestGenerateDeterministic(t *testing.T) {
	table := Build(randomSequences(11, 4)...)
	a, err := NewSeededGenerator(table, 42).Generate(200, pitchPtr(table.Keys()[0]))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	b, err := NewSeededGenerator(table, 42).Generate(200, pitchPtr(table.Keys()[0]))
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	if len(a) != 200 {
		t.Fatalf("len = %d, want 200", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs diverge at %d: %d vs %d", i, a[i], b[i])
		}
	}
}

func TestGenerateStaysInObservedPitches(t *testing.T) {
	seqs := randomSequences(5, 3)
	table := Build(seqs...)
	seen := make(map[Pitch]bool)
	for _, s := range seqs {
		for _, p := range s {
			seen[p] = true
		}
	}

	seq, err := NewSeededGenerator(table, 9).Generate(500, nil)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	for i, p := range seq {
		if !seen[p] {
			t.Fatalf("pitch %d at %d never appeared in the corpus", p, i)
		}
	}
}

func TestParsePitch(t *testing.T) {
	tests := []struct {
		in      string
		want    Pitch
		wantErr bool
	}{
		{"60", 60, false},
		{"0", 0, false},
		{"127", 127, false},
		{"C4", 60, false},
		{"c4", 60, false},
		{"A4", 69, false},
		{"F#3", 54, false},
		{"Bb2", 46, false},
		{"C-1", 0, false},
		{"128", 0, true},
		{"-1", 0, true},
		{"H4", 0, true},
		{"C", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePitch(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParsePitch(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("ParsePitch(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestPitchString(t *testing.T) {
	if got := Pitch(60).String(); got != "C4" {
		t.Errorf("Pitch(60).String() = %q, want C4", got)
	}
	if got := Pitch(61).String(); got != "C#4" {
		t.Errorf("Pitch(61).String() = %q, want C#4", got)
	}
}
