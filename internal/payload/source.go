package payload

import (
	"math/rand"
	"time"
)

// Source supplies all randomness and wall-clock readings used to build a bundle.
// Implementations are not required to be safe for concurrent use; give each session
// its own Source.
type Source interface {
	// Intn returns a uniform value in [0, n).
	Intn(n int) int
	// Float64 returns a uniform value in [0, 1).
	Float64() float64
	// Now returns the timestamp stamped into generated records.
	Now() time.Time
}

type randSource struct {
	rnd   *rand.Rand
	clock func() time.Time
}

// NewSource returns a deterministic Source for the given seed. A nil clock falls back
// to time.Now; pass a fixed clock to get byte-identical bundles.
func NewSource(seed int64, clock func() time.Time) Source {
	if clock == nil {
		clock = time.Now
	}
	return &randSource{rnd: rand.New(rand.NewSource(seed)), clock: clock}
}

// NewRandomSource returns a Source seeded from the current time.
func NewRandomSource() Source {
	return NewSource(time.Now().UnixNano(), nil)
}

func (s *randSource) Intn(n int) int { return s.rnd.Intn(n) }
func (s *randSource) Float64() float64 { return s.rnd.Float64() }
func (s *randSource) Now() time.Time { return s.clock() }
