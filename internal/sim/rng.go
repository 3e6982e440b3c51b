package sim

// Rand is the deterministic random stream every procedural decision in the
// engine draws from. It is a mulberry32 generator over a single 32-bit word:
// small enough to clone cheaply and identical across architectures, which is
// what the lockstep contract depends on. No wall clock, no global rand.
type Rand struct {
	state uint32
}

// NewRand seeds a fresh stream. Two instances built from the same seed produce
// identical output for identical call sequences.
func NewRand(seed uint32) *Rand {
	return &Rand{state: seed}
}

// Float64 returns the next value in [0, 1).
func (r *Rand) Float64() float64 {
	r.state += 0x6D2B79F5
	z := r.state
	z = (z ^ (z >> 15)) * (z | 1)
	z ^= z + (z^(z>>7))*(z|61)
	z ^= z >> 14
	return float64(z) / (1 << 32)
}

// IntN returns an integer in [min, max], inclusive on both ends. The draw
// happens before the range check so a collapsed range still advances the
// stream the same way on every peer.
func (r *Rand) IntN(min, max int) int {
	f := r.Float64()
	if max <= min {
		return min
	}
	return min + int(f*float64(max-min+1))
}

// Clone returns an independent stream positioned at the same point.
func (r *Rand) Clone() *Rand {
	return &Rand{state: r.state}
}
