package engine

// Mulberry32 is a 32-bit mix-based pseudo-random generator. Every random draw
// of the optimizer goes through it so a fixed seed reproduces a run exactly.
type Mulberry32 struct {
	state uint32
}

func NewMulberry32(seed uint32) *Mulberry32 {
	return &Mulberry32{state: seed}
}

// Uint32 returns the next 32-bit value.
func (m *Mulberry32) Uint32() uint32 {
	m.state += 0x6D2B79F5
	t := m.state
	t = (t ^ t>>15) * (t | 1)
	t ^= t + (t^t>>7)*(t|61)
	return t ^ t>>14
}

// Float64 returns a value in [0, 1).
func (m *Mulberry32) Float64() float64 {
	return float64(m.Uint32()) / 4294967296
}

// Intn returns a value in [0, n). n must be positive.
func (m *Mulberry32) Intn(n int) int {
	return int(m.Float64() * float64(n))
}
