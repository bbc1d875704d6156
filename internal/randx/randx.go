package randx

import (
	"math"      // Math functions for Box-Muller
	"math/rand" // Underlying pseudo-random generator
)

// Source is the uniform randomness every randomized component draws from.
// Injecting it keeps simulation runs reproducible under a fixed seed.
type Source interface {
	Float64() float64     // Uniform value in [0, 1)
	Perm(n int) []int     // Random permutation of [0, n)
	Intn(n int) int       // Uniform integer in [0, n)
	NormFloat64() float64 // Standard normal value
}

// seededSource wraps math/rand with a fixed seed
type seededSource struct {
	rng *rand.Rand // Seeded generator
}

// New returns a deterministic Source for the given seed.
func New(seed int64) Source {
	return &seededSource{rng: rand.New(rand.NewSource(seed))}
}

func (s *seededSource) Float64() float64 { return s.rng.Float64() }
func (s *seededSource) Perm(n int) []int { return s.rng.Perm(n) }
func (s *seededSource) Intn(n int) int   { return s.rng.Intn(n) }

// NormFloat64 draws a standard normal value via the Box-Muller transform.
func (s *seededSource) NormFloat64() float64 {
	// Guard against log(0); Float64 can return exactly 0.
	u1 := s.rng.Float64()
	for u1 == 0 {
		u1 = s.rng.Float64()
	}
	u2 := s.rng.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}

// Normal draws a gaussian value with the given mean and standard deviation.
func Normal(src Source, mean, std float64) float64 {
	return mean + std*src.NormFloat64()
}

// LogNormal draws a log-normal value parameterized by the log-space mean
// and sigma, matching numpy's random.lognormal.
func LogNormal(src Source, meanLog, sigmaLog float64) float64 {
	return math.Exp(Normal(src, meanLog, sigmaLog))
}

// Clamp bounds v to [min, max].
func Clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Round2 rounds v to two decimal places, the precision every ledger
// stores currency amounts at.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
