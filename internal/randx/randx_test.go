package randx_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"coop_economy/internal/randx"
)

func TestNew_Deterministic(t *testing.T) {
	a, b := randx.New(7), randx.New(7)
	for i := 0; i < 100; i++ {
		assert.Equal(t, a.Float64(), b.Float64())
	}
	assert.Equal(t, randx.New(7).Perm(20), randx.New(7).Perm(20))
	assert.NotEqual(t, randx.New(7).Perm(20), randx.New(8).Perm(20))
}

func TestNormFloat64_Moments(t *testing.T) {
	src := randx.New(1)
	const n = 100_000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		v := src.NormFloat64()
		sum += v
		sumSq += v * v
	}
	mean := sum / n
	variance := sumSq/n - mean*mean
	// Standard normal within sampling tolerance
	assert.InDelta(t, 0.0, mean, 0.02)
	assert.InDelta(t, 1.0, variance, 0.03)
}

func TestNormal(t *testing.T) {
	src := randx.New(1)
	const n = 50_000
	var sum float64
	for i := 0; i < n; i++ {
		sum += randx.Normal(src, 75, 15)
	}
	assert.InDelta(t, 75.0, sum/n, 0.5)
}

func TestLogNormal_AlwaysPositive(t *testing.T) {
	src := randx.New(1)
	for i := 0; i < 10_000; i++ {
		v := randx.LogNormal(src, math.Log(1000), 0.6)
		assert.Greater(t, v, 0.0)
	}
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, randx.Clamp(-1, 0, 2))
	assert.Equal(t, 2.0, randx.Clamp(5, 0, 2))
	assert.Equal(t, 1.5, randx.Clamp(1.5, 0, 2))
}

func TestRound2(t *testing.T) {
	assert.InDelta(t, 1.23, randx.Round2(1.234), 1e-12)
	assert.InDelta(t, 1.24, randx.Round2(1.236), 1e-12)
	assert.InDelta(t, -1.23, randx.Round2(-1.234), 1e-12)
	assert.Zero(t, randx.Round2(0))
}
