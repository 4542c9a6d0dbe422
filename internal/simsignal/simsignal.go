// Package simsignal implements the data-simulator contract shared by every
// protocol server's periodic value-evolution tick: analog values perform a
// clamped Gaussian random walk, booleans flip with a fixed probability, and
// status strings rotate through a weighted bag. Pulling this into one
// package keeps the walk/profile math identical across modbus/mqtt/bacnet/
// coap instead of re-deriving it per protocol.
package simsignal

import (
	"math/rand"
	"strings"
)

// Sigma is the per-quantity-name standard deviation table for the random walk.
var Sigma = map[string]float64{
	"temperature": 0.5,
	"pressure":    1.0,
	"humidity":    2.0,
	"voltage":     5.0,
	"current":     10.0, // current's sigma is specified as a range [0,20]; 10 is the walk's fixed midpoint
	"power":       2500, // power's range is [0,5000]; 2500 is the walk's fixed midpoint
	"light":       50,
}

// SigmaFor resolves name (case-insensitive substring match against the
// known profile table) to its sigma, falling back to def when no profile
// matches.
func SigmaFor(name string, def float64) float64 {
	lower := strings.ToLower(name)
	for key, sigma := range Sigma {
		if strings.Contains(lower, key) {
			return sigma
		}
	}
	return def
}

// WalkAnalog advances v by one Gaussian step (mean 0, stddev sigma),
// clamped to [min, max].
func WalkAnalog(rng *rand.Rand, v, sigma, min, max float64) float64 {
	next := v + rng.NormFloat64()*sigma
	if next < min {
		next = min
	}
	if next > max {
		next = max
	}
	return next
}

// FlipBool flips v with probability p (a typical boolean tick uses 0.1).
func FlipBool(rng *rand.Rand, v bool, p float64) bool {
	if rng.Float64() < p {
		return !v
	}
	return v
}

// DefaultStatusBag is the status-string rotation bag, heavily weighted
// toward "running".
var DefaultStatusBag = []string{
	"running", "running", "running", "running", "running", "running", "running",
	"idle", "warning", "error",
}

// NextStatus draws the next status string from bag uniformly at random.
func NextStatus(rng *rand.Rand, bag []string) string {
	if len(bag) == 0 {
		bag = DefaultStatusBag
	}
	return bag[rng.Intn(len(bag))]
}
