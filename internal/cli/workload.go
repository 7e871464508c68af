package cli

import (
	"math"
	"sort"
)

// demoSink keeps workload results alive.
var demoSink float64

// crunch burns CPU on floating point work.
//
//go:noinline
func crunch(n int) float64 {
	x := 0.0
	for i := 1; i <= n; i++ {
		x += math.Sqrt(float64(i)) * math.Sin(float64(i))
	}
	return x
}

// shuffle allocates and sorts a slice of n pseudo-random values.
//
//go:noinline
func shuffle(n int) []int {
	values := make([]int, 0, n)
	seed := uint32(2463534242)
	for i := 0; i < n; i++ {
		seed ^= seed << 13
		seed ^= seed >> 17
		seed ^= seed << 5
		values = append(values, int(seed%1000003))
	}
	sort.Ints(values)
	return values
}

// workload returns a target doing crunchN units of math and sorting
// shuffleN values.
func workload(crunchN, shuffleN int) func() error {
	return func() error {
		demoSink = crunch(crunchN)
		if shuffleN > 0 {
			demoSink += float64(len(shuffle(shuffleN)))
		}
		return nil
	}
}
