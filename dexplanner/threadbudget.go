package dexplanner

import "github.com/klauspost/cpuid/v2"

// RecommendedThreadBudget estimates a parallelism budget on the premise
// that the bottleneck is CPU-bound external tooling (the dexer, xz)
// rather than I/O, so hyperthread siblings buy little. cpuid's physical
// core count is a direct read of that quantity; it avoids the common
// runtime.NumCPU()/2 approximation, which is wrong on any machine without
// exactly two hardware threads per core.
func RecommendedThreadBudget() int {
	n := cpuid.CPU.PhysicalCores
	if n < 1 {
		return 1
	}
	return n
}
