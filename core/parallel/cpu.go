package parallel

import (
	"runtime"

	"github.com/klauspost/cpuid/v2"
)

// CPUInfo describes the host the forest is trained on.
type CPUInfo struct {
	Brand          string
	PhysicalCores  int
	LogicalCores   int
	ThreadsPerCore int
	NumCPU         int
	AVX2           bool
	AVX512         bool
}

// DescribeCPU reports the detected processor. cpuid leaves core counts at
// zero on platforms it cannot probe; NumCPU is always set.
func DescribeCPU() CPUInfo {
	return CPUInfo{
		Brand:          cpuid.CPU.BrandName,
		PhysicalCores:  cpuid.CPU.PhysicalCores,
		LogicalCores:   cpuid.CPU.LogicalCores,
		ThreadsPerCore: cpuid.CPU.ThreadsPerCore,
		NumCPU:         runtime.NumCPU(),
		AVX2:           cpuid.CPU.Supports(cpuid.AVX2),
		AVX512:         cpuid.CPU.Supports(cpuid.AVX512F, cpuid.AVX512DQ),
	}
}
