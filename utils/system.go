package utils

import (
	"fmt"
	"math"
	"runtime"

	"gonum.org/v1/gonum/mat"
)

func GetMemUsage() string {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	// For info on each, see: https://golang.org/pkg/runtime/#MemStats
	bToMb := func(b uint64) uint64 {
		return b / 1024 / 1024
	}
	return fmt.Sprintf("Alloc = %v MiB TotalAlloc = %v MiB Sys = %v MiB NumGC = %v",
		bToMb(m.Alloc), bToMb(m.TotalAlloc), bToMb(m.Sys), m.NumGC)
}

// IsNan reports NaN or Inf anywhere in a scalar, slice or dense field
func IsNan(A any) bool {
	switch v := A.(type) {
	case float64:
		return math.IsNaN(v) || math.IsInf(v, 0)
	case []float64:
		return !AllFinite(v)
	case *mat.Dense:
		nr, _ := v.Dims()
		for i := 0; i < nr; i++ {
			if !AllFinite(v.RawRowView(i)) {
				return true
			}
		}
	case []*mat.Dense:
		for _, f := range v {
			if IsNan(f) {
				return true
			}
		}
	}
	return false
}
