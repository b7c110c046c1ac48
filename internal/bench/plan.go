// Package bench plans repeated benchmark runs, records per-run metrics to an
// append-only log and aggregates them into summary statistics.
package bench

import "fmt"

// RunSpec describes one planned run. Warmup runs are executed but excluded
// from aggregation.
type RunSpec struct {
	Index  int
	Total  int
	Warmup bool
	Label  string
}

// Plan lays out warmup runs followed by timed runs. With benchmarking off
// (runs <= 0) it returns a single unlabeled run.
func Plan(warmup, runs int) []RunSpec {
	if runs <= 0 {
		return []RunSpec{{Index: 0, Total: 1}}
	}

	total := warmup + runs
	specs := make([]RunSpec, 0, total)
	for i := 0; i < warmup; i++ {
		specs = append(specs, RunSpec{
			Index:  i,
			Total:  total,
			Warmup: true,
			Label:  fmt.Sprintf("warmup %d/%d", i+1, warmup),
		})
	}
	for i := 0; i < runs; i++ {
		specs = append(specs, RunSpec{
			Index: warmup + i,
			Total: total,
			Label: fmt.Sprintf("run %d/%d", i+1, runs),
		})
	}
	return specs
}
