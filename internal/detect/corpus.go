package detect

import (
	"runtime"
	"sync"

	"github.com/kestrel-data/driving.report/internal/telemetry"
)

// RunCorpus evaluates every dataset under one configuration using a bounded
// worker pool. Each dataset gets its own SessionTester, so workers share no
// mutable state; results come back in dataset order. workers ≤ 0 means one
// worker per CPU.
func RunCorpus(datasets []telemetry.Dataset, cfg Config, workers int) []SessionResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(datasets) {
		workers = len(datasets)
	}

	results := make([]SessionResult, len(datasets))
	jobs := make(chan int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = NewSessionTester(cfg).Run(&datasets[i])
			}
		}()
	}

	for i := range datasets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results
}
