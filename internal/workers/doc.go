/*
Package workers sizes and bounds the ingest worker pool.

GOMAXPROCS follows container CPU limits (Go 1.19+), while runtime.NumCPU
reports host CPUs. Count and its helpers scale from GOMAXPROCS:

	numWorkers := workers.ForMixed(8) // 1.5 per CPU, at most 8

Set INGEST_WORKERS to pin the count:

	env:
	- name: INGEST_WORKERS
	  value: "4"

Limiter caps how many upload jobs process files at once. Each job runs on
its own goroutine and holds a slot while it decodes and transforms:

	lim := workers.NewLimiter(workers.ForMixed(8))
	if err := lim.Acquire(ctx); err != nil {
		return err
	}
	defer lim.Release()
*/
package workers
