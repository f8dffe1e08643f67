package celltree

import "sync"

// minChunkSize is the smallest number of queries handed to a worker.
const minChunkSize = 64

// runBatch runs fn over n queries split in contiguous chunks across at most
// workers goroutines. Each goroutine gets its own scratch buffers.
func runBatch(n int, workers int, fn func(s *scratch, i int)) {
	chunks := chunkCount(n, workers)
	if chunks <= 1 {
		s := newScratch()
		for i := 0; i < n; i++ {
			fn(s, i)
		}
		return
	}

	size := (n + chunks - 1) / chunks

	var wg sync.WaitGroup
	for start := 0; start < n; start += size {
		end := min(start+size, n)

		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()

			s := newScratch()
			for i := start; i < end; i++ {
				fn(s, i)
			}
		}(start, end)
	}
	wg.Wait()
}

func chunkCount(n int, workers int) int {
	if workers <= 1 || n <= minChunkSize {
		return 1
	}
	return min(workers, (n+minChunkSize-1)/minChunkSize)
}

// collect runs query for every item and concatenates the per item results in
// item order.
func collect[T any](n int, workers int, query func(dst []T, s *scratch, i int) []T) []T {
	if chunkCount(n, workers) <= 1 {
		res := []T{}
		s := newScratch()
		for i := 0; i < n; i++ {
			res = query(res, s, i)
		}
		return res
	}

	perItem := make([][]T, n)
	runBatch(n, workers, func(s *scratch, i int) {
		perItem[i] = query(nil, s, i)
	})

	total := 0
	for _, items := range perItem {
		total += len(items)
	}

	res := make([]T, 0, total)
	for _, items := range perItem {
		res = append(res, items...)
	}
	return res
}
