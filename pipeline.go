package proximity

import "sync"

// task splits data into contiguous chunks, one per worker, and calls fn on every element
// with its index. It returns once every worker is done.
func task[T any](workersCount int, data []T, fn func(i int, data T)) {
	dataSize := len(data)
	if dataSize == 0 {
		return
	}
	workersCount = max(1, min(workersCount, dataSize))

	var wg sync.WaitGroup
	chunkSize := (dataSize + workersCount - 1) / workersCount

	for workerID := 0; workerID < workersCount; workerID++ {
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i, data[i])
			}
		}(workerID*chunkSize, min((workerID+1)*chunkSize, dataSize))
	}
	wg.Wait()
}
