// Package worker fans a batch of jobs out to goroutines and collects the
// results in input order.
package worker

import (
	"context"
	"sync"
)

// Run applies fn to every input and returns the outputs in input order.
// At most size jobs run at once; size <= 0 starts one goroutine per input.
// Run waits for every job, so fn must honour ctx to make cancellation prompt.
func Run[In, Out any](ctx context.Context, inputs []In, size int, fn func(context.Context, In) Out) []Out {
	results := make([]Out, len(inputs))
	if len(inputs) == 0 {
		return results
	}
	if size <= 0 || size > len(inputs) {
		size = len(inputs)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for range size {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = fn(ctx, inputs[i])
			}
		}()
	}

	for i := range inputs {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return results
}
