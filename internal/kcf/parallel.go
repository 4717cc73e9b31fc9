package kcf

import "sync"

// forChannels calls fn(c) for every channel index in [0, n), split into
// contiguous runs over at most workers goroutines. fn must only touch state
// owned by channel c.
func forChannels(n, workers int, fn func(c int)) {
	if workers > n {
		workers = n
	}
	if workers <= 1 {
		for c := 0; c < n; c++ {
			fn(c)
		}
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for c := lo; c < hi; c++ {
				fn(c)
			}
		}(lo, hi)
	}
	wg.Wait()
}
