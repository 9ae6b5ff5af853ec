// ABOUTME: Batch duration probing with per-file isolation
// ABOUTME: A file only counts if it opens and yields at least a short decode
package sonido

import (
	"runtime"
	"sync"
)

// probeSec is how much audio a file must actually decode to count as
// readable, not just carry plausible headers.
const probeSec = 0.1

// Durations returns the duration in seconds for each path, in input order.
// Unreadable entries are nil; one bad file never affects its neighbors.
func Durations(paths []string) []*float64 {
	out := make([]*float64, len(paths))
	if len(paths) == 0 {
		return out
	}

	workers := runtime.NumCPU()
	if workers > len(paths) {
		workers = len(paths)
	}

	jobs := make(chan int)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				out[i] = probeDuration(paths[i])
			}
		}()
	}
	for i := range paths {
		jobs <- i
	}
	close(jobs)
	wg.Wait()
	return out
}

func probeDuration(path string) *float64 {
	r, err := Open(path)
	if err != nil {
		return nil
	}
	defer r.Close()

	probe, err := r.Decode(0, probeSec)
	if err != nil {
		return nil
	}

	d := r.DurationSec()
	if d < 0 {
		// Length not declared by the container: count the remaining frames.
		rest, err := r.readUntilEOF(nil)
		if err != nil {
			return nil
		}
		d = float64(probe.Frames()+rest.Frames()) / float64(r.SampleRate())
	}
	return &d
}
