package memprof

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// DefaultInterval is the resident memory sampling period.
const DefaultInterval = 100 * time.Millisecond

// ErrNoSamples indicates resident memory could not be read even once.
var ErrNoSamples = errors.New("no memory samples collected")

// Usage is the resident memory of the process observed while a function ran.
type Usage struct {
	Samples []float64 // MiB, in sampling order
	Mean    float64
	Peak    float64
}

// SampleUsage runs fn while sampling the resident set size of the current
// process every interval, plus once before and once after. fn's error is
// returned unchanged; sampling stops on every exit path.
func SampleUsage(ctx context.Context, interval time.Duration, fn func() error) (Usage, error) {
	if interval <= 0 {
		interval = DefaultInterval
	}

	proc, err := process.NewProcessWithContext(ctx, int32(os.Getpid())) //nolint:gosec // PIDs fit in int32.
	if err != nil {
		return Usage{}, fmt.Errorf("failed to open current process: %w", err)
	}

	var (
		mu      sync.Mutex
		samples []float64
	)
	record := func() {
		mi, err := proc.MemoryInfoWithContext(ctx)
		if err != nil {
			return
		}
		mu.Lock()
		samples = append(samples, float64(mi.RSS)/(1<<20))
		mu.Unlock()
	}

	record()

	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				record()
			}
		}
	}()

	runErr := func() error {
		defer func() {
			close(done)
			wg.Wait()
		}()
		return fn()
	}()

	record()

	u := summarize(samples)
	if len(u.Samples) == 0 && runErr == nil {
		return u, ErrNoSamples
	}
	return u, runErr
}

func summarize(samples []float64) Usage {
	u := Usage{Samples: samples}
	if len(samples) == 0 {
		return u
	}
	var sum float64
	for _, s := range samples {
		sum += s
		u.Peak = max(u.Peak, s)
	}
	u.Mean = sum / float64(len(samples))
	return u
}

// WriteUsage prints the mean resident memory in MiB.
func WriteUsage(w io.Writer, u Usage) error {
	_, err := fmt.Fprintf(w, "%.4f MiB mean, %.4f MiB peak over %d samples\n", u.Mean, u.Peak, len(u.Samples))
	return err
}
