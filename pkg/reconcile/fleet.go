package reconcile

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sourcegraph/conc/pool"

	"github.com/bmcdonald3/fwreconcile/pkg/logger"
)

// HostRunner runs the reconciliation workflow for a single host.
type HostRunner interface {
	Run(ctx context.Context, host string) HostOutcome
}

// Fleet runs a HostRunner over a host list with bounded concurrency.
type Fleet struct {
	*logger.Logger

	Runner HostRunner
	// Concurrency caps the number of hosts in flight. Zero or less means one
	// worker per host.
	Concurrency int
	// StallWarning is how long a host may run before it is reported as slow.
	// Zero disables the watchdog.
	StallWarning time.Duration
}

// Run reconciles every host, duplicates included, and returns one outcome per
// input host. Outcomes are in completion order, not input order. Run blocks
// while all workers are busy.
func (f *Fleet) Run(ctx context.Context, hosts []string) []HostOutcome {
	if len(hosts) == 0 {
		return nil
	}
	workers := f.Concurrency
	if workers <= 0 || workers > len(hosts) {
		workers = len(hosts)
	}
	f.Infof("reconciling %d hosts with %d workers", len(hosts), workers)

	inflight := newInflight()
	stop := f.watch(inflight)
	defer stop()

	p := pool.NewWithResults[HostOutcome]().WithMaxGoroutines(workers)
	for i, host := range hosts {
		p.Go(func() HostOutcome {
			inflight.add(i, host)
			defer inflight.remove(i)
			return f.Runner.Run(ctx, host)
		})
	}
	return p.Wait()
}

// watch logs hosts that have been running longer than StallWarning until the
// returned func is called.
func (f *Fleet) watch(in *inflight) (stop func()) {
	if f.StallWarning <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		tk := time.NewTicker(f.StallWarning)
		defer tk.Stop()
		for {
			select {
			case <-done:
				return
			case now := <-tk.C:
				for _, s := range in.olderThan(now, f.StallWarning) {
					f.Warningf("host %s still running after %s", s.host, now.Sub(s.since).Round(time.Second))
				}
			}
		}
	}()
	return func() {
		close(done)
		wg.Wait()
	}
}

type inflightHost struct {
	host  string
	since time.Time
}

// inflight tracks running hosts by their position in the input list so that
// duplicate addresses are tracked separately.
type inflight struct {
	mu    sync.Mutex
	hosts map[int]inflightHost
}

func newInflight() *inflight {
	return &inflight{hosts: make(map[int]inflightHost)}
}

func (in *inflight) add(i int, host string) {
	in.mu.Lock()
	defer in.mu.Unlock()
	in.hosts[i] = inflightHost{host: host, since: time.Now()}
}

func (in *inflight) remove(i int) {
	in.mu.Lock()
	defer in.mu.Unlock()
	delete(in.hosts, i)
}

func (in *inflight) olderThan(now time.Time, d time.Duration) []inflightHost {
	in.mu.Lock()
	defer in.mu.Unlock()
	var slow []inflightHost
	for _, h := range in.hosts {
		if now.Sub(h.since) >= d {
			slow = append(slow, h)
		}
	}
	sort.Slice(slow, func(i, j int) bool { return slow[i].since.Before(slow[j].since) })
	return slow
}
