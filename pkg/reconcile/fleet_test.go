package reconcile

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bmcdonald3/fwreconcile/pkg/logger"
)

func TestFleet_Run(t *testing.T) {
	tests := map[string]struct {
		hosts       []string
		concurrency int
		wantMax     int
	}{
		"bounded pool": {
			hosts:       []string{"10.0.0.1", "10.0.0.2", "10.0.0.3", "10.0.0.4", "10.0.0.5", "10.0.0.6"},
			concurrency: 2,
			wantMax:     2,
		},
		"one worker per host": {
			hosts:       []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"},
			concurrency: 0,
			wantMax:     3,
		},
		"duplicates are kept": {
			hosts:       []string{"10.0.0.1", "10.0.0.1", "10.0.0.2"},
			concurrency: 8,
			wantMax:     3,
		},
		"sequential": {
			hosts:       []string{"10.0.0.1", "10.0.0.2"},
			concurrency: 1,
			wantMax:     1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			runner := &mockRunner{delay: 20 * time.Millisecond}
			fleet := &Fleet{Logger: logger.Discard(), Runner: runner, Concurrency: test.concurrency}

			outcomes := fleet.Run(context.Background(), test.hosts)

			require.Len(t, outcomes, len(test.hosts))
			var got []string
			for _, o := range outcomes {
				got = append(got, o.Host)
				assert.Equal(t, StateDone, o.State)
			}
			want := append([]string(nil), test.hosts...)
			sort.Strings(want)
			sort.Strings(got)
			assert.Equal(t, want, got)

			assert.LessOrEqual(t, int(runner.maxActive.Load()), test.wantMax)
			if test.wantMax > 1 {
				assert.Greater(t, int(runner.maxActive.Load()), 1, "hosts should run concurrently")
			}
		})
	}
}

func TestFleet_RunNoHosts(t *testing.T) {
	fleet := &Fleet{Logger: logger.Discard(), Runner: &mockRunner{}}

	assert.Empty(t, fleet.Run(context.Background(), nil))
}

func TestFleet_RunIsolatesFailures(t *testing.T) {
	runner := &mockRunner{failHosts: map[string]bool{"10.0.0.2": true}}
	fleet := &Fleet{Logger: logger.Discard(), Runner: runner, Concurrency: 3}

	outcomes := fleet.Run(context.Background(), []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"})

	states := make(map[string]State)
	for _, o := range outcomes {
		states[o.Host] = o.State
	}
	assert.Equal(t, map[string]State{
		"10.0.0.1": StateDone,
		"10.0.0.2": StateErrored,
		"10.0.0.3": StateDone,
	}, states)
}

func TestFleet_StallWarning(t *testing.T) {
	var buf syncBuffer
	fleet := &Fleet{
		Logger:       logger.NewWithWriter(&buf),
		Runner:       &mockRunner{delay: 100 * time.Millisecond},
		Concurrency:  1,
		StallWarning: 20 * time.Millisecond,
	}

	fleet.Run(context.Background(), []string{"10.0.0.9"})

	assert.Contains(t, buf.String(), "host 10.0.0.9 still running")
}

func TestFleet_WithWorkflow(t *testing.T) {
	mock := prepareMockDevice(string(dataDirScenarioA), string(dataStartup))
	fleet := &Fleet{Logger: logger.Discard(), Runner: newTestWorkflow(mock), Concurrency: 1}

	outcomes := fleet.Run(context.Background(), []string{"10.0.0.1"})

	require.Len(t, outcomes, 1)
	assert.Equal(t, StateDone, outcomes[0].State)
	assert.Equal(t, 1, outcomes[0].CountDeletions(DeletionOK))
}

type mockRunner struct {
	delay     time.Duration
	failHosts map[string]bool

	active    atomic.Int32
	maxActive atomic.Int32
}

func (m *mockRunner) Run(_ context.Context, host string) HostOutcome {
	n := m.active.Add(1)
	defer m.active.Add(-1)
	for {
		cur := m.maxActive.Load()
		if n <= cur || m.maxActive.CompareAndSwap(cur, n) {
			break
		}
	}
	time.Sleep(m.delay)

	if m.failHosts[host] {
		return HostOutcome{Host: host, State: StateErrored, ConnStatus: ConnTimeout, Failure: FailureConnectionTimeout}
	}
	return HostOutcome{Host: host, State: StateDone, ConnStatus: ConnSuccess}
}

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
