package workload

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/tomasbasham/taskq"
	"github.com/tomasbasham/taskq/internal/config"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestRun(t *testing.T) {
	tests := map[string]config.WorkloadConfig{
		"five producers one consumer": {
			Producers:        5,
			TasksPerProducer: 200,
			Consumers:        1,
			Mix:              map[string]float64{"high": 1, "medium": 1, "low": 1},
			Seed:             1,
		},
		"many consumers": {
			Producers:        3,
			TasksPerProducer: 100,
			Consumers:        4,
			Mix:              map[string]float64{"high": 1, "low": 3},
			Seed:             2,
		},
		"single tier": {
			Producers:        2,
			TasksPerProducer: 50,
			Consumers:        1,
			Mix:              map[string]float64{"medium": 1},
		},
	}
	for name, cfg := range tests {
		t.Run(name, func(t *testing.T) {
			logger := zerolog.New(zerolog.NewTestWriter(t))
			q := taskq.New[Job]()

			report, err := Run(context.Background(), q, cfg, logger)
			require.NoError(t, err)

			want := cfg.Producers * cfg.TasksPerProducer
			assert.Equal(t, want, report.Produced)
			assert.Equal(t, want, report.Consumed)
			assert.True(t, report.OK(), "violations: %v", report.Violations)
			assert.True(t, q.IsEmpty())

			total := 0
			for p, n := range report.PerTier {
				assert.Contains(t, cfg.Mix, p.String())
				total += n
			}
			assert.Equal(t, want, total)
		})
	}
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cfg := config.DefaultConfig().Workload
	_, err := Run(ctx, taskq.New[Job](), cfg, zerolog.Nop())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRun_NoWeights(t *testing.T) {
	cfg := config.WorkloadConfig{Producers: 1, TasksPerProducer: 1, Consumers: 1}
	_, err := Run(context.Background(), taskq.New[Job](), cfg, zerolog.Nop())
	assert.Error(t, err)
}

// overlapHook records whether two OnRemove calls were ever in flight at the
// same time. The first call waits briefly for a second one to arrive.
type overlapHook struct {
	inFlight   atomic.Int32
	first      atomic.Bool
	once       sync.Once
	overlapped chan struct{}
}

func (h *overlapHook) OnAdd(taskq.TaskInfo)    {}
func (h *overlapHook) OnReject(taskq.Priority) {}

func (h *overlapHook) OnRemove(taskq.TaskInfo) {
	defer h.inFlight.Add(-1)
	if h.inFlight.Add(1) >= 2 {
		h.once.Do(func() { close(h.overlapped) })
	}
	if h.first.CompareAndSwap(false, true) {
		select {
		case <-h.overlapped:
		case <-time.After(time.Second):
		}
	}
}

func TestRun_ConsumersRemoveConcurrently(t *testing.T) {
	hook := &overlapHook{overlapped: make(chan struct{})}
	q := taskq.New[Job](taskq.WithMetricsHook(hook))

	cfg := config.WorkloadConfig{
		Producers:        1,
		TasksPerProducer: 100,
		Consumers:        2,
		Mix:              map[string]float64{"high": 1, "low": 1},
		Seed:             5,
	}
	report, err := Run(context.Background(), q, cfg, zerolog.Nop())
	require.NoError(t, err)
	assert.True(t, report.OK(), "violations: %v", report.Violations)

	select {
	case <-hook.overlapped:
	default:
		t.Fatal("expected consumers to remove tasks concurrently")
	}
}

func job(producer, index int, p taskq.Priority) Consumed {
	return Consumed{Job: Job{Producer: producer, Index: index, Priority: p}}
}

func jobBy(consumer, producer, index int, p taskq.Priority) Consumed {
	c := job(producer, index, p)
	c.Consumer = consumer
	return c
}

func TestVerify(t *testing.T) {
	high, low := taskq.Priorities.High, taskq.Priorities.Low

	tests := map[string]struct {
		consumed []Consumed
		want     []ViolationKind
	}{
		"valid order": {
			consumed: []Consumed{job(0, 1, high), job(1, 0, high), job(0, 0, low), job(1, 1, low)},
		},
		"missing and count": {
			consumed: []Consumed{job(0, 0, high), job(0, 1, high), job(1, 0, high)},
			want:     []ViolationKind{ViolationCount, ViolationMissing},
		},
		"duplicate": {
			consumed: []Consumed{job(0, 0, high), job(0, 0, high), job(0, 1, high), job(1, 0, high)},
			want:     []ViolationKind{ViolationDuplicate, ViolationMissing},
		},
		"priority inversion": {
			consumed: []Consumed{job(0, 0, low), job(0, 1, high), job(1, 0, high), job(1, 1, high)},
			want:     []ViolationKind{ViolationPriority},
		},
		"fifo broken within tier": {
			consumed: []Consumed{job(0, 1, high), job(0, 0, high), job(1, 0, high), job(1, 1, high)},
			want:     []ViolationKind{ViolationFIFO},
		},
		"consumers interleave across tiers": {
			consumed: []Consumed{
				jobBy(0, 0, 0, high), jobBy(0, 1, 1, low),
				jobBy(1, 1, 0, high), jobBy(1, 0, 1, low),
			},
		},
		"consumers interleave within a tier": {
			consumed: []Consumed{
				jobBy(0, 0, 1, high), jobBy(0, 1, 1, high),
				jobBy(1, 0, 0, high), jobBy(1, 1, 0, high),
			},
		},
		"priority inversion within one consumer": {
			consumed: []Consumed{
				jobBy(0, 0, 0, high), jobBy(1, 0, 1, low), jobBy(1, 1, 0, high), jobBy(0, 1, 1, high),
			},
			want: []ViolationKind{ViolationPriority},
		},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			var got []ViolationKind
			for _, v := range Verify(2, 2, tt.consumed) {
				got = append(got, v.Kind)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPicker(t *testing.T) {
	p, err := newPicker(map[taskq.Priority]float64{
		taskq.Priorities.High: 1,
		taskq.Priorities.Low:  3,
	})
	require.NoError(t, err)

	r := rand.New(rand.NewPCG(1, 1))
	counts := make(map[taskq.Priority]int)
	for range 4000 {
		counts[p.pick(r)]++
	}

	assert.Zero(t, counts[taskq.Priorities.Medium])
	assert.InDelta(t, 1000, counts[taskq.Priorities.High], 150)
	assert.InDelta(t, 3000, counts[taskq.Priorities.Low], 150)

	_, err = newPicker(nil)
	assert.Error(t, err)
}
