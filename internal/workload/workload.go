// Package workload drives a [taskq.Queue] with concurrent producers and
// consumers and checks the ordering guarantees on what comes out.
package workload

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/tomasbasham/taskq"
	"github.com/tomasbasham/taskq/internal/config"
)

// Job is the payload queued by producers.
type Job struct {
	Producer int
	Index    int
	Priority taskq.Priority
}

// Consumed is a job as observed by a consumer.
type Consumed struct {
	Job
	Consumer int
	Order    int // removal order within Consumer
}

// Report summarises a run.
type Report struct {
	Produced   int
	Consumed   int
	PerTier    map[taskq.Priority]int
	Duration   time.Duration
	Violations []Violation
}

// OK reports whether the run had no violations.
func (r Report) OK() bool {
	return len(r.Violations) == 0
}

// Run starts the configured producers, waits for them to finish, then drains
// q with the configured consumers. Producing first keeps the output ordering
// checkable.
func Run(ctx context.Context, q *taskq.Queue[Job], cfg config.WorkloadConfig, logger zerolog.Logger) (Report, error) {
	mix, err := newPicker(cfg.Weights())
	if err != nil {
		return Report{}, err
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}

	start := time.Now()
	logger.Info().
		Int("producers", cfg.Producers).
		Int("tasks_per_producer", cfg.TasksPerProducer).
		Int("consumers", cfg.Consumers).
		Uint64("seed", seed).
		Msg("[workload] producing")

	g, gctx := errgroup.WithContext(ctx)
	for p := range cfg.Producers {
		g.Go(func() error {
			r := rand.New(rand.NewPCG(seed, uint64(p)))
			for i := range cfg.TasksPerProducer {
				if err := gctx.Err(); err != nil {
					return err
				}
				prio := mix.pick(r)
				if err := q.Add(Job{Producer: p, Index: i, Priority: prio}, prio); err != nil {
					return fmt.Errorf("producer %d: %w", p, err)
				}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	logger.Info().Int("queued", q.Len()).Msg("[workload] draining")

	consumed, err := drain(ctx, q, cfg.Consumers)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Produced: cfg.Producers * cfg.TasksPerProducer,
		Consumed: len(consumed),
		PerTier:  make(map[taskq.Priority]int),
		Duration: time.Since(start),
	}
	for _, c := range consumed {
		report.PerTier[c.Priority]++
	}
	report.Violations = Verify(cfg.Producers, cfg.TasksPerProducer, consumed)

	logger.Info().
		Int("produced", report.Produced).
		Int("consumed", report.Consumed).
		Int("violations", len(report.Violations)).
		Dur("duration", report.Duration).
		Msg("[workload] finished")

	return report, nil
}

func drain(ctx context.Context, q *taskq.Queue[Job], consumers int) ([]Consumed, error) {
	perConsumer := make([][]Consumed, consumers)

	g, gctx := errgroup.WithContext(ctx)
	for c := range consumers {
		g.Go(func() error {
			for order := 0; ; order++ {
				if err := gctx.Err(); err != nil {
					return err
				}

				job, ok := q.Next()
				if !ok {
					return nil
				}
				perConsumer[c] = append(perConsumer[c], Consumed{Job: job, Consumer: c, Order: order})
			}
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var consumed []Consumed
	for _, jobs := range perConsumer {
		consumed = append(consumed, jobs...)
	}
	return consumed, nil
}

type picker struct {
	levels     []taskq.Priority
	cumulative []float64
}

func newPicker(weights map[taskq.Priority]float64) (*picker, error) {
	p := &picker{}
	for prio := range weights {
		p.levels = append(p.levels, prio)
	}
	if len(p.levels) == 0 {
		return nil, fmt.Errorf("workload: no priority has a positive weight")
	}
	sort.Slice(p.levels, func(i, j int) bool {
		return p.levels[i].MoreUrgentThan(p.levels[j])
	})

	var total float64
	for _, prio := range p.levels {
		total += weights[prio]
		p.cumulative = append(p.cumulative, total)
	}
	return p, nil
}

func (p *picker) pick(r *rand.Rand) taskq.Priority {
	x := r.Float64() * p.cumulative[len(p.cumulative)-1]
	i := sort.SearchFloat64s(p.cumulative, x)
	if i >= len(p.levels) {
		i = len(p.levels) - 1
	}
	return p.levels[i]
}
