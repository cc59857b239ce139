package workload

import (
	"fmt"

	"github.com/tomasbasham/taskq"
)

// ViolationKind classifies a [Violation].
type ViolationKind string

const (
	ViolationCount     ViolationKind = "count"
	ViolationDuplicate ViolationKind = "duplicate"
	ViolationMissing   ViolationKind = "missing"
	ViolationPriority  ViolationKind = "priority"
	ViolationFIFO      ViolationKind = "fifo"
)

// Violation is a broken queue guarantee found by [Verify].
type Violation struct {
	Kind   ViolationKind
	Detail string
}

func (v Violation) String() string {
	return string(v.Kind) + ": " + v.Detail
}

// Verify checks consumed against the jobs producers*perProducer would have
// queued. The queue must have been fully populated before the first removal.
// Consumers remove concurrently, so priority and FIFO order are checked within
// each consumer's removals, which are a subsequence of the queue's order.
// Jobs for one consumer must appear in their removal order.
func Verify(producers, perProducer int, consumed []Consumed) []Violation {
	var violations []Violation

	if want := producers * perProducer; len(consumed) != want {
		violations = append(violations, Violation{
			Kind:   ViolationCount,
			Detail: fmt.Sprintf("consumed %d jobs, want %d", len(consumed), want),
		})
	}

	type key struct{ producer, index int }
	type tier struct {
		consumer int
		producer int
		priority taskq.Priority
	}

	seen := make(map[key]bool, len(consumed))
	last := make(map[tier]int)
	prev := make(map[int]*Consumed) // consumer -> previous removal

	for i := range consumed {
		c := &consumed[i]

		k := key{c.Producer, c.Index}
		if seen[k] {
			violations = append(violations, Violation{
				Kind:   ViolationDuplicate,
				Detail: fmt.Sprintf("producer %d job %d consumed twice", c.Producer, c.Index),
			})
			continue
		}
		seen[k] = true

		if p, ok := prev[c.Consumer]; ok && c.Priority.MoreUrgentThan(p.Priority) {
			violations = append(violations, Violation{
				Kind:   ViolationPriority,
				Detail: fmt.Sprintf("consumer %d removed %s job after %s job at position %d", c.Consumer, c.Priority, p.Priority, c.Order),
			})
		}
		prev[c.Consumer] = c

		t := tier{c.Consumer, c.Producer, c.Priority}
		if idx, ok := last[t]; ok && idx >= c.Index {
			violations = append(violations, Violation{
				Kind:   ViolationFIFO,
				Detail: fmt.Sprintf("producer %d %s job %d removed after job %d", c.Producer, c.Priority, c.Index, idx),
			})
		}
		last[t] = c.Index
	}

	for p := range producers {
		for i := range perProducer {
			if !seen[key{p, i}] {
				violations = append(violations, Violation{
					Kind:   ViolationMissing,
					Detail: fmt.Sprintf("producer %d job %d never consumed", p, i),
				})
			}
		}
	}
	return violations
}
