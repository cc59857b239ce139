package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/tomasbasham/taskq"
)

// demoCmd walks through the basic queue behaviours.
var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Show priority ordering, FIFO ties, peek and rejection",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runDemo(cmd.OutOrStdout())
	},
}

func runDemo(out io.Writer) error {
	withLogger := taskq.WithLogger(logger.With().Str("component", "demo").Logger())

	// Priority tiers first, then insertion order.
	q := taskq.New[string](withLogger)
	for _, t := range []struct {
		value    string
		priority taskq.Priority
	}{
		{"A", taskq.Priorities.Medium},
		{"B", taskq.Priorities.High},
		{"C", taskq.Priorities.Medium},
	} {
		if err := q.Add(t.value, t.priority); err != nil {
			return err
		}
		fmt.Fprintf(out, "add %s (%s)\n", t.value, t.priority)
	}
	fmt.Fprintf(out, "order: %v\n", q.Drain())

	// Empty queue is not an error.
	if _, ok := q.Next(); !ok {
		fmt.Fprintf(out, "next on empty queue: no task (empty=%t)\n", q.IsEmpty())
	}

	// Rejected priorities leave the queue untouched.
	err := q.Add("X", taskq.ParsePriority(99))
	if !errors.Is(err, taskq.ErrInvalidPriority) {
		return fmt.Errorf("expected invalid priority, got: %v", err)
	}
	fmt.Fprintf(out, "rejected: %v (size=%d)\n", err, q.Len())

	// Peek does not remove.
	if err := q.Add("A", taskq.Priorities.Low); err != nil {
		return err
	}
	for range 2 {
		v, _ := q.Peek()
		fmt.Fprintf(out, "peek: %s (size=%d)\n", v, q.Len())
	}
	v, _ := q.Next()
	fmt.Fprintf(out, "next: %s (empty=%t)\n", v, q.IsEmpty())
	return nil
}
