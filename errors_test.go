package taskq_test

import (
	"errors"
	"testing"

	"github.com/tomasbasham/taskq"
)

func TestPriorityError(t *testing.T) {
	t.Parallel()

	q := taskq.New[string]()
	err := q.Add("X", taskq.ParsePriority(99))
	if !errors.Is(err, taskq.ErrInvalidPriority) {
		t.Fatalf("expected ErrInvalidPriority, got: %v", err)
	}

	var perr *taskq.PriorityError
	if !errors.As(err, &perr) {
		t.Fatalf("expected *PriorityError, got: %T", err)
	}
	if perr.Op != "add" {
		t.Errorf("mismatch:\n  got:  %q\n  want: %q", perr.Op, "add")
	}
	if got, want := perr.Priority.Ordinal(), 99; got != want {
		t.Errorf("mismatch:\n  got:  %d\n  want: %d", got, want)
	}

	want := "taskq.add: invalid priority: priority(99)"
	if got := err.Error(); got != want {
		t.Errorf("mismatch:\n  got:  %q\n  want: %q", got, want)
	}
}
