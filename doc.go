// Package taskq implements a thread-safe priority task queue.
//
// Tasks are removed according to their priority levels. A lower ordinal is
// more urgent, so [Priorities].High tasks always leave the queue before
// Medium and Low ones. Tasks sharing a priority leave in the order they were
// added, which makes the queue FIFO within each priority tier.
//
// The core operations ([Queue.Add], [Queue.Next], [Queue.Peek],
// [Queue.IsEmpty] and [Queue.Len]) never block. An empty queue is an
// ordinary outcome reported through a boolean, not an error. Callers that
// want to wait for work use [Queue.Take] or [Queue.Tasks], which honour
// context cancellation.
package taskq
