// Package limiter provides a generic FIFO concurrency limiter.
//
// A Limiter admits queued tasks in submission order while keeping at most a
// configured number running. Each Add returns a Future that settles with that
// task's own result; an error or panic in one task never reaches another.
// Running tasks are never cancelled or retried by the limiter.
package limiter
