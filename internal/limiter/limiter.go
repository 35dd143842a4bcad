package limiter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"slopreel/internal/logging"
)

// ErrNilTask is returned by futures created for a nil task.
var ErrNilTask = errors.New("limiter: nil task")

// Task is the unit of work admitted by a Limiter.
type Task[T any] func(ctx context.Context) (T, error)

// PanicError carries a recovered task panic.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("limiter: task panicked: %v", e.Value)
}

// Option customizes a Limiter.
type Option func(*options)

type options struct {
	name   string
	logger *slog.Logger
}

// WithName labels the limiter in log lines.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithLogger attaches a logger for admission debug output.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// Limiter runs submitted tasks with at most maxConcurrent in flight.
// Tasks are admitted strictly in submission order.
type Limiter[T any] struct {
	mu      sync.Mutex
	max     int
	running int
	queue   []*entry[T]
	name    string
	logger  *slog.Logger
}

type entry[T any] struct {
	ctx    context.Context
	task   Task[T]
	future *Future[T]
}

// New builds a limiter. A bound below one is raised to one.
func New[T any](maxConcurrent int, opts ...Option) *Limiter[T] {
	o := options{name: "limiter"}
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &Limiter[T]{
		max:    maxConcurrent,
		name:   o.name,
		logger: logging.NewComponentLogger(o.logger, o.name),
	}
}

// Add enqueues task and returns a future that settles exactly when the task
// does. ctx is handed to the task; it is also checked at admission so work
// whose caller already gave up never starts.
func (l *Limiter[T]) Add(ctx context.Context, task Task[T]) *Future[T] {
	future := newFuture[T]()
	if task == nil {
		var zero T
		future.settle(zero, ErrNilTask)
		return future
	}
	if ctx == nil {
		ctx = context.Background()
	}

	l.mu.Lock()
	l.queue = append(l.queue, &entry[T]{ctx: ctx, task: task, future: future})
	l.dispatchLocked()
	l.mu.Unlock()
	return future
}

// Do is Add followed by Wait.
func (l *Limiter[T]) Do(ctx context.Context, task Task[T]) (T, error) {
	return l.Add(ctx, task).Wait(ctx)
}

// Running reports how many tasks are executing.
func (l *Limiter[T]) Running() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.running
}

// Pending reports how many tasks are waiting for a slot.
func (l *Limiter[T]) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue)
}

// MaxConcurrent reports the current bound.
func (l *Limiter[T]) MaxConcurrent() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.max
}

// SetMaxConcurrent changes the bound. Raising it admits queued tasks at once;
// lowering it lets running tasks finish and throttles new admissions.
func (l *Limiter[T]) SetMaxConcurrent(n int) {
	if n < 1 {
		n = 1
	}
	l.mu.Lock()
	l.max = n
	l.dispatchLocked()
	l.mu.Unlock()
}

func (l *Limiter[T]) dispatchLocked() {
	for l.running < l.max && len(l.queue) > 0 {
		next := l.queue[0]
		l.queue[0] = nil
		l.queue = l.queue[1:]

		if err := next.ctx.Err(); err != nil {
			var zero T
			next.future.settle(zero, err)
			continue
		}
		l.running++
		l.logger.Debug("task admitted",
			logging.Int("running", l.running),
			logging.Int("pending", len(l.queue)),
			logging.Int("max_concurrent", l.max),
		)
		go l.run(next)
	}
	if len(l.queue) == 0 {
		l.queue = nil
	}
}

func (l *Limiter[T]) run(e *entry[T]) {
	value, err := invoke(e.ctx, e.task)
	e.future.settle(value, err)

	l.mu.Lock()
	l.running--
	l.dispatchLocked()
	l.mu.Unlock()
}

func invoke[T any](ctx context.Context, task Task[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			value = zero
			err = &PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return task(ctx)
}
