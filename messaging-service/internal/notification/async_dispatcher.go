package notification

import (
	"context"
	"sync"
	"time"

	"github.com/campusmarket/marketplace/messaging-service/internal/domain"
	"github.com/campusmarket/marketplace/pkg/log"
)

type job struct {
	ctx   context.Context
	event domain.MessageSentEvent
}

// AsyncDispatcher runs notifications on a fixed pool of workers fed by a
// bounded queue. Events that do not fit in the queue are dropped.
type AsyncDispatcher struct {
	notifier Notifier
	workers  int
	timeout  time.Duration

	mu      sync.RWMutex
	queue   chan job
	started bool
	stopped bool
	wg      sync.WaitGroup
	doneCh  chan struct{}
}

var _ Dispatcher = (*AsyncDispatcher)(nil)

func NewAsyncDispatcher(notifier Notifier, workers, queueSize int, timeout time.Duration) *AsyncDispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = 1
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &AsyncDispatcher{
		notifier: notifier,
		workers:  workers,
		timeout:  timeout,
		queue:    make(chan job, queueSize),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (d *AsyncDispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}
	go func() {
		d.wg.Wait()
		close(d.doneCh)
	}()

	l := log.L()
	l.Info().Int("workers", d.workers).Int("queue_size", cap(d.queue)).Msg("notification dispatcher started")
}

// Dispatch enqueues the event. The notification runs detached from ctx
// cancellation but keeps its values (logger, request ID).
func (d *AsyncDispatcher) Dispatch(ctx context.Context, event *domain.MessageSentEvent) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrDispatcherStopped
	}

	select {
	case d.queue <- job{ctx: context.WithoutCancel(ctx), event: *event}:
		return nil
	default:
		l := log.Ctx(ctx)
		l.Warn().
			Str(log.FieldConversationID, event.ConversationID).
			Str(log.FieldMessageID, event.MessageID).
			Msg("notification queue full, dropping event")
		return ErrQueueFull
	}
}

func (d *AsyncDispatcher) worker(id int) {
	defer d.wg.Done()
	for j := range d.queue {
		d.run(id, j)
	}
}

func (d *AsyncDispatcher) run(id int, j job) {
	ctx, cancel := context.WithTimeout(j.ctx, d.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			l := log.Ctx(ctx)
			l.Error().Interface("panic", r).Int("worker", id).Str(log.FieldMessageID, j.event.MessageID).Msg("notifier panicked")
		}
	}()

	d.notifier.Notify(ctx, &j.event)
}

// Stop refuses new events and waits for queued ones to finish or ctx to expire.
func (d *AsyncDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		close(d.doneCh)
		return nil
	}

	select {
	case <-d.doneCh:
		l := log.L()
		l.Info().Msg("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed once every worker has exited.
func (d *AsyncDispatcher) Done() <-chan struct{} {
	return d.doneCh
}
