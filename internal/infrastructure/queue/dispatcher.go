package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/darkarnold/task-manager-api/internal/api/metrics"
	"github.com/darkarnold/task-manager-api/internal/core/ports"
)

const (
	defaultWorkers = 4
	channelBuffer  = 256
	deliverTimeout = 30 * time.Second
)

// ErrQueueFull is returned by Send when the destination's worker is backed up.
var ErrQueueFull = errors.New("notification queue full")

// ErrStopped is returned by Send after Stop.
var ErrStopped = errors.New("notification dispatcher stopped")

type message struct {
	to, subject, body string
}

// Dispatcher is an asynchronous NotificationSender. Messages are routed to a
// fixed set of workers by hashing the destination address, so mail to one
// recipient is delivered in order. Delivery is done by the wrapped sender.
type Dispatcher struct {
	workers []chan message
	next    ports.NotificationSender
	log     zerolog.Logger

	mu      sync.RWMutex
	stopped bool
	wg      sync.WaitGroup
}

// NewDispatcher creates a Dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewDispatcher(numWorkers int, next ports.NotificationSender, log zerolog.Logger) *Dispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &Dispatcher{
		workers: make([]chan message, numWorkers),
		next:    next,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan message, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers exit once Stop has closed
// their channel and the backlog is delivered.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Send queues the message and returns immediately. It never blocks: a full
// worker channel yields ErrQueueFull.
func (d *Dispatcher) Send(_ context.Context, to, subject, body string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return ErrStopped
	}

	idx := d.shardIndex(to)
	select {
	case d.workers[idx] <- message{to: to, subject: subject, body: body}:
		metrics.NotificationQueueDepth.WithLabelValues(strconv.Itoa(idx)).Set(float64(len(d.workers[idx])))
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues("dropped").Inc()
		return ErrQueueFull
	}
}

// Stop refuses new messages and waits until queued ones are delivered or
// ctx expires.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.stopped {
		d.stopped = true
		for _, ch := range d.workers {
			close(ch)
		}
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// shardIndex maps a destination deterministically to a worker index.
func (d *Dispatcher) shardIndex(to string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(to)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan message) {
	defer d.wg.Done()
	label := strconv.Itoa(id)

	for msg := range ch {
		metrics.NotificationQueueDepth.WithLabelValues(label).Set(float64(len(ch)))

		// Detached from ctx so the backlog still drains during shutdown.
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), deliverTimeout)
		if err := d.next.Send(sendCtx, msg.to, msg.subject, msg.body); err != nil {
			d.log.Error().Err(err).
				Int("worker_id", id).
				Str("subject", msg.subject).
				Msg("notification delivery failed")
		}
		cancel()
	}
}
