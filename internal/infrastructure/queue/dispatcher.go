// Package queue fans auth events out to a message broker without blocking requests.
package queue

import (
	"context"
	"hash/fnv"
	"strconv"
	"sync"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
)

const (
	defaultWorkers = 8
	channelBuffer  = 256
)

// Sink delivers one event downstream.
type Sink interface {
	Send(ctx context.Context, event domain.AuthEvent) error
}

// Observer receives delivery outcomes; result is "ok", "error" or "dropped".
type Observer interface {
	EventPublished(result string)
	QueueDepth(workerID string, depth int)
}

type nopObserver struct{}

func (nopObserver) EventPublished(string)   {}
func (nopObserver) QueueDepth(string, int) {}

// Options configures a Dispatcher. Zero values fall back to the package defaults.
type Options struct {
	Workers  int
	Buffer   int
	Observer Observer
}

// Dispatcher routes auth events to a fixed set of workers using consistent hashing on the
// user id, so events of one user are delivered in the order they were published.
type Dispatcher struct {
	workers []chan domain.AuthEvent
	sink    Sink
	obs     Observer
	log     zerolog.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewDispatcher creates a Dispatcher delivering to sink.
func NewDispatcher(sink Sink, opts Options, log zerolog.Logger) *Dispatcher {
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.Buffer <= 0 {
		opts.Buffer = channelBuffer
	}
	if opts.Observer == nil {
		opts.Observer = nopObserver{}
	}
	d := &Dispatcher{
		workers: make([]chan domain.AuthEvent, opts.Workers),
		sink:    sink,
		obs:     opts.Observer,
		log:     log,
	}
	for i := range d.workers {
		d.workers[i] = make(chan domain.AuthEvent, opts.Buffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled or after Close
// has drained their channel.
func (d *Dispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go d.runWorker(ctx, i, ch)
	}
}

// Publish implements ports.EventPublisher. It never blocks: when the worker's channel is
// full the event is dropped and counted.
func (d *Dispatcher) Publish(_ context.Context, event domain.AuthEvent) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.obs.EventPublished("dropped")
		return
	}

	idx := d.shardIndex(event.UserID)
	select {
	case d.workers[idx] <- event:
		d.obs.QueueDepth(strconv.Itoa(idx), len(d.workers[idx]))
	default:
		d.obs.EventPublished("dropped")
		d.log.Warn().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Int64("user_id", event.UserID).
			Int("worker_id", idx).
			Msg("event queue full, dropping event")
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, ch := range d.workers {
		close(ch)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// shardIndex maps a user id deterministically to a worker index.
func (d *Dispatcher) shardIndex(userID int64) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strconv.FormatInt(userID, 10)))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *Dispatcher) runWorker(ctx context.Context, id int, ch <-chan domain.AuthEvent) {
	defer d.wg.Done()
	workerID := strconv.Itoa(id)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-ch:
			if !ok {
				return
			}
			d.obs.QueueDepth(workerID, len(ch))
			if err := d.sink.Send(ctx, event); err != nil {
				d.obs.EventPublished("error")
				d.log.Error().Err(err).
					Str("event_id", event.ID).
					Str("event_type", string(event.Type)).
					Int("worker_id", id).
					Msg("event delivery failed")
				continue
			}
			d.obs.EventPublished("ok")
		}
	}
}
