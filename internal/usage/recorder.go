package usage

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	logx "github.com/blissito/formmy-agent-core/pkg/logger"
)

var (
	recorderDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tool_usage_recorder_dropped_total",
		Help: "Usage records dropped because the recorder queue was full.",
	})
	recorderFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tool_usage_recorder_failures_total",
		Help: "Usage records that failed to persist.",
	})
)

const (
	defaultQueueSize    = 256
	recorderWriteBudget = 5 * time.Second
)

// Recorder is the asynchronous audit writer. Tool handlers must never block
// a turn on audit persistence, and tracking failures must never propagate
// into the tool result; they are counted and logged instead so silent audit
// loss stays visible on the metrics side.
type Recorder struct {
	store Store

	queue chan *Record
	wg    sync.WaitGroup

	closeOnce sync.Once
	closed    chan struct{}
}

func NewRecorder(store Store) *Recorder {
	r := &Recorder{
		store:  store,
		queue:  make(chan *Record, defaultQueueSize),
		closed: make(chan struct{}),
	}
	r.wg.Add(1)
	go r.drain()
	return r
}

// Track enqueues a record without blocking. A full queue drops the record
// and bumps the drop counter.
func (r *Recorder) Track(rec *Record) {
	select {
	case <-r.closed:
		return
	default:
	}

	select {
	case r.queue <- rec:
	default:
		recorderDrops.Inc()
		logx.Warn().
			Str("tool", rec.ToolName).
			Str("chatbot_id", rec.ChatbotID).
			Msg("Usage recorder queue full, record dropped")
	}
}

// Close stops accepting records and flushes whatever is queued. The queue
// channel is never closed, so a Track racing Close cannot panic on send;
// it either lands in the flush or is silently shed during shutdown.
func (r *Recorder) Close() {
	r.closeOnce.Do(func() { close(r.closed) })
	r.wg.Wait()
}

func (r *Recorder) drain() {
	defer r.wg.Done()
	for {
		select {
		case rec := <-r.queue:
			r.write(rec)
		case <-r.closed:
			for {
				select {
				case rec := <-r.queue:
					r.write(rec)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) write(rec *Record) {
	ctx, cancel := context.WithTimeout(context.Background(), recorderWriteBudget)
	defer cancel()
	if err := r.store.Append(ctx, rec); err != nil {
		recorderFailures.Inc()
		logx.Error().
			Err(err).
			Str("tool", rec.ToolName).
			Str("chatbot_id", rec.ChatbotID).
			Msg("Failed to persist usage record")
	}
}
