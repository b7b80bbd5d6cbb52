package clicks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sdko-org/shortlink/internal/cache"
	"github.com/sdko-org/shortlink/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	dailyCounterTTL = 7 * 24 * time.Hour
	totalCounterTTL = 30 * 24 * time.Hour
	jobTimeout      = 5 * time.Second
)

// Store is the slice of durable storage the recorder needs.
type Store interface {
	IncrementClickCount(ctx context.Context, id string) error
	InsertClick(ctx context.Context, click *models.ClickEvent) error
}

// Visit is the request metadata captured for one resolved redirect.
type Visit struct {
	IPAddress string
	UserAgent string
	Referer   string
	At        time.Time
}

type jobKind int

const (
	jobIncrement jobKind = iota
	jobDetail
)

type job struct {
	kind   jobKind
	linkID string
	event  *models.ClickEvent
}

// Recorder persists click analytics without touching the redirect's critical
// path. The durable effects (counter increment, click-event insert) run as
// independent jobs on a bounded queue consumed by worker goroutines; when the
// queue is full, jobs are dropped. Click recording is best-effort, at most
// once: every failure is logged and swallowed.
type Recorder struct {
	store   Store
	kv      cache.KV
	log     *logrus.Entry
	queue   chan job
	wg      sync.WaitGroup
	mu      sync.Mutex
	closed  bool
	dropped int64
}

func NewRecorder(logger *logrus.Logger, store Store, kv cache.KV, queueSize, workers int) *Recorder {
	if queueSize < 1 {
		queueSize = 1
	}
	if workers < 1 {
		workers = 1
	}

	r := &Recorder{
		store: store,
		kv:    kv,
		log:   logger.WithField("component", "click_recorder"),
		queue: make(chan job, queueSize),
	}

	r.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go r.worker()
	}
	return r
}

// Record registers one click. The Redis counters are updated synchronously
// because they feed near-real-time dashboards and are cheap; the durable
// effects are queued and never delay the caller.
func (r *Recorder) Record(ctx context.Context, linkID, code string, v Visit) {
	if v.At.IsZero() {
		v.At = time.Now()
	}

	r.bumpCounters(ctx, code, v.At)

	r.enqueue(job{kind: jobIncrement, linkID: linkID})
	r.enqueue(job{kind: jobDetail, event: &models.ClickEvent{
		ShortLinkID: linkID,
		IPAddress:   v.IPAddress,
		UserAgent:   v.UserAgent,
		Referer:     v.Referer,
		ClickedAt:   v.At,
	}})
}

func (r *Recorder) bumpCounters(ctx context.Context, code string, at time.Time) {
	day := at.UTC().Format("2006-01-02")

	dailyKey := fmt.Sprintf("clicks:%s:%s", code, day)
	if _, err := r.kv.Incr(ctx, dailyKey); err != nil {
		r.log.WithError(err).WithField("code", code).Warn("Failed to bump daily click counter")
	} else if err := r.kv.Expire(ctx, dailyKey, dailyCounterTTL); err != nil {
		r.log.WithError(err).WithField("code", code).Warn("Failed to set daily counter TTL")
	}

	totalKey := fmt.Sprintf("clicks:total:%s", code)
	if _, err := r.kv.Incr(ctx, totalKey); err != nil {
		r.log.WithError(err).WithField("code", code).Warn("Failed to bump total click counter")
	} else if err := r.kv.Expire(ctx, totalKey, totalCounterTTL); err != nil {
		r.log.WithError(err).WithField("code", code).Warn("Failed to set total counter TTL")
	}
}

func (r *Recorder) enqueue(j job) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	select {
	case r.queue <- j:
	default:
		r.dropped++
		r.log.WithField("dropped_total", r.dropped).Warn("Click queue full, dropping job")
	}
}

func (r *Recorder) worker() {
	defer r.wg.Done()
	for j := range r.queue {
		ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
		switch j.kind {
		case jobIncrement:
			if err := r.store.IncrementClickCount(ctx, j.linkID); err != nil {
				r.log.WithError(err).WithField("link_id", j.linkID).Warn("Failed to increment click count")
			}
		case jobDetail:
			if err := r.store.InsertClick(ctx, j.event); err != nil {
				r.log.WithError(err).WithField("link_id", j.event.ShortLinkID).Warn("Failed to insert click event")
			}
		}
		cancel()
	}
}

// Close stops accepting clicks, drains the queue and waits for the workers.
func (r *Recorder) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	close(r.queue)
	r.mu.Unlock()
	r.wg.Wait()
}
