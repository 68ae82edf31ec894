package progress

import (
	"context"
	"sync"

	"statsync/internal/logger"
	"statsync/internal/metrics"
	"statsync/internal/model"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Client is what a Tracker needs from the backend.
type Client interface {
	Streamer
	GetJob(ctx context.Context, id int64) (model.SyncJob, error)
}

type Callbacks struct {
	// OnUpdate receives the merged snapshot after every applied event.
	OnUpdate func(model.SyncJob)
	// OnComplete fires once, with the terminal snapshot.
	OnComplete func(model.SyncJob)
}

// Tracker follows one job from its handle to a terminal status.
type Tracker struct {
	client Client
	cb     Callbacks
	log    *zap.Logger

	mu          sync.Mutex
	ctx         context.Context
	job         model.SyncJob
	completed   bool
	stopped     bool
	unsubscribe func()
	done        chan struct{}
}

func NewTracker(client Client, job model.SyncJob, cb Callbacks) *Tracker {
	return &Tracker{
		client: client,
		cb:     cb,
		job:    job.Clone(),
		done:   make(chan struct{}),
		log: logger.Log.With(
			zap.Int64("job", job.ID),
			zap.String("subscription", uuid.NewString()),
		),
	}
}

// Start subscribes to the job's progress stream. A job that is already
// terminal completes immediately without subscribing.
func (t *Tracker) Start(ctx context.Context) {
	t.mu.Lock()

	if t.job.IsTerminal() {
		job, fire := t.completeLocked()
		t.mu.Unlock()
		if fire {
			t.fireComplete(job)
		}
		close(t.done)
		return
	}

	t.ctx = ctx
	t.unsubscribe = Subscribe(ctx, t.client, t.job.ID, Handlers{
		OnUpdate: t.apply,
		OnError:  t.streamError,
		OnClose:  t.streamClosed,
	})
	t.mu.Unlock()

	t.log.Debug("Subscribed to progress stream")
}

// Stop detaches from the stream without waiting for completion. No fallback
// fetch is made for a stopped tracker.
func (t *Tracker) Stop() {
	t.mu.Lock()
	t.stopped = true
	unsub := t.unsubscribe
	t.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// Job returns a copy of the current snapshot.
func (t *Tracker) Job() model.SyncJob {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.job.Clone()
}

// Done is closed once the tracker has detached from its stream.
func (t *Tracker) Done() <-chan struct{} {
	return t.done
}

// Live reports whether the tracker is still attached to its stream.
func (t *Tracker) Live() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Complete feeds a snapshot obtained out of band, such as the answer to a
// cancel request. It reports whether this call completed the job.
func (t *Tracker) Complete(job model.SyncJob) bool {
	t.mu.Lock()
	t.job = t.job.Merge(model.UpdateFrom(job))
	if !t.job.IsTerminal() {
		t.mu.Unlock()
		return false
	}
	merged, fire := t.completeLocked()
	t.mu.Unlock()

	if fire {
		t.fireComplete(merged)
	}
	return fire
}

func (t *Tracker) apply(u model.JobUpdate) {
	t.mu.Lock()
	if t.completed {
		t.mu.Unlock()
		return
	}
	t.job = t.job.Merge(u)
	job := t.job.Clone()
	var fire bool
	if job.IsTerminal() {
		job, fire = t.completeLocked()
	}
	t.mu.Unlock()

	if t.cb.OnUpdate != nil {
		t.cb.OnUpdate(job)
	}
	if fire {
		t.fireComplete(job)
	}
}

func (t *Tracker) streamError(err error) {
	metrics.IncStreamErrors()
	t.log.Warn("Progress stream error", zap.Error(err))
}

func (t *Tracker) streamClosed() {
	defer close(t.done)

	t.mu.Lock()
	if t.completed || t.stopped || t.ctx.Err() != nil {
		t.mu.Unlock()
		return
	}
	ctx, id := t.ctx, t.job.ID
	t.mu.Unlock()

	t.log.Info("Progress stream closed before a terminal status, fetching job")

	job, err := t.client.GetJob(ctx, id)
	if err != nil {
		metrics.IncFallbackFetch("error")
		t.log.Warn("Fallback fetch failed, keeping last known state", zap.Error(err))
		return
	}

	if !job.IsTerminal() {
		metrics.IncFallbackFetch("pending")
		t.log.Warn("Job still not terminal after stream closed", zap.String("status", string(job.Status)))
		t.mu.Lock()
		t.job = t.job.Merge(model.UpdateFrom(job))
		merged := t.job.Clone()
		t.mu.Unlock()

		if t.cb.OnUpdate != nil {
			t.cb.OnUpdate(merged)
		}
		return
	}

	metrics.IncFallbackFetch("terminal")
	t.mu.Lock()
	t.job = job.Clone()
	merged, fire := t.completeLocked()
	t.mu.Unlock()

	if fire {
		t.fireComplete(merged)
	}
}

// completeLocked flips the completion flag. Callers hold t.mu and fire the
// callback after unlocking when fire is true.
func (t *Tracker) completeLocked() (job model.SyncJob, fire bool) {
	if t.completed {
		return t.job.Clone(), false
	}
	t.completed = true
	return t.job.Clone(), true
}

func (t *Tracker) fireComplete(job model.SyncJob) {
	t.log.Info("Job finished",
		zap.String("status", string(job.Status)),
		zap.Int("created", job.RecordsCreated),
		zap.Int("updated", job.RecordsUpdated),
	)

	if t.cb.OnComplete != nil {
		t.cb.OnComplete(job)
	}

	t.mu.Lock()
	unsub := t.unsubscribe
	t.mu.Unlock()
	if unsub != nil {
		unsub()
	}
}
