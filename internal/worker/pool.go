package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sales-recovery/internal/pkg/clock"
	"sales-recovery/internal/pkg/config"
	"sales-recovery/internal/pkg/errs"
	"sales-recovery/internal/usecase/executor"
	"sales-recovery/internal/usecase/shared"
)

// JobRunner executes claimed campaign jobs.
type JobRunner interface {
	Execute(ctx context.Context, job shared.Job) (executor.Result, error)
	Abandon(ctx context.Context, job shared.Job, cause error) (executor.Result, error)
	RecordSent(ctx context.Context, job shared.Job, cause error) (executor.Result, error)
}

const maxRecordTries = 5

// Pool is a fixed set of workers polling the job table.
type Pool struct {
	uow     shared.UnitOfWork
	runner  JobRunner
	clock   clock.Clock
	backoff *Backoff
	// short delays between record writes while the job lease is still held
	recordBackoff *Backoff
	cfg           config.WorkerConfig
	logger        *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
	cancel  context.CancelFunc
}

func NewPool(uow shared.UnitOfWork, runner JobRunner, clk clock.Clock, cfg config.WorkerConfig, logger *slog.Logger) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = time.Second
	}
	return &Pool{
		uow:           uow,
		runner:        runner,
		clock:         clk,
		backoff:       NewBackoff(cfg.RetryBaseDelay, cfg.RetryMaxDelay),
		recordBackoff: NewBackoff(100*time.Millisecond, 2*time.Second),
		cfg:           cfg,
		logger:        logger.With("component", "worker_pool"),
	}
}

func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true
	p.stopCh = make(chan struct{})

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel

	p.logger.Info("starting workers", "concurrency", p.cfg.Concurrency, "poll_interval", p.cfg.PollInterval.String())
	for i := 0; i < p.cfg.Concurrency; i++ {
		p.wg.Add(1)
		go p.work(ctx, i)
	}
}

// Stop asks workers to finish their current job and waits until they do or
// ctx expires, in which case in-flight work is cancelled.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return nil
	}
	p.running = false
	close(p.stopCh)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Info("all workers stopped")
		return nil
	case <-ctx.Done():
		p.cancel()
		<-done
		return errs.Wrap(ctx.Err(), "worker pool stop")
	}
}

func (p *Pool) work(ctx context.Context, id int) {
	defer p.wg.Done()
	log := p.logger.With("worker", id)

	for {
		select {
		case <-p.stopCh:
			return
		default:
		}

		worked, err := p.RunOnce(ctx)
		if err != nil {
			log.Error("job poll failed", "error", err.Error())
		}
		if worked {
			continue
		}

		select {
		case <-p.stopCh:
			return
		case <-time.After(p.cfg.PollInterval):
		}
	}
}

// RunOnce claims at most one due job and runs it. It reports whether a job
// was claimed.
func (p *Pool) RunOnce(ctx context.Context) (bool, error) {
	job, ok, err := p.claim(ctx)
	if err != nil || !ok {
		return false, err
	}
	p.process(ctx, job)
	return true, nil
}

func (p *Pool) claim(ctx context.Context) (shared.Job, bool, error) {
	var jobs []shared.Job
	now := p.clock.Now()
	err := p.uow.Within(ctx, func(ctx context.Context, tx shared.Tx) error {
		var cerr error
		jobs, cerr = tx.Jobs().ClaimDue(ctx, tx.DB(), now, now.Add(p.cfg.VisibilityTimeout), 1)
		return cerr
	})
	if err != nil {
		return shared.Job{}, false, err
	}
	if len(jobs) == 0 {
		return shared.Job{}, false, nil
	}
	return jobs[0], true, nil
}

func (p *Pool) process(ctx context.Context, job shared.Job) {
	log := p.logger.With(
		"event_id", job.Payload.EventID.String(),
		"attempt_number", job.Payload.AttemptNumber,
		"job_id", job.ID,
		"tries", job.Tries,
	)

	// a lease that expired on the last try leaves nothing to retry
	if job.Tries > job.MaxTries {
		log.Warn("job re-claimed after its final try, abandoning")
		if _, err := p.runner.Abandon(ctx, job, errs.New("visibility timeout expired on final try")); err != nil {
			log.Error("failed to abandon job", "error", err.Error())
		}
		return
	}

	res, err := p.runner.Execute(ctx, job)
	if err == nil {
		log.Debug("job finished", "outcome", string(res.Outcome))
		return
	}

	// the provider has the message; abandoning would record a failure for it
	if errs.Is(err, errs.ErrSentUnrecorded) {
		p.recordSent(ctx, job, err, log)
		return
	}

	if job.Exhausted() {
		if _, aerr := p.runner.Abandon(ctx, job, err); aerr != nil {
			log.Error("failed to abandon job", "error", aerr.Error())
		}
		return
	}

	retryAt := p.backoff.NextAt(p.clock.Now(), job.Tries)
	rerr := p.uow.WithDB(ctx, func(ctx context.Context, tx shared.Tx) error {
		return tx.Jobs().Retry(ctx, tx.DB(), job.ID, retryAt, err.Error())
	})
	if rerr != nil {
		// the lease will expire and the job will be claimed again
		log.Error("failed to reschedule job", "error", rerr.Error())
		return
	}
	if errs.Is(err, errs.ErrRetryable) {
		log.Info("job rescheduled", "retry_at", retryAt)
	} else {
		log.Warn("job errored, rescheduled", "retry_at", retryAt, "error", err.Error())
	}
}

func (p *Pool) recordSent(ctx context.Context, job shared.Job, cause error, log *slog.Logger) {
	for try := 1; ; try++ {
		_, err := p.runner.RecordSent(ctx, job, cause)
		if err == nil {
			return
		}
		if try >= maxRecordTries {
			log.Error("giving up on recording sent message", "tries", try, "error", err.Error())
			return
		}
		delay := p.recordBackoff.Delay(try)
		log.Warn("recording sent message failed, retrying", "wait_ms", delay.Milliseconds(), "error", err.Error())
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
