package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"sales-recovery/internal/pkg/clock"
	"sales-recovery/internal/pkg/config"
	"sales-recovery/internal/usecase/commands"
	"sales-recovery/internal/usecase/shared"
)

// Sweeper replays parked provider callbacks once their retry time passes.
type Sweeper struct {
	parker   shared.CallbackParker
	delivery commands.DeliveryCommands
	clock    clock.Clock
	interval time.Duration
	batch    int64
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewSweeper(parker shared.CallbackParker, delivery commands.DeliveryCommands, clk clock.Clock, cfg config.ProviderWebhookConfig, logger *slog.Logger) *Sweeper {
	interval := cfg.SweepInterval
	if interval <= 0 {
		interval = 2 * time.Second
	}
	batch := cfg.SweepBatchLimit
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{
		parker:   parker,
		delivery: delivery,
		clock:    clk,
		interval: interval,
		batch:    batch,
		logger:   logger.With("component", "callback_sweeper"),
	}
}

func (s *Sweeper) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return
	}
	s.running = true
	s.stopCh = make(chan struct{})

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()
		for {
			select {
			case <-s.stopCh:
				return
			case <-ticker.C:
				if _, err := s.SweepOnce(context.Background()); err != nil {
					s.logger.Error("sweep failed", "error", err.Error())
				}
			}
		}
	}()
}

func (s *Sweeper) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()
	s.wg.Wait()
}

// SweepOnce replays every due callback and returns how many it handled.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	due, err := s.parker.Due(ctx, s.clock.Now(), s.batch)
	for _, cb := range due {
		res, rerr := s.delivery.RetryParked(ctx, cb)
		if rerr != nil {
			s.logger.Error("parked callback replay failed", "webhook_id", cb.ID, "error", rerr.Error())
			continue
		}
		s.logger.Debug("parked callback replayed", "webhook_id", cb.ID, "outcome", string(res.Outcome))
	}
	return len(due), err
}
