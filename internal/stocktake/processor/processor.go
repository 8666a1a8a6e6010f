package processor

import (
	"context"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-stock-verifier/internal/logger"
	"github.com/fekuna/omnipos-stock-verifier/internal/metrics"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake/dto"
	"go.uber.org/zap"
)

type Config struct {
	// SettleDelay batches bursts of user actions into one pass.
	SettleDelay time.Duration
	// RetryDelay is the fixed cadence for retrying transient failures.
	RetryDelay time.Duration
}

// Processor replays queued mutations against the remote service, one at a
// time and in queue order.
type Processor struct {
	queue   stocktake.ReplayQueue
	remote  stocktake.RemoteService
	metrics *metrics.Collector
	logger  logger.ZapLogger
	cfg     Config
}

func NewProcessor(queue stocktake.ReplayQueue, remote stocktake.RemoteService, m *metrics.Collector, log logger.ZapLogger, cfg Config) *Processor {
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = cfg.SettleDelay
	}
	return &Processor{
		queue:   queue,
		remote:  remote,
		metrics: m,
		logger:  log,
		cfg:     cfg,
	}
}

// Start blocks until ctx is done. It sleeps until woken by an enqueue, an
// online flip or the retry timer, waits out the settle delay, then drains.
func (p *Processor) Start(ctx context.Context) {
	p.logger.Info("Starting replay processor",
		zap.Duration("settle_delay", p.cfg.SettleDelay),
		zap.Duration("retry_delay", p.cfg.RetryDelay),
	)

	var retry <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Stopping replay processor")
			return
		case <-p.queue.Wakeups():
		case <-retry:
		}
		retry = nil

		if p.cfg.SettleDelay > 0 {
			select {
			case <-ctx.Done():
				p.logger.Info("Stopping replay processor")
				return
			case <-time.After(p.cfg.SettleDelay):
			}
		}

		p.Drain(ctx)

		if p.queue.Online() && p.queue.HasRetryable() {
			retry = time.After(p.cfg.RetryDelay)
		}
	}
}

// Drain returns retryable failures to the pool and replays every pending
// mutation once. It returns the number of attempts made.
func (p *Processor) Drain(ctx context.Context) int {
	if n := p.queue.RequeueFailed(); n > 0 {
		p.logger.Debug("requeued failed mutations", zap.Int("count", n))
	}

	attempts := 0
	for ctx.Err() == nil {
		m, ok := p.queue.BeginNext()
		if !ok {
			break
		}
		p.replay(ctx, m)
		attempts++
	}
	p.metrics.SetQueue(p.queue.QueueCounts())
	return attempts
}

func (p *Processor) replay(ctx context.Context, m model.Mutation) {
	timer := p.metrics.ReplayTimer(m.Type())
	err := p.send(ctx, m)
	timer.ObserveDuration()

	if err == nil {
		p.queue.Complete(m)
		p.metrics.Replayed(m.Type(), metrics.OutcomeSynced)
		p.logger.Info("mutation synced",
			zap.String("mutation_id", m.ID),
			zap.String("type", string(m.Type())),
			zap.String("sku", m.Payload.TargetSKU()),
		)
		return
	}

	if vc, ok := stocktake.AsVersionConflict(err); ok {
		p.queue.FailConflict(m, vc)
		p.metrics.Replayed(m.Type(), metrics.OutcomeConflict)
		return
	}
	p.queue.FailTransient(m, err)
	p.metrics.Replayed(m.Type(), metrics.OutcomeRetry)
}

func (p *Processor) send(ctx context.Context, m model.Mutation) error {
	switch pl := m.Payload.(type) {
	case model.VerifyPayload:
		_, err := p.remote.VerifyItem(ctx, pl.SessionID, &dto.VerifyStockRequest{
			SKU:                     pl.SKU,
			ObservedQty:             pl.ObservedQty,
			ExpectedVersion:         pl.ExpectedVersion,
			IdempotencyKey:          m.IdempotencyKey,
			SystemQtyAtVerification: pl.SystemQtyAtVerification,
			ItemDetails:             pl.Details,
		})
		return err
	case model.AddPayload:
		_, err := p.remote.AddItem(ctx, pl.SessionID, &dto.AddStockRequest{
			SKU:            pl.SKU,
			IdempotencyKey: m.IdempotencyKey,
		})
		return err
	case model.ResolvePayload:
		return p.remote.ResolveConflict(ctx, pl.ConflictID, &dto.ResolveConflictRequest{
			Resolution:     pl.Resolution,
			IdempotencyKey: m.IdempotencyKey,
		})
	case model.AssignRecountPayload:
		return p.remote.AssignRecount(ctx, pl.SessionID, &dto.AssignRecountRequest{
			SKU:            pl.SKU,
			Assignee:       pl.Assignee,
			IdempotencyKey: m.IdempotencyKey,
		})
	case model.SessionStartPayload:
		_, err := p.remote.StartSession(ctx, &dto.SessionStartRequest{
			Location:       pl.Location,
			Floor:          pl.Floor,
			Rack:           pl.Rack,
			IdempotencyKey: m.IdempotencyKey,
		})
		return err
	case model.SessionEndPayload:
		return p.remote.EndSession(ctx, pl.SessionID, m.IdempotencyKey)
	default:
		return fmt.Errorf("unsupported mutation payload %T", m.Payload)
	}
}
