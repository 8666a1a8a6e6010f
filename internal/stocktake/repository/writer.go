package repository

import (
	"context"
	"time"

	"github.com/fekuna/omnipos-stock-verifier/internal/logger"
	"github.com/fekuna/omnipos-stock-verifier/internal/model"
	"github.com/fekuna/omnipos-stock-verifier/internal/stocktake"
	"go.uber.org/zap"
)

// Subscriber is the state source a Writer follows.
type Subscriber interface {
	Subscribe() (<-chan model.State, func())
}

// Writer persists every state change it observes. It is a side effect: a
// change that never reaches Save before a crash is lost.
type Writer struct {
	repo   stocktake.SnapshotRepository
	source Subscriber
	logger logger.ZapLogger
}

func NewWriter(repo stocktake.SnapshotRepository, source Subscriber, log logger.ZapLogger) *Writer {
	return &Writer{repo: repo, source: source, logger: log}
}

// Start blocks until ctx is done, then flushes the last unsaved state.
func (w *Writer) Start(ctx context.Context) {
	states, cancel := w.source.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			select {
			case st, ok := <-states:
				if ok {
					flushCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
					w.save(flushCtx, st)
					done()
				}
			default:
			}
			return
		case st, ok := <-states:
			if !ok {
				return
			}
			w.save(ctx, st)
		}
	}
}

func (w *Writer) save(ctx context.Context, st model.State) {
	if err := w.repo.Save(ctx, &st); err != nil {
		w.logger.Error("failed to persist snapshot",
			zap.Int("items", len(st.Items)),
			zap.Int("queue", len(st.Queue)),
			zap.Error(err),
		)
	}
}
