// Package worker runs reconciliation passes on a fixed interval in the
// background, keeping the PRDB converged without manual triggering.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/spimanov/prdbd/internal/domain"
	"github.com/spimanov/prdbd/internal/logger"
	"github.com/spimanov/prdbd/internal/reconcile"
)

type Worker struct {
	reconciler *reconcile.Reconciler
	interval   time.Duration
	log        *logger.Logger

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

func NewWorker(rc *reconcile.Reconciler, interval time.Duration, log *logger.Logger) *Worker {
	ctx, cancel := context.WithCancel(context.Background())
	return &Worker{
		reconciler: rc,
		interval:   interval,
		log:        log.WithComponent("worker"),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (w *Worker) Start() {
	w.log.Info("starting background passes", "interval", w.interval)
	w.wg.Add(1)
	go w.run()
}

// Stop cancels the current pass cooperatively and waits for it to
// finish its in-flight song merges.
func (w *Worker) Stop() {
	w.log.Info("stopping background passes")
	w.cancel()
	w.wg.Wait()
}

func (w *Worker) run() {
	defer w.wg.Done()
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case <-ticker.C:
			summary, err := w.reconciler.RunPass(w.ctx)
			switch {
			case errors.Is(err, domain.ErrPassRunning):
				w.log.Debug("pass already running, skipping tick")
			case err != nil:
				w.log.Error("background pass failed", "error", err)
			default:
				w.log.Info("background pass finished",
					"processed", summary.Processed,
					"merged", summary.Merged,
					"skipped", summary.Skipped,
					"errored", summary.Errored)
			}
		}
	}
}
