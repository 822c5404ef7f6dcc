// Package ordercleanup cancels orders that were placed but never confirmed.
// Cancellation goes through the regular status flow, so the reserved stock
// is returned to the catalog.
package ordercleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/simpledough/dough-manager/internal/dependency"
)

// Config holds configuration for the order cleanup worker.
type Config struct {
	WorkerInterval   time.Duration `mapstructure:"worker_interval"`
	PendingThreshold time.Duration `mapstructure:"pending_threshold"`
}

// Worker cancels orders stuck in pending past the threshold.
type Worker struct {
	repo dependency.Order
	c    *Config
	ctx  context.Context
	stop context.CancelFunc
}

// New creates a new order cleanup worker.
func New(c *Config, repo dependency.Order) *Worker {
	if c == nil {
		c = &Config{}
	}
	if c.WorkerInterval == 0 {
		c.WorkerInterval = 15 * time.Minute
	}
	if c.PendingThreshold == 0 {
		c.PendingThreshold = 24 * time.Hour
	}
	return &Worker{
		repo: repo,
		c:    c,
	}
}

// Start starts the worker.
func (w *Worker) Start(ctx context.Context) error {
	if w.ctx != nil && w.stop != nil {
		return fmt.Errorf("order cleanup worker already started")
	}
	w.ctx, w.stop = context.WithCancel(ctx)
	go w.worker(w.ctx)
	return nil
}

// Stop stops the worker gracefully.
func (w *Worker) Stop() error {
	if w.stop == nil {
		return fmt.Errorf("order cleanup worker already stopped or not started")
	}
	w.stop()
	w.stop = nil
	return nil
}
