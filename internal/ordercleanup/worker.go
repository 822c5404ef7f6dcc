package ordercleanup

import (
	"context"
	"time"

	"log/slog"

	"github.com/simpledough/dough-manager/internal/entity"
)

func (w *Worker) worker(ctx context.Context) {
	ticker := time.NewTicker(w.c.WorkerInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			w.cancelStale(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// cancelStale cancels every pending order older than the threshold. A
// failure on one order does not block the rest.
func (w *Worker) cancelStale(ctx context.Context) {
	cutoff := time.Now().Add(-w.c.PendingThreshold)
	uuids, err := w.repo.GetStalePendingOrderUUIDs(ctx, cutoff)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't get stale pending orders",
			slog.String("err", err.Error()),
		)
		return
	}
	for _, orderUUID := range uuids {
		if err := w.repo.UpdateOrderStatus(ctx, orderUUID, entity.Cancelled); err != nil {
			slog.Default().ErrorContext(ctx, "can't cancel stale order",
				slog.String("err", err.Error()),
				slog.String("orderUUID", orderUUID),
			)
			continue
		}
		slog.Default().InfoContext(ctx, "cancelled stale pending order",
			slog.String("orderUUID", orderUUID),
		)
	}
}
