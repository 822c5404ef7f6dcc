package report

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
)

// Service owns the in-memory order feed the reporting screen reads from and
// serves memoized snapshots per range token. The feed is replaced wholesale
// on every successful refresh; snapshots computed for a superseded feed are
// never served.
type Service struct {
	orderRepo dependency.Order
	now       func() time.Time

	mu      sync.Mutex
	feed    []entity.Order
	version uint64
	refresh uint64
	closed  bool
	memo    map[memoKey]*entity.ReportSnapshot
}

type memoKey struct {
	version uint64
	token   entity.RangeToken
}

func NewService(orderRepo dependency.Order) *Service {
	return &Service{
		orderRepo: orderRepo,
		now:       time.Now,
		memo:      make(map[memoKey]*entity.ReportSnapshot),
	}
}

// Refresh pulls the full order feed and installs it as the current one.
// Overlapping refreshes race by design: each call takes a ticket up front,
// and a slow fetch whose ticket was superseded in the meantime discards its
// result instead of clobbering a newer feed. A failed fetch installs an
// empty feed so the report degrades to zeros rather than serving stale data.
func (s *Service) Refresh(ctx context.Context) {
	s.mu.Lock()
	s.refresh++
	ticket := s.refresh
	s.mu.Unlock()

	orders, err := s.orderRepo.GetOrdersForReporting(ctx)
	if err != nil {
		slog.Default().ErrorContext(ctx, "can't fetch orders for reporting, serving empty feed",
			slog.String("err", err.Error()),
		)
		orders = nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || ticket != s.refresh {
		// closed, or a newer refresh started while this one was in flight
		return
	}
	s.feed = orders
	s.version++
	s.memo = make(map[memoKey]*entity.ReportSnapshot)
}

// GetReport returns the snapshot for the given range token, computing it at
// most once per installed feed. An unknown token is handled downstream by
// the today fallback, so distinct unknown tokens memoize separately but
// yield equal snapshots.
func (s *Service) GetReport(token entity.RangeToken) *entity.ReportSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memoKey{version: s.version, token: token}
	if snap, ok := s.memo[key]; ok {
		return snap
	}

	snap := BuildReport(s.feed, token, s.now())
	s.memo[key] = snap
	return snap
}

// Close stops the service from installing further feeds. In-flight refresh
// results arriving afterwards are discarded.
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// FeedSize reports how many orders back the current snapshots.
func (s *Service) FeedSize() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.feed)
}
