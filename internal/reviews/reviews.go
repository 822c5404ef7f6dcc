// Package reviews implements the two-tier review store: the MySQL table is
// the durable primary, a local buntdb file is the fallback. Writes that fail
// on the primary land in the fallback so customer feedback is not lost
// during database outages; reads merge the fallback in so those reviews stay
// visible until the backlog is flushed.
package reviews

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync/atomic"
	"time"

	"log/slog"

	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
	"github.com/tidwall/buntdb"
)

type Config struct {
	// FallbackPath is the buntdb file; ":memory:" keeps the fallback
	// in-process only.
	FallbackPath string `mapstructure:"fallback_path"`
}

type Store struct {
	primary  dependency.Reviews
	fallback *buntdb.DB
	seq      atomic.Int64
}

// New opens the fallback file and wraps the primary review repository.
func New(cfg Config, primary dependency.Reviews) (*Store, error) {
	path := cfg.FallbackPath
	if path == "" {
		path = ":memory:"
	}
	db, err := buntdb.Open(path)
	if err != nil {
		return nil, fmt.Errorf("can't open review fallback db: %w", err)
	}
	s := &Store{
		primary:  primary,
		fallback: db,
	}
	s.seq.Store(time.Now().UnixNano())
	return s, nil
}

func (s *Store) Close() error {
	return s.fallback.Close()
}

// AddReview writes to the primary store; on failure the review is parked in
// the fallback and returned with a synthetic negative id.
func (s *Store) AddReview(ctx context.Context, review *entity.ReviewInsert) (*entity.Review, error) {
	r, err := s.primary.AddReview(ctx, review)
	if err == nil {
		return r, nil
	}

	slog.Default().WarnContext(ctx, "review write to primary failed, parking in fallback",
		slog.String("err", err.Error()),
	)

	parked := &entity.Review{
		// negative ids mark fallback-resident reviews
		Id:           int(-s.seq.Add(1) % (1 << 31)),
		CreatedAt:    time.Now(),
		ReviewInsert: *review,
	}
	raw, merr := json.Marshal(parked)
	if merr != nil {
		return nil, fmt.Errorf("can't marshal review for fallback: %w", merr)
	}

	werr := s.fallback.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(strconv.Itoa(parked.Id), string(raw), nil)
		return err
	})
	if werr != nil {
		// both tiers failed, surface the primary error
		return nil, fmt.Errorf("review fallback write failed: %w", err)
	}
	return parked, nil
}

// GetReviewsByProduct reads from the primary and merges in any parked
// fallback reviews for the product. A primary read failure degrades to
// fallback-only rather than erroring out.
func (s *Store) GetReviewsByProduct(ctx context.Context, productId int) ([]entity.Review, error) {
	reviews, err := s.primary.GetReviewsByProduct(ctx, productId)
	if err != nil {
		slog.Default().WarnContext(ctx, "review read from primary failed, serving fallback only",
			slog.String("err", err.Error()),
		)
		reviews = nil
	}

	parked, ferr := s.parkedReviews()
	if ferr != nil {
		return reviews, nil
	}
	for _, r := range parked {
		if r.ProductId == productId {
			reviews = append(reviews, r)
		}
	}
	return reviews, nil
}

// FlushFallback retries parked reviews against the primary, dropping the
// ones that land. Called periodically by the app worker.
func (s *Store) FlushFallback(ctx context.Context) error {
	parked, err := s.parkedReviews()
	if err != nil {
		return fmt.Errorf("can't list parked reviews: %w", err)
	}
	if len(parked) == 0 {
		return nil
	}

	flushed := 0
	for _, r := range parked {
		insert := r.ReviewInsert
		if _, err := s.primary.AddReview(ctx, &insert); err != nil {
			continue
		}
		key := strconv.Itoa(r.Id)
		_ = s.fallback.Update(func(tx *buntdb.Tx) error {
			_, err := tx.Delete(key)
			return err
		})
		flushed++
	}

	if flushed > 0 {
		slog.Default().InfoContext(ctx, "flushed parked reviews to primary",
			slog.Int("count", flushed),
		)
	}
	return nil
}

func (s *Store) parkedReviews() ([]entity.Review, error) {
	var parked []entity.Review
	err := s.fallback.View(func(tx *buntdb.Tx) error {
		return tx.Ascend("", func(_, raw string) bool {
			var r entity.Review
			if err := json.Unmarshal([]byte(raw), &r); err == nil {
				parked = append(parked, r)
			}
			return true
		})
	})
	if err != nil {
		return nil, err
	}
	return parked, nil
}
