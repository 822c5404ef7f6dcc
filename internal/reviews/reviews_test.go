package reviews

import (
	"context"
	"errors"
	"testing"

	"github.com/simpledough/dough-manager/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubPrimary struct {
	reviews []entity.Review
	nextId  int
	failing bool
}

func (s *stubPrimary) AddReview(_ context.Context, review *entity.ReviewInsert) (*entity.Review, error) {
	if s.failing {
		return nil, errors.New("primary down")
	}
	s.nextId++
	r := entity.Review{Id: s.nextId, ReviewInsert: *review}
	s.reviews = append(s.reviews, r)
	return &r, nil
}

func (s *stubPrimary) GetReviewsByProduct(_ context.Context, productId int) ([]entity.Review, error) {
	if s.failing {
		return nil, errors.New("primary down")
	}
	var out []entity.Review
	for _, r := range s.reviews {
		if r.ProductId == productId {
			out = append(out, r)
		}
	}
	return out, nil
}

func (s *stubPrimary) GetAllReviews(context.Context) ([]entity.Review, error) {
	return s.reviews, nil
}

func (s *stubPrimary) DeleteReviewById(context.Context, int) error { return nil }

func newTestStore(t *testing.T, primary *stubPrimary) *Store {
	s, err := New(Config{FallbackPath: ":memory:"}, primary)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestAddReviewPrimaryUp(t *testing.T) {
	primary := &stubPrimary{}
	s := newTestStore(t, primary)

	r, err := s.AddReview(context.Background(), &entity.ReviewInsert{
		ProductId: 1, OrderId: 1, Name: "Ana", Rating: 5,
	})
	require.NoError(t, err)
	assert.Positive(t, r.Id)

	got, err := s.GetReviewsByProduct(context.Background(), 1)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestAddReviewParksOnPrimaryFailure(t *testing.T) {
	primary := &stubPrimary{failing: true}
	s := newTestStore(t, primary)
	ctx := context.Background()

	r, err := s.AddReview(ctx, &entity.ReviewInsert{
		ProductId: 7, OrderId: 3, Name: "Ben", Rating: 4,
	})
	require.NoError(t, err)
	assert.Negative(t, r.Id)

	// parked review is still visible while the primary is down
	got, err := s.GetReviewsByProduct(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Ben", got[0].Name)

	// once the primary recovers, flush moves it over
	primary.failing = false
	require.NoError(t, s.FlushFallback(ctx))

	got, err = s.GetReviewsByProduct(ctx, 7)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Positive(t, got[0].Id)

	// flush is idempotent once drained
	require.NoError(t, s.FlushFallback(ctx))
	got, err = s.GetReviewsByProduct(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
