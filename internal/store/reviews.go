package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/asaskevich/govalidator"
	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
)

var ErrReviewExists = errors.New("review for this order and product already exists")

type reviewsStore struct {
	*MYSQLStore
}

// Reviews returns an object implementing reviews interface
func (ms *MYSQLStore) Reviews() dependency.Reviews {
	return &reviewsStore{
		MYSQLStore: ms,
	}
}

// AddReview validates and persists a review. A duplicate (order, product)
// pair maps to ErrReviewExists.
func (ms *MYSQLStore) AddReview(ctx context.Context, review *entity.ReviewInsert) (*entity.Review, error) {
	if _, err := govalidator.ValidateStruct(review); err != nil {
		return nil, fmt.Errorf("review validation failed: %w", err)
	}

	id, err := ExecNamedLastId(ctx, ms.db, `
	INSERT INTO review (created_at, product_id, order_id, user_id, name, rating, comment)
	VALUES (:createdAt, :productId, :orderId, :userId, :name, :rating, :comment)`,
		map[string]any{
			"createdAt": ms.Now(),
			"productId": review.ProductId,
			"orderId":   review.OrderId,
			"userId":    review.UserId,
			"name":      review.Name,
			"rating":    review.Rating,
			"comment":   review.Comment,
		})
	if err != nil {
		if ms.IsErrUniqueViolation(err) {
			return nil, ErrReviewExists
		}
		return nil, fmt.Errorf("can't insert review: %w", err)
	}

	return &entity.Review{
		Id:           id,
		CreatedAt:    ms.Now(),
		ReviewInsert: *review,
	}, nil
}

// GetReviewsByProduct returns a product's reviews, newest first.
func (ms *MYSQLStore) GetReviewsByProduct(ctx context.Context, productId int) ([]entity.Review, error) {
	reviews, err := QueryListNamed[entity.Review](ctx, ms.db, `
	SELECT id, created_at, product_id, order_id, user_id, name, rating, comment
	FROM review WHERE product_id = :productId ORDER BY created_at DESC`,
		map[string]any{"productId": productId})
	if err != nil {
		return nil, fmt.Errorf("can't get reviews by product: %w", err)
	}
	return reviews, nil
}

// GetAllReviews returns every review, newest first.
func (ms *MYSQLStore) GetAllReviews(ctx context.Context) ([]entity.Review, error) {
	reviews, err := QueryListNamed[entity.Review](ctx, ms.db, `
	SELECT id, created_at, product_id, order_id, user_id, name, rating, comment
	FROM review ORDER BY created_at DESC`,
		map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("can't get reviews: %w", err)
	}
	return reviews, nil
}

// DeleteReviewById deletes a review by its id.
func (ms *MYSQLStore) DeleteReviewById(ctx context.Context, id int) error {
	if err := ExecNamed(ctx, ms.db, `DELETE FROM review WHERE id = :id`, map[string]any{
		"id": id,
	}); err != nil {
		return fmt.Errorf("can't delete review: %w", err)
	}
	return nil
}
