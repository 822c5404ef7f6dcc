// Package frontend implements the storefront API: catalog browsing,
// checkout, order tracking and reviews.
package frontend

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/simpledough/dough-manager/internal/apisrv/respond"
	"github.com/simpledough/dough-manager/internal/cache"
	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
	"github.com/simpledough/dough-manager/internal/middleware"
	"github.com/simpledough/dough-manager/internal/ratelimit"
	"github.com/simpledough/dough-manager/internal/store"
)

// Server implements the frontend service.
type Server struct {
	repo        dependency.Repository
	reviewStore dependency.ReviewStore
	mailer      dependency.Mailer
	limiter     *ratelimit.StorefrontLimiter
}

// New creates a new server with storefront handlers.
func New(r dependency.Repository, rs dependency.ReviewStore, m dependency.Mailer, l *ratelimit.StorefrontLimiter) *Server {
	return &Server{
		repo:        r,
		reviewStore: rs,
		mailer:      m,
		limiter:     l,
	}
}

// Handler returns the storefront routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Get("/dictionary", s.handleDictionary)
	r.Get("/products", s.handleListProducts)
	r.Get("/products/{id}", s.handleGetProduct)
	r.Get("/products/{id}/reviews", s.handleProductReviews)
	r.Post("/reviews", s.handleAddReview)
	r.Post("/orders", s.handleCheckout)
	r.Get("/orders/{uuid}", s.handleGetOrder)
	r.Get("/customers/{customerId}/orders", s.handleCustomerOrders)
	return r
}

func (s *Server) handleDictionary(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, cache.GetDict())
}

// handleListProducts returns the visible catalog.
func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.repo.Products().GetProducts(r.Context(), false)
	if err != nil {
		slog.Default().ErrorContext(r.Context(), "can't list products",
			slog.String("err", err.Error()),
		)
		respond.Error(w, http.StatusInternalServerError, "can't list products")
		return
	}
	respond.JSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}
	prd, err := s.repo.Products().GetProductById(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrProductNotFound) {
			respond.Error(w, http.StatusNotFound, "product not found")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "can't get product")
		return
	}
	if prd.Hidden {
		respond.Error(w, http.StatusNotFound, "product not found")
		return
	}
	respond.JSON(w, http.StatusOK, prd)
}

func (s *Server) handleProductReviews(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}
	reviews, err := s.reviewStore.GetReviewsByProduct(r.Context(), id)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't get reviews")
		return
	}
	respond.JSON(w, http.StatusOK, reviews)
}

func (s *Server) handleAddReview(w http.ResponseWriter, r *http.Request) {
	if err := s.limiter.CheckReview(middleware.GetClientIP(r.Context())); err != nil {
		respond.Error(w, http.StatusTooManyRequests, err.Error())
		return
	}

	var req entity.ReviewInsert
	if !respond.Decode(w, r, &req) {
		return
	}
	if _, err := govalidator.ValidateStruct(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	review, err := s.reviewStore.AddReview(r.Context(), &req)
	if err != nil {
		if errors.Is(err, store.ErrReviewExists) {
			respond.Error(w, http.StatusConflict, "review already exists")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "can't add review")
		return
	}
	respond.JSON(w, http.StatusCreated, review)
}

type checkoutRequest struct {
	entity.OrderNew
	Email string `json:"email"`
}

// handleCheckout creates the order and queues the receipt email when the
// customer left an address. A receipt failure never fails the checkout.
func (s *Server) handleCheckout(w http.ResponseWriter, r *http.Request) {
	var req checkoutRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if _, err := govalidator.ValidateStruct(&req.OrderNew); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.limiter.CheckCheckout(middleware.GetClientIP(r.Context()), req.Email); err != nil {
		respond.Error(w, http.StatusTooManyRequests, err.Error())
		return
	}

	order, err := s.repo.Order().CreateOrder(r.Context(), &req.OrderNew)
	if err != nil {
		if errors.Is(err, store.ErrInsufficientStock) {
			respond.Error(w, http.StatusConflict, err.Error())
			return
		}
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Email != "" && govalidator.IsEmail(req.Email) {
		if err := s.mailer.SendOrderReceipt(r.Context(), req.Email, order); err != nil {
			slog.Default().ErrorContext(r.Context(), "can't queue order receipt",
				slog.String("err", err.Error()),
				slog.String("orderUUID", order.UUID),
			)
		}
	}

	respond.JSON(w, http.StatusCreated, order)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	order, err := s.repo.Order().GetOrderByUUID(r.Context(), chi.URLParam(r, "uuid"))
	if err != nil {
		if errors.Is(err, store.ErrOrderNotFound) {
			respond.Error(w, http.StatusNotFound, "order not found")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "can't get order")
		return
	}
	respond.JSON(w, http.StatusOK, order)
}

func (s *Server) handleCustomerOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.repo.Order().GetOrdersByCustomer(r.Context(), chi.URLParam(r, "customerId"))
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't get orders")
		return
	}
	respond.JSON(w, http.StatusOK, orders)
}
