// Package admin implements the shop-owner API: catalog management, order
// fulfillment, review moderation and the sales report screen.
package admin

import (
	"errors"
	"net/http"
	"strconv"

	"log/slog"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"
	"github.com/simpledough/dough-manager/internal/apisrv/respond"
	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
	"github.com/simpledough/dough-manager/internal/export"
	"github.com/simpledough/dough-manager/internal/report"
	"github.com/simpledough/dough-manager/internal/store"
)

const (
	defaultPageLimit = 50
	maxPageLimit     = 200
)

// Server implements the admin service.
type Server struct {
	repo    dependency.Repository
	reports *report.Service
	export  *export.Service
}

// New creates a new server with admin handlers.
func New(r dependency.Repository, reports *report.Service, exp *export.Service) *Server {
	return &Server{
		repo:    r,
		reports: reports,
		export:  exp,
	}
}

// Handler returns the admin routes. The auth middleware is applied by the
// router mounting these.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/products", s.handleListProducts)
	r.Post("/products", s.handleAddProduct)
	r.Put("/products/{id}", s.handleUpdateProduct)
	r.Delete("/products/{id}", s.handleDeleteProduct)
	r.Put("/products/{id}/stock", s.handleUpdateStock)
	r.Get("/products/low-stock", s.handleLowStock)

	r.Get("/orders", s.handleListOrders)
	r.Put("/orders/{uuid}/status", s.handleUpdateOrderStatus)

	r.Get("/reviews", s.handleListReviews)
	r.Delete("/reviews/{id}", s.handleDeleteReview)

	r.Get("/reports", s.handleGetReport)
	r.Post("/reports/refresh", s.handleRefreshReport)
	r.Post("/reports/export", s.handleExportReport)

	return r
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := s.repo.Products().GetProducts(r.Context(), true)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't list products")
		return
	}
	respond.JSON(w, http.StatusOK, products)
}

func (s *Server) handleAddProduct(w http.ResponseWriter, r *http.Request) {
	var req entity.ProductInsert
	if !respond.Decode(w, r, &req) {
		return
	}
	if _, err := govalidator.ValidateStruct(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if !entity.ValidCategories[req.Category] {
		respond.Error(w, http.StatusBadRequest, "unknown category")
		return
	}
	for tier := range req.Toppings {
		if !entity.ValidToppingTiers[tier] {
			respond.Error(w, http.StatusBadRequest, "unknown topping tier")
			return
		}
	}

	id, err := s.repo.Products().AddProduct(r.Context(), &entity.ProductNew{Product: &req})
	if err != nil {
		if s.repo.IsErrUniqueViolation(err) {
			respond.Error(w, http.StatusConflict, "product name already exists")
			return
		}
		respond.Error(w, http.StatusInternalServerError, "can't add product")
		return
	}
	respond.JSON(w, http.StatusCreated, map[string]int{"id": id})
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req entity.ProductInsert
	if !respond.Decode(w, r, &req) {
		return
	}
	if _, err := govalidator.ValidateStruct(&req); err != nil {
		respond.Error(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.repo.Products().UpdateProduct(r.Context(), &entity.ProductNew{Product: &req}, id); err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't update product")
		return
	}
	respond.JSON(w, http.StatusOK, nil)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}
	if err := s.repo.Products().DeleteProductById(r.Context(), id); err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't delete product")
		return
	}
	respond.JSON(w, http.StatusOK, nil)
}

type stockUpdateRequest struct {
	Stock int `json:"stock"`
}

func (s *Server) handleUpdateStock(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid product id")
		return
	}
	var req stockUpdateRequest
	if !respond.Decode(w, r, &req) {
		return
	}
	if req.Stock < 0 {
		respond.Error(w, http.StatusBadRequest, "stock can't be negative")
		return
	}
	if err := s.repo.Products().UpdateProductStock(r.Context(), id, req.Stock); err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't update stock")
		return
	}
	respond.JSON(w, http.StatusOK, nil)
}

func (s *Server) handleLowStock(w http.ResponseWriter, r *http.Request) {
	products, err := s.repo.Products().GetLowStockProducts(r.Context())
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't get low stock products")
		return
	}
	respond.JSON(w, http.StatusOK, products)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit <= 0 || limit > maxPageLimit {
		limit = defaultPageLimit
	}
	offset, _ := strconv.Atoi(r.URL.Query().Get("offset"))
	if offset < 0 {
		offset = 0
	}

	status := entity.OrderStatusName(r.URL.Query().Get("status"))
	if status != "" && !entity.ValidOrderStatusNames[status] {
		respond.Error(w, http.StatusBadRequest, "unknown order status")
		return
	}

	orders, err := s.repo.Order().GetOrdersPaged(r.Context(), status, limit, offset)
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't list orders")
		return
	}
	respond.JSON(w, http.StatusOK, orders)
}

type statusUpdateRequest struct {
	Status entity.OrderStatusName `json:"status"`
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req statusUpdateRequest
	if !respond.Decode(w, r, &req) {
		return
	}

	err := s.repo.Order().UpdateOrderStatus(r.Context(), chi.URLParam(r, "uuid"), req.Status)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrOrderNotFound):
			respond.Error(w, http.StatusNotFound, "order not found")
		case errors.Is(err, store.ErrInvalidStatusTransition):
			respond.Error(w, http.StatusConflict, err.Error())
		default:
			respond.Error(w, http.StatusBadRequest, err.Error())
		}
		return
	}
	respond.JSON(w, http.StatusOK, nil)
}

func (s *Server) handleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := s.repo.Reviews().GetAllReviews(r.Context())
	if err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't list reviews")
		return
	}
	respond.JSON(w, http.StatusOK, reviews)
}

func (s *Server) handleDeleteReview(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid review id")
		return
	}
	if err := s.repo.Reviews().DeleteReviewById(r.Context(), id); err != nil {
		respond.Error(w, http.StatusInternalServerError, "can't delete review")
		return
	}
	respond.JSON(w, http.StatusOK, nil)
}

// handleGetReport serves the memoized snapshot for the requested range.
// Unknown range tokens fall back to today downstream.
func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	token := entity.RangeToken(r.URL.Query().Get("range"))
	if token == "" {
		token = entity.RangeToday
	}
	respond.JSON(w, http.StatusOK, s.reports.GetReport(token))
}

// handleRefreshReport re-pulls the order feed behind the report screen.
func (s *Server) handleRefreshReport(w http.ResponseWriter, r *http.Request) {
	s.reports.Refresh(r.Context())
	respond.JSON(w, http.StatusOK, map[string]int{"orders": s.reports.FeedSize()})
}

type exportResponse struct {
	URL string `json:"url"`
}

// handleExportReport exports the current snapshot as a document artifact.
func (s *Server) handleExportReport(w http.ResponseWriter, r *http.Request) {
	token := entity.RangeToken(r.URL.Query().Get("range"))
	if token == "" {
		token = entity.RangeToday
	}

	snap := s.reports.GetReport(token)
	url, err := s.export.ExportReport(r.Context(), snap, token)
	if err != nil {
		slog.Default().ErrorContext(r.Context(), "report export failed",
			slog.String("err", err.Error()),
		)
		respond.Error(w, http.StatusInternalServerError, "report export failed")
		return
	}
	respond.JSON(w, http.StatusOK, exportResponse{URL: url})
}
