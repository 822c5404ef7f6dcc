package frontend

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
	"github.com/simpledough/dough-manager/internal/ratelimit"
	"github.com/simpledough/dough-manager/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProducts struct {
	byId map[int]*entity.Product
}

func (s *stubProducts) AddProduct(context.Context, *entity.ProductNew) (int, error) { return 0, nil }
func (s *stubProducts) UpdateProduct(context.Context, *entity.ProductNew, int) error {
	return nil
}
func (s *stubProducts) GetProducts(context.Context, bool) ([]entity.Product, error) {
	var out []entity.Product
	for _, p := range s.byId {
		if !p.Hidden {
			out = append(out, *p)
		}
	}
	return out, nil
}
func (s *stubProducts) GetProductById(_ context.Context, id int) (*entity.Product, error) {
	p, ok := s.byId[id]
	if !ok {
		return nil, store.ErrProductNotFound
	}
	return p, nil
}
func (s *stubProducts) DeleteProductById(context.Context, int) error       { return nil }
func (s *stubProducts) UpdateProductStock(context.Context, int, int) error { return nil }
func (s *stubProducts) GetLowStockProducts(context.Context) ([]entity.Product, error) {
	return nil, nil
}

type stubOrders struct {
	created  *entity.Order
	createCb func(*entity.OrderNew) (*entity.Order, error)
}

func (s *stubOrders) CreateOrder(_ context.Context, orderNew *entity.OrderNew) (*entity.Order, error) {
	if s.createCb != nil {
		return s.createCb(orderNew)
	}
	return s.created, nil
}
func (s *stubOrders) GetOrderByUUID(context.Context, string) (*entity.Order, error) {
	return nil, store.ErrOrderNotFound
}
func (s *stubOrders) GetOrdersByCustomer(context.Context, string) ([]entity.Order, error) {
	return nil, nil
}
func (s *stubOrders) GetOrdersPaged(context.Context, entity.OrderStatusName, int, int) ([]entity.Order, error) {
	return nil, nil
}
func (s *stubOrders) UpdateOrderStatus(context.Context, string, entity.OrderStatusName) error {
	return nil
}
func (s *stubOrders) GetStalePendingOrderUUIDs(context.Context, time.Time) ([]string, error) {
	return nil, nil
}
func (s *stubOrders) GetOrdersForReporting(context.Context) ([]entity.Order, error) {
	return nil, nil
}

type mockRepo struct {
	products *stubProducts
	orders   *stubOrders
}

func (m *mockRepo) Products() dependency.Products { return m.products }
func (m *mockRepo) Order() dependency.Order       { return m.orders }
func (m *mockRepo) Reviews() dependency.Reviews   { return nil }
func (m *mockRepo) Admin() dependency.Admin       { return nil }
func (m *mockRepo) Mail() dependency.Mail         { return nil }
func (m *mockRepo) Tx(ctx context.Context, f func(context.Context, dependency.Repository) error) error {
	return f(ctx, m)
}
func (m *mockRepo) Now() time.Time                    { return time.Now() }
func (m *mockRepo) InTx() bool                        { return false }
func (m *mockRepo) Close()                            {}
func (m *mockRepo) IsErrUniqueViolation(error) bool   { return false }
func (m *mockRepo) DB() dependency.DB                 { return nil }

type stubReviewStore struct {
	added *entity.Review
	err   error
}

func (s *stubReviewStore) AddReview(context.Context, *entity.ReviewInsert) (*entity.Review, error) {
	return s.added, s.err
}
func (s *stubReviewStore) GetReviewsByProduct(context.Context, int) ([]entity.Review, error) {
	return nil, nil
}

type stubMailer struct {
	receipts []string
	err      error
}

func (s *stubMailer) SendOrderReceipt(_ context.Context, to string, _ *entity.Order) error {
	if s.err != nil {
		return s.err
	}
	s.receipts = append(s.receipts, to)
	return nil
}
func (s *stubMailer) Start(context.Context) error { return nil }
func (s *stubMailer) Stop() error                 { return nil }

func newTestServer(repo *mockRepo, mailer *stubMailer, limiter *ratelimit.StorefrontLimiter) *Server {
	if limiter == nil {
		limiter = ratelimit.NewStorefrontLimiter()
	}
	return New(repo, &stubReviewStore{added: &entity.Review{Id: 1}}, mailer, limiter)
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func checkoutBody(customerId string) map[string]any {
	return map[string]any{
		"Items": []map[string]any{
			{"ProductId": 1, "Quantity": 2},
		},
		"CustomerId":     customerId,
		"PaymentMethod":  "cod",
		"DeliveryMethod": "pickup",
	}
}

func TestGetProductHiddenIsNotFound(t *testing.T) {
	repo := &mockRepo{products: &stubProducts{byId: map[int]*entity.Product{
		1: {Id: 1, ProductInsert: entity.ProductInsert{Name: "Classic Dozen", Hidden: true}},
	}}}
	s := newTestServer(repo, &stubMailer{}, nil)

	rec := doJSON(t, s.Handler(), http.MethodGet, "/products/1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodGet, "/products/99", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutQueuesReceipt(t *testing.T) {
	repo := &mockRepo{
		products: &stubProducts{},
		orders: &stubOrders{created: &entity.Order{
			UUID:        "abc",
			Status:      entity.Pending,
			TotalAmount: decimal.RequireFromString("500"),
		}},
	}
	mailer := &stubMailer{}
	s := newTestServer(repo, mailer, nil)

	body := checkoutBody("cust-1")
	body["email"] = "donut@example.com"
	rec := doJSON(t, s.Handler(), http.MethodPost, "/orders", body)

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, []string{"donut@example.com"}, mailer.receipts)

	var got entity.Order
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "abc", got.UUID)
}

func TestCheckoutReceiptFailureDoesNotFailCheckout(t *testing.T) {
	repo := &mockRepo{
		products: &stubProducts{},
		orders:   &stubOrders{created: &entity.Order{UUID: "abc"}},
	}
	mailer := &stubMailer{err: assert.AnError}
	s := newTestServer(repo, mailer, nil)

	body := checkoutBody("cust-1")
	body["email"] = "donut@example.com"
	rec := doJSON(t, s.Handler(), http.MethodPost, "/orders", body)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestCheckoutInsufficientStock(t *testing.T) {
	repo := &mockRepo{
		products: &stubProducts{},
		orders: &stubOrders{createCb: func(*entity.OrderNew) (*entity.Order, error) {
			return nil, store.ErrInsufficientStock
		}},
	}
	s := newTestServer(repo, &stubMailer{}, nil)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/orders", checkoutBody("cust-1"))
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestCheckoutMissingFieldsRejected(t *testing.T) {
	s := newTestServer(&mockRepo{products: &stubProducts{}, orders: &stubOrders{}}, &stubMailer{}, nil)

	rec := doJSON(t, s.Handler(), http.MethodPost, "/orders", map[string]any{
		"CustomerId": "cust-1",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCheckoutRateLimited(t *testing.T) {
	repo := &mockRepo{
		products: &stubProducts{},
		orders:   &stubOrders{created: &entity.Order{UUID: "abc"}},
	}
	s := newTestServer(repo, &stubMailer{}, ratelimit.NewCustomStorefrontLimiter(1, 10, 10))

	rec := doJSON(t, s.Handler(), http.MethodPost, "/orders", checkoutBody("cust-1"))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, s.Handler(), http.MethodPost, "/orders", checkoutBody("cust-2"))
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestAddReviewRateLimited(t *testing.T) {
	s := newTestServer(&mockRepo{products: &stubProducts{}, orders: &stubOrders{}},
		&stubMailer{}, ratelimit.NewCustomStorefrontLimiter(10, 10, 1))

	review := map[string]any{"OrderId": 1, "ProductId": 1, "Rating": 5}
	rec := doJSON(t, s.Handler(), http.MethodPost, "/reviews", review)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, s.Handler(), http.MethodPost, "/reviews", review)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}
