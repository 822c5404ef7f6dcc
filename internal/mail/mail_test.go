package mail

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sendgrid/rest"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/shopspring/decimal"
	"github.com/simpledough/dough-manager/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubMailRepo struct {
	queued []entity.SendEmailRequest
	sent   []int
	errs   map[int]string
	nextId int
}

func newStubMailRepo() *stubMailRepo {
	return &stubMailRepo{errs: make(map[int]string)}
}

func (s *stubMailRepo) AddMail(_ context.Context, ser *entity.SendEmailRequest) (int, error) {
	s.nextId++
	ser.Id = s.nextId
	s.queued = append(s.queued, *ser)
	return s.nextId, nil
}

func (s *stubMailRepo) GetAllUnsent(context.Context) ([]entity.SendEmailRequest, error) {
	var unsent []entity.SendEmailRequest
	for _, req := range s.queued {
		if !req.Sent {
			unsent = append(unsent, req)
		}
	}
	return unsent, nil
}

func (s *stubMailRepo) UpdateSent(_ context.Context, id int) error {
	for i := range s.queued {
		if s.queued[i].Id == id {
			s.queued[i].Sent = true
		}
	}
	s.sent = append(s.sent, id)
	return nil
}

func (s *stubMailRepo) AddError(_ context.Context, id int, errMsg string) error {
	s.errs[id] = errMsg
	return nil
}

type stubSender struct {
	sent []*sgmail.SGMailV3
	err  error
}

func (s *stubSender) SendWithContext(_ context.Context, email *sgmail.SGMailV3) (*rest.Response, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.sent = append(s.sent, email)
	return &rest.Response{StatusCode: http.StatusAccepted}, nil
}

func newTestMailer(t *testing.T, repo *stubMailRepo, cli sender) *Mailer {
	m, err := New(&Config{
		APIKey:         "test-key",
		FromEmail:      "orders@simpledough.ph",
		FromName:       "Simple Dough",
		WorkerInterval: time.Minute,
	}, repo)
	require.NoError(t, err)
	m.cli = cli
	return m
}

func testOrder() *entity.Order {
	return &entity.Order{
		UUID:           "7c9a2f9e-0000-0000-0000-000000000000",
		Status:         entity.Pending,
		TotalAmount:    decimal.RequireFromString("1100.00"),
		PaymentMethod:  sql.NullString{String: "gcash", Valid: true},
		DeliveryMethod: sql.NullString{String: "delivery", Valid: true},
		Items: []entity.OrderItem{
			{
				ProductName: sql.NullString{String: "Party Box", Valid: true},
				Quantity:    2,
				TotalPrice:  decimal.RequireFromString("1100.00"),
			},
		},
	}
}

func TestSendOrderReceiptQueues(t *testing.T) {
	repo := newStubMailRepo()
	m := newTestMailer(t, repo, &stubSender{})

	err := m.SendOrderReceipt(context.Background(), "customer@example.com", testOrder())
	require.NoError(t, err)

	require.Len(t, repo.queued, 1)
	q := repo.queued[0]
	assert.Equal(t, "Your Simple Dough receipt", q.Subject)
	assert.Equal(t, "customer@example.com", q.To)
	assert.Contains(t, q.Html, "Party Box")
	assert.Contains(t, q.Html, "₱1,100.00")
	assert.False(t, q.Sent)
}

func TestWorkerDeliversQueuedMail(t *testing.T) {
	repo := newStubMailRepo()
	cli := &stubSender{}
	m := newTestMailer(t, repo, cli)

	require.NoError(t, m.SendOrderReceipt(context.Background(), "customer@example.com", testOrder()))
	require.NoError(t, m.handleUnsent(context.Background()))

	assert.Len(t, cli.sent, 1)
	assert.Len(t, repo.sent, 1)

	// nothing left to deliver on the next tick
	require.NoError(t, m.handleUnsent(context.Background()))
	assert.Len(t, cli.sent, 1)
}

func TestWorkerRecordsDeliveryFailure(t *testing.T) {
	repo := newStubMailRepo()
	cli := &stubSender{err: errors.New("api down")}
	m := newTestMailer(t, repo, cli)

	require.NoError(t, m.SendOrderReceipt(context.Background(), "customer@example.com", testOrder()))
	require.NoError(t, m.handleUnsent(context.Background()))

	assert.Empty(t, repo.sent)
	assert.Contains(t, repo.errs[1], "api down")
}

func TestNewRejectsIncompleteConfig(t *testing.T) {
	_, err := New(&Config{FromEmail: "orders@simpledough.ph"}, newStubMailRepo())
	assert.Error(t, err)
}
