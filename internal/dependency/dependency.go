package dependency

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/simpledough/dough-manager/internal/entity"
)

type (
	Products interface {
		// AddProduct adds a new catalog product along with its customization data.
		AddProduct(ctx context.Context, prd *entity.ProductNew) (int, error)
		// UpdateProduct replaces the product body for the given id.
		UpdateProduct(ctx context.Context, prd *entity.ProductNew, id int) error
		// GetProducts returns the catalog; hidden products are included only when showHidden is set.
		GetProducts(ctx context.Context, showHidden bool) ([]entity.Product, error)
		// GetProductById returns a product by its id no matter hidden or not.
		GetProductById(ctx context.Context, id int) (*entity.Product, error)
		// DeleteProductById deletes a product by its id.
		DeleteProductById(ctx context.Context, id int) error
		// UpdateProductStock sets the absolute stock count for a product.
		UpdateProductStock(ctx context.Context, id int, stock int) error
		// GetLowStockProducts returns products at or below their low stock threshold.
		GetLowStockProducts(ctx context.Context) ([]entity.Product, error)
	}

	Order interface {
		CreateOrder(ctx context.Context, orderNew *entity.OrderNew) (*entity.Order, error)
		GetOrderByUUID(ctx context.Context, orderUUID string) (*entity.Order, error)
		GetOrdersByCustomer(ctx context.Context, customerId string) ([]entity.Order, error)
		GetOrdersPaged(ctx context.Context, status entity.OrderStatusName, limit, offset int) ([]entity.Order, error)
		UpdateOrderStatus(ctx context.Context, orderUUID string, status entity.OrderStatusName) error
		// GetStalePendingOrderUUIDs returns uuids of pending orders created
		// before the cutoff, oldest first.
		GetStalePendingOrderUUIDs(ctx context.Context, olderThan time.Time) ([]string, error)
		// GetOrdersForReporting returns the full denormalized order feed with
		// nested items and product references, sorted by creation time
		// descending, in a single query.
		GetOrdersForReporting(ctx context.Context) ([]entity.Order, error)
	}

	Reviews interface {
		AddReview(ctx context.Context, review *entity.ReviewInsert) (*entity.Review, error)
		GetReviewsByProduct(ctx context.Context, productId int) ([]entity.Review, error)
		GetAllReviews(ctx context.Context) ([]entity.Review, error)
		DeleteReviewById(ctx context.Context, id int) error
	}

	Admin interface {
		AddAdmin(ctx context.Context, un, pwHash string) error
		DeleteAdmin(ctx context.Context, username string) error
		ChangePassword(ctx context.Context, un, newHash string) error
		PasswordHashByUsername(ctx context.Context, un string) (string, error)
	}

	Mail interface {
		AddMail(ctx context.Context, ser *entity.SendEmailRequest) (int, error)
		GetAllUnsent(ctx context.Context) ([]entity.SendEmailRequest, error)
		UpdateSent(ctx context.Context, id int) error
		AddError(ctx context.Context, id int, errMsg string) error
	}

	Repository interface {
		Products() Products
		Order() Order
		Reviews() Reviews
		Admin() Admin
		Mail() Mail
		Tx(ctx context.Context, f func(context.Context, Repository) error) error
		Now() time.Time
		InTx() bool
		Close()
		IsErrUniqueViolation(err error) bool
		DB() DB
	}

	// DB represents database interface.
	DB interface {
		BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
		ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)

		// sqlx methods
		GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
		NamedExecContext(ctx context.Context, query string, arg interface{}) (sql.Result, error)
		QueryRowxContext(ctx context.Context, query string, args ...interface{}) *sqlx.Row
		QueryxContext(ctx context.Context, query string, args ...interface{}) (*sqlx.Rows, error)
		SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	}

	// ReviewStore is the two-tier review persistence surface: writes go to
	// the primary durable store and fall back to a local cache on failure,
	// reads prefer the primary but tolerate serving from the fallback.
	ReviewStore interface {
		AddReview(ctx context.Context, review *entity.ReviewInsert) (*entity.Review, error)
		GetReviewsByProduct(ctx context.Context, productId int) ([]entity.Review, error)
	}

	// ArtifactStore stores exported report documents.
	ArtifactStore interface {
		UploadReportDocument(ctx context.Context, name string, raw []byte, contentType string) (string, error)
	}

	// DocumentExporter turns a rendered report view into a paginated
	// document artifact. Margins, image fidelity and page breaks are the
	// exporter's concern.
	DocumentExporter interface {
		Export(ctx context.Context, renderedView []byte) ([]byte, string, error)
	}

	Mailer interface {
		SendOrderReceipt(ctx context.Context, to string, order *entity.Order) error
		Start(ctx context.Context) error
		Stop() error
	}
)
