package store

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDB(t *testing.T) *MYSQLStore {
	dsn := os.Getenv("DB_TEST_DSN")
	if dsn == "" {
		t.Skip("DB_TEST_DSN not set")
	}

	db, err := NewForTest(context.Background(), Config{
		DSN:         dsn,
		Automigrate: true,
	})
	require.NoError(t, err)

	_, err = db.db.ExecContext(context.Background(), "SET FOREIGN_KEY_CHECKS = 0")
	assert.NoError(t, err)
	_, err = db.db.ExecContext(context.Background(), "DELETE FROM send_email_request")
	assert.NoError(t, err)
	_, err = db.db.ExecContext(context.Background(), "DELETE FROM review")
	assert.NoError(t, err)
	_, err = db.db.ExecContext(context.Background(), "DELETE FROM order_item")
	assert.NoError(t, err)
	_, err = db.db.ExecContext(context.Background(), "DELETE FROM customer_order")
	assert.NoError(t, err)
	_, err = db.db.ExecContext(context.Background(), "DELETE FROM product")
	assert.NoError(t, err)
	_, err = db.db.ExecContext(context.Background(), "DELETE FROM admin")
	assert.NoError(t, err)
	_, err = db.db.ExecContext(context.Background(), "SET FOREIGN_KEY_CHECKS = 1")
	assert.NoError(t, err)

	return db
}
