package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/simpledough/dough-manager/internal/dependency"
)

var ErrAdminNotFound = errors.New("admin not found")

type adminStore struct {
	*MYSQLStore
}

// Admin returns an object implementing admin interface
func (ms *MYSQLStore) Admin() dependency.Admin {
	return &adminStore{
		MYSQLStore: ms,
	}
}

func (ms *MYSQLStore) AddAdmin(ctx context.Context, un, pwHash string) error {
	if err := ExecNamed(ctx, ms.db, `
	INSERT INTO admin (username, password_hash) VALUES (:username, :passwordHash)`,
		map[string]any{
			"username":     un,
			"passwordHash": pwHash,
		}); err != nil {
		if ms.IsErrUniqueViolation(err) {
			return fmt.Errorf("admin %s already exists", un)
		}
		return fmt.Errorf("can't insert admin: %w", err)
	}
	return nil
}

func (ms *MYSQLStore) DeleteAdmin(ctx context.Context, username string) error {
	if err := ExecNamed(ctx, ms.db, `DELETE FROM admin WHERE username = :username`,
		map[string]any{"username": username}); err != nil {
		return fmt.Errorf("can't delete admin: %w", err)
	}
	return nil
}

func (ms *MYSQLStore) ChangePassword(ctx context.Context, un, newHash string) error {
	if err := ExecNamed(ctx, ms.db, `
	UPDATE admin SET password_hash = :passwordHash WHERE username = :username`,
		map[string]any{
			"username":     un,
			"passwordHash": newHash,
		}); err != nil {
		return fmt.Errorf("can't change password: %w", err)
	}
	return nil
}

type adminHashRow struct {
	PasswordHash string `db:"password_hash"`
}

func (ms *MYSQLStore) PasswordHashByUsername(ctx context.Context, un string) (string, error) {
	row, err := QueryNamedOne[adminHashRow](ctx, ms.db,
		`SELECT password_hash FROM admin WHERE username = :username`,
		map[string]any{"username": un})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrAdminNotFound
		}
		return "", fmt.Errorf("can't get password hash: %w", err)
	}
	return row.PasswordHash, nil
}
