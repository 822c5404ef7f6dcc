package store

import (
	"context"
	"fmt"

	"github.com/simpledough/dough-manager/internal/dependency"
	"github.com/simpledough/dough-manager/internal/entity"
)

type mailStore struct {
	*MYSQLStore
}

// Mail returns an object implementing mail interface
func (ms *MYSQLStore) Mail() dependency.Mail {
	return &mailStore{
		MYSQLStore: ms,
	}
}

// AddMail queues an outgoing email for the send worker.
func (ms *MYSQLStore) AddMail(ctx context.Context, ser *entity.SendEmailRequest) (int, error) {
	id, err := ExecNamedLastId(ctx, ms.db, `
	INSERT INTO send_email_request (from_email, to_email, html, subject, sent)
	VALUES (:fromEmail, :toEmail, :html, :subject, FALSE)`,
		map[string]any{
			"fromEmail": ser.From,
			"toEmail":   ser.To,
			"html":      ser.Html,
			"subject":   ser.Subject,
		})
	if err != nil {
		return 0, fmt.Errorf("can't insert send email request: %w", err)
	}
	return id, nil
}

// GetAllUnsent returns queued emails that have not been sent yet.
func (ms *MYSQLStore) GetAllUnsent(ctx context.Context) ([]entity.SendEmailRequest, error) {
	reqs, err := QueryListNamed[entity.SendEmailRequest](ctx, ms.db, `
	SELECT id, from_email, to_email, html, subject, sent, error_msg
	FROM send_email_request WHERE sent = FALSE ORDER BY id`,
		map[string]any{})
	if err != nil {
		return nil, fmt.Errorf("can't get unsent emails: %w", err)
	}
	return reqs, nil
}

// UpdateSent marks a queued email as delivered.
func (ms *MYSQLStore) UpdateSent(ctx context.Context, id int) error {
	if err := ExecNamed(ctx, ms.db, `
	UPDATE send_email_request SET sent = TRUE, error_msg = NULL WHERE id = :id`,
		map[string]any{"id": id}); err != nil {
		return fmt.Errorf("can't update sent: %w", err)
	}
	return nil
}

// AddError records the delivery failure for a queued email.
func (ms *MYSQLStore) AddError(ctx context.Context, id int, errMsg string) error {
	if err := ExecNamed(ctx, ms.db, `
	UPDATE send_email_request SET error_msg = :errMsg WHERE id = :id`,
		map[string]any{
			"id":     id,
			"errMsg": errMsg,
		}); err != nil {
		return fmt.Errorf("can't add error: %w", err)
	}
	return nil
}
