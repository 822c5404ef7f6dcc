package entity

import "database/sql"

// SendEmailRequest represents the send_email_request table
type SendEmailRequest struct {
	Id      int            `db:"id"`
	From    string         `db:"from_email"`
	To      string         `db:"to_email"`
	Html    string         `db:"html"`
	Subject string         `db:"subject"`
	Sent    bool           `db:"sent"`
	ErrMsg  sql.NullString `db:"error_msg"`
}
