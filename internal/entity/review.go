package entity

import (
	"database/sql"
	"time"
)

// Review represents the review table
type Review struct {
	Id        int       `db:"id"`
	CreatedAt time.Time `db:"created_at"`
	ReviewInsert
}

type ReviewInsert struct {
	ProductId int            `db:"product_id" valid:"required"`
	OrderId   int            `db:"order_id" valid:"required"`
	UserId    sql.NullString `db:"user_id"`
	Name      string         `db:"name"`
	Rating    int            `db:"rating" valid:"range(1|5)"`
	Comment   string         `db:"comment" valid:"length(0|500)"`
}
