package model

import (
	"database/sql"
	"time"
)

type User struct {
	ID           int64        `db:"id"`
	AccountID    int64        `db:"account_id"`
	Name         string       `db:"name"`
	Email        string       `db:"email"`
	PasswordHash string       `db:"password_hash"`
	Role         string       `db:"role"` // e.g. admin|member
	Status       string       `db:"status"`
	LastLogin    sql.NullTime `db:"last_login"`
	CreatedAt    time.Time    `db:"created_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

func (u User) Active() bool { return u.Status == StatusActive }

const StatusActive = "active"
