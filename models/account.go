package models

import (
	"time"
)

// AccountBalance holds a user's balances in both currencies and their wins counter
type AccountBalance struct {
	UserID         int64     `db:"user_id"`
	PrimaryBalance int64     `db:"primary_balance"`
	PremiumBalance int64     `db:"premium_balance"`
	Wins           int64     `db:"wins"`
	CreatedAt      time.Time `db:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"`
}
