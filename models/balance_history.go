package models

import (
	"time"
)

// TransactionType represents the type of balance change
type TransactionType string

const (
	TransactionTypeWagerWin      TransactionType = "wager_win"
	TransactionTypeComboWagerWin TransactionType = "combo_wager_win"
)

// RelatedType represents what type of entity the related_id refers to
type RelatedType string

const (
	RelatedTypeWager      RelatedType = "wager"
	RelatedTypeComboWager RelatedType = "combo_wager"
)

// BalanceHistory represents one credit applied to an account by a settlement
type BalanceHistory struct {
	ID                  int64           `db:"id"`
	UserID              int64           `db:"user_id"`
	PrimaryBefore       int64           `db:"primary_before"`
	PrimaryAfter        int64           `db:"primary_after"`
	PremiumBefore       int64           `db:"premium_before"`
	PremiumAfter        int64           `db:"premium_after"`
	TransactionType     TransactionType `db:"transaction_type"`
	TransactionMetadata map[string]any  `db:"transaction_metadata"`
	RelatedID           int64           `db:"related_id"`
	RelatedType         RelatedType     `db:"related_type"`
	CreatedAt           time.Time       `db:"created_at"`
}

// PrimaryChange returns the primary balance delta
func (h *BalanceHistory) PrimaryChange() int64 {
	return h.PrimaryAfter - h.PrimaryBefore
}

// PremiumChange returns the premium balance delta
func (h *BalanceHistory) PremiumChange() int64 {
	return h.PremiumAfter - h.PremiumBefore
}
