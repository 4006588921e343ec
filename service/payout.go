package service

import (
	"math"

	"settler/models"
)

// DefaultPremiumDivisor scales a primary-currency win into its premium reward
const DefaultPremiumDivisor int64 = 10

// PayoutPolicy computes what a winning wager credits
type PayoutPolicy struct {
	PremiumDivisor int64
}

// NewPayoutPolicy creates a policy, falling back to the default divisor for non-positive values
func NewPayoutPolicy(premiumDivisor int64) PayoutPolicy {
	if premiumDivisor <= 0 {
		premiumDivisor = DefaultPremiumDivisor
	}
	return PayoutPolicy{PremiumDivisor: premiumDivisor}
}

// PotentialWin returns the stored value, or round(stake * odds) for rows written without one
func (p PayoutPolicy) PotentialWin(stake int64, odds float64, stored *int64) int64 {
	if stored != nil {
		return *stored
	}
	return int64(math.Round(float64(stake) * odds))
}

// PotentialPremium returns the stored value, or round(stake * odds / divisor)
func (p PayoutPolicy) PotentialPremium(stake int64, odds float64, stored *int64) int64 {
	if stored != nil {
		return *stored
	}
	return int64(math.Round(float64(stake) * odds / float64(p.PremiumDivisor)))
}

// Credits returns the primary and premium amounts a win pays out.
// A primary stake pays the win in primary plus the premium reward.
// A premium stake pays the win in premium only.
func (p PayoutPolicy) Credits(currency models.Currency, stake int64, odds float64, potentialWin, potentialPremium *int64) (primary, premium int64) {
	win := p.PotentialWin(stake, odds, potentialWin)
	if currency == models.CurrencyPremium {
		return 0, win
	}
	return win, p.PotentialPremium(stake, odds, potentialPremium)
}

// WagerSettlement builds the ledger settlement for a single wager on a concluded result
func (p PayoutPolicy) WagerSettlement(wager *models.Wager, result models.Side) models.Settlement {
	settlement := models.Settlement{
		Kind:    models.RelatedTypeWager,
		WagerID: wager.ID,
		UserID:  wager.UserID,
		EventID: wager.EventID,
		Outcome: models.WagerOutcomeLost,
	}
	if wager.WinsOn(result) {
		settlement.Outcome = models.WagerOutcomeWon
		settlement.PrimaryCredit, settlement.PremiumCredit = p.Credits(
			wager.Currency, wager.Stake, wager.Odds, wager.PotentialWin, wager.PotentialPremium)
	}
	return settlement
}

// ComboSettlement builds the ledger settlement for a combo wager
func (p PayoutPolicy) ComboSettlement(combo *models.ComboWager, won bool) models.Settlement {
	settlement := models.Settlement{
		Kind:    models.RelatedTypeComboWager,
		WagerID: combo.ID,
		UserID:  combo.UserID,
		Outcome: models.WagerOutcomeLost,
	}
	if won {
		settlement.Outcome = models.WagerOutcomeWon
		settlement.PrimaryCredit, settlement.PremiumCredit = p.Credits(
			combo.Currency, combo.Stake, combo.TotalOdds, combo.PotentialWin, combo.PotentialPremium)
	}
	return settlement
}
