package draft

import "github.com/Billy-Davies-2/esports-draft/internal/models"

// Budget derives spend limits from the round salary cap and the bonus
// credits available to the user
type Budget struct {
	SalaryCap    int `json:"salaryCap"`
	BonusCredits int `json:"bonusCredits"`
}

// NewBudget clamps negative credit balances to zero
func NewBudget(salaryCap, bonusCredits int) Budget {
	if salaryCap < 0 {
		salaryCap = 0
	}
	if bonusCredits < 0 {
		bonusCredits = 0
	}
	return Budget{SalaryCap: salaryCap, BonusCredits: bonusCredits}
}

// Total is the salary cap plus available bonus credits
func (b Budget) Total() int {
	return b.SalaryCap + b.BonusCredits
}

// Spent sums team prices; unpriced teams count as 0
func Spent(teams []models.Team) int {
	total := 0
	for _, t := range teams {
		total += t.PriceValue()
	}
	return total
}

// Remaining never goes below zero
func (b Budget) Remaining(spent int) int {
	return max(0, b.Total()-spent)
}

// BonusCreditsNeeded is the part of spend that must come from bonus credits
func (b Budget) BonusCreditsNeeded(spent int) int {
	return max(0, spent-b.SalaryCap)
}

// CanAfford reports whether team can be added to selected. A team already in
// the selection is always affordable so it can be removed. Unpriced teams are
// not affordable until the pricing collaborator assigns a price.
func (b Budget) CanAfford(team models.Team, selected []models.Team) bool {
	if containsTeam(selected, team.ID) {
		return true
	}
	if !team.Priced() {
		return false
	}
	return team.PriceValue() <= b.Remaining(Spent(selected))
}

// CheckSubmission verifies the bonus credits cover the spend over the cap
func (b Budget) CheckSubmission(spent int) error {
	needed := b.BonusCreditsNeeded(spent)
	if needed > b.BonusCredits {
		short := needed - b.BonusCredits
		rej := reject(ReasonInsufficientCredits, "need %d bonus credits but only %d available, %d short", needed, b.BonusCredits, short)
		rej.Shortfall = short
		return rej
	}
	return nil
}

// Summary is a display-ready view of the budget for a selection
type Summary struct {
	SalaryCap          int  `json:"salaryCap"`
	BonusCredits       int  `json:"bonusCredits"`
	Total              int  `json:"total"`
	Spent              int  `json:"spent"`
	Remaining          int  `json:"remaining"`
	BonusCreditsNeeded int  `json:"bonusCreditsNeeded"`
	OverBudget         bool `json:"overBudget"`
}

// Summarize computes the summary for selected
func (b Budget) Summarize(selected []models.Team) Summary {
	spent := Spent(selected)
	return Summary{
		SalaryCap:          b.SalaryCap,
		BonusCredits:       b.BonusCredits,
		Total:              b.Total(),
		Spent:              spent,
		Remaining:          b.Remaining(spent),
		BonusCreditsNeeded: b.BonusCreditsNeeded(spent),
		OverBudget:         spent > b.Total(),
	}
}

func containsTeam(teams []models.Team, id string) bool {
	return indexOf(teams, id) >= 0
}

func indexOf(teams []models.Team, id string) int {
	for i, t := range teams {
		if t.ID == id {
			return i
		}
	}
	return -1
}
