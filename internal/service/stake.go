package service

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/yourusername/gauger/internal/statistics"
)

const stakePlaces = 2

// Stake is the amount to commit when the ratio falls to or below Ratio
type Stake struct {
	Ratio    float64         `json:"ratio" yaml:"ratio"`
	Fraction float64         `json:"fraction" yaml:"fraction"`
	Amount   decimal.Decimal `json:"amount" yaml:"amount"`
}

// StakePlanner converts bet fractions into currency amounts for a bankroll
type StakePlanner struct {
	bankroll decimal.Decimal
	schedule statistics.BetSchedule
}

// NewStakePlanner creates a planner; the bankroll must not be negative
func NewStakePlanner(bankroll decimal.Decimal, schedule statistics.BetSchedule) (*StakePlanner, error) {
	if bankroll.IsNegative() {
		return nil, fmt.Errorf("bankroll must not be negative, got %s", bankroll.String())
	}
	return &StakePlanner{bankroll: bankroll, schedule: schedule}, nil
}

// Bankroll returns the planner's bankroll
func (p *StakePlanner) Bankroll() decimal.Decimal {
	return p.bankroll
}

// Stakes returns one stake per schedule threshold in schedule order
func (p *StakePlanner) Stakes() []Stake {
	stakes := make([]Stake, len(p.schedule))
	for i, th := range p.schedule {
		stakes[i] = Stake{
			Ratio:    th.Ratio,
			Fraction: th.Bet,
			Amount:   p.amount(th.Bet),
		}
	}
	return stakes
}

// StakeFor returns the amount to commit at the given ratio
func (p *StakePlanner) StakeFor(ratio float64) decimal.Decimal {
	return p.amount(p.schedule.BetFor(ratio))
}

// Total returns the sum of all stakes when every threshold is reached
func (p *StakePlanner) Total() decimal.Decimal {
	total := decimal.Zero
	for _, s := range p.Stakes() {
		total = total.Add(s.Amount)
	}
	return total
}

func (p *StakePlanner) amount(fraction float64) decimal.Decimal {
	return p.bankroll.Mul(decimal.NewFromFloat(fraction)).Round(stakePlaces)
}
