// Package split computes per-participant balances for a shared ledger and
// turns them into a greedy transfer plan that equalizes everyone's net
// contribution.
package split

import (
	"github.com/shopspring/decimal"
)

// tolerance treats balances within ±0.01 of zero as settled. It guards
// against fractional-average noise, not against meaningful small debts.
var tolerance = decimal.New(1, -2)

// ParticipantTotal is one participant's summed contribution, keyed by the
// display name captured at record time.
type ParticipantTotal struct {
	Name  string `json:"name"`
	Total int64  `json:"total"`
}

// Balance is a participant's contribution minus the scope average. Positive
// means overpaid (a receiver), negative underpaid (a payer).
type Balance struct {
	Name string
	Net  decimal.Decimal
}

// Transfer is one payer-to-receiver payment. Amount keeps full precision;
// rounding is a display concern.
type Transfer struct {
	From   string
	To     string
	Amount decimal.Decimal
}

// Plan is the settlement result. Exactly one of NoData, Settled, or a
// non-empty Transfers list holds.
type Plan struct {
	NoData    bool
	Settled   bool
	Transfers []Transfer
}

// Balances returns each participant's net balance against the average
// contribution. The average is exact decimal division, so fractional
// averages survive until display.
func Balances(totals []ParticipantTotal) []Balance {
	if len(totals) == 0 {
		return nil
	}
	sum := decimal.Zero
	for _, t := range totals {
		sum = sum.Add(decimal.NewFromInt(t.Total))
	}
	avg := sum.Div(decimal.NewFromInt(int64(len(totals))))

	out := make([]Balance, 0, len(totals))
	for _, t := range totals {
		out = append(out, Balance{Name: t.Name, Net: decimal.NewFromInt(t.Total).Sub(avg)})
	}
	return out
}

// Settle matches payers against receivers with a two-pointer greedy pass.
// Both work lists keep aggregation order; no sorting by size, so the output
// is deterministic given the input order. Each transfer fully discharges at
// least one side, bounding the plan at payers+receivers-1 transfers.
func Settle(totals []ParticipantTotal) Plan {
	if len(totals) == 0 {
		return Plan{NoData: true}
	}

	type entry struct {
		name   string
		amount decimal.Decimal
	}
	var payers, receivers []entry
	for _, b := range Balances(totals) {
		switch {
		case b.Net.LessThan(tolerance.Neg()):
			payers = append(payers, entry{name: b.Name, amount: b.Net.Neg()})
		case b.Net.GreaterThan(tolerance):
			receivers = append(receivers, entry{name: b.Name, amount: b.Net})
		}
	}

	var transfers []Transfer
	i, j := 0, 0
	for i < len(payers) && j < len(receivers) {
		amount := decimal.Min(payers[i].amount, receivers[j].amount)
		transfers = append(transfers, Transfer{
			From:   payers[i].name,
			To:     receivers[j].name,
			Amount: amount,
		})

		payers[i].amount = payers[i].amount.Sub(amount)
		receivers[j].amount = receivers[j].amount.Sub(amount)

		if payers[i].amount.LessThan(tolerance) {
			i++
		}
		if receivers[j].amount.LessThan(tolerance) {
			j++
		}
	}

	if len(transfers) == 0 {
		return Plan{Settled: true}
	}
	return Plan{Transfers: transfers}
}
