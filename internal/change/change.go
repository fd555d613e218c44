// Package change decomposes a change amount into dispensable coins against a
// snapshot of the machine's coin stock. When a preferred denomination runs
// out, the shortfall is converted into extra demand on the lower tiers with
// fixed substitution rules.
package change

import "vending-service/internal/models"

// Result describes the coins chosen for a change amount.
type Result struct {
	// Coins holds the dispensed count per denomination; denominations that
	// contributed nothing are absent.
	Coins map[models.Denomination]int
	// Partial is set when the ten-cent tier could not cover its demand.
	// There is no tier below it, so the remainder stays undispensed; we never
	// fabricate coins.
	Partial bool
}

// Total returns the monetary value of the dispensed coins in minor units.
func (r Result) Total() int64 {
	return models.CoinTotal(r.Coins)
}

// Plan decomposes amount (minor units, expected to be a positive multiple of
// 10) into coins drawn from available. available is read only; the caller
// debits its inventory tier by tier, highest value first, following
// Result.Coins.
//
// Shortfall substitution, applied before the lower tier is processed:
//   - one-euro shortfall L:    fifty demand += 2L
//   - fifty-cent shortfall L:  L even: twenty demand += 2L+1
//     L odd:  twenty demand += 2L, ten demand += L
//   - twenty-cent shortfall L: ten demand += 2L
//
// The even-shortfall fifty rule over-dispenses for L > 2 but is kept as the
// machine has always behaved; callers rely on the exact refund composition.
func Plan(amount int64, available map[models.Denomination]int) Result {
	desired := make(map[models.Denomination]int, len(models.Denominations))
	remaining := amount
	for _, d := range models.Denominations {
		desired[d] = int(remaining / int64(d))
		remaining %= int64(d)
	}

	res := Result{Coins: make(map[models.Denomination]int)}
	for _, d := range models.Denominations {
		want := desired[d]
		if want == 0 {
			continue
		}

		avail := available[d]
		if avail >= want {
			res.Coins[d] = want
			continue
		}

		if avail > 0 {
			res.Coins[d] = avail
		}
		short := want - avail

		switch d {
		case models.OneEuro:
			desired[models.FiftyCent] += 2 * short
		case models.FiftyCent:
			if short%2 == 0 {
				desired[models.TwentyCent] += 2*short + 1
			} else {
				desired[models.TwentyCent] += 2 * short
				desired[models.TenCent] += short
			}
		case models.TwentyCent:
			desired[models.TenCent] += 2 * short
		case models.TenCent:
			res.Partial = true
		}
	}

	return res
}
