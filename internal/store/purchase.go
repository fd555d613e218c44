package store

import (
	"context"
	"fmt"

	"vending-service/internal/change"
	"vending-service/internal/models"
)

// CompletePurchase runs the success path of a purchase in one transaction:
// credit the inserted coins into the machine, take one unit of item stock,
// and debit the change coins tier by tier, highest value first. The coin
// rows are locked for the duration (FOR UPDATE) so concurrent purchases
// cannot double-spend the same physical coins.
func (s *Store) CompletePurchase(
	ctx context.Context,
	itemID int64,
	inserted map[models.Denomination]int,
	changeDue int64,
) (change.Result, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return change.Result{}, err
	}
	defer tx.Rollback()

	var coins []models.Coin
	err = tx.SelectContext(ctx, &coins, "SELECT * FROM coins ORDER BY value DESC FOR UPDATE")
	if err != nil {
		return change.Result{}, fmt.Errorf("failed to lock coins: %w", err)
	}

	available := make(map[models.Denomination]int, len(coins))
	for _, c := range coins {
		available[c.Value] = c.Quantity
	}

	for _, d := range models.Denominations {
		n := inserted[d]
		if n == 0 {
			continue
		}
		if _, ok := available[d]; !ok {
			return change.Result{}, fmt.Errorf("%w: %s", models.ErrCoinNotFound, d)
		}
		if err := adjustCoin(ctx, tx, d, n); err != nil {
			return change.Result{}, fmt.Errorf("failed to credit coins: %w", err)
		}
		available[d] += n
	}

	res, err := tx.ExecContext(ctx,
		"UPDATE items SET quantity = quantity - 1 WHERE id = $1 AND quantity > 0", itemID)
	if err != nil {
		return change.Result{}, fmt.Errorf("failed to decrement stock: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return change.Result{}, err
	}
	if rows == 0 {
		// The engine pre-checks stock; losing the race to another purchase
		// lands here and aborts the whole transaction.
		return change.Result{}, fmt.Errorf("item %d: %w", itemID, models.ErrItemSoldOut)
	}

	plan := change.Result{Coins: map[models.Denomination]int{}}
	if changeDue > 0 {
		plan = change.Plan(changeDue, available)
		for _, d := range models.Denominations {
			n := plan.Coins[d]
			if n == 0 {
				continue
			}
			if err := adjustCoin(ctx, tx, d, -n); err != nil {
				return change.Result{}, fmt.Errorf("failed to debit change: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return change.Result{}, fmt.Errorf("failed to commit purchase: %w", err)
	}
	return plan, nil
}
