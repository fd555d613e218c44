package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Denomination is the value of a coin in minor units (cents).
type Denomination int

const (
	TenCent    Denomination = 10
	TwentyCent Denomination = 20
	FiftyCent  Denomination = 50
	OneEuro    Denomination = 100
)

// Denominations lists all accepted coins from highest to lowest value,
// the order change is dispensed in.
var Denominations = []Denomination{OneEuro, FiftyCent, TwentyCent, TenCent}

// String returns the wire name of the denomination.
func (d Denomination) String() string {
	switch d {
	case TenCent:
		return "TenCent"
	case TwentyCent:
		return "TwentyCent"
	case FiftyCent:
		return "FiftyCent"
	case OneEuro:
		return "OneEuro"
	}
	return fmt.Sprintf("Denomination(%d)", int(d))
}

// ParseDenomination maps a wire name back to a denomination.
func ParseDenomination(s string) (Denomination, error) {
	switch s {
	case "TenCent":
		return TenCent, nil
	case "TwentyCent":
		return TwentyCent, nil
	case "FiftyCent":
		return FiftyCent, nil
	case "OneEuro":
		return OneEuro, nil
	}
	return 0, fmt.Errorf("unknown coin type: %q", s)
}

// Coin is one row of the machine's coin inventory.
type Coin struct {
	Value     Denomination `db:"value" json:"value"`
	Quantity  int          `db:"quantity" json:"quantity"`
	UpdatedAt time.Time    `db:"updated_at" json:"updated_at"`
}

// Item is a sellable item in the catalog.
type Item struct {
	ID        int64           `db:"id" json:"id"`
	Name      string          `db:"name" json:"name"`
	Price     decimal.Decimal `db:"price" json:"price"`
	Quantity  int             `db:"quantity" json:"quantity"`
	CreatedAt time.Time       `db:"created_at" json:"created_at"`
}

// PriceMinorUnits converts the decimal price to integer minor units,
// round half up. All purchase arithmetic runs on this value.
func (i *Item) PriceMinorUnits() int64 {
	return i.Price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// OrderResult is the outcome of a purchase attempt. Business rejections
// (unknown item, no coins, sold out, insufficient amount) are carried here,
// never as errors.
type OrderResult struct {
	Succeeded     bool           `json:"succeeded"`
	Note          string         `json:"note"`
	ReturnedCoins map[string]int `json:"returned_coins"`
	PartialChange bool           `json:"partial_change,omitempty"`
}

// CancelResult carries the coins refunded by a cancelled order.
type CancelResult struct {
	Coins map[string]int `json:"coins"`
}

// Purchase notes, fixed wire strings.
const (
	NoteThankYou           = "Thank you"
	NoteItemNotFound       = "Item does not exist"
	NoteNoCoinsInserted    = "Please insert some coins first!"
	NoteItemSoldOut        = "Item is sold out"
	NoteInsufficientAmount = "Insufficient amount"
)

var (
	// ErrItemNotFound is returned by the store when an item id is unknown.
	ErrItemNotFound = errors.New("item not found")
	// ErrCoinNotFound is returned by the store when a denomination row is missing.
	ErrCoinNotFound = errors.New("coin not found")
	// ErrCoinInvariant is returned when an adjustment would drive a coin
	// quantity negative. Callers check availability first; hitting this is an
	// internal fault, not a business rejection.
	ErrCoinInvariant = errors.New("coin quantity would go negative")
	// ErrItemSoldOut is returned when a stock decrement finds no stock left.
	ErrItemSoldOut = errors.New("item out of stock")
)

// CoinNames converts a denomination-keyed count map to its wire form.
func CoinNames(coins map[Denomination]int) map[string]int {
	out := make(map[string]int, len(coins))
	for d, n := range coins {
		out[d.String()] = n
	}
	return out
}

// CoinTotal sums the monetary value of a count map in minor units.
func CoinTotal(coins map[Denomination]int) int64 {
	var total int64
	for d, n := range coins {
		total += int64(d) * int64(n)
	}
	return total
}

// ProcessedEvent for consumer idempotency
type ProcessedEvent struct {
	EventID     string    `db:"event_id"`
	EventType   string    `db:"event_type"`
	ProcessedAt time.Time `db:"processed_at"`
}
