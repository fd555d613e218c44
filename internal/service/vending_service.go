package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vending-service/internal/change"
	"vending-service/internal/models"
	"vending-service/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MachineStore is the persistent side of the machine: the item catalog and
// the coin inventory.
type MachineStore interface {
	GetItemByID(ctx context.Context, id int64) (*models.Item, error)
	ListItems(ctx context.Context, skip, take int) ([]models.Item, error)
	ListCoins(ctx context.Context) ([]models.Coin, error)
	// CompletePurchase atomically credits the inserted coins, takes one unit
	// of stock and debits the change coins tier by tier.
	CompletePurchase(ctx context.Context, itemID int64, inserted map[models.Denomination]int, changeDue int64) (change.Result, error)
}

// CoinBuffer holds the coins the current customer has inserted but not yet
// spent or taken back.
type CoinBuffer interface {
	InsertCoin(ctx context.Context, d models.Denomination) error
	// DrainCoins returns the buffered coins and clears the buffer in one
	// atomic step. Exactly one drain happens per purchase or cancel attempt.
	DrainCoins(ctx context.Context) (map[models.Denomination]int, error)
}

// EventPublisher publishes vending domain events.
type EventPublisher interface {
	PublishOrderFulfilled(ctx context.Context, event *models.OrderFulfilledEvent) error
	PublishOrderRejected(ctx context.Context, event *models.OrderRejectedEvent) error
	PublishOrderCancelled(ctx context.Context, event *models.OrderCancelledEvent) error
}

// Rejection reasons used for metrics and events
const (
	ReasonItemNotFound       = "item_not_found"
	ReasonNoCoins            = "no_coins"
	ReasonSoldOut            = "sold_out"
	ReasonInsufficientAmount = "insufficient_amount"
)

// VendingService handles the purchase, insert and cancel flows
type VendingService struct {
	store          MachineStore
	buffer         CoinBuffer
	eventPublisher EventPublisher
	logger         *zap.Logger
}

// NewVendingService creates a new vending service
func NewVendingService(store MachineStore, buffer CoinBuffer, eventPublisher EventPublisher) *VendingService {
	return &VendingService{
		store:          store,
		buffer:         buffer,
		eventPublisher: eventPublisher,
		logger:         util.GetLogger(),
	}
}

// InsertCoin accepts one coin into the customer's buffer. It never fails for
// business reasons; only a broken buffer surfaces as an error.
func (s *VendingService) InsertCoin(ctx context.Context, d models.Denomination) error {
	ctx, span := util.StartSpan(ctx, "VendingService.InsertCoin")
	defer span.End()

	if err := s.buffer.InsertCoin(ctx, d); err != nil {
		return fmt.Errorf("failed to insert coin: %w", err)
	}

	util.CoinsInsertedTotal.WithLabelValues(d.String()).Inc()
	s.logger.Debug("Coin inserted", zap.String("denomination", d.String()))
	return nil
}

// FulfillOrder attempts to sell one unit of the requested item against the
// buffered coins. The buffer is drained exactly once, up front; rejected
// purchases hand the drained coins straight back without touching the
// machine's inventory.
func (s *VendingService) FulfillOrder(ctx context.Context, itemID int64) (*models.OrderResult, error) {
	ctx, span := util.StartSpan(ctx, "VendingService.FulfillOrder")
	defer span.End()

	start := time.Now()
	defer func() {
		util.FulfillmentLatency.Observe(time.Since(start).Seconds())
	}()

	inserted, err := s.buffer.DrainCoins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to drain coin buffer: %w", err)
	}

	item, err := s.store.GetItemByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, models.ErrItemNotFound) {
			return s.reject(ctx, itemID, ReasonItemNotFound, models.NoteItemNotFound, inserted), nil
		}
		return nil, fmt.Errorf("failed to look up item %d: %w", itemID, err)
	}

	total := models.CoinTotal(inserted)
	if total == 0 {
		return s.reject(ctx, itemID, ReasonNoCoins, models.NoteNoCoinsInserted, nil), nil
	}

	if item.Quantity == 0 {
		return s.reject(ctx, itemID, ReasonSoldOut, models.NoteItemSoldOut, inserted), nil
	}

	price := item.PriceMinorUnits()
	if total < price {
		return s.reject(ctx, itemID, ReasonInsufficientAmount, models.NoteInsufficientAmount, inserted), nil
	}

	plan, err := s.store.CompletePurchase(ctx, itemID, inserted, total-price)
	if err != nil {
		if errors.Is(err, models.ErrItemSoldOut) {
			// Lost the stock race after the pre-check; nothing was committed,
			// so the drained coins go back to the customer.
			return s.reject(ctx, itemID, ReasonSoldOut, models.NoteItemSoldOut, inserted), nil
		}
		return nil, fmt.Errorf("failed to complete purchase of item %d: %w", itemID, err)
	}

	util.OrdersFulfilledTotal.Inc()
	for d, n := range plan.Coins {
		util.ChangeCoinsDispensedTotal.WithLabelValues(d.String()).Add(float64(n))
	}
	if plan.Partial {
		util.PartialChangeTotal.Inc()
		s.logger.Warn("Change only partially dispensed",
			zap.Int64("item_id", itemID),
			zap.Int64("change_due", total-price),
			zap.Int64("change_dispensed", plan.Total()))
	}

	returned := models.CoinNames(plan.Coins)
	event := &models.OrderFulfilledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderFulfilled,
			Timestamp: time.Now(),
		},
		ItemID:        item.ID,
		ItemName:      item.Name,
		Price:         price,
		InsertedTotal: total,
		ChangeTotal:   plan.Total(),
		ReturnedCoins: returned,
		PartialChange: plan.Partial,
		StockLeft:     item.Quantity - 1,
	}
	if err := s.eventPublisher.PublishOrderFulfilled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderFulfilled event", zap.Error(err))
	}

	s.logger.Info("Order fulfilled",
		zap.Int64("item_id", item.ID),
		zap.String("item", item.Name),
		zap.Int64("inserted", total),
		zap.Int64("change", plan.Total()))

	return &models.OrderResult{
		Succeeded:     true,
		Note:          models.NoteThankYou,
		ReturnedCoins: returned,
		PartialChange: plan.Partial,
	}, nil
}

// CancelOrder drains the buffer and hands every coin back. The machine's
// inventory and catalog are untouched.
func (s *VendingService) CancelOrder(ctx context.Context) (*models.CancelResult, error) {
	ctx, span := util.StartSpan(ctx, "VendingService.CancelOrder")
	defer span.End()

	coins, err := s.buffer.DrainCoins(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to drain coin buffer: %w", err)
	}

	util.OrdersCancelledTotal.Inc()

	refunded := models.CoinNames(coins)
	event := &models.OrderCancelledEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderCancelled,
			Timestamp: time.Now(),
		},
		RefundedCoins: refunded,
		RefundTotal:   models.CoinTotal(coins),
	}
	if err := s.eventPublisher.PublishOrderCancelled(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderCancelled event", zap.Error(err))
	}

	s.logger.Info("Order cancelled", zap.Int64("refund", models.CoinTotal(coins)))
	return &models.CancelResult{Coins: refunded}, nil
}

// ListItems returns a page of the catalog
func (s *VendingService) ListItems(ctx context.Context, skip, take int) ([]models.Item, error) {
	return s.store.ListItems(ctx, skip, take)
}

// ListCoins returns the machine's coin stock
func (s *VendingService) ListCoins(ctx context.Context) ([]models.Coin, error) {
	return s.store.ListCoins(ctx)
}

// reject records a business rejection and builds its result. The refund is
// the drained buffer content, returned to the customer unchanged.
func (s *VendingService) reject(ctx context.Context, itemID int64, reason, note string, refund map[models.Denomination]int) *models.OrderResult {
	util.OrdersRejectedTotal.WithLabelValues(reason).Inc()

	event := &models.OrderRejectedEvent{
		BaseEvent: models.BaseEvent{
			EventID:   uuid.New().String(),
			EventType: models.EventTypeOrderRejected,
			Timestamp: time.Now(),
		},
		ItemID:      itemID,
		Reason:      reason,
		RefundTotal: models.CoinTotal(refund),
	}
	if err := s.eventPublisher.PublishOrderRejected(ctx, event); err != nil {
		s.logger.Error("Failed to publish OrderRejected event", zap.Error(err))
	}

	s.logger.Info("Order rejected",
		zap.Int64("item_id", itemID),
		zap.String("reason", reason))

	return &models.OrderResult{
		Succeeded:     false,
		Note:          note,
		ReturnedCoins: models.CoinNames(refund),
	}
}
