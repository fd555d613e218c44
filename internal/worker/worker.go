package worker

import (
	"context"
	"fmt"

	"vending-service/internal/broker"
	"vending-service/internal/models"
	"vending-service/internal/store"
	"vending-service/internal/util"

	"go.uber.org/zap"
)

// StockAlertWorker watches fulfillment events and warns the operator when an
// item is running out. Events are deduplicated through the processed_events
// table so consumer-group rebalances never double-report.
type StockAlertWorker struct {
	consumer     *broker.Consumer
	eventHandler *broker.EventHandler
	store        *store.Store
	threshold    int
	logger       *zap.Logger
}

// NewStockAlertWorker creates a new stock alert worker
func NewStockAlertWorker(consumer *broker.Consumer, store *store.Store, threshold int) *StockAlertWorker {
	w := &StockAlertWorker{
		consumer:  consumer,
		store:     store,
		threshold: threshold,
		logger:    util.GetLogger(),
	}

	eventHandler := broker.NewEventHandler()
	eventHandler.OnOrderFulfilled(w.handleOrderFulfilled)
	w.eventHandler = eventHandler

	return w
}

// Start starts the worker
func (w *StockAlertWorker) Start(ctx context.Context) error {
	w.logger.Info("Starting stock alert worker", zap.Int("threshold", w.threshold))
	return w.consumer.StartConsuming(ctx, w.eventHandler.HandleMessage)
}

// Stop stops the worker
func (w *StockAlertWorker) Stop() error {
	w.logger.Info("Stopping stock alert worker")
	return w.consumer.Close()
}

func (w *StockAlertWorker) handleOrderFulfilled(ctx context.Context, event *models.OrderFulfilledEvent) error {
	processed, err := w.store.IsEventProcessed(ctx, event.EventID)
	if err != nil {
		return fmt.Errorf("failed to check event processed: %w", err)
	}
	if processed {
		return nil
	}

	if event.StockLeft == 0 {
		w.logger.Warn("Item sold out",
			zap.Int64("item_id", event.ItemID),
			zap.String("item", event.ItemName))
	} else if event.StockLeft <= w.threshold {
		w.logger.Warn("Item stock low",
			zap.Int64("item_id", event.ItemID),
			zap.String("item", event.ItemName),
			zap.Int("stock_left", event.StockLeft))
	}

	if event.PartialChange {
		w.logger.Warn("Machine ran short of change coins",
			zap.Int64("item_id", event.ItemID),
			zap.Int64("change_dispensed", event.ChangeTotal))
	}

	if err := w.store.MarkEventProcessed(ctx, event.EventID, event.EventType); err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	return nil
}
