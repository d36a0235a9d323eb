package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/ws"
)

// LowStockSource lists stock items below a kg threshold.
type LowStockSource interface {
	LowStockBelow(ctx context.Context, thresholdKgs decimal.Decimal) ([]model.StockItem, error)
}

// Publisher pushes events to connected clients.
type Publisher interface {
	Publish(eventType string, payload map[string]interface{})
}

// Scheduler manages scheduled tasks.
type Scheduler struct {
	cron      *cron.Cron
	stock     LowStockSource
	events    Publisher
	spec      string
	threshold decimal.Decimal
	logger    *zap.Logger
}

// NewScheduler creates a new scheduler instance.
func NewScheduler(spec string, threshold decimal.Decimal, stock LowStockSource, events Publisher, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Scheduler{
		cron:      cron.New(),
		stock:     stock,
		events:    events,
		spec:      spec,
		threshold: threshold,
		logger:    logger,
	}
}

// Start registers the low-stock check and starts the scheduler.
func (s *Scheduler) Start() error {
	s.logger.Info("starting scheduler", zap.String("low_stock_cron", s.spec))

	if _, err := s.cron.AddFunc(s.spec, s.checkLowStock); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	s.logger.Info("stopping scheduler")
	<-s.cron.Stop().Done()
}

func (s *Scheduler) checkLowStock() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.RunLowStockCheck(ctx); err != nil {
		s.logger.Error("low stock check failed", zap.Error(err))
	}
}

// RunLowStockCheck lists items under the threshold and broadcasts one alert
// when there are any. It returns the items found.
func (s *Scheduler) RunLowStockCheck(ctx context.Context) ([]model.StockItem, error) {
	items, err := s.stock.LowStockBelow(ctx, s.threshold)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		s.logger.Debug("no low stock items")
		return items, nil
	}

	products := make([]map[string]interface{}, len(items))
	for i, item := range items {
		products[i] = map[string]interface{}{
			"id":                      item.ID,
			"name":                    item.Name,
			"available_quantity_kgs":  item.AvailableQuantityKgs,
			"available_quantity_bags": item.AvailableQuantityBags,
		}
		s.logger.Warn("low stock",
			zap.String("product", item.Name),
			zap.String("available_kgs", item.AvailableQuantityKgs.String()))
	}

	if s.events != nil {
		s.events.Publish(ws.EventLowStockAlert, map[string]interface{}{
			"threshold_kgs": s.threshold,
			"products":      products,
		})
	}
	return items, nil
}
