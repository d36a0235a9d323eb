package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/repository"
)

// Period names accepted by the stock log filter.
const (
	PeriodToday = "today"
	PeriodWeek  = "week"
	PeriodMonth = "month"
	PeriodAll   = "all"
)

type StockLogService interface {
	ListLogs(ctx context.Context, filter LogQuery) ([]model.StockLogEntry, error)
}

// LogQuery is the caller-facing filter; Period takes precedence over Since.
type LogQuery struct {
	ProductID *uuid.UUID
	Action    model.StockAction
	Period    string
	Since     *time.Time
	Limit     int
}

type stockLogService struct {
	logs repository.StockLogRepository
	now  func() time.Time
}

func NewStockLogService(logs repository.StockLogRepository) StockLogService {
	return &stockLogService{logs: logs, now: time.Now}
}

// PeriodStart resolves a named period to its start time; "all" and "" have none.
func PeriodStart(period string, now time.Time) (*time.Time, error) {
	var start time.Time
	switch period {
	case "", PeriodAll:
		return nil, nil
	case PeriodToday:
		y, m, d := now.Date()
		start = time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		start = now.AddDate(0, 0, -7)
	case PeriodMonth:
		start = now.AddDate(0, -1, 0)
	default:
		return nil, newValidationError("period", "period must be one of today, week, month, all")
	}
	return &start, nil
}

func (s *stockLogService) ListLogs(ctx context.Context, q LogQuery) ([]model.StockLogEntry, error) {
	if q.Action != "" && q.Action != model.StockAdded && q.Action != model.StockSold {
		return nil, newValidationError("action", "action must be added or sold")
	}

	since := q.Since
	if q.Period != "" {
		start, err := PeriodStart(q.Period, s.now())
		if err != nil {
			return nil, err
		}
		since = start
	}

	return s.logs.FindAll(ctx, repository.LogFilter{
		ProductID: q.ProductID,
		Action:    q.Action,
		Since:     since,
		Limit:     q.Limit,
	})
}
