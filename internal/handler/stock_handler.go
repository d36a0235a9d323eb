package handler

import (
	"strconv"

	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type StockHandler struct {
	stock service.StockService
	logs  service.StockLogService
	log   *zap.Logger
}

func NewStockHandler(stock service.StockService, logs service.StockLogService, log *zap.Logger) *StockHandler {
	return &StockHandler{stock: stock, logs: logs, log: log}
}

// CreateStockItem stocks a catalog product
// POST /api/v1/stock
func (h *StockHandler) CreateStockItem(c *fiber.Ctx) error {
	var req service.CreateStockRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	item, err := h.stock.CreateStockItem(c.UserContext(), &req, actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Stock added", "data": item})
}

// GET /api/v1/stock
func (h *StockHandler) GetStock(c *fiber.Ctx) error {
	items, err := h.stock.ListStock(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(items)
}

// GET /api/v1/stock/low
func (h *StockHandler) GetLowStock(c *fiber.Ctx) error {
	items, err := h.stock.LowStock(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(items)
}

// GET /api/v1/stock/:id
func (h *StockHandler) GetStockItem(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return invalidID(c, "stock")
	}
	item, err := h.stock.GetStock(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(item)
}

// UpdateStockItem edits name, price and arrival date; balances only move through restock and bills
// PUT /api/v1/stock/:id
func (h *StockHandler) UpdateStockItem(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return invalidID(c, "stock")
	}

	var req service.UpdateStockRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	item, err := h.stock.UpdateStockItem(c.UserContext(), id, &req, actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Stock updated", "data": item})
}

// POST /api/v1/stock/:id/restock
func (h *StockHandler) Restock(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return invalidID(c, "stock")
	}

	var req service.RestockRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	item, err := h.stock.Restock(c.UserContext(), id, &req, actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Stock restocked", "data": item})
}

// GetLogs lists stock movements.
// Query params: product_id, action (added|sold), period (today|week|month|all), limit
// GET /api/v1/stock-logs
func (h *StockHandler) GetLogs(c *fiber.Ctx) error {
	q := service.LogQuery{
		Action: model.StockAction(c.Query("action")),
		Period: c.Query("period"),
	}
	if raw := c.Query("product_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return invalidID(c, "product")
		}
		q.ProductID = &id
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			return c.Status(400).JSON(fiber.Map{"error": "limit must be a non-negative number"})
		}
		q.Limit = limit
	}

	entries, err := h.logs.ListLogs(c.UserContext(), q)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(entries)
}
