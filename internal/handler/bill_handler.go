package handler

import (
	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/repository"
	"go-agency-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type BillHandler struct {
	service service.BillService
	log     *zap.Logger
}

func NewBillHandler(s service.BillService, log *zap.Logger) *BillHandler {
	return &BillHandler{service: s, log: log}
}

// CreateBill records a bill and takes its quantities out of stock
// POST /api/v1/bills
func (h *BillHandler) CreateBill(c *fiber.Ctx) error {
	var req service.SubmitBillRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	bill, err := h.service.SubmitBill(c.UserContext(), &req, actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.Status(201).JSON(fiber.Map{"message": "Bill created", "data": bill})
}

// GetBills lists bills, optionally filtered by ?status= and ?customer_id=
// GET /api/v1/bills
func (h *BillHandler) GetBills(c *fiber.Ctx) error {
	var filter repository.BillFilter
	if status := model.BillStatus(c.Query("status")); status != "" {
		if !status.Valid() {
			return respondError(c, h.log, service.ErrInvalidStatus)
		}
		filter.Status = status
	}
	if raw := c.Query("customer_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return invalidID(c, "customer")
		}
		filter.CustomerID = &id
	}

	bills, err := h.service.ListBills(c.UserContext(), filter)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(bills)
}

// GetBill returns one bill with its line items
// GET /api/v1/bills/:id
func (h *BillHandler) GetBill(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return invalidID(c, "bill")
	}

	bill, err := h.service.GetBill(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(bill)
}

// UpdateStatus toggles a bill between pending and paid
// PATCH /api/v1/bills/:id/status
func (h *BillHandler) UpdateStatus(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return invalidID(c, "bill")
	}

	var req struct {
		Status model.BillStatus `json:"status"`
	}
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	bill, err := h.service.SetStatus(c.UserContext(), id, req.Status, actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Bill status updated", "data": bill})
}
