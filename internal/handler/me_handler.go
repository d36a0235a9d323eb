package handler

import (
	"go-agency-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// MeHandler serves the customer portal; the customer is always the token subject.
type MeHandler struct {
	customers service.CustomerService
	bills     service.BillService
	log       *zap.Logger
}

func NewMeHandler(customers service.CustomerService, bills service.BillService, log *zap.Logger) *MeHandler {
	return &MeHandler{customers: customers, bills: bills, log: log}
}

func (h *MeHandler) customerID(c *fiber.Ctx) (uuid.UUID, error) {
	return uuid.Parse(getUserID(c))
}

// GET /api/v1/me
func (h *MeHandler) Profile(c *fiber.Ctx) error {
	id, err := h.customerID(c)
	if err != nil {
		return invalidID(c, "customer")
	}
	customer, err := h.customers.GetCustomer(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(customer.ToResponse())
}

// GET /api/v1/me/bills
func (h *MeHandler) Bills(c *fiber.Ctx) error {
	id, err := h.customerID(c)
	if err != nil {
		return invalidID(c, "customer")
	}
	bills, err := h.bills.ListCustomerBills(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(bills)
}

// GET /api/v1/me/summary
func (h *MeHandler) Summary(c *fiber.Ctx) error {
	id, err := h.customerID(c)
	if err != nil {
		return invalidID(c, "customer")
	}
	summary, err := h.customers.Summary(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(summary)
}
