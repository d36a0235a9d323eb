package handler

import (
	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type CustomerHandler struct {
	service service.CustomerService
	log     *zap.Logger
}

func NewCustomerHandler(s service.CustomerService, log *zap.Logger) *CustomerHandler {
	return &CustomerHandler{service: s, log: log}
}

// CreateCustomer registers a customer with portal credentials
// POST /api/v1/customers
func (h *CustomerHandler) CreateCustomer(c *fiber.Ctx) error {
	var req service.CreateCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	customer, err := h.service.CreateCustomer(c.UserContext(), &req, actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.Status(201).JSON(fiber.Map{"message": "Customer created", "data": customer.ToResponse()})
}

// GetCustomers lists customers
// GET /api/v1/customers
func (h *CustomerHandler) GetCustomers(c *fiber.Ctx) error {
	customers, err := h.service.ListCustomers(c.UserContext())
	if err != nil {
		return respondError(c, h.log, err)
	}

	out := make([]model.CustomerResponse, len(customers))
	for i := range customers {
		out[i] = customers[i].ToResponse()
	}
	return c.JSON(out)
}

// GetCustomer returns one customer
// GET /api/v1/customers/:id
func (h *CustomerHandler) GetCustomer(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return invalidID(c, "customer")
	}

	customer, err := h.service.GetCustomer(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(customer.ToResponse())
}

// UpdateCustomer edits customer details
// PUT /api/v1/customers/:id
func (h *CustomerHandler) UpdateCustomer(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return invalidID(c, "customer")
	}

	var req service.UpdateCustomerRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidJSON(c)
	}

	customer, err := h.service.UpdateCustomer(c.UserContext(), id, &req, actorFrom(c))
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Customer updated", "data": customer.ToResponse()})
}

// DeleteCustomer removes a customer without pending bills
// DELETE /api/v1/customers/:id
func (h *CustomerHandler) DeleteCustomer(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return invalidID(c, "customer")
	}

	if err := h.service.DeleteCustomer(c.UserContext(), id, actorFrom(c)); err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"message": "Customer deleted"})
}

// SearchBills returns bills grouped by customers whose name starts with ?name=
// GET /api/v1/customers/search
func (h *CustomerHandler) SearchBills(c *fiber.Ctx) error {
	name := c.Query("name")
	if name == "" {
		return c.Status(400).JSON(fiber.Map{"error": "name is required"})
	}

	results, err := h.service.SearchBillsByCustomerName(c.UserContext(), name)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(results)
}
