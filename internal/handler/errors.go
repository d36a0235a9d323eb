package handler

import (
	"errors"

	"go-agency-ledger/internal/repository"
	"go-agency-ledger/internal/service"
	"go-agency-ledger/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// statusFor maps service and repository errors to HTTP status codes.
func statusFor(err error) int {
	var validation *service.ValidationError
	switch {
	case errors.As(err, &validation),
		errors.Is(err, service.ErrInvalidStatus):
		return fiber.StatusBadRequest

	case errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrMissingToken),
		errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrInvalidPhoneLogin),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrSessionTimeout),
		errors.Is(err, service.ErrSessionReplaced):
		return fiber.StatusUnauthorized

	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, service.ErrCustomerNotFound),
		errors.Is(err, service.ErrBillNotFound),
		errors.Is(err, service.ErrStockNotFound),
		errors.Is(err, service.ErrProductNotFound),
		errors.Is(err, service.ErrRoleNotFound),
		errors.Is(err, service.ErrUserNotFound):
		return fiber.StatusNotFound

	case errors.Is(err, repository.ErrInsufficientStock),
		errors.Is(err, repository.ErrDuplicateKey),
		errors.Is(err, service.ErrPendingBills),
		errors.Is(err, service.ErrCustomerNameExists),
		errors.Is(err, service.ErrCustomerPhoneExists),
		errors.Is(err, service.ErrStockExists),
		errors.Is(err, service.ErrProductExists),
		errors.Is(err, service.ErrProductStocked),
		errors.Is(err, service.ErrEmailExists):
		return fiber.StatusConflict
	}
	return fiber.StatusInternalServerError
}

// respondError writes {"error": ...}. Server errors are logged and their
// detail is not sent to the client.
func respondError(c *fiber.Ctx, log *zap.Logger, err error) error {
	status := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		if log != nil {
			log.Error("request failed",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err),
			)
		}
		msg := "Internal server error"
		if errors.Is(err, service.ErrLedgerRolledBack) {
			msg = "Bill could not be recorded; no changes were saved"
		}
		return c.Status(status).JSON(fiber.Map{"error": msg})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func invalidJSON(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid JSON"})
}
