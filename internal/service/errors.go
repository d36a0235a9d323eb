package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"go-agency-ledger/internal/repository"
	"go-agency-ledger/pkg/validator"
)

var (
	ErrCustomerNotFound    = errors.New("customer not found")
	ErrCustomerNameExists  = errors.New("customer name already exists")
	ErrCustomerPhoneExists = errors.New("customer phone already exists")
	ErrPendingBills        = errors.New("customer has pending bills")
	ErrBillNotFound        = errors.New("bill not found")
	ErrInvalidStatus       = errors.New("invalid bill status")
	ErrStockNotFound       = errors.New("stock item not found")
	ErrStockExists         = errors.New("product is already stocked")
	ErrProductNotFound     = errors.New("product not found")
	ErrProductExists       = errors.New("product already exists")
	ErrProductStocked      = errors.New("product is in stock and cannot be deleted")
	ErrRoleNotFound        = errors.New("role not found")

	// ErrLedgerRolledBack matches every LedgerError.
	ErrLedgerRolledBack = errors.New("ledger update rolled back")
)

// ValidationError is a rejected request field.
type ValidationError struct {
	Field string
	Tag   string
	Msg   string
}

func (e *ValidationError) Error() string {
	if e.Msg != "" {
		return e.Msg
	}
	return fmt.Sprintf("Validation failed: Field '%s' failed on tag '%s'", e.Field, e.Tag)
}

func newValidationError(field, msg string) *ValidationError {
	return &ValidationError{Field: field, Tag: "invalid", Msg: msg}
}

// validate runs struct tags and reports the first failure.
func validate(req interface{}) error {
	if errs := validator.ValidateStruct(req); len(errs) > 0 {
		return &ValidationError{Field: errs[0].FailedField, Tag: errs[0].Tag}
	}
	return nil
}

// InsufficientStockError names the product and what was left when the request was checked.
// Bags means the bag count, not the weight, ran short.
type InsufficientStockError struct {
	Product   string
	Available decimal.Decimal
	Bags      bool
}

func (e *InsufficientStockError) Error() string {
	if e.Bags {
		return fmt.Sprintf("insufficient stock for %s. Available: %s bags", e.Product, e.Available.String())
	}
	return fmt.Sprintf("insufficient stock for %s. Available: %s", e.Product, e.Available.String())
}

func (e *InsufficientStockError) Is(target error) bool {
	return target == repository.ErrInsufficientStock
}

// LedgerError is a write failure inside the bill transaction. Nothing from the
// transaction was committed.
type LedgerError struct {
	Step string
	Err  error
}

func (e *LedgerError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrLedgerRolledBack, e.Step, e.Err)
}

func (e *LedgerError) Unwrap() error { return e.Err }

func (e *LedgerError) Is(target error) bool {
	return target == ErrLedgerRolledBack
}

// Ledger steps.
const (
	StepCreateBill     = "create bill"
	StepDecrementStock = "decrement stock"
	StepAppendLog      = "append stock log"
	StepCountBill      = "increment customer bills"
)
