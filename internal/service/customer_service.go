package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/repository"
	"go-agency-ledger/internal/ws"
)

type CustomerService interface {
	CreateCustomer(ctx context.Context, req *CreateCustomerRequest, actor Actor) (*model.Customer, error)
	UpdateCustomer(ctx context.Context, id uuid.UUID, req *UpdateCustomerRequest, actor Actor) (*model.Customer, error)
	DeleteCustomer(ctx context.Context, id uuid.UUID, actor Actor) error
	GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error)
	ListCustomers(ctx context.Context) ([]model.Customer, error)
	SearchBillsByCustomerName(ctx context.Context, prefix string) ([]CustomerBills, error)
	Summary(ctx context.Context, id uuid.UUID) (*CustomerSummary, error)
}

type CreateCustomerRequest struct {
	Name     string `json:"name" validate:"required,max=255"`
	Phone    string `json:"phone" validate:"required,phone10"`
	Email    string `json:"email" validate:"omitempty,email"`
	Address  string `json:"address" validate:"required"`
	Password string `json:"password" validate:"required,min=6"`
}

type UpdateCustomerRequest struct {
	Name     string  `json:"name" validate:"required,max=255"`
	Phone    string  `json:"phone" validate:"required,phone10"`
	Email    string  `json:"email" validate:"omitempty,email"`
	Address  string  `json:"address" validate:"required"`
	Password *string `json:"password,omitempty" validate:"omitempty,min=6"`
}

// CustomerBills is one search hit with the customer's bills, newest first.
type CustomerBills struct {
	Customer model.CustomerResponse `json:"customer"`
	Bills    []model.Bill           `json:"bills"`
}

type CustomerSummary struct {
	Customer model.CustomerResponse `json:"customer"`
	Totals   repository.BillTotals  `json:"totals"`
}

type customerService struct {
	db        *gorm.DB
	customers repository.CustomerRepository
	bills     repository.BillRepository
	events    EventPublisher
	log       *zap.Logger
}

func NewCustomerService(db *gorm.DB, customers repository.CustomerRepository, bills repository.BillRepository, events EventPublisher, log *zap.Logger) CustomerService {
	if log == nil {
		log = zap.NewNop()
	}
	return &customerService{
		db:        db,
		customers: customers,
		bills:     bills,
		events:    publisherOrNoop(events),
		log:       log,
	}
}

// checkUnique rejects a name or phone held by another customer. except is the
// customer being updated, uuid.Nil on create.
func (s *customerService) checkUnique(ctx context.Context, name, phone string, except uuid.UUID) error {
	if existing, err := s.customers.FindByName(ctx, name); err == nil && existing.ID != except {
		return ErrCustomerNameExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if existing, err := s.customers.FindByPhone(ctx, phone); err == nil && existing.ID != except {
		return ErrCustomerPhoneExists
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	return nil
}

func (s *customerService) CreateCustomer(ctx context.Context, req *CreateCustomerRequest, actor Actor) (*model.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validate(req); err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, req.Name, req.Phone, uuid.Nil); err != nil {
		return nil, err
	}

	customer := &model.Customer{
		Name:    req.Name,
		Phone:   req.Phone,
		Email:   strings.TrimSpace(req.Email),
		Address: req.Address,
		Role:    model.RoleCustomer,
	}
	customer.CreatedBy = actor.ID
	customer.UpdatedBy = actor.ID
	if err := customer.SetPassword(req.Password); err != nil {
		return nil, errors.New("failed to hash password")
	}

	if err := s.customers.Create(ctx, customer); err != nil {
		// Lost a race with a concurrent create.
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrCustomerNameExists
		}
		return nil, err
	}
	return customer, nil
}

func (s *customerService) UpdateCustomer(ctx context.Context, id uuid.UUID, req *UpdateCustomerRequest, actor Actor) (*model.Customer, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Phone = strings.TrimSpace(req.Phone)
	if err := validate(req); err != nil {
		return nil, err
	}

	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkUnique(ctx, req.Name, req.Phone, id); err != nil {
		return nil, err
	}

	customer.Name = req.Name
	customer.Phone = req.Phone
	customer.Email = strings.TrimSpace(req.Email)
	customer.Address = req.Address
	customer.UpdatedBy = actor.ID
	if req.Password != nil && *req.Password != "" {
		if err := customer.SetPassword(*req.Password); err != nil {
			return nil, errors.New("failed to hash password")
		}
	}

	if err := s.customers.Update(ctx, customer); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrCustomerNameExists
		}
		return nil, err
	}
	return customer, nil
}

// DeleteCustomer removes a customer and all of their bills, but only when none
// of the bills is pending. The check and the deletes share one transaction.
func (s *customerService) DeleteCustomer(ctx context.Context, id uuid.UUID, actor Actor) error {
	var removedBills int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		customers := s.customers.WithTx(tx)
		bills := s.bills.WithTx(tx)

		// The lock makes a concurrent bill insert for this customer wait on its foreign key.
		if _, err := customers.FindByIDForUpdate(ctx, id); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return ErrCustomerNotFound
			}
			return err
		}

		existing, err := bills.FindAll(ctx, repository.BillFilter{CustomerID: &id})
		if err != nil {
			return err
		}
		for _, b := range existing {
			if b.Status == model.BillPending {
				return ErrPendingBills
			}
		}

		if removedBills, err = bills.DeleteByCustomer(ctx, id); err != nil {
			return err
		}
		return customers.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.Info("customer deleted",
		zap.String("customer_id", id.String()),
		zap.Int64("bills_removed", removedBills),
		zap.String("by", actor.ID))
	s.events.Publish(ws.EventCustomerDeleted, map[string]interface{}{
		"customer_id":   id,
		"bills_removed": removedBills,
		"user":          actor.payload(),
	})
	return nil
}

func (s *customerService) GetCustomer(ctx context.Context, id uuid.UUID) (*model.Customer, error) {
	customer, err := s.customers.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCustomerNotFound
	}
	return customer, err
}

func (s *customerService) ListCustomers(ctx context.Context) ([]model.Customer, error) {
	return s.customers.FindAll(ctx)
}

func (s *customerService) SearchBillsByCustomerName(ctx context.Context, prefix string) ([]CustomerBills, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, newValidationError("name", "search name is required")
	}

	matches, err := s.customers.SearchByNamePrefix(ctx, prefix)
	if err != nil {
		return nil, err
	}

	results := make([]CustomerBills, 0, len(matches))
	for i := range matches {
		c := &matches[i]
		bills, err := s.bills.FindAll(ctx, repository.BillFilter{CustomerID: &c.ID})
		if err != nil {
			return nil, err
		}
		results = append(results, CustomerBills{Customer: c.ToResponse(), Bills: bills})
	}
	return results, nil
}

func (s *customerService) Summary(ctx context.Context, id uuid.UUID) (*CustomerSummary, error) {
	customer, err := s.GetCustomer(ctx, id)
	if err != nil {
		return nil, err
	}
	totals, err := s.bills.Totals(ctx, &id)
	if err != nil {
		return nil, err
	}
	return &CustomerSummary{Customer: customer.ToResponse(), Totals: *totals}, nil
}
