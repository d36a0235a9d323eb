package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/repository"
)

type ProductService interface {
	CreateProduct(ctx context.Context, req *CreateProductRequest, actor Actor) (*model.Product, error)
	ListProducts(ctx context.Context) ([]model.Product, error)
	DeleteProduct(ctx context.Context, id uuid.UUID) error
}

type CreateProductRequest struct {
	Name string `json:"name" validate:"required,max=255"`
}

type productService struct {
	products repository.ProductRepository
	stock    repository.StockRepository
}

func NewProductService(products repository.ProductRepository, stock repository.StockRepository) ProductService {
	return &productService{products: products, stock: stock}
}

func (s *productService) CreateProduct(ctx context.Context, req *CreateProductRequest, actor Actor) (*model.Product, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := validate(req); err != nil {
		return nil, err
	}

	existing, err := s.products.FindByName(ctx, req.Name)
	if err == nil && existing != nil {
		return nil, ErrProductExists
	}
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	product := &model.Product{Name: req.Name}
	product.CreatedBy = actor.ID
	product.UpdatedBy = actor.ID
	if err := s.products.Create(ctx, product); err != nil {
		if errors.Is(err, repository.ErrDuplicateKey) {
			return nil, ErrProductExists
		}
		return nil, err
	}
	return product, nil
}

func (s *productService) ListProducts(ctx context.Context) ([]model.Product, error) {
	return s.products.FindAll(ctx)
}

// DeleteProduct refuses while a stock item still carries the name.
func (s *productService) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	product, err := s.products.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrProductNotFound
	}
	if err != nil {
		return err
	}

	if _, err := s.stock.FindByName(ctx, product.Name); err == nil {
		return ErrProductStocked
	} else if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	if err := s.products.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProductNotFound
		}
		return err
	}
	return nil
}
