package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkotelnikov/storefront/internal/models"
)

var (
	ErrValidation = errors.New("validation")
	ErrNotFound   = errors.New("not found")
)

type Service struct {
	Repo *GormRepo
}

func (s *Service) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	p, err := s.Repo.GetProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return p, err
}

func (s *Service) CreateProduct(ctx context.Context, p *models.Product, initialStock, reorderLevel int64) error {
	if p.SKU == "" {
		return fmt.Errorf("%w: sku required", ErrValidation)
	}
	if p.Name == "" {
		return fmt.Errorf("%w: name required", ErrValidation)
	}
	if p.PriceCents < 0 {
		return fmt.Errorf("%w: price must be >= 0", ErrValidation)
	}
	if initialStock < 0 || reorderLevel < 0 {
		return fmt.Errorf("%w: stock levels must be >= 0", ErrValidation)
	}
	p.IsActive = true

	return s.Repo.CreateProduct(ctx, p, initialStock, reorderLevel)
}

func (s *Service) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	err := s.Repo.DeactivateProduct(ctx, id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("product %s: %w", id, ErrNotFound)
	}
	return err
}
