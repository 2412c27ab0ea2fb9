package catalog

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkotelnikov/storefront/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func (r *GormRepo) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var p models.Product
	if err := r.DB.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// CreateProduct creates the product together with its inventory record:
// a ledger row exists for every product from the moment it is created.
func (r *GormRepo) CreateProduct(ctx context.Context, p *models.Product, initialStock, reorderLevel int64) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(p).Error; err != nil {
			return err
		}
		rec := models.InventoryRecord{
			ProductID:         p.ID,
			QuantityAvailable: initialStock,
			ReorderLevel:      reorderLevel,
		}
		return tx.Create(&rec).Error
	})
}

// DeactivateProduct is a tombstone, not a delete: historical orders keep
// referencing the row.
func (r *GormRepo) DeactivateProduct(ctx context.Context, id uuid.UUID) error {
	res := r.DB.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ?", id).
		Update("is_active", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
