package cart

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/mkotelnikov/storefront/internal/models"
)

type GormRepo struct {
	DB *gorm.DB
}

func ownerScope(q *gorm.DB, owner Owner) *gorm.DB {
	if owner.IsUser() {
		return q.Where("user_id = ?", owner.UserID)
	}
	return q.Where("session_id = ?", owner.SessionID)
}

func (r *GormRepo) Get(ctx context.Context, owner Owner) ([]models.CartItem, error) {
	var items []models.CartItem
	q := ownerScope(r.DB.WithContext(ctx), owner)
	if err := q.Order("created_at").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) GetLine(ctx context.Context, owner Owner, productID uuid.UUID) (*models.CartItem, error) {
	var item models.CartItem
	q := ownerScope(r.DB.WithContext(ctx), owner).Where("product_id = ?", productID)
	if err := q.First(&item).Error; err != nil {
		return nil, err
	}
	return &item, nil
}

// AddQuantity merges onto an existing line with an atomic increment, or
// creates the line when none exists. Concurrent adds on the same
// owner+product land as increments, never blind overwrites.
func (r *GormRepo) AddQuantity(ctx context.Context, owner Owner, productID uuid.UUID, delta uint) (*models.CartItem, error) {
	var item models.CartItem
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := ownerScope(tx.Model(&models.CartItem{}), owner).
			Where("product_id = ?", productID).
			Update("quantity", gorm.Expr("quantity + ?", delta))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			return ownerScope(tx, owner).Where("product_id = ?", productID).First(&item).Error
		}

		item = models.CartItem{
			ProductID: productID,
			Quantity:  delta,
		}
		if owner.IsUser() {
			id := owner.UserID
			item.UserID = &id
		} else {
			sid := owner.SessionID
			item.SessionID = &sid
		}
		return tx.Create(&item).Error
	})
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *GormRepo) SetQuantity(ctx context.Context, owner Owner, productID uuid.UUID, qty uint) (*models.CartItem, error) {
	res := ownerScope(r.DB.WithContext(ctx).Model(&models.CartItem{}), owner).
		Where("product_id = ?", productID).
		Update("quantity", qty)
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.GetLine(ctx, owner, productID)
}

func (r *GormRepo) Remove(ctx context.Context, owner Owner, productID uuid.UUID) error {
	res := ownerScope(r.DB.WithContext(ctx), owner).
		Where("product_id = ?", productID).
		Delete(&models.CartItem{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) Clear(ctx context.Context, owner Owner) error {
	return ownerScope(r.DB.WithContext(ctx), owner).Delete(&models.CartItem{}).Error
}
