package repo

import (
	"context"

	"gorm.io/gorm"

	"github.com/rakibdev/topup-shop/internal/models"
)

func (r *GormRepo) GetCategory(ctx context.Context, id uint) (*models.Category, error) {
	var cat models.Category
	if err := r.DB.WithContext(ctx).First(&cat, id).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormRepo) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	var cat models.Category
	if err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&cat).Error; err != nil {
		return nil, err
	}
	return &cat, nil
}

func (r *GormRepo) CategorySlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&models.Category{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	q := r.DB.WithContext(ctx).Model(&models.Category{}).Order("id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var items []models.Category
	if err := q.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (r *GormRepo) CreateCategory(ctx context.Context, cat *models.Category) error {
	return r.DB.WithContext(ctx).Create(cat).Error
}

func (r *GormRepo) SaveCategory(ctx context.Context, cat *models.Category) error {
	return r.DB.WithContext(ctx).Save(cat).Error
}

func (r *GormRepo) CountProductsInCategory(ctx context.Context, categoryID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Product{}).
		Where("category_id = ?", categoryID).Count(&count).Error
	return count, err
}

func (r *GormRepo) DeleteCategory(ctx context.Context, id uint) error {
	res := r.DB.WithContext(ctx).Delete(&models.Category{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *GormRepo) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC, id ASC")
	}).First(&prod, id).Error; err != nil {
		return nil, err
	}
	return &prod, nil
}

func (r *GormRepo) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	var prod models.Product
	if err := r.DB.WithContext(ctx).Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC, id ASC")
	}).Where("slug = ?", slug).First(&prod).Error; err != nil {
		return nil, err
	}
	return &prod, nil
}

func (r *GormRepo) ProductSlugTaken(ctx context.Context, slug string, excludeID uint) (bool, error) {
	var count int64
	q := r.DB.WithContext(ctx).Model(&models.Product{}).Where("slug = ?", slug)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *GormRepo) ListProducts(ctx context.Context, categoryID uint, activeOnly bool, offset, limit int) (int64, []models.Product, error) {
	q := r.DB.WithContext(ctx).Model(&models.Product{})
	if categoryID != 0 {
		q = q.Where("category_id = ?", categoryID)
	}
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return 0, nil, err
	}

	var items []models.Product
	if err := q.Preload("Variants", func(db *gorm.DB) *gorm.DB {
		return db.Order("sort_order ASC, id ASC")
	}).Order("id ASC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}

	return total, items, nil
}

func (r *GormRepo) CreateProduct(ctx context.Context, prod *models.Product) error {
	return r.DB.WithContext(ctx).Create(prod).Error
}

// SaveProductWithVariants updates the product row and replaces its variants
// wholesale inside one transaction.
func (r *GormRepo) SaveProductWithVariants(ctx context.Context, prod *models.Product, variants []models.ProductVariant) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Variants").Save(prod).Error; err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", prod.ID).Delete(&models.ProductVariant{}).Error; err != nil {
			return err
		}
		for i := range variants {
			variants[i].ID = 0
			variants[i].ProductID = prod.ID
		}
		if len(variants) > 0 {
			if err := tx.Create(&variants).Error; err != nil {
				return err
			}
		}
		prod.Variants = variants
		return nil
	})
}

func (r *GormRepo) CountOrdersForProduct(ctx context.Context, productID uint) (int64, error) {
	var count int64
	err := r.DB.WithContext(ctx).Model(&models.Order{}).
		Where("product_id = ?", productID).Count(&count).Error
	return count, err
}

func (r *GormRepo) DeleteProduct(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("product_id = ?", id).Delete(&models.ProductVariant{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&models.Product{}, id)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *GormRepo) GetVariant(ctx context.Context, productID, variantID uint) (*models.ProductVariant, error) {
	var v models.ProductVariant
	if err := r.DB.WithContext(ctx).
		Where("id = ? AND product_id = ?", variantID, productID).
		First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}
