package repo

import (
	"context"

	"github.com/rakibdev/topup-shop/internal/models"
)

func (r *GormRepo) CreateVerification(ctx context.Context, v *models.Verification) error {
	return r.DB.WithContext(ctx).Create(v).Error
}

func (r *GormRepo) GetVerification(ctx context.Context, identifier, value string) (*models.Verification, error) {
	var v models.Verification
	if err := r.DB.WithContext(ctx).
		Where("identifier = ? AND value = ?", identifier, value).
		First(&v).Error; err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *GormRepo) DeleteVerification(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&models.Verification{}, id).Error
}

// DeleteVerificationsFor clears all codes issued to one address, used before
// issuing a replacement so only the newest code is valid.
func (r *GormRepo) DeleteVerificationsFor(ctx context.Context, identifier string) error {
	return r.DB.WithContext(ctx).
		Where("identifier = ?", identifier).
		Delete(&models.Verification{}).Error
}
