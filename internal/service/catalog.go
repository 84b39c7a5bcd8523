package service

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"gorm.io/datatypes"

	"github.com/rakibdev/topup-shop/internal/es"
	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/models"
	"github.com/rakibdev/topup-shop/internal/mykafka"
	"github.com/rakibdev/topup-shop/internal/repo"
	"github.com/rakibdev/topup-shop/internal/service/search"
	"github.com/rakibdev/topup-shop/internal/transport"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

type CatalogService struct {
	Repo     *repo.GormRepo
	Producer *mykafka.Producer
	ES       *elasticsearch.Client
}

func (s *CatalogService) publish(ctx context.Context, key string, event map[string]interface{}) {
	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := s.Producer.PublishEvent(pubCtx, "product_events", key, event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "topic", "product_events", "error", err)
	}
}

func (s *CatalogService) reindex(ctx context.Context, prod *models.Product) {
	if s.ES == nil {
		return
	}
	if err := search.IndexProduct(ctx, s.ES, es.ProductIndex, prod); err != nil {
		logging.FromContext(ctx).Error("es_index_failed", "product_id", prod.ID, "error", err)
	}
}

func (s *CatalogService) ListCategories(ctx context.Context, activeOnly bool) ([]models.Category, error) {
	return s.Repo.ListCategories(ctx, activeOnly)
}

func (s *CatalogService) GetCategoryBySlug(ctx context.Context, slug string) (*models.Category, error) {
	cat, err := s.Repo.GetCategoryBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}
	return cat, nil
}

func (s *CatalogService) CreateCategory(ctx context.Context, req transport.CategoryRequest) (*models.Category, error) {
	if req.Name == "" {
		return nil, fmt.Errorf("%w: name required", ErrValidation)
	}
	if !slugPattern.MatchString(req.Slug) {
		return nil, fmt.Errorf("%w: invalid slug", ErrValidation)
	}

	// Pre-check gives the friendly conflict message; the unique index on
	// slug closes the check-then-insert race.
	taken, err := s.Repo.CategorySlugTaken(ctx, req.Slug, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, req.Slug)
	}

	cat := &models.Category{
		Name:     req.Name,
		Slug:     req.Slug,
		IsActive: req.IsActive == nil || *req.IsActive,
	}
	if err := s.Repo.CreateCategory(ctx, cat); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, req.Slug)
		}
		return nil, err
	}
	return cat, nil
}

func (s *CatalogService) UpdateCategory(ctx context.Context, id uint, req transport.CategoryRequest) (*models.Category, error) {
	cat, err := s.Repo.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Slug != "" && req.Slug != cat.Slug {
		if !slugPattern.MatchString(req.Slug) {
			return nil, fmt.Errorf("%w: invalid slug", ErrValidation)
		}
		taken, err := s.Repo.CategorySlugTaken(ctx, req.Slug, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, req.Slug)
		}
		cat.Slug = req.Slug
	}
	if req.Name != "" {
		cat.Name = req.Name
	}
	if req.IsActive != nil {
		cat.IsActive = *req.IsActive
	}

	if err := s.Repo.SaveCategory(ctx, cat); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, req.Slug)
		}
		return nil, err
	}
	return cat, nil
}

// DeleteCategory refuses to delete while products still reference the
// category; nothing is cascaded.
func (s *CatalogService) DeleteCategory(ctx context.Context, id uint) error {
	count, err := s.Repo.CountProductsInCategory(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: category has %d products", ErrConflict, count)
	}
	return s.Repo.DeleteCategory(ctx, id)
}

func (s *CatalogService) ListProducts(ctx context.Context, categoryID uint, activeOnly bool, offset, limit int) (int64, []models.Product, error) {
	return s.Repo.ListProducts(ctx, categoryID, activeOnly, offset, limit)
}

func (s *CatalogService) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	return s.Repo.GetProduct(ctx, id)
}

func (s *CatalogService) GetProductBySlug(ctx context.Context, slug string) (*models.Product, error) {
	return s.Repo.GetProductBySlug(ctx, slug)
}

func (s *CatalogService) CreateProduct(ctx context.Context, req transport.ProductRequest) (*models.Product, error) {
	if err := validateProductRequest(req, true); err != nil {
		return nil, err
	}

	if _, err := s.Repo.GetCategory(ctx, req.CategoryID); err != nil {
		return nil, fmt.Errorf("%w: category %d", ErrNotFound, req.CategoryID)
	}

	taken, err := s.Repo.ProductSlugTaken(ctx, req.Slug, 0)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, req.Slug)
	}

	formFields, err := marshalFormFields(req.FormFields)
	if err != nil {
		return nil, err
	}

	prod := &models.Product{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		ImageURL:    req.ImageURL,
		CategoryID:  req.CategoryID,
		IsActive:    req.IsActive == nil || *req.IsActive,
		FormFields:  formFields,
		Variants:    variantsFromRequest(req.Variants),
	}
	if err := s.Repo.CreateProduct(ctx, prod); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, req.Slug)
		}
		return nil, err
	}

	s.publish(ctx, prod.Slug, map[string]interface{}{
		"type":       "product_created",
		"product_id": prod.ID,
		"name":       prod.Name,
	})
	s.reindex(ctx, prod)

	return prod, nil
}

// UpdateProduct replaces the variant list wholesale: old variants are
// deleted and the submitted ones inserted fresh.
func (s *CatalogService) UpdateProduct(ctx context.Context, id uint, req transport.ProductRequest) (*models.Product, error) {
	prod, err := s.Repo.GetProduct(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := validateProductRequest(req, false); err != nil {
		return nil, err
	}

	if req.Slug != "" && req.Slug != prod.Slug {
		taken, err := s.Repo.ProductSlugTaken(ctx, req.Slug, id)
		if err != nil {
			return nil, err
		}
		if taken {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, req.Slug)
		}
		prod.Slug = req.Slug
	}
	if req.Name != "" {
		prod.Name = req.Name
	}
	if req.Description != "" {
		prod.Description = req.Description
	}
	if req.ImageURL != "" {
		prod.ImageURL = req.ImageURL
	}
	if req.CategoryID != 0 {
		if _, err := s.Repo.GetCategory(ctx, req.CategoryID); err != nil {
			return nil, fmt.Errorf("%w: category %d", ErrNotFound, req.CategoryID)
		}
		prod.CategoryID = req.CategoryID
	}
	if req.IsActive != nil {
		prod.IsActive = *req.IsActive
	}
	if req.FormFields != nil {
		formFields, err := marshalFormFields(req.FormFields)
		if err != nil {
			return nil, err
		}
		prod.FormFields = formFields
	}

	if err := s.Repo.SaveProductWithVariants(ctx, prod, variantsFromRequest(req.Variants)); err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("%w: slug %q already in use", ErrConflict, req.Slug)
		}
		return nil, err
	}

	s.publish(ctx, prod.Slug, map[string]interface{}{
		"type":       "product_updated",
		"product_id": prod.ID,
		"name":       prod.Name,
	})
	s.reindex(ctx, prod)

	return prod, nil
}

// DeleteProduct refuses to delete while orders still reference the product.
func (s *CatalogService) DeleteProduct(ctx context.Context, id uint) error {
	count, err := s.Repo.CountOrdersForProduct(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("%w: product has %d orders", ErrConflict, count)
	}
	if err := s.Repo.DeleteProduct(ctx, id); err != nil {
		return err
	}

	s.publish(ctx, fmt.Sprint(id), map[string]interface{}{
		"type":       "product_deleted",
		"product_id": id,
	})
	if s.ES != nil {
		if err := search.DeleteProduct(ctx, s.ES, es.ProductIndex, id); err != nil {
			logging.FromContext(ctx).Error("es_delete_failed", "product_id", id, "error", err)
		}
	}
	return nil
}

func validateProductRequest(req transport.ProductRequest, create bool) error {
	if create {
		if req.Name == "" {
			return fmt.Errorf("%w: name required", ErrValidation)
		}
		if !slugPattern.MatchString(req.Slug) {
			return fmt.Errorf("%w: invalid slug", ErrValidation)
		}
		if req.CategoryID == 0 {
			return fmt.Errorf("%w: category_id required", ErrValidation)
		}
		if len(req.Variants) == 0 {
			return fmt.Errorf("%w: at least one variant required", ErrValidation)
		}
	} else if req.Slug != "" && !slugPattern.MatchString(req.Slug) {
		return fmt.Errorf("%w: invalid slug", ErrValidation)
	}
	for _, v := range req.Variants {
		if v.Name == "" {
			return fmt.Errorf("%w: variant name required", ErrValidation)
		}
		if v.Price < 0 {
			return fmt.Errorf("%w: variant price must be >= 0", ErrValidation)
		}
	}
	return nil
}

func variantsFromRequest(in []transport.VariantRequest) []models.ProductVariant {
	variants := make([]models.ProductVariant, 0, len(in))
	for i, v := range in {
		variants = append(variants, models.ProductVariant{
			Name:      v.Name,
			Price:     v.Price,
			IsActive:  v.IsActive == nil || *v.IsActive,
			SortOrder: i,
		})
	}
	return variants
}

func marshalFormFields(fields []models.FormField) (datatypes.JSON, error) {
	if fields == nil {
		return nil, nil
	}
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid form fields", ErrValidation)
	}
	return datatypes.JSON(data), nil
}
