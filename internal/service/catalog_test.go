package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rakibdev/topup-shop/internal/models"
	"github.com/rakibdev/topup-shop/internal/transport"
)

func newCatalogService(t *testing.T) *CatalogService {
	t.Helper()
	return &CatalogService{Repo: newRepo(newTestDB(t))}
}

func TestCreateCategory(t *testing.T) {
	svc := newCatalogService(t)

	cat, err := svc.CreateCategory(context.Background(), transport.CategoryRequest{
		Name: "Games", Slug: "games",
	})
	require.NoError(t, err)
	require.NotZero(t, cat.ID)
	require.True(t, cat.IsActive)
}

func TestCreateCategorySlugConflict(t *testing.T) {
	svc := newCatalogService(t)

	_, err := svc.CreateCategory(context.Background(), transport.CategoryRequest{Name: "Games", Slug: "games"})
	require.NoError(t, err)

	_, err = svc.CreateCategory(context.Background(), transport.CategoryRequest{Name: "Other", Slug: "games"})
	require.ErrorIs(t, err, ErrConflict)
}

func TestCreateCategoryInvalidSlug(t *testing.T) {
	svc := newCatalogService(t)

	for _, slug := range []string{"", "Games", "ga mes", "games-", "-games", "ga_mes"} {
		_, err := svc.CreateCategory(context.Background(), transport.CategoryRequest{Name: "Games", Slug: slug})
		require.ErrorIs(t, err, ErrValidation, "slug %q", slug)
	}
}

func TestDeleteCategoryWithProducts(t *testing.T) {
	svc := newCatalogService(t)
	cat, _, _ := seedCatalog(t, svc.Repo.DB)

	err := svc.DeleteCategory(context.Background(), cat.ID)
	require.ErrorIs(t, err, ErrConflict)
	require.Contains(t, err.Error(), "1 products")

	var count int64
	svc.Repo.DB.Model(&models.Category{}).Count(&count)
	require.Equal(t, int64(1), count)
}

func TestDeleteEmptyCategory(t *testing.T) {
	svc := newCatalogService(t)

	cat, err := svc.CreateCategory(context.Background(), transport.CategoryRequest{Name: "Empty", Slug: "empty"})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(context.Background(), cat.ID))

	var count int64
	svc.Repo.DB.Model(&models.Category{}).Count(&count)
	require.Zero(t, count)
}

func TestCreateProduct(t *testing.T) {
	svc := newCatalogService(t)
	cat, _, _ := seedCatalog(t, svc.Repo.DB)

	prod, err := svc.CreateProduct(context.Background(), transport.ProductRequest{
		Name:       "Y",
		Slug:       "y",
		CategoryID: cat.ID,
		FormFields: []models.FormField{{Type: "text", Name: "player_id", Label: "Player ID", Required: true}},
		Variants: []transport.VariantRequest{
			{Name: "100 coins", Price: 100},
			{Name: "500 coins", Price: 450},
		},
	})
	require.NoError(t, err)
	require.Len(t, prod.Variants, 2)
	require.Equal(t, 0, prod.Variants[0].SortOrder)
	require.Equal(t, 1, prod.Variants[1].SortOrder)
	require.NotNil(t, prod.FormFields)
}

func TestCreateProductRequiresVariant(t *testing.T) {
	svc := newCatalogService(t)
	cat, _, _ := seedCatalog(t, svc.Repo.DB)

	_, err := svc.CreateProduct(context.Background(), transport.ProductRequest{
		Name: "Y", Slug: "y", CategoryID: cat.ID,
	})
	require.ErrorIs(t, err, ErrValidation)
}

func TestCreateProductUnknownCategory(t *testing.T) {
	svc := newCatalogService(t)

	_, err := svc.CreateProduct(context.Background(), transport.ProductRequest{
		Name: "Y", Slug: "y", CategoryID: 999,
		Variants: []transport.VariantRequest{{Name: "v", Price: 1}},
	})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateProductReplacesVariants(t *testing.T) {
	svc := newCatalogService(t)
	_, prod, old := seedCatalog(t, svc.Repo.DB)

	updated, err := svc.UpdateProduct(context.Background(), prod.ID, transport.ProductRequest{
		Variants: []transport.VariantRequest{
			{Name: "250 coins", Price: 250},
			{Name: "1000 coins", Price: 900},
		},
	})
	require.NoError(t, err)
	require.Len(t, updated.Variants, 2)

	var variants []models.ProductVariant
	require.NoError(t, svc.Repo.DB.Where("product_id = ?", prod.ID).
		Order("sort_order").Find(&variants).Error)
	require.Len(t, variants, 2)
	require.Equal(t, "250 coins", variants[0].Name)
	require.Equal(t, "1000 coins", variants[1].Name)
	for _, v := range variants {
		require.NotEqual(t, old.ID, v.ID)
	}
}

func TestDeleteProductWithOrders(t *testing.T) {
	svc := newCatalogService(t)
	_, prod, variant := seedCatalog(t, svc.Repo.DB)
	user := seedUser(t, svc.Repo.DB, "u@example.com", "user")

	order := &models.Order{
		OrderNumber:   GenerateOrderNumber(),
		UserID:        user.ID,
		Email:         user.Email,
		ProductID:     prod.ID,
		PaymentStatus: models.PaymentStatusPending,
		Status:        models.OrderStatusPending,
		TotalAmount:   variant.Price,
	}
	require.NoError(t, svc.Repo.DB.Create(order).Error)

	err := svc.DeleteProduct(context.Background(), prod.ID)
	require.ErrorIs(t, err, ErrConflict)
	require.Contains(t, err.Error(), "1 orders")
}

func TestDeleteProductRemovesVariants(t *testing.T) {
	svc := newCatalogService(t)
	_, prod, _ := seedCatalog(t, svc.Repo.DB)

	require.NoError(t, svc.DeleteProduct(context.Background(), prod.ID))

	var count int64
	svc.Repo.DB.Model(&models.ProductVariant{}).Count(&count)
	require.Zero(t, count)
}
