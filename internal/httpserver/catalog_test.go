package httpserver

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/rakibdev/topup-shop/internal/models"
	"github.com/rakibdev/topup-shop/internal/repo"
	"github.com/rakibdev/topup-shop/internal/service"
)

func newCatalogHandler(t *testing.T) (*CatalogHTTP, *models.Product) {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Category{}, &models.Product{}, &models.ProductVariant{},
	))

	active := &models.Category{Name: "Games", Slug: "games", IsActive: true}
	require.NoError(t, db.Create(active).Error)
	retired := &models.Category{Name: "Retired", Slug: "retired", IsActive: false}
	require.NoError(t, db.Create(retired).Error)

	hidden := &models.Product{Name: "Old", Slug: "old", CategoryID: active.ID, IsActive: false}
	require.NoError(t, db.Create(hidden).Error)

	h := &CatalogHTTP{Svc: &service.CatalogService{Repo: &repo.GormRepo{DB: db}}}
	return h, hidden
}

func catalogContext(method, target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestListCategoriesHidesInactive(t *testing.T) {
	h, _ := newCatalogHandler(t)

	c, rec := catalogContext(http.MethodGet, "/api/categories")
	require.NoError(t, h.ListCategories(c))
	require.Contains(t, rec.Body.String(), `"slug":"games"`)
	require.NotContains(t, rec.Body.String(), `"slug":"retired"`)
}

func TestAdminListCategoriesIncludesInactive(t *testing.T) {
	h, _ := newCatalogHandler(t)

	c, rec := catalogContext(http.MethodGet, "/api/admin/categories")
	c.Set("role", "admin")
	require.NoError(t, h.ListCategories(c))
	require.Contains(t, rec.Body.String(), `"slug":"retired"`)
}

func TestGetProductInactiveIs404(t *testing.T) {
	h, _ := newCatalogHandler(t)

	c, _ := catalogContext(http.MethodGet, "/api/products/old")
	c.SetParamNames("slug")
	c.SetParamValues("old")

	err := h.GetProduct(c)
	require.Error(t, err)
	he, ok := err.(*echo.HTTPError)
	require.True(t, ok)
	require.Equal(t, http.StatusNotFound, he.Code)
}

func TestAdminGetProductSeesInactive(t *testing.T) {
	h, hidden := newCatalogHandler(t)

	c, rec := catalogContext(http.MethodGet, "/api/admin/products/"+strconv.Itoa(int(hidden.ID)))
	c.Set("role", "admin")
	c.SetParamNames("id")
	c.SetParamValues(strconv.Itoa(int(hidden.ID)))

	require.NoError(t, h.AdminGetProduct(c))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"slug":"old"`)
}

func TestAdminListProductsIncludesInactive(t *testing.T) {
	h, _ := newCatalogHandler(t)

	c, rec := catalogContext(http.MethodGet, "/api/admin/products")
	c.Set("role", "admin")
	require.NoError(t, h.ListProducts(c))
	require.Contains(t, rec.Body.String(), `"slug":"old"`)
}

func TestRouterAdminCatalogReads(t *testing.T) {
	e := echo.New()
	Register(e, &Deps{
		AuthHandler:    &AuthHTTP{},
		CatalogHandler: &CatalogHTTP{},
		OrderHandler:   &OrderHTTP{},
		PaymentHandler: &PaymentHTTP{},
		AdminHandler:   &AdminHTTP{},
		AuthMW:         &AuthMW{},
	})

	routes := map[string]bool{}
	for _, r := range e.Routes() {
		routes[r.Method+" "+r.Path] = true
	}
	require.True(t, routes["GET /api/admin/categories"])
	require.True(t, routes["GET /api/admin/products"])
	require.True(t, routes["GET /api/admin/products/:id"])
}
