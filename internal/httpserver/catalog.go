package httpserver

import (
	"net/http"
	"strconv"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"

	"github.com/rakibdev/topup-shop/internal/es"
	"github.com/rakibdev/topup-shop/internal/logging"
	"github.com/rakibdev/topup-shop/internal/service"
	"github.com/rakibdev/topup-shop/internal/service/search"
	"github.com/rakibdev/topup-shop/internal/transport"
	"github.com/rakibdev/topup-shop/internal/util"
)

type CatalogHTTP struct {
	Svc *service.CatalogService
	ES  *elasticsearch.Client
}

func (h *CatalogHTTP) ListCategories(c echo.Context) error {
	ctx := c.Request().Context()

	cats, err := h.Svc.ListCategories(ctx, !isAdmin(c))
	if err != nil {
		return serviceError(err, "cannot list categories")
	}
	return c.JSON(http.StatusOK, cats)
}

func (h *CatalogHTTP) GetCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_category")

	cat, err := h.Svc.GetCategoryBySlug(ctx, c.Param("slug"))
	if err != nil {
		l.Warn("get_category_failed", "slug", c.Param("slug"), "error", err)
		return serviceError(err, "cannot get category")
	}
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) CreateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_category")

	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_category_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cat, err := h.Svc.CreateCategory(ctx, req)
	if err != nil {
		l.Warn("create_category_failed", "error", err)
		return serviceError(err, "cannot create category")
	}

	l.Info("create_category_success", "category_id", cat.ID)
	return c.JSON(http.StatusCreated, cat)
}

func (h *CatalogHTTP) UpdateCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.update_category")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	var req transport.CategoryRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	cat, err := h.Svc.UpdateCategory(ctx, uint(id), req)
	if err != nil {
		l.Warn("update_category_failed", "category_id", id, "error", err)
		return serviceError(err, "cannot update category")
	}

	l.Info("update_category_success", "category_id", cat.ID)
	return c.JSON(http.StatusOK, cat)
}

func (h *CatalogHTTP) DeleteCategory(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_category")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	if err := h.Svc.DeleteCategory(ctx, uint(id)); err != nil {
		l.Warn("delete_category_failed", "category_id", id, "error", err)
		return serviceError(err, "cannot delete category")
	}

	l.Info("delete_category_success", "category_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *CatalogHTTP) ListProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.list_products")

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	categoryID := util.ParseIntDefault(c.QueryParam("category_id"), 0)

	offset, limit := util.Calculate(page, size)

	total, items, err := h.Svc.ListProducts(ctx, uint(categoryID), !isAdmin(c), offset, limit)
	if err != nil {
		l.Error("list_products_error", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "cannot list products")
	}

	return c.JSON(http.StatusOK, map[string]any{
		"data": items,
		"meta": map[string]any{
			"page":        page,
			"size":        limit,
			"total":       total,
			"total_pages": (total + int64(limit) - 1) / int64(limit),
			"has_prev":    page > 1,
			"has_next":    int64(offset+limit) < total,
		},
	})
}

func (h *CatalogHTTP) GetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.get_product")

	prod, err := h.Svc.GetProductBySlug(ctx, c.Param("slug"))
	if err != nil {
		l.Warn("get_product_failed", "slug", c.Param("slug"), "error", err)
		return serviceError(err, "cannot get product")
	}
	if !prod.IsActive && !isAdmin(c) {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}
	return c.JSON(http.StatusOK, prod)
}

// AdminGetProduct fetches by id without the is_active filter, so a
// deactivated product stays reachable from the dashboard.
func (h *CatalogHTTP) AdminGetProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.admin_get_product")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	prod, err := h.Svc.GetProduct(ctx, uint(id))
	if err != nil {
		l.Warn("admin_get_product_failed", "product_id", id, "error", err)
		return serviceError(err, "cannot get product")
	}
	return c.JSON(http.StatusOK, prod)
}

func (h *CatalogHTTP) SearchProducts(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.search_products")

	if h.ES == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "search unavailable")
	}

	q := c.QueryParam("q")
	if q == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "query required")
	}

	page := util.ParseIntDefault(c.QueryParam("page"), 1)
	size := util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize)
	from, limit := util.Calculate(page, size)

	total, products, err := search.Search(ctx, h.ES, es.ProductIndex, q, from, limit)
	if err != nil {
		l.Error("search_failed", "status", 500, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "search failed")
	}
	return c.JSON(http.StatusOK, echo.Map{"total": total, "products": products})
}

func (h *CatalogHTTP) CreateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.create_product")

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_product_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	prod, err := h.Svc.CreateProduct(ctx, req)
	if err != nil {
		l.Warn("create_product_failed", "error", err)
		return serviceError(err, "cannot create product")
	}

	l.Info("create_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusCreated, prod)
}

func (h *CatalogHTTP) UpdateProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.update_product")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	var req transport.ProductRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	prod, err := h.Svc.UpdateProduct(ctx, uint(id), req)
	if err != nil {
		l.Warn("update_product_failed", "product_id", id, "error", err)
		return serviceError(err, "cannot update product")
	}

	l.Info("update_product_success", "product_id", prod.ID)
	return c.JSON(http.StatusOK, prod)
}

func (h *CatalogHTTP) DeleteProduct(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "catalog.delete_product")

	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "id is not an integer")
	}

	if err := h.Svc.DeleteProduct(ctx, uint(id)); err != nil {
		l.Warn("delete_product_failed", "product_id", id, "error", err)
		return serviceError(err, "cannot delete product")
	}

	l.Info("delete_product_success", "product_id", id)
	return c.NoContent(http.StatusNoContent)
}
