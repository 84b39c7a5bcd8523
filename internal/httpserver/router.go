package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Deps struct {
	AuthHandler    *AuthHTTP
	CatalogHandler *CatalogHTTP
	OrderHandler   *OrderHTTP
	PaymentHandler *PaymentHTTP
	AdminHandler   *AdminHTTP
	AuthMW         *AuthMW
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	api := e.Group("/api")

	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.POST("/verify-email", d.AuthHandler.VerifyEmail)
	auth.POST("/resend-verification", d.AuthHandler.ResendVerification)
	auth.POST("/forgot-password", d.AuthHandler.ForgotPassword)
	auth.POST("/reset-password", d.AuthHandler.ResetPassword)
	auth.GET("/me", d.AuthHandler.Me, d.AuthMW.RequireLogin)

	api.PUT("/user/update-profile", d.AuthHandler.UpdateProfile, d.AuthMW.RequireLogin)

	api.GET("/categories", d.CatalogHandler.ListCategories)
	api.GET("/categories/:slug", d.CatalogHandler.GetCategory)
	api.GET("/products", d.CatalogHandler.ListProducts)
	api.GET("/products/search", d.CatalogHandler.SearchProducts)
	api.GET("/products/:slug", d.CatalogHandler.GetProduct)

	orders := api.Group("/orders", d.AuthMW.RequireLogin)
	orders.POST("", d.OrderHandler.CreateOrder)
	orders.GET("", d.OrderHandler.ListOrders)
	orders.GET("/:id", d.OrderHandler.GetOrder)

	payments := api.Group("/payments")
	payments.POST("/create", d.PaymentHandler.Create, d.AuthMW.RequireLogin)
	payments.POST("/verify", d.PaymentHandler.Verify, d.AuthMW.RequireLogin)
	payments.POST("/webhook/uddoktapay", d.PaymentHandler.Webhook)

	admin := api.Group("/admin", d.AuthMW.RequireAdmin)
	admin.GET("/categories", d.CatalogHandler.ListCategories)
	admin.POST("/categories", d.CatalogHandler.CreateCategory)
	admin.PATCH("/categories/:id", d.CatalogHandler.UpdateCategory)
	admin.DELETE("/categories/:id", d.CatalogHandler.DeleteCategory)
	admin.GET("/products", d.CatalogHandler.ListProducts)
	admin.GET("/products/:id", d.CatalogHandler.AdminGetProduct)
	admin.POST("/products", d.CatalogHandler.CreateProduct)
	admin.PATCH("/products/:id", d.CatalogHandler.UpdateProduct)
	admin.DELETE("/products/:id", d.CatalogHandler.DeleteProduct)
	admin.GET("/orders", d.OrderHandler.AdminListOrders)
	admin.PATCH("/orders/:id", d.OrderHandler.AdminUpdateOrder)
	admin.GET("/users", d.AdminHandler.ListUsers)
	admin.PATCH("/users/:id", d.AdminHandler.UpdateUser)
}
