package handler

import (
	"go-agency-ledger/internal/middleware"
	"go-agency-ledger/internal/model"

	"github.com/gofiber/fiber/v2"
)

// Handlers is every HTTP handler the API mounts.
type Handlers struct {
	Auth      *AuthHandler
	Dashboard *DashboardHandler
	Product   *ProductHandler
	Stock     *StockHandler
	Customer  *CustomerHandler
	Bill      *BillHandler
	User      *UserHandler
	Role      *RoleHandler
	Me        *MeHandler
}

// RegisterRoutes mounts the /api/v1 routes with their privilege checks.
func RegisterRoutes(app *fiber.App, h Handlers, auth middleware.Authenticator) {
	api := app.Group("/api/v1")
	requireAuth := middleware.RequireAuth(auth)
	priv := middleware.RequirePrivilege

	// ============ PUBLIC ROUTES ============
	authGroup := api.Group("/auth")
	authGroup.Post("/login", h.Auth.Login)
	authGroup.Post("/customer-login", h.Auth.CustomerLogin)
	authGroup.Post("/reset-password", h.Auth.ResetPassword)
	authGroup.Post("/validate-token", h.Auth.ValidateToken)
	authGroup.Post("/heartbeat", requireAuth, h.Auth.Heartbeat)

	// ============ CUSTOMER PORTAL ============
	me := api.Group("/me", requireAuth, middleware.RequireCustomer())
	me.Get("", h.Me.Profile)
	me.Get("/bills", h.Me.Bills)
	me.Get("/summary", h.Me.Summary)

	// ============ STAFF ROUTES ============
	protected := api.Group("", requireAuth)

	// Dashboard
	protected.Get("/dashboard/stats", priv(model.PrivDashboardView), h.Dashboard.GetDashboardStats)
	protected.Get("/dashboard/stock-movement", priv(model.PrivDashboardView), h.Dashboard.GetStockMovement)
	protected.Get("/dashboard/stock-report", priv(model.PrivDashboardView), h.Dashboard.GetStockReport)

	// Product catalog
	protected.Get("/products", priv(model.PrivProductView), h.Product.GetProducts)
	protected.Post("/products", priv(model.PrivProductCreate), h.Product.CreateProduct)
	protected.Delete("/products/:id", priv(model.PrivProductDelete), h.Product.DeleteProduct)

	// Stock; /stock/low must be mounted before /stock/:id
	protected.Get("/stock", priv(model.PrivStockView), h.Stock.GetStock)
	protected.Get("/stock/low", priv(model.PrivStockView), h.Stock.GetLowStock)
	protected.Get("/stock/:id", priv(model.PrivStockView), h.Stock.GetStockItem)
	protected.Post("/stock", priv(model.PrivStockCreate), h.Stock.CreateStockItem)
	protected.Put("/stock/:id", priv(model.PrivStockUpdate), h.Stock.UpdateStockItem)
	protected.Post("/stock/:id/restock", priv(model.PrivStockUpdate), h.Stock.Restock)
	protected.Get("/stock-logs", priv(model.PrivStockView), h.Stock.GetLogs)

	// Customers
	protected.Get("/customers", priv(model.PrivCustomerView), h.Customer.GetCustomers)
	protected.Get("/customers/search", priv(model.PrivBillView), h.Customer.SearchBills)
	protected.Get("/customers/:id", priv(model.PrivCustomerView), h.Customer.GetCustomer)
	protected.Post("/customers", priv(model.PrivCustomerCreate), h.Customer.CreateCustomer)
	protected.Put("/customers/:id", priv(model.PrivCustomerUpdate), h.Customer.UpdateCustomer)
	protected.Delete("/customers/:id", priv(model.PrivCustomerDelete), h.Customer.DeleteCustomer)

	// Bills
	protected.Get("/bills", priv(model.PrivBillView), h.Bill.GetBills)
	protected.Get("/bills/:id", priv(model.PrivBillView), h.Bill.GetBill)
	protected.Post("/bills", priv(model.PrivBillCreate), h.Bill.CreateBill)
	protected.Patch("/bills/:id/status", priv(model.PrivBillUpdate), h.Bill.UpdateStatus)

	// User management
	protected.Get("/users", priv(model.PrivUserView), h.User.GetUsers)
	protected.Get("/users/:id", priv(model.PrivUserView), h.User.GetUser)
	protected.Post("/users", priv(model.PrivUserCreate), h.User.CreateUser)
	protected.Put("/users/:id", priv(model.PrivUserUpdate), h.User.UpdateUser)
	protected.Delete("/users/:id", priv(model.PrivUserDelete), h.User.DeleteUser)
	protected.Put("/users/:id/privileges", priv(model.PrivUserUpdatePrivilege), h.User.UpdateUserPrivileges)

	// Roles and privileges
	protected.Get("/roles", priv(model.PrivUserView), h.Role.GetRoles)
	protected.Get("/privileges", priv(model.PrivUserView), h.Role.GetPrivileges)
}
