package model

// Privilege represents a permission that can be assigned to users
type Privilege struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Code string `gorm:"type:varchar(50);uniqueIndex;not null" json:"code"` // e.g., "bill:create"
	Name string `gorm:"type:varchar(100)" json:"name"`
}

// Privilege codes checked by the router.
const (
	PrivUserView            = "user:view"
	PrivUserCreate          = "user:create"
	PrivUserUpdate          = "user:update"
	PrivUserDelete          = "user:delete"
	PrivUserUpdatePrivilege = "user:update_privilege"
	PrivProductView         = "product:view"
	PrivProductCreate       = "product:create"
	PrivProductDelete       = "product:delete"
	PrivStockView           = "stock:view"
	PrivStockCreate         = "stock:create"
	PrivStockUpdate         = "stock:update"
	PrivCustomerView        = "customer:view"
	PrivCustomerCreate      = "customer:create"
	PrivCustomerUpdate      = "customer:update"
	PrivCustomerDelete      = "customer:delete"
	PrivBillView            = "bill:view"
	PrivBillCreate          = "bill:create"
	PrivBillUpdate          = "bill:update"
	PrivDashboardView       = "dashboard:view"
)

// Default privileges for the system
var DefaultPrivileges = []Privilege{
	// User management
	{Code: PrivUserView, Name: "View User"},
	{Code: PrivUserCreate, Name: "Create User"},
	{Code: PrivUserUpdate, Name: "Update User"},
	{Code: PrivUserDelete, Name: "Delete User"},
	{Code: PrivUserUpdatePrivilege, Name: "Update User Privileges"},
	// Product catalog
	{Code: PrivProductView, Name: "View Product"},
	{Code: PrivProductCreate, Name: "Create Product"},
	{Code: PrivProductDelete, Name: "Delete Product"},
	// Stock
	{Code: PrivStockView, Name: "View Stock"},
	{Code: PrivStockCreate, Name: "Add Stock"},
	{Code: PrivStockUpdate, Name: "Update Stock"},
	// Customers
	{Code: PrivCustomerView, Name: "View Customer"},
	{Code: PrivCustomerCreate, Name: "Create Customer"},
	{Code: PrivCustomerUpdate, Name: "Update Customer"},
	{Code: PrivCustomerDelete, Name: "Delete Customer"},
	// Bills
	{Code: PrivBillView, Name: "View Bill"},
	{Code: PrivBillCreate, Name: "Upload Bill"},
	{Code: PrivBillUpdate, Name: "Update Bill Status"},
	// Dashboard
	{Code: PrivDashboardView, Name: "View Dashboard"},
}

// IsUserManagement reports whether a privilege is reserved for MASTER_ADMIN.
func IsUserManagement(code string) bool {
	switch code {
	case PrivUserCreate, PrivUserUpdate, PrivUserDelete, PrivUserUpdatePrivilege:
		return true
	}
	return false
}
