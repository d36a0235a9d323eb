package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/repository"
	"go-agency-ledger/internal/service"
	"go-agency-ledger/internal/ws"
	"go-agency-ledger/pkg/jwt"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	if err := db.AutoMigrate(model.All()...); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// newTestApp wires the full API against an in-memory database with one
// MASTER_ADMIN account (admin@example.com / admin123).
func newTestApp(t *testing.T) *fiber.App {
	t.Helper()
	db := setupTestDB(t)
	ctx := context.Background()

	stockRepo := repository.NewStockRepo(db)
	billRepo := repository.NewBillRepo(db)
	customerRepo := repository.NewCustomerRepo(db)
	productRepo := repository.NewProductRepo(db)
	logRepo := repository.NewStockLogRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)

	if err := privilegeRepo.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed privileges: %v", err)
	}
	if err := roleRepo.SeedDefaults(ctx); err != nil {
		t.Fatalf("seed roles: %v", err)
	}
	role, err := roleRepo.FindByCode(ctx, model.RoleMasterAdmin)
	if err != nil {
		t.Fatalf("role: %v", err)
	}

	threshold := decimal.NewFromInt(50)
	hub := ws.NewHub(nil)
	issuer := jwt.NewIssuer("test-secret-0123456789", time.Hour, "agency-ledger")

	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)
	if _, err := userService.CreateUser(ctx, &service.CreateUserRequest{
		Email: "admin@example.com", Password: "admin123", FullName: "Admin", RoleID: role.ID,
	}, "system"); err != nil {
		t.Fatalf("create admin: %v", err)
	}

	authService := service.NewAuthService(userRepo, customerRepo, issuer, hub, nil, 5*time.Minute)
	billService := service.NewBillService(db, stockRepo, billRepo, customerRepo, logRepo, hub, nil, service.BillConfig{})
	customerService := service.NewCustomerService(db, customerRepo, billRepo, hub, nil)

	app := fiber.New()
	RegisterRoutes(app, Handlers{
		Auth:      NewAuthHandler(authService, nil),
		Dashboard: NewDashboardHandler(service.NewDashboardService(repository.NewDashboardRepo(db), stockRepo, logRepo, threshold), nil),
		Product:   NewProductHandler(service.NewProductService(productRepo, stockRepo), nil),
		Stock:     NewStockHandler(service.NewStockService(db, stockRepo, productRepo, logRepo, hub, nil, threshold), service.NewStockLogService(logRepo), nil),
		Customer:  NewCustomerHandler(customerService, nil),
		Bill:      NewBillHandler(billService, nil),
		User:      NewUserHandler(userService, nil),
		Role:      NewRoleHandler(roleRepo, privilegeRepo, nil),
		Me:        NewMeHandler(customerService, billService, nil),
	}, authService)
	return app
}

type apiResponse struct {
	status int
	body   map[string]interface{}
	list   []interface{}
}

func call(t *testing.T, app *fiber.App, method, path, token string, body interface{}) apiResponse {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	out := apiResponse{status: resp.StatusCode}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err == nil {
		if len(raw) > 0 && raw[0] == '[' {
			_ = json.Unmarshal(raw, &out.list)
		} else {
			_ = json.Unmarshal(raw, &out.body)
		}
	}
	return out
}

func dataID(t *testing.T, r apiResponse) string {
	t.Helper()
	data, ok := r.body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("no data in %v", r.body)
	}
	id, _ := data["id"].(string)
	return id
}

func TestAPI_BillLifecycle(t *testing.T) {
	app := newTestApp(t)

	login := call(t, app, "POST", "/api/v1/auth/login", "", map[string]string{
		"email": "admin@example.com", "password": "admin123",
	})
	if login.status != 200 {
		t.Fatalf("login: %d %v", login.status, login.body)
	}
	staff, _ := login.body["token"].(string)

	if r := call(t, app, "POST", "/api/v1/products", staff, map[string]string{"name": "Jaggery"}); r.status != 201 {
		t.Fatalf("create product: %d %v", r.status, r.body)
	}
	stock := call(t, app, "POST", "/api/v1/stock", staff, map[string]interface{}{
		"name": "Jaggery", "pricePerKg": 38, "quantityKgs": 100, "bags": 10, "arrivalDate": "2026-01-05",
	})
	if stock.status != 201 {
		t.Fatalf("create stock: %d %v", stock.status, stock.body)
	}

	customer := call(t, app, "POST", "/api/v1/customers", staff, map[string]string{
		"name": "Ravi Traders", "phone": "9876543210", "address": "Market Road", "password": "secret1",
	})
	if customer.status != 201 {
		t.Fatalf("create customer: %d %v", customer.status, customer.body)
	}
	customerID := dataID(t, customer)

	bill := call(t, app, "POST", "/api/v1/bills", staff, map[string]interface{}{
		"customerId": customerID,
		"items":      []map[string]interface{}{{"productName": "jaggery", "boxes": 3, "quantityKg": 30, "costPerKg": 40}},
	})
	if bill.status != 201 {
		t.Fatalf("create bill: %d %v", bill.status, bill.body)
	}
	billID := dataID(t, bill)

	short := call(t, app, "POST", "/api/v1/bills", staff, map[string]interface{}{
		"customerId": customerID,
		"items":      []map[string]interface{}{{"productName": "Jaggery", "boxes": 1, "quantityKg": 80, "costPerKg": 40}},
	})
	if short.status != 409 || short.body["error"] != "insufficient stock for Jaggery. Available: 70" {
		t.Errorf("insufficient: %d %v", short.status, short.body)
	}

	if r := call(t, app, "DELETE", "/api/v1/customers/"+customerID, staff, nil); r.status != 409 {
		t.Errorf("delete with pending bill: %d %v", r.status, r.body)
	}

	// Customer portal
	portal := call(t, app, "POST", "/api/v1/auth/customer-login", "", map[string]string{
		"phone": "9876543210", "password": "secret1",
	})
	if portal.status != 200 {
		t.Fatalf("customer login: %d %v", portal.status, portal.body)
	}
	customerToken, _ := portal.body["token"].(string)

	if r := call(t, app, "GET", "/api/v1/me/bills", customerToken, nil); r.status != 200 || len(r.list) != 1 {
		t.Errorf("my bills: %d %v", r.status, r.list)
	}
	if r := call(t, app, "GET", "/api/v1/bills", customerToken, nil); r.status != 403 {
		t.Errorf("customer on staff route: %d", r.status)
	}
	if r := call(t, app, "GET", "/api/v1/me", staff, nil); r.status != 403 {
		t.Errorf("staff on portal: %d", r.status)
	}

	paid := call(t, app, "PATCH", "/api/v1/bills/"+billID+"/status", staff, map[string]string{"status": "paid"})
	if paid.status != 200 {
		t.Fatalf("mark paid: %d %v", paid.status, paid.body)
	}
	if r := call(t, app, "PATCH", "/api/v1/bills/"+billID+"/status", staff, map[string]string{"status": "void"}); r.status != 400 {
		t.Errorf("bad status: %d", r.status)
	}

	summary := call(t, app, "GET", "/api/v1/me/summary", customerToken, nil)
	totals, _ := summary.body["totals"].(map[string]interface{})
	if summary.status != 200 || totals["paid_count"] != float64(1) {
		t.Errorf("summary: %d %v", summary.status, summary.body)
	}

	if r := call(t, app, "DELETE", "/api/v1/customers/"+customerID, staff, nil); r.status != 200 {
		t.Errorf("delete after payment: %d %v", r.status, r.body)
	}
	if r := call(t, app, "GET", "/api/v1/me", customerToken, nil); r.status != 401 {
		t.Errorf("deleted customer token: %d", r.status)
	}
}

func TestAPI_Rejections(t *testing.T) {
	app := newTestApp(t)

	if r := call(t, app, "GET", "/api/v1/stock", "", nil); r.status != 401 {
		t.Errorf("no token: %d", r.status)
	}
	if r := call(t, app, "POST", "/api/v1/auth/login", "", map[string]string{"email": "admin@example.com", "password": "nope"}); r.status != 401 {
		t.Errorf("bad password: %d", r.status)
	}
	for _, email := range []string{"admin@example.com", "nobody@example.com"} {
		if r := call(t, app, "POST", "/api/v1/auth/reset-password", "", map[string]string{
			"email": email, "old_password": "nope", "new_password": "newpass1",
		}); r.status != 401 {
			t.Errorf("reset-password for %s: %d, want 401", email, r.status)
		}
	}

	login := call(t, app, "POST", "/api/v1/auth/login", "", map[string]string{"email": "admin@example.com", "password": "admin123"})
	staff, _ := login.body["token"].(string)

	if r := call(t, app, "GET", "/api/v1/bills/not-a-uuid", staff, nil); r.status != 400 {
		t.Errorf("bad id: %d", r.status)
	}
	if r := call(t, app, "GET", "/api/v1/bills/00000000-0000-0000-0000-000000000001", staff, nil); r.status != 404 {
		t.Errorf("unknown bill: %d", r.status)
	}
	if r := call(t, app, "POST", "/api/v1/customers", staff, map[string]string{
		"name": "X", "phone": "12345", "address": "Y", "password": "secret1",
	}); r.status != 400 {
		t.Errorf("short phone: %d %v", r.status, r.body)
	}
	if r := call(t, app, "POST", "/api/v1/stock", staff, map[string]interface{}{
		"name": "Ghee", "pricePerKg": 500, "quantityKgs": 10, "bags": 1, "arrivalDate": "2026-01-05",
	}); r.status != 404 {
		t.Errorf("stock for unknown product: %d %v", r.status, r.body)
	}
	if r := call(t, app, "GET", "/api/v1/stock-logs?period=year", staff, nil); r.status != 400 {
		t.Errorf("bad period: %d", r.status)
	}
	if r := call(t, app, "GET", "/api/v1/dashboard/stock-report?from=2026-02-01&to=2026-01-01", staff, nil); r.status != 400 {
		t.Errorf("inverted report range: %d", r.status)
	}

	// A second login ends the first session.
	call(t, app, "POST", "/api/v1/auth/login", "", map[string]string{"email": "admin@example.com", "password": "admin123"})
	if r := call(t, app, "GET", "/api/v1/stock", staff, nil); r.status != 401 {
		t.Errorf("replaced session: %d", r.status)
	}
}

func TestStatusFor(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{&service.ValidationError{Field: "items", Tag: "required"}, 400},
		{service.ErrInvalidStatus, 400},
		{service.ErrSessionReplaced, 401},
		{jwt.ErrInvalidToken, 401},
		{fmt.Errorf("load: %w", repository.ErrNotFound), 404},
		{service.ErrCustomerNotFound, 404},
		{&service.InsufficientStockError{Product: "Jaggery", Available: decimal.NewFromInt(70)}, 409},
		{service.ErrPendingBills, 409},
		{repository.ErrDuplicateKey, 409},
		{&service.LedgerError{Step: service.StepAppendLog, Err: fmt.Errorf("disk full")}, 500},
		{fmt.Errorf("boom"), 500},
	}
	for _, tc := range cases {
		if got := statusFor(tc.err); got != tc.want {
			t.Errorf("statusFor(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}
