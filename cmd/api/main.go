package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"go-agency-ledger/internal/config"
	"go-agency-ledger/internal/handler"
	"go-agency-ledger/internal/middleware"
	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/repository"
	"go-agency-ledger/internal/scheduler"
	"go-agency-ledger/internal/service"
	"go-agency-ledger/internal/ws"
	"go-agency-ledger/pkg/database"
	"go-agency-ledger/pkg/jwt"
	"go-agency-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// 1. Load config
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	log := logger.Must(logger.New(cfg.LogLevel))
	defer log.Sync()

	// 2. Setup Database
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}
	if err := db.AutoMigrate(model.All()...); err != nil {
		log.Fatal("auto migrate", zap.Error(err))
	}

	// 3. Seed default privileges, roles, and admin user
	seedPrivilegesRolesAndAdmin(db, cfg.Seed, logger.Named(log, "seed"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 4. Setup WebSocket Hub
	wsHub := ws.NewHub(logger.Named(log, "ws"))
	go wsHub.Run(ctx)

	// 5. Dependency Injection (Wiring Layers)
	stockRepo := repository.NewStockRepo(db)
	billRepo := repository.NewBillRepo(db)
	customerRepo := repository.NewCustomerRepo(db)
	productRepo := repository.NewProductRepo(db)
	logRepo := repository.NewStockLogRepo(db)
	dashRepo := repository.NewDashboardRepo(db)
	userRepo := repository.NewUserRepo(db)
	privilegeRepo := repository.NewPrivilegeRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	threshold := cfg.Stock.LowStockThresholdKgs
	issuer := jwt.NewIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL, cfg.Auth.Issuer)

	authService := service.NewAuthService(userRepo, customerRepo, issuer, wsHub, logger.Named(log, "auth"), cfg.Auth.IdleTimeout)
	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)
	billService := service.NewBillService(db, stockRepo, billRepo, customerRepo, logRepo, wsHub, logger.Named(log, "bill"),
		service.BillConfig{NumberPrefix: cfg.Stock.BillNumberPrefix})
	customerService := service.NewCustomerService(db, customerRepo, billRepo, wsHub, logger.Named(log, "customer"))
	stockService := service.NewStockService(db, stockRepo, productRepo, logRepo, wsHub, logger.Named(log, "stock"), threshold)
	productService := service.NewProductService(productRepo, stockRepo)
	stockLogService := service.NewStockLogService(logRepo)
	dashService := service.NewDashboardService(dashRepo, stockRepo, logRepo, threshold)

	httpLog := logger.Named(log, "http")
	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService, httpLog),
		Dashboard: handler.NewDashboardHandler(dashService, httpLog),
		Product:   handler.NewProductHandler(productService, httpLog),
		Stock:     handler.NewStockHandler(stockService, stockLogService, httpLog),
		Customer:  handler.NewCustomerHandler(customerService, httpLog),
		Bill:      handler.NewBillHandler(billService, httpLog),
		User:      handler.NewUserHandler(userService, httpLog),
		Role:      handler.NewRoleHandler(roleRepo, privilegeRepo, httpLog),
		Me:        handler.NewMeHandler(customerService, billService, httpLog),
	}

	// 6. Low-stock job
	jobs := scheduler.NewScheduler(cfg.Stock.LowStockCron, threshold, stockService, wsHub, logger.Named(log, "scheduler"))
	if err := jobs.Start(); err != nil {
		log.Fatal("scheduler", zap.Error(err))
	}

	// 7. Setup Fiber
	app := fiber.New(fiber.Config{
		AppName:   cfg.Server.AppName,
		BodyLimit: cfg.Server.BodyLimitBytes,
	})

	// Middleware
	app.Use(recover.New()) // Panic recovery
	app.Use(middleware.RequestLogger(httpLog))
	app.Use(cors.New(cors.Config{AllowOrigins: cfg.Server.AllowedOrigins}))

	// 8. Routes
	handler.RegisterRoutes(app, handlers, authService)

	// WebSocket Route
	app.Use("/ws", ws.RequireUpgrade)
	app.Get("/ws", wsHub.Handler())

	// 9. Graceful Shutdown
	go func() {
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			log.Panic("listen", zap.Error(err))
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	jobs.Stop()
	cancel()

	log.Info("Server exited")
}

// seedPrivilegesRolesAndAdmin creates default privileges, roles, and the master admin if they don't exist
func seedPrivilegesRolesAndAdmin(db *gorm.DB, seed config.SeedConfig, log *zap.Logger) {
	ctx := context.Background()
	privilegeRepo := repository.NewPrivilegeRepo(db)
	userRepo := repository.NewUserRepo(db)
	roleRepo := repository.NewRoleRepo(db)

	// 1. Seed privileges first
	if err := privilegeRepo.SeedDefaults(ctx); err != nil {
		log.Warn("Failed to seed privileges", zap.Error(err))
	}

	// 2. Seed roles and grant their privileges
	if err := roleRepo.SeedDefaults(ctx); err != nil {
		log.Warn("Failed to seed roles", zap.Error(err))
	}

	// 3. Create default admin user with MASTER_ADMIN role
	_, err := userRepo.FindByEmail(ctx, seed.AdminEmail)
	if err == nil {
		return
	}
	if !errors.Is(err, repository.ErrNotFound) {
		log.Warn("Failed to look up admin user", zap.Error(err))
		return
	}
	if seed.AdminPassword == "" {
		log.Warn("ADMIN_PASSWORD not set, master admin not created", zap.String("email", seed.AdminEmail))
		return
	}

	masterRole, err := roleRepo.FindByCode(ctx, model.RoleMasterAdmin)
	if err != nil {
		log.Warn("MASTER_ADMIN role missing", zap.Error(err))
		return
	}

	userService := service.NewUserService(userRepo, privilegeRepo, roleRepo)
	if _, err := userService.CreateUser(ctx, &service.CreateUserRequest{
		Email:    seed.AdminEmail,
		Password: seed.AdminPassword,
		FullName: "Master Administrator",
		RoleID:   masterRole.ID,
	}, "system"); err != nil {
		log.Warn("Failed to create admin user", zap.Error(err))
		return
	}
	log.Info("Admin user created", zap.String("email", seed.AdminEmail), zap.String("role", model.RoleMasterAdmin))
}
