package main

import (
	"context"
	"flag"

	"go-agency-ledger/internal/config"
	"go-agency-ledger/internal/repository"
	"go-agency-ledger/pkg/database"
	"go-agency-ledger/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Resets a staff password from the command line and ends the account's session.
func main() {
	cfg, err := config.Load("")
	if err != nil {
		panic(err)
	}
	log := logger.Must(logger.New(cfg.LogLevel))
	defer log.Sync()

	email := flag.String("email", cfg.Seed.AdminEmail, "staff account email")
	password := flag.String("password", cfg.Seed.AdminPassword, "new password (defaults to ADMIN_PASSWORD)")
	flag.Parse()

	if len(*password) < 6 {
		log.Fatal("New password must be at least 6 characters")
	}

	// 1. Setup Database
	db, err := database.ConnectDB(cfg.Database)
	if err != nil {
		log.Fatal("database", zap.Error(err))
	}

	// 2. Find user
	ctx := context.Background()
	users := repository.NewUserRepo(db)
	user, err := users.FindByEmail(ctx, *email)
	if err != nil {
		log.Fatal("User not found in database", zap.String("email", *email), zap.Error(err))
	}

	// 3. Hash new password and end the current session
	if err := user.SetPassword(*password); err != nil {
		log.Fatal("Failed to hash password", zap.Error(err))
	}
	user.TokenVersion = uuid.New().String()
	user.UpdatedBy = "reset-password"

	// 4. Update
	if err := users.Update(ctx, user); err != nil {
		log.Fatal("Failed to update password in DB", zap.Error(err))
	}

	log.Info("Password reset", zap.String("email", *email))
}
