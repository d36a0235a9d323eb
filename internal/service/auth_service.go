package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"go-agency-ledger/internal/model"
	"go-agency-ledger/internal/repository"
	"go-agency-ledger/internal/ws"
	"go-agency-ledger/pkg/jwt"
	"go-agency-ledger/pkg/validator"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidPhoneLogin  = errors.New("invalid phone or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrSessionTimeout     = errors.New("session expired due to inactivity")
	ErrSessionReplaced    = errors.New("session expired (logged in on another device)")
	ErrTokenGeneration    = errors.New("failed to generate token")
)

type AuthService interface {
	Login(ctx context.Context, email, password string) (*LoginResponse, error)
	CustomerLogin(ctx context.Context, phone, password string) (*CustomerLoginResponse, error)
	ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error
	ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error)
	Authenticate(ctx context.Context, tokenString string) (*jwt.Claims, error)
	Heartbeat(ctx context.Context, userID uuid.UUID) error
}

type LoginResponse struct {
	Token      string             `json:"token"`
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`       // Direct role object for Redux
	Privileges []string           `json:"privileges"` // Flat privileges array for easy checking
}

type CustomerLoginResponse struct {
	Token    string                 `json:"token"`
	Customer model.CustomerResponse `json:"customer"`
}

type TokenValidationResponse struct {
	User       model.UserResponse `json:"user"`
	Role       *model.Role        `json:"role"`
	Privileges []string           `json:"privileges"`
}

type authService struct {
	userRepo     repository.UserRepository
	customerRepo repository.CustomerRepository
	issuer       *jwt.Issuer
	events       EventPublisher
	log          *zap.Logger
	idleTimeout  time.Duration
	now          func() time.Time
}

func NewAuthService(
	userRepo repository.UserRepository,
	customerRepo repository.CustomerRepository,
	issuer *jwt.Issuer,
	events EventPublisher,
	log *zap.Logger,
	idleTimeout time.Duration,
) AuthService {
	if log == nil {
		log = zap.NewNop()
	}
	if idleTimeout <= 0 {
		idleTimeout = 5 * time.Minute
	}
	return &authService{
		userRepo:     userRepo,
		customerRepo: customerRepo,
		issuer:       issuer,
		events:       publisherOrNoop(events),
		log:          log,
		idleTimeout:  idleTimeout,
		now:          time.Now,
	}
}

func (s *authService) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	// 1. Find user by email
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	// 2. Check if user is active
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// 3. Verify password
	if !user.CheckPassword(password) {
		return nil, ErrInvalidCredentials
	}

	// 4. Single session: rotate the token version and stamp presence
	version := uuid.New().String()
	now := s.now()
	if err := s.userRepo.StartSession(ctx, user.ID, version, now); err != nil {
		return nil, errors.New("failed to update session")
	}
	user.TokenVersion = version
	user.LastSeenAt = &now

	// 5. Generate JWT token with TokenVersion
	token, err := s.issuer.GenerateToken(jwt.Claims{
		UserID:       user.ID,
		Kind:         jwt.KindStaff,
		Email:        user.Email,
		Name:         user.FullName,
		RoleCode:     user.RoleCode(),
		Privileges:   user.GetPrivilegeCodes(),
		TokenVersion: version,
	})
	if err != nil {
		return nil, ErrTokenGeneration
	}

	s.log.Info("staff login", zap.String("user_id", user.ID.String()), zap.String("role", user.RoleCode()))

	return &LoginResponse{
		Token:      token,
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.GetPrivilegeCodes(),
	}, nil
}

func (s *authService) CustomerLogin(ctx context.Context, phone, password string) (*CustomerLoginResponse, error) {
	req := struct {
		Phone    string `validate:"required,phone10"`
		Password string `validate:"required"`
	}{phone, password}
	if errs := validator.ValidateStruct(&req); len(errs) > 0 {
		return nil, &ValidationError{Field: errs[0].FailedField, Tag: errs[0].Tag, Msg: "phone must be 10 digits and password is required"}
	}

	customer, err := s.customerRepo.FindByPhone(ctx, phone)
	if err != nil {
		return nil, ErrInvalidPhoneLogin
	}
	if !customer.CheckPassword(password) {
		return nil, ErrInvalidPhoneLogin
	}

	token, err := s.issuer.GenerateToken(jwt.Claims{
		UserID:   customer.ID,
		Kind:     jwt.KindCustomer,
		Phone:    customer.Phone,
		Name:     customer.Name,
		RoleCode: model.RoleCustomer,
	})
	if err != nil {
		return nil, ErrTokenGeneration
	}

	return &CustomerLoginResponse{Token: token, Customer: customer.ToResponse()}, nil
}

func (s *authService) ResetPassword(ctx context.Context, email, oldPassword, newPassword string) error {
	// 1. Find user by email; unknown email and wrong password look the same
	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return ErrInvalidCredentials
	}

	// 2. Verify old password
	if !user.CheckPassword(oldPassword) {
		return ErrInvalidCredentials
	}

	// 3. Set new password
	if err := user.SetPassword(newPassword); err != nil {
		return errors.New("failed to hash new password")
	}

	// 4. Update in database; rotating the version ends the other sessions
	user.TokenVersion = uuid.New().String()
	return s.userRepo.Update(ctx, user)
}

// Authenticate verifies a bearer token. Staff tokens must also carry the
// account's current token version.
func (s *authService) Authenticate(ctx context.Context, tokenString string) (*jwt.Claims, error) {
	claims, err := s.issuer.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	switch claims.Kind {
	case jwt.KindStaff:
		user, err := s.userRepo.FindByID(ctx, claims.UserID)
		if err != nil {
			return nil, ErrUserNotFound
		}
		if !user.IsActive {
			return nil, ErrUserInactive
		}
		if user.TokenVersion != claims.TokenVersion {
			return nil, ErrSessionReplaced
		}
	case jwt.KindCustomer:
		if _, err := s.customerRepo.FindByID(ctx, claims.UserID); err != nil {
			return nil, ErrCustomerNotFound
		}
	default:
		return nil, jwt.ErrInvalidToken
	}

	return claims, nil
}

func (s *authService) ValidateToken(ctx context.Context, tokenString string) (*TokenValidationResponse, error) {
	// 1. Validate JWT token and session version
	claims, err := s.Authenticate(ctx, tokenString)
	if err != nil {
		return nil, err
	}
	if claims.Kind != jwt.KindStaff {
		return nil, jwt.ErrInvalidToken
	}

	// 2. Find user by ID from token claims
	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	// 3. Check inactivity; a user without presence must log in again
	if user.LastSeenAt == nil || s.now().Sub(*user.LastSeenAt) > s.idleTimeout {
		return nil, ErrSessionTimeout
	}

	// 4. Return user info with role and privileges
	return &TokenValidationResponse{
		User:       user.ToResponse(),
		Role:       user.Role,
		Privileges: user.GetPrivilegeCodes(),
	}, nil
}

func (s *authService) Heartbeat(ctx context.Context, userID uuid.UUID) error {
	now := s.now()
	// 1. Update timestamp di DB
	if err := s.userRepo.UpdateLastSeen(ctx, userID, now); err != nil {
		return err
	}

	// 2. Broadcast status "online" ke semua client
	s.events.Publish(ws.EventUserStatusUpdate, map[string]interface{}{
		"user_id":      userID.String(),
		"status":       "online",
		"last_seen_at": now,
	})

	return nil
}
