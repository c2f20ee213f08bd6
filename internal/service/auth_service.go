package service

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ticketfair/escrow-service/internal/auth"
	"github.com/ticketfair/escrow-service/internal/config"
	"github.com/ticketfair/escrow-service/internal/domain"
	"github.com/ticketfair/escrow-service/internal/repository"
	apperrors "github.com/ticketfair/escrow-service/pkg/util"
)

// AuthService coordinates registration and login flows for buyers and
// organizers. The settlement core never verifies credentials itself;
// it only receives resolved account IDs.
type AuthService struct {
	accounts   repository.AccountRepository
	tokenMgr   *auth.TokenManager
	bcryptCost int
}

// NewAuthService builds the service.
func NewAuthService(cfg config.AuthConfig, accounts repository.AccountRepository) *AuthService {
	return &AuthService{
		accounts:   accounts,
		tokenMgr:   auth.NewTokenManager(cfg.JWTSecret, cfg.AccessTokenTTLMinutes),
		bcryptCost: cfg.BcryptCost,
	}
}

// TokenManager exposes the token manager for middleware wiring.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

// Register creates a new buyer or organizer account.
func (s *AuthService) Register(ctx context.Context, name, email, password string, role domain.AccountRole) (*domain.Account, string, time.Time, error) {
	if role != domain.AccountRoleBuyer && role != domain.AccountRoleOrganizer {
		return nil, "", time.Time{}, apperrors.NewValidationError("role must be BUYER or ORGANIZER", nil)
	}
	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, "", time.Time{}, apperrors.NewValidationError("email already registered", nil)
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, "", time.Time{}, err
	}

	hash, err := auth.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, "", time.Time{}, err
	}

	account := &domain.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Status:       domain.AccountStatusActive,
	}
	if err := s.accounts.Create(ctx, account); err != nil {
		return nil, "", time.Time{}, err
	}

	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}

// Login authenticates an account by email and password.
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.Account, string, time.Time, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
		}
		return nil, "", time.Time{}, err
	}
	if account.Status != domain.AccountStatusActive {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("account suspended")
	}
	if err := auth.ComparePassword(account.PasswordHash, password); err != nil {
		return nil, "", time.Time{}, apperrors.NewUnauthorized("invalid credentials")
	}

	token, exp, err := s.tokenMgr.GenerateToken(account.ID, account.Role)
	if err != nil {
		return nil, "", time.Time{}, err
	}
	return account, token, exp, nil
}
