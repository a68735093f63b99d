// Package auth implements token issuance: the login flow and the
// refresh flow for already-authenticated principals.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/leadgrid/crawl-gateway/internal/apierr"
	"github.com/leadgrid/crawl-gateway/internal/model"
	"github.com/leadgrid/crawl-gateway/internal/repository"
	"github.com/leadgrid/crawl-gateway/internal/token"
)

type Service struct {
	users    repository.UsersRepository
	accounts repository.AccountsRepository
	tokens   *token.Manager
}

func New(users repository.UsersRepository, accounts repository.AccountsRepository, tokens *token.Manager) *Service {
	return &Service{users: users, accounts: accounts, tokens: tokens}
}

// LoginResult carries everything the login response reports.
type LoginResult struct {
	User         *model.User
	Account      *model.Account
	Token        string
	RefreshToken string
	ExpiresIn    int64
}

// Login verifies credentials, updates last_login, and mints the access
// and refresh tokens. Lookup failure and password mismatch produce the
// same message so the response does not leak which emails exist.
func (s *Service) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	if user == nil {
		return nil, apierr.Unauthorized("invalid email or password")
	}
	if !user.Active() {
		return nil, apierr.Unauthorized("account is not active")
	}
	if !token.VerifyPassword(password, user.PasswordHash) {
		return nil, apierr.Unauthorized("invalid email or password")
	}

	now := time.Now()
	if err := s.users.UpdateLastLogin(ctx, user.ID, now); err != nil {
		return nil, fmt.Errorf("update last login: %w", err)
	}
	user.LastLogin.Time, user.LastLogin.Valid = now, true

	account, err := s.accounts.GetByID(ctx, user.AccountID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	if account == nil {
		return nil, apierr.Internal("account record missing for user")
	}

	principal := model.Principal{
		ID:        user.ID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		AccountID: user.AccountID,
		Status:    user.Status,
		Account:   account.Summary(),
	}

	access, err := s.tokens.MintAccess(principal)
	if err != nil {
		return nil, fmt.Errorf("mint access token: %w", err)
	}
	refresh, err := s.tokens.MintRefresh(principal)
	if err != nil {
		return nil, fmt.Errorf("mint refresh token: %w", err)
	}

	return &LoginResult{
		User:         user,
		Account:      account,
		Token:        access,
		RefreshToken: refresh,
		ExpiresIn:    s.tokens.AccessTTLSeconds(),
	}, nil
}

// Refresh mints a new access token for an already-verified principal.
// The password is not re-checked; the auth stage has done the work.
func (s *Service) Refresh(p model.Principal) (string, int64, error) {
	access, err := s.tokens.MintAccess(p)
	if err != nil {
		return "", 0, fmt.Errorf("mint access token: %w", err)
	}
	return access, s.tokens.AccessTTLSeconds(), nil
}
