package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"storefront/models"
	"storefront/repositories"
	"storefront/utils"
)

type AuthService struct {
	store  repositories.Store
	tokens *utils.TokenManager
}

func NewAuthService(store repositories.Store, tokens *utils.TokenManager) *AuthService {
	return &AuthService{store: store, tokens: tokens}
}

func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.User, error) {
	hashedPassword, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &models.User{
		Email:           strings.ToLower(strings.TrimSpace(req.Email)),
		Username:        strings.TrimSpace(req.Username),
		Password:        hashedPassword,
		Role:            models.RoleCustomer,
		ShippingAddress: req.ShippingAddress,
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return nil, fmt.Errorf("email or username: %w", ErrConflict)
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	user, err := s.store.Users().FindByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	valid, err := utils.VerifyPassword(user.Password, req.Password)
	if err != nil || !valid {
		return nil, ErrInvalidCredentials
	}

	token, err := s.tokens.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	return &models.LoginResponse{Token: token, User: *user}, nil
}
