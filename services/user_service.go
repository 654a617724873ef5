package services

import (
	"context"
	"fmt"

	"storefront/models"
	"storefront/repositories"
)

type UserService struct {
	store repositories.Store
}

func NewUserService(store repositories.Store) *UserService {
	return &UserService{store: store}
}

func (s *UserService) List(ctx context.Context, page, limit int) ([]models.User, models.PaginationMeta, error) {
	page, limit = normalizePage(page, limit)
	users, total, err := s.store.Users().List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, models.PaginationMeta{}, fmt.Errorf("list users: %w", err)
	}
	return users, models.NewPaginationMeta(page, limit, total), nil
}
