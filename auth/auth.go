// Package auth registers users and issues the access tokens the
// reservation endpoints require.
package auth

import (
	"context"
	"time"

	"tablebook/models"

	"github.com/go-playground/validator/v10"
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
}

type Handler struct {
	users    UserStore
	tokenTTL time.Duration
	timeout  time.Duration
	validate *validator.Validate
}

func NewHandler(users UserStore, tokenTTL, timeout time.Duration) *Handler {
	return &Handler{
		users:    users,
		tokenTTL: tokenTTL,
		timeout:  timeout,
		validate: validator.New(),
	}
}
