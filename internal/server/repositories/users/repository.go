package users

import (
	"context"

	"github.com/dmitrijs2005/gophmsg/internal/server/models"
)

type Repository interface {
	// Create fails with common.ErrorAlreadyExists when the id is taken.
	Create(ctx context.Context, user *models.User) (*models.User, error)
	// GetByID fails with common.ErrorNotFound.
	GetByID(ctx context.Context, userID string) (*models.User, error)
	Exists(ctx context.Context, userID string) (bool, error)
	// FindExisting returns the subset of ids that name registered users.
	FindExisting(ctx context.Context, userIDs []string) ([]string, error)
	// Lock takes a row lock on the user until the surrounding transaction
	// ends. Message inserts for that recipient wait on it.
	Lock(ctx context.Context, userID string) error
}
