package groups

import (
	"context"

	"github.com/dmitrijs2005/gophmsg/internal/server/models"
)

type Repository interface {
	// Create fails with common.ErrorAlreadyExists when the id is taken.
	Create(ctx context.Context, group *models.Group) error
	// Get fails with common.ErrorNotFound.
	Get(ctx context.Context, groupID string) (*models.Group, error)
	// Lock reads the group and holds a row lock on it until the surrounding
	// transaction ends. Fails with common.ErrorNotFound.
	Lock(ctx context.Context, groupID string) (*models.Group, error)
	// Rename fails with common.ErrorNotFound when no group was updated.
	Rename(ctx context.Context, groupID, name string) error
	Delete(ctx context.Context, groupID string) error

	// AddMember is idempotent and reports whether a row was inserted.
	AddMember(ctx context.Context, groupID, userID string) (bool, error)
	// RemoveMember returns the number of membership rows deleted (0 or 1).
	RemoveMember(ctx context.Context, groupID, userID string) (int64, error)
	IsMember(ctx context.Context, groupID, userID string) (bool, error)
	CountMembers(ctx context.Context, groupID string) (int, error)
	// ListMembers returns members with their public keys, ordered by id.
	ListMembers(ctx context.Context, groupID string) ([]models.Member, error)
	// MemberIDs returns member ids other than exclude, ordered by id.
	MemberIDs(ctx context.Context, groupID, exclude string) ([]string, error)
}
