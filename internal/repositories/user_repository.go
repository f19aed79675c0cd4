package repositories

import (
	"context"

	"freshharvest/internal/models"
)

// UserRepository defines the interface for account data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByIDs(ctx context.Context, ids []string) ([]models.User, error)
	// List returns the accounts matching filter, newest first, together with
	// the number of matches before Limit/Offset are applied.
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int64, error)
	Count(ctx context.Context, filter models.UserFilter) (int64, error)
	Delete(ctx context.Context, id string) error
}

func userNotFound(field, value string) error {
	return models.NewDomainError(models.KindNotFound, "user with %s %s not found", field, value)
}

func emailTaken(email string) error {
	return models.NewDomainError(models.KindConflict, "email '%s' already registered", email)
}
