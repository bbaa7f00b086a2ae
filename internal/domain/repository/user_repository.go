package repository

import (
	"context"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
)

// UserRepository defines the credential store operations.
// GetByEmail matches case-insensitively. Create returns ErrDuplicate when the
// email (or Google id) is already taken.
type UserRepository interface {
	Create(ctx context.Context, u *entity.User) error
	GetByID(ctx context.Context, id string) (*entity.User, error)
	GetByEmail(ctx context.Context, email string) (*entity.User, error)
	Update(ctx context.Context, u *entity.User) error
}
