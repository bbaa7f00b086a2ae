// Package memory holds process-local repositories used when DB_DRIVER=memory
// and in tests. Stored records are copied on the way in and out.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
	"github.com/oksasatya/go-task-tracker/internal/domain/repository"
)

type UserRepository struct {
	mu      sync.RWMutex
	byID    map[string]*entity.User
	byEmail map[string]string
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		byID:    make(map[string]*entity.User),
		byEmail: make(map[string]string),
	}
}

func (r *UserRepository) Create(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := entity.NormalizeEmail(u.Email)
	if _, ok := r.byEmail[email]; ok {
		return repository.ErrDuplicate
	}
	if u.GoogleID != "" {
		for _, existing := range r.byID {
			if existing.GoogleID == u.GoogleID {
				return repository.ErrDuplicate
			}
		}
	}

	now := time.Now().UTC()
	u.ID = uuid.NewString()
	u.Email = email
	u.CreatedAt, u.UpdatedAt = now, now

	cp := *u
	r.byID[u.ID] = &cp
	r.byEmail[email] = u.ID
	return nil
}

func (r *UserRepository) GetByID(_ context.Context, id string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepository) GetByEmail(_ context.Context, email string) (*entity.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[entity.NormalizeEmail(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *r.byID[id]
	return &cp, nil
}

func (r *UserRepository) Update(_ context.Context, u *entity.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.byID[u.ID]
	if !ok {
		return repository.ErrNotFound
	}
	u.UpdatedAt = time.Now().UTC()
	u.Email = existing.Email
	u.CreatedAt = existing.CreatedAt
	cp := *u
	r.byID[u.ID] = &cp
	return nil
}

var _ repository.UserRepository = (*UserRepository)(nil)
